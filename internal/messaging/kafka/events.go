package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// Order события
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
	EventTypeOrderDeleted       EventType = "order.deleted"

	// Item события
	EventTypeItemAdded   EventType = "order.item_added"
	EventTypeItemRemoved EventType = "order.item_removed"

	// Payment события
	EventTypePaymentAttached      EventType = "payment.attached"
	EventTypePaymentStatusChanged EventType = "payment.status_changed"
	EventTypePaymentConfirmed     EventType = "payment.confirmed"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "kuborder.order.events"
	TopicPaymentEvents   = "kuborder.payment.events"
	TopicDeadLetterQueue = "kuborder.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent представляет событие заказа. CustomerID и Status опциональны:
// события позиций заполняют только order_id и metadata.
type OrderEvent struct {
	EventType  EventType              `json:"event_type"`
	OrderID    string                 `json:"order_id"`
	CustomerID string                 `json:"customer_id,omitempty"`
	Status     string                 `json:"status,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// PaymentEvent представляет событие платежа
type PaymentEvent struct {
	EventType     EventType              `json:"event_type"`
	PaymentID     string                 `json:"payment_id"`
	OrderID       string                 `json:"order_id"`
	Status        string                 `json:"status"`
	TransactionID string                 `json:"transaction_id,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(eventType EventType, orderID, customerID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		CustomerID: customerID,
		Status:     status,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}

// NewPaymentEvent создает новое событие платежа
func NewPaymentEvent(eventType EventType, paymentID, orderID, status, transactionID string, metadata map[string]interface{}) *PaymentEvent {
	return &PaymentEvent{
		EventType:     eventType,
		PaymentID:     paymentID,
		OrderID:       orderID,
		Status:        status,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
		Metadata:      metadata,
	}
}
