package ledger

import (
	"encoding/json"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
	"github.com/vladislavdragonenkov/kuborder/internal/id"
	"github.com/vladislavdragonenkov/kuborder/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/kuborder/internal/metrics"
)

// Service описывает операции жизненного цикла заказа.
type Service interface {
	CreateOrder(customerID string, addressID int64) (domain.Order, error)
	GetOrder(orderID string) (domain.Order, error)
	ListOrders(limit int) ([]domain.Order, error)
	DeleteOrder(orderID string) error
	TransitionStatus(orderID string, status domain.OrderStatus) (domain.Order, error)
	StatusHistory(orderID string) ([]domain.StatusChange, error)
}

// service реализует жизненный цикл заказа поверх репозиториев и каталога.
type service struct {
	orders   domain.OrderRepository
	payments domain.PaymentRepository
	history  domain.HistoryRepository
	catalog  domain.Catalog
	outbox   domain.OutboxRepository
	logger   *log.Entry
	metrics  *metrics.CoreMetrics
}

// NewService создаёт рабочий экземпляр сервиса заказов.
func NewService(
	orders domain.OrderRepository,
	payments domain.PaymentRepository,
	history domain.HistoryRepository,
	catalog domain.Catalog,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Service {
	if logger == nil {
		logger = log.New().WithField("component", "ledger")
	}
	return &service{
		orders:   orders,
		payments: payments,
		history:  history,
		catalog:  catalog,
		outbox:   outbox,
		logger:   logger,
		metrics:  metrics.NewCoreMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	orders domain.OrderRepository,
	payments domain.PaymentRepository,
	history domain.HistoryRepository,
	catalog domain.Catalog,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Service {
	if logger == nil {
		logger = log.New().WithField("component", "ledger")
	}
	return &service{
		orders:   orders,
		payments: payments,
		history:  history,
		catalog:  catalog,
		outbox:   outbox,
		logger:   logger,
	}
}

// CreateOrder заводит новый заказ в статусе pending с пустым набором позиций.
// Клиент проверяется по каталогу до записи; 7-значный номер заказа подбирается
// случайно с ограниченным числом повторов при коллизии.
func (s *service) CreateOrder(customerID string, addressID int64) (domain.Order, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration("create_order", time.Since(start))
		}
	}()

	if customerID == "" {
		return domain.Order{}, domain.ErrCustomerRequired
	}

	exists, err := s.catalog.CustomerExists(customerID)
	if err != nil {
		s.logger.WithError(err).WithField("customer_id", customerID).Error("customer lookup failed")
		return domain.Order{}, err
	}
	if !exists {
		return domain.Order{}, domain.ErrCustomerNotFound
	}

	now := time.Now().UTC()
	order := domain.Order{
		CustomerID: customerID,
		AddressID:  addressID,
		PlacedAt:   now,
		Status:     domain.OrderStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for attempt := 1; attempt <= id.DefaultMaxAttempts; attempt++ {
		order.ID = id.OrderID()

		err = s.orders.Create(order)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrOrderIDTaken) {
			s.logger.WithError(err).WithField("customer_id", customerID).Error("create order failed")
			return domain.Order{}, err
		}

		s.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"attempt":  attempt,
		}).Debug("order id collision, retrying")
		if s.metrics != nil {
			s.metrics.RecordIDCollision("order")
		}
		if attempt == id.DefaultMaxAttempts {
			return domain.Order{}, domain.ErrIDSpaceExhausted
		}
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": customerID,
	}).Info("order created")

	s.emitEvent(kafka.NewOrderEvent(kafka.EventTypeOrderCreated, order.ID, customerID, string(order.Status), map[string]interface{}{
		"address_id": addressID,
	}))

	return order, nil
}

// GetOrder возвращает заказ вместе с позициями.
func (s *service) GetOrder(orderID string) (domain.Order, error) {
	return s.orders.Get(orderID)
}

// ListOrders возвращает заказы от новых к старым.
func (s *service) ListOrders(limit int) ([]domain.Order, error) {
	return s.orders.List(limit)
}

// DeleteOrder удаляет заказ каскадно вместе с позициями, платежом и журналом.
// Сток товаров при этом не восстанавливается.
func (s *service) DeleteOrder(orderID string) error {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return err
	}
	if err := s.orders.Delete(orderID); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderDeleted(order.Status == domain.OrderStatusPending)
	}
	s.logger.WithField("order_id", orderID).Info("order deleted")

	s.emitEvent(kafka.NewOrderEvent(kafka.EventTypeOrderDeleted, orderID, order.CustomerID, string(order.Status), nil))
	return nil
}

// TransitionStatus переводит заказ в новый статус и атомарно дописывает запись
// журнала. Переход в delivered требует успешно подтверждённого платежа.
func (s *service) TransitionStatus(orderID string, status domain.OrderStatus) (domain.Order, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration("transition_status", time.Since(start))
		}
	}()

	if !status.Valid() {
		return domain.Order{}, domain.ErrInvalidStatus
	}

	current, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	if status == domain.OrderStatusDelivered {
		payment, err := s.payments.GetByOrder(orderID)
		if err != nil {
			if errors.Is(err, domain.ErrPaymentNotFound) {
				return domain.Order{}, domain.ErrDeliveryRequiresPayment
			}
			return domain.Order{}, err
		}
		if payment.Status != domain.PaymentStatusSuccess {
			return domain.Order{}, domain.ErrDeliveryRequiresPayment
		}
	}

	order, err := s.orders.TransitionStatus(orderID, status, time.Now().UTC())
	if err != nil {
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordStatusTransition(string(current.Status), string(status))
	}
	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"status":   status,
	}).Info("order status changed")

	s.emitEvent(kafka.NewOrderEvent(kafka.EventTypeOrderStatusChanged, orderID, order.CustomerID, string(status), map[string]interface{}{
		"previous_status": string(current.Status),
	}))

	return order, nil
}

// StatusHistory возвращает журнал переходов заказа от старых записей к новым.
func (s *service) StatusHistory(orderID string) ([]domain.StatusChange, error) {
	if _, err := s.orders.Get(orderID); err != nil {
		return nil, err
	}
	return s.history.ListByOrder(orderID)
}

// emitEvent кладёт событие заказа в transactional outbox; публикацию в брокер
// выполняет отдельный worker.
func (s *service) emitEvent(event *kafka.OrderEvent) {
	if s.outbox == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": event.OrderID,
			"event":    event.EventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   event.OrderID,
		EventType:     string(event.EventType),
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": event.OrderID,
			"event":    event.EventType,
		}).Error("enqueue event failed")
	}
}

var _ Service = (*service)(nil)
