package item

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
	"github.com/vladislavdragonenkov/kuborder/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/kuborder/internal/metrics"
)

// Service описывает операции над позициями заказа.
type Service interface {
	AddItem(orderID, productID string, qty int32, unitPriceMinor int64) (domain.OrderItem, error)
	GetItem(itemID string) (domain.OrderItem, error)
	ListForOrder(orderID string) ([]domain.OrderItem, error)
	RemoveItem(itemID string) error
}

// service реализует работу с позициями поверх ItemRepository.
type service struct {
	items   domain.ItemRepository
	outbox  domain.OutboxRepository
	logger  *log.Entry
	metrics *metrics.CoreMetrics
}

// NewService создаёт рабочий экземпляр сервиса позиций.
func NewService(items domain.ItemRepository, outbox domain.OutboxRepository, logger *log.Entry) Service {
	if logger == nil {
		logger = log.New().WithField("component", "item")
	}
	return &service{
		items:   items,
		outbox:  outbox,
		logger:  logger,
		metrics: metrics.NewCoreMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(items domain.ItemRepository, outbox domain.OutboxRepository, logger *log.Entry) Service {
	if logger == nil {
		logger = log.New().WithField("component", "item")
	}
	return &service{
		items:  items,
		outbox: outbox,
		logger: logger,
	}
}

// AddItem добавляет позицию в заказ. Итоговая цена позиции вычисляется один
// раз при добавлении; проверка и списание стока выполняются атомарно в
// репозитории, поэтому конкурентные добавления одного товара не могут увести
// сток в минус.
func (s *service) AddItem(orderID, productID string, qty int32, unitPriceMinor int64) (domain.OrderItem, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration("add_item", time.Since(start))
		}
	}()

	now := time.Now().UTC()
	item := domain.OrderItem{
		ID:              uuid.NewString(),
		OrderID:         orderID,
		ProductID:       productID,
		Qty:             qty,
		UnitPriceMinor:  unitPriceMinor,
		TotalPriceMinor: int64(qty) * unitPriceMinor,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if errs := item.Validate(); len(errs) > 0 {
		return domain.OrderItem{}, errs[0]
	}

	item, err := s.items.Add(item)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			if s.metrics != nil {
				s.metrics.RecordStockRejection()
			}
			s.logger.WithFields(log.Fields{
				"order_id":   orderID,
				"product_id": productID,
				"qty":        qty,
			}).Warn("item rejected: insufficient stock")
		}
		return domain.OrderItem{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordItemAdded()
	}
	s.logger.WithFields(log.Fields{
		"order_id":   orderID,
		"product_id": productID,
		"item_id":    item.ID,
		"qty":        qty,
	}).Info("item added to order")

	s.emitEvent(orderID, kafka.EventTypeItemAdded, map[string]interface{}{
		"item_id":           item.ID,
		"product_id":        productID,
		"qty":               qty,
		"total_price_minor": item.TotalPriceMinor,
	})

	return item, nil
}

// GetItem возвращает позицию по идентификатору.
func (s *service) GetItem(itemID string) (domain.OrderItem, error) {
	return s.items.Get(itemID)
}

// ListForOrder возвращает позиции заказа в порядке добавления.
func (s *service) ListForOrder(orderID string) ([]domain.OrderItem, error) {
	return s.items.ListByOrder(orderID)
}

// RemoveItem удаляет позицию и пересчитывает сумму заказа. Сток товара при
// удалении не восстанавливается.
func (s *service) RemoveItem(itemID string) error {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration("remove_item", time.Since(start))
		}
	}()

	item, err := s.items.Get(itemID)
	if err != nil {
		return err
	}

	if err := s.items.Remove(itemID); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordItemRemoved()
	}
	s.logger.WithFields(log.Fields{
		"order_id": item.OrderID,
		"item_id":  itemID,
	}).Info("item removed from order")

	s.emitEvent(item.OrderID, kafka.EventTypeItemRemoved, map[string]interface{}{
		"item_id":    itemID,
		"product_id": item.ProductID,
	})

	return nil
}

// emitEvent кладёт событие позиции в transactional outbox. Клиент и статус
// заказа сервису позиций неизвестны, поэтому событие несёт только order_id и
// метаданные позиции.
func (s *service) emitEvent(orderID string, eventType kafka.EventType, metadata map[string]interface{}) {
	if s.outbox == nil {
		return
	}

	event := kafka.NewOrderEvent(eventType, orderID, "", "", metadata)
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Error("marshal event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   orderID,
		EventType:     string(eventType),
		Payload:       data,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id": orderID,
			"event":    eventType,
		}).Error("enqueue event failed")
	}
}

var _ Service = (*service)(nil)
