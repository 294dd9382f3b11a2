package memory

import (
	"sort"
	"time"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
)

// orderRepository — in-memory реализация OrderRepository поверх общего Store.
type orderRepository struct {
	store *Store
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

// Create сохраняет новый заказ и начальную запись журнала статусов.
func (r *orderRepository) Create(order domain.Order) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return domain.ErrOrderIDTaken
	}
	// Позиции хранятся отдельно; в заказе остаётся только агрегат.
	items := order.Items
	order.Items = nil
	s.orders[order.ID] = order
	for _, item := range items {
		s.items[item.ID] = item
	}
	s.history = append(s.history, domain.StatusChange{
		OrderID:   order.ID,
		Status:    order.Status,
		ChangedAt: order.CreatedAt,
	})
	return nil
}

// Get возвращает заказ с позициями или ErrOrderNotFound, если его нет.
func (r *orderRepository) Get(id string) (domain.Order, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.assembleOrder(id)
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// List возвращает заказы, новые первыми, ограничивая выборку limit (если >0).
func (r *orderRepository) List(limit int) ([]domain.Order, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0, len(s.orders))
	for id := range s.orders {
		order, _ := s.assembleOrder(id)
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Delete удаляет заказ и каскадом его позиции, платёж и журнал статусов.
func (r *orderRepository) Delete(id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(s.orders, id)
	for itemID, item := range s.items {
		if item.OrderID == id {
			delete(s.items, itemID)
		}
	}
	if paymentID, ok := s.paymentByOrder[id]; ok {
		delete(s.payments, paymentID)
		delete(s.paymentByOrder, id)
	}
	kept := s.history[:0]
	for _, change := range s.history {
		if change.OrderID != id {
			kept = append(kept, change)
		}
	}
	s.history = kept
	return nil
}

// TransitionStatus атомарно обновляет статус заказа и добавляет запись журнала.
// Переход в delivered проверяет успешный платёж в той же критической секции.
func (r *orderRepository) TransitionStatus(orderID string, status domain.OrderStatus, at time.Time) (domain.Order, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if status == domain.OrderStatusDelivered {
		paymentID, ok := s.paymentByOrder[orderID]
		if !ok || s.payments[paymentID].Status != domain.PaymentStatusSuccess {
			return domain.Order{}, domain.ErrDeliveryRequiresPayment
		}
	}
	order.Status = status
	order.UpdatedAt = at
	s.orders[orderID] = order
	s.history = append(s.history, domain.StatusChange{
		OrderID:   orderID,
		Status:    status,
		ChangedAt: at,
	})

	updated, _ := s.assembleOrder(orderID)
	return updated, nil
}

func sortItems(items []domain.OrderItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

var _ domain.OrderRepository = (*orderRepository)(nil)
