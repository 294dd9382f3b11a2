package memory

import (
	"time"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
)

// itemRepository — in-memory реализация ItemRepository поверх общего Store.
type itemRepository struct {
	store *Store
}

// NewItemRepository возвращает in-memory репозиторий позиций заказа.
func NewItemRepository(store *Store) domain.ItemRepository {
	return &itemRepository{store: store}
}

// Add выполняет составную операцию под общей блокировкой: проверка товара,
// проверка и списание стока, вставка позиции, пересчёт total_amount заказа.
// Любая ошибка оставляет хранилище нетронутым.
func (r *itemRepository) Add(item domain.OrderItem) (domain.OrderItem, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, ok := s.products[item.ProductID]
	if !ok {
		return domain.OrderItem{}, domain.ErrProductNotFound
	}
	if stock < int64(item.Qty) {
		return domain.OrderItem{}, domain.ErrInsufficientStock
	}
	if _, ok := s.orders[item.OrderID]; !ok {
		return domain.OrderItem{}, domain.ErrOrderNotFound
	}

	s.products[item.ProductID] = stock - int64(item.Qty)
	s.items[item.ID] = item
	s.recomputeOrderTotal(item.OrderID)
	s.touchOrder(item.OrderID, item.CreatedAt)

	return item, nil
}

// Get возвращает позицию или ErrItemNotFound.
func (r *itemRepository) Get(id string) (domain.OrderItem, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return domain.OrderItem{}, domain.ErrItemNotFound
	}
	return item, nil
}

// ListByOrder возвращает позиции заказа в порядке добавления.
func (r *itemRepository) ListByOrder(orderID string) ([]domain.OrderItem, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.orderItems(orderID), nil
}

// Remove атомарно удаляет позицию и пересчитывает total_amount заказа.
// Сток товара не восстанавливается.
func (r *itemRepository) Remove(id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return domain.ErrItemNotFound
	}
	delete(s.items, id)
	s.recomputeOrderTotal(item.OrderID)
	s.touchOrder(item.OrderID, time.Now().UTC())
	return nil
}

// touchOrder обновляет updated_at заказа. Вызывается под блокировкой.
func (s *Store) touchOrder(orderID string, at time.Time) {
	order, ok := s.orders[orderID]
	if !ok {
		return
	}
	order.UpdatedAt = at
	s.orders[orderID] = order
}

var _ domain.ItemRepository = (*itemRepository)(nil)
