package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
)

// Store — in-memory модель общей реляционной базы: заказы, позиции, платежи,
// журнал статусов и таблицы внешних каталогов (клиенты, товары). Один mutex на
// всё хранилище играет роль транзакционной изоляции базы: составные операции
// репозиториев выполняются под ним целиком.
type Store struct {
	mu sync.RWMutex

	customers map[string]struct{}
	products  map[string]int64

	orders         map[string]domain.Order
	items          map[string]domain.OrderItem
	payments       map[string]domain.Payment
	paymentByOrder map[string]string
	history        []domain.StatusChange
}

// NewStore возвращает пустое in-memory хранилище для локальной разработки и тестов.
func NewStore() *Store {
	return &Store{
		customers:      make(map[string]struct{}),
		products:       make(map[string]int64),
		orders:         make(map[string]domain.Order),
		items:          make(map[string]domain.OrderItem),
		payments:       make(map[string]domain.Payment),
		paymentByOrder: make(map[string]string),
	}
}

// SeedCustomer добавляет клиента в каталог.
func (s *Store) SeedCustomer(customerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[customerID] = struct{}{}
}

// SeedProduct добавляет товар в каталог с заданным стоком.
func (s *Store) SeedProduct(productID string, stock int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[productID] = stock
}

// CustomerExists сообщает, существует ли клиент в каталоге.
func (s *Store) CustomerExists(customerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.customers[customerID]
	return ok, nil
}

// ProductStock возвращает признак существования товара и текущий сток.
func (s *Store) ProductStock(productID string) (bool, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stock, ok := s.products[productID]
	return ok, stock, nil
}

// orderItems собирает позиции заказа в порядке добавления. Вызывается под блокировкой.
func (s *Store) orderItems(orderID string) []domain.OrderItem {
	items := make([]domain.OrderItem, 0)
	for _, item := range s.items {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	sortItems(items)
	return items
}

// assembleOrder возвращает копию заказа с позициями. Вызывается под блокировкой.
func (s *Store) assembleOrder(orderID string) (domain.Order, bool) {
	order, ok := s.orders[orderID]
	if !ok {
		return domain.Order{}, false
	}
	order.Items = s.orderItems(orderID)
	return order, true
}

// recomputeOrderTotal пересчитывает total_amount заказа по живым позициям.
// Вызывается под блокировкой в той же критической секции, что и мутация позиций.
func (s *Store) recomputeOrderTotal(orderID string) {
	order, ok := s.orders[orderID]
	if !ok {
		return
	}
	var total int64
	for _, item := range s.items {
		if item.OrderID == orderID {
			total += item.TotalPriceMinor
		}
	}
	order.TotalAmountMinor = total
	s.orders[orderID] = order
}

var _ domain.Catalog = (*Store)(nil)
