package memory

import (
	"time"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
)

// historyRepository — in-memory реализация HistoryRepository поверх общего Store.
type historyRepository struct {
	store *Store
}

// NewHistoryRepository возвращает in-memory журнал статусов.
func NewHistoryRepository(store *Store) domain.HistoryRepository {
	return &historyRepository{store: store}
}

// Append добавляет запись журнала; записи не обновляются и не удаляются.
func (r *historyRepository) Append(change domain.StatusChange) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if change.ChangedAt.IsZero() {
		change.ChangedAt = time.Now().UTC()
	}
	s.history = append(s.history, change)
	return nil
}

// ListByOrder возвращает переходы заказа от старых к новым.
func (r *historyRepository) ListByOrder(orderID string) ([]domain.StatusChange, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	changes := make([]domain.StatusChange, 0)
	for _, change := range s.history {
		if change.OrderID == orderID {
			changes = append(changes, change)
		}
	}
	return changes, nil
}

var _ domain.HistoryRepository = (*historyRepository)(nil)
