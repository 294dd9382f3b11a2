package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
)

type historyRepository struct {
	db *sql.DB
}

// NewHistoryRepository создаёт PostgreSQL-реализацию HistoryRepository.
func NewHistoryRepository(store *Store) domain.HistoryRepository {
	return &historyRepository{db: store.DB()}
}

// Append добавляет запись журнала статусов.
func (r *historyRepository) Append(change domain.StatusChange) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if change.ChangedAt.IsZero() {
		change.ChangedAt = time.Now().UTC()
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO status_history (order_id, status, changed_at)
		VALUES ($1,$2,$3)
	`, change.OrderID, string(change.Status), change.ChangedAt); err != nil {
		return fmt.Errorf("append status history: %w", err)
	}

	return nil
}

// ListByOrder возвращает переходы заказа от старых к новым; каждый вызов
// перечитывает журнал заново.
func (r *historyRepository) ListByOrder(orderID string) ([]domain.StatusChange, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, status, changed_at
		FROM status_history
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	changes := make([]domain.StatusChange, 0)
	for rows.Next() {
		var change domain.StatusChange
		var status string
		if err := rows.Scan(&change.OrderID, &status, &change.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		change.Status = domain.OrderStatus(status)
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history: %w", err)
	}

	return changes, nil
}

var _ domain.HistoryRepository = (*historyRepository)(nil)
