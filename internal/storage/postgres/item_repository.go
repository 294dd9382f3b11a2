package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
)

type itemRepository struct {
	db *sql.DB
}

// NewItemRepository создаёт PostgreSQL-реализацию ItemRepository.
func NewItemRepository(store *Store) domain.ItemRepository {
	return &itemRepository{db: store.DB()}
}

// Add выполняет одну транзакцию: блокировка строки товара (SELECT ... FOR
// UPDATE), проверка стока, списание, вставка позиции, пересчёт total_amount
// заказа. Блокировка строки сериализует конкурентные проверки check-then-
// decrement по одному товару: два вызова не могут оба пройти проверку при
// недостаточном общем стоке.
func (r *itemRepository) Add(item domain.OrderItem) (domain.OrderItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.OrderItem{}, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var stock int64
	err = tx.QueryRowContext(ctx, `
		SELECT stock FROM products WHERE product_id = $1 FOR UPDATE
	`, item.ProductID).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OrderItem{}, domain.ErrProductNotFound
		}
		return domain.OrderItem{}, fmt.Errorf("lock product row: %w", err)
	}
	if stock < int64(item.Qty) {
		err = domain.ErrInsufficientStock
		return domain.OrderItem{}, err
	}

	var orderID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM orders WHERE id = $1 FOR UPDATE
	`, item.OrderID).Scan(&orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OrderItem{}, domain.ErrOrderNotFound
		}
		return domain.OrderItem{}, fmt.Errorf("lock order row: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE products SET stock = stock - $2 WHERE product_id = $1
	`, item.ProductID, int64(item.Qty)); err != nil {
		return domain.OrderItem{}, fmt.Errorf("decrement product stock: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO order_items (
			id, order_id, product_id, qty, unit_price_minor, total_price_minor, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		item.ID, item.OrderID, item.ProductID, item.Qty,
		item.UnitPriceMinor, item.TotalPriceMinor, item.CreatedAt, item.UpdatedAt,
	); err != nil {
		return domain.OrderItem{}, fmt.Errorf("insert order item: %w", err)
	}

	if err = recomputeOrderTotalTx(ctx, tx, item.OrderID, item.CreatedAt); err != nil {
		return domain.OrderItem{}, err
	}

	if err = tx.Commit(); err != nil {
		return domain.OrderItem{}, fmt.Errorf("commit add item: %w", err)
	}

	return item, nil
}

// Get возвращает позицию или ErrItemNotFound.
func (r *itemRepository) Get(id string) (domain.OrderItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var item domain.OrderItem
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, product_id, qty, unit_price_minor, total_price_minor, created_at, updated_at
		FROM order_items
		WHERE id = $1
	`, id).Scan(
		&item.ID, &item.OrderID, &item.ProductID, &item.Qty,
		&item.UnitPriceMinor, &item.TotalPriceMinor, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.OrderItem{}, domain.ErrItemNotFound
		}
		return domain.OrderItem{}, fmt.Errorf("select order item: %w", err)
	}

	return item, nil
}

// ListByOrder возвращает позиции заказа в порядке добавления.
func (r *itemRepository) ListByOrder(orderID string) ([]domain.OrderItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, qty, unit_price_minor, total_price_minor, created_at, updated_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.Qty,
			&item.UnitPriceMinor, &item.TotalPriceMinor, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

// Remove удаляет позицию и пересчитывает total_amount заказа одной транзакцией.
// Сток товара намеренно не восстанавливается.
func (r *itemRepository) Remove(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var orderID string
	err = tx.QueryRowContext(ctx, `
		SELECT order_id FROM order_items WHERE id = $1 FOR UPDATE
	`, id).Scan(&orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrItemNotFound
		}
		return fmt.Errorf("lock order item row: %w", err)
	}

	var lockedOrderID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM orders WHERE id = $1 FOR UPDATE
	`, orderID).Scan(&lockedOrderID)
	if err != nil {
		return fmt.Errorf("lock order row: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM order_items WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete order item: %w", err)
	}

	if err = recomputeOrderTotalTx(ctx, tx, orderID, time.Now().UTC()); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit remove item: %w", err)
	}

	return nil
}

// recomputeOrderTotalTx пересчитывает total_amount заказа по живым позициям
// внутри переданной транзакции.
func recomputeOrderTotalTx(ctx context.Context, tx *sql.Tx, orderID string, at time.Time) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET total_amount_minor = COALESCE((
			SELECT SUM(total_price_minor) FROM order_items WHERE order_id = $1
		), 0),
		    updated_at = $2
		WHERE id = $1
	`, orderID, at); err != nil {
		return fmt.Errorf("recompute order total: %w", err)
	}
	return nil
}

var _ domain.ItemRepository = (*itemRepository)(nil)
