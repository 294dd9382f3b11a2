package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
)

// catalog читает таблицы внешних каталогов, живущие в той же базе.
// Списание стока каталогу не принадлежит: его выполняет ItemRepository внутри
// транзакции добавления позиции.
type catalog struct {
	db *sql.DB
}

// NewCatalog создаёт PostgreSQL-реализацию Catalog поверх общих таблиц
// customers и products.
func NewCatalog(store *Store) domain.Catalog {
	return &catalog{db: store.DB()}
}

// CustomerExists сообщает, существует ли клиент в каталоге.
func (c *catalog) CustomerExists(customerID string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var id string
	err := c.db.QueryRowContext(ctx, `
		SELECT customer_id FROM customers WHERE customer_id = $1
	`, customerID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check customer exists: %w", err)
}

// ProductStock возвращает признак существования товара и текущий сток.
func (c *catalog) ProductStock(productID string) (bool, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var stock int64
	err := c.db.QueryRowContext(ctx, `
		SELECT stock FROM products WHERE product_id = $1
	`, productID).Scan(&stock)
	if err == nil {
		return true, stock, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, nil
	}
	return false, 0, fmt.Errorf("check product stock: %w", err)
}

var _ domain.Catalog = (*catalog)(nil)
