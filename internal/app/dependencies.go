package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
	"github.com/vladislavdragonenkov/kuborder/internal/storage/memory"
	"github.com/vladislavdragonenkov/kuborder/internal/storage/postgres"
)

// Dependencies содержит хранилище и репозитории приложения.
type Dependencies struct {
	Orders   domain.OrderRepository
	Items    domain.ItemRepository
	Payments domain.PaymentRepository
	History  domain.HistoryRepository
	Outbox   domain.OutboxRepository
	Catalog  domain.Catalog
	Logger   *log.Entry

	// Store не nil только для PostgreSQL-зависимостей.
	Store *postgres.Store
}

// NewDependencies создаёт in-memory зависимости (для разработки и тестов).
func NewDependencies(logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	store := memory.NewStore()
	return &Dependencies{
		Orders:   memory.NewOrderRepository(store),
		Items:    memory.NewItemRepository(store),
		Payments: memory.NewPaymentRepository(store),
		History:  memory.NewHistoryRepository(store),
		Outbox:   memory.NewOutboxRepository(),
		Catalog:  store,
		Logger:   logger,
	}
}

// NewPostgresDependencies открывает соединение с PostgreSQL, применяет
// миграции и создаёт репозитории поверх общей базы.
func NewPostgresDependencies(ctx context.Context, dsn string, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Dependencies{
		Orders:   postgres.NewOrderRepository(store),
		Items:    postgres.NewItemRepository(store),
		Payments: postgres.NewPaymentRepository(store),
		History:  postgres.NewHistoryRepository(store),
		Outbox:   postgres.NewOutboxRepository(store),
		Catalog:  postgres.NewCatalog(store),
		Logger:   logger,
		Store:    store,
	}, nil
}

// Close освобождает ресурсы зависимостей.
func (d *Dependencies) Close() {
	if d.Store != nil {
		d.Store.Close()
	}
}
