package postgres

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
)

func TestCatalog_Postgres(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seedCustomerForIntegrationTest(t, store, "customer-1")
	seedProductForIntegrationTest(t, store, "product-1", 5)

	catalog := NewCatalog(store)

	exists, err := catalog.CustomerExists("customer-1")
	if err != nil {
		t.Fatalf("customer exists: %v", err)
	}
	if !exists {
		t.Fatal("expected customer-1 to exist")
	}

	exists, err = catalog.CustomerExists("no-such-customer")
	if err != nil {
		t.Fatalf("customer exists: %v", err)
	}
	if exists {
		t.Fatal("expected unknown customer to be missing")
	}

	found, stock, err := catalog.ProductStock("product-1")
	if err != nil {
		t.Fatalf("product stock: %v", err)
	}
	if !found || stock != 5 {
		t.Fatalf("expected product-1 with stock 5, got found=%v stock=%d", found, stock)
	}

	found, stock, err = catalog.ProductStock("no-such-product")
	if err != nil {
		t.Fatalf("product stock: %v", err)
	}
	if found || stock != 0 {
		t.Fatalf("expected missing product, got found=%v stock=%d", found, stock)
	}
}

func TestHistoryRepository_PostgresAppendAndList(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	orders := NewOrderRepository(store)
	history := NewHistoryRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	if err := orders.Create(sampleOrder("4000001", "customer-1", now)); err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := history.Append(domain.StatusChange{
		OrderID:   "4000001",
		Status:    domain.OrderStatusShipped,
		ChangedAt: now.Add(time.Minute),
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Нулевое время подставляется автоматически.
	if err := history.Append(domain.StatusChange{
		OrderID: "4000001",
		Status:  domain.OrderStatusDelivered,
	}); err != nil {
		t.Fatalf("append with zero time: %v", err)
	}

	changes, err := history.ListByOrder("4000001")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("expected 3 rows (initial pending plus two appends), got %d", len(changes))
	}
	if changes[0].Status != domain.OrderStatusPending ||
		changes[1].Status != domain.OrderStatusShipped ||
		changes[2].Status != domain.OrderStatusDelivered {
		t.Fatalf("unexpected history sequence: %+v", changes)
	}
	if changes[2].ChangedAt.IsZero() {
		t.Fatal("expected defaulted changed_at")
	}
}
