package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kuborder/internal/domain"
	"github.com/vladislavdragonenkov/kuborder/internal/service/item"
	"github.com/vladislavdragonenkov/kuborder/internal/service/ledger"
	"github.com/vladislavdragonenkov/kuborder/internal/storage/memory"
	"github.com/vladislavdragonenkov/kuborder/internal/storage/postgres"
)

// stockbench гоняет конкурентные добавления одного товара во много заказов и
// проверяет, что суммарное списание никогда не превышает начальный сток.
type config struct {
	dsn        string
	workers    int
	perWorker  int
	stock      int64
	qty        int
	priceMinor int64
}

type report struct {
	added        int64
	rejected     int64
	otherErrors  int64
	elapsed      time.Duration
	initialStock int64
	finalStock   int64
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.WarnLevel)

	var cfg config
	flag.StringVar(&cfg.dsn, "dsn", "", "PostgreSQL DSN (empty = in-memory store)")
	flag.IntVar(&cfg.workers, "workers", 16, "number of concurrent workers")
	flag.IntVar(&cfg.perWorker, "per-worker", 25, "item additions per worker")
	flag.Int64Var(&cfg.stock, "stock", 100, "initial product stock")
	flag.IntVar(&cfg.qty, "qty", 1, "quantity per added item")
	flag.Int64Var(&cfg.priceMinor, "price", 4999, "unit price in minor units")
	flag.Parse()

	if cfg.workers <= 0 || cfg.perWorker <= 0 || cfg.qty <= 0 {
		fail("workers, per-worker and qty must be positive")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	rep, err := run(ctx, cfg)
	if err != nil {
		fail("bench failed: %v", err)
	}

	consumed := rep.initialStock - rep.finalStock
	fmt.Printf("workers=%d per_worker=%d qty=%d\n", cfg.workers, cfg.perWorker, cfg.qty)
	fmt.Printf("added=%d rejected=%d other_errors=%d\n", rep.added, rep.rejected, rep.otherErrors)
	fmt.Printf("stock: initial=%d final=%d consumed=%d\n", rep.initialStock, rep.finalStock, consumed)
	fmt.Printf("elapsed=%s throughput=%.1f ops/s\n", rep.elapsed, float64(rep.added+rep.rejected)/rep.elapsed.Seconds())

	if rep.finalStock < 0 {
		fail("invariant violated: final stock is negative (%d)", rep.finalStock)
	}
	if consumed != rep.added*int64(cfg.qty) {
		fail("invariant violated: consumed=%d, expected %d", consumed, rep.added*int64(cfg.qty))
	}
	fmt.Println("stock invariant holds")
}

func run(ctx context.Context, cfg config) (report, error) {
	const (
		customerID = "bench-customer"
		productID  = "bench-product"
	)

	var (
		orders  domain.OrderRepository
		items   domain.ItemRepository
		catalog domain.Catalog
	)

	if cfg.dsn == "" {
		store := memory.NewStore()
		store.SeedCustomer(customerID)
		store.SeedProduct(productID, cfg.stock)
		orders = memory.NewOrderRepository(store)
		items = memory.NewItemRepository(store)
		catalog = store
	} else {
		store, err := postgres.Open(ctx, cfg.dsn)
		if err != nil {
			return report{}, err
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return report{}, err
		}
		if err := seedPostgres(ctx, store, customerID, productID, cfg.stock); err != nil {
			return report{}, err
		}
		orders = postgres.NewOrderRepository(store)
		items = postgres.NewItemRepository(store)
		catalog = postgres.NewCatalog(store)
	}

	logger := log.WithField("component", "stockbench")
	ledgerSvc := ledger.NewServiceWithoutMetrics(orders, nil, nil, catalog, nil, logger)
	itemSvc := item.NewServiceWithoutMetrics(items, nil, logger)

	// Каждому воркеру свой заказ: контеншн идёт по строке товара, как в
	// реальной нагрузке.
	orderIDs := make([]string, cfg.workers)
	for i := range orderIDs {
		order, err := ledgerSvc.CreateOrder(customerID, int64(i+1))
		if err != nil {
			return report{}, fmt.Errorf("create bench order: %w", err)
		}
		orderIDs[i] = order.ID
	}

	var added, rejected, other atomic.Int64
	start := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < cfg.workers; w++ {
		wg.Add(1)
		go func(orderID string) {
			defer wg.Done()
			for i := 0; i < cfg.perWorker; i++ {
				_, err := itemSvc.AddItem(orderID, productID, int32(cfg.qty), cfg.priceMinor)
				switch {
				case err == nil:
					added.Add(1)
				case errors.Is(err, domain.ErrInsufficientStock):
					rejected.Add(1)
				default:
					other.Add(1)
					log.WithError(err).Warn("unexpected add item error")
				}
			}
		}(orderIDs[w])
	}
	wg.Wait()

	_, finalStock, err := catalog.ProductStock(productID)
	if err != nil {
		return report{}, fmt.Errorf("read final stock: %w", err)
	}

	return report{
		added:        added.Load(),
		rejected:     rejected.Load(),
		otherErrors:  other.Load(),
		elapsed:      time.Since(start),
		initialStock: cfg.stock,
		finalStock:   finalStock,
	}, nil
}

// seedPostgres заводит клиента и товар для прогона, сбрасывая сток к начальному.
func seedPostgres(ctx context.Context, store *postgres.Store, customerID, productID string, stock int64) error {
	if _, err := store.DB().ExecContext(ctx, `
		INSERT INTO customers (customer_id, created_at) VALUES ($1, NOW())
		ON CONFLICT (customer_id) DO NOTHING
	`, customerID); err != nil {
		return fmt.Errorf("seed customer: %w", err)
	}
	if _, err := store.DB().ExecContext(ctx, `
		INSERT INTO products (product_id, stock, created_at) VALUES ($1, $2, NOW())
		ON CONFLICT (product_id) DO UPDATE SET stock = EXCLUDED.stock
	`, productID, stock); err != nil {
		return fmt.Errorf("seed product: %w", err)
	}
	return nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
