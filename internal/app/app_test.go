package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MetricsAddr == "" {
		t.Error("MetricsAddr should not be empty")
	}

	if cfg.MetricsAddr != ":9090" {
		t.Errorf("expected MetricsAddr :9090, got %s", cfg.MetricsAddr)
	}

	if cfg.PostgresDSN != "" {
		t.Errorf("expected empty PostgresDSN by default, got %s", cfg.PostgresDSN)
	}

	if cfg.KafkaBrokers != "" {
		t.Errorf("expected empty KafkaBrokers by default, got %s", cfg.KafkaBrokers)
	}
}

func TestConfig(t *testing.T) {
	cfg := Config{
		MetricsAddr:  ":9091",
		PostgresDSN:  "postgres://localhost/kuborder",
		KafkaBrokers: "localhost:9092",
	}

	if cfg.MetricsAddr != ":9091" {
		t.Errorf("expected MetricsAddr :9091, got %s", cfg.MetricsAddr)
	}

	if cfg.PostgresDSN != "postgres://localhost/kuborder" {
		t.Errorf("unexpected PostgresDSN: %s", cfg.PostgresDSN)
	}

	if cfg.KafkaBrokers != "localhost:9092" {
		t.Errorf("unexpected KafkaBrokers: %s", cfg.KafkaBrokers)
	}
}

func TestRun_InMemoryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	cfg := Config{MetricsAddr: "127.0.0.1:0"}

	err := Run(ctx, cfg)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
}
