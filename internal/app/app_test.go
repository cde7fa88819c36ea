package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Empty(t, cfg.PostgresDSN)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 100, cfg.OutboxBatchSize)
	assert.Equal(t, 3, cfg.OutboxMaxAttempts)
}

func TestNewDependenciesInMemory(t *testing.T) {
	deps, err := NewDependencies(context.Background(), DefaultConfig(), nil)
	require.NoError(t, err)
	defer deps.Close()

	assert.NotNil(t, deps.Customers)
	assert.NotNil(t, deps.Orders)
	assert.NotNil(t, deps.Outbox)
	assert.NotNil(t, deps.CustomerService)
	assert.NotNil(t, deps.OrderService)
	assert.NotNil(t, deps.Logger)

	// Без брокеров нет ни producer, ни воркера outbox.
	assert.Nil(t, deps.OutboxWorker)
	assert.Nil(t, deps.producer)
	assert.Nil(t, deps.store)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{HTTPAddr: "127.0.0.1:0", MetricsAddr: "127.0.0.1:0"}

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg)
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
