package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

func TestOutboxRepository_EnqueueAndPull(t *testing.T) {
	repo := NewOutboxRepository()

	msg := domain.OutboxMessage{
		AggregateType: "customer",
		AggregateID:   "customer-1",
		EventType:     domain.EventTypeCustomerPromotedToVip,
		Payload:       []byte(`{"customer_id":"customer-1"}`),
	}

	saved, err := repo.Enqueue(msg)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	pending, err := repo.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, saved.ID, pending[0].ID)

	stats, err := repo.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.PendingCount)
	require.False(t, stats.OldestPendingAt.IsZero())
}

func TestOutboxRepository_PullOrder(t *testing.T) {
	repo := NewOutboxRepository()

	first, err := repo.Enqueue(domain.OutboxMessage{AggregateType: "customer", AggregateID: "a"})
	require.NoError(t, err)
	second, err := repo.Enqueue(domain.OutboxMessage{AggregateType: "customer", AggregateID: "b"})
	require.NoError(t, err)

	pending, err := repo.PullPending(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, first.ID, pending[0].ID)
	require.Equal(t, second.ID, pending[1].ID)
}

func TestOutboxRepository_MarkSentAndFailed(t *testing.T) {
	repo := NewOutboxRepository()

	saved, err := repo.Enqueue(domain.OutboxMessage{AggregateType: "customer"})
	require.NoError(t, err)

	require.NoError(t, repo.MarkSent(saved.ID))

	pending, err := repo.PullPending(10)
	require.NoError(t, err)
	require.Empty(t, pending)

	require.NoError(t, repo.MarkFailed(saved.ID))
	require.Error(t, repo.MarkFailed("missing"))
}
