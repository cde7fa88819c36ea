package memory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/crm/internal/domain"
	"github.com/vladislavdragonenkov/crm/internal/storage/memory"
)

func newOrder(t *testing.T) *domain.Order {
	t.Helper()
	now := time.Now().UTC()
	order, err := domain.NewOrder("customer-1", "USD", 0, now)
	require.NoError(t, err)
	item, err := domain.NewOrderItem("sku-1", "Coffee beans", 5, domain.MustMoney(100, "USD"))
	require.NoError(t, err)
	require.NoError(t, order.AddItem(item, now))
	return order
}

func TestOrderRepository_CreateFind(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder(t)

	require.NoError(t, repo.Create(order))

	stored, err := repo.FindByID(order.ID())
	require.NoError(t, err)
	require.Equal(t, order.ID(), stored.ID())
	require.Equal(t, order.Pricing().Final.Minor(), stored.Pricing().Final.Minor())

	_, err = repo.FindByID("missing")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderRepository_ListByCustomer(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder(t)
	require.NoError(t, repo.Create(order))

	orders, err := repo.ListByCustomer(order.CustomerID(), 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	orders, err = repo.ListByCustomer("other-customer", 10)
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestOrderRepository_Save(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder(t)
	require.NoError(t, repo.Create(order))

	stored, err := repo.FindByID(order.ID())
	require.NoError(t, err)
	require.NoError(t, stored.Confirm("customer confirmed", time.Now().UTC()))
	require.NoError(t, repo.Save(stored))

	updated, err := repo.FindByID(order.ID())
	require.NoError(t, err)
	require.Equal(t, domain.OrderStateConfirmed, updated.State())
	require.Equal(t, stored.Version()+1, updated.Version())
}

func TestOrderRepository_SaveVersionConflict(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder(t)
	require.NoError(t, repo.Create(order))

	// Две копии, загруженные с одной версией: вторая запись конфликтует.
	first, err := repo.FindByID(order.ID())
	require.NoError(t, err)
	second, err := repo.FindByID(order.ID())
	require.NoError(t, err)

	require.NoError(t, repo.Save(first))
	require.ErrorIs(t, repo.Save(second), domain.ErrOrderVersionConflict)
}
