package memory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/crm/internal/domain"
	"github.com/vladislavdragonenkov/crm/internal/storage/memory"
)

func newCustomer(t *testing.T, emailAddr string) *domain.Customer {
	t.Helper()
	now := time.Now().UTC()
	info, err := domain.NewPersonalInfo("John", "Doe", "+15551234567")
	require.NoError(t, err)
	email, err := domain.NewEmail(emailAddr)
	require.NoError(t, err)
	address, err := domain.NewAddress("123 Main St", "Springfield", "IL", "62704", domain.CountryUS)
	require.NoError(t, err)
	customer, err := domain.NewCustomer(info, email, address, now)
	require.NoError(t, err)
	return customer
}

func TestCustomerRepository_CreateFind(t *testing.T) {
	repo := memory.NewCustomerRepository()
	customer := newCustomer(t, "john@example.com")

	require.NoError(t, repo.Create(customer))

	stored, err := repo.FindByID(customer.ID())
	require.NoError(t, err)
	require.Equal(t, customer.ID(), stored.ID())
	require.Equal(t, "john@example.com", stored.Email().String())

	byEmail, err := repo.FindByEmail(customer.Email())
	require.NoError(t, err)
	require.Equal(t, customer.ID(), byEmail.ID())

	_, err = repo.FindByID("missing")
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestCustomerRepository_DuplicateEmail(t *testing.T) {
	repo := memory.NewCustomerRepository()

	require.NoError(t, repo.Create(newCustomer(t, "john@example.com")))

	err := repo.Create(newCustomer(t, "john@example.com"))
	require.ErrorIs(t, err, domain.ErrEmailAlreadyTaken)

	exists, err := repo.ExistsByEmail(mustEmail(t, "john@example.com"))
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.ExistsByEmail(mustEmail(t, "other@example.com"))
	require.NoError(t, err)
	require.False(t, exists)
}

func mustEmail(t *testing.T, value string) domain.Email {
	t.Helper()
	email, err := domain.NewEmail(value)
	require.NoError(t, err)
	return email
}

func TestCustomerRepository_SaveVersioning(t *testing.T) {
	repo := memory.NewCustomerRepository()
	customer := newCustomer(t, "john@example.com")
	require.NoError(t, repo.Create(customer))

	now := time.Now().UTC()
	first, err := repo.FindByID(customer.ID())
	require.NoError(t, err)
	second, err := repo.FindByID(customer.ID())
	require.NoError(t, err)

	require.NoError(t, first.RegisterPurchase("ord-1", domain.MustMoney(100, "USD"), now))
	require.NoError(t, repo.Save(first))

	// Сохранение устаревшей копии конфликтует.
	require.ErrorIs(t, repo.Save(second), domain.ErrCustomerVersionConflict)

	updated, err := repo.FindByID(customer.ID())
	require.NoError(t, err)
	require.Equal(t, 1, updated.TotalPurchases())
	require.Equal(t, first.Version()+1, updated.Version())
}
