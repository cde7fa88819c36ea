package domain_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

func TestNewCreditLimit(t *testing.T) {
	cases := []struct {
		name    string
		total   domain.Money
		used    domain.Money
		wantErr error
	}{
		{name: "ok", total: domain.MustMoney(100_000, "USD"), used: domain.MustMoney(0, "USD")},
		{name: "used equals total", total: domain.MustMoney(500, "USD"), used: domain.MustMoney(500, "USD")},
		{name: "zero total", total: domain.MustMoney(0, "USD"), used: domain.MustMoney(0, "USD"), wantErr: domain.ErrInvalidCreditLimit},
		{name: "used above total", total: domain.MustMoney(500, "USD"), used: domain.MustMoney(600, "USD"), wantErr: domain.ErrInvalidCreditLimit},
		{name: "currency mismatch", total: domain.MustMoney(500, "USD"), used: domain.MustMoney(0, "EUR"), wantErr: domain.ErrInvalidCreditLimit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := domain.NewCreditLimit(tc.total, tc.used)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestInitialCreditLimit(t *testing.T) {
	cl := domain.InitialCreditLimit()
	if cl.Total().Minor() != 100_000 || cl.Total().Currency() != "USD" {
		t.Fatalf("expected 1000.00 USD initial limit, got %s", cl.Total())
	}
	if cl.HasUsedCredit() {
		t.Fatal("new limit must not carry debt")
	}
}

// Списание и возврат должны восстанавливать исходный доступный кредит.
func TestCreditLimitConsumeReleaseRoundTrip(t *testing.T) {
	cl := domain.InitialCreditLimit()
	amount := domain.MustMoney(25_000, "USD")

	consumed, err := cl.Consume(amount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consumed.Available().Minor() != 75_000 {
		t.Fatalf("expected 750.00 available, got %s", consumed.Available())
	}
	if !consumed.HasUsedCredit() {
		t.Fatal("expected debt after consume")
	}

	released, err := consumed.Release(amount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released.Available().Minor() != cl.Available().Minor() {
		t.Fatalf("expected available restored to %s, got %s", cl.Available(), released.Available())
	}

	// Исходные значения неизменяемы.
	if cl.Used().Minor() != 0 {
		t.Fatalf("original limit mutated: used %s", cl.Used())
	}
}

func TestCreditLimitConsumeErrors(t *testing.T) {
	cl := domain.InitialCreditLimit()

	if _, err := cl.Consume(domain.MustMoney(100_001, "USD")); !errors.Is(err, domain.ErrInsufficientCredit) {
		t.Fatalf("expected insufficient credit, got %v", err)
	}
	if _, err := cl.Consume(domain.MustMoney(0, "USD")); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := cl.Consume(domain.MustMoney(100, "EUR")); !errors.Is(err, domain.ErrCurrencyMismatch) {
		t.Fatalf("expected currency mismatch, got %v", err)
	}
	if _, err := cl.Release(domain.MustMoney(100, "USD")); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected release above used to fail, got %v", err)
	}
}

func TestCreditLimitIncreaseByPercent(t *testing.T) {
	cl := domain.InitialCreditLimit()

	increased, err := cl.IncreaseByPercent(50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if increased.Total().Minor() != 150_000 {
		t.Fatalf("expected 1500.00 USD, got %s", increased.Total())
	}

	// Дробный результат округляется half-up.
	odd, err := domain.NewCreditLimit(domain.MustMoney(999, "USD"), domain.MustMoney(0, "USD"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bumped, err := odd.IncreaseByPercent(50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 999 * 1.5 = 1498.5, half-up -> 1499.
	if bumped.Total().Minor() != 1499 {
		t.Fatalf("expected 1499, got %d", bumped.Total().Minor())
	}

	if _, err := cl.IncreaseByPercent(101); !errors.Is(err, domain.ErrInvalidPercentage) {
		t.Fatalf("expected invalid percentage, got %v", err)
	}
	if _, err := cl.IncreaseByPercent(-1); !errors.Is(err, domain.ErrInvalidPercentage) {
		t.Fatalf("expected invalid percentage, got %v", err)
	}
}

func TestCreditLimitHasAvailableCredit(t *testing.T) {
	cl := domain.InitialCreditLimit()

	if !cl.HasAvailableCredit(domain.MustMoney(100_000, "USD")) {
		t.Fatal("full limit must be available")
	}
	if cl.HasAvailableCredit(domain.MustMoney(100_001, "USD")) {
		t.Fatal("amount above limit must not be available")
	}
	if cl.HasAvailableCredit(domain.MustMoney(1, "EUR")) {
		t.Fatal("foreign currency must not be available")
	}
}

func TestCreditLimitIsLowerThan(t *testing.T) {
	base := domain.InitialCreditLimit()
	bigger, err := domain.NewCreditLimit(domain.MustMoney(200_000, "USD"), domain.MustMoney(0, "USD"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	foreign, err := domain.NewCreditLimit(domain.MustMoney(200_000, "EUR"), domain.MustMoney(0, "EUR"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if base.IsLowerThan(base) {
		t.Fatal("limit is not lower than itself")
	}
	if !base.IsLowerThan(bigger) {
		t.Fatal("expected base < bigger")
	}
	if bigger.IsLowerThan(base) {
		t.Fatal("bigger must not be lower than base")
	}
	// Лимит в другой валюте несравним и трактуется как понижение.
	if !foreign.IsLowerThan(base) {
		t.Fatal("foreign currency limit must be treated as lower")
	}
}
