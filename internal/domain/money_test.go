package domain_test

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

func TestNewMoney(t *testing.T) {
	cases := []struct {
		name     string
		minor    int64
		currency string
		wantErr  error
	}{
		{name: "ok", minor: 1050, currency: "USD"},
		{name: "zero ok", minor: 0, currency: "EUR"},
		{name: "lowercase currency normalized", minor: 5, currency: "usd"},
		{name: "negative", minor: -1, currency: "USD", wantErr: domain.ErrInvalidAmount},
		{name: "bad currency", minor: 10, currency: "US", wantErr: domain.ErrInvalidCurrency},
		{name: "empty currency", minor: 10, currency: "", wantErr: domain.ErrInvalidCurrency},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := domain.NewMoney(tc.minor, tc.currency)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Minor() != tc.minor {
				t.Fatalf("expected minor %d, got %d", tc.minor, m.Minor())
			}
			if m.Currency() != "USD" && m.Currency() != "EUR" {
				t.Fatalf("unexpected currency %q", m.Currency())
			}
		})
	}
}

func TestParseMoney(t *testing.T) {
	cases := []struct {
		name      string
		value     string
		currency  string
		wantMinor int64
		wantErr   error
	}{
		{name: "plain", value: "10.50", currency: "USD", wantMinor: 1050},
		{name: "integer", value: "7", currency: "USD", wantMinor: 700},
		{name: "half up rounds up", value: "10.005", currency: "USD", wantMinor: 1001},
		{name: "half up rounds down", value: "10.004", currency: "USD", wantMinor: 1000},
		{name: "zero scale currency", value: "1200", currency: "JPY", wantMinor: 1200},
		{name: "jpy fraction rounds", value: "1200.5", currency: "JPY", wantMinor: 1201},
		{name: "four scale currency", value: "1.00005", currency: "CLF", wantMinor: 10001},
		{name: "short fraction padded", value: "3.5", currency: "USD", wantMinor: 350},
		{name: "negative", value: "-1.00", currency: "USD", wantErr: domain.ErrInvalidAmount},
		{name: "integer part overflows", value: "99999999999999999999", currency: "USD", wantErr: domain.ErrInvalidAmount},
		{name: "scaling overflows", value: "4000000000000000000.00", currency: "USD", wantErr: domain.ErrInvalidAmount},
		{name: "garbage", value: "ten", currency: "USD", wantErr: domain.ErrInvalidAmount},
		{name: "empty", value: "", currency: "USD", wantErr: domain.ErrInvalidAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := domain.ParseMoney(tc.value, tc.currency)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Minor() != tc.wantMinor {
				t.Fatalf("expected minor %d, got %d", tc.wantMinor, m.Minor())
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := domain.MustMoney(1050, "USD")
	b := domain.MustMoney(450, "USD")
	eur := domain.MustMoney(100, "EUR")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Minor() != 1500 {
		t.Fatalf("expected 1500, got %d", sum.Minor())
	}

	diff, err := a.Subtract(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff.Minor() != 600 {
		t.Fatalf("expected 600, got %d", diff.Minor())
	}

	if _, err := b.Subtract(a); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected negative result to be rejected, got %v", err)
	}
	if _, err := a.Add(eur); !errors.Is(err, domain.ErrCurrencyMismatch) {
		t.Fatalf("expected currency mismatch, got %v", err)
	}
	if _, err := a.GreaterThan(eur); !errors.Is(err, domain.ErrCurrencyMismatch) {
		t.Fatalf("expected currency mismatch, got %v", err)
	}

	greater, err := a.GreaterThan(b)
	if err != nil || !greater {
		t.Fatalf("expected a > b, got %v, err %v", greater, err)
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		name string
		m    domain.Money
		want string
	}{
		{name: "usd", m: domain.MustMoney(1050, "USD"), want: "USD 10.50"},
		{name: "cents padded", m: domain.MustMoney(5, "USD"), want: "USD 0.05"},
		{name: "jpy", m: domain.MustMoney(1200, "JPY"), want: "JPY 1200"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.m.String(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
