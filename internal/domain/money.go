package domain

import (
	"fmt"
	"strings"
)

// Money представляет денежную сумму в минимальных единицах валюты
// (центы, копейки). Значение неизменяемо: арифметические операции
// возвращают новые экземпляры. Отрицательные суммы запрещены.
type Money struct {
	minor    int64
	currency string
}

// CurrencyScale возвращает число десятичных знаков для валюты.
// Большинство валют используют 2 знака; исключения перечислены явно.
func CurrencyScale(currency string) int {
	switch currency {
	case "JPY", "KRW", "VND":
		return 0
	case "CLF", "UYW":
		return 4
	default:
		return 2
	}
}

// NewMoney создаёт Money из суммы в минимальных единицах.
func NewMoney(minor int64, currency string) (Money, error) {
	code, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	if minor < 0 {
		return Money{}, fmt.Errorf("%w: amount cannot be negative", ErrInvalidAmount)
	}
	return Money{minor: minor, currency: code}, nil
}

// MustMoney — вариант NewMoney для констант и тестов; паникует при ошибке.
func MustMoney(minor int64, currency string) Money {
	m, err := NewMoney(minor, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney разбирает десятичную строку ("10.50") в Money,
// округляя лишние знаки по правилу half-up до масштаба валюты.
func ParseMoney(value, currency string) (Money, error) {
	code, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}

	s := strings.TrimSpace(value)
	if s == "" {
		return Money{}, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	if strings.HasPrefix(s, "-") {
		return Money{}, fmt.Errorf("%w: amount cannot be negative", ErrInvalidAmount)
	}
	s = strings.TrimPrefix(s, "+")

	intPart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart = s[:idx]
		fracPart = s[idx+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return Money{}, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, value)
	}

	scale := CurrencyScale(code)
	minor := int64(0)
	for i := 0; i < len(intPart); i++ {
		d := int64(intPart[i] - '0')
		if minor > (1<<62)/10 {
			return Money{}, fmt.Errorf("%w: amount overflows", ErrInvalidAmount)
		}
		minor = minor*10 + d
	}
	for i := 0; i < scale; i++ {
		d := int64(0)
		if i < len(fracPart) {
			d = int64(fracPart[i] - '0')
		}
		if minor > (1<<62)/10 {
			return Money{}, fmt.Errorf("%w: amount overflows", ErrInvalidAmount)
		}
		minor = minor*10 + d
	}
	// Округление half-up по первому отбрасываемому знаку.
	if len(fracPart) > scale && fracPart[scale]-'0' >= 5 {
		minor++
	}

	return Money{minor: minor, currency: code}, nil
}

// ZeroMoney возвращает нулевую сумму в заданной валюте.
func ZeroMoney(currency string) (Money, error) {
	return NewMoney(0, currency)
}

// Minor возвращает сумму в минимальных единицах валюты.
func (m Money) Minor() int64 { return m.minor }

// Currency возвращает ISO-код валюты.
func (m Money) Currency() string { return m.currency }

// Add возвращает сумму двух значений одной валюты.
func (m Money) Add(other Money) (Money, error) {
	if err := m.requireSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{minor: m.minor + other.minor, currency: m.currency}, nil
}

// Subtract возвращает разность; результат не может быть отрицательным.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.requireSameCurrency(other); err != nil {
		return Money{}, err
	}
	if other.minor > m.minor {
		return Money{}, fmt.Errorf("%w: subtraction result would be negative", ErrInvalidAmount)
	}
	return Money{minor: m.minor - other.minor, currency: m.currency}, nil
}

// GreaterThan сообщает, больше ли сумма другой суммы той же валюты.
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.requireSameCurrency(other); err != nil {
		return false, err
	}
	return m.minor > other.minor, nil
}

// LessThan сообщает, меньше ли сумма другой суммы той же валюты.
func (m Money) LessThan(other Money) (bool, error) {
	if err := m.requireSameCurrency(other); err != nil {
		return false, err
	}
	return m.minor < other.minor, nil
}

// IsZero сообщает, равна ли сумма нулю.
func (m Money) IsZero() bool { return m.minor == 0 }

// IsPositive сообщает, строго ли сумма больше нуля.
func (m Money) IsPositive() bool { return m.minor > 0 }

// SameCurrency сообщает, совпадают ли валюты двух сумм.
func (m Money) SameCurrency(other Money) bool { return m.currency == other.currency }

// ScaleByPercent возвращает сумму, умноженную на (1 + pct/100),
// с округлением half-up. Используется при повышении кредитного лимита.
func (m Money) ScaleByPercent(pctHundredths int64) Money {
	// factor = (10000 + pctHundredths) / 10000, округление half-up.
	num := m.minor * (10000 + pctHundredths)
	return Money{minor: (num + 5000) / 10000, currency: m.currency}
}

// String форматирует сумму как "USD 10.50" с масштабом валюты.
func (m Money) String() string {
	if m.currency == "" {
		return "0"
	}
	scale := CurrencyScale(m.currency)
	if scale == 0 {
		return fmt.Sprintf("%s %d", m.currency, m.minor)
	}
	pow := int64(1)
	for i := 0; i < scale; i++ {
		pow *= 10
	}
	return fmt.Sprintf("%s %d.%0*d", m.currency, m.minor/pow, scale, m.minor%pow)
}

func (m Money) requireSameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}

func normalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
		}
	}
	return code, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
