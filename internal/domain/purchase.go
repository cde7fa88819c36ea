package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	minOrderIDLen = 3
	maxOrderIDLen = 50

	// Допустимое окно даты покупки относительно "сейчас":
	// не дальше суток в будущем и не старше десяти лет.
	purchaseFutureSlack = 24 * time.Hour
	purchaseMaxAgeYears = 10
)

// Purchase — неизменяемая запись в книге покупок клиента:
// ссылка на заказ, сумма и момент покупки. Записи только добавляются,
// существующие никогда не изменяются и не удаляются.
type Purchase struct {
	orderID string
	amount  Money
	date    time.Time
}

// NewPurchase создаёт запись о покупке с текущим моментом времени.
func NewPurchase(orderID string, amount Money, now time.Time) (Purchase, error) {
	return ReconstructPurchase(orderID, amount, now, now)
}

// ReconstructPurchase восстанавливает запись из персистентности,
// проверяя все инварианты относительно переданного "сейчас".
func ReconstructPurchase(orderID string, amount Money, date, now time.Time) (Purchase, error) {
	id := strings.TrimSpace(orderID)
	if len(id) < minOrderIDLen || len(id) > maxOrderIDLen {
		return Purchase{}, fmt.Errorf("%w: got %q", ErrInvalidOrderID, orderID)
	}
	if !amount.IsPositive() {
		return Purchase{}, fmt.Errorf("%w: got %s", ErrInvalidPurchaseAmount, amount)
	}
	if date.IsZero() {
		return Purchase{}, fmt.Errorf("%w: date is not set", ErrInvalidPurchaseDate)
	}
	if date.After(now.Add(purchaseFutureSlack)) {
		return Purchase{}, fmt.Errorf("%w: %s is in the future", ErrInvalidPurchaseDate, date.Format(time.RFC3339))
	}
	if date.Before(now.AddDate(-purchaseMaxAgeYears, 0, 0)) {
		return Purchase{}, fmt.Errorf("%w: %s is older than %d years",
			ErrInvalidPurchaseDate, date.Format(time.RFC3339), purchaseMaxAgeYears)
	}
	return Purchase{orderID: id, amount: amount, date: date}, nil
}

// OrderID возвращает идентификатор заказа.
func (p Purchase) OrderID() string { return p.orderID }

// Amount возвращает сумму покупки.
func (p Purchase) Amount() Money { return p.amount }

// Date возвращает момент покупки.
func (p Purchase) Date() time.Time { return p.date }

// String форматирует запись для логов.
func (p Purchase) String() string {
	return fmt.Sprintf("Purchase[orderID=%s, amount=%s, date=%s]",
		p.orderID, p.amount, p.date.Format(time.RFC3339))
}
