package domain

import (
	"fmt"
	"math"
)

// Начальный кредитный лимит нового клиента: 1000.00 USD.
const (
	initialCreditMinor    = 100_000
	initialCreditCurrency = "USD"
)

// CreditLimit — пара «общий лимит / использованный кредит» в одной валюте.
// Инвариант: 0 <= used <= total, total > 0. Значение неизменяемо,
// каждая операция возвращает новый экземпляр.
type CreditLimit struct {
	total Money
	used  Money
}

// NewCreditLimit создаёт лимит с полной проверкой инварианта.
func NewCreditLimit(total, used Money) (CreditLimit, error) {
	if !total.IsPositive() {
		return CreditLimit{}, fmt.Errorf("%w: total must be greater than zero", ErrInvalidCreditLimit)
	}
	if !total.SameCurrency(used) {
		return CreditLimit{}, fmt.Errorf("%w: total is %s but used is %s",
			ErrInvalidCreditLimit, total.Currency(), used.Currency())
	}
	if used.Minor() > total.Minor() {
		return CreditLimit{}, fmt.Errorf("%w: used %s exceeds total %s",
			ErrInvalidCreditLimit, used, total)
	}
	return CreditLimit{total: total, used: used}, nil
}

// InitialCreditLimit возвращает стартовый лимит нового клиента.
func InitialCreditLimit() CreditLimit {
	total := MustMoney(initialCreditMinor, initialCreditCurrency)
	return CreditLimit{total: total, used: MustMoney(0, initialCreditCurrency)}
}

// Total возвращает общий лимит.
func (cl CreditLimit) Total() Money { return cl.total }

// Used возвращает использованную часть лимита.
func (cl CreditLimit) Used() Money { return cl.used }

// Available возвращает доступный кредит (total - used).
func (cl CreditLimit) Available() Money {
	available, _ := cl.total.Subtract(cl.used)
	return available
}

// Consume списывает сумму из доступного кредита и возвращает новый лимит.
func (cl CreditLimit) Consume(amount Money) (CreditLimit, error) {
	if err := cl.total.requireSameCurrency(amount); err != nil {
		return CreditLimit{}, err
	}
	if !amount.IsPositive() {
		return CreditLimit{}, fmt.Errorf("%w: consumption amount must be positive", ErrInvalidAmount)
	}
	if !cl.HasAvailableCredit(amount) {
		return CreditLimit{}, fmt.Errorf("%w: available %s, requested %s",
			ErrInsufficientCredit, cl.Available(), amount)
	}
	newUsed, err := cl.used.Add(amount)
	if err != nil {
		return CreditLimit{}, err
	}
	return NewCreditLimit(cl.total, newUsed)
}

// Release возвращает сумму в доступный кредит.
func (cl CreditLimit) Release(amount Money) (CreditLimit, error) {
	if err := cl.total.requireSameCurrency(amount); err != nil {
		return CreditLimit{}, err
	}
	if !amount.IsPositive() {
		return CreditLimit{}, fmt.Errorf("%w: release amount must be positive", ErrInvalidAmount)
	}
	if amount.Minor() > cl.used.Minor() {
		return CreditLimit{}, fmt.Errorf("%w: cannot release %s when only %s is used",
			ErrInvalidAmount, amount, cl.used)
	}
	newUsed, err := cl.used.Subtract(amount)
	if err != nil {
		return CreditLimit{}, err
	}
	return NewCreditLimit(cl.total, newUsed)
}

// IncreaseByPercent повышает общий лимит на pct процентов (0..100)
// с округлением half-up до масштаба валюты.
func (cl CreditLimit) IncreaseByPercent(pct float64) (CreditLimit, error) {
	if math.IsNaN(pct) || pct < 0 || pct > 100 {
		return CreditLimit{}, fmt.Errorf("%w: got %v", ErrInvalidPercentage, pct)
	}
	pctHundredths := int64(math.Round(pct * 100))
	newTotal := cl.total.ScaleByPercent(pctHundredths)
	return NewCreditLimit(newTotal, cl.used)
}

// HasAvailableCredit сообщает, хватает ли доступного кредита на сумму.
// Суммы в другой валюте считаются недоступными.
func (cl CreditLimit) HasAvailableCredit(amount Money) bool {
	if !cl.total.SameCurrency(amount) {
		return false
	}
	return cl.used.Minor()+amount.Minor() <= cl.total.Minor()
}

// HasUsedCredit сообщает, есть ли непогашенная задолженность.
func (cl CreditLimit) HasUsedCredit() bool { return !cl.used.IsZero() }

// IsLowerThan сравнивает только общие лимиты. Лимит в другой валюте
// считается несравнимым и трактуется как понижение.
func (cl CreditLimit) IsLowerThan(other CreditLimit) bool {
	if !cl.total.SameCurrency(other.total) {
		return true
	}
	return cl.total.Minor() < other.total.Minor()
}

// String форматирует лимит для логов и сообщений об ошибках.
func (cl CreditLimit) String() string {
	return fmt.Sprintf("CreditLimit[total=%s, used=%s, available=%s]", cl.total, cl.used, cl.Available())
}
