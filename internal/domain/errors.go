package domain

import "errors"

var (
	// Ошибки конструирования денежных значений.
	ErrInvalidAmount    = errors.New("invalid money amount")
	ErrInvalidCurrency  = errors.New("invalid currency code")
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// Ошибки кредитного лимита.
	ErrInvalidCreditLimit = errors.New("invalid credit limit")
	ErrInvalidPercentage  = errors.New("percentage must be between 0 and 100")
	ErrInsufficientCredit = errors.New("insufficient credit")

	// Ошибки записей истории покупок.
	ErrInvalidOrderID        = errors.New("order id must be between 3 and 50 characters")
	ErrInvalidPurchaseAmount = errors.New("purchase amount must be positive")
	ErrInvalidPurchaseDate   = errors.New("purchase date is out of allowed range")

	// Ошибки value object'ов клиента.
	ErrInvalidEmail        = errors.New("invalid email format")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrInvalidCountry      = errors.New("invalid country code")
	ErrInvalidPersonalInfo = errors.New("invalid personal info")

	// Бизнес-ошибки агрегата Customer.
	ErrInactiveCustomer        = errors.New("customer is not active")
	ErrBlockedCustomer         = errors.New("cannot reactivate blocked customer")
	ErrOutstandingDebt         = errors.New("customer has outstanding debt")
	ErrEmptyReason             = errors.New("reason cannot be empty")
	ErrVipPromotionDenied      = errors.New("customer does not meet vip requirements")
	ErrEmailAlreadyTaken       = errors.New("email already registered")
	ErrCustomerNotFound        = errors.New("customer not found")
	ErrCustomerVersionConflict = errors.New("customer version conflict")

	// Ошибки машины состояний заказа.
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrTrackingRequired     = errors.New("tracking number and carrier are required for shipment")
	ErrInvalidAuditEntry    = errors.New("audit entry actor and action cannot be empty")
	ErrEmptyOrder           = errors.New("order must contain at least one item")
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderVersionConflict = errors.New("order version conflict")

	// Ошибки семейства скидок.
	ErrInvalidDiscount     = errors.New("invalid discount")
	ErrDiscountNotResolved = errors.New("percentage discount is not resolved yet")

	// Ошибки transactional outbox.
	ErrOutboxMessageNotFound = errors.New("outbox message not found")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий при сохранении.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrCustomerVersionConflict) || errors.Is(err, ErrOrderVersionConflict)
}

// IsNotFound проверяет, является ли ошибка отсутствием агрегата в хранилище.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) || errors.Is(err, ErrOrderNotFound)
}

// IsBusinessRuleViolation сообщает, нарушено ли бизнес-правило агрегата.
// Такие ошибки не являются ошибками валидации входных данных и
// транслируются вызывающим слоем в отдельный класс ответов.
func IsBusinessRuleViolation(err error) bool {
	for _, target := range []error{
		ErrInactiveCustomer,
		ErrBlockedCustomer,
		ErrOutstandingDebt,
		ErrVipPromotionDenied,
		ErrInsufficientCredit,
		ErrInvalidTransition,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
