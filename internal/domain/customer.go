package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CustomerType — коммерческая категория клиента.
type CustomerType string

const (
	CustomerTypeRegular CustomerType = "regular"
	CustomerTypeVip     CustomerType = "vip"
)

// CustomerStatus — статус учётной записи клиента.
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
	CustomerStatusBlocked  CustomerStatus = "blocked"
)

// Условия повышения до VIP: не менее десяти покупок и суммарный
// объём строго больше 5000.00 USD.
const (
	vipMinPurchases  = 10
	vipMinTotalMinor = 500_000
	vipCreditBonus   = 50.0
)

// ParseCustomerType возвращает категорию по строковой метке.
func ParseCustomerType(value string) (CustomerType, error) {
	switch t := CustomerType(strings.ToLower(strings.TrimSpace(value))); t {
	case CustomerTypeRegular, CustomerTypeVip:
		return t, nil
	default:
		return "", fmt.Errorf("unknown customer type %q", value)
	}
}

// ParseCustomerStatus возвращает статус по строковой метке.
func ParseCustomerStatus(value string) (CustomerStatus, error) {
	switch s := CustomerStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case CustomerStatusActive, CustomerStatusInactive, CustomerStatusBlocked:
		return s, nil
	default:
		return "", fmt.Errorf("unknown customer status %q", value)
	}
}

// Customer — корень агрегата клиента. Все инварианты проверяются
// внутри методов; прямой доступ к полям закрыт. Мутирующие методы
// принимают момент времени явно и возвращают доменные события,
// публикация которых остаётся за вызывающим слоем.
type Customer struct {
	id                 string
	personalInfo       PersonalInfo
	email              Email
	address            Address
	creditLimit        CreditLimit
	customerType       CustomerType
	status             CustomerStatus
	deactivationReason string
	purchases          []Purchase
	version            int64
	createdAt          time.Time
	updatedAt          time.Time
}

// NewCustomer создаёт активного клиента категории regular
// со стартовым кредитным лимитом и пустой историей покупок.
func NewCustomer(info PersonalInfo, email Email, address Address, now time.Time) (*Customer, error) {
	if info.IsZero() {
		return nil, fmt.Errorf("%w: personal info is required", ErrInvalidPersonalInfo)
	}
	if email.IsZero() {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidEmail)
	}
	if address.IsZero() {
		return nil, fmt.Errorf("%w: address is required", ErrInvalidAddress)
	}
	return &Customer{
		id:           uuid.NewString(),
		personalInfo: info,
		email:        email,
		address:      address,
		creditLimit:  InitialCreditLimit(),
		customerType: CustomerTypeRegular,
		status:       CustomerStatusActive,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// CustomerSnapshot — плоское представление агрегата для персистентности.
type CustomerSnapshot struct {
	ID                 string
	PersonalInfo       PersonalInfo
	Email              Email
	Address            Address
	CreditLimit        CreditLimit
	Type               CustomerType
	Status             CustomerStatus
	DeactivationReason string
	Purchases          []Purchase
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ReconstructCustomer восстанавливает агрегат из снимка с проверкой
// всех инвариантов. Снимок с нарушенным инвариантом означает порчу
// данных в хранилище и приводит к ошибке, а не к частично валидному
// агрегату.
func ReconstructCustomer(snap CustomerSnapshot) (*Customer, error) {
	if strings.TrimSpace(snap.ID) == "" {
		return nil, fmt.Errorf("%w: empty customer id", ErrCustomerNotFound)
	}
	if snap.PersonalInfo.IsZero() {
		return nil, fmt.Errorf("%w: personal info is required", ErrInvalidPersonalInfo)
	}
	if snap.Email.IsZero() {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidEmail)
	}
	if snap.Address.IsZero() {
		return nil, fmt.Errorf("%w: address is required", ErrInvalidAddress)
	}
	if _, err := NewCreditLimit(snap.CreditLimit.Total(), snap.CreditLimit.Used()); err != nil {
		return nil, err
	}
	if _, err := ParseCustomerType(string(snap.Type)); err != nil {
		return nil, err
	}
	if _, err := ParseCustomerStatus(string(snap.Status)); err != nil {
		return nil, err
	}
	purchases := make([]Purchase, len(snap.Purchases))
	copy(purchases, snap.Purchases)

	return &Customer{
		id:                 snap.ID,
		personalInfo:       snap.PersonalInfo,
		email:              snap.Email,
		address:            snap.Address,
		creditLimit:        snap.CreditLimit,
		customerType:       snap.Type,
		status:             snap.Status,
		deactivationReason: snap.DeactivationReason,
		purchases:          purchases,
		version:            snap.Version,
		createdAt:          snap.CreatedAt,
		updatedAt:          snap.UpdatedAt,
	}, nil
}

// Snapshot возвращает плоское представление агрегата для сохранения.
func (c *Customer) Snapshot() CustomerSnapshot {
	purchases := make([]Purchase, len(c.purchases))
	copy(purchases, c.purchases)
	return CustomerSnapshot{
		ID:                 c.id,
		PersonalInfo:       c.personalInfo,
		Email:              c.email,
		Address:            c.address,
		CreditLimit:        c.creditLimit,
		Type:               c.customerType,
		Status:             c.status,
		DeactivationReason: c.deactivationReason,
		Purchases:          purchases,
		Version:            c.version,
		CreatedAt:          c.createdAt,
		UpdatedAt:          c.updatedAt,
	}
}

// ID возвращает идентификатор клиента.
func (c *Customer) ID() string { return c.id }

// PersonalInfo возвращает персональные данные.
func (c *Customer) PersonalInfo() PersonalInfo { return c.personalInfo }

// Email возвращает адрес электронной почты.
func (c *Customer) Email() Email { return c.email }

// Address возвращает почтовый адрес.
func (c *Customer) Address() Address { return c.address }

// CreditLimit возвращает текущий кредитный лимит.
func (c *Customer) CreditLimit() CreditLimit { return c.creditLimit }

// Type возвращает категорию клиента.
func (c *Customer) Type() CustomerType { return c.customerType }

// Status возвращает статус учётной записи.
func (c *Customer) Status() CustomerStatus { return c.status }

// DeactivationReason возвращает причину деактивации, если клиент неактивен.
func (c *Customer) DeactivationReason() string { return c.deactivationReason }

// Purchases возвращает копию истории покупок в порядке регистрации.
func (c *Customer) Purchases() []Purchase {
	purchases := make([]Purchase, len(c.purchases))
	copy(purchases, c.purchases)
	return purchases
}

// TotalPurchases возвращает число покупок.
func (c *Customer) TotalPurchases() int { return len(c.purchases) }

// Version возвращает версию агрегата для оптимистической блокировки.
func (c *Customer) Version() int64 { return c.version }

// CreatedAt возвращает момент создания.
func (c *Customer) CreatedAt() time.Time { return c.createdAt }

// UpdatedAt возвращает момент последнего изменения.
func (c *Customer) UpdatedAt() time.Time { return c.updatedAt }

// IsActive сообщает, активна ли учётная запись.
func (c *Customer) IsActive() bool { return c.status == CustomerStatusActive }

// IsVip сообщает, имеет ли клиент категорию VIP.
func (c *Customer) IsVip() bool { return c.customerType == CustomerTypeVip }

// AvailableCredit возвращает доступный кредит.
func (c *Customer) AvailableCredit() Money { return c.creditLimit.Available() }

// TotalPurchaseAmount суммирует все покупки. Возвращает ошибку,
// если в истории встречаются разные валюты.
func (c *Customer) TotalPurchaseAmount() (Money, error) {
	if len(c.purchases) == 0 {
		return ZeroMoney(c.creditLimit.Total().Currency())
	}
	total := c.purchases[0].Amount()
	for _, p := range c.purchases[1:] {
		next, err := total.Add(p.Amount())
		if err != nil {
			return Money{}, err
		}
		total = next
	}
	return total, nil
}

// CanMakePurchase сообщает, может ли клиент совершить покупку на сумму:
// учётная запись активна и доступного кредита достаточно.
func (c *Customer) CanMakePurchase(amount Money) bool {
	return c.IsActive() && c.creditLimit.HasAvailableCredit(amount)
}

// RegisterPurchase атомарно добавляет покупку в историю и списывает
// её сумму из кредитного лимита. При любой ошибке агрегат не меняется.
func (c *Customer) RegisterPurchase(orderID string, amount Money, now time.Time) error {
	if !c.CanMakePurchase(amount) {
		return fmt.Errorf("%w: available %s, requested %s",
			ErrInsufficientCredit, c.creditLimit.Available(), amount)
	}
	purchase, err := NewPurchase(orderID, amount, now)
	if err != nil {
		return err
	}
	newLimit, err := c.creditLimit.Consume(amount)
	if err != nil {
		return err
	}
	c.purchases = append(c.purchases, purchase)
	c.creditLimit = newLimit
	c.touch(now)
	return nil
}

// ReleaseCredit возвращает сумму в доступный кредит, например при
// отмене или возврате заказа.
func (c *Customer) ReleaseCredit(amount Money, now time.Time) error {
	newLimit, err := c.creditLimit.Release(amount)
	if err != nil {
		return err
	}
	c.creditLimit = newLimit
	c.touch(now)
	return nil
}

// UpdateCreditLimit заменяет кредитный лимит. Понижение лимита
// при непогашенной задолженности запрещено.
func (c *Customer) UpdateCreditLimit(newLimit CreditLimit, now time.Time) error {
	if !c.IsActive() {
		return fmt.Errorf("%w: cannot update credit limit", ErrInactiveCustomer)
	}
	if newLimit.IsLowerThan(c.creditLimit) && c.creditLimit.HasUsedCredit() {
		return fmt.Errorf("%w: cannot reduce credit limit while debt is outstanding (%s)",
			ErrInvalidCreditLimit, c.creditLimit.Used())
	}
	c.creditLimit = newLimit
	c.touch(now)
	return nil
}

// MeetsVipRequirements сообщает, выполнены ли условия повышения:
// не менее десяти покупок и суммарный объём строго больше 5000.00 USD.
func (c *Customer) MeetsVipRequirements() bool {
	if len(c.purchases) < vipMinPurchases {
		return false
	}
	total, err := c.TotalPurchaseAmount()
	if err != nil {
		return false
	}
	threshold := MustMoney(vipMinTotalMinor, "USD")
	greater, err := total.GreaterThan(threshold)
	if err != nil {
		return false
	}
	return greater
}

// PromoteToVip повышает клиента до VIP, увеличивает общий кредитный
// лимит на 50% и возвращает событие о повышении. Повторное повышение
// ничего не делает и события не эмитирует.
func (c *Customer) PromoteToVip(now time.Time) ([]DomainEvent, error) {
	if !c.IsActive() {
		return nil, fmt.Errorf("%w: cannot promote to vip", ErrInactiveCustomer)
	}
	if c.IsVip() {
		return nil, nil
	}
	if !c.MeetsVipRequirements() {
		return nil, fmt.Errorf("%w: need at least %d purchases totalling more than %s",
			ErrVipPromotionDenied, vipMinPurchases, MustMoney(vipMinTotalMinor, "USD"))
	}
	newLimit, err := c.creditLimit.IncreaseByPercent(vipCreditBonus)
	if err != nil {
		return nil, err
	}
	c.customerType = CustomerTypeVip
	c.creditLimit = newLimit
	c.touch(now)
	return []DomainEvent{NewCustomerPromotedToVip(c.id, now)}, nil
}

// UpdateAddress заменяет почтовый адрес.
func (c *Customer) UpdateAddress(address Address, now time.Time) error {
	if !c.IsActive() {
		return fmt.Errorf("%w: cannot update address", ErrInactiveCustomer)
	}
	if address.IsZero() {
		return fmt.Errorf("%w: address is required", ErrInvalidAddress)
	}
	c.address = address
	c.touch(now)
	return nil
}

// UpdatePersonalInfo заменяет персональные данные.
// Разрешено в любом статусе: клиент вправе исправить свои данные
// и после деактивации.
func (c *Customer) UpdatePersonalInfo(info PersonalInfo, now time.Time) error {
	if info.IsZero() {
		return fmt.Errorf("%w: personal info is required", ErrInvalidPersonalInfo)
	}
	c.personalInfo = info
	c.touch(now)
	return nil
}

// Deactivate деактивирует учётную запись с обязательной причиной.
// Деактивация с непогашенной задолженностью запрещена.
func (c *Customer) Deactivate(reason string, now time.Time) error {
	r := strings.TrimSpace(reason)
	if r == "" {
		return fmt.Errorf("%w: deactivation requires a reason", ErrEmptyReason)
	}
	if c.creditLimit.HasUsedCredit() {
		return fmt.Errorf("%w: used credit is %s", ErrOutstandingDebt, c.creditLimit.Used())
	}
	c.status = CustomerStatusInactive
	c.deactivationReason = r
	c.touch(now)
	return nil
}

// Reactivate возвращает неактивную учётную запись в активный статус.
// Заблокированного клиента реактивировать нельзя.
func (c *Customer) Reactivate(now time.Time) error {
	if c.status == CustomerStatusBlocked {
		return ErrBlockedCustomer
	}
	c.status = CustomerStatusActive
	c.deactivationReason = ""
	c.touch(now)
	return nil
}

func (c *Customer) touch(now time.Time) {
	c.updatedAt = now
}
