package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	minProductNameLen = 2
	maxProductNameLen = 100
)

// OrderItem — позиция заказа: товар, количество и цена за единицу.
type OrderItem struct {
	productID string
	name      string
	quantity  int
	unitPrice Money
}

// NewOrderItem валидирует позицию заказа.
func NewOrderItem(productID, name string, quantity int, unitPrice Money) (OrderItem, error) {
	pid := strings.TrimSpace(productID)
	if pid == "" {
		return OrderItem{}, fmt.Errorf("%w: product id is required", ErrEmptyOrder)
	}
	n := strings.TrimSpace(name)
	if len(n) < minProductNameLen || len(n) > maxProductNameLen {
		return OrderItem{}, fmt.Errorf("%w: product name must be between %d and %d characters",
			ErrEmptyOrder, minProductNameLen, maxProductNameLen)
	}
	if quantity < 1 {
		return OrderItem{}, fmt.Errorf("%w: quantity must be at least 1", ErrEmptyOrder)
	}
	if !unitPrice.IsPositive() {
		return OrderItem{}, fmt.Errorf("%w: unit price must be positive", ErrInvalidAmount)
	}
	return OrderItem{productID: pid, name: n, quantity: quantity, unitPrice: unitPrice}, nil
}

// ProductID возвращает идентификатор товара.
func (i OrderItem) ProductID() string { return i.productID }

// Name возвращает название товара.
func (i OrderItem) Name() string { return i.name }

// Quantity возвращает количество.
func (i OrderItem) Quantity() int { return i.quantity }

// UnitPrice возвращает цену за единицу.
func (i OrderItem) UnitPrice() Money { return i.unitPrice }

// Subtotal возвращает стоимость позиции (цена * количество).
func (i OrderItem) Subtotal() Money {
	return Money{minor: i.unitPrice.minor * int64(i.quantity), currency: i.unitPrice.currency}
}

// OrderPricing — расчёт стоимости заказа: подытог, суммарная скидка,
// налог и итог. Значение пересчитывается заново при каждом изменении
// состава заказа или применении скидки.
type OrderPricing struct {
	Subtotal      Money
	DiscountTotal Money
	TaxTotal      Money
	Final         Money
}

// Order — корень агрегата заказа. Состав заказа изменяем только
// в состоянии draft; жизненный цикл делегируется машине состояний
// OrderStatus. Валюта заказа фиксируется при создании.
type Order struct {
	id         string
	customerID string
	currency   string
	items      []OrderItem
	discounts  []Discount
	pricing    OrderPricing
	status     OrderStatus
	taxRateBps int64
	version    int64
	createdAt  time.Time
	updatedAt  time.Time
}

// NewOrder создаёт заказ в состоянии draft без позиций.
// Налоговая ставка задаётся в сотых долях процента (750 = 7.5%).
func NewOrder(customerID, currency string, taxRateBps int64, now time.Time) (*Order, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrCustomerNotFound)
	}
	code, err := normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	if taxRateBps < 0 || taxRateBps > 10000 {
		return nil, fmt.Errorf("%w: tax rate out of range", ErrInvalidPercentage)
	}
	o := &Order{
		id:         uuid.NewString(),
		customerID: customerID,
		currency:   code,
		status:     InitialOrderStatus(now),
		taxRateBps: taxRateBps,
		createdAt:  now,
		updatedAt:  now,
	}
	o.recalculate()
	return o, nil
}

// OrderSnapshot — плоское представление заказа для персистентности.
type OrderSnapshot struct {
	ID           string
	CustomerID   string
	Currency     string
	Items        []OrderItem
	Discounts    []Discount
	State        OrderState
	Trail        AuditTrail
	Shipment     ShipmentInfo
	DeliveredAt  time.Time
	CancelReason string
	TaxRateBps   int64
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReconstructOrder восстанавливает заказ из снимка с проверкой инвариантов.
func ReconstructOrder(snap OrderSnapshot) (*Order, error) {
	if strings.TrimSpace(snap.ID) == "" {
		return nil, fmt.Errorf("%w: empty order id", ErrOrderNotFound)
	}
	if strings.TrimSpace(snap.CustomerID) == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrCustomerNotFound)
	}
	code, err := normalizeCurrency(snap.Currency)
	if err != nil {
		return nil, err
	}
	status, err := ReconstructOrderStatus(snap.State, snap.Trail, snap.Shipment, snap.DeliveredAt, snap.CancelReason)
	if err != nil {
		return nil, err
	}
	items := make([]OrderItem, len(snap.Items))
	copy(items, snap.Items)
	discounts := make([]Discount, len(snap.Discounts))
	copy(discounts, snap.Discounts)

	o := &Order{
		id:         snap.ID,
		customerID: snap.CustomerID,
		currency:   code,
		items:      items,
		discounts:  discounts,
		status:     status,
		taxRateBps: snap.TaxRateBps,
		version:    snap.Version,
		createdAt:  snap.CreatedAt,
		updatedAt:  snap.UpdatedAt,
	}
	o.recalculate()
	return o, nil
}

// Snapshot возвращает плоское представление заказа для сохранения.
func (o *Order) Snapshot() OrderSnapshot {
	items := make([]OrderItem, len(o.items))
	copy(items, o.items)
	discounts := make([]Discount, len(o.discounts))
	copy(discounts, o.discounts)
	shipment, _ := o.status.Shipment()
	deliveredAt, _ := o.status.DeliveredAt()
	cancelReason, _ := o.status.CancellationReason()
	return OrderSnapshot{
		ID:           o.id,
		CustomerID:   o.customerID,
		Currency:     o.currency,
		Items:        items,
		Discounts:    discounts,
		State:        o.status.State(),
		Trail:        o.status.Trail(),
		Shipment:     shipment,
		DeliveredAt:  deliveredAt,
		CancelReason: cancelReason,
		TaxRateBps:   o.taxRateBps,
		Version:      o.version,
		CreatedAt:    o.createdAt,
		UpdatedAt:    o.updatedAt,
	}
}

// ID возвращает идентификатор заказа.
func (o *Order) ID() string { return o.id }

// CustomerID возвращает идентификатор клиента.
func (o *Order) CustomerID() string { return o.customerID }

// Currency возвращает валюту заказа.
func (o *Order) Currency() string { return o.currency }

// Items возвращает копию позиций заказа.
func (o *Order) Items() []OrderItem {
	items := make([]OrderItem, len(o.items))
	copy(items, o.items)
	return items
}

// Discounts возвращает копию применённых скидок.
func (o *Order) Discounts() []Discount {
	discounts := make([]Discount, len(o.discounts))
	copy(discounts, o.discounts)
	return discounts
}

// Pricing возвращает текущий расчёт стоимости.
func (o *Order) Pricing() OrderPricing { return o.pricing }

// Status возвращает текущее состояние жизненного цикла.
func (o *Order) Status() OrderStatus { return o.status }

// State возвращает метку текущего состояния.
func (o *Order) State() OrderState { return o.status.State() }

// Version возвращает версию агрегата для оптимистической блокировки.
func (o *Order) Version() int64 { return o.version }

// CreatedAt возвращает момент создания.
func (o *Order) CreatedAt() time.Time { return o.createdAt }

// UpdatedAt возвращает момент последнего изменения.
func (o *Order) UpdatedAt() time.Time { return o.updatedAt }

// AddItem добавляет позицию и пересчитывает стоимость.
// Состав заказа изменяем только в состоянии draft.
func (o *Order) AddItem(item OrderItem, now time.Time) error {
	if o.status.State() != OrderStateDraft {
		return fmt.Errorf("%w: items can only be added in draft state, current is %s",
			ErrInvalidTransition, o.status.State())
	}
	if item.unitPrice.Currency() != o.currency {
		return fmt.Errorf("%w: order is %s but item is %s",
			ErrCurrencyMismatch, o.currency, item.unitPrice.Currency())
	}
	o.items = append(o.items, item)
	o.recalculate()
	o.touch(now)
	return nil
}

// ApplyDiscount разрешает скидку относительно подытога заказа,
// добавляет её и пересчитывает стоимость. Скидки применяются
// только в состоянии draft.
func (o *Order) ApplyDiscount(d Discount, now time.Time) error {
	if o.status.State() != OrderStateDraft {
		return fmt.Errorf("%w: discounts can only be applied in draft state, current is %s",
			ErrInvalidTransition, o.status.State())
	}
	if len(o.items) == 0 {
		return fmt.Errorf("%w: cannot discount an empty order", ErrEmptyOrder)
	}
	resolved, err := d.ResolveAgainst(o.pricing.Subtotal)
	if err != nil {
		return err
	}
	amount, err := resolved.Amount()
	if err != nil {
		return err
	}
	if !amount.SameCurrency(o.pricing.Subtotal) {
		return fmt.Errorf("%w: order is %s but discount is %s",
			ErrCurrencyMismatch, o.currency, amount.Currency())
	}
	o.discounts = append(o.discounts, resolved)
	o.recalculate()
	o.touch(now)
	return nil
}

// Confirm подтверждает заказ. Пустой заказ подтвердить нельзя.
func (o *Order) Confirm(reason string, now time.Time) error {
	if len(o.items) == 0 {
		return ErrEmptyOrder
	}
	return o.transition(func() (OrderStatus, error) {
		return o.status.Confirm(reason, now)
	}, now)
}

// Pay отмечает получение оплаты.
func (o *Order) Pay(reason string, now time.Time) error {
	return o.transition(func() (OrderStatus, error) {
		return o.status.Pay(reason, now)
	}, now)
}

// Ship отмечает передачу заказа перевозчику.
func (o *Order) Ship(info ShipmentInfo, reason string, now time.Time) error {
	return o.transition(func() (OrderStatus, error) {
		return o.status.Ship(info, reason, now)
	}, now)
}

// Deliver отмечает доставку заказа.
func (o *Order) Deliver(reason string, now time.Time) error {
	return o.transition(func() (OrderStatus, error) {
		return o.status.Deliver(reason, now)
	}, now)
}

// Cancel отменяет заказ с обязательной причиной.
func (o *Order) Cancel(reason string, now time.Time) error {
	return o.transition(func() (OrderStatus, error) {
		return o.status.Cancel(reason, now)
	}, now)
}

func (o *Order) transition(step func() (OrderStatus, error), now time.Time) error {
	next, err := step()
	if err != nil {
		return err
	}
	o.status = next
	o.touch(now)
	return nil
}

// recalculate пересчитывает стоимость заказа: подытог по позициям,
// суммарная скидка (не больше подытога), налог от облагаемой базы
// с округлением half-up, итог.
func (o *Order) recalculate() {
	subtotal := int64(0)
	for _, item := range o.items {
		subtotal += item.unitPrice.minor * int64(item.quantity)
	}
	discountTotal := int64(0)
	for _, d := range o.discounts {
		if amount, err := d.Amount(); err == nil {
			discountTotal += amount.minor
		}
	}
	if discountTotal > subtotal {
		discountTotal = subtotal
	}
	taxable := subtotal - discountTotal
	tax := (taxable*o.taxRateBps + 5000) / 10000

	o.pricing = OrderPricing{
		Subtotal:      Money{minor: subtotal, currency: o.currency},
		DiscountTotal: Money{minor: discountTotal, currency: o.currency},
		TaxTotal:      Money{minor: tax, currency: o.currency},
		Final:         Money{minor: taxable + tax, currency: o.currency},
	}
}

func (o *Order) touch(now time.Time) {
	o.updatedAt = now
}
