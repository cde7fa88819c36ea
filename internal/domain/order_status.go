package domain

import (
	"fmt"
	"strings"
	"time"
)

// OrderState описывает метку состояния заказа.
type OrderState string

const (
	// OrderStateDraft — заказ создан, но ещё не подтверждён.
	OrderStateDraft OrderState = "draft"
	// OrderStateConfirmed — заказ подтверждён клиентом.
	OrderStateConfirmed OrderState = "confirmed"
	// OrderStatePaid — оплата заказа получена.
	OrderStatePaid OrderState = "paid"
	// OrderStateShipped — заказ передан перевозчику.
	OrderStateShipped OrderState = "shipped"
	// OrderStateDelivered — заказ доставлен; терминальное состояние.
	OrderStateDelivered OrderState = "delivered"
	// OrderStateCancelled — заказ отменён; терминальное состояние.
	OrderStateCancelled OrderState = "cancelled"
)

// Статическая таблица допустимых переходов.
var orderStateTransitions = map[OrderState][]OrderState{
	OrderStateDraft:     {OrderStateConfirmed},
	OrderStateConfirmed: {OrderStatePaid, OrderStateCancelled},
	OrderStatePaid:      {OrderStateShipped, OrderStateCancelled},
	OrderStateShipped:   {OrderStateDelivered, OrderStateCancelled},
	OrderStateDelivered: {},
	OrderStateCancelled: {},
}

// ParseOrderState возвращает состояние по его строковой метке.
func ParseOrderState(value string) (OrderState, error) {
	state := OrderState(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := orderStateTransitions[state]; !ok {
		return "", fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, value)
	}
	return state, nil
}

// CanTransitionTo сообщает, разрешён ли переход таблицей.
func (s OrderState) CanTransitionTo(target OrderState) bool {
	for _, allowed := range orderStateTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsFinal сообщает, является ли состояние терминальным.
func (s OrderState) IsFinal() bool {
	return s == OrderStateDelivered || s == OrderStateCancelled
}

// ShipmentInfo — данные отгрузки, обязательные для состояния shipped.
type ShipmentInfo struct {
	TrackingNumber string
	Carrier        string
}

// NewShipmentInfo валидирует номер отслеживания и перевозчика.
func NewShipmentInfo(trackingNumber, carrier string) (ShipmentInfo, error) {
	tn := strings.TrimSpace(trackingNumber)
	c := strings.TrimSpace(carrier)
	if tn == "" || c == "" {
		return ShipmentInfo{}, ErrTrackingRequired
	}
	return ShipmentInfo{TrackingNumber: tn, Carrier: c}, nil
}

// OrderStatus — текущее состояние заказа вместе с журналом переходов
// и полезной нагрузкой состояния. Значение неизменяемо: каждый переход
// возвращает новый OrderStatus, прежний остаётся корректным снимком.
type OrderStatus struct {
	state        OrderState
	trail        AuditTrail
	shipment     ShipmentInfo
	deliveredAt  time.Time
	cancelReason string
}

// InitialOrderStatus возвращает статус нового заказа в состоянии draft
// с первой записью журнала.
func InitialOrderStatus(now time.Time) OrderStatus {
	entry, _ := NewAuditEntry(now, AuditActorSystem, "Order created in draft state")
	return OrderStatus{
		state: OrderStateDraft,
		trail: NewAuditTrail().Append(entry),
	}
}

// ReconstructOrderStatus восстанавливает статус из персистентности,
// проверяя полезную нагрузку состояния.
func ReconstructOrderStatus(state OrderState, trail AuditTrail, shipment ShipmentInfo, deliveredAt time.Time, cancelReason string) (OrderStatus, error) {
	if _, ok := orderStateTransitions[state]; !ok {
		return OrderStatus{}, fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, state)
	}
	status := OrderStatus{state: state, trail: trail}
	switch state {
	case OrderStateShipped:
		validated, err := NewShipmentInfo(shipment.TrackingNumber, shipment.Carrier)
		if err != nil {
			return OrderStatus{}, err
		}
		status.shipment = validated
	case OrderStateDelivered:
		if deliveredAt.IsZero() {
			return OrderStatus{}, fmt.Errorf("%w: delivered state requires delivery time", ErrInvalidTransition)
		}
		status.deliveredAt = deliveredAt
	case OrderStateCancelled:
		if strings.TrimSpace(cancelReason) == "" {
			return OrderStatus{}, fmt.Errorf("%w: cancellation reason is required", ErrEmptyReason)
		}
		status.cancelReason = strings.TrimSpace(cancelReason)
	}
	return status, nil
}

// State возвращает метку текущего состояния.
func (s OrderStatus) State() OrderState { return s.state }

// Trail возвращает журнал переходов.
func (s OrderStatus) Trail() AuditTrail { return s.trail }

// Shipment возвращает данные отгрузки для состояния shipped.
func (s OrderStatus) Shipment() (ShipmentInfo, bool) {
	return s.shipment, s.state == OrderStateShipped
}

// DeliveredAt возвращает момент доставки для состояния delivered.
func (s OrderStatus) DeliveredAt() (time.Time, bool) {
	return s.deliveredAt, s.state == OrderStateDelivered
}

// CancellationReason возвращает причину отмены для состояния cancelled.
func (s OrderStatus) CancellationReason() (string, bool) {
	return s.cancelReason, s.state == OrderStateCancelled
}

// IsFinal сообщает, достиг ли заказ терминального состояния.
func (s OrderStatus) IsFinal() bool { return s.state.IsFinal() }

// transitionPayload собирает полезную нагрузку целевого состояния.
type transitionPayload struct {
	shipment    *ShipmentInfo
	deliveredAt time.Time
}

// TransitionOption передаёт полезную нагрузку в TransitionTo.
type TransitionOption func(*transitionPayload)

// WithShipment задаёт данные отгрузки для перехода в shipped.
func WithShipment(info ShipmentInfo) TransitionOption {
	return func(p *transitionPayload) {
		p.shipment = &info
	}
}

// WithDeliveredAt задаёт момент доставки для перехода в delivered.
// По умолчанию используется момент перехода.
func WithDeliveredAt(at time.Time) TransitionOption {
	return func(p *transitionPayload) {
		p.deliveredAt = at
	}
}

// TransitionTo выполняет переход в целевое состояние, проверяя таблицу
// переходов и правила конкретных состояний. Возвращает новый OrderStatus
// с расширенным журналом; исходное значение не изменяется.
func (s OrderStatus) TransitionTo(target OrderState, reason string, now time.Time, opts ...TransitionOption) (OrderStatus, error) {
	if _, ok := orderStateTransitions[target]; !ok {
		return OrderStatus{}, fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, target)
	}
	// Правила конкретных состояний дают более точные сообщения,
	// чем общая проверка по таблице.
	if s.state == OrderStateDraft && target == OrderStateCancelled {
		return OrderStatus{}, fmt.Errorf("%w: cannot cancel a draft order directly", ErrInvalidTransition)
	}
	if s.state == OrderStatePaid && target == OrderStateConfirmed {
		return OrderStatus{}, fmt.Errorf("%w: cannot revert to confirmed after payment", ErrInvalidTransition)
	}
	if !s.state.CanTransitionTo(target) {
		return OrderStatus{}, fmt.Errorf("%w: %s -> %s (allowed: %v)",
			ErrInvalidTransition, s.state, target, orderStateTransitions[s.state])
	}

	var payload transitionPayload
	for _, opt := range opts {
		opt(&payload)
	}

	next := OrderStatus{state: target, trail: s.trail}
	switch target {
	case OrderStateShipped:
		if payload.shipment == nil {
			return OrderStatus{}, ErrTrackingRequired
		}
		validated, err := NewShipmentInfo(payload.shipment.TrackingNumber, payload.shipment.Carrier)
		if err != nil {
			return OrderStatus{}, err
		}
		next.shipment = validated
	case OrderStateDelivered:
		deliveredAt := payload.deliveredAt
		if deliveredAt.IsZero() {
			deliveredAt = now
		}
		next.deliveredAt = deliveredAt
	case OrderStateCancelled:
		if strings.TrimSpace(reason) == "" {
			return OrderStatus{}, fmt.Errorf("%w: cancellation reason is required", ErrEmptyReason)
		}
		next.cancelReason = strings.TrimSpace(reason)
	}

	action := fmt.Sprintf("State changed from %s to %s. Reason: %s", s.state, target, reason)
	entry, err := NewAuditEntry(now, AuditActorSystem, action)
	if err != nil {
		return OrderStatus{}, err
	}
	next.trail = s.trail.Append(entry)

	return next, nil
}

// Confirm переводит заказ в состояние confirmed.
func (s OrderStatus) Confirm(reason string, now time.Time) (OrderStatus, error) {
	return s.TransitionTo(OrderStateConfirmed, reason, now)
}

// Pay переводит заказ в состояние paid.
func (s OrderStatus) Pay(reason string, now time.Time) (OrderStatus, error) {
	return s.TransitionTo(OrderStatePaid, reason, now)
}

// Ship переводит заказ в состояние shipped с данными отгрузки.
func (s OrderStatus) Ship(info ShipmentInfo, reason string, now time.Time) (OrderStatus, error) {
	return s.TransitionTo(OrderStateShipped, reason, now, WithShipment(info))
}

// Deliver переводит заказ в состояние delivered.
func (s OrderStatus) Deliver(reason string, now time.Time) (OrderStatus, error) {
	return s.TransitionTo(OrderStateDelivered, reason, now)
}

// Cancel переводит заказ в состояние cancelled с причиной.
func (s OrderStatus) Cancel(reason string, now time.Time) (OrderStatus, error) {
	return s.TransitionTo(OrderStateCancelled, reason, now)
}
