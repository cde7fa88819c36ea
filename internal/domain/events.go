package domain

import (
	"time"

	"github.com/google/uuid"
)

// Типы доменных событий.
const (
	EventTypeCustomerPromotedToVip = "customer.promoted_to_vip"
)

// DomainEvent — неизменяемый факт, произошедший в домене.
// События возвращаются мутирующими методами агрегата и публикуются
// вызывающим слоем после успешного сохранения.
type DomainEvent interface {
	// EventID возвращает уникальный идентификатор события.
	EventID() string
	// EventType возвращает строковый тип события для маршрутизации.
	EventType() string
	// AggregateID возвращает идентификатор агрегата-источника.
	AggregateID() string
	// OccurredOn возвращает момент возникновения события.
	OccurredOn() time.Time
}

// CustomerPromotedToVip эмитируется при успешном повышении клиента до VIP.
type CustomerPromotedToVip struct {
	eventID    string
	customerID string
	occurredOn time.Time
}

// NewCustomerPromotedToVip создаёт событие со свежим идентификатором.
func NewCustomerPromotedToVip(customerID string, now time.Time) CustomerPromotedToVip {
	return CustomerPromotedToVip{
		eventID:    uuid.NewString(),
		customerID: customerID,
		occurredOn: now,
	}
}

// EventID возвращает идентификатор события.
func (e CustomerPromotedToVip) EventID() string { return e.eventID }

// EventType возвращает тип события.
func (e CustomerPromotedToVip) EventType() string { return EventTypeCustomerPromotedToVip }

// AggregateID возвращает идентификатор клиента.
func (e CustomerPromotedToVip) AggregateID() string { return e.customerID }

// CustomerID возвращает идентификатор клиента.
func (e CustomerPromotedToVip) CustomerID() string { return e.customerID }

// OccurredOn возвращает момент повышения.
func (e CustomerPromotedToVip) OccurredOn() time.Time { return e.occurredOn }

var _ DomainEvent = CustomerPromotedToVip{}
