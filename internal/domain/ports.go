package domain

import "time"

// CustomerRepository описывает требования к хранилищу клиентов.
type CustomerRepository interface {
	// Create сохраняет нового клиента. Возвращает ErrEmailAlreadyTaken,
	// если адрес уже зарегистрирован.
	Create(customer *Customer) error
	// FindByID возвращает клиента или ErrCustomerNotFound, если его нет.
	FindByID(id string) (*Customer, error)
	// FindByEmail возвращает клиента по нормализованному адресу
	// или ErrCustomerNotFound.
	FindByEmail(email Email) (*Customer, error)
	// ExistsByEmail сообщает, зарегистрирован ли адрес.
	ExistsByEmail(email Email) (bool, error)
	// Save применяет обновления с учётом optimistic locking;
	// при несовпадении версии возвращает ErrCustomerVersionConflict.
	Save(customer *Customer) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ.
	Create(order *Order) error
	// FindByID возвращает заказ или ErrOrderNotFound, если его нет.
	FindByID(id string) (*Order, error)
	// ListByCustomer возвращает заказы клиента с опциональным
	// ограничением на количество.
	ListByCustomer(customerID string, limit int) ([]*Order, error)
	// Save применяет обновления с учётом optimistic locking;
	// при несовпадении версии возвращает ErrOrderVersionConflict.
	Save(order *Order) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
