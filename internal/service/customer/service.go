package customer

import (
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm/internal/domain"
	"github.com/vladislavdragonenkov/crm/internal/metrics"
)

const (
	saveMaxRetries = 3
	saveBaseDelay  = 10 * time.Millisecond
)

// CreateCustomerInput содержит данные для регистрации клиента.
type CreateCustomerInput struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	Email       string
	Street      string
	City        string
	State       string
	ZipCode     string
	Country     string
}

// AddressInput содержит данные для смены адреса.
type AddressInput struct {
	Street  string
	City    string
	State   string
	ZipCode string
	Country string
}

// Service реализует прикладные операции над агрегатом Customer.
// Каждая команда строит value object'ы, вызывает ровно один метод
// агрегата, сохраняет его и кладёт эмитированные события в outbox.
type Service struct {
	customers domain.CustomerRepository
	outbox    domain.OutboxRepository
	clock     domain.Clock
	logger    *log.Entry
	metrics   *metrics.ServiceMetrics
}

// NewService создаёт рабочий экземпляр сервиса клиентов.
func NewService(customers domain.CustomerRepository, outbox domain.OutboxRepository, clock domain.Clock, logger *log.Entry) *Service {
	service := NewServiceWithoutMetrics(customers, outbox, clock, logger)
	service.metrics = metrics.NewServiceMetrics()
	return service
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(customers domain.CustomerRepository, outbox domain.OutboxRepository, clock domain.Clock, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "customer-service")
	}
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &Service{
		customers: customers,
		outbox:    outbox,
		clock:     clock,
		logger:    logger,
	}
}

// CreateCustomer регистрирует нового клиента со стартовым кредитным лимитом.
func (s *Service) CreateCustomer(input CreateCustomerInput) (*domain.Customer, error) {
	defer s.observe("create_customer", time.Now())

	info, err := domain.NewPersonalInfo(input.FirstName, input.LastName, input.PhoneNumber)
	if err != nil {
		return nil, err
	}
	email, err := domain.NewEmail(input.Email)
	if err != nil {
		return nil, err
	}
	address, err := buildAddress(AddressInput{
		Street:  input.Street,
		City:    input.City,
		State:   input.State,
		ZipCode: input.ZipCode,
		Country: input.Country,
	})
	if err != nil {
		return nil, err
	}

	taken, err := s.customers.ExistsByEmail(email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrEmailAlreadyTaken
	}

	customer, err := domain.NewCustomer(info, email, address, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.customers.Create(customer); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordCustomerCreated()
	}
	s.logger.WithFields(log.Fields{
		"customer_id": customer.ID(),
		"email":       customer.Email().String(),
	}).Info("customer created")
	return customer, nil
}

// GetCustomer возвращает клиента по идентификатору.
func (s *Service) GetCustomer(id string) (*domain.Customer, error) {
	return s.customers.FindByID(id)
}

// UpdateAddress заменяет почтовый адрес клиента.
func (s *Service) UpdateAddress(id string, input AddressInput) (*domain.Customer, error) {
	defer s.observe("update_address", time.Now())

	address, err := buildAddress(input)
	if err != nil {
		return nil, err
	}
	return s.mutate(id, func(c *domain.Customer) ([]domain.DomainEvent, error) {
		return nil, c.UpdateAddress(address, s.clock.Now())
	})
}

// UpdatePersonalInfo заменяет персональные данные клиента.
func (s *Service) UpdatePersonalInfo(id, firstName, lastName, phoneNumber string) (*domain.Customer, error) {
	defer s.observe("update_personal_info", time.Now())

	info, err := domain.NewPersonalInfo(firstName, lastName, phoneNumber)
	if err != nil {
		return nil, err
	}
	return s.mutate(id, func(c *domain.Customer) ([]domain.DomainEvent, error) {
		return nil, c.UpdatePersonalInfo(info, s.clock.Now())
	})
}

// PromoteToVip повышает клиента до VIP и публикует событие через outbox.
func (s *Service) PromoteToVip(id string) (*domain.Customer, error) {
	defer s.observe("promote_to_vip", time.Now())

	wasVip := false
	customer, err := s.mutate(id, func(c *domain.Customer) ([]domain.DomainEvent, error) {
		wasVip = c.IsVip()
		return c.PromoteToVip(s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	if !wasVip {
		if s.metrics != nil {
			s.metrics.RecordCustomerPromoted()
		}
		s.logger.WithFields(log.Fields{
			"customer_id":  customer.ID(),
			"credit_limit": customer.CreditLimit().Total().String(),
		}).Info("customer promoted to vip")
	}
	return customer, nil
}

// UpdateCreditLimit устанавливает новый общий кредитный лимит,
// сохраняя текущую задолженность.
func (s *Service) UpdateCreditLimit(id string, totalMinor int64, currency string) (*domain.Customer, error) {
	defer s.observe("update_credit_limit", time.Now())

	total, err := domain.NewMoney(totalMinor, currency)
	if err != nil {
		return nil, err
	}
	return s.mutate(id, func(c *domain.Customer) ([]domain.DomainEvent, error) {
		used := c.CreditLimit().Used()
		if !used.SameCurrency(total) {
			zero, zeroErr := domain.ZeroMoney(total.Currency())
			if zeroErr != nil {
				return nil, zeroErr
			}
			used = zero
		}
		newLimit, limitErr := domain.NewCreditLimit(total, used)
		if limitErr != nil {
			return nil, limitErr
		}
		return nil, c.UpdateCreditLimit(newLimit, s.clock.Now())
	})
}

// RegisterPurchase фиксирует покупку и списывает её из кредитного лимита.
func (s *Service) RegisterPurchase(id, orderID string, amountMinor int64, currency string) (*domain.Customer, error) {
	defer s.observe("register_purchase", time.Now())

	amount, err := domain.NewMoney(amountMinor, currency)
	if err != nil {
		return nil, err
	}
	customer, err := s.mutate(id, func(c *domain.Customer) ([]domain.DomainEvent, error) {
		return nil, c.RegisterPurchase(orderID, amount, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordPurchaseRegistered()
	}
	return customer, nil
}

// ReleaseCredit возвращает сумму в доступный кредит клиента.
func (s *Service) ReleaseCredit(id string, amountMinor int64, currency string) (*domain.Customer, error) {
	defer s.observe("release_credit", time.Now())

	amount, err := domain.NewMoney(amountMinor, currency)
	if err != nil {
		return nil, err
	}
	return s.mutate(id, func(c *domain.Customer) ([]domain.DomainEvent, error) {
		return nil, c.ReleaseCredit(amount, s.clock.Now())
	})
}

// DeactivateCustomer деактивирует учётную запись с обязательной причиной.
func (s *Service) DeactivateCustomer(id, reason string) (*domain.Customer, error) {
	defer s.observe("deactivate_customer", time.Now())

	customer, err := s.mutate(id, func(c *domain.Customer) ([]domain.DomainEvent, error) {
		return nil, c.Deactivate(reason, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordCustomerDeactivated()
	}
	return customer, nil
}

// ReactivateCustomer возвращает неактивную учётную запись в строй.
func (s *Service) ReactivateCustomer(id string) (*domain.Customer, error) {
	defer s.observe("reactivate_customer", time.Now())

	customer, err := s.mutate(id, func(c *domain.Customer) ([]domain.DomainEvent, error) {
		return nil, c.Reactivate(s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordCustomerReactivated()
	}
	return customer, nil
}

// mutate загружает агрегат, применяет команду и сохраняет результат.
// Конфликт версий разрешается перезагрузкой и повторным применением
// команды с exponential backoff.
func (s *Service) mutate(id string, apply func(*domain.Customer) ([]domain.DomainEvent, error)) (*domain.Customer, error) {
	for attempt := 0; attempt < saveMaxRetries; attempt++ {
		customer, err := s.customers.FindByID(id)
		if err != nil {
			return nil, err
		}

		events, err := apply(customer)
		if err != nil {
			return nil, err
		}

		if err := s.customers.Save(customer); err != nil {
			if domain.IsVersionConflict(err) && attempt < saveMaxRetries-1 {
				s.logger.WithFields(log.Fields{
					"customer_id": id,
					"attempt":     attempt + 1,
				}).Warn("version conflict detected, retrying")
				time.Sleep(saveBaseDelay * time.Duration(1<<uint(attempt)))
				continue
			}
			return nil, err
		}

		s.enqueueEvents(events)
		return customer, nil
	}
	return nil, domain.ErrCustomerVersionConflict
}

// enqueueEvents кладёт доменные события в transactional outbox.
func (s *Service) enqueueEvents(events []domain.DomainEvent) {
	if s.outbox == nil || len(events) == 0 {
		return
	}
	for _, event := range events {
		payload, err := json.Marshal(map[string]any{
			"event_id":    event.EventID(),
			"customer_id": event.AggregateID(),
			"occurred_on": event.OccurredOn().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			s.logger.WithError(err).WithField("event_id", event.EventID()).Warn("failed to marshal domain event")
			continue
		}

		if _, err := s.outbox.Enqueue(domain.OutboxMessage{
			ID:            event.EventID(),
			AggregateType: "customer",
			AggregateID:   event.AggregateID(),
			EventType:     event.EventType(),
			Payload:       payload,
		}); err != nil {
			s.logger.WithError(err).WithField("event_id", event.EventID()).Warn("failed to enqueue outbox message")
			continue
		}
		if s.metrics != nil {
			s.metrics.RecordOutboxEvent()
		}
	}
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordOperationDuration(operation, time.Since(start))
	}
}

func buildAddress(input AddressInput) (domain.Address, error) {
	country, err := domain.ParseCountry(input.Country)
	if err != nil {
		return domain.Address{}, err
	}
	return domain.NewAddress(input.Street, input.City, input.State, input.ZipCode, country)
}
