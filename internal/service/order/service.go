package order

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm/internal/domain"
	"github.com/vladislavdragonenkov/crm/internal/metrics"
)

const (
	saveMaxRetries = 3
	saveBaseDelay  = 10 * time.Millisecond

	// Ставка налога по умолчанию: 7.5%.
	defaultTaxRateBps = 750
)

// ItemInput описывает позицию заказа.
type ItemInput struct {
	ProductID      string
	Name           string
	Quantity       int
	UnitPriceMinor int64
}

// CreateOrderInput содержит данные для создания заказа.
type CreateOrderInput struct {
	CustomerID string
	Currency   string
	TaxRateBps int64
	Items      []ItemInput
}

// ShipOrderInput содержит данные отгрузки.
type ShipOrderInput struct {
	TrackingNumber string
	Carrier        string
	Reason         string
}

// Service реализует жизненный цикл заказа поверх машины состояний.
// Создание заказа сначала списывает его стоимость из кредитного
// лимита клиента, отмена возвращает её обратно.
type Service struct {
	orders    domain.OrderRepository
	customers domain.CustomerRepository
	outbox    domain.OutboxRepository
	clock     domain.Clock
	logger    *log.Entry
	metrics   *metrics.ServiceMetrics
}

// NewService создаёт рабочий экземпляр сервиса заказов.
func NewService(orders domain.OrderRepository, customers domain.CustomerRepository, outbox domain.OutboxRepository, clock domain.Clock, logger *log.Entry) *Service {
	service := NewServiceWithoutMetrics(orders, customers, outbox, clock, logger)
	service.metrics = metrics.NewServiceMetrics()
	return service
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(orders domain.OrderRepository, customers domain.CustomerRepository, outbox domain.OutboxRepository, clock domain.Clock, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	if clock == nil {
		clock = domain.SystemClock()
	}
	return &Service{
		orders:    orders,
		customers: customers,
		outbox:    outbox,
		clock:     clock,
		logger:    logger,
	}
}

// CreateOrder создаёт заказ и списывает его стоимость из кредитного
// лимита клиента. Если кредита не хватает, заказ не создаётся.
func (s *Service) CreateOrder(input CreateOrderInput) (*domain.Order, error) {
	defer s.observe("create_order", time.Now())

	if len(input.Items) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	taxRate := input.TaxRateBps
	if taxRate == 0 {
		taxRate = defaultTaxRateBps
	}

	now := s.clock.Now()
	order, err := domain.NewOrder(input.CustomerID, input.Currency, taxRate, now)
	if err != nil {
		return nil, err
	}
	for _, item := range input.Items {
		unitPrice, priceErr := domain.NewMoney(item.UnitPriceMinor, input.Currency)
		if priceErr != nil {
			return nil, priceErr
		}
		orderItem, itemErr := domain.NewOrderItem(item.ProductID, item.Name, item.Quantity, unitPrice)
		if itemErr != nil {
			return nil, itemErr
		}
		if addErr := order.AddItem(orderItem, now); addErr != nil {
			return nil, addErr
		}
	}

	// Кредитный гейт: сначала фиксируем покупку у клиента.
	if err := s.chargeCustomer(order.CustomerID(), order.ID(), order.Pricing().Final); err != nil {
		return nil, err
	}

	if err := s.orders.Create(order); err != nil {
		// Компенсация: возвращаем уже списанный кредит.
		s.refundCustomer(order.CustomerID(), order.Pricing().Final)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	s.enqueueOrderEvent(order, "order.created", nil)
	s.logger.WithFields(log.Fields{
		"order_id":    order.ID(),
		"customer_id": order.CustomerID(),
		"final":       order.Pricing().Final.String(),
	}).Info("order created")
	return order, nil
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(id string) (*domain.Order, error) {
	return s.orders.FindByID(id)
}

// ListOrders возвращает заказы клиента, новые первыми.
func (s *Service) ListOrders(customerID string, limit int) ([]*domain.Order, error) {
	return s.orders.ListByCustomer(customerID, limit)
}

// AddItem добавляет позицию в черновик заказа и дополнительно
// списывает разницу стоимости из кредитного лимита клиента.
// Списание выполняется один раз до сохранения заказа: retry закрытия
// конфликта версий не должен трогать кредит повторно.
func (s *Service) AddItem(orderID string, input ItemInput) (*domain.Order, error) {
	defer s.observe("add_item", time.Now())

	preview, err := s.orders.FindByID(orderID)
	if err != nil {
		return nil, err
	}
	unitPrice, err := domain.NewMoney(input.UnitPriceMinor, preview.Currency())
	if err != nil {
		return nil, err
	}
	item, err := domain.NewOrderItem(input.ProductID, input.Name, input.Quantity, unitPrice)
	if err != nil {
		return nil, err
	}

	// Считаем разницу стоимости на копии заказа.
	before := preview.Pricing().Final
	if err := preview.AddItem(item, s.clock.Now()); err != nil {
		return nil, err
	}
	delta, err := preview.Pricing().Final.Subtract(before)
	if err != nil {
		return nil, err
	}

	// Кредитный гейт, как при создании заказа.
	if delta.IsPositive() {
		if err := s.chargeCustomer(preview.CustomerID(), preview.ID(), delta); err != nil {
			return nil, err
		}
	}

	order, err := s.mutate(orderID, "", func(o *domain.Order) error {
		return o.AddItem(item, s.clock.Now())
	})
	if err != nil {
		// Компенсация: возвращаем уже списанный кредит.
		if delta.IsPositive() {
			s.refundCustomer(preview.CustomerID(), delta)
		}
		return nil, err
	}
	return order, nil
}

// ApplyDiscount применяет скидку к черновику заказа и возвращает
// клиенту разницу стоимости. Возврат происходит после успешного
// сохранения, чтобы retry конфликта версий не задваивал его.
func (s *Service) ApplyDiscount(orderID string, discount domain.Discount) (*domain.Order, error) {
	defer s.observe("apply_discount", time.Now())

	var saved domain.Money
	order, err := s.mutate(orderID, "", func(o *domain.Order) error {
		before := o.Pricing().Final
		if err := o.ApplyDiscount(discount, s.clock.Now()); err != nil {
			return err
		}
		diff, err := before.Subtract(o.Pricing().Final)
		if err != nil {
			return err
		}
		saved = diff
		return nil
	})
	if err != nil {
		return nil, err
	}

	if saved.IsPositive() {
		s.refundCustomer(order.CustomerID(), saved)
	}
	return order, nil
}

// Confirm переводит заказ из черновика в подтверждённый.
func (s *Service) Confirm(orderID, reason string) (*domain.Order, error) {
	defer s.observe("confirm_order", time.Now())

	return s.mutate(orderID, "order.confirmed", func(o *domain.Order) error {
		return o.Confirm(reason, s.clock.Now())
	})
}

// Pay отмечает заказ оплаченным.
func (s *Service) Pay(orderID, reason string) (*domain.Order, error) {
	defer s.observe("pay_order", time.Now())

	return s.mutate(orderID, "order.paid", func(o *domain.Order) error {
		return o.Pay(reason, s.clock.Now())
	})
}

// Ship отправляет заказ с номером отслеживания и перевозчиком.
func (s *Service) Ship(orderID string, input ShipOrderInput) (*domain.Order, error) {
	defer s.observe("ship_order", time.Now())

	shipment, err := domain.NewShipmentInfo(input.TrackingNumber, input.Carrier)
	if err != nil {
		return nil, err
	}
	return s.mutate(orderID, "order.shipped", func(o *domain.Order) error {
		return o.Ship(shipment, input.Reason, s.clock.Now())
	})
}

// Deliver отмечает заказ доставленным.
func (s *Service) Deliver(orderID, reason string) (*domain.Order, error) {
	defer s.observe("deliver_order", time.Now())

	return s.mutate(orderID, "order.delivered", func(o *domain.Order) error {
		return o.Deliver(reason, s.clock.Now())
	})
}

// Cancel отменяет заказ и возвращает его стоимость в кредитный лимит.
func (s *Service) Cancel(orderID, reason string) (*domain.Order, error) {
	defer s.observe("cancel_order", time.Now())

	order, err := s.mutate(orderID, "order.cancelled", func(o *domain.Order) error {
		return o.Cancel(reason, s.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	s.refundCustomer(order.CustomerID(), order.Pricing().Final)
	return order, nil
}

// mutate загружает заказ, применяет команду и сохраняет результат,
// разрешая конфликты версий перезагрузкой с exponential backoff.
// Непустой eventType после успешного сохранения уходит в outbox.
func (s *Service) mutate(id, eventType string, apply func(*domain.Order) error) (*domain.Order, error) {
	for attempt := 0; attempt < saveMaxRetries; attempt++ {
		order, err := s.orders.FindByID(id)
		if err != nil {
			return nil, err
		}

		if err := apply(order); err != nil {
			return nil, err
		}

		if err := s.orders.Save(order); err != nil {
			if domain.IsVersionConflict(err) && attempt < saveMaxRetries-1 {
				s.logger.WithFields(log.Fields{
					"order_id": id,
					"attempt":  attempt + 1,
				}).Warn("version conflict detected, retrying")
				time.Sleep(saveBaseDelay * time.Duration(1<<uint(attempt)))
				continue
			}
			return nil, err
		}

		if eventType != "" {
			if s.metrics != nil {
				s.metrics.RecordOrderTransition(string(order.State()))
			}
			s.enqueueOrderEvent(order, eventType, nil)
		}
		return order, nil
	}
	return nil, domain.ErrOrderVersionConflict
}

// chargeCustomer списывает сумму заказа из кредитного лимита клиента.
func (s *Service) chargeCustomer(customerID, orderID string, amount domain.Money) error {
	for attempt := 0; attempt < saveMaxRetries; attempt++ {
		customer, err := s.customers.FindByID(customerID)
		if err != nil {
			return err
		}
		if err := customer.RegisterPurchase(orderID, amount, s.clock.Now()); err != nil {
			return err
		}
		if err := s.customers.Save(customer); err != nil {
			if domain.IsVersionConflict(err) && attempt < saveMaxRetries-1 {
				time.Sleep(saveBaseDelay * time.Duration(1<<uint(attempt)))
				continue
			}
			return err
		}
		if s.metrics != nil {
			s.metrics.RecordPurchaseRegistered()
		}
		return nil
	}
	return domain.ErrCustomerVersionConflict
}

// refundCustomer возвращает сумму в кредитный лимит. Ошибка возврата
// не прерывает операцию над заказом и только логируется.
func (s *Service) refundCustomer(customerID string, amount domain.Money) {
	if !amount.IsPositive() {
		return
	}
	for attempt := 0; attempt < saveMaxRetries; attempt++ {
		customer, err := s.customers.FindByID(customerID)
		if err != nil {
			s.logger.WithError(err).WithField("customer_id", customerID).Warn("failed to load customer for credit release")
			return
		}
		if err := customer.ReleaseCredit(amount, s.clock.Now()); err != nil {
			s.logger.WithError(err).WithField("customer_id", customerID).Warn("failed to release credit")
			return
		}
		if err := s.customers.Save(customer); err != nil {
			if domain.IsVersionConflict(err) && attempt < saveMaxRetries-1 {
				time.Sleep(saveBaseDelay * time.Duration(1<<uint(attempt)))
				continue
			}
			s.logger.WithError(err).WithField("customer_id", customerID).Warn("failed to persist credit release")
			return
		}
		return
	}
}

// enqueueOrderEvent кладёт событие жизненного цикла заказа в outbox.
func (s *Service) enqueueOrderEvent(order *domain.Order, eventType string, extra map[string]any) {
	if s.outbox == nil {
		return
	}

	body := map[string]any{
		"order_id":    order.ID(),
		"customer_id": order.CustomerID(),
		"state":       string(order.State()),
		"final_minor": order.Pricing().Final.Minor(),
		"currency":    order.Currency(),
		"ts":          s.clock.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range extra {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID()).Warn("failed to marshal order event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: "order",
		AggregateID:   order.ID(),
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID()).Warn("failed to enqueue order event")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}

func (s *Service) observe(operation string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordOperationDuration(operation, time.Since(start))
	}
}
