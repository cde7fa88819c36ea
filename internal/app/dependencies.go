package app

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm/internal/domain"
	"github.com/vladislavdragonenkov/crm/internal/messaging/kafka"
	customersvc "github.com/vladislavdragonenkov/crm/internal/service/customer"
	ordersvc "github.com/vladislavdragonenkov/crm/internal/service/order"
	"github.com/vladislavdragonenkov/crm/internal/service/outbox"
	"github.com/vladislavdragonenkov/crm/internal/storage/memory"
	"github.com/vladislavdragonenkov/crm/internal/storage/postgres"
)

// Dependencies содержит все зависимости приложения.
type Dependencies struct {
	Customers domain.CustomerRepository
	Orders    domain.OrderRepository
	Outbox    domain.OutboxRepository

	CustomerService *customersvc.Service
	OrderService    *ordersvc.Service
	OutboxWorker    *outbox.Worker

	Logger *log.Entry

	store    *postgres.Store
	producer *kafka.Producer
}

// NewDependencies создаёт и инициализирует все зависимости приложения.
// При пустом PostgresDSN используется in-memory хранилище, при пустом
// KafkaBrokers приложение работает без паблишера outbox.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{Logger: logger}
	clock := domain.SystemClock()

	if cfg.PostgresDSN != "" {
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		deps.store = store
		deps.Customers = postgres.NewCustomerRepository(store, clock)
		deps.Orders = postgres.NewOrderRepository(store)
		deps.Outbox = postgres.NewOutboxRepository(store)
		logger.Info("postgres storage initialized")
	} else {
		deps.Customers = memory.NewCustomerRepository()
		deps.Orders = memory.NewOrderRepository()
		deps.Outbox = memory.NewOutboxRepository()
		logger.Info("in-memory storage initialized")
	}

	deps.producer = initKafkaProducer(cfg.KafkaBrokers, logger)
	if deps.producer != nil {
		deps.OutboxWorker = outbox.NewWorker(
			deps.Outbox,
			kafka.NewOutboxPublisher(deps.producer, ""),
			outbox.WithLogger(logger.WithField("layer", "outbox")),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(deps.producer, kafka.TopicDeadLetterQueue)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		)
	}

	serviceLogger := logger.WithField("layer", "service")
	deps.CustomerService = customersvc.NewService(deps.Customers, deps.Outbox, clock, serviceLogger)
	deps.OrderService = ordersvc.NewService(deps.Orders, deps.Customers, deps.Outbox, clock, serviceLogger)

	return deps, nil
}

// Close освобождает внешние ресурсы: Kafka producer и соединение с базой.
func (d *Dependencies) Close() {
	closeKafka(d.producer, d.Logger)
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}

// initKafkaProducer инициализирует Kafka producer если brokers не пустой.
// Ошибка подключения не фатальна: приложение продолжает работу без Kafka.
func initKafkaProducer(brokers string, logger *log.Entry) *kafka.Producer {
	if brokers == "" {
		return nil
	}

	brokerList := strings.Split(brokers, ",")
	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer
}

// closeKafka закрывает Kafka producer если он не nil.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}

	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
