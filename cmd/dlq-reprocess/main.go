package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm/internal/messaging/kafka"
)

const (
	defaultGroupID     = "crm-dlq-reprocess"
	defaultReplayLimit = 100
	defaultRunFor      = 30 * time.Second
)

type config struct {
	brokers []string
	groupID string
	limit   int
	execute bool
	runFor  time.Duration
}

// dlqPayload повторяет формат записи, которую consumer кладет в crm.dlq.
type dlqPayload struct {
	OriginalTopic string `json:"original_topic"`
	OriginalKey   string `json:"original_key"`
	OriginalValue string `json:"original_value"`
	ErrorMessage  string `json:"error_message"`
	FailedAt      string `json:"failed_at"`
	RetryCount    int    `json:"retry_count"`
}

// eventPublisher — срез интерфейса kafka.Producer, достаточный для replay.
type eventPublisher interface {
	PublishEvent(topic string, key string, event interface{}) error
}

// replayer переигрывает записи из crm.dlq обратно в исходные топики.
// Событие пересобирается заново: свежий timestamp, метаданные о причине
// попадания в DLQ.
type replayer struct {
	publisher eventPublisher
	execute   bool
	limit     int
	stop      context.CancelFunc
	logger    *log.Entry

	mu       sync.Mutex
	replayed int
	skipped  int
}

func newReplayer(publisher eventPublisher, execute bool, limit int, stop context.CancelFunc) *replayer {
	return &replayer{
		publisher: publisher,
		execute:   execute,
		limit:     limit,
		stop:      stop,
		logger:    log.WithField("component", "dlq-reprocess"),
	}
}

// handle обрабатывает одну запись DLQ. Нечитаемые записи пропускаются:
// возвращать их в crm.dlq через ошибку нет смысла.
func (r *replayer) handle(_ context.Context, message *sarama.ConsumerMessage) error {
	var payload dlqPayload
	if err := json.Unmarshal(message.Value, &payload); err != nil {
		r.logger.WithError(err).WithField("offset", message.Offset).Warn("skip malformed dlq record")
		r.account(false)
		return nil
	}

	target := strings.TrimSpace(payload.OriginalTopic)
	key, event, err := rebuildEvent(target, payload)
	if err != nil {
		r.logger.WithError(err).WithFields(log.Fields{
			"offset":       message.Offset,
			"target_topic": target,
		}).Warn("skip unsupported dlq record")
		r.account(false)
		return nil
	}

	if !r.execute {
		r.logger.WithFields(log.Fields{
			"target_topic": target,
			"key":          key,
			"dlq_error":    payload.ErrorMessage,
		}).Info("dlq replay candidate")
		r.account(true)
		return nil
	}

	if err := r.publisher.PublishEvent(target, key, event); err != nil {
		return fmt.Errorf("replay to %s: %w", target, err)
	}
	r.logger.WithFields(log.Fields{
		"target_topic": target,
		"key":          key,
	}).Info("dlq record replayed")
	r.account(true)
	return nil
}

// rebuildEvent собирает свежее событие из оригинального payload.
// Поддерживаются только топики CRM: чужие записи не переигрываются.
func rebuildEvent(target string, payload dlqPayload) (string, interface{}, error) {
	original := &sarama.ConsumerMessage{Value: []byte(payload.OriginalValue)}

	switch target {
	case kafka.TopicOrderEvents:
		parsed, err := kafka.ParseOrderEvent(original)
		if err != nil {
			return "", nil, err
		}
		if parsed.OrderID == "" {
			return "", nil, fmt.Errorf("order event without order_id")
		}
		event := kafka.NewOrderEvent(parsed.EventType, parsed.OrderID, parsed.CustomerID, parsed.Status, replayMetadata(parsed.Metadata, payload))
		return parsed.OrderID, event, nil

	case kafka.TopicCustomerEvents:
		parsed, err := kafka.ParseCustomerEvent(original)
		if err != nil {
			return "", nil, err
		}
		if parsed.CustomerID == "" {
			return "", nil, fmt.Errorf("customer event without customer_id")
		}
		event := kafka.NewCustomerEvent(parsed.EventType, parsed.CustomerID, replayMetadata(parsed.Metadata, payload))
		return parsed.CustomerID, event, nil

	default:
		return "", nil, fmt.Errorf("unknown target topic %q", target)
	}
}

// replayMetadata дополняет метаданные события причиной попадания в DLQ.
func replayMetadata(src map[string]interface{}, payload dlqPayload) map[string]interface{} {
	meta := make(map[string]interface{}, len(src)+3)
	for k, v := range src {
		meta[k] = v
	}
	meta["replayed_from"] = kafka.TopicDeadLetterQueue
	if payload.ErrorMessage != "" {
		meta["dlq_error"] = payload.ErrorMessage
	}
	if payload.FailedAt != "" {
		meta["dlq_failed_at"] = payload.FailedAt
	}
	return meta
}

// account учитывает запись и останавливает работу по достижении лимита.
func (r *replayer) account(replayed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if replayed {
		r.replayed++
	} else {
		r.skipped++
	}
	if r.replayed+r.skipped >= r.limit {
		r.stop()
	}
}

func (r *replayer) stats() (replayed, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replayed, r.skipped
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	cfg, err := readConfig()
	if err != nil {
		fail("%v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		fail("dlq reprocess failed: %v", err)
	}
}

func readConfig() (config, error) {
	var (
		brokersRaw string
		cfg        config
	)

	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: CRM_KAFKA_BROKERS)")
	flag.StringVar(&cfg.groupID, "group", defaultGroupID, "consumer group for reading the DLQ")
	flag.IntVar(&cfg.limit, "limit", defaultReplayLimit, "max number of DLQ records to process")
	flag.BoolVar(&cfg.execute, "execute", false, "execute replay; default is dry-run")
	flag.DurationVar(&cfg.runFor, "run-for", defaultRunFor, "how long to wait for DLQ records")
	flag.Parse()

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv("CRM_KAFKA_BROKERS")
	}

	cfg.brokers = parseBrokers(brokersRaw)
	if len(cfg.brokers) == 0 {
		return config{}, fmt.Errorf("kafka brokers are required (-brokers or CRM_KAFKA_BROKERS)")
	}
	if strings.TrimSpace(cfg.groupID) == "" {
		return config{}, fmt.Errorf("group is required")
	}
	if cfg.limit <= 0 {
		return config{}, fmt.Errorf("limit must be > 0")
	}
	if cfg.runFor <= 0 {
		return config{}, fmt.Errorf("run-for must be > 0")
	}

	return cfg, nil
}

func parseBrokers(raw string) []string {
	chunks := strings.Split(raw, ",")
	brokers := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		broker := strings.TrimSpace(chunk)
		if broker == "" {
			continue
		}
		brokers = append(brokers, broker)
	}
	return brokers
}

func run(ctx context.Context, cfg config) error {
	log.WithFields(log.Fields{
		"group":   cfg.groupID,
		"limit":   cfg.limit,
		"execute": cfg.execute,
		"run_for": cfg.runFor,
	}).Info("starting dlq reprocess")

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, cfg.runFor)
	defer timeoutCancel()

	var publisher eventPublisher
	if cfg.execute {
		producer, err := kafka.NewProducer(cfg.brokers)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	replayer := newReplayer(publisher, cfg.execute, cfg.limit, cancel)

	consumer, err := kafka.NewConsumer(cfg.brokers, cfg.groupID, []string{kafka.TopicDeadLetterQueue}, replayer.handle)
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("start kafka consumer: %w", err)
	}

	<-ctx.Done()
	if err := consumer.Stop(); err != nil {
		log.WithError(err).Error("failed to stop consumer")
	}

	mode := "dry-run"
	if cfg.execute {
		mode = "execute"
	}
	replayed, skipped := replayer.stats()
	log.WithFields(log.Fields{
		"mode":     mode,
		"replayed": replayed,
		"skipped":  skipped,
	}).Info("dlq reprocess finished")

	return nil
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
