package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/crm/internal/domain"
)

func TestOutboxPublisher_Publish(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndSucceed()

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-outbox-publisher-test"),
	}
	publisher := NewOutboxPublisher(producer, TopicCustomerEvents)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-1",
		AggregateType: "customer",
		AggregateID:   "customer-123",
		EventType:     domain.EventTypeCustomerPromotedToVip,
		Payload:       []byte(`{"customer_id":"customer-123"}`),
	})
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_PublishProducerError(t *testing.T) {
	t.Parallel()

	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-outbox-publisher-test"),
	}
	publisher := NewOutboxPublisher(producer, TopicCustomerEvents)

	err := publisher.Publish(domain.OutboxMessage{
		ID:            "outbox-2",
		AggregateType: "customer",
		AggregateID:   "customer-234",
		EventType:     domain.EventTypeCustomerPromotedToVip,
		Payload:       []byte(`{"customer_id":"customer-234"}`),
	})
	if err == nil {
		t.Fatal("expected publish error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxPublisher_TopicRouting(t *testing.T) {
	t.Parallel()

	publisher := &OutboxTopicPublisher{}

	if got := publisher.topicFor(domain.OutboxMessage{AggregateType: "order"}); got != TopicOrderEvents {
		t.Fatalf("expected %s, got %s", TopicOrderEvents, got)
	}
	if got := publisher.topicFor(domain.OutboxMessage{AggregateType: "customer"}); got != TopicCustomerEvents {
		t.Fatalf("expected %s, got %s", TopicCustomerEvents, got)
	}

	pinned := &OutboxTopicPublisher{topic: TopicDeadLetterQueue}
	if got := pinned.topicFor(domain.OutboxMessage{AggregateType: "order"}); got != TopicDeadLetterQueue {
		t.Fatalf("expected %s, got %s", TopicDeadLetterQueue, got)
	}
}

func TestOutboxPublisher_PublishNilProducer(t *testing.T) {
	t.Parallel()

	publisher := NewOutboxPublisher(nil, TopicCustomerEvents)
	if err := publisher.Publish(domain.OutboxMessage{ID: "outbox-3"}); err == nil {
		t.Fatal("expected error for nil producer")
	}
}
