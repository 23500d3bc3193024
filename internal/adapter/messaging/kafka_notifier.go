package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/fulfillment/internal/core/domain"
)

// Workflow names double as the event-type header and the topic suffix.
const (
	WorkflowStartFulfillment = "StartFulfillment"
	WorkflowCompleteOrder    = "CompleteOrder"
	WorkflowReleaseOrder     = "ReleaseOrder"
	WorkflowNotifyFailure    = "NotifyFailure"
)

// Topics maps each workflow to its Kafka topic.
type Topics struct {
	StartFulfillment string
	CompleteOrder    string
	ReleaseOrder     string
	NotifyFailure    string
}

// DefaultTopics derives one topic per workflow from prefix, e.g. "fulfillment.start".
func DefaultTopics(prefix string) Topics {
	return Topics{
		StartFulfillment: prefix + ".start",
		CompleteOrder:    prefix + ".complete",
		ReleaseOrder:     prefix + ".release",
		NotifyFailure:    prefix + ".failure",
	}
}

type workflowMessage struct {
	Workflow string              `json:"workflow"`
	Event    domain.OrderUpdated `json:"event"`
}

// KafkaNotifier hands order workflows to downstream consumers over Kafka.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topics   Topics
	logger   *zap.Logger
	now      func() time.Time
}

func NewKafkaNotifier(producer sarama.SyncProducer, topics Topics, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topics: topics, logger: logger, now: time.Now}
}

// NewSyncProducer builds a producer that waits for all in-sync replicas.
func NewSyncProducer(brokers []string, clientID string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

func (n *KafkaNotifier) StartFulfillment(ctx context.Context, event domain.OrderUpdated) error {
	return n.send(ctx, n.topics.StartFulfillment, WorkflowStartFulfillment, event)
}

func (n *KafkaNotifier) CompleteOrder(ctx context.Context, event domain.OrderUpdated) error {
	return n.send(ctx, n.topics.CompleteOrder, WorkflowCompleteOrder, event)
}

func (n *KafkaNotifier) ReleaseOrder(ctx context.Context, event domain.OrderUpdated) error {
	return n.send(ctx, n.topics.ReleaseOrder, WorkflowReleaseOrder, event)
}

func (n *KafkaNotifier) NotifyFailure(ctx context.Context, event domain.OrderUpdated) error {
	return n.send(ctx, n.topics.NotifyFailure, WorkflowNotifyFailure, event)
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}

func (n *KafkaNotifier) send(ctx context.Context, topic, workflow string, event domain.OrderUpdated) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(workflowMessage{Workflow: workflow, Event: event})
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", workflow, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.OrderID.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(workflow)},
			{Key: []byte("event-id"), Value: []byte(uuid.New().String())},
			{Key: []byte("timestamp"), Value: []byte(n.now().UTC().Format(time.RFC3339))},
		},
	}

	partition, offset, err := n.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish %s for order %s: %w", workflow, event.OrderID, err)
	}

	n.logger.Info("workflow published",
		zap.String("workflow", workflow),
		zap.String("topic", topic),
		zap.String("order_id", event.OrderID.String()),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}
