// Package events announces reconciliation changes on Kafka.
//
// Publishing is best effort: failures are logged and never fail a pass.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"roster/internal/platform/kafka/producer"
	"roster/internal/users/models"
)

// Event types.
const (
	TypeUserInserted  = "user.inserted"
	TypeUserUpdated   = "user.updated"
	TypePassCompleted = "pass.completed"
)

// Event is the JSON payload written to the topic.
type Event struct {
	Type       string             `json:"type"`
	PassID     uuid.UUID          `json:"pass_id"`
	OccurredAt time.Time          `json:"occurred_at"`
	User       *models.User       `json:"user,omitempty"`
	Pass       *models.PassResult `json:"pass,omitempty"`
}

// Publisher receives pipeline notifications.
type Publisher interface {
	UserReconciled(ctx context.Context, passID uuid.UUID, outcome models.Outcome)
	PassCompleted(ctx context.Context, result models.PassResult)
}

// Producer is the Kafka producer subset used here.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
	ProduceAsync(msg *producer.Message) error
}

// KafkaPublisher writes events keyed by user_id, or by pass_id for pass events.
type KafkaPublisher struct {
	producer Producer
	topic    string
	logger   *slog.Logger
	now      func() time.Time
}

var _ Publisher = (*KafkaPublisher)(nil)

func NewKafka(p Producer, topic string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{producer: p, topic: topic, logger: logger, now: time.Now}
}

// UserReconciled buffers an event for inserted or updated users. Unchanged users emit nothing.
func (k *KafkaPublisher) UserReconciled(ctx context.Context, passID uuid.UUID, outcome models.Outcome) {
	var eventType string
	switch outcome.Action {
	case models.ActionInserted:
		eventType = TypeUserInserted
	case models.ActionUpdated:
		eventType = TypeUserUpdated
	default:
		return
	}
	user := outcome.User
	msg, err := k.message(Event{Type: eventType, PassID: passID, OccurredAt: k.now().UTC(), User: &user}, user.UserID)
	if err != nil {
		k.logger.ErrorContext(ctx, "failed to encode user event", "user_id", user.UserID, "error", err)
		return
	}
	if err := k.producer.ProduceAsync(msg); err != nil {
		k.logger.WarnContext(ctx, "failed to publish user event", "user_id", user.UserID, "type", eventType, "error", err)
	}
}

// PassCompleted waits for the broker so the event is durable before the pass reports.
func (k *KafkaPublisher) PassCompleted(ctx context.Context, result models.PassResult) {
	msg, err := k.message(Event{Type: TypePassCompleted, PassID: result.PassID, OccurredAt: k.now().UTC(), Pass: &result}, result.PassID.String())
	if err != nil {
		k.logger.ErrorContext(ctx, "failed to encode pass event", "pass_id", result.PassID, "error", err)
		return
	}
	if err := k.producer.Produce(ctx, msg); err != nil {
		k.logger.WarnContext(ctx, "failed to publish pass event", "pass_id", result.PassID, "error", err)
	}
}

func (k *KafkaPublisher) message(e Event, key string) (*producer.Message, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return &producer.Message{
		Topic:   k.topic,
		Key:     []byte(key),
		Value:   payload,
		Headers: map[string]string{"event_type": e.Type},
	}, nil
}

// Noop discards every event. Used when no brokers are configured.
type Noop struct{}

var _ Publisher = Noop{}

func (Noop) UserReconciled(context.Context, uuid.UUID, models.Outcome) {}
func (Noop) PassCompleted(context.Context, models.PassResult)          {}
