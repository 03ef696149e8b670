package kafkarelay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	producerName   = "minishop-checkout"
	headerEvent    = "event_type"
	headerEventID  = "event_id"
	relayComponent = "kafka_relay"
)

// Envelope wraps every relayed event.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	Key        string          `json:"key,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Relay forwards bus events to a Kafka topic. Keyed events are partitioned
// by their key so one order's events stay in order.
type Relay struct {
	writer messageWriter
	log    observability.Logger
	now    func() time.Time
}

// NewWriter builds the kafka-go writer used in production.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
}

func New(w messageWriter, log observability.Logger) *Relay {
	if log == nil {
		log = observability.NopLogger()
	}
	return &Relay{
		writer: w,
		log:    log.With(observability.F("component", relayComponent)),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Attach subscribes the relay to each event name.
func (r *Relay) Attach(sub domoutbox.Subscriber, events ...string) {
	for _, name := range events {
		sub.Subscribe(name, r.Handle)
	}
}

// Handle writes one event. The error goes back to the bus, which logs it;
// there is no redelivery.
func (r *Relay) Handle(ctx context.Context, e domoutbox.Event) error {
	msg, err := r.message(e)
	if err != nil {
		return err
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafkarelay: write %s: %w", e.EventName(), err)
	}
	logctx.FromOr(ctx, r.log).Debug("event_relayed",
		observability.F("event", e.EventName()),
		observability.F("key", string(msg.Key)),
	)
	return nil
}

func (r *Relay) message(e domoutbox.Event) (kafka.Message, error) {
	if e == nil {
		return kafka.Message{}, errors.New("kafkarelay: nil event")
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafkarelay: marshal %s: %w", e.EventName(), err)
	}
	env := Envelope{
		EventID:    uuid.NewString(),
		EventType:  e.EventName(),
		OccurredAt: r.now(),
		Producer:   producerName,
		Payload:    payload,
	}
	if k, ok := e.(domoutbox.Keyed); ok {
		env.Key = k.EventKey()
	}
	value, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafkarelay: marshal envelope: %w", err)
	}
	msg := kafka.Message{
		Value: value,
		Headers: []kafka.Header{
			{Key: headerEvent, Value: []byte(env.EventType)},
			{Key: headerEventID, Value: []byte(env.EventID)},
		},
		Time: env.OccurredAt,
	}
	if env.Key != "" {
		msg.Key = []byte(env.Key)
	}
	return msg, nil
}

func (r *Relay) Close() error {
	return r.writer.Close()
}
