package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// DefaultKafkaTopic receives alerts when no topic is configured.
const DefaultKafkaTopic = "runner-alerts"

// MessageWriter is the subset of *kafka.Writer the emitter needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOptions configures a KafkaEmitter.
type KafkaOptions struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	Logger       *zerolog.Logger
}

// KafkaEmitter publishes one JSON message per alert, keyed by chain and
// pair so updates of one pair stay on one partition.
type KafkaEmitter struct {
	writer MessageWriter
	topic  string
}

// NewKafkaEmitter creates a Kafka sink writing synchronously to opts.Topic.
func NewKafkaEmitter(opts KafkaOptions) (*KafkaEmitter, error) {
	if len(opts.Brokers) == 0 {
		return nil, errors.New("kafka: brokers cannot be empty")
	}
	topic := opts.Topic
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	batchTimeout := opts.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 100 * time.Millisecond
	}
	l := log.Logger
	if opts.Logger != nil {
		l = *opts.Logger
	}
	l = l.With().Str("sink", "kafka").Str("topic", topic).Logger()

	w := &kafka.Writer{
		Addr:                   kafka.TCP(opts.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: true,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			l.Debug().Msg(fmt.Sprintf(msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			l.Error().Msg(fmt.Sprintf(msg, args...))
		}),
	}
	return NewKafkaEmitterWithWriter(w, topic), nil
}

// NewKafkaEmitterWithWriter creates a Kafka sink over an existing writer.
func NewKafkaEmitterWithWriter(w MessageWriter, topic string) *KafkaEmitter {
	return &KafkaEmitter{writer: w, topic: topic}
}

// Emit writes the cycle's alerts in one batch.
func (e *KafkaEmitter) Emit(ctx context.Context, cycle Cycle) error {
	if len(cycle.Alerts) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(cycle.Alerts))
	for _, a := range cycle.Alerts {
		value, err := json.Marshal(NewPayload(a))
		if err != nil {
			return fmt.Errorf("marshal alert %s: %w", a.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(a.Chain.String() + "|" + a.PairID),
			Value: value,
			Time:  cycle.StartedAt,
			Headers: []kafka.Header{
				{Key: "content-type", Value: []byte("application/json")},
				{Key: "chain", Value: []byte(a.Chain.String())},
			},
		})
	}

	if err := e.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d alerts to %s: %w", len(msgs), e.topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (e *KafkaEmitter) Close() error {
	return e.writer.Close()
}

var _ Emitter = (*KafkaEmitter)(nil)
