package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	pkglog "github.com/ncpierced1371/throttle-meet-backend/pkg/log"
)

// ConfluentConsumer implements CDCEventConsumer using confluent-kafka-go.
type ConfluentConsumer struct {
	consumer *kafka.Consumer
	topics   []string
	handler  CDCEventHandler
	doneCh   chan struct{}
}

// NewConfluentConsumer creates a new Kafka consumer for CDC events.
func NewConfluentConsumer(brokers string, topics []string, groupID string, handler CDCEventHandler) (*ConfluentConsumer, error) {
	if len(topics) == 0 {
		return nil, errors.New("no CDC topics configured")
	}

	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"group.id":           groupID,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &ConfluentConsumer{
		consumer: c,
		topics:   topics,
		handler:  handler,
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins consuming CDC messages from Kafka.
func (cc *ConfluentConsumer) Start(ctx context.Context) error {
	if err := cc.consumer.SubscribeTopics(cc.topics, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topics %v: %w", cc.topics, err)
	}

	l := pkglog.L()
	l.Info().Strs("topics", cc.topics).Msg("kafka CDC consumer started")

	go cc.consumeLoop(ctx)

	return nil
}

func (cc *ConfluentConsumer) consumeLoop(ctx context.Context) {
	l := pkglog.L()
	defer close(cc.doneCh)

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("kafka CDC consumer shutting down")
			return
		default:
			msg, err := cc.consumer.ReadMessage(100 * time.Millisecond)
			if err != nil {
				var kerr kafka.Error
				if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				l.Error().Err(err).Msg("kafka CDC consumer error")
				continue
			}

			cc.processMessage(context.WithoutCancel(ctx), msg)
		}
	}
}

func (cc *ConfluentConsumer) processMessage(ctx context.Context, msg *kafka.Message) {
	l := pkglog.L()

	event, err := decodeMessage(msg.Value)
	if err != nil {
		l.Error().Err(err).Msg("failed to unmarshal debezium CDC event")
		return
	}
	if event == nil {
		// tombstone
		return
	}

	l.Debug().
		Str("table", event.Payload.Source.Table).
		Str("op", event.Payload.Op).
		Int64("ts_ms", event.Payload.TsMs).
		Msg("received CDC event")

	if err := cc.handler.HandleCDCEvent(ctx, event); err != nil {
		l.Error().Err(err).
			Str("table", event.Payload.Source.Table).
			Str("op", event.Payload.Op).
			Msg("failed to handle CDC event")
	}
}

// decodeMessage accepts both the schema envelope {"payload":{...}} and a
// bare payload, which Debezium emits when schemas are disabled. Tombstones
// decode to nil.
func decodeMessage(value []byte) (*DebeziumMessage, error) {
	if len(value) == 0 {
		return nil, nil
	}

	var envelope struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(value, &envelope); err != nil {
		return nil, err
	}

	raw := json.RawMessage(value)
	if len(envelope.Payload) > 0 {
		if string(envelope.Payload) == "null" {
			return nil, nil
		}
		raw = envelope.Payload
	}

	var event DebeziumMessage
	if err := json.Unmarshal(raw, &event.Payload); err != nil {
		return nil, err
	}
	if event.Payload.Op == "" {
		return nil, errors.New("debezium payload has no op")
	}
	return &event, nil
}

// Close stops the consumer and releases resources.
// It waits for any in-flight processMessage call to complete before closing.
func (cc *ConfluentConsumer) Close() error {
	<-cc.doneCh // wait for in-flight processMessage to complete
	if err := cc.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	return nil
}
