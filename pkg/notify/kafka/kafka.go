// Package kafka publishes error reports to a Kafka topic so downstream
// alerting can consume them.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/allie-chat/allieproxy/pkg/notify"
)

// DefaultTopic is used when Config.Topic is empty.
const DefaultTopic = "allie.proxy.errors"

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config configures the Kafka Notifier.
type Config struct {
	Brokers []string
	Topic   string
}

// Notifier writes one message per report, keyed by report ID.
type Notifier struct {
	topic  string
	writer messageWriter
}

// New creates a Kafka Notifier. Connections are opened lazily on first write.
func New(c Config) (*Notifier, error) {
	brokers := make([]string, 0, len(c.Brokers))
	for _, b := range c.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}

	topic := c.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	return newWithWriter(topic, &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}), nil
}

func newWithWriter(topic string, w messageWriter) *Notifier {
	return &Notifier{topic: topic, writer: w}
}

func (n *Notifier) Name() string {
	return "kafka"
}

func (n *Notifier) Notify(ctx context.Context, report *notify.Report) error {
	if report == nil {
		return notify.ErrNilReport
	}

	value, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	err = n.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(report.ID.String()),
		Value: value,
		Time:  report.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("write to %s: %w", n.topic, err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (n *Notifier) Close() error {
	return n.writer.Close()
}
