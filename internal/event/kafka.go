// Package event carries domain events over Kafka.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrNoReader is returned by ReadMessage on a publish-only client.
var ErrNoReader = errors.New("kafka client has no consumer group")

type KafkaClient struct {
	writer *kafka.Writer
	reader *kafka.Reader
}

// NewKafkaClient creates a client for topic. The reader is only created when
// group is set, so publish-only processes never join the consumer group.
func NewKafkaClient(brokers []string, topic, group string) (*KafkaClient, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	if topic == "" {
		return nil, errors.New("no kafka topic configured")
	}

	client := &KafkaClient{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
	}
	if group != "" {
		client.reader = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  group,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
	}
	return client, nil
}

// WriteMessage publishes message as JSON keyed by the event name.
func (c *KafkaClient) WriteMessage(ctx context.Context, event string, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return c.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event),
		Value: data,
	})
}

// ReadMessage blocks for the next message and returns its event name and
// payload. Offsets are committed by the consumer group.
func (c *KafkaClient) ReadMessage(ctx context.Context) (string, []byte, error) {
	if c.reader == nil {
		return "", nil, ErrNoReader
	}
	msg, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return "", nil, err
	}
	return string(msg.Key), msg.Value, nil
}

func (c *KafkaClient) Close() error {
	errs := []error{c.writer.Close()}
	if c.reader != nil {
		errs = append(errs, c.reader.Close())
	}
	return errors.Join(errs...)
}
