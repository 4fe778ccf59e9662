package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

type Conf struct {
	client *kgo.Client
}

// NewConf connects a producer to the given brokers, comma separated.
func NewConf(brokers string) (*Conf, error) {
	if brokers == "" {
		return nil, fmt.Errorf("kafka brokers not provided")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(brokers, ",")...),
		kgo.AllowAutoTopicCreation(),
		kgo.ProduceRequestTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return &Conf{client: client}, nil
}

// ProduceMessage publishes one record and waits for the broker ack.
func (c *Conf) ProduceMessage(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{
		Topic: topic,
		Key:   key,
		Value: value,
	}
	if err := c.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce message to %s: %w", topic, err)
	}
	return nil
}

func (c *Conf) Close() {
	c.client.Close()
}
