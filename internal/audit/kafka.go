package audit

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink produces audit events to a Kafka topic. Kafka is optional: when no
// brokers are configured the worker is simply not started.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects to the brokers and ensures the audit topic exists.
func NewKafkaSink(ctx context.Context, brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		// Already-exists is fine; anything else is surfaced.
		if resp, lookupErr := admin.ListTopics(ctx, topic); lookupErr != nil || !resp.Has(topic) {
			client.Close()
			return nil, fmt.Errorf("ensure topic %s: %w", topic, err)
		}
	}

	return &KafkaSink{client: client, topic: topic}, nil
}

// Produce publishes one serialized event, keyed by credential so per-credential
// ordering is preserved.
func (s *KafkaSink) Produce(ctx context.Context, key string, payload []byte) error {
	record := &kgo.Record{Topic: s.topic, Key: []byte(key), Value: payload}
	return s.client.ProduceSync(ctx, record).FirstErr()
}

func (s *KafkaSink) Close() {
	s.client.Close()
}
