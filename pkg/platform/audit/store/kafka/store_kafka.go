// Package kafka publishes audit events to a Kafka topic, keyed by evidence
// item id so all events for one item land in one partition, in order.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "custodia/pkg/platform/audit"
)

// Store implements audit.Store over a Kafka producer.
type Store struct {
	client *kgo.Client
	topic  string
}

// payload is the JSON structure written to the topic. Field names are part of
// the consumer contract; do not rename.
type payload struct {
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	ItemID    string `json:"item_id,omitempty"`
	EntryID   string `json:"entry_id,omitempty"`
	Actor     string `json:"actor,omitempty"`
	Action    string `json:"action"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Device    string `json:"device,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// New connects a producer and ensures the topic exists.
func New(ctx context.Context, brokers []string, topic string) (*Store, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Store{client: client, topic: topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 3, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// Append produces one audit event. Production is synchronous: audit gaps are
// worse than custody-operation latency here.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(payload{
		Category:  string(event.Category),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		ItemID:    event.ItemID,
		EntryID:   event.EntryID,
		Actor:     event.Actor,
		Action:    event.Action,
		Decision:  event.Decision,
		Reason:    event.Reason,
		Device:    event.Device,
		RequestID: event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.ItemID),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes and releases the producer.
func (s *Store) Close() {
	s.client.Close()
}
