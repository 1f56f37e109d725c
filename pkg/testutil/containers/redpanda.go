//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
)

// KafkaContainer wraps a Redpanda instance, Kafka-compatible and much faster
// to boot than a real broker in tests.
type KafkaContainer struct {
	Container testcontainers.Container
	Broker    string
}

// NewKafkaContainer starts a Redpanda container.
func NewKafkaContainer(t *testing.T) *KafkaContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.2.1")
	if err != nil {
		t.Fatalf("failed to start redpanda container: %v", err)
	}

	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get redpanda seed broker: %v", err)
	}

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	return &KafkaContainer{Container: container, Broker: broker}
}
