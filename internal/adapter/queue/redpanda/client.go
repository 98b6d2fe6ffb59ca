package redpanda

import (
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"
)

// kotelHooks wires Kafka client traffic into the process tracer provider.
func kotelHooks() []kgo.Opt {
	tracer := kotel.NewTracer(
		kotel.TracerProvider(otel.GetTracerProvider()),
	)
	svc := kotel.NewKotel(kotel.WithTracer(tracer))
	return []kgo.Opt{kgo.WithHooks(svc.Hooks()...)}
}

// NewProducerClient builds a kgo client for producing only.
func NewProducerClient(brokers []string) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1000000),
	}
	opts = append(opts, kotelHooks()...)
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("redpanda producer client: %w", err)
	}
	return client, nil
}

// NewGroupClient builds a kgo client that consumes the given topics inside a
// consumer group. Offsets are committed for explicitly marked records only so
// a crash before marking redelivers the in-flight record.
func NewGroupClient(brokers []string, groupID string, topics ...string) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}
	if groupID == "" {
		return nil, fmt.Errorf("missing required group ID")
	}
	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.DialTimeout(10 * time.Second),
		kgo.SessionTimeout(30 * time.Second),
		kgo.HeartbeatInterval(3 * time.Second),
		kgo.RebalanceTimeout(10 * time.Second),
		kgo.FetchMaxWait(5 * time.Second),
		kgo.AutoCommitMarks(),
		kgo.AutoCommitInterval(1 * time.Second),
	}
	opts = append(opts, kotelHooks()...)
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("redpanda group client: %w", err)
	}
	return client, nil
}
