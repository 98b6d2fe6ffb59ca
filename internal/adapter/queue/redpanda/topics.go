// Package redpanda provides the Redpanda/Kafka bus integration.
//
// It carries the job pipeline's typed messages: producers create the durable
// job row before producing, consumers route repeatedly failing deliveries to
// a per-topic dead-letter queue.
package redpanda

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// Topic names are part of the wire contract.
const (
	TopicEntityRelation       = "entity-relation"
	TopicRisk                 = "risk"
	TopicCompanyStreaming     = "company-streaming"
	TopicOfficerStreaming     = "officer-streaming"
	TopicShareholderStreaming = "shareholder-streaming"

	// DLQSuffix derives the dead-letter topic from the main topic name.
	DLQSuffix = "-DLQ"
)

// Consumer group ids, one per subscription.
const (
	GroupEntityRelation  = "Entity-Relation-Sub"
	GroupRisk            = "Risk-Sub"
	GroupMonitoredUpdate = "monitored-update-sub"
)

// MaxJobRetry is the delivery bound before a message moves to the DLQ.
const MaxJobRetry = 3

// DLQTopic returns the dead-letter topic paired with a main topic.
func DLQTopic(topic string) string { return topic + DLQSuffix }

// StreamingTopics are consumed together by the monitored-update subscription.
var StreamingTopics = []string{TopicCompanyStreaming, TopicOfficerStreaming, TopicShareholderStreaming}

// EnsureTopics creates the pipeline's topics if missing. The relation topic
// gets a single partition: one partition plus one group member gives serial
// delivery, which the relation worker's ordering depends on. The shared
// topics get multiple partitions for horizontal scaling.
func EnsureTopics(ctx context.Context, client *kgo.Client) error {
	topics := []struct {
		name       string
		partitions int32
	}{
		{TopicEntityRelation, 1},
		{DLQTopic(TopicEntityRelation), 1},
		{TopicRisk, 8},
		{DLQTopic(TopicRisk), 1},
		{TopicCompanyStreaming, 8},
		{DLQTopic(TopicCompanyStreaming), 1},
		{TopicOfficerStreaming, 8},
		{DLQTopic(TopicOfficerStreaming), 1},
		{TopicShareholderStreaming, 8},
		{DLQTopic(TopicShareholderStreaming), 1},
	}
	for _, t := range topics {
		if err := createTopicIfNotExists(ctx, client, t.name, t.partitions, 1); err != nil {
			return fmt.Errorf("op=bus.ensure_topics: topic %s: %w", t.name, err)
		}
	}
	return nil
}

// createTopicIfNotExists creates a topic via the Kafka admin API and treats
// "topic already exists" as success.
func createTopicIfNotExists(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicationFactor int16) error {
	if topic == "" {
		return fmt.Errorf("topic name cannot be empty")
	}
	if partitions <= 0 {
		return fmt.Errorf("partitions must be greater than 0")
	}
	if replicationFactor <= 0 {
		return fmt.Errorf("replication factor must be greater than 0")
	}

	req := kmsg.NewCreateTopicsRequest()
	req.TimeoutMillis = 30000

	topicReq := kmsg.NewCreateTopicsRequestTopic()
	topicReq.Topic = topic
	topicReq.NumPartitions = partitions
	topicReq.ReplicationFactor = replicationFactor
	req.Topics = append(req.Topics, topicReq)

	resp, err := client.Request(ctx, &req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	createTopicsResp, ok := resp.(*kmsg.CreateTopicsResponse)
	if !ok {
		return fmt.Errorf("unexpected response type: %T", resp)
	}
	for _, topicResp := range createTopicsResp.Topics {
		if topicResp.ErrorCode != 0 {
			// error code 36 = TOPIC_ALREADY_EXISTS
			if topicResp.ErrorCode == 36 {
				slog.Info("topic already exists", slog.String("topic", topicResp.Topic))
				continue
			}
			errorMsg := ""
			if topicResp.ErrorMessage != nil {
				errorMsg = *topicResp.ErrorMessage
			}
			return fmt.Errorf("create topic error: %s (code %d)", errorMsg, topicResp.ErrorCode)
		}
		slog.Info("topic created",
			slog.String("topic", topicResp.Topic),
			slog.Int("partitions", int(partitions)))
	}
	return nil
}
