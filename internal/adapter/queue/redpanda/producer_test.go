package redpanda

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/company-investigation/internal/domain"
)

func relationKind() domain.JobKind {
	return domain.NewRelationJobKind(domain.RelationJob{
		ChildID:            uuid.New(),
		CheckID:            uuid.New(),
		CompanyHouseNumber: "03977902",
		RemainingDepth:     2,
		RelationJobKind:    domain.RelationShareholders,
	})
}

func TestProducer_Enqueue(t *testing.T) {
	client := &clientStub{}
	jobs := &jobsStub{}
	p := NewProducer(client, TopicEntityRelation, jobs)

	checkID := uuid.New()
	require.NoError(t, p.Enqueue(context.Background(), &checkID, relationKind()))

	// job row first, then the message
	assert.Equal(t, 1, jobs.added)
	assert.Equal(t, []uuid.UUID{checkID}, jobs.addedChecks)
	require.Len(t, client.produced, 1)
	rec := client.produced[0]
	assert.Equal(t, TopicEntityRelation, rec.Topic)

	var msg domain.JobMessage
	require.NoError(t, json.Unmarshal(rec.Value, &msg))
	assert.Equal(t, string(rec.Key), msg.ID.String())
	require.NotNil(t, msg.JobKind.Relation)
	assert.Equal(t, "0", string(rec.Headers[0].Value))
}

func TestProducer_Enqueue_WithoutCheck(t *testing.T) {
	client := &clientStub{}
	jobs := &jobsStub{}
	p := NewProducer(client, TopicCompanyStreaming, jobs)

	kind := domain.NewStreamingUpdateJobKind(domain.StreamingUpdateJob{
		Event: domain.StreamEvent{Timepoint: 10},
		Kind:  domain.StreamingUpdateKind{Shareholder: true},
	})
	require.NoError(t, p.Enqueue(context.Background(), nil, kind))
	assert.Equal(t, 1, jobs.added)
	assert.Empty(t, jobs.addedChecks)
	require.Len(t, client.produced, 1)
}

func TestProducer_Enqueue_CapReached(t *testing.T) {
	client := &clientStub{}
	jobs := &jobsStub{numJobs: 2000}
	p := NewProducer(client, TopicEntityRelation, jobs, WithMaxJobsPerCheck(2000))

	checkID := uuid.New()
	// capped enqueues report success but create nothing
	require.NoError(t, p.Enqueue(context.Background(), &checkID, relationKind()))
	require.NoError(t, p.Enqueue(context.Background(), &checkID, relationKind()))
	assert.Equal(t, 0, jobs.added)
	assert.Empty(t, client.produced)
}

func TestProducer_Enqueue_BelowCap(t *testing.T) {
	client := &clientStub{}
	jobs := &jobsStub{numJobs: 1999}
	p := NewProducer(client, TopicEntityRelation, jobs, WithMaxJobsPerCheck(2000))

	checkID := uuid.New()
	require.NoError(t, p.Enqueue(context.Background(), &checkID, relationKind()))
	assert.Equal(t, 1, jobs.added)
	require.Len(t, client.produced, 1)
}

func TestProducer_Enqueue_CapIgnoredWithoutCheck(t *testing.T) {
	client := &clientStub{}
	jobs := &jobsStub{numJobs: 5000}
	p := NewProducer(client, TopicRisk, jobs, WithMaxJobsPerCheck(2000))

	require.NoError(t, p.Enqueue(context.Background(), nil, relationKind()))
	assert.Equal(t, 1, jobs.added)
}

func TestProducer_Enqueue_ProduceError(t *testing.T) {
	client := &clientStub{produceErr: assert.AnError}
	jobs := &jobsStub{}
	p := NewProducer(client, TopicEntityRelation, jobs)

	checkID := uuid.New()
	err := p.Enqueue(context.Background(), &checkID, relationKind())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "op=bus.enqueue")
	// the job row exists even though the produce failed: it stays incomplete
	// and leaves the check incomplete
	assert.Equal(t, 1, jobs.added)
}

func TestProducer_Enqueue_RateLimited(t *testing.T) {
	client := &clientStub{}
	jobs := &jobsStub{}
	// 600/min refills one token every 100ms with burst 1
	p := NewProducer(client, TopicEntityRelation, jobs, WithRateLimitPerMinute(600))

	checkID := uuid.New()
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Enqueue(context.Background(), &checkID, relationKind()))
	}
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Len(t, client.produced, 3)
}

func TestProducer_Enqueue_RateLimitHonorsCancel(t *testing.T) {
	client := &clientStub{}
	jobs := &jobsStub{}
	p := NewProducer(client, TopicEntityRelation, jobs, WithRateLimitPerMinute(1))

	ctx, cancel := context.WithCancel(context.Background())
	checkID := uuid.New()
	require.NoError(t, p.Enqueue(ctx, &checkID, relationKind()))
	cancel()
	err := p.Enqueue(ctx, &checkID, relationKind())
	require.Error(t, err)
	assert.Len(t, client.produced, 1)
}
