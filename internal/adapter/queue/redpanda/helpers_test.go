package redpanda

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/company-investigation/internal/domain"
)

// jobsStub implements domain.JobRepository with call counters.
type jobsStub struct {
	numJobs     int
	numJobsErr  error
	addErr      error
	added       int
	addedChecks []uuid.UUID
	completed   []uuid.UUID
	errored     []uuid.UUID
	completeErr error
}

func (j *jobsStub) AddJob(_ domain.Context) (uuid.UUID, error) {
	if j.addErr != nil {
		return uuid.Nil, j.addErr
	}
	j.added++
	return uuid.New(), nil
}

func (j *jobsStub) AddJobWithCheck(_ domain.Context, checkID uuid.UUID) (uuid.UUID, error) {
	if j.addErr != nil {
		return uuid.Nil, j.addErr
	}
	j.added++
	j.addedChecks = append(j.addedChecks, checkID)
	return uuid.New(), nil
}

func (j *jobsStub) CompleteJob(_ domain.Context, jobID uuid.UUID) error {
	if j.completeErr != nil {
		return j.completeErr
	}
	j.completed = append(j.completed, jobID)
	return nil
}

func (j *jobsStub) UpdateJobWithError(_ domain.Context, jobID uuid.UUID) error {
	j.errored = append(j.errored, jobID)
	return nil
}

func (j *jobsStub) CheckCompletedAt(_ domain.Context, _ uuid.UUID) (*time.Time, error) {
	return nil, nil
}

func (j *jobsStub) DoesCheckHaveErroredJob(_ domain.Context, _ uuid.UUID) (bool, error) {
	return false, nil
}

func (j *jobsStub) GetNumOfJobs(_ domain.Context, _ uuid.UUID) (int, error) {
	return j.numJobs, j.numJobsErr
}

// clientStub implements producerClient and consumerClient, recording
// produced records and marked commits.
type clientStub struct {
	produceErr error
	produced   []*kgo.Record
	marked     []*kgo.Record
}

func (c *clientStub) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	if c.produceErr != nil {
		return kgo.ProduceResults{{Err: c.produceErr}}
	}
	c.produced = append(c.produced, rs...)
	var out kgo.ProduceResults
	for _, r := range rs {
		out = append(out, kgo.ProduceResult{Record: r})
	}
	return out
}

func (c *clientStub) PollFetches(_ context.Context) kgo.Fetches { return nil }

func (c *clientStub) MarkCommitRecords(rs ...*kgo.Record) {
	c.marked = append(c.marked, rs...)
}

func (c *clientStub) Close() {}
