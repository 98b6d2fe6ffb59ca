package usecase

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/company-investigation/internal/domain"
)

func body(s string) io.ReadCloser { return io.NopCloser(strings.NewReader(s)) }

func newIngestor(opener *fakeOpener, producer *fakeEnqueuer, store *fakeStreamRepo, kind domain.StreamKind) *StreamIngestor {
	return NewStreamIngestor(opener, producer, store, kind, time.Second)
}

func TestStreamIngestor_HeartbeatsAreTransparent(t *testing.T) {
	// three real records interleaved with lone-newline heartbeats must yield
	// exactly three jobs
	stream := "\n" +
		`{"data":{"company_number":"03977902"},"event":{"timepoint":1}}` + "\n" +
		"\n\n" +
		`{"data":{"company_number":"03977903"},"event":{"timepoint":2}}` + "\n" +
		`{"data":{"company_number":"03977904"},"event":{"timepoint":3}}` + "\n" +
		"\n"
	producer := &fakeEnqueuer{}
	ing := newIngestor(&fakeOpener{}, producer, &fakeStreamRepo{}, domain.StreamCompany)

	err := ing.ingest(context.Background(), strings.NewReader(stream))
	require.ErrorIs(t, err, domain.ErrUpstream) // EOF ends the connection

	require.Len(t, producer.jobs, 3)
	for i, j := range producer.jobs {
		require.NotNil(t, j.kind.StreamingUpdate)
		assert.Nil(t, j.checkID)
		assert.Equal(t, int64(i+1), j.kind.StreamingUpdate.Event.Timepoint)
		require.NotNil(t, j.kind.StreamingUpdate.Kind.Company)
	}
	assert.Equal(t, "03977902", *producer.jobs[0].kind.StreamingUpdate.Kind.Company.CompanyNumber)
}

func TestStreamIngestor_MalformedRecordsAreDropped(t *testing.T) {
	stream := `{not json` + "\n" +
		`{"data":{"company_number":"03977902"}}` + "\n" + // no event
		`{"event":{"timepoint":4}}` + "\n" + // no data
		`{"data":{"company_number":"03977905"},"event":{"timepoint":5}}` + "\n"
	producer := &fakeEnqueuer{}
	ing := newIngestor(&fakeOpener{}, producer, &fakeStreamRepo{}, domain.StreamCompany)

	err := ing.ingest(context.Background(), strings.NewReader(stream))
	require.Error(t, err)

	require.Len(t, producer.jobs, 1)
	assert.Equal(t, int64(5), producer.jobs[0].kind.StreamingUpdate.Event.Timepoint)
}

func TestStreamIngestor_ShareholderRecordsCarryNoPayload(t *testing.T) {
	stream := `{"event":{"timepoint":6}}` + "\n"
	producer := &fakeEnqueuer{}
	ing := newIngestor(&fakeOpener{}, producer, &fakeStreamRepo{}, domain.StreamShareholder)

	err := ing.ingest(context.Background(), strings.NewReader(stream))
	require.Error(t, err)

	require.Len(t, producer.jobs, 1)
	assert.True(t, producer.jobs[0].kind.StreamingUpdate.Kind.Shareholder)
}

func TestStreamIngestor_ResumesFromPersistedTimepoint(t *testing.T) {
	last := int64(11)
	store := &fakeStreamRepo{last: &last}
	opener := &fakeOpener{bodies: []io.ReadCloser{body("\n")}}
	producer := &fakeEnqueuer{}
	ing := newIngestor(opener, producer, store, domain.StreamCompany)

	err := ing.connectAndIngest(context.Background(), newTestBackoff())
	require.Error(t, err) // EOF after the heartbeat

	require.Len(t, opener.timepoints, 1)
	require.NotNil(t, opener.timepoints[0])
	assert.Equal(t, int64(11), *opener.timepoints[0])
}

func TestStreamIngestor_FirstConnectHasNoTimepoint(t *testing.T) {
	opener := &fakeOpener{bodies: []io.ReadCloser{body("\n")}}
	ing := newIngestor(opener, &fakeEnqueuer{}, &fakeStreamRepo{}, domain.StreamOfficer)

	err := ing.connectAndIngest(context.Background(), newTestBackoff())
	require.Error(t, err)

	require.Len(t, opener.timepoints, 1)
	assert.Nil(t, opener.timepoints[0])
}

func TestStreamIngestor_RunReconnectsAndStopsOnCancel(t *testing.T) {
	opener := &fakeOpener{bodies: []io.ReadCloser{
		body(`{"data":{"company_number":"03977902"},"event":{"timepoint":1}}` + "\n"),
		body("\n"),
	}}
	producer := &fakeEnqueuer{}
	ing := newIngestor(opener, producer, &fakeStreamRepo{}, domain.StreamCompany)
	ing.initialBackoff = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := ing.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// both scripted bodies were consumed across reconnects
	assert.GreaterOrEqual(t, len(opener.timepoints), 2)
	require.Len(t, producer.jobs, 1)
}
