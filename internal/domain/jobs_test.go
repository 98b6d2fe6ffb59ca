package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobMessage_RelationJobWire(t *testing.T) {
	id := uuid.New()
	child := uuid.New()
	check := uuid.New()
	officer := "abc123"
	msg := JobMessage{
		ID: id,
		JobKind: NewRelationJobKind(RelationJob{
			ChildID:            child,
			CheckID:            check,
			CompanyHouseNumber: "03977902",
			OfficerID:          &officer,
			RemainingDepth:     2,
			RelationJobKind:    RelationShareholders,
		}),
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, id.String(), wire["id"])
	kind, ok := wire["job_kind"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "relation_job", kind["type"])
	assert.Equal(t, "03977902", kind["company_house_number"])
	assert.Equal(t, float64(2), kind["remaining_depth"])

	var back JobMessage
	require.NoError(t, json.Unmarshal(data, &back))
	require.NotNil(t, back.JobKind.Relation)
	assert.Equal(t, msg.JobKind.Relation, back.JobKind.Relation)
	assert.Nil(t, back.JobKind.Risk)
	assert.Nil(t, back.JobKind.StreamingUpdate)
}

func TestJobKind_RiskVariants(t *testing.T) {
	entity := uuid.New()
	local := NewLocalRiskJobKind(entity, RiskFlags)
	data, err := json.Marshal(local)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"risk_job","scope":"local","entity_id":"`+entity.String()+`","kind":"flags"}`, string(data))

	var back JobKind
	require.NoError(t, json.Unmarshal(data, &back))
	require.NotNil(t, back.Risk)
	require.NotNil(t, back.Risk.Local)
	assert.Equal(t, entity, back.Risk.Local.EntityID)
	assert.Equal(t, RiskFlags, back.Risk.Local.Kind)

	// Reserved global variants must survive the wire without breaking consumers.
	g := RiskCircularRelations
	global := JobKind{Risk: &RiskJob{Global: &g}}
	data, err = json.Marshal(global)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"risk_job","scope":"global","kind":"circular_relations"}`, string(data))

	back = JobKind{}
	require.NoError(t, json.Unmarshal(data, &back))
	require.NotNil(t, back.Risk)
	require.NotNil(t, back.Risk.Global)
	assert.Equal(t, RiskCircularRelations, *back.Risk.Global)
	assert.Nil(t, back.Risk.Local)
}

func TestJobKind_StreamingUpdateVariants(t *testing.T) {
	num := "X1"
	company := NewStreamingUpdateJobKind(StreamingUpdateJob{
		Event: StreamEvent{Timepoint: 10},
		Kind:  StreamingUpdateKind{Company: &CompanyData{CompanyNumber: &num}},
	})
	data, err := json.Marshal(company)
	require.NoError(t, err)

	var back JobKind
	require.NoError(t, json.Unmarshal(data, &back))
	require.NotNil(t, back.StreamingUpdate)
	assert.Equal(t, int64(10), back.StreamingUpdate.Event.Timepoint)
	assert.Equal(t, StreamCompany, back.StreamingUpdate.Kind.StreamKind())
	require.NotNil(t, back.StreamingUpdate.Kind.RegistryNumber())
	assert.Equal(t, "X1", *back.StreamingUpdate.Kind.RegistryNumber())

	// The shareholder variant carries no payload and no registry number.
	sh := NewStreamingUpdateJobKind(StreamingUpdateJob{
		Event: StreamEvent{Timepoint: 11},
		Kind:  StreamingUpdateKind{Shareholder: true},
	})
	data, err = json.Marshal(sh)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"streaming_update_job","event":{"timepoint":11},"kind":{"kind":"shareholder"}}`, string(data))

	back = JobKind{}
	require.NoError(t, json.Unmarshal(data, &back))
	require.NotNil(t, back.StreamingUpdate)
	assert.True(t, back.StreamingUpdate.Kind.Shareholder)
	assert.Equal(t, StreamShareholder, back.StreamingUpdate.Kind.StreamKind())
	assert.Nil(t, back.StreamingUpdate.Kind.RegistryNumber())
}

func TestJobKind_UnknownDiscriminator(t *testing.T) {
	var k JobKind
	err := json.Unmarshal([]byte(`{"type":"nonsense_job"}`), &k)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaInvalid)

	err = json.Unmarshal([]byte(`{"type":"risk_job","scope":"galactic"}`), &k)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaInvalid)
}

func TestJobKind_MarshalEmptyFails(t *testing.T) {
	_, err := json.Marshal(JobKind{})
	require.Error(t, err)

	_, err = json.Marshal(RiskJob{})
	require.Error(t, err)
}

func TestStreamingUpdateKind_OfficerRegistryNumber(t *testing.T) {
	num := "09876543"
	k := StreamingUpdateKind{Officer: &OfficerData{CompanyNumber: &num}}
	require.NotNil(t, k.RegistryNumber())
	assert.Equal(t, num, *k.RegistryNumber())
	assert.Equal(t, StreamOfficer, k.StreamKind())
}
