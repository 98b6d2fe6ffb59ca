package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// JobMessage is the bus envelope. The id matches the durable Job row so
// completion accounting survives the round-trip through the broker.
type JobMessage struct {
	ID      uuid.UUID `json:"id"`
	JobKind JobKind   `json:"job_kind"`
}

// JobKind is a tagged union with exactly one variant set. On the wire it is
// internally tagged with a "type" discriminator:
//
//	{"type":"relation_job", ...}
//	{"type":"risk_job", ...}
//	{"type":"streaming_update_job", ...}
type JobKind struct {
	Relation        *RelationJob
	Risk            *RiskJob
	StreamingUpdate *StreamingUpdateJob
}

const (
	jobTypeRelation        = "relation_job"
	jobTypeRisk            = "risk_job"
	jobTypeStreamingUpdate = "streaming_update_job"
)

func (k JobKind) MarshalJSON() ([]byte, error) {
	switch {
	case k.Relation != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*RelationJob
		}{jobTypeRelation, k.Relation})
	case k.Risk != nil:
		// RiskJob has its own marshaler; embedding it would promote that
		// marshaler onto the wrapper and lose the type tag, so the tag is
		// spliced in after the fact.
		raw, err := json.Marshal(k.Risk)
		if err != nil {
			return nil, err
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		m["type"] = json.RawMessage(`"` + jobTypeRisk + `"`)
		return json.Marshal(m)
	case k.StreamingUpdate != nil:
		return json.Marshal(struct {
			Type string `json:"type"`
			*StreamingUpdateJob
		}{jobTypeStreamingUpdate, k.StreamingUpdate})
	}
	return nil, fmt.Errorf("op=domain.JobKind.MarshalJSON: no variant set: %w", ErrInvalidArgument)
}

func (k *JobKind) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("op=domain.JobKind.UnmarshalJSON: %w: %w", ErrSchemaInvalid, err)
	}
	*k = JobKind{}
	switch tag.Type {
	case jobTypeRelation:
		var j RelationJob
		if err := json.Unmarshal(data, &j); err != nil {
			return fmt.Errorf("op=domain.JobKind.UnmarshalJSON: %w: %w", ErrSchemaInvalid, err)
		}
		k.Relation = &j
	case jobTypeRisk:
		var j RiskJob
		if err := json.Unmarshal(data, &j); err != nil {
			return fmt.Errorf("op=domain.JobKind.UnmarshalJSON: %w: %w", ErrSchemaInvalid, err)
		}
		k.Risk = &j
	case jobTypeStreamingUpdate:
		var j StreamingUpdateJob
		if err := json.Unmarshal(data, &j); err != nil {
			return fmt.Errorf("op=domain.JobKind.UnmarshalJSON: %w: %w", ErrSchemaInvalid, err)
		}
		k.StreamingUpdate = &j
	default:
		return fmt.Errorf("op=domain.JobKind.UnmarshalJSON: unknown job type %q: %w", tag.Type, ErrSchemaInvalid)
	}
	return nil
}

// RelationJobKind names the registry relation a RelationJob expands.
type RelationJobKind string

const (
	RelationShareholders RelationJobKind = "shareholders"
	RelationOfficers     RelationJobKind = "officers"
	RelationAppointments RelationJobKind = "appointments"
)

// RelationJob asks the relation worker to expand one relation of one entity.
// ChildID is the already-persisted entity the discovered records attach to.
// OfficerID is required for the appointments variant only.
type RelationJob struct {
	ChildID            uuid.UUID       `json:"child_id"`
	CheckID            uuid.UUID       `json:"check_id"`
	CompanyHouseNumber string          `json:"company_house_number"`
	OfficerID          *string         `json:"officer_id,omitempty"`
	RemainingDepth     int             `json:"remaining_depth"`
	RelationJobKind    RelationJobKind `json:"relation_job_kind"`
}

// LocalRiskKind names a per-entity risk rule.
type LocalRiskKind string

const (
	RiskFlags      LocalRiskKind = "flags"
	RiskOutlierAge LocalRiskKind = "outlier_age"
	RiskDormancy   LocalRiskKind = "dormancy"
)

// GlobalRiskKind names a check-wide risk rule. The variants are reserved:
// they are accepted at the wire level but the risk worker answers
// "unimplemented" for them.
type GlobalRiskKind string

const (
	RiskCircularRelations GlobalRiskKind = "circular_relations"
	RiskMassRegistration  GlobalRiskKind = "mass_registration"
)

// LocalRiskJob targets one entity with one rule.
type LocalRiskJob struct {
	EntityID uuid.UUID     `json:"entity_id"`
	Kind     LocalRiskKind `json:"kind"`
}

// RiskJob is a two-variant union on the "scope" discriminator:
//
//	{"scope":"local","entity_id":"...","kind":"flags"}
//	{"scope":"global","kind":"circular_relations"}
type RiskJob struct {
	Global *GlobalRiskKind
	Local  *LocalRiskJob
}

const (
	riskScopeGlobal = "global"
	riskScopeLocal  = "local"
)

func (j RiskJob) MarshalJSON() ([]byte, error) {
	switch {
	case j.Local != nil:
		return json.Marshal(struct {
			Scope string `json:"scope"`
			*LocalRiskJob
		}{riskScopeLocal, j.Local})
	case j.Global != nil:
		return json.Marshal(struct {
			Scope string         `json:"scope"`
			Kind  GlobalRiskKind `json:"kind"`
		}{riskScopeGlobal, *j.Global})
	}
	return nil, fmt.Errorf("op=domain.RiskJob.MarshalJSON: no variant set: %w", ErrInvalidArgument)
}

func (j *RiskJob) UnmarshalJSON(data []byte) error {
	var tag struct {
		Scope string `json:"scope"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("op=domain.RiskJob.UnmarshalJSON: %w: %w", ErrSchemaInvalid, err)
	}
	*j = RiskJob{}
	switch tag.Scope {
	case riskScopeLocal:
		var l LocalRiskJob
		if err := json.Unmarshal(data, &l); err != nil {
			return fmt.Errorf("op=domain.RiskJob.UnmarshalJSON: %w: %w", ErrSchemaInvalid, err)
		}
		j.Local = &l
	case riskScopeGlobal:
		var g struct {
			Kind GlobalRiskKind `json:"kind"`
		}
		if err := json.Unmarshal(data, &g); err != nil {
			return fmt.Errorf("op=domain.RiskJob.UnmarshalJSON: %w: %w", ErrSchemaInvalid, err)
		}
		j.Global = &g.Kind
	default:
		return fmt.Errorf("op=domain.RiskJob.UnmarshalJSON: unknown risk scope %q: %w", tag.Scope, ErrSchemaInvalid)
	}
	return nil
}

// StreamEvent is the envelope metadata of one registry stream record.
// Timepoint is the monotonically increasing resume cursor.
type StreamEvent struct {
	Timepoint   int64  `json:"timepoint"`
	PublishedAt string `json:"published_at,omitempty"`
	Type        string `json:"type,omitempty"`
}

// CompanyData is the sparse company payload of a stream record. Every field
// is optional at the wire level.
type CompanyData struct {
	CompanyNumber           *string        `json:"company_number,omitempty"`
	CompanyName             *string        `json:"company_name,omitempty"`
	CompanyStatus           *string        `json:"company_status,omitempty"`
	Type                    *string        `json:"type,omitempty"`
	Jurisdiction            *string        `json:"jurisdiction,omitempty"`
	DateOfCreation          *string        `json:"date_of_creation,omitempty"`
	RegisteredOfficeAddress *StreamAddress `json:"registered_office_address,omitempty"`
	SICCodes                []string       `json:"sic_codes,omitempty"`
}

// OfficerData is the sparse officer payload of a stream record.
type OfficerData struct {
	Name          *string        `json:"name,omitempty"`
	CompanyNumber *string        `json:"company_number,omitempty"`
	OfficerRole   *string        `json:"officer_role,omitempty"`
	AppointedOn   *string        `json:"appointed_on,omitempty"`
	ResignedOn    *string        `json:"resigned_on,omitempty"`
	Nationality   *string        `json:"nationality,omitempty"`
	DateOfBirth   *PartialDate   `json:"date_of_birth,omitempty"`
	Address       *StreamAddress `json:"address,omitempty"`
}

// StreamAddress is the sparse address shape shared by stream payloads.
type StreamAddress struct {
	AddressLine1 *string `json:"address_line_1,omitempty"`
	AddressLine2 *string `json:"address_line_2,omitempty"`
	Locality     *string `json:"locality,omitempty"`
	Country      *string `json:"country,omitempty"`
	PostalCode   *string `json:"postal_code,omitempty"`
}

// PartialDate is the registry's month/year disclosure for dates of birth.
type PartialDate struct {
	Day   *int `json:"day,omitempty"`
	Month *int `json:"month,omitempty"`
	Year  *int `json:"year,omitempty"`
}

// StreamingUpdateKind is a three-variant union on the "kind" discriminator.
// The shareholder variant carries no payload:
//
//	{"kind":"company","data":{...}}
//	{"kind":"officer","data":{...}}
//	{"kind":"shareholder"}
type StreamingUpdateKind struct {
	Company     *CompanyData
	Officer     *OfficerData
	Shareholder bool
}

func (k StreamingUpdateKind) MarshalJSON() ([]byte, error) {
	switch {
	case k.Company != nil:
		return json.Marshal(struct {
			Kind string       `json:"kind"`
			Data *CompanyData `json:"data"`
		}{string(StreamCompany), k.Company})
	case k.Officer != nil:
		return json.Marshal(struct {
			Kind string       `json:"kind"`
			Data *OfficerData `json:"data"`
		}{string(StreamOfficer), k.Officer})
	case k.Shareholder:
		return json.Marshal(struct {
			Kind string `json:"kind"`
		}{string(StreamShareholder)})
	}
	return nil, fmt.Errorf("op=domain.StreamingUpdateKind.MarshalJSON: no variant set: %w", ErrInvalidArgument)
}

func (k *StreamingUpdateKind) UnmarshalJSON(data []byte) error {
	var tag struct {
		Kind string          `json:"kind"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("op=domain.StreamingUpdateKind.UnmarshalJSON: %w: %w", ErrSchemaInvalid, err)
	}
	*k = StreamingUpdateKind{}
	switch StreamKind(tag.Kind) {
	case StreamCompany:
		var d CompanyData
		if len(tag.Data) > 0 {
			if err := json.Unmarshal(tag.Data, &d); err != nil {
				return fmt.Errorf("op=domain.StreamingUpdateKind.UnmarshalJSON: %w: %w", ErrSchemaInvalid, err)
			}
		}
		k.Company = &d
	case StreamOfficer:
		var d OfficerData
		if len(tag.Data) > 0 {
			if err := json.Unmarshal(tag.Data, &d); err != nil {
				return fmt.Errorf("op=domain.StreamingUpdateKind.UnmarshalJSON: %w: %w", ErrSchemaInvalid, err)
			}
		}
		k.Officer = &d
	case StreamShareholder:
		k.Shareholder = true
	default:
		return fmt.Errorf("op=domain.StreamingUpdateKind.UnmarshalJSON: unknown stream kind %q: %w", tag.Kind, ErrSchemaInvalid)
	}
	return nil
}

// StreamKind maps the variant back to the processed-update cursor kind.
func (k StreamingUpdateKind) StreamKind() StreamKind {
	switch {
	case k.Company != nil:
		return StreamCompany
	case k.Officer != nil:
		return StreamOfficer
	default:
		return StreamShareholder
	}
}

// RegistryNumber extracts the registry number from the payload, or nil when
// the variant carries none.
func (k StreamingUpdateKind) RegistryNumber() *string {
	switch {
	case k.Company != nil:
		return k.Company.CompanyNumber
	case k.Officer != nil:
		return k.Officer.CompanyNumber
	}
	return nil
}

// StreamingUpdateJob carries one registry stream record across the bus.
type StreamingUpdateJob struct {
	Event StreamEvent         `json:"event"`
	Kind  StreamingUpdateKind `json:"kind"`
}

// NewRelationJobKind wraps a RelationJob into a JobKind.
func NewRelationJobKind(j RelationJob) JobKind { return JobKind{Relation: &j} }

// NewLocalRiskJobKind wraps a per-entity risk rule into a JobKind.
func NewLocalRiskJobKind(entityID uuid.UUID, kind LocalRiskKind) JobKind {
	return JobKind{Risk: &RiskJob{Local: &LocalRiskJob{EntityID: entityID, Kind: kind}}}
}

// NewStreamingUpdateJobKind wraps a stream record into a JobKind.
func NewStreamingUpdateJobKind(j StreamingUpdateJob) JobKind {
	return JobKind{StreamingUpdate: &j}
}
