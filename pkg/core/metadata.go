package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// Metadata is the per-entity attribute bag attached to a SearchResult.
// Each entity type has its own variant so that a filter on, say, a
// project-only field can never be applied to a worker by mistake: the
// filter engine type-switches on the variant and leaves other entity
// families untouched.
type Metadata interface {
	// EntityType returns the entity family this metadata belongs to.
	EntityType() EntityType

	// Common returns the fields shared by every entity family.
	Common() CommonMetadata
}

// CommonMetadata holds the fields every entity family carries.
type CommonMetadata struct {
	Priority    string    `json:"priority,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	LastUpdated time.Time `json:"last_updated,omitzero"`
}

// ProjectMetadata is carried by project results.
type ProjectMetadata struct {
	Stage            string           `json:"stage,omitempty"`
	ComplianceRating ComplianceRating `json:"compliance_rating,omitempty"`
	EBAStatus        string           `json:"eba_status,omitempty"`
	// Value is the project value in dollars, zero when unknown.
	Value          float64 `json:"value,omitempty"`
	CommonMetadata `json:"common"`
}

func (m ProjectMetadata) EntityType() EntityType { return EntityProject }
func (m ProjectMetadata) Common() CommonMetadata { return m.CommonMetadata }

// EmployerMetadata is carried by employer results.
type EmployerMetadata struct {
	EBAStatus      string `json:"eba_status,omitempty"`
	CommonMetadata `json:"common"`
}

func (m EmployerMetadata) EntityType() EntityType { return EntityEmployer }
func (m EmployerMetadata) Common() CommonMetadata { return m.CommonMetadata }

// WorkerMetadata is carried by worker results.
type WorkerMetadata struct {
	UnionStatus    string `json:"union_status,omitempty"`
	CommonMetadata `json:"common"`
}

func (m WorkerMetadata) EntityType() EntityType { return EntityWorker }
func (m WorkerMetadata) Common() CommonMetadata { return m.CommonMetadata }

// SiteMetadata is carried by site results.
type SiteMetadata struct {
	CommonMetadata `json:"common"`
}

func (m SiteMetadata) EntityType() EntityType { return EntitySite }
func (m SiteMetadata) Common() CommonMetadata { return m.CommonMetadata }

// metadataEnvelope is the wire form of the tagged union: the entity type
// discriminates which variant the payload decodes into.
type metadataEnvelope struct {
	EntityType EntityType      `json:"entity_type"`
	Payload    json.RawMessage `json:"payload"`
}

// MarshalMetadata encodes a metadata variant with its discriminator so it
// survives a round trip through the offline cache or the wire.
func MarshalMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s metadata: %w", m.EntityType(), err)
	}
	return json.Marshal(metadataEnvelope{EntityType: m.EntityType(), Payload: payload})
}

// UnmarshalMetadata decodes a metadata variant previously produced by
// MarshalMetadata. A null or empty input yields nil metadata.
func UnmarshalMetadata(data []byte) (Metadata, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var env metadataEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshaling metadata envelope: %w", err)
	}
	switch env.EntityType {
	case EntityProject:
		var m ProjectMetadata
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("unmarshaling project metadata: %w", err)
		}
		return m, nil
	case EntityEmployer:
		var m EmployerMetadata
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("unmarshaling employer metadata: %w", err)
		}
		return m, nil
	case EntityWorker:
		var m WorkerMetadata
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("unmarshaling worker metadata: %w", err)
		}
		return m, nil
	case EntitySite:
		var m SiteMetadata
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("unmarshaling site metadata: %w", err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown metadata entity type %q", env.EntityType)
}
