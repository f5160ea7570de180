package phenopacket

import (
	"time"

	"github.com/phenobridge/platform/pkg/terminology"
)

const SchemaVersion = "2.0"

// Builder assembles one patient document. A section appears in the output
// only when its With method was called; calling it with an empty collection
// keeps an explicit empty list. Discard markers are filtered here and never
// reach the document.
type Builder struct {
	packet Phenopacket
}

func NewBuilder(patientID string, meta MetaData) *Builder {
	return &Builder{packet: Phenopacket{ID: patientID, MetaData: meta}}
}

func (b *Builder) WithSubject(subject Individual) *Builder {
	if subject.Discarded {
		return b
	}
	b.packet.Subject = &subject
	return b
}

func (b *Builder) WithDiseases(diseases []Disease) *Builder {
	kept := make([]Disease, 0, len(diseases))
	for _, d := range diseases {
		if d.Discarded {
			continue
		}
		kept = append(kept, d)
	}
	b.packet.Diseases = &kept
	return b
}

func (b *Builder) WithPhenotypicFeatures(features []PhenotypicFeature) *Builder {
	kept := make([]PhenotypicFeature, 0, len(features))
	for _, f := range features {
		if f.Discarded {
			continue
		}
		kept = append(kept, f)
	}
	b.packet.PhenotypicFeatures = &kept
	return b
}

func (b *Builder) WithMeasurements(measurements []Measurement) *Builder {
	kept := make([]Measurement, 0, len(measurements))
	for _, m := range measurements {
		if m.Discarded {
			continue
		}
		kept = append(kept, m)
	}
	b.packet.Measurements = &kept
	return b
}

func (b *Builder) WithMedicalActions(actions []MedicalAction) *Builder {
	kept := make([]MedicalAction, 0, len(actions))
	kept = append(kept, actions...)
	b.packet.MedicalActions = &kept
	return b
}

func (b *Builder) Build() Phenopacket {
	return b.packet
}

// WrapMedicalActions tags treatments and procedures into the uniform
// medical-action wrapper: treatments first, then procedures, each keeping
// its own input order. Markers are dropped.
func WrapMedicalActions(treatments []Treatment, procedures []Procedure) []MedicalAction {
	actions := make([]MedicalAction, 0, len(treatments)+len(procedures))
	for i := range treatments {
		if treatments[i].Discarded {
			continue
		}
		t := treatments[i]
		actions = append(actions, MedicalAction{Treatment: &t})
	}
	for i := range procedures {
		if procedures[i].Discarded {
			continue
		}
		p := procedures[i]
		actions = append(actions, MedicalAction{Procedure: &p})
	}
	return actions
}

// NewMetaData stamps the mandatory metadata block: creation time, creator,
// and the versioned terminology resources.
func NewMetaData(createdBy string, catalog terminology.Catalog) MetaData {
	return MetaData{
		Created:                  Timestamp{Seconds: time.Now().Unix()},
		CreatedBy:                createdBy,
		Resources:                catalog.Resources,
		PhenopacketSchemaVersion: SchemaVersion,
	}
}
