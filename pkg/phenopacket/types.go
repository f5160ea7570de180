package phenopacket

import "github.com/phenobridge/platform/pkg/terminology"

// The document model mirrors the Phenopacket schema (v2) in plain structs.
// Optional attributes are pointers so that absence produces no key at all;
// the converter never materializes nulls.

type OntologyClass struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type Timestamp struct {
	Seconds int64 `json:"seconds"`
}

type Age struct {
	ISO8601Duration string `json:"iso8601duration"`
}

type TimeElement struct {
	Timestamp *Timestamp `json:"timestamp,omitempty"`
	Age       *Age       `json:"age,omitempty"`
}

type TimeInterval struct {
	Start Timestamp  `json:"start"`
	End   *Timestamp `json:"end,omitempty"`
}

type Quantity struct {
	Unit  *OntologyClass `json:"unit,omitempty"`
	Value float64        `json:"value"`
}

// Value is either a quantity or an ontology class, never both.
type Value struct {
	Quantity      *Quantity      `json:"quantity,omitempty"`
	OntologyClass *OntologyClass `json:"ontology_class,omitempty"`
}

type ReferenceRange struct {
	Unit *OntologyClass `json:"unit,omitempty"`
	Low  *float64       `json:"low,omitempty"`
	High *float64       `json:"high,omitempty"`
}

type VitalStatus struct {
	Status       string         `json:"status,omitempty"`
	TimeOfDeath  *TimeElement   `json:"time_of_death,omitempty"`
	CauseOfDeath *OntologyClass `json:"cause_of_death,omitempty"`
}

type Individual struct {
	ID                  string         `json:"id"`
	AlternateIDs        []string       `json:"alternate_ids,omitempty"`
	DateOfBirth         *Timestamp     `json:"date_of_birth,omitempty"`
	TimeAtLastEncounter *TimeElement   `json:"time_at_last_encounter,omitempty"`
	VitalStatus         *VitalStatus   `json:"vital_status,omitempty"`
	Sex                 string         `json:"sex,omitempty"`
	Taxonomy            *OntologyClass `json:"taxonomy,omitempty"`

	// Discarded marks a count-accounting placeholder. Never serialized.
	Discarded bool `json:"-"`
}

type Disease struct {
	Term        *OntologyClass `json:"term,omitempty"`
	Onset       *TimeElement   `json:"onset,omitempty"`
	Resolution  *TimeElement   `json:"resolution,omitempty"`
	PrimarySite *OntologyClass `json:"primary_site,omitempty"`

	Discarded bool `json:"-"`
}

type PhenotypicFeature struct {
	Type        *OntologyClass  `json:"type,omitempty"`
	Modifiers   []OntologyClass `json:"modifiers,omitempty"`
	Onset       *TimeElement    `json:"onset,omitempty"`
	Resolution  *TimeElement    `json:"resolution,omitempty"`
	Description string          `json:"description,omitempty"`

	Discarded bool `json:"-"`
}

type Measurement struct {
	Assay          *OntologyClass  `json:"assay,omitempty"`
	Value          *Value          `json:"value,omitempty"`
	TimeObserved   *TimeElement    `json:"time_observed,omitempty"`
	ReferenceRange *ReferenceRange `json:"reference_range,omitempty"`

	Discarded bool `json:"-"`
}

type DoseInterval struct {
	ScheduleFrequency *OntologyClass `json:"schedule_frequency,omitempty"`
	Quantity          *Quantity      `json:"quantity,omitempty"`
	Interval          *TimeInterval  `json:"interval,omitempty"`
}

// Treatment is one course: the per-(patient, agent) aggregate of all its
// dose intervals.
type Treatment struct {
	Agent                 *OntologyClass `json:"agent,omitempty"`
	RouteOfAdministration *OntologyClass `json:"route_of_administration,omitempty"`
	DrugType              string         `json:"drug_type,omitempty"`
	DoseIntervals         []DoseInterval `json:"dose_intervals,omitempty"`

	Discarded bool `json:"-"`
}

type Procedure struct {
	Code      *OntologyClass `json:"code,omitempty"`
	BodySite  *OntologyClass `json:"body_site,omitempty"`
	Performed *TimeElement   `json:"performed,omitempty"`

	Discarded bool `json:"-"`
}

// MedicalAction wraps exactly one of its two kinds.
type MedicalAction struct {
	Treatment *Treatment `json:"treatment,omitempty"`
	Procedure *Procedure `json:"procedure,omitempty"`
}

type MetaData struct {
	Created                  Timestamp              `json:"created"`
	CreatedBy                string                 `json:"created_by"`
	Resources                []terminology.Resource `json:"resources"`
	PhenopacketSchemaVersion string                 `json:"phenopacket_schema_version"`
}

// Phenopacket is the assembled per-patient document. Collection sections
// are pointer-to-slice so that an explicitly supplied empty list survives
// serialization while an unsupplied section produces no key.
type Phenopacket struct {
	ID                 string               `json:"id"`
	Subject            *Individual          `json:"subject,omitempty"`
	PhenotypicFeatures *[]PhenotypicFeature `json:"phenotypic_features,omitempty"`
	Measurements       *[]Measurement       `json:"measurements,omitempty"`
	Diseases           *[]Disease           `json:"diseases,omitempty"`
	MedicalActions     *[]MedicalAction     `json:"medical_actions,omitempty"`
	MetaData           MetaData             `json:"meta_data"`
}
