package models

import "time"

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // convert-request, document-created, conversion-failed
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Conversion API models
type ConvertRequest struct {
	PatientIDs []string          `json:"patient_ids"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type ConvertResponse struct {
	JobID     string            `json:"job_id"`
	Status    string            `json:"status"`
	Patients  int               `json:"patients"`
	Documents int               `json:"documents"`
	Report    *ConversionReport `json:"report,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// EntitySummary is the per-entity provenance tally for one conversion run.
type EntitySummary struct {
	Entity         string         `json:"entity"`
	Total          int            `json:"total"`
	Retained       int            `json:"retained"`
	Discarded      int            `json:"discarded"`
	DiscardReasons map[string]int `json:"discard_reasons,omitempty"`
	FieldCounts    map[string]int `json:"field_counts,omitempty"`
	Reconciled     bool           `json:"reconciled"`
}

// ConversionReport aggregates the provenance accounting across all
// entity kinds processed in one run.
type ConversionReport struct {
	Patients  int             `json:"patients"`
	Documents int             `json:"documents"`
	Entities  []EntitySummary `json:"entities"`
}
