package transform

import (
	"testing"
	"time"

	"github.com/phenobridge/platform/pkg/omop"
)

func TestGroupMeasurementsQuantity(t *testing.T) {
	observed := time.Date(2019, 4, 5, 10, 0, 0, 0, time.UTC)
	records := []omop.FieldMap{
		{
			"person_id":            int64(1),
			"assay_id":             "loinc:2093-3",
			"assay_label":          "Cholesterol [Mass/volume] in Serum or Plasma",
			"value_as_number":      5.2,
			"unit_id":              "ucum:mmol/L",
			"unit_label":           "millimole per liter",
			"range_low":            3.0,
			"range_high":           5.0,
			"measurement_datetime": observed,
		},
	}

	out, stats := GroupMeasurements(records)

	ms := out["1"]
	if len(ms) != 1 {
		t.Fatalf("expected one measurement, got %d", len(ms))
	}
	m := ms[0]
	if m.Assay == nil || m.Assay.ID != "loinc:2093-3" {
		t.Fatalf("unexpected assay: %+v", m.Assay)
	}
	if m.Value == nil || m.Value.Quantity == nil || m.Value.Quantity.Value != 5.2 {
		t.Fatalf("unexpected value: %+v", m.Value)
	}
	if m.Value.OntologyClass != nil {
		t.Fatal("numeric measurement must not carry a coded value")
	}
	if m.Value.Quantity.Unit == nil || m.Value.Quantity.Unit.Label != "millimole per liter" {
		t.Fatalf("unexpected unit: %+v", m.Value.Quantity.Unit)
	}
	if m.ReferenceRange == nil || m.ReferenceRange.Low == nil || *m.ReferenceRange.Low != 3.0 {
		t.Fatalf("unexpected reference range: %+v", m.ReferenceRange)
	}
	if m.TimeObserved == nil || m.TimeObserved.Timestamp.Seconds != observed.Unix() {
		t.Fatalf("unexpected time observed: %+v", m.TimeObserved)
	}
	if stats.Retained != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestGroupMeasurementsCodedValue(t *testing.T) {
	records := []omop.FieldMap{
		{
			"person_id":   int64(1),
			"assay_id":    "loinc:5778-6",
			"assay_label": "Color of Urine",
			"value_id":    "snomed:371254008",
			"value_label": "Yellow",
		},
	}

	out, _ := GroupMeasurements(records)

	m := out["1"][0]
	if m.Value == nil || m.Value.OntologyClass == nil || m.Value.OntologyClass.Label != "Yellow" {
		t.Fatalf("unexpected coded value: %+v", m.Value)
	}
	if m.Value.Quantity != nil {
		t.Fatal("coded measurement must not carry a quantity")
	}
}

func TestGroupMeasurementsDiscardReasons(t *testing.T) {
	records := []omop.FieldMap{
		{"person_id": int64(1)},
		{"person_id": int64(1), "value_as_number": 1.0},
		{"person_id": int64(1), "assay_label": "x", "assay_id": "loinc:1"},
	}

	out, stats := GroupMeasurements(records)

	if len(out["1"]) != 3 {
		t.Fatalf("markers must stay in the patient slice, got %d", len(out["1"]))
	}
	for _, m := range out["1"] {
		if !m.Discarded {
			t.Fatal("all three records should be markers")
		}
	}
	if stats.DiscardReasons["assay_and_value"] != 1 ||
		stats.DiscardReasons["assay"] != 1 ||
		stats.DiscardReasons["value"] != 1 {
		t.Fatalf("unexpected discard reasons: %v", stats.DiscardReasons)
	}
	if stats.FieldCounts["discarded_value"] != 1 || stats.FieldCounts["discarded_assay"] != 1 {
		t.Fatalf("unexpected orphan tallies: %v", stats.FieldCounts)
	}
	if stats.Retained != 0 || stats.Discarded != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestGroupMeasurementsZeroValueSurvives(t *testing.T) {
	records := []omop.FieldMap{
		{
			"person_id":       int64(1),
			"assay_id":        "loinc:1",
			"assay_label":     "x",
			"value_as_number": 0.0,
		},
	}

	out, stats := GroupMeasurements(records)

	if stats.Discarded != 0 {
		t.Fatal("a present zero value must not be treated as missing")
	}
	m := out["1"][0]
	if m.Value == nil || m.Value.Quantity == nil || m.Value.Quantity.Value != 0 {
		t.Fatalf("unexpected value: %+v", m.Value)
	}
}
