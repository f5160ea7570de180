package transform

import (
	"testing"
	"time"

	"github.com/phenobridge/platform/pkg/omop"
)

func TestGroupIndividuals(t *testing.T) {
	dob := time.Date(1950, 3, 2, 0, 0, 0, 0, time.UTC)
	records := []omop.FieldMap{
		{
			"id":            int64(1),
			"date_of_birth": dob,
			"sex":           int64(1),
			"vital_status":  int64(2),
		},
		{
			"id":  int64(2),
			"sex": int64(2),
		},
	}
	death := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	vitals := []omop.FieldMap{
		{
			"person_id":            int64(1),
			"vital_status":         int64(2),
			"time_of_death":        death,
			"cause_of_death_id":    "snomed:22298006",
			"cause_of_death_label": "Myocardial infarction",
		},
	}

	out, stats := GroupIndividuals(records, vitals)

	if stats.Retained != 2 || stats.Discarded != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	one, ok := out["1"]
	if !ok {
		t.Fatal("patient 1 missing")
	}
	if one.Sex != "FEMALE" {
		t.Fatalf("expected FEMALE, got %q", one.Sex)
	}
	if one.DateOfBirth == nil || one.DateOfBirth.Seconds != dob.Unix() {
		t.Fatalf("unexpected date of birth: %+v", one.DateOfBirth)
	}
	if one.VitalStatus == nil {
		t.Fatal("deceased patient should carry a vital status block")
	}
	if one.VitalStatus.Status != "DECEASED" {
		t.Fatalf("expected DECEASED, got %q", one.VitalStatus.Status)
	}
	if one.VitalStatus.TimeOfDeath == nil || one.VitalStatus.TimeOfDeath.Timestamp.Seconds != death.Unix() {
		t.Fatalf("unexpected time of death: %+v", one.VitalStatus.TimeOfDeath)
	}
	if one.VitalStatus.CauseOfDeath == nil || one.VitalStatus.CauseOfDeath.ID != "snomed:22298006" {
		t.Fatalf("unexpected cause of death: %+v", one.VitalStatus.CauseOfDeath)
	}

	two, ok := out["2"]
	if !ok {
		t.Fatal("patient 2 missing")
	}
	if two.Sex != "MALE" {
		t.Fatalf("expected MALE, got %q", two.Sex)
	}
	if two.VitalStatus != nil {
		t.Fatal("patient without a vital_status code should carry no block")
	}
}

func TestGroupIndividualsZeroStatusSkipsMerge(t *testing.T) {
	records := []omop.FieldMap{
		{"id": int64(5), "vital_status": int64(0)},
	}
	vitals := []omop.FieldMap{
		{"person_id": int64(5), "vital_status": int64(2)},
	}

	out, _ := GroupIndividuals(records, vitals)

	if out["5"].VitalStatus != nil {
		t.Fatal("zero status on the individual row must suppress the merge")
	}
}

func TestGroupIndividualsVitalLookupIsPerPatient(t *testing.T) {
	records := []omop.FieldMap{
		{"id": int64(1), "vital_status": int64(2)},
		{"id": int64(2), "vital_status": int64(1)},
	}
	vitals := []omop.FieldMap{
		{"person_id": int64(1), "vital_status": int64(2), "cause_of_death_id": "snomed:1", "cause_of_death_label": "x"},
	}

	out, _ := GroupIndividuals(records, vitals)

	if out["1"].VitalStatus == nil || out["1"].VitalStatus.CauseOfDeath == nil {
		t.Fatal("patient 1 should get its own vital record")
	}
	// Patient 2 has a non-zero status but no detail record: an empty block,
	// never patient 1's details.
	if out["2"].VitalStatus == nil {
		t.Fatal("patient 2 should still carry an empty block")
	}
	if out["2"].VitalStatus.CauseOfDeath != nil {
		t.Fatal("patient 2 must not inherit another patient's vital record")
	}
}

func TestGroupIndividualsDiscardsRecordWithoutID(t *testing.T) {
	records := []omop.FieldMap{
		{"sex": int64(1)},
		{"id": int64(9)},
	}

	out, stats := GroupIndividuals(records, nil)

	if len(out) != 1 {
		t.Fatalf("expected one subject, got %d", len(out))
	}
	if stats.Retained != 1 || stats.Discarded != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.DiscardReasons["id"] != 1 {
		t.Fatalf("expected id discard reason, got %v", stats.DiscardReasons)
	}
}
