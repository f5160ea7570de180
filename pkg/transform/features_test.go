package transform

import (
	"testing"
	"time"

	"github.com/phenobridge/platform/pkg/omop"
	"github.com/phenobridge/platform/pkg/phenopacket"
)

func TestGroupFeatures(t *testing.T) {
	onset := time.Date(2018, 2, 3, 0, 0, 0, 0, time.UTC)
	records := []omop.FieldMap{
		{
			"person_id":       int64(1),
			"type_id":         "snomed:271807003",
			"type_label":      "Eruption of skin",
			"modifier_id":     "snomed:7771000",
			"modifier_label":  "Left",
			"onset_timestamp": onset,
			"description":     "noted on intake",
		},
		{
			"person_id":  int64(1),
			"type_id":    "snomed:267036007",
			"type_label": "Dyspnea",
		},
	}

	out, stats := GroupFeatures(records, "observation")

	fs := out["1"]
	if len(fs) != 2 {
		t.Fatalf("expected two features, got %d", len(fs))
	}
	if fs[0].Type == nil || fs[0].Type.ID != "snomed:271807003" {
		t.Fatalf("unexpected type: %+v", fs[0].Type)
	}
	if len(fs[0].Modifiers) != 1 || fs[0].Modifiers[0].Label != "Left" {
		t.Fatalf("unexpected modifiers: %+v", fs[0].Modifiers)
	}
	if fs[0].Onset == nil || fs[0].Onset.Timestamp.Seconds != onset.Unix() {
		t.Fatalf("unexpected onset: %+v", fs[0].Onset)
	}
	if fs[0].Description != "noted on intake" {
		t.Fatalf("unexpected description: %q", fs[0].Description)
	}
	if len(fs[1].Modifiers) != 0 || fs[1].Description != "" {
		t.Fatal("optional attributes must stay absent without source fields")
	}
	if stats.Entity != "PhenotypicFeature(observation)" {
		t.Fatalf("unexpected entity tag: %q", stats.Entity)
	}
	if stats.Retained != 2 || stats.Discarded != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestGroupFeaturesMarksAnchorlessRecords(t *testing.T) {
	records := []omop.FieldMap{
		{"person_id": int64(2), "modifier_id": "snomed:1", "modifier_label": "x"},
	}

	out, stats := GroupFeatures(records, "condition")

	fs := out["2"]
	if len(fs) != 1 || !fs[0].Discarded {
		t.Fatalf("expected a single marker, got %+v", fs)
	}
	if stats.DiscardReasons["type"] != 1 {
		t.Fatalf("expected type discard, got %v", stats.DiscardReasons)
	}
	if stats.FieldCounts["discarded_modifier"] != 1 {
		t.Fatalf("expected discarded_modifier tally, got %v", stats.FieldCounts)
	}
}

func TestMergeFeatureMaps(t *testing.T) {
	condition := map[string][]phenopacket.PhenotypicFeature{
		"1": {{Type: &phenopacket.OntologyClass{ID: "snomed:a"}}},
		"2": {{Type: &phenopacket.OntologyClass{ID: "snomed:c"}}},
	}
	observation := map[string][]phenopacket.PhenotypicFeature{
		"1": {{Type: &phenopacket.OntologyClass{ID: "snomed:b"}}},
	}

	merged := MergeFeatureMaps(condition, observation)

	if len(merged["1"]) != 2 {
		t.Fatalf("expected concatenated slices for patient 1, got %d", len(merged["1"]))
	}
	if merged["1"][0].Type.ID != "snomed:a" || merged["1"][1].Type.ID != "snomed:b" {
		t.Fatal("merge must preserve argument order: condition stream first")
	}
	if len(merged["2"]) != 1 {
		t.Fatal("patients present in only one stream must survive the union")
	}
}
