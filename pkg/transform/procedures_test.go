package transform

import (
	"testing"
	"time"

	"github.com/phenobridge/platform/pkg/omop"
)

func TestGroupProcedures(t *testing.T) {
	performed := time.Date(2016, 9, 12, 14, 0, 0, 0, time.UTC)
	records := []omop.FieldMap{
		{
			"person_id":           int64(1),
			"code_id":             "snomed:80146002",
			"code_label":          "Appendectomy",
			"body_site_id":        "snomed:66754008",
			"body_site_label":     "Appendix structure",
			"performed_timestamp": performed,
			"performed_age":       "P34Y",
		},
		{
			"person_id":  int64(1),
			"code_id":    "snomed:18286008",
			"code_label": "Catheterization",
		},
	}

	out, stats := GroupProcedures(records)

	ps := out["1"]
	if len(ps) != 2 {
		t.Fatalf("expected two procedures, got %d", len(ps))
	}
	p := ps[0]
	if p.Code == nil || p.Code.Label != "Appendectomy" {
		t.Fatalf("unexpected code: %+v", p.Code)
	}
	if p.BodySite == nil || p.BodySite.ID != "snomed:66754008" {
		t.Fatalf("unexpected body site: %+v", p.BodySite)
	}
	if p.Performed == nil {
		t.Fatal("performed element missing")
	}
	if p.Performed.Age == nil || p.Performed.Age.ISO8601Duration != "P34Y" {
		t.Fatalf("unexpected performed age: %+v", p.Performed.Age)
	}
	if p.Performed.Timestamp == nil || p.Performed.Timestamp.Seconds != performed.Unix() {
		t.Fatalf("unexpected performed timestamp: %+v", p.Performed.Timestamp)
	}

	if ps[1].BodySite != nil || ps[1].Performed != nil {
		t.Fatal("optional blocks must stay absent without source fields")
	}
	if stats.Retained != 2 || stats.FieldCounts["body_site"] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestGroupProceduresMarksAnchorlessRecords(t *testing.T) {
	records := []omop.FieldMap{
		{"person_id": int64(3), "body_site_id": "snomed:1", "body_site_label": "x"},
	}

	out, stats := GroupProcedures(records)

	ps := out["3"]
	if len(ps) != 1 || !ps[0].Discarded {
		t.Fatalf("expected a single marker, got %+v", ps)
	}
	if stats.DiscardReasons["code"] != 1 {
		t.Fatalf("expected code discard, got %v", stats.DiscardReasons)
	}
}
