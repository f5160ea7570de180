package transform

import "testing"

func TestStatsReconcile(t *testing.T) {
	s := NewStats("Disease", 5)
	s.Keep()
	s.Keep()
	s.Keep()
	s.Discard("term")
	s.Discard("term")

	if !s.Reconcile() {
		t.Fatal("expected counts to reconcile")
	}

	summary := s.Summary()
	if !summary.Reconciled {
		t.Fatal("summary should report reconciled counts")
	}
	if summary.Retained != 3 || summary.Discarded != 2 || summary.Total != 5 {
		t.Fatalf("unexpected summary counts: %+v", summary)
	}
	if summary.DiscardReasons["term"] != 2 {
		t.Fatalf("expected two term discards, got %v", summary.DiscardReasons)
	}
}

func TestStatsReconcileMismatch(t *testing.T) {
	s := NewStats("Measurement", 4)
	s.Keep()
	s.Discard("value")

	if s.Reconcile() {
		t.Fatal("expected mismatch: one record unaccounted for")
	}
	if s.Summary().Reconciled {
		t.Fatal("summary should report the mismatch")
	}
}

func TestStatsNoteDiscardLeavesCountsAlone(t *testing.T) {
	s := NewStats("Treatment", 1)
	s.Keep()
	s.NoteDiscard("schedule_frequency")

	if !s.Reconcile() {
		t.Fatal("attribute-level discards must not affect row accounting")
	}
	if s.DiscardReasons["schedule_frequency"] != 1 {
		t.Fatalf("expected noted discard, got %v", s.DiscardReasons)
	}
}

func TestStatsSummaryCopiesMaps(t *testing.T) {
	s := NewStats("Procedure", 1)
	s.Keep()
	s.Field("body_site")

	summary := s.Summary()
	summary.FieldCounts["body_site"] = 99

	if s.FieldCounts["body_site"] != 1 {
		t.Fatal("mutating a summary must not touch the accumulator")
	}
}
