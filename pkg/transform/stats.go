package transform

import (
	"github.com/phenobridge/platform/pkg/common/logger"
	"github.com/phenobridge/platform/pkg/common/models"
)

// Stats is the provenance accumulator every grouping function returns
// alongside its entity collection: how many input records were kept, how
// many were discarded and why, and how often each optional field completed.
type Stats struct {
	Entity         string
	Total          int
	Retained       int
	Discarded      int
	DiscardReasons map[string]int
	FieldCounts    map[string]int
}

func NewStats(entity string, total int) *Stats {
	return &Stats{
		Entity:         entity,
		Total:          total,
		DiscardReasons: make(map[string]int),
		FieldCounts:    make(map[string]int),
	}
}

func (s *Stats) Keep() {
	s.Retained++
}

func (s *Stats) Discard(reason string) {
	s.Discarded++
	s.DiscardReasons[reason]++
}

// NoteDiscard tracks a lost attribute without discarding its row (e.g. a
// schedule frequency outside the mappable range).
func (s *Stats) NoteDiscard(reason string) {
	s.DiscardReasons[reason]++
}

// Field records the completion of an optional field on a retained record.
func (s *Stats) Field(name string) {
	s.FieldCounts[name]++
}

// Reconcile checks the count contract: every input record is either
// retained or discarded. A mismatch is an internal defect, surfaced
// loudly but never fatal.
func (s *Stats) Reconcile() bool {
	if s.Retained+s.Discarded == s.Total {
		return true
	}
	logger.Log.WithFields(map[string]interface{}{
		"entity":    s.Entity,
		"total":     s.Total,
		"retained":  s.Retained,
		"discarded": s.Discarded,
	}).Warn("Count discrepancy in grouping")
	return false
}

func (s *Stats) LogSummary() {
	fields := map[string]interface{}{
		"entity":    s.Entity,
		"total":     s.Total,
		"retained":  s.Retained,
		"discarded": s.Discarded,
	}
	for reason, n := range s.DiscardReasons {
		fields["discarded_"+reason] = n
	}
	for name, n := range s.FieldCounts {
		fields["completed_"+name] = n
	}
	logger.Log.WithFields(fields).Info("Grouping summary")
}

func (s *Stats) Summary() models.EntitySummary {
	reasons := make(map[string]int, len(s.DiscardReasons))
	for k, v := range s.DiscardReasons {
		reasons[k] = v
	}
	counts := make(map[string]int, len(s.FieldCounts))
	for k, v := range s.FieldCounts {
		counts[k] = v
	}
	return models.EntitySummary{
		Entity:         s.Entity,
		Total:          s.Total,
		Retained:       s.Retained,
		Discarded:      s.Discarded,
		DiscardReasons: reasons,
		FieldCounts:    counts,
		Reconciled:     s.Retained+s.Discarded == s.Total,
	}
}
