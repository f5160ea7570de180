package transform

import (
	"github.com/phenobridge/platform/pkg/omop"
	"github.com/phenobridge/platform/pkg/phenopacket"
)

// GroupDiseases converts condition records that stayed in the disease
// family. The term is the mandatory anchor; a record without it leaves a
// marker under its patient so the counts still reconcile.
func GroupDiseases(records []omop.FieldMap) (map[string][]phenopacket.Disease, *Stats) {
	stats := NewStats("Disease", len(records))
	out := make(map[string][]phenopacket.Disease)

	for _, r := range records {
		pid, _ := r.PersonID()
		if _, seen := out[pid]; !seen {
			out[pid] = []phenopacket.Disease{}
		}

		termID, ok := r.String("term_id")
		if !ok {
			out[pid] = append(out[pid], phenopacket.Disease{Discarded: true})
			stats.Discard("term")
			if r.Has("resolution") {
				stats.Field("discarded_resolution")
			}
			if r.Has("primary_site_id") {
				stats.Field("discarded_primary_site")
			}
			continue
		}

		label, _ := r.String("term_label")
		d := phenopacket.Disease{
			Term: &phenopacket.OntologyClass{ID: termID, Label: label},
		}

		if t, ok := r.Time("onset_timestamp"); ok {
			d.Onset = timeElementOf(t)
		}
		if t, ok := r.Time("resolution"); ok {
			d.Resolution = timeElementOf(t)
			stats.Field("resolution")
		}
		if siteID, ok := r.String("primary_site_id"); ok {
			siteLabel, _ := r.String("primary_site_label")
			d.PrimarySite = &phenopacket.OntologyClass{ID: siteID, Label: siteLabel}
			stats.Field("primary_site")
		}

		stats.Keep()
		out[pid] = append(out[pid], d)
	}

	stats.Reconcile()
	stats.LogSummary()
	return out, stats
}
