package transform

import (
	"github.com/phenobridge/platform/pkg/omop"
	"github.com/phenobridge/platform/pkg/phenopacket"
)

// GroupProcedures converts procedure records. The code is the mandatory
// anchor. The performed element carries both the age duration and the
// timestamp when the source provides them.
func GroupProcedures(records []omop.FieldMap) (map[string][]phenopacket.Procedure, *Stats) {
	stats := NewStats("Procedure", len(records))
	out := make(map[string][]phenopacket.Procedure)

	for _, r := range records {
		pid, _ := r.PersonID()
		if _, seen := out[pid]; !seen {
			out[pid] = []phenopacket.Procedure{}
		}

		codeID, ok := r.String("code_id")
		if !ok {
			out[pid] = append(out[pid], phenopacket.Procedure{Discarded: true})
			stats.Discard("code")
			continue
		}

		label, _ := r.String("code_label")
		p := phenopacket.Procedure{
			Code: &phenopacket.OntologyClass{ID: codeID, Label: label},
		}

		if siteID, ok := r.String("body_site_id"); ok {
			siteLabel, _ := r.String("body_site_label")
			p.BodySite = &phenopacket.OntologyClass{ID: siteID, Label: siteLabel}
			stats.Field("body_site")
		}

		performed := &phenopacket.TimeElement{}
		if age, ok := r.String("performed_age"); ok {
			performed.Age = &phenopacket.Age{ISO8601Duration: age}
		}
		if t, ok := r.Time("performed_timestamp"); ok {
			ts := timestampOf(t)
			performed.Timestamp = &ts
		}
		if performed.Age != nil || performed.Timestamp != nil {
			p.Performed = performed
		}

		stats.Keep()
		out[pid] = append(out[pid], p)
	}

	stats.Reconcile()
	stats.LogSummary()
	return out, stats
}
