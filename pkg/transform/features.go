package transform

import (
	"github.com/phenobridge/platform/pkg/omop"
	"github.com/phenobridge/platform/pkg/phenopacket"
)

// GroupFeatures converts phenotypic-feature records from either source
// stream (observation rows, or condition rows reclassified by the semantic
// mapping). The source tag only labels the summary.
func GroupFeatures(records []omop.FieldMap, source string) (map[string][]phenopacket.PhenotypicFeature, *Stats) {
	stats := NewStats("PhenotypicFeature("+source+")", len(records))
	out := make(map[string][]phenopacket.PhenotypicFeature)

	for _, r := range records {
		pid, _ := r.PersonID()
		if _, seen := out[pid]; !seen {
			out[pid] = []phenopacket.PhenotypicFeature{}
		}

		typeID, ok := r.String("type_id")
		if !ok {
			out[pid] = append(out[pid], phenopacket.PhenotypicFeature{Discarded: true})
			stats.Discard("type")
			if r.Has("modifier_id") {
				stats.Field("discarded_modifier")
			}
			if r.Has("resolution") {
				stats.Field("discarded_resolution")
			}
			if r.Has("description") {
				stats.Field("discarded_description")
			}
			continue
		}

		label, _ := r.String("type_label")
		f := phenopacket.PhenotypicFeature{
			Type: &phenopacket.OntologyClass{ID: typeID, Label: label},
		}

		if modID, ok := r.String("modifier_id"); ok {
			modLabel, _ := r.String("modifier_label")
			f.Modifiers = []phenopacket.OntologyClass{{ID: modID, Label: modLabel}}
			stats.Field("modifier")
		}
		if t, ok := r.Time("onset_timestamp"); ok {
			f.Onset = timeElementOf(t)
		}
		if t, ok := r.Time("resolution"); ok {
			f.Resolution = timeElementOf(t)
			stats.Field("resolution")
		}
		if desc, ok := r.String("description"); ok {
			f.Description = desc
			stats.Field("description")
		}

		stats.Keep()
		out[pid] = append(out[pid], f)
	}

	stats.Reconcile()
	stats.LogSummary()
	return out, stats
}

// MergeFeatureMaps combines the two reclassified feature streams per
// patient: union of patient keys, slices concatenated in argument order.
func MergeFeatureMaps(a, b map[string][]phenopacket.PhenotypicFeature) map[string][]phenopacket.PhenotypicFeature {
	merged := make(map[string][]phenopacket.PhenotypicFeature, len(a)+len(b))
	for pid, features := range a {
		merged[pid] = append(merged[pid], features...)
	}
	for pid, features := range b {
		merged[pid] = append(merged[pid], features...)
	}
	return merged
}
