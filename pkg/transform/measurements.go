package transform

import (
	"github.com/phenobridge/platform/pkg/omop"
	"github.com/phenobridge/platform/pkg/phenopacket"
)

// GroupMeasurements converts measurement records. A record needs both an
// assay label and a value (numeric or coded) to survive; the discard
// reasons distinguish which half was missing.
func GroupMeasurements(records []omop.FieldMap) (map[string][]phenopacket.Measurement, *Stats) {
	stats := NewStats("Measurement", len(records))
	out := make(map[string][]phenopacket.Measurement)

	for _, r := range records {
		pid, _ := r.PersonID()
		if _, seen := out[pid]; !seen {
			out[pid] = []phenopacket.Measurement{}
		}

		hasAssay := r.Has("assay_label")
		hasValue := r.HasAny("value_as_number", "value_label")

		if !hasAssay {
			out[pid] = append(out[pid], phenopacket.Measurement{Discarded: true})
			if !hasValue {
				stats.Discard("assay_and_value")
			} else {
				stats.Discard("assay")
				stats.Field("discarded_value")
			}
			continue
		}
		if !hasValue {
			out[pid] = append(out[pid], phenopacket.Measurement{Discarded: true})
			stats.Discard("value")
			stats.Field("discarded_assay")
			continue
		}

		assayID, _ := r.String("assay_id")
		assayLabel, _ := r.String("assay_label")
		m := phenopacket.Measurement{
			Assay: &phenopacket.OntologyClass{ID: assayID, Label: assayLabel},
		}

		if t, ok := r.Time("measurement_datetime"); ok {
			m.TimeObserved = timeElementOf(t)
			stats.Field("time_observed")
		}

		if number, ok := r.Float("value_as_number"); ok {
			q := &phenopacket.Quantity{Value: number}
			if unitLabel, ok := r.String("unit_label"); ok {
				unitID, _ := r.String("unit_id")
				q.Unit = &phenopacket.OntologyClass{ID: unitID, Label: unitLabel}
			}
			m.Value = &phenopacket.Value{Quantity: q}

			if r.HasAny("range_low", "range_high") {
				rr := &phenopacket.ReferenceRange{}
				if unitLabel, ok := r.String("unit_label"); ok {
					unitID, _ := r.String("unit_id")
					rr.Unit = &phenopacket.OntologyClass{ID: unitID, Label: unitLabel}
				}
				if low, ok := r.Float("range_low"); ok {
					rr.Low = &low
				}
				if high, ok := r.Float("range_high"); ok {
					rr.High = &high
				}
				m.ReferenceRange = rr
				stats.Field("reference_range")
			}
		} else {
			valueID, _ := r.String("value_id")
			valueLabel, _ := r.String("value_label")
			m.Value = &phenopacket.Value{
				OntologyClass: &phenopacket.OntologyClass{ID: valueID, Label: valueLabel},
			}
		}

		stats.Keep()
		out[pid] = append(out[pid], m)
	}

	stats.Reconcile()
	stats.LogSummary()
	return out, stats
}
