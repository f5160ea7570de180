package transform

import (
	"sort"

	"github.com/phenobridge/platform/pkg/common/logger"
	"github.com/phenobridge/platform/pkg/omop"
	"github.com/phenobridge/platform/pkg/phenopacket"
)

// OMOP drug_type_concept_id to treatment drug type.
var drugTypeByConcept = map[int64]string{
	32879: "ADMINISTRATION_RELATED_TO_PROCEDURE",
	32839: "PRESCRIPTION",
	32833: "EHR_MEDICATION_LIST",
	32825: "EHR_MEDICATION_LIST",
	32821: "EHR_MEDICATION_LIST",
	32818: "EHR_MEDICATION_LIST",
}

const unknownDrugType = "UNKNOWN_DRUG_TYPE"

// Derived daily frequencies with a fixed NCIT coding. Anything outside
// 1..4 has no mappable code and contributes no schedule frequency.
var scheduleFrequencyByCode = map[int64]phenopacket.OntologyClass{
	1: {ID: "ncit:C125004", Label: "Once Daily"},
	2: {ID: "ncit:C64496", Label: "Twice Daily"},
	3: {ID: "ncit:C64527", Label: "Three Times Daily"},
	4: {ID: "ncit:C64530", Label: "Four Times Daily"},
}

// GroupTreatments builds one course per (patient, agent) pair. The source
// fetch returns one row per dose fact and gives no contiguity guarantee,
// so retained rows are partitioned by patient and stable-sorted by
// (agent_id, agent_label) before the run scan. The single linear pass per
// partition produces the same courses as rescanning the full sorted list
// once per patient would.
func GroupTreatments(records []omop.FieldMap) (map[string][]phenopacket.Treatment, *Stats) {
	stats := NewStats("Treatment", len(records))
	out := make(map[string][]phenopacket.Treatment)
	partitions := make(map[string][]omop.FieldMap)

	for _, r := range records {
		pid, _ := r.PersonID()
		if _, seen := out[pid]; !seen {
			out[pid] = []phenopacket.Treatment{}
		}

		if !r.Has("agent_id") || !r.Has("agent_label") {
			out[pid] = append(out[pid], phenopacket.Treatment{Discarded: true})
			stats.Discard("agent")
			if r.Has("route_of_administration_id") {
				stats.Field("discarded_route_of_administration")
			}
			if r.Has("interval_end") {
				stats.Field("discarded_interval_end")
			}
			if r.Has("sched_freq") {
				stats.Field("discarded_schedule_frequency")
			}
			continue
		}

		stats.Keep()
		partitions[pid] = append(partitions[pid], r)
	}

	doseRows := 0
	for pid, rows := range partitions {
		sort.SliceStable(rows, func(i, j int) bool {
			ai, _ := rows[i].String("agent_id")
			aj, _ := rows[j].String("agent_id")
			if ai != aj {
				return ai < aj
			}
			li, _ := rows[i].String("agent_label")
			lj, _ := rows[j].String("agent_label")
			return li < lj
		})

		for idx := 0; idx < len(rows); {
			agentID, _ := rows[idx].String("agent_id")
			agentLabel, _ := rows[idx].String("agent_label")
			course := phenopacket.Treatment{
				Agent: &phenopacket.OntologyClass{ID: agentID, Label: agentLabel},
			}
			drugTypeSet := false

			// Consume the maximal contiguous run for this agent.
			for ; idx < len(rows); idx++ {
				if id, _ := rows[idx].String("agent_id"); id != agentID {
					break
				}
				r := rows[idx]

				if r.Has("route_of_administration_id") {
					stats.Field("route_of_administration")
					if course.RouteOfAdministration == nil {
						id, _ := r.String("route_of_administration_id")
						label, _ := r.String("route_of_administration_label")
						course.RouteOfAdministration = &phenopacket.OntologyClass{ID: id, Label: label}
					}
				}
				if r.Has("drug_type_id") {
					stats.Field("drug_type")
				}
				if !drugTypeSet {
					course.DrugType = drugTypeOf(r)
					drugTypeSet = true
				}
				if r.Has("interval_end") {
					stats.Field("interval_end")
				}

				course.DoseIntervals = append(course.DoseIntervals, doseIntervalOf(r, stats))
			}

			doseRows += len(course.DoseIntervals)
			out[pid] = append(out[pid], course)
		}
	}

	if doseRows != stats.Retained {
		logger.Log.WithFields(map[string]interface{}{
			"entity":         stats.Entity,
			"retained":       stats.Retained,
			"dose_intervals": doseRows,
		}).Warn("Count discrepancy in treatment grouping")
	}

	stats.Reconcile()
	stats.LogSummary()
	return out, stats
}

func drugTypeOf(r omop.FieldMap) string {
	if id, ok := r.Int("drug_type_id"); ok {
		if dt, known := drugTypeByConcept[id]; known {
			return dt
		}
	}
	return unknownDrugType
}

func doseIntervalOf(r omop.FieldMap, stats *Stats) phenopacket.DoseInterval {
	var dose phenopacket.DoseInterval

	if code, ok := r.Int("sched_freq"); ok {
		if oc, known := scheduleFrequencyByCode[code]; known {
			freq := oc
			dose.ScheduleFrequency = &freq
			stats.Field("schedule_frequency")
		} else {
			stats.NoteDiscard("schedule_frequency")
		}
	}

	if value, ok := r.Float("quantity_value"); ok {
		q := &phenopacket.Quantity{Value: value}
		if r.HasAny("quantity_id", "quantity_unit_label") {
			id, _ := r.String("quantity_id")
			label, _ := r.String("quantity_unit_label")
			q.Unit = &phenopacket.OntologyClass{ID: id, Label: label}
		}
		dose.Quantity = q
		stats.Field("quantity")
	}

	if start, ok := r.Time("interval_start"); ok {
		interval := &phenopacket.TimeInterval{Start: timestampOf(start)}
		if end, ok := r.Time("interval_end"); ok {
			ts := timestampOf(end)
			interval.End = &ts
		}
		dose.Interval = interval
	}

	return dose
}
