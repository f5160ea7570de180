package transform

import (
	"github.com/phenobridge/platform/pkg/omop"
	"github.com/phenobridge/platform/pkg/phenopacket"
)

var sexByCode = map[int64]string{
	0: "UNKNOWN_SEX",
	1: "FEMALE",
	2: "MALE",
	3: "OTHER_SEX",
}

var vitalStatusByCode = map[int64]string{
	0: "UNKNOWN_STATUS",
	1: "ALIVE",
	2: "DECEASED",
}

// GroupIndividuals builds one subject per patient. A record without the
// id anchor is discarded. The per-patient vital status record enriches the
// subject only when the individual row itself reports a non-zero status.
func GroupIndividuals(records, vitals []omop.FieldMap) (map[string]phenopacket.Individual, *Stats) {
	stats := NewStats("Individual", len(records))

	vitalByPatient := make(map[string]omop.FieldMap, len(vitals))
	for _, v := range vitals {
		if pid, ok := v.PersonID(); ok {
			vitalByPatient[pid] = v
		}
	}

	out := make(map[string]phenopacket.Individual, len(records))
	for _, r := range records {
		pid, ok := r.PersonID()
		if !ok {
			stats.Discard("id")
			continue
		}

		ind := phenopacket.Individual{ID: pid}

		if v, ok := r.String("alternate_ids"); ok {
			ind.AlternateIDs = []string{v}
			stats.Field("alternate_ids")
		}
		if t, ok := r.Time("date_of_birth"); ok {
			ts := timestampOf(t)
			ind.DateOfBirth = &ts
			stats.Field("date_of_birth")
		}
		if t, ok := r.Time("time_at_last_encounter"); ok {
			ind.TimeAtLastEncounter = timeElementOf(t)
			stats.Field("time_at_last_encounter")
		}
		if code, ok := r.Int("sex"); ok {
			if sex, known := sexByCode[code]; known {
				ind.Sex = sex
			}
			stats.Field("sex")
		}
		if id, ok := r.String("taxonomy_id"); ok {
			label, _ := r.String("taxonomy_label")
			ind.Taxonomy = &phenopacket.OntologyClass{ID: id, Label: label}
		}

		if code, ok := r.Int("vital_status"); ok && code != 0 {
			ind.VitalStatus = buildVitalStatus(vitalByPatient[pid])
			stats.Field("vital_status")
		}

		stats.Keep()
		out[pid] = ind
	}

	stats.Reconcile()
	stats.LogSummary()
	return out, stats
}

func buildVitalStatus(v omop.FieldMap) *phenopacket.VitalStatus {
	vs := &phenopacket.VitalStatus{}
	if v == nil {
		return vs
	}
	if code, ok := v.Int("vital_status"); ok {
		vs.Status = vitalStatusByCode[code]
	}
	if t, ok := v.Time("time_of_death"); ok {
		vs.TimeOfDeath = timeElementOf(t)
	}
	if id, ok := v.String("cause_of_death_id"); ok {
		label, _ := v.String("cause_of_death_label")
		vs.CauseOfDeath = &phenopacket.OntologyClass{ID: id, Label: label}
	}
	return vs
}
