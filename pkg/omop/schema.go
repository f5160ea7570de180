package omop

// Entity identifies one kind of source row handled by the converter.
type Entity string

const (
	EntityIndividual         Entity = "Individual"
	EntityVitalStatus        Entity = "VitalStatus"
	EntityCondition          Entity = "Condition"
	EntityObservationFeature Entity = "PhenotypicFeature"
	EntityMeasurement        Entity = "Measurement"
	EntityTreatment          Entity = "Treatment"
	EntityProcedure          Entity = "Procedure"
)

// Field schemas mirror the column order of the fetch queries. A row for an
// entity kind must have exactly as many values as its schema has names.
var (
	IndividualFields = []string{
		"id", "alternate_ids", "date_of_birth", "time_at_last_encounter",
		"vital_status", "sex", "karyotypic_sex", "gender",
		"taxonomy_id", "taxonomy_label",
	}

	VitalStatusFields = []string{
		"person_id", "vital_status", "time_of_death",
		"cause_of_death_id", "cause_of_death_label",
	}

	// One condition result set carries two naming projections: the same
	// positions read as disease fields or as phenotypic-feature fields,
	// depending on how the row classifies.
	ConditionDiseaseFields = []string{
		"person_id", "term_id", "term_label", "condition_source_value",
		"excluded", "onset_timestamp", "resolution",
		"clinical_tnm_finding_id", "clinical_tnm_finding_label",
		"primary_site_id", "primary_site_label", "concept_id",
	}

	ConditionFeatureFields = []string{
		"person_id", "type_id", "type_label", "condition_source_value",
		"excluded", "onset_timestamp", "resolution",
		"clinical_tnm_finding_id", "clinical_tnm_finding_label",
		"modifier_id", "modifier_label", "concept_id",
	}

	ObservationFeatureFields = []string{
		"person_id", "type_id", "type_label", "modifier_id", "modifier_label",
		"description", "onset_timestamp", "onset_age",
	}

	MeasurementFields = []string{
		"person_id", "measurement_concept_id", "assay_id", "assay_label",
		"value_as_number", "value_id", "value_label", "range_low", "range_high",
		"measurement_datetime", "unit_id", "unit_label", "concept_id",
		"unit_source_value", "visit_occurrence_id", "row_number",
	}

	TreatmentFields = []string{
		"person_id", "agent_id", "agent_label",
		"route_of_administration_id", "route_of_administration_label",
		"quantity_id", "quantity_unit_label", "quantity_value",
		"interval_start", "interval_end", "drug_type_id", "sched_freq",
	}

	ProcedureFields = []string{
		"person_id", "code_id", "code_label", "body_site_id", "body_site_label",
		"performed_timestamp", "performed_age",
	}
)

// Sentinel strings produced by the vocabulary joins when a concept has no
// match. Treated identically to NULL.
var sentinelValues = map[string]struct{}{
	"None:No matching concept": {},
	"No matching concept":      {},
}

// IsSentinel reports whether a raw value means "no match found".
func IsSentinel(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		_, hit := sentinelValues[s]
		return hit
	}
	return false
}
