package omop

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Fetcher supplies raw per-entity row tuples for a set of patients. The
// transformation core never sees SQL or connection details; it consumes
// already-materialized rows.
type Fetcher interface {
	FetchIndividuals(ctx context.Context, personIDs []int64) ([][]interface{}, error)
	FetchVitalStatus(ctx context.Context, personIDs []int64) ([][]interface{}, error)
	FetchConditions(ctx context.Context, personIDs []int64) ([][]interface{}, error)
	FetchObservationFeatures(ctx context.Context, personIDs []int64) ([][]interface{}, error)
	FetchMeasurements(ctx context.Context, personIDs []int64) ([][]interface{}, error)
	FetchTreatments(ctx context.Context, personIDs []int64) ([][]interface{}, error)
	FetchProcedures(ctx context.Context, personIDs []int64) ([][]interface{}, error)
}

// Store reads OMOP CDM tables through gorm. cdm holds the clinical tables,
// vocab the OHDSI vocabulary tables; both are schema names interpolated into
// the queries.
type Store struct {
	db    *gorm.DB
	cdm   string
	vocab string
}

func NewStore(db *gorm.DB, cdmSchema, vocabSchema string) *Store {
	return &Store{db: db, cdm: cdmSchema + ".", vocab: vocabSchema + "."}
}

func (s *Store) FetchIndividuals(ctx context.Context, personIDs []int64) ([][]interface{}, error) {
	query := fmt.Sprintf(`select p3.id,
       null as alternate_ids,
       p3.date_of_birth,
       max(vo.visit_start_date) as time_at_last_encounter,
       p3.vital_status,
       p3.sex,
       null as karyotypic_sex,
       null as gender,
       'NCBITaxon:9606' as taxonomy_id,
       'human' as taxonomy_label
    from (
        select p2.id, p2.date_of_birth, p2.sex,
            (case when p2.death_pid is null then 0 else 2 end) as vital_status
        from (
            select p1.*, d.person_id as death_pid
            from (
                select p.person_id as id,
                    p.birth_datetime as date_of_birth,
                    (case when p.gender_concept_id is null then 0
                        when p.gender_concept_id = 8532 then 1
                        when p.gender_concept_id = 8507 then 2
                        else 3 end) as sex
                from %[1]sperson p
                where p.person_id in ?) p1
            left join %[1]sdeath d on p1.id = d.person_id) p2) p3
    left join %[1]svisit_occurrence vo on p3.id = vo.person_id
    group by p3.id, p3.sex, p3.date_of_birth, p3.vital_status`, s.cdm)

	return s.fetch(ctx, query, personIDs)
}

func (s *Store) FetchVitalStatus(ctx context.Context, personIDs []int64) ([][]interface{}, error) {
	query := fmt.Sprintf(`select id as person_id,
       (case when pid_death.death_pid is null then 0 else 2 end) as vital_status,
       pid_death.time_of_death,
       null as cause_of_death_id,
       null as cause_of_death_label
    from (
        select p.person_id as id, d.person_id as death_pid, d.death_datetime as time_of_death
        from %[1]sperson p
        left join %[1]sdeath d on p.person_id = d.person_id
        where p.person_id in ?) pid_death`, s.cdm)

	return s.fetch(ctx, query, personIDs)
}

func (s *Store) FetchConditions(ctx context.Context, personIDs []int64) ([][]interface{}, error) {
	query := fmt.Sprintf(`select a.person_id,
       a.term_id,
       a.term_label,
       a.condition_source_value,
       a.excluded,
       a.onset_timestamp,
       a.resolution,
       a.clinical_tnm_finding_id,
       a.clinical_tnm_finding_label,
       case when a.primary_site_concept is null then null
           else concat(a.primary_site_vocab, ':', a.primary_site_code) end as primary_site_id,
       a.primary_site_label,
       a.concept_id
    from (
        select co.person_id,
            concat(c.vocabulary_id, ':', c.concept_code) as term_id,
            c.concept_name as term_label,
            c.concept_id,
            co.condition_source_value,
            0 as excluded,
            co.condition_start_date as onset_timestamp,
            co.condition_end_date as resolution,
            null as clinical_tnm_finding_id,
            null as clinical_tnm_finding_label,
            cr.concept_id_2 as primary_site_concept,
            c2.concept_name as primary_site_label,
            c2.vocabulary_id as primary_site_vocab,
            c2.concept_code as primary_site_code
        from %[1]scondition_occurrence co
        left join %[2]sconcept c on co.condition_concept_id = c.concept_id
        left join %[2]sconcept_relationship cr
            on cr.concept_id_1 = co.condition_concept_id and cr.relationship_id = 'Has finding site'
        left join %[2]sconcept c2 on cr.concept_id_2 = c2.concept_id
        where co.person_id in ?) a`, s.cdm, s.vocab)

	return s.fetch(ctx, query, personIDs)
}

func (s *Store) FetchObservationFeatures(ctx context.Context, personIDs []int64) ([][]interface{}, error) {
	query := fmt.Sprintf(`select a.person_id,
       a.type_id,
       a.type_label,
       case when a.value_as_concept_id is null then null
           else concat(a.modifier_vocab, ':', a.modifier_code) end as modifier_id,
       a.modifier_label,
       a.value_as_string as description,
       a.observation_datetime as onset_timestamp,
       concat('P', date_part('year', age(a.observation_datetime, a.birth_datetime)), 'Y') as onset_age
    from (
        select obs.person_id,
            c.concept_name as type_label,
            concat(c.vocabulary_id, ':', c.concept_code) as type_id,
            obs.value_as_concept_id,
            c2.concept_name as modifier_label,
            c2.vocabulary_id as modifier_vocab,
            c2.concept_code as modifier_code,
            obs.value_as_string,
            obs.observation_datetime,
            p.birth_datetime
        from %[1]sobservation obs
        left join %[2]sconcept c on obs.observation_concept_id = c.concept_id
        left join %[1]sperson p on obs.person_id = p.person_id
        left join %[2]sconcept c2 on obs.value_as_concept_id = c2.concept_id
        where obs.person_id in ?) a`, s.cdm, s.vocab)

	return s.fetch(ctx, query, personIDs)
}

func (s *Store) FetchMeasurements(ctx context.Context, personIDs []int64) ([][]interface{}, error) {
	query := fmt.Sprintf(`select m.person_id,
       m.measurement_concept_id,
       concat(c.vocabulary_id, ':', c.concept_code) as assay_id,
       c.concept_name as assay_label,
       m.value_as_number,
       concat(c3.vocabulary_id, ':', c3.concept_code) as value_id,
       c3.concept_name as value_label,
       m.range_low,
       m.range_high,
       m.measurement_datetime,
       concat(c2.vocabulary_id, ':', c2.concept_code) as unit_id,
       c2.concept_name as unit_label,
       c2.concept_id,
       m.unit_source_value,
       m.visit_occurrence_id,
       row_number() over (partition by m.person_id, m.measurement_datetime, m.visit_occurrence_id order by m.person_id) as row_number
    from %[1]smeasurement m
    left join %[2]sconcept c on c.concept_id = m.measurement_concept_id
    left join %[2]sconcept c2 on c2.concept_id = m.unit_concept_id
    left join %[2]sconcept c3 on c3.concept_id = m.value_as_concept_id
    where m.person_id in ?`, s.cdm, s.vocab)

	return s.fetch(ctx, query, personIDs)
}

func (s *Store) FetchTreatments(ctx context.Context, personIDs []int64) ([][]interface{}, error) {
	query := fmt.Sprintf(`select a.person_id,
       a.agent_id,
       a.agent_label,
       case when a.route_administration_code is null then null
           else concat(a.route_administration_vocab, ':', a.route_administration_code) end as route_of_administration_id,
       a.route_of_administration_label,
       case when a.quantity_code_id is null then null
           else concat(a.quantity_vocab_id, ':', a.quantity_code_id) end as quantity_id,
       a.quantity_unit_label,
       a.quantity_value,
       a.interval_start,
       a.interval_end,
       a.drug_type_id,
       a.sched_freq
    from (
        select de.person_id,
            concat(c.vocabulary_id, ':', c.concept_code) as agent_id,
            c.concept_name as agent_label,
            c2.vocabulary_id as route_administration_vocab,
            c2.concept_code as route_administration_code,
            c2.concept_name as route_of_administration_label,
            case when de.days_supply = 0 then 0 else ceil(de.quantity / de.days_supply) end as sched_freq,
            ds.amount_value as quantity_value,
            c3.vocabulary_id as quantity_vocab_id,
            c3.concept_code as quantity_code_id,
            c3.concept_name as quantity_unit_label,
            de.drug_exposure_start_date as interval_start,
            de.drug_exposure_start_date + make_interval(days => de.days_supply) as interval_end,
            c4.concept_id as drug_type_id
        from %[1]sdrug_exposure de
        left join %[2]sconcept c on c.concept_id = de.drug_concept_id
        left join %[2]sconcept c2 on c2.concept_id = de.route_concept_id
        left join %[2]sdrug_strength ds on ds.drug_concept_id = de.drug_concept_id
        left join %[2]sconcept c3 on c3.concept_id = ds.amount_unit_concept_id
        left join %[2]sconcept c4 on c4.concept_id = de.drug_type_concept_id
        where de.person_id in ?) a`, s.cdm, s.vocab)

	return s.fetch(ctx, query, personIDs)
}

func (s *Store) FetchProcedures(ctx context.Context, personIDs []int64) ([][]interface{}, error) {
	query := fmt.Sprintf(`select a.person_id,
       a.code_id,
       a.code_label,
       case when a.body_site_concept_id is null then null
           else concat(a.body_site_vocab_id, ':', a.body_site_concept_id) end as body_site_id,
       a.body_site_label,
       a.procedure_datetime as performed_timestamp,
       concat('P', date_part('year', age(a.procedure_datetime, a.birth_datetime)), 'Y') as performed_age
    from (
        select po.person_id,
            concat(c.vocabulary_id, ':', c.concept_code) as code_id,
            c.concept_name as code_label,
            c2.concept_id as body_site_concept_id,
            c2.vocabulary_id as body_site_vocab_id,
            c2.concept_name as body_site_label,
            po.procedure_datetime,
            p.birth_datetime
        from %[1]sprocedure_occurrence po
        left join %[2]sconcept c on c.concept_id = po.procedure_concept_id
        left join %[2]sconcept_relationship cr
            on cr.concept_id_1 = po.procedure_concept_id and cr.relationship_id = 'Has proc site'
        left join %[2]sconcept c2 on c2.concept_id = cr.concept_id_2
        left join %[1]sperson p on po.person_id = p.person_id
        where po.person_id in ?) a`, s.cdm, s.vocab)

	return s.fetch(ctx, query, personIDs)
}

func (s *Store) fetch(ctx context.Context, query string, personIDs []int64) ([][]interface{}, error) {
	rows, err := s.db.WithContext(ctx).Raw(query, personIDs).Rows()
	if err != nil {
		return nil, fmt.Errorf("executing fetch query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading result columns: %w", err)
	}

	var result [][]interface{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		result = append(result, values)
	}

	return result, rows.Err()
}
