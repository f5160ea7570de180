package transform

import (
	"github.com/phenobridge/platform/pkg/common/logger"
	"github.com/phenobridge/platform/pkg/omop"
	"github.com/phenobridge/platform/pkg/terminology"
)

// Family is the destination entity family of a condition record.
type Family int

const (
	FamilyDisease Family = iota
	FamilyPhenotypicFeature
)

// Classify decides which family a parsed condition record belongs to. The
// discriminant is read by field name; unmapped records (absent concept_id,
// which covers the 0 sentinel dropped upstream) fall back to Disease.
func Classify(record omop.FieldMap, featureConcepts terminology.ConceptSet) Family {
	if id, ok := record.Int("concept_id"); ok && featureConcepts.Contains(id) {
		return FamilyPhenotypicFeature
	}
	return FamilyDisease
}

// SplitConditions partitions one condition result set into the two
// reclassified streams. Each row is parsed against its family's own field
// projection, so the same positions surface as term_*/primary_site_* for
// diseases and type_*/modifier_* for features. A record lands in exactly
// one stream.
func SplitConditions(rows [][]interface{}, featureConcepts terminology.ConceptSet) (diseases, features []omop.FieldMap, err error) {
	for i, row := range rows {
		record, err := omop.ParseRow(omop.EntityCondition, i, row, omop.ConditionDiseaseFields)
		if err != nil {
			return nil, nil, err
		}
		if Classify(record, featureConcepts) == FamilyPhenotypicFeature {
			record, err = omop.ParseRow(omop.EntityCondition, i, row, omop.ConditionFeatureFields)
			if err != nil {
				return nil, nil, err
			}
			features = append(features, record)
			continue
		}
		diseases = append(diseases, record)
	}

	logger.Log.WithFields(map[string]interface{}{
		"rows":     len(rows),
		"diseases": len(diseases),
		"features": len(features),
	}).Info("Reclassified condition rows")

	return diseases, features, nil
}
