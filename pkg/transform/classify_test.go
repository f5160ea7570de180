package transform

import (
	"testing"

	"github.com/phenobridge/platform/pkg/omop"
	"github.com/phenobridge/platform/pkg/terminology"
)

func TestClassifyByConceptMembership(t *testing.T) {
	features := terminology.ConceptSet{4169095: {}}

	if got := Classify(omop.FieldMap{"concept_id": int64(4169095)}, features); got != FamilyPhenotypicFeature {
		t.Fatalf("mapped concept should classify as feature, got %v", got)
	}
	if got := Classify(omop.FieldMap{"concept_id": int64(123)}, features); got != FamilyDisease {
		t.Fatalf("unmapped concept should classify as disease, got %v", got)
	}
	if got := Classify(omop.FieldMap{}, features); got != FamilyDisease {
		t.Fatalf("absent concept_id should fall back to disease, got %v", got)
	}
}

func TestSplitConditionsPartitions(t *testing.T) {
	features := terminology.ConceptSet{4169095: {}}

	diseaseRow := make([]interface{}, len(omop.ConditionDiseaseFields))
	diseaseRow[0] = int64(1)
	diseaseRow[1] = "snomed:44054006"
	diseaseRow[2] = "Type 2 diabetes mellitus"
	diseaseRow[11] = int64(201826)

	featureRow := make([]interface{}, len(omop.ConditionDiseaseFields))
	featureRow[0] = int64(1)
	featureRow[1] = "snomed:271807003"
	featureRow[2] = "Eruption of skin"
	featureRow[9] = "snomed:7771000"
	featureRow[10] = "Left"
	featureRow[11] = int64(4169095)

	diseases, feats, err := SplitConditions([][]interface{}{diseaseRow, featureRow}, features)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(diseases) != 1 || len(feats) != 1 {
		t.Fatalf("expected 1 disease and 1 feature, got %d and %d", len(diseases), len(feats))
	}

	// Disease projection: position 1 reads as term_id.
	if id, _ := diseases[0].String("term_id"); id != "snomed:44054006" {
		t.Fatalf("disease record missing term_id, got %v", diseases[0])
	}
	if diseases[0].Has("type_id") {
		t.Fatal("disease record should not carry feature field names")
	}

	// Feature projection: the same positions read as type_* and modifier_*.
	if id, _ := feats[0].String("type_id"); id != "snomed:271807003" {
		t.Fatalf("feature record missing type_id, got %v", feats[0])
	}
	if id, _ := feats[0].String("modifier_id"); id != "snomed:7771000" {
		t.Fatalf("feature record missing modifier_id, got %v", feats[0])
	}
	if feats[0].Has("term_id") || feats[0].Has("primary_site_id") {
		t.Fatal("feature record should not carry disease field names")
	}
}

func TestSplitConditionsEveryRowLandsOnce(t *testing.T) {
	features := terminology.ConceptSet{10: {}, 20: {}}

	var rows [][]interface{}
	for _, concept := range []int64{10, 20, 30, 40, 10} {
		row := make([]interface{}, len(omop.ConditionDiseaseFields))
		row[0] = int64(1)
		row[1] = "snomed:1"
		row[11] = concept
		rows = append(rows, row)
	}

	diseases, feats, err := SplitConditions(rows, features)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(diseases)+len(feats) != len(rows) {
		t.Fatalf("rows lost or duplicated: %d diseases + %d features != %d rows",
			len(diseases), len(feats), len(rows))
	}
	if len(feats) != 3 {
		t.Fatalf("expected 3 feature rows, got %d", len(feats))
	}
}
