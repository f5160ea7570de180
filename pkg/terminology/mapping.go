package terminology

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/phenobridge/platform/pkg/common/logger"
)

// ConceptSet holds the OMOP condition concept ids that reclassify to the
// PhenotypicFeature family. Membership is the only operation the converter
// needs.
type ConceptSet map[int64]struct{}

func (s ConceptSet) Contains(conceptID int64) bool {
	_, ok := s[conceptID]
	return ok
}

func (s ConceptSet) Len() int {
	return len(s)
}

// LoadConceptSet reads the semantic mapping table: a CSV with columns
// concept_id, concept_name, Phenopacket (Disease or PhenotypicFeature).
// Only PhenotypicFeature rows contribute. Concept id 0 means "unmapped"
// and must fall back to the Disease family, so it is removed even when
// the table lists it.
func LoadConceptSet(path string) (ConceptSet, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening semantic mapping: %w", err)
	}
	defer f.Close()

	return ReadConceptSet(f)
}

func ReadConceptSet(r io.Reader) (ConceptSet, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading semantic mapping header: %w", err)
	}

	idCol, classCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "concept_id":
			idCol = i
		case "Phenopacket":
			classCol = i
		}
	}
	if idCol < 0 || classCol < 0 {
		return nil, fmt.Errorf("semantic mapping missing concept_id/Phenopacket columns: %v", header)
	}

	set := make(ConceptSet)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading semantic mapping row: %w", err)
		}
		if strings.TrimSpace(record[classCol]) != "PhenotypicFeature" {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(record[idCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("semantic mapping concept_id %q: %w", record[idCol], err)
		}
		set[id] = struct{}{}
	}

	delete(set, 0)

	logger.Log.WithField("concepts", len(set)).Info("Loaded semantic mapping")
	return set, nil
}
