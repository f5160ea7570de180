package omop

import (
	"errors"
	"fmt"

	"github.com/phenobridge/platform/pkg/common/logger"
)

// ShapeError reports a row whose arity does not match its entity's field
// schema. It signals a caller or query defect and is never recovered.
type ShapeError struct {
	Entity Entity
	Row    int
	Got    int
	Want   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s row %d has %d values, schema expects %d", e.Entity, e.Row, e.Got, e.Want)
}

func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}

// ParseRow zips one raw row against the field schema by position, dropping
// NULL and sentinel values so that downstream code can branch on key
// presence alone. Parsing an already-filtered row is a no-op.
func ParseRow(entity Entity, index int, row []interface{}, schema []string) (FieldMap, error) {
	if len(row) != len(schema) {
		return nil, &ShapeError{Entity: entity, Row: index, Got: len(row), Want: len(schema)}
	}
	fm := make(FieldMap, len(schema))
	for j, name := range schema {
		if IsSentinel(row[j]) {
			continue
		}
		fm[name] = row[j]
	}
	return fm, nil
}

// Parse applies ParseRow to a whole result set.
func Parse(entity Entity, rows [][]interface{}, schema []string) ([]FieldMap, error) {
	parsed := make([]FieldMap, 0, len(rows))
	for i, row := range rows {
		fm, err := ParseRow(entity, i, row, schema)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, fm)
	}

	logger.Log.WithFields(map[string]interface{}{
		"entity": string(entity),
		"rows":   len(parsed),
	}).Info("Parsed source rows")

	return parsed, nil
}
