package transform

import (
	"errors"
	"fmt"
	"time"

	"github.com/phenobridge/platform/pkg/phenopacket"
)

// canonicalLayout is the fixed-width timestamp layout used everywhere
// between the source rows and the output documents. The microseconds
// field is mandatory.
const canonicalLayout = "2006-01-02T15:04:05.000000Z"

// FormatError reports a timestamp string that does not match the canonical
// layout. It signals a programming or data-contract defect and propagates.
type FormatError struct {
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("timestamp %q does not match canonical layout: %v", e.Value, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// Canonical formats a native timestamp as YYYY-MM-DDTHH:MM:SS.ffffffZ.
// No timezone conversion happens; the input is assumed to already be in
// the intended zone.
func Canonical(t time.Time) string {
	return t.Format(canonicalLayout)
}

// EpochSeconds parses a canonical timestamp string back to whole epoch
// seconds, truncating any fractional second.
func EpochSeconds(s string) (int64, error) {
	t, err := time.ParseInLocation(canonicalLayout, s, time.UTC)
	if err != nil {
		return 0, &FormatError{Value: s, Err: err}
	}
	return t.Unix(), nil
}

// timestampOf runs a native timestamp through the canonical round trip the
// way every grouped value does before landing in an output structure.
func timestampOf(t time.Time) phenopacket.Timestamp {
	seconds, err := EpochSeconds(Canonical(t))
	if err != nil {
		// Canonical output always reparses; reaching this is a defect.
		panic(err)
	}
	return phenopacket.Timestamp{Seconds: seconds}
}

func timeElementOf(t time.Time) *phenopacket.TimeElement {
	ts := timestampOf(t)
	return &phenopacket.TimeElement{Timestamp: &ts}
}
