package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/phenobridge/platform/pkg/common/models"
)

var (
	patientsConverted   atomic.Int64
	documentsCreated    atomic.Int64
	recordsRetained     atomic.Int64
	recordsDiscarded    atomic.Int64
	conversionFailures  atomic.Int64
	countMismatchesSeen atomic.Int64
)

func Init() {}

func ObserveConversion(report *models.ConversionReport) {
	if report == nil {
		return
	}
	patientsConverted.Add(int64(report.Patients))
	documentsCreated.Add(int64(report.Documents))
	for _, e := range report.Entities {
		recordsRetained.Add(int64(e.Retained))
		recordsDiscarded.Add(int64(e.Discarded))
		if !e.Reconciled {
			countMismatchesSeen.Add(1)
		}
	}
}

func IncConversionFailures() {
	conversionFailures.Add(1)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP phenobridge_conversion_patients_total Number of patients converted since start.\n")
	fmt.Fprintf(w, "# TYPE phenobridge_conversion_patients_total counter\n")
	fmt.Fprintf(w, "phenobridge_conversion_patients_total %d\n", patientsConverted.Load())

	fmt.Fprintf(w, "# HELP phenobridge_conversion_documents_total Number of documents assembled since start.\n")
	fmt.Fprintf(w, "# TYPE phenobridge_conversion_documents_total counter\n")
	fmt.Fprintf(w, "phenobridge_conversion_documents_total %d\n", documentsCreated.Load())

	fmt.Fprintf(w, "# HELP phenobridge_conversion_records_retained_total Number of source records retained across all entity kinds.\n")
	fmt.Fprintf(w, "# TYPE phenobridge_conversion_records_retained_total counter\n")
	fmt.Fprintf(w, "phenobridge_conversion_records_retained_total %d\n", recordsRetained.Load())

	fmt.Fprintf(w, "# HELP phenobridge_conversion_records_discarded_total Number of source records discarded across all entity kinds.\n")
	fmt.Fprintf(w, "# TYPE phenobridge_conversion_records_discarded_total counter\n")
	fmt.Fprintf(w, "phenobridge_conversion_records_discarded_total %d\n", recordsDiscarded.Load())

	fmt.Fprintf(w, "# HELP phenobridge_conversion_failures_total Number of conversion runs that failed outright.\n")
	fmt.Fprintf(w, "# TYPE phenobridge_conversion_failures_total counter\n")
	fmt.Fprintf(w, "phenobridge_conversion_failures_total %d\n", conversionFailures.Load())

	fmt.Fprintf(w, "# HELP phenobridge_conversion_count_mismatches_total Number of grouping calls whose counts failed to reconcile.\n")
	fmt.Fprintf(w, "# TYPE phenobridge_conversion_count_mismatches_total counter\n")
	fmt.Fprintf(w, "phenobridge_conversion_count_mismatches_total %d\n", countMismatchesSeen.Load())
}
