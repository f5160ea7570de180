package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/phenobridge/platform/pkg/common/config"
	"github.com/phenobridge/platform/pkg/common/database"
	"github.com/phenobridge/platform/pkg/common/logger"
	"github.com/phenobridge/platform/pkg/omop"
	"github.com/phenobridge/platform/pkg/pipeline"
	"github.com/phenobridge/platform/pkg/terminology"
)

// batch-convert runs one conversion against the OMOP database and writes
// a document per patient to the output directory. It talks to Postgres
// only; no Kafka, Redis or document store involved.
func main() {
	patients := flag.String("patients", "", "comma-separated OMOP person ids (required)")
	mapping := flag.String("mapping", "", "path to the semantic mapping CSV")
	resources := flag.String("resources", "", "path to the resource catalog YAML (defaults built in)")
	outDir := flag.String("out", "out", "output directory for the JSON documents")
	createdBy := flag.String("created-by", "", "creator recorded in document metadata (defaults from env)")
	workers := flag.Int("workers", 0, "assembly workers (defaults from env)")
	flag.Parse()

	logger.Init()
	cfg := config.Load()

	if *patients == "" {
		fmt.Fprintln(os.Stderr, "batch-convert: -patients is required")
		flag.Usage()
		os.Exit(2)
	}

	ids, err := parsePatientIDs(*patients)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid patient id list")
	}

	if *mapping == "" {
		*mapping = cfg.SemanticMappingPath
	}
	if *resources == "" {
		*resources = cfg.ResourceCatalogPath
	}
	if *createdBy == "" {
		*createdBy = cfg.CreatedBy
	}
	if *workers <= 0 {
		*workers = cfg.WorkerCount
	}

	features := terminology.ConceptSet{}
	if *mapping != "" {
		features, err = terminology.LoadConceptSet(*mapping)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to load semantic mapping")
		}
	} else {
		logger.Log.Warn("No semantic mapping given; all conditions will map to diseases")
	}

	catalog, err := terminology.LoadCatalog(*resources)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load resource catalog")
	}

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer database.ClosePostgres()

	store := omop.NewStore(db, cfg.CDMSchema, cfg.VocabSchema)
	service := pipeline.NewService(store, features, catalog, *createdBy, *workers, nil, nil, nil, nil)

	packets, report, err := service.Convert(context.Background(), ids)
	if err != nil {
		logger.Log.WithError(err).Fatal("Conversion failed")
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Log.WithError(err).Fatal("Failed to create output directory")
	}

	for i := range packets {
		packet := packets[i]
		data, err := json.MarshalIndent(packet, "", "  ")
		if err != nil {
			logger.Log.WithError(err).WithField("patient_id", packet.ID).Fatal("Failed to encode document")
		}
		path := filepath.Join(*outDir, fmt.Sprintf("%s.json", packet.ID))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			logger.Log.WithError(err).WithField("path", path).Fatal("Failed to write document")
		}
	}

	summary, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to encode report")
	}
	fmt.Println(string(summary))

	logger.Log.WithFields(map[string]interface{}{
		"patients":  report.Patients,
		"documents": report.Documents,
		"out":       *outDir,
	}).Info("Batch conversion complete")
}

func parsePatientIDs(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("patient id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no patient ids in %q", s)
	}
	return ids, nil
}
