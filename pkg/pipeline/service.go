package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phenobridge/platform/pkg/common/kafka"
	"github.com/phenobridge/platform/pkg/common/logger"
	"github.com/phenobridge/platform/pkg/common/models"
	"github.com/phenobridge/platform/pkg/observability/metrics"
	"github.com/phenobridge/platform/pkg/omop"
	"github.com/phenobridge/platform/pkg/phenopacket"
	"github.com/phenobridge/platform/pkg/terminology"
	"github.com/phenobridge/platform/pkg/transform"
)

// Service runs the conversion pipeline: fetch per-entity rows, parse,
// reclassify, group per patient, and assemble one document per patient.
// Repository, cache and producers are optional collaborators; the
// transformation itself never touches I/O.
type Service struct {
	fetcher   omop.Fetcher
	features  terminology.ConceptSet
	catalog   terminology.Catalog
	createdBy string
	workers   int
	repo      *Repository
	cache     *DocumentCache
	producer  *kafka.Producer
	dlq       *kafka.Producer
}

func NewService(
	fetcher omop.Fetcher,
	features terminology.ConceptSet,
	catalog terminology.Catalog,
	createdBy string,
	workers int,
	repo *Repository,
	cache *DocumentCache,
	producer *kafka.Producer,
	dlq *kafka.Producer,
) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		fetcher:   fetcher,
		features:  features,
		catalog:   catalog,
		createdBy: createdBy,
		workers:   workers,
		repo:      repo,
		cache:     cache,
		producer:  producer,
		dlq:       dlq,
	}
}

// Convert transforms the given patients' records into documents and the
// per-entity provenance report. It performs no persistence or publishing.
func (s *Service) Convert(ctx context.Context, personIDs []int64) ([]phenopacket.Phenopacket, *models.ConversionReport, error) {
	indRows, err := s.fetcher.FetchIndividuals(ctx, personIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching individuals: %w", err)
	}
	vitalRows, err := s.fetcher.FetchVitalStatus(ctx, personIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching vital status: %w", err)
	}
	condRows, err := s.fetcher.FetchConditions(ctx, personIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching conditions: %w", err)
	}
	obsRows, err := s.fetcher.FetchObservationFeatures(ctx, personIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching observations: %w", err)
	}
	measRows, err := s.fetcher.FetchMeasurements(ctx, personIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching measurements: %w", err)
	}
	treatRows, err := s.fetcher.FetchTreatments(ctx, personIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching treatments: %w", err)
	}
	procRows, err := s.fetcher.FetchProcedures(ctx, personIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching procedures: %w", err)
	}

	individuals, err := omop.Parse(omop.EntityIndividual, indRows, omop.IndividualFields)
	if err != nil {
		return nil, nil, err
	}
	vitals, err := omop.Parse(omop.EntityVitalStatus, vitalRows, omop.VitalStatusFields)
	if err != nil {
		return nil, nil, err
	}
	diseaseRecords, featureRecords, err := transform.SplitConditions(condRows, s.features)
	if err != nil {
		return nil, nil, err
	}
	obsFeatureRecords, err := omop.Parse(omop.EntityObservationFeature, obsRows, omop.ObservationFeatureFields)
	if err != nil {
		return nil, nil, err
	}
	measurementRecords, err := omop.Parse(omop.EntityMeasurement, measRows, omop.MeasurementFields)
	if err != nil {
		return nil, nil, err
	}
	treatmentRecords, err := omop.Parse(omop.EntityTreatment, treatRows, omop.TreatmentFields)
	if err != nil {
		return nil, nil, err
	}
	procedureRecords, err := omop.Parse(omop.EntityProcedure, procRows, omop.ProcedureFields)
	if err != nil {
		return nil, nil, err
	}

	subjects, indStats := transform.GroupIndividuals(individuals, vitals)
	diseases, diseaseStats := transform.GroupDiseases(diseaseRecords)
	condFeatures, condFeatureStats := transform.GroupFeatures(featureRecords, "condition")
	obsFeatures, obsFeatureStats := transform.GroupFeatures(obsFeatureRecords, "observation")
	features := transform.MergeFeatureMaps(condFeatures, obsFeatures)
	measurements, measStats := transform.GroupMeasurements(measurementRecords)
	treatments, treatStats := transform.GroupTreatments(treatmentRecords)
	procedures, procStats := transform.GroupProcedures(procedureRecords)

	pids := patientUnion(subjects, diseases, features, measurements, treatments, procedures)
	meta := phenopacket.NewMetaData(s.createdBy, s.catalog)

	// Each patient's assembly is independent; fan out over a bounded pool
	// and write results by index so the output order never depends on the
	// worker count.
	packets := make([]phenopacket.Phenopacket, len(pids))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				packets[i] = assemble(pids[i], meta, subjects, diseases, features, measurements, treatments, procedures)
			}
		}()
	}
	for i := range pids {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report := &models.ConversionReport{
		Patients:  len(pids),
		Documents: len(packets),
		Entities: []models.EntitySummary{
			indStats.Summary(),
			diseaseStats.Summary(),
			condFeatureStats.Summary(),
			obsFeatureStats.Summary(),
			measStats.Summary(),
			treatStats.Summary(),
			procStats.Summary(),
		},
	}

	return packets, report, nil
}

// Process converts, persists, caches and publishes. Failures after the
// transformation stage degrade per document rather than aborting the run.
func (s *Service) Process(ctx context.Context, personIDs []int64) (*models.ConvertResponse, error) {
	packets, report, err := s.Convert(ctx, personIDs)
	if err != nil {
		metrics.IncConversionFailures()
		return nil, err
	}

	for i := range packets {
		packet := packets[i]
		if s.repo != nil {
			if err := s.repo.Save(ctx, &packet); err != nil {
				logger.Log.WithError(err).WithField("patient_id", packet.ID).Error("failed to persist document")
			}
		}
		if s.cache != nil {
			if err := s.cache.Put(ctx, packet.ID, packet); err != nil {
				logger.Log.WithError(err).WithField("patient_id", packet.ID).Warn("failed to cache document")
			}
		}
		if s.producer != nil {
			payload := map[string]interface{}{
				"patient_id": packet.ID,
				"document":   packet,
			}
			if err := s.producer.PublishEvent(ctx, "document-created", "converter-service", payload); err != nil {
				logger.Log.WithError(err).WithField("patient_id", packet.ID).Error("failed to publish document event")
				if s.dlq != nil {
					_ = s.dlq.PublishEvent(ctx, "document-created", "converter-service", payload)
				}
			}
		}
	}

	metrics.ObserveConversion(report)

	return &models.ConvertResponse{
		JobID:     uuid.New().String(),
		Status:    "completed",
		Patients:  report.Patients,
		Documents: report.Documents,
		Report:    report,
		Timestamp: time.Now().UTC(),
	}, nil
}

// HandleEvent processes one conversion-request event from the bus.
func (s *Service) HandleEvent(ctx context.Context, event models.Event) error {
	raw, ok := event.Data["patient_ids"].([]interface{})
	if !ok {
		logger.Log.WithField("event_id", event.ID).Warn("conversion request without patient_ids")
		return nil
	}

	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		switch n := v.(type) {
		case float64:
			ids = append(ids, int64(n))
		case int64:
			ids = append(ids, n)
		default:
			logger.Log.WithField("value", v).Warn("skipping non-numeric patient id")
		}
	}
	if len(ids) == 0 {
		return nil
	}

	_, err := s.Process(ctx, ids)
	return err
}

func assemble(
	pid string,
	meta phenopacket.MetaData,
	subjects map[string]phenopacket.Individual,
	diseases map[string][]phenopacket.Disease,
	features map[string][]phenopacket.PhenotypicFeature,
	measurements map[string][]phenopacket.Measurement,
	treatments map[string][]phenopacket.Treatment,
	procedures map[string][]phenopacket.Procedure,
) phenopacket.Phenopacket {
	b := phenopacket.NewBuilder(pid, meta)

	if subject, ok := subjects[pid]; ok {
		b.WithSubject(subject)
	}
	if ds, ok := diseases[pid]; ok {
		b.WithDiseases(ds)
	}
	if fs, ok := features[pid]; ok {
		b.WithPhenotypicFeatures(fs)
	}
	if ms, ok := measurements[pid]; ok {
		b.WithMeasurements(ms)
	}
	ts, hasTreatments := treatments[pid]
	ps, hasProcedures := procedures[pid]
	if hasTreatments || hasProcedures {
		b.WithMedicalActions(phenopacket.WrapMedicalActions(ts, ps))
	}

	return b.Build()
}

func patientUnion(
	subjects map[string]phenopacket.Individual,
	diseases map[string][]phenopacket.Disease,
	features map[string][]phenopacket.PhenotypicFeature,
	measurements map[string][]phenopacket.Measurement,
	treatments map[string][]phenopacket.Treatment,
	procedures map[string][]phenopacket.Procedure,
) []string {
	seen := make(map[string]struct{})
	for pid := range subjects {
		seen[pid] = struct{}{}
	}
	for pid := range diseases {
		seen[pid] = struct{}{}
	}
	for pid := range features {
		seen[pid] = struct{}{}
	}
	for pid := range measurements {
		seen[pid] = struct{}{}
	}
	for pid := range treatments {
		seen[pid] = struct{}{}
	}
	for pid := range procedures {
		seen[pid] = struct{}{}
	}

	pids := make([]string, 0, len(seen))
	for pid := range seen {
		pids = append(pids, pid)
	}
	sort.Strings(pids)
	return pids
}
