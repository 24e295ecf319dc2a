package pipeline

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"kdtboard/internal"
	"kdtboard/internal/config"
	"kdtboard/internal/dataset"
	"kdtboard/internal/rules"
	"kdtboard/internal/storage"
)

// Run executes the whole normalization pipeline over an ordered batch:
// normalize, group institutions, split partner revenue, classify, distribute
// by year, then the selected revenue estimator. Each stage returns a fresh
// slice; the input is never mutated.
func Run(records []internal.CourseRecord, r rules.Rules, mode internal.RevenueMode, now time.Time) ([]internal.CourseRecord, internal.RunStats) {
	out := NormalizeRecords(records)

	grouper := NewGrouper(r)
	mapping := grouper.BuildMapping(out)
	out = GroupInstitutions(out, mapping)

	out = SplitPartnerRevenue(out, r)
	out = ClassifyRecords(out, r)
	out = DistributeRecords(out)

	switch mode {
	case internal.RevenueModeElapsed:
		out = ApplyElapsedRevenue(out, now)
	case internal.RevenueModeCompletion:
		out = NewCompletionEstimator(r.BaseCompletionRate).Apply(out, now)
	}

	return out, buildStats(records, out, mapping)
}

func buildStats(in, out []internal.CourseRecord, mapping map[string]string) internal.RunStats {
	groups := map[string]struct{}{}
	for _, canonical := range mapping {
		groups[canonical] = struct{}{}
	}

	stats := internal.RunStats{
		Records:      len(out),
		Institutions: len(mapping),
		Groups:       len(groups),
		PartnerRows:  len(out) - len(in),
	}
	for _, rec := range out {
		if rec.LeadingCompany {
			stats.LeadingCompany++
		}
		if !rec.HasValidSpan() {
			stats.Skipped++
		}
	}
	return stats
}

// ProcessingService wires the pipeline to storage: ingest a dataset file,
// process its rows, persist the processed stage and a run entry.
type ProcessingService struct {
	db    *storage.DB
	cfg   config.Config
	rules rules.Rules
	log   *logrus.Logger
}

func NewProcessingService(db *storage.DB, cfg config.Config, r rules.Rules, log *logrus.Logger) *ProcessingService {
	if log == nil {
		log = logrus.New()
	}
	return &ProcessingService{db: db, cfg: cfg, rules: r, log: log}
}

// IngestFile reads a dataset file into the raw stage. Re-ingesting an
// unchanged file is a no-op apart from a status reset.
func (s *ProcessingService) IngestFile(path string) (internal.DatasetRow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return internal.DatasetRow{}, err
	}
	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])

	records, err := dataset.ReadFile(path)
	if err != nil {
		return internal.DatasetRow{}, err
	}

	ds, err := s.db.UpsertDataset(path, hash, "ingested")
	if err != nil {
		return internal.DatasetRow{}, err
	}
	if err := s.db.ReplaceRecords(ds.ID, "raw", NormalizeRecords(records)); err != nil {
		return internal.DatasetRow{}, err
	}
	if err := s.db.UpdateDatasetStatus(ds.ID, "ingested"); err != nil {
		return internal.DatasetRow{}, err
	}

	s.log.WithFields(logrus.Fields{"dataset": ds.ID, "path": path, "rows": len(records)}).Info("dataset ingested")
	ds.Rows = len(records)
	return ds, nil
}

type ProcessResult struct {
	DatasetID int
	Stats     internal.RunStats
}

// ProcessDataset runs the pipeline over one ingested dataset and stores the
// processed stage.
func (s *ProcessingService) ProcessDataset(datasetID int, mode internal.RevenueMode, now time.Time) (ProcessResult, error) {
	start := time.Now()

	records, err := s.db.ListRecords(datasetID, "raw")
	if err != nil {
		return ProcessResult{}, err
	}
	if len(records) == 0 {
		return ProcessResult{}, fmt.Errorf("dataset %d has no ingested rows", datasetID)
	}

	processed, stats := Run(records, s.rules, mode, now)

	if err := s.db.ReplaceRecords(datasetID, "processed", processed); err != nil {
		return ProcessResult{}, err
	}
	if err := s.db.UpdateDatasetStatus(datasetID, "processed"); err != nil {
		return ProcessResult{}, err
	}
	if err := s.db.InsertRun(traceID(), datasetID, stats); err != nil {
		return ProcessResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"dataset":        datasetID,
		"records":        stats.Records,
		"groups":         stats.Groups,
		"leadingCompany": stats.LeadingCompany,
		"partnerRows":    stats.PartnerRows,
		"tookMs":         time.Since(start).Milliseconds(),
	}).Info("dataset processed")

	return ProcessResult{DatasetID: datasetID, Stats: stats}, nil
}

// ProcessPending processes every dataset still in the ingested state.
func (s *ProcessingService) ProcessPending(limit int, mode internal.RevenueMode, now time.Time) (int, error) {
	pending, err := s.db.ListDatasetsByStatus("ingested", limit)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, ds := range pending {
		if _, err := s.ProcessDataset(ds.ID, mode, now); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
