// Package ingest runs a full library import: read the export, normalize its
// rows, store them and reconcile series gaps.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/drallgood/mediatrack/internal/logger"
	"github.com/drallgood/mediatrack/internal/models"
	"github.com/drallgood/mediatrack/internal/normalize"
	"github.com/drallgood/mediatrack/internal/reconcile"
	"github.com/drallgood/mediatrack/internal/source"
)

// ErrImportInProgress is returned when Import is called while another import
// on the same Service is still running.
var ErrImportInProgress = errors.New("an import is already running")

// Store is the persistence an import needs
type Store interface {
	reconcile.Upserter
	CountUnowned(ctx context.Context) (int, error)
}

// RunRecorder keeps the import history. It is optional.
type RunRecorder interface {
	StartRun(ctx context.Context, sourcePath string) (string, error)
	FinishRun(ctx context.Context, id string, summary *models.ImportSummary, runErr error) error
}

// Service imports library exports into the store
type Service struct {
	store      Store
	runs       RunRecorder
	normalizer *normalize.Normalizer
	engine     *reconcile.Engine
	workers    int
	log        *logger.Logger

	// running serializes imports across the CLI, the API and the ticker
	running sync.Mutex
}

// Option configures a Service
type Option func(*Service)

// WithWorkers bounds how many rows are normalized concurrently
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithRunRecorder persists every import run through r
func WithRunRecorder(r RunRecorder) Option {
	return func(s *Service) {
		s.runs = r
	}
}

// WithNormalizer replaces the default header alias table
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(s *Service) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// NewService creates an import service writing to store
func NewService(store Store, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		store:      store,
		normalizer: normalize.New(nil),
		engine:     reconcile.NewEngine(store, log),
		workers:    runtime.NumCPU(),
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Import reads the file at path and brings the store up to date with it.
// Only failures affecting the whole batch are returned; single records that
// cannot be stored are logged and counted in FailedUpserts. Imports do not
// queue: a call made while another is running fails with ErrImportInProgress.
func (s *Service) Import(ctx context.Context, path string) (*models.ImportSummary, error) {
	log := s.log.With(map[string]interface{}{"path": path})

	if !s.running.TryLock() {
		return nil, ErrImportInProgress
	}
	defer s.running.Unlock()

	var runID string
	if s.runs != nil {
		id, err := s.runs.StartRun(ctx, path)
		if err != nil {
			log.Warn("Failed to record import run", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			runID = id
			log = log.With(map[string]interface{}{"run_id": runID})
		}
	}

	summary, err := s.run(ctx, path, log)
	if summary != nil {
		summary.RunID = runID
	}

	if runID != "" {
		// record the outcome even when ctx was cancelled mid-import
		if ferr := s.runs.FinishRun(context.WithoutCancel(ctx), runID, summary, err); ferr != nil {
			log.Warn("Failed to finish import run", map[string]interface{}{
				"error": ferr.Error(),
			})
		}
	}

	if err != nil {
		log.Error("Import failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}
	return summary, nil
}

func (s *Service) run(ctx context.Context, path string, log *logger.Logger) (*models.ImportSummary, error) {
	log.Info("Starting import", nil)

	rows, err := source.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	records, err := s.normalizeAll(ctx, rows)
	if err != nil {
		return nil, err
	}

	summary := &models.ImportSummary{ProcessedCount: len(records)}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			log.Warn("Import canceled by context", nil)
			return nil, err
		}
		if _, err := s.store.Upsert(ctx, rec); err != nil {
			summary.FailedUpserts++
			log.Warn("Failed to store audiobook", map[string]interface{}{
				"title":  rec.Title,
				"series": rec.Series(),
				"error":  err.Error(),
			})
		}
	}

	groups := reconcile.GroupBySeries(records)
	summary.SeriesCount = len(groups)

	result := s.engine.Reconcile(ctx, groups)
	summary.FailedUpserts += result.Failed
	summary.SeriesSkipped = result.SeriesSkipped

	missing, err := s.store.CountUnowned(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count missing books: %w", err)
	}
	summary.MissingBooksFound = missing

	log.Info("Import complete", map[string]interface{}{
		"processed":      summary.ProcessedCount,
		"series":         summary.SeriesCount,
		"missing_books":  summary.MissingBooksFound,
		"failed_upserts": summary.FailedUpserts,
		"series_skipped": summary.SeriesSkipped,
	})
	return summary, nil
}

// normalizeAll converts rows concurrently, keeping their order
func (s *Service) normalizeAll(ctx context.Context, rows []source.Row) ([]models.AudiobookRecord, error) {
	records := make([]models.AudiobookRecord, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = s.normalizer.Normalize(rows[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
