// Package library exposes the read side of the audiobook store: series
// progress, series detail, listening statistics and the listened toggle.
package library

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/drallgood/mediatrack/internal/logger"
	"github.com/drallgood/mediatrack/internal/models"
)

// ErrNotFound is returned when a series or audiobook does not exist
var ErrNotFound = errors.New("not found")

// Store is the persistence surface the read service needs
type Store interface {
	QueryBySeries(ctx context.Context, name string) ([]models.AudiobookRecord, error)
	AggregateSeriesStats(ctx context.Context) ([]models.SeriesStats, error)
	ListeningStats(ctx context.Context) (models.ListeningStats, error)
	SetListened(ctx context.Context, id uint, listened bool) (models.AudiobookRecord, error)
}

// RunStore lists persisted import runs, newest first
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]models.ImportRun, error)
}

// Service answers read queries against the library
type Service struct {
	store Store
	runs  RunStore
	log   *logger.Logger
}

// NewService creates a read service. runs may be nil when import history is
// not needed.
func NewService(store Store, runs RunStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, runs: runs, log: log}
}

// SeriesProgress returns one entry per series, ordered by series name
func (s *Service) SeriesProgress(ctx context.Context) ([]models.SeriesProgress, error) {
	stats, err := s.store.AggregateSeriesStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate series stats: %w", err)
	}

	progress := make([]models.SeriesProgress, 0, len(stats))
	for _, st := range stats {
		progress = append(progress, models.SeriesProgress{
			SeriesStats:     st,
			Missing:         st.Total - st.Owned,
			PercentOwned:    percent(st.Owned, st.Total),
			PercentListened: percent(st.Listened, st.Total),
		})
	}
	return progress, nil
}

// SeriesDetail returns the books of one series ordered by position, with
// unpositioned books last.
func (s *Service) SeriesDetail(ctx context.Context, name string) ([]models.AudiobookRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("series name is required")
	}

	books, err := s.store.QueryBySeries(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query series %q: %w", name, err)
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("series %q: %w", name, ErrNotFound)
	}
	return books, nil
}

// ListeningStats returns library-wide totals. CompletionPercent is the share
// of owned books that have been listened to.
func (s *Service) ListeningStats(ctx context.Context) (models.ListeningStats, error) {
	stats, err := s.store.ListeningStats(ctx)
	if err != nil {
		return models.ListeningStats{}, fmt.Errorf("failed to compute listening stats: %w", err)
	}
	stats.CompletionPercent = percent(stats.ListenedBooks, stats.OwnedBooks)
	return stats, nil
}

// MarkListened sets the listened flag of the audiobook with the given id
func (s *Service) MarkListened(ctx context.Context, id uint, listened bool) (models.AudiobookRecord, error) {
	rec, err := s.store.SetListened(ctx, id, listened)
	if err != nil {
		return models.AudiobookRecord{}, err
	}

	s.log.Info("Updated listened flag", map[string]interface{}{
		"id":       id,
		"title":    rec.Title,
		"listened": listened,
	})
	return rec, nil
}

// RecentRuns returns up to limit import runs, newest first
func (s *Service) RecentRuns(ctx context.Context, limit int) ([]models.ImportRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import runs: %w", err)
	}
	return runs, nil
}

// percent returns part/whole as a percentage rounded to one decimal
func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*1000) / 10
}
