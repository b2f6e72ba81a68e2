// Package reconcile finds holes in numbered series and records placeholder
// entries for the books the library is missing.
package reconcile

import (
	"context"
	"sort"

	"github.com/drallgood/mediatrack/internal/logger"
	"github.com/drallgood/mediatrack/internal/models"
)

// Upserter stores a record, overwriting any row with the same natural key.
type Upserter interface {
	Upsert(ctx context.Context, rec models.AudiobookRecord) (uint, error)
}

// Result summarises one reconciliation pass.
type Result struct {
	SeriesWithGaps    int
	SeriesWithoutGaps int
	// SeriesSkipped counts series left alone because of an implausible position
	SeriesSkipped       int
	PlaceholdersWritten int
	Failed              int
	// Missing holds the synthesized positions per series
	Missing map[string][]int
}

// Engine runs gap detection over series groups. It keeps no state between
// calls; everything lives in the store.
type Engine struct {
	store Upserter
	log   *logger.Logger
}

// NewEngine creates an Engine writing placeholders through store
func NewEngine(store Upserter, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{store: store, log: log}
}

// GroupBySeries buckets records by series name, keeping input order within
// each bucket. Records without a series are left out.
func GroupBySeries(records []models.AudiobookRecord) map[string][]models.AudiobookRecord {
	groups := make(map[string][]models.AudiobookRecord)
	for _, rec := range records {
		name := rec.Series()
		if name == "" {
			continue
		}
		groups[name] = append(groups[name], rec)
	}
	return groups
}

// Reconcile synthesizes and upserts a placeholder for every missing position
// of every group. A failed upsert is logged and counted; it never stops the
// remaining gaps or series from being processed.
func (e *Engine) Reconcile(ctx context.Context, groups map[string][]models.AudiobookRecord) Result {
	result := Result{Missing: make(map[string][]int)}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		books := groups[name]
		if pos, bad := ImplausiblePosition(books); bad {
			result.SeriesSkipped++
			e.log.Warn("Skipping gap detection for series with implausible position", map[string]interface{}{
				"series":   name,
				"position": pos,
				"max":      MaxSeriesPosition,
			})
			continue
		}
		missing := MissingPositions(books)
		if missing == nil {
			result.SeriesWithoutGaps++
			e.log.Debug("Series has no detectable gaps", map[string]interface{}{
				"series": name,
				"books":  len(books),
			})
			continue
		}
		result.SeriesWithGaps++

		log := e.log.With(map[string]interface{}{"series": name})
		log.Info("Found missing books in series", map[string]interface{}{
			"missing_positions": missing,
			"known_books":       len(books),
		})

		author := books[0].Author
		for _, pos := range missing {
			placeholder := Placeholder(name, author, pos)
			if _, err := e.store.Upsert(ctx, placeholder); err != nil {
				result.Failed++
				log.Error("Failed to store placeholder", map[string]interface{}{
					"position": pos,
					"error":    err.Error(),
				})
				continue
			}
			result.PlaceholdersWritten++
			result.Missing[name] = append(result.Missing[name], pos)
		}
	}

	e.log.Info("Series reconciliation complete", map[string]interface{}{
		"series_with_gaps":     result.SeriesWithGaps,
		"series_without_gaps":  result.SeriesWithoutGaps,
		"series_skipped":       result.SeriesSkipped,
		"placeholders_written": result.PlaceholdersWritten,
		"failed":               result.Failed,
	})

	return result
}
