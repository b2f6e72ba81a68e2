package database

import (
	"context"
	"fmt"
	"time"

	"github.com/drallgood/mediatrack/internal/logger"
	"github.com/drallgood/mediatrack/internal/models"
)

// ImportRunRepository persists the history of import invocations
type ImportRunRepository struct {
	db     *Database
	logger *logger.Logger
}

// NewImportRunRepository creates a new repository instance
func NewImportRunRepository(db *Database, log *logger.Logger) *ImportRunRepository {
	if log == nil {
		log = logger.Nop()
	}
	return &ImportRunRepository{db: db, logger: log}
}

// StartRun records a running import of sourcePath and returns its id
func (r *ImportRunRepository) StartRun(ctx context.Context, sourcePath string) (string, error) {
	run := ImportRun{
		SourcePath: sourcePath,
		Status:     models.ImportStatusRunning,
	}
	if err := r.db.GetDB().WithContext(ctx).Create(&run).Error; err != nil {
		return "", fmt.Errorf("failed to record import run: %w", err)
	}
	return run.ID, nil
}

// FinishRun closes the run. A non-nil runErr marks it failed; summary may be
// nil in that case.
func (r *ImportRunRepository) FinishRun(ctx context.Context, id string, summary *models.ImportSummary, runErr error) error {
	updates := map[string]interface{}{
		"status":      models.ImportStatusCompleted,
		"finished_at": time.Now(),
	}
	if summary != nil {
		updates["processed_count"] = summary.ProcessedCount
		updates["series_count"] = summary.SeriesCount
		updates["missing_books_found"] = summary.MissingBooksFound
		updates["failed_upserts"] = summary.FailedUpserts
	}
	if runErr != nil {
		updates["status"] = models.ImportStatusFailed
		updates["error"] = runErr.Error()
	}

	res := r.db.GetDB().WithContext(ctx).Model(&ImportRun{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to finish import run %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		r.logger.Warn("Import run not found when finishing", map[string]interface{}{
			"run_id": id,
		})
	}
	return nil
}

// ListRuns returns up to limit runs, newest first
func (r *ImportRunRepository) ListRuns(ctx context.Context, limit int) ([]models.ImportRun, error) {
	var rows []ImportRun
	q := r.db.GetDB().WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list import runs: %w", err)
	}

	runs := make([]models.ImportRun, len(rows))
	for i := range rows {
		runs[i] = rows[i].Model()
	}
	return runs, nil
}
