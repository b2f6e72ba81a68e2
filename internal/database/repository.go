package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/drallgood/mediatrack/internal/library"
	"github.com/drallgood/mediatrack/internal/logger"
	"github.com/drallgood/mediatrack/internal/models"
)

// AudiobookRepository stores audiobook records and computes the read-side
// aggregates. Writes are serialized so that the natural key lookup and the
// following insert or update cannot interleave.
type AudiobookRepository struct {
	db     *Database
	logger *logger.Logger
	mu     sync.Mutex
}

// NewAudiobookRepository creates a new repository instance
func NewAudiobookRepository(db *Database, log *logger.Logger) *AudiobookRepository {
	if log == nil {
		log = logger.Nop()
	}
	return &AudiobookRepository{db: db, logger: log}
}

// Upsert inserts rec or overwrites the row sharing its natural key and
// returns the row id. The stored listened flag is never overwritten, and a
// placeholder never replaces a real book occupying its series slot.
func (r *AudiobookRepository) Upsert(ctx context.Context, rec models.AudiobookRecord) (uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var id uint
	err := r.db.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findMatch(tx, rec)
		if err != nil {
			return fmt.Errorf("failed to look up existing audiobook: %w", err)
		}

		if existing == nil {
			row := newAudiobook(rec)
			if err := tx.Create(row).Error; err != nil {
				return fmt.Errorf("failed to insert audiobook: %w", err)
			}
			id = row.ID
			return nil
		}

		id = existing.ID
		if rec.IsPlaceholder() && !existing.Record().IsPlaceholder() {
			return nil
		}

		if err := tx.Model(&Audiobook{}).Where("id = ?", existing.ID).Updates(overwriteColumns(rec)).Error; err != nil {
			return fmt.Errorf("failed to update audiobook %d: %w", existing.ID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// findMatch resolves the row rec should overwrite, or nil when rec is new
func findMatch(tx *gorm.DB, rec models.AudiobookRecord) (*Audiobook, error) {
	hasSlot := rec.SeriesName != nil && rec.SeriesPosition != nil

	switch {
	case rec.ExternalID != nil:
		row, err := first(tx.Where("external_id = ?", *rec.ExternalID))
		if err != nil || row != nil || !hasSlot {
			return row, err
		}
		// claim a placeholder waiting in the same slot
		return first(tx.Where("external_id IS NULL AND owned = ? AND series_name = ? AND series_position = ?",
			false, *rec.SeriesName, *rec.SeriesPosition))

	case rec.IsPlaceholder():
		if !hasSlot {
			return nil, nil
		}
		return first(tx.Where("series_name = ? AND series_position = ?", *rec.SeriesName, *rec.SeriesPosition).
			Order("owned DESC"))

	case hasSlot:
		return first(tx.Where("external_id IS NULL AND series_name = ? AND series_position = ?",
			*rec.SeriesName, *rec.SeriesPosition))

	default:
		q := tx.Where("external_id IS NULL AND series_position IS NULL AND title = ? AND author = ?", rec.Title, rec.Author)
		if rec.SeriesName != nil {
			q = q.Where("series_name = ?", *rec.SeriesName)
		} else {
			q = q.Where("series_name IS NULL")
		}
		return first(q)
	}
}

func first(q *gorm.DB) (*Audiobook, error) {
	var row Audiobook
	if err := q.Order("id ASC").First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByID returns the audiobook with the given id
func (r *AudiobookRepository) GetByID(ctx context.Context, id uint) (models.AudiobookRecord, error) {
	var row Audiobook
	if err := r.db.GetDB().WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.AudiobookRecord{}, fmt.Errorf("audiobook %d: %w", id, library.ErrNotFound)
		}
		return models.AudiobookRecord{}, fmt.Errorf("failed to get audiobook %d: %w", id, err)
	}
	return row.Record(), nil
}

// SetListened updates the listened flag and returns the updated record
func (r *AudiobookRepository) SetListened(ctx context.Context, id uint, listened bool) (models.AudiobookRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var row Audiobook
	err := r.db.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("audiobook %d: %w", id, library.ErrNotFound)
			}
			return fmt.Errorf("failed to get audiobook %d: %w", id, err)
		}
		if err := tx.Model(&row).Update("listened", listened).Error; err != nil {
			return fmt.Errorf("failed to update audiobook %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return models.AudiobookRecord{}, err
	}

	row.Listened = listened
	return row.Record(), nil
}

// QueryBySeries returns the books of a series by ascending position with
// unpositioned books last
func (r *AudiobookRepository) QueryBySeries(ctx context.Context, name string) ([]models.AudiobookRecord, error) {
	var rows []Audiobook
	err := r.db.GetDB().WithContext(ctx).
		Where("series_name = ?", name).
		Order("CASE WHEN series_position IS NULL THEN 1 ELSE 0 END").
		Order("series_position ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query series %q: %w", name, err)
	}

	records := make([]models.AudiobookRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].Record()
	}
	return records, nil
}

type seriesAggregate struct {
	SeriesName    string
	Total         int64
	Owned         int64
	Listened      int64
	MinPosition   *float64
	MaxPosition   *float64
	AverageRating *float64
	TotalMinutes  int64
}

// AggregateSeriesStats returns per-series totals ordered by series name.
// Placeholders count towards the total but never as owned.
func (r *AudiobookRepository) AggregateSeriesStats(ctx context.Context) ([]models.SeriesStats, error) {
	var rows []seriesAggregate
	err := r.db.GetDB().WithContext(ctx).
		Model(&Audiobook{}).
		Select(`series_name,
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN owned THEN 1 ELSE 0 END), 0) AS owned,
			COALESCE(SUM(CASE WHEN listened THEN 1 ELSE 0 END), 0) AS listened,
			MIN(series_position) AS min_position,
			MAX(series_position) AS max_position,
			AVG(rating) AS average_rating,
			COALESCE(SUM(length_minutes), 0) AS total_minutes`).
		Where("series_name IS NOT NULL").
		Group("series_name").
		Order("series_name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate series stats: %w", err)
	}

	stats := make([]models.SeriesStats, len(rows))
	for i, row := range rows {
		stats[i] = models.SeriesStats{
			SeriesName:    row.SeriesName,
			Total:         int(row.Total),
			Owned:         int(row.Owned),
			Listened:      int(row.Listened),
			MinPosition:   row.MinPosition,
			MaxPosition:   row.MaxPosition,
			AverageRating: row.AverageRating,
			TotalMinutes:  int(row.TotalMinutes),
		}
	}
	return stats, nil
}

// CountUnowned returns the number of records with owned=false
func (r *AudiobookRepository) CountUnowned(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.GetDB().WithContext(ctx).Model(&Audiobook{}).Where("owned = ?", false).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count unowned audiobooks: %w", err)
	}
	return int(n), nil
}

type listeningAggregate struct {
	TotalBooks      int64
	OwnedBooks      int64
	ListenedBooks   int64
	TotalMinutes    int64
	ListenedMinutes int64
}

// ListeningStats returns library-wide counts. Minutes only cover owned books.
func (r *AudiobookRepository) ListeningStats(ctx context.Context) (models.ListeningStats, error) {
	var agg listeningAggregate
	err := r.db.GetDB().WithContext(ctx).
		Model(&Audiobook{}).
		Select(`COUNT(*) AS total_books,
			COALESCE(SUM(CASE WHEN owned THEN 1 ELSE 0 END), 0) AS owned_books,
			COALESCE(SUM(CASE WHEN listened THEN 1 ELSE 0 END), 0) AS listened_books,
			COALESCE(SUM(CASE WHEN owned THEN length_minutes ELSE 0 END), 0) AS total_minutes,
			COALESCE(SUM(CASE WHEN listened THEN length_minutes ELSE 0 END), 0) AS listened_minutes`).
		Scan(&agg).Error
	if err != nil {
		return models.ListeningStats{}, fmt.Errorf("failed to compute listening stats: %w", err)
	}

	return models.ListeningStats{
		TotalBooks:      int(agg.TotalBooks),
		OwnedBooks:      int(agg.OwnedBooks),
		ListenedBooks:   int(agg.ListenedBooks),
		UnownedBooks:    int(agg.TotalBooks - agg.OwnedBooks),
		TotalMinutes:    int(agg.TotalMinutes),
		ListenedMinutes: int(agg.ListenedMinutes),
	}, nil
}
