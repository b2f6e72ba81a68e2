package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/drallgood/mediatrack/internal/models"
)

// Audiobook is the stored form of models.AudiobookRecord
type Audiobook struct {
	ID             uint     `gorm:"primaryKey"`
	ExternalID     *string  `gorm:"size:64;uniqueIndex"`
	Title          string   `gorm:"not null"`
	SeriesName     *string  `gorm:"size:255;index:idx_audiobooks_series"`
	SeriesPosition *float64 `gorm:"index:idx_audiobooks_series"`
	Author         string   `gorm:"not null"`
	Narrator       *string
	Owned          bool    `gorm:"not null;default:false"`
	Listened       bool    `gorm:"not null;default:false"`
	ReleaseDate    *string `gorm:"size:10"`
	PurchaseDate   *string `gorm:"size:10"`
	LengthMinutes  *int
	Rating         *float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BeforeCreate hook for Audiobook
func (a *Audiobook) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	return nil
}

// BeforeUpdate hook for Audiobook
func (a *Audiobook) BeforeUpdate(tx *gorm.DB) error {
	a.UpdatedAt = time.Now()
	return nil
}

func newAudiobook(rec models.AudiobookRecord) *Audiobook {
	return &Audiobook{
		ExternalID:     rec.ExternalID,
		Title:          rec.Title,
		SeriesName:     rec.SeriesName,
		SeriesPosition: rec.SeriesPosition,
		Author:         rec.Author,
		Narrator:       rec.Narrator,
		Owned:          rec.Owned,
		Listened:       rec.Listened,
		ReleaseDate:    rec.ReleaseDate,
		PurchaseDate:   rec.PurchaseDate,
		LengthMinutes:  rec.LengthMinutes,
		Rating:         rec.Rating,
	}
}

// overwriteColumns lists what an upsert replaces. Listened and CreatedAt
// belong to the stored row and survive re-imports.
func overwriteColumns(rec models.AudiobookRecord) map[string]interface{} {
	return map[string]interface{}{
		"external_id":     rec.ExternalID,
		"title":           rec.Title,
		"series_name":     rec.SeriesName,
		"series_position": rec.SeriesPosition,
		"author":          rec.Author,
		"narrator":        rec.Narrator,
		"owned":           rec.Owned,
		"release_date":    rec.ReleaseDate,
		"purchase_date":   rec.PurchaseDate,
		"length_minutes":  rec.LengthMinutes,
		"rating":          rec.Rating,
		"updated_at":      time.Now(),
	}
}

// Record converts the row to its domain form
func (a *Audiobook) Record() models.AudiobookRecord {
	return models.AudiobookRecord{
		ID:             a.ID,
		ExternalID:     a.ExternalID,
		Title:          a.Title,
		SeriesName:     a.SeriesName,
		SeriesPosition: a.SeriesPosition,
		Author:         a.Author,
		Narrator:       a.Narrator,
		Owned:          a.Owned,
		Listened:       a.Listened,
		ReleaseDate:    a.ReleaseDate,
		PurchaseDate:   a.PurchaseDate,
		LengthMinutes:  a.LengthMinutes,
		Rating:         a.Rating,
	}
}

// ImportRun records one import invocation
type ImportRun struct {
	ID                string `gorm:"primaryKey;size:36"`
	SourcePath        string `gorm:"not null"`
	Status            string `gorm:"size:16;not null;index"`
	ProcessedCount    int
	SeriesCount       int
	MissingBooksFound int
	FailedUpserts     int
	Error             string    `gorm:"type:text"`
	StartedAt         time.Time `gorm:"index"`
	FinishedAt        *time.Time
}

// BeforeCreate hook for ImportRun
func (r *ImportRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	return nil
}

// Model converts the row to its domain form
func (r *ImportRun) Model() models.ImportRun {
	return models.ImportRun{
		ID:                r.ID,
		SourcePath:        r.SourcePath,
		Status:            r.Status,
		ProcessedCount:    r.ProcessedCount,
		SeriesCount:       r.SeriesCount,
		MissingBooksFound: r.MissingBooksFound,
		FailedUpserts:     r.FailedUpserts,
		Error:             r.Error,
		StartedAt:         r.StartedAt,
		FinishedAt:        r.FinishedAt,
	}
}
