package models

import "time"

// Default values used when a row lacks a title or author column.
const (
	UnknownTitle  = "Unknown Title"
	UnknownAuthor = "Unknown Author"
)

// AudiobookRecord is a single audiobook in the library. Placeholder records
// stand in for books missing from a numbered series: they have no external
// ID and are never owned.
type AudiobookRecord struct {
	ID             uint     `json:"id"`
	ExternalID     *string  `json:"externalId,omitempty"`
	Title          string   `json:"title"`
	SeriesName     *string  `json:"seriesName,omitempty"`
	SeriesPosition *float64 `json:"seriesPosition,omitempty"`
	Author         string   `json:"author"`
	Narrator       *string  `json:"narrator,omitempty"`
	Owned          bool     `json:"owned"`
	Listened       bool     `json:"listened"`
	ReleaseDate    *string  `json:"releaseDate,omitempty"`  // YYYY-MM-DD
	PurchaseDate   *string  `json:"purchaseDate,omitempty"` // YYYY-MM-DD
	LengthMinutes  *int     `json:"lengthMinutes,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`
}

// IsPlaceholder reports whether the record was synthesized for a series gap.
func (r AudiobookRecord) IsPlaceholder() bool {
	return !r.Owned && r.ExternalID == nil
}

// Series returns the series name or an empty string.
func (r AudiobookRecord) Series() string {
	if r.SeriesName == nil {
		return ""
	}
	return *r.SeriesName
}

// SeriesStats is the read-side aggregate for one series.
type SeriesStats struct {
	SeriesName    string   `json:"seriesName"`
	Total         int      `json:"total"`
	Owned         int      `json:"owned"`
	Listened      int      `json:"listened"`
	MinPosition   *float64 `json:"minPosition,omitempty"`
	MaxPosition   *float64 `json:"maxPosition,omitempty"`
	AverageRating *float64 `json:"averageRating,omitempty"`
	TotalMinutes  int      `json:"totalMinutes"`
}

// SeriesProgress extends SeriesStats with derived completion figures.
type SeriesProgress struct {
	SeriesStats
	Missing         int     `json:"missing"`
	PercentOwned    float64 `json:"percentOwned"`
	PercentListened float64 `json:"percentListened"`
}

// ListeningStats summarises the whole library.
type ListeningStats struct {
	TotalBooks        int     `json:"totalBooks"`
	OwnedBooks        int     `json:"ownedBooks"`
	ListenedBooks     int     `json:"listenedBooks"`
	UnownedBooks      int     `json:"unownedBooks"`
	TotalMinutes      int     `json:"totalMinutes"`
	ListenedMinutes   int     `json:"listenedMinutes"`
	CompletionPercent float64 `json:"completionPercent"`
}

// ImportSummary is returned by an import run.
type ImportSummary struct {
	RunID             string `json:"runId,omitempty"`
	ProcessedCount    int    `json:"processedCount"`
	SeriesCount       int    `json:"seriesCount"`
	MissingBooksFound int    `json:"missingBooksFound"`
	// FailedUpserts counts real or placeholder records that could not be
	// stored. The import still succeeds when this is non-zero.
	FailedUpserts int `json:"failedUpserts"`
	// SeriesSkipped counts series whose gaps were not filled because a
	// position was implausible.
	SeriesSkipped int `json:"seriesSkipped"`
}

// ImportRun is a persisted record of one import invocation.
type ImportRun struct {
	ID                string     `json:"id"`
	SourcePath        string     `json:"sourcePath"`
	Status            string     `json:"status"`
	ProcessedCount    int        `json:"processedCount"`
	SeriesCount       int        `json:"seriesCount"`
	MissingBooksFound int        `json:"missingBooksFound"`
	FailedUpserts     int        `json:"failedUpserts"`
	Error             string     `json:"error,omitempty"`
	StartedAt         time.Time  `json:"startedAt"`
	FinishedAt        *time.Time `json:"finishedAt,omitempty"`
}

// Import run statuses.
const (
	ImportStatusRunning   = "running"
	ImportStatusCompleted = "completed"
	ImportStatusFailed    = "failed"
)
