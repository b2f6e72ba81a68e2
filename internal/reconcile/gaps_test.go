package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drallgood/mediatrack/internal/models"
)

func book(series string, pos ...float64) models.AudiobookRecord {
	rec := models.AudiobookRecord{
		Title:      series + " entry",
		SeriesName: &series,
		Author:     "Author of " + series,
		Owned:      true,
	}
	if len(pos) > 0 {
		p := pos[0]
		rec.SeriesPosition = &p
	}
	return rec
}

func series(name string, positions ...float64) []models.AudiobookRecord {
	books := make([]models.AudiobookRecord, 0, len(positions))
	for _, p := range positions {
		books = append(books, book(name, p))
	}
	return books
}

func TestMissingPositions(t *testing.T) {
	tests := []struct {
		name     string
		books    []models.AudiobookRecord
		expected []int
	}{
		{"interior gaps", series("Foo", 1, 3, 5), []int{2, 4}},
		{"leading gap", series("Foo", 3, 4), []int{1, 2}},
		{"leading and interior", series("Foo", 2, 5), []int{1, 3, 4}},
		{"unsorted input", series("Foo", 5, 1, 3), []int{2, 4}},
		{"complete series", series("Foo", 1, 2, 3), nil},
		{"single book", series("Foo", 2), nil},
		{"no books", nil, nil},
		{"fractional does not fill integer gap", series("Foo", 1, 1.5, 3), []int{2}},
		{"fractional lower bound", series("Foo", 1.5, 3.5), []int{1, 2, 3}},
		{"novella between consecutive books", series("Foo", 1, 1.5, 2), nil},
		{"duplicate positions", series("Foo", 1, 1, 3), []int{2}},
		{"zero is a valid prequel", series("Foo", 0, 2), []int{1}},
		{"isbn in position column", series("Foo", 1, 9781250781090), nil},
		{"year in position column", series("Foo", 2019, 1, 3), nil},
		{"position at the limit", series("Foo", 998, MaxSeriesPosition), []int{999}},
		{
			"only one positioned book",
			[]models.AudiobookRecord{book("Foo", 4), book("Foo")},
			nil,
		},
		{
			"unpositioned books are ignored",
			[]models.AudiobookRecord{book("Foo"), book("Foo", 2), book("Foo", 4)},
			[]int{1, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MissingPositions(tt.books))
		})
	}
}

func TestImplausiblePosition(t *testing.T) {
	pos, bad := ImplausiblePosition(series("Foo", 1, 2, 2019))
	assert.True(t, bad)
	assert.Equal(t, 2019.0, pos)

	_, bad = ImplausiblePosition([]models.AudiobookRecord{book("Foo"), book("Foo", 0), book("Foo", MaxSeriesPosition)})
	assert.False(t, bad)
}

func TestPlaceholder(t *testing.T) {
	rec := Placeholder("Mistborn", "Brandon Sanderson", 3)

	assert.Equal(t, "Mistborn Book 3", rec.Title)
	assert.Equal(t, "Mistborn", rec.Series())
	if assert.NotNil(t, rec.SeriesPosition) {
		assert.Equal(t, 3.0, *rec.SeriesPosition)
	}
	assert.Equal(t, "Brandon Sanderson", rec.Author)
	assert.False(t, rec.Owned)
	assert.False(t, rec.Listened)
	assert.True(t, rec.IsPlaceholder())
	assert.Nil(t, rec.ExternalID)
	assert.Nil(t, rec.ReleaseDate)
	assert.Nil(t, rec.PurchaseDate)
	assert.Nil(t, rec.Rating)
	assert.Nil(t, rec.LengthMinutes)
}
