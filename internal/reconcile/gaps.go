package reconcile

import (
	"fmt"
	"math"
	"sort"

	"github.com/drallgood/mediatrack/internal/models"
)

// MaxSeriesPosition is the highest position gap detection trusts. Larger
// values are almost always an ISBN or a year typed into the position column.
const MaxSeriesPosition = 1000

// ImplausiblePosition returns the first position in books outside
// [0, MaxSeriesPosition].
func ImplausiblePosition(books []models.AudiobookRecord) (float64, bool) {
	for _, b := range books {
		if b.SeriesPosition == nil {
			continue
		}
		if p := *b.SeriesPosition; math.IsNaN(p) || p < 0 || p > MaxSeriesPosition {
			return p, true
		}
	}
	return 0, false
}

// MissingPositions returns the integer series positions absent from books,
// in ascending order. Groups with fewer than two books, or fewer than two
// books carrying a position, have no detectable gaps. Neither do groups with
// an implausible position.
//
// Positions are compared as floats but gaps are stepped as integers, so a
// novella at 1.5 does not fill position 2 in {1, 1.5, 3}.
func MissingPositions(books []models.AudiobookRecord) []int {
	if len(books) < 2 {
		return nil
	}
	if _, bad := ImplausiblePosition(books); bad {
		return nil
	}

	positions := make([]float64, 0, len(books))
	for _, b := range books {
		if b.SeriesPosition != nil {
			positions = append(positions, *b.SeriesPosition)
		}
	}
	if len(positions) < 2 {
		return nil
	}
	sort.Float64s(positions)

	var missing []int

	// leading gap below the first known book
	for p := 1; float64(p) < positions[0]; p++ {
		missing = append(missing, p)
	}

	for i := 0; i < len(positions)-1; i++ {
		current, next := positions[i], positions[i+1]
		if next-current <= 1 {
			continue
		}
		for p := int(math.Floor(current)) + 1; float64(p) < next; p++ {
			missing = append(missing, p)
		}
	}

	return missing
}

// Placeholder builds the unowned stand-in for a missing series entry.
func Placeholder(series, author string, position int) models.AudiobookRecord {
	name := series
	pos := float64(position)
	return models.AudiobookRecord{
		Title:          fmt.Sprintf("%s Book %d", series, position),
		SeriesName:     &name,
		SeriesPosition: &pos,
		Author:         author,
	}
}
