// Package normalize maps spreadsheet rows with varying column headers onto
// audiobook records.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/drallgood/mediatrack/internal/models"
)

// Field identifies a canonical audiobook attribute.
type Field string

const (
	FieldExternalID     Field = "externalId"
	FieldTitle          Field = "title"
	FieldAuthor         Field = "author"
	FieldNarrator       Field = "narrator"
	FieldSeriesName     Field = "seriesName"
	FieldSeriesPosition Field = "seriesPosition"
	FieldReleaseDate    Field = "releaseDate"
	FieldPurchaseDate   Field = "purchaseDate"
	FieldLengthMinutes  Field = "lengthMinutes"
	FieldRating         Field = "rating"
)

// Aliases lists, per field, the column headers tried in order. The first
// non-empty cell wins.
type Aliases map[Field][]string

// DefaultAliases covers the header names seen in Audible library exports and
// the common spreadsheet templates built from them.
func DefaultAliases() Aliases {
	return Aliases{
		FieldExternalID:     {"ASIN", "asin", "Asin"},
		FieldTitle:          {"Title", "title", "BookTitle", "Product Name"},
		FieldAuthor:         {"Author", "author", "Authors", "By"},
		FieldNarrator:       {"Narrator", "narrator", "Narrated By"},
		FieldSeriesName:     {"Series", "series", "Series Name"},
		FieldSeriesPosition: {"Series Position", "Book #", "Book", "#"},
		FieldReleaseDate:    {"Release Date", "Publication Date", "Date Added"},
		FieldPurchaseDate:   {"Purchase Date", "Date Purchased", "Added"},
		FieldLengthMinutes:  {"Length", "Duration", "Runtime"},
		FieldRating:         {"Rating", "My Rating", "Overall Rating"},
	}
}

// Normalizer converts raw rows into records. It holds no mutable state and is
// safe for concurrent use.
type Normalizer struct {
	aliases Aliases
}

// New creates a Normalizer. A nil aliases map uses DefaultAliases.
func New(aliases Aliases) *Normalizer {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Normalizer{aliases: aliases}
}

// Normalize builds a record from one row. It never fails: unparseable cells
// simply leave the field unset.
func (n *Normalizer) Normalize(row map[string]any) models.AudiobookRecord {
	rec := models.AudiobookRecord{
		Title:  models.UnknownTitle,
		Author: models.UnknownAuthor,
		Owned:  true,
	}

	if v, ok := n.lookup(row, FieldExternalID); ok {
		rec.ExternalID = &v
	}
	if v, ok := n.lookup(row, FieldTitle); ok {
		rec.Title = v
	}
	if v, ok := n.lookup(row, FieldAuthor); ok {
		rec.Author = v
	}
	if v, ok := n.lookup(row, FieldNarrator); ok {
		rec.Narrator = &v
	}
	if v, ok := n.lookup(row, FieldSeriesName); ok {
		if name, ok := CleanSeriesName(v); ok {
			rec.SeriesName = &name
		}
	}
	if v, ok := n.lookup(row, FieldSeriesPosition); ok {
		if pos, ok := ParseSeriesPosition(v); ok {
			rec.SeriesPosition = &pos
		}
	}
	if v, ok := n.lookup(row, FieldReleaseDate); ok {
		if d, ok := ParseDate(v); ok {
			rec.ReleaseDate = &d
		}
	}
	if v, ok := n.lookup(row, FieldPurchaseDate); ok {
		if d, ok := ParseDate(v); ok {
			rec.PurchaseDate = &d
		}
	}
	if v, ok := n.lookup(row, FieldLengthMinutes); ok {
		if mins, ok := ParseDuration(v); ok {
			rec.LengthMinutes = &mins
		}
	}
	if v, ok := n.lookup(row, FieldRating); ok {
		if rating, ok := ParseRating(v); ok {
			rec.Rating = &rating
		}
	}

	return rec
}

func (n *Normalizer) lookup(row map[string]any, field Field) (string, bool) {
	for _, alias := range n.aliases[field] {
		raw, ok := row[alias]
		if !ok || raw == nil {
			continue
		}
		if s := strings.TrimSpace(stringify(raw)); s != "" {
			return s, true
		}
	}
	return "", false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC3339)
	case *string:
		if t == nil {
			return ""
		}
		return *t
	default:
		return fmt.Sprint(v)
	}
}
