package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drallgood/mediatrack/internal/logger"
	"github.com/drallgood/mediatrack/internal/models"
)

type recordingStore struct {
	mu       sync.Mutex
	upserts  []models.AudiobookRecord
	failures map[float64]bool
}

func (s *recordingStore) Upsert(_ context.Context, rec models.AudiobookRecord) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.SeriesPosition != nil && s.failures[*rec.SeriesPosition] {
		return 0, errors.New("disk full")
	}
	s.upserts = append(s.upserts, rec)
	return uint(len(s.upserts)), nil
}

func (s *recordingStore) positions(series string) []float64 {
	var out []float64
	for _, rec := range s.upserts {
		if rec.Series() == series {
			out = append(out, *rec.SeriesPosition)
		}
	}
	return out
}

func TestGroupBySeries(t *testing.T) {
	records := []models.AudiobookRecord{
		book("Foo", 2),
		book("Bar", 1),
		{Title: "Standalone"},
		book("Foo", 1),
	}

	groups := GroupBySeries(records)
	require.Len(t, groups, 2)
	require.Len(t, groups["Foo"], 2)
	assert.Equal(t, 2.0, *groups["Foo"][0].SeriesPosition, "input order is preserved")
	assert.Len(t, groups["Bar"], 1)
}

func TestReconcile_SynthesizesPlaceholders(t *testing.T) {
	store := &recordingStore{}
	engine := NewEngine(store, logger.Nop())

	groups := map[string][]models.AudiobookRecord{
		"Foo":  series("Foo", 1, 3, 5),
		"Bar":  series("Bar", 3, 4),
		"Solo": series("Solo", 2),
		"Done": series("Done", 1, 2),
	}

	result := engine.Reconcile(context.Background(), groups)

	assert.Equal(t, []float64{2, 4}, store.positions("Foo"))
	assert.Equal(t, []float64{1, 2}, store.positions("Bar"))
	assert.Empty(t, store.positions("Solo"))
	assert.Empty(t, store.positions("Done"))

	assert.Equal(t, 2, result.SeriesWithGaps)
	assert.Equal(t, 2, result.SeriesWithoutGaps)
	assert.Equal(t, 4, result.PlaceholdersWritten)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, []int{2, 4}, result.Missing["Foo"])

	for _, rec := range store.upserts {
		assert.False(t, rec.Owned)
		assert.False(t, rec.Listened)
		assert.Nil(t, rec.ExternalID)
		assert.Equal(t, "Author of "+rec.Series(), rec.Author)
	}
	assert.Equal(t, "Foo Book 2", store.upserts[len(store.upserts)-2].Title)
}

func TestReconcile_AuthorFromFirstKnownBook(t *testing.T) {
	store := &recordingStore{}
	engine := NewEngine(store, nil)

	first := book("Foo", 4)
	first.Author = "First Author"
	second := book("Foo", 1)
	second.Author = "Co-Author"

	engine.Reconcile(context.Background(), map[string][]models.AudiobookRecord{
		"Foo": {first, second},
	})

	require.Len(t, store.upserts, 2)
	for _, rec := range store.upserts {
		assert.Equal(t, "First Author", rec.Author)
	}
}

func TestReconcile_FailuresDoNotStopProcessing(t *testing.T) {
	store := &recordingStore{failures: map[float64]bool{2: true}}
	engine := NewEngine(store, logger.Nop())

	result := engine.Reconcile(context.Background(), map[string][]models.AudiobookRecord{
		"Alpha": series("Alpha", 1, 4),
		"Beta":  series("Beta", 3, 4),
	})

	assert.Equal(t, []float64{3}, store.positions("Alpha"))
	assert.Equal(t, []float64{1}, store.positions("Beta"))
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 2, result.PlaceholdersWritten)
	assert.Equal(t, []int{3}, result.Missing["Alpha"])
}

func TestReconcile_SkipsSeriesWithImplausiblePosition(t *testing.T) {
	store := &recordingStore{}
	engine := NewEngine(store, logger.Nop())

	done := make(chan Result, 1)
	go func() {
		done <- engine.Reconcile(context.Background(), map[string][]models.AudiobookRecord{
			"Foo": series("Foo", 1, 9781250781090),
			"Bar": series("Bar", 1, 3),
		})
	}()

	var result Result
	select {
	case result = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reconcile did not finish")
	}

	assert.Equal(t, 1, result.SeriesSkipped)
	assert.Equal(t, 1, result.SeriesWithGaps)
	assert.Empty(t, store.positions("Foo"))
	assert.Equal(t, []float64{2}, store.positions("Bar"))
}
