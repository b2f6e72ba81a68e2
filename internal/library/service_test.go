package library

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drallgood/mediatrack/internal/models"
)

type fakeStore struct {
	series map[string][]models.AudiobookRecord
	stats  []models.SeriesStats
	totals models.ListeningStats
	books  map[uint]models.AudiobookRecord
	err    error
}

func (f *fakeStore) QueryBySeries(_ context.Context, name string) ([]models.AudiobookRecord, error) {
	return f.series[name], f.err
}

func (f *fakeStore) AggregateSeriesStats(context.Context) ([]models.SeriesStats, error) {
	return f.stats, f.err
}

func (f *fakeStore) ListeningStats(context.Context) (models.ListeningStats, error) {
	return f.totals, f.err
}

func (f *fakeStore) SetListened(_ context.Context, id uint, listened bool) (models.AudiobookRecord, error) {
	rec, ok := f.books[id]
	if !ok {
		return models.AudiobookRecord{}, ErrNotFound
	}
	rec.Listened = listened
	f.books[id] = rec
	return rec, nil
}

type fakeRuns struct{ limit int }

func (f *fakeRuns) ListRuns(_ context.Context, limit int) ([]models.ImportRun, error) {
	f.limit = limit
	return []models.ImportRun{{ID: "r1"}}, nil
}

func TestSeriesProgress(t *testing.T) {
	store := &fakeStore{stats: []models.SeriesStats{
		{SeriesName: "Mistborn", Total: 4, Owned: 3, Listened: 1},
		{SeriesName: "Stormlight", Total: 3, Owned: 3, Listened: 3},
	}}
	svc := NewService(store, nil, nil)

	progress, err := svc.SeriesProgress(context.Background())
	require.NoError(t, err)
	require.Len(t, progress, 2)

	assert.Equal(t, "Mistborn", progress[0].SeriesName)
	assert.Equal(t, 1, progress[0].Missing)
	assert.Equal(t, 75.0, progress[0].PercentOwned)
	assert.Equal(t, 25.0, progress[0].PercentListened)

	assert.Zero(t, progress[1].Missing)
	assert.Equal(t, 100.0, progress[1].PercentListened)
}

func TestSeriesDetail(t *testing.T) {
	store := &fakeStore{series: map[string][]models.AudiobookRecord{
		"Mistborn": {{ID: 1, Title: "The Final Empire"}},
	}}
	svc := NewService(store, nil, nil)
	ctx := context.Background()

	books, err := svc.SeriesDetail(ctx, "  Mistborn ")
	require.NoError(t, err)
	assert.Len(t, books, 1)

	_, err = svc.SeriesDetail(ctx, "Wax and Wayne")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.SeriesDetail(ctx, " ")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestListeningStats(t *testing.T) {
	store := &fakeStore{totals: models.ListeningStats{TotalBooks: 10, OwnedBooks: 8, ListenedBooks: 3}}
	stats, err := NewService(store, nil, nil).ListeningStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 37.5, stats.CompletionPercent)

	empty, err := NewService(&fakeStore{}, nil, nil).ListeningStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, empty.CompletionPercent)
}

func TestMarkListened(t *testing.T) {
	store := &fakeStore{books: map[uint]models.AudiobookRecord{5: {ID: 5, Title: "Elantris"}}}
	svc := NewService(store, nil, nil)

	rec, err := svc.MarkListened(context.Background(), 5, true)
	require.NoError(t, err)
	assert.True(t, rec.Listened)

	_, err = svc.MarkListened(context.Background(), 6, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewService(&fakeStore{err: boom}, nil, nil)

	_, err := svc.SeriesProgress(context.Background())
	assert.ErrorIs(t, err, boom)
	_, err = svc.ListeningStats(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRecentRuns(t *testing.T) {
	runs := &fakeRuns{}
	svc := NewService(&fakeStore{}, runs, nil)

	got, err := svc.RecentRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 20, runs.limit)

	none, err := NewService(&fakeStore{}, nil, nil).RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}
