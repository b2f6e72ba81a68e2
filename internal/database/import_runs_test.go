package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drallgood/mediatrack/internal/models"
)

func TestImportRunRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewImportRunRepository(newTestDatabase(t), nil)

	okID, err := repo.StartRun(ctx, "/data/library.xlsx")
	require.NoError(t, err)
	assert.Len(t, okID, 36)

	require.NoError(t, repo.FinishRun(ctx, okID, &models.ImportSummary{
		ProcessedCount:    12,
		SeriesCount:       3,
		MissingBooksFound: 2,
		FailedUpserts:     1,
	}, nil))

	failedID, err := repo.StartRun(ctx, "/data/missing.xlsx")
	require.NoError(t, err)
	require.NoError(t, repo.FinishRun(ctx, failedID, nil, errors.New("cannot access import file")))

	runs, err := repo.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byID := map[string]models.ImportRun{}
	for _, r := range runs {
		byID[r.ID] = r
	}

	ok := byID[okID]
	assert.Equal(t, models.ImportStatusCompleted, ok.Status)
	assert.Equal(t, 12, ok.ProcessedCount)
	assert.Equal(t, 3, ok.SeriesCount)
	assert.Equal(t, 2, ok.MissingBooksFound)
	assert.Equal(t, 1, ok.FailedUpserts)
	assert.NotNil(t, ok.FinishedAt)

	failed := byID[failedID]
	assert.Equal(t, models.ImportStatusFailed, failed.Status)
	assert.Equal(t, "cannot access import file", failed.Error)

	limited, err := repo.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestImportRunRepository_FinishUnknownRun(t *testing.T) {
	repo := NewImportRunRepository(newTestDatabase(t), nil)
	assert.NoError(t, repo.FinishRun(context.Background(), "does-not-exist", nil, nil))
}
