package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliopalmerini/splitr/internal/domain"
)

func TestResultsArchive_RoundTrip(t *testing.T) {
	ctx := context.Background()
	archive, err := NewResultsArchiveAt(t.TempDir())
	require.NoError(t, err)

	missing, err := archive.Get(ctx, "exp-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	analysis := &domain.Analysis{
		ExperimentID:   "exp-1",
		ExperimentName: "hero",
		Status:         domain.StatusCompleted,
		ControlVariant: "control",
		TotalUsers:     200,
		Results: []domain.VariantResult{
			{VariantID: "control", Users: 100, Conversions: 10, ConversionRate: 10},
			{VariantID: "b", Users: 100, Conversions: 20, ConversionRate: 20, ZScore: 1.98, Confidence: 95, Significant: true},
		},
		HasWinner: true,
	}

	path, err := archive.Store(ctx, analysis)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	got, err := archive.Get(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, analysis, got)

	require.NoError(t, archive.Delete(ctx, "exp-1"))
	require.NoError(t, archive.Delete(ctx, "exp-1"), "deleting twice is fine")
	gone, err := archive.Get(ctx, "exp-1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}
