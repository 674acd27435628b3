package experiment_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliopalmerini/splitr/internal/domain"
	"github.com/emiliopalmerini/splitr/internal/experiment"
)

func TestRecordConversion_OverwritesOnRepeat(t *testing.T) {
	f := newFixture(t)
	exp := f.running(t, definition("hero", 100))
	ctx := context.Background()
	user := domain.UserSubject("u-1")

	f.engine.Allocate(ctx, "hero", user)

	first, second := 10.0, 25.0
	require.NoError(t, f.engine.RecordConversion(ctx, "hero", user, &first))
	f.clock.Advance(time.Hour)
	require.NoError(t, f.engine.RecordConversion(ctx, "hero", user, &second))

	rows := f.rows(t, exp.ID)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Converted)
	assert.Equal(t, 25.0, *rows[0].ConversionValue)
	assert.True(t, rows[0].ConvertedAt.Equal(epoch.Add(time.Hour)))
}

func TestRecordConversion_NoOps(t *testing.T) {
	f := newFixture(t, experiment.WithRandom(fixedDraw(0.9)))
	exp := f.running(t, definition("hero", 50))
	ctx := context.Background()

	// Unknown experiment
	assert.NoError(t, f.engine.RecordConversion(ctx, "nope", domain.UserSubject("u-1"), nil))

	// Not admitted (draw 0.9 > 50%), so no assignment exists
	a := f.engine.Allocate(ctx, "hero", domain.UserSubject("u-1"))
	require.Equal(t, experiment.ReasonNotAdmitted, a.Reason)
	assert.NoError(t, f.engine.RecordConversion(ctx, "hero", domain.UserSubject("u-1"), nil))
	assert.Empty(t, f.rows(t, exp.ID))

	analysis, err := f.engine.Analyze(ctx, exp.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, analysis.TotalUsers)
}

func TestRecordConversion_CompletedIsFrozen(t *testing.T) {
	f := newFixture(t)
	exp := f.running(t, definition("hero", 100))
	ctx := context.Background()
	user := domain.UserSubject("u-1")

	f.engine.Allocate(ctx, "hero", user)
	_, err := f.engine.Stop(ctx, exp.ID, nil)
	require.NoError(t, err)

	require.NoError(t, f.engine.RecordConversion(ctx, "hero", user, nil))
	rows := f.rows(t, exp.ID)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Converted)
}

func TestRecordConversion_PausedStillCounts(t *testing.T) {
	f := newFixture(t)
	exp := f.running(t, definition("hero", 100))
	ctx := context.Background()
	user := domain.UserSubject("u-1")

	f.engine.Allocate(ctx, "hero", user)
	_, err := f.engine.Pause(ctx, exp.ID)
	require.NoError(t, err)

	require.NoError(t, f.engine.RecordConversion(ctx, "hero", user, nil))
	assert.True(t, f.rows(t, exp.ID)[0].Converted)
}

func TestEngine_EndToEnd(t *testing.T) {
	f := newFixture(t)
	exp := f.running(t, definition("hero", 100))
	ctx := context.Background()

	for i := 0; i < 400; i++ {
		user := domain.UserSubject(fmt.Sprintf("u-%d", i))
		a := f.engine.Allocate(ctx, "hero", user)
		// Variant b converts twice as often.
		every := 10
		if a.VariantID == "b" {
			every = 5
		}
		if i%every == 0 {
			require.NoError(t, f.engine.RecordConversion(ctx, "hero", user, nil))
		}
	}

	analysis, err := f.engine.AnalyzeByName(ctx, "hero")
	require.NoError(t, err)
	assert.EqualValues(t, 400, analysis.TotalUsers)
	require.Len(t, analysis.Results, 2)
	assert.Equal(t, "control", analysis.Results[0].VariantID)
	assert.Greater(t, analysis.Results[1].ConversionRate, analysis.Results[0].ConversionRate)
	assert.Equal(t, exp.ID, analysis.ExperimentID)
}
