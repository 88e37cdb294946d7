package learning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnindex/internal/types"
)

type fakeIndex struct {
	calls    int
	lastIDs  []string
	lastMeta []map[string]string
	failWith error
}

func (f *fakeIndex) UpdateMetadata(_ context.Context, ids []string, metadatas []map[string]string) error {
	f.calls++
	f.lastIDs = ids
	f.lastMeta = metadatas
	return f.failWith
}

func TestApplyFeedbackPositiveValidatesSolution(t *testing.T) {
	idx := &fakeIndex{}
	l := NewLearner(idx, nil)

	outcome, err := l.ApplyFeedback(context.Background(), "sol-1", "ran go test ./... to fix the build",
		"that fixed it, thanks, works perfectly now", map[string]string{"project": "p1"})
	require.NoError(t, err)

	assert.True(t, outcome.IsValidatedSolution)
	assert.False(t, outcome.IsRefutedAttempt)
	assert.Equal(t, types.SentimentPositive, outcome.FeedbackSentiment)
	assert.Greater(t, outcome.ValidationStrength, 0.0)
	assert.Greater(t, outcome.SolutionConfidence, 1.0)

	require.Equal(t, 1, idx.calls)
	assert.Equal(t, []string{"sol-1"}, idx.lastIDs)
	assert.Equal(t, "p1", idx.lastMeta[0]["project"])
	assert.Equal(t, "true", idx.lastMeta[0]["is_validated_solution"])
}

func TestApplyFeedbackNegativeRefutesSolution(t *testing.T) {
	idx := &fakeIndex{}
	l := NewLearner(idx, nil)

	outcome, err := l.ApplyFeedback(context.Background(), "sol-2", "", "no, that's wrong, it's still broken", nil)
	require.NoError(t, err)

	assert.False(t, outcome.IsValidatedSolution)
	assert.True(t, outcome.IsRefutedAttempt)
	assert.Equal(t, types.SentimentNegative, outcome.FeedbackSentiment)
	assert.Less(t, outcome.ValidationStrength, 0.0)
	assert.GreaterOrEqual(t, outcome.SolutionConfidence, 0.3)
}

func TestApplyFeedbackDoesNotMutateCallerMetadata(t *testing.T) {
	idx := &fakeIndex{}
	l := NewLearner(idx, nil)

	original := map[string]string{"project": "p1"}
	_, err := l.ApplyFeedback(context.Background(), "sol-3", "", "fixed, that works now", original)
	require.NoError(t, err)

	assert.Len(t, original, 1, "ApplyFeedback must not add keys to the caller's map")
}

func TestSummaryAggregatesAcrossCalls(t *testing.T) {
	idx := &fakeIndex{}
	l := NewLearner(idx, nil)
	ctx := context.Background()

	_, err := l.ApplyFeedback(ctx, "sol-1", "", "perfect, fixed it, thank you", nil)
	require.NoError(t, err)
	_, err = l.ApplyFeedback(ctx, "sol-2", "", "nope, still broken, that didn't work", nil)
	require.NoError(t, err)

	summary := l.Summary()
	assert.Equal(t, 2, summary.TotalSolutions)
	assert.Equal(t, 1, summary.ValidatedSolutions)
	assert.Equal(t, 1, summary.RefutedSolutions)
	assert.InDelta(t, 0.5, summary.SuccessRate, 1e-9)
	assert.InDelta(t, 0.5, summary.FailureRate, 1e-9)
}

func TestSummaryBeforeAnyCallsIsZeroValued(t *testing.T) {
	l := NewLearner(&fakeIndex{}, nil)
	summary := l.Summary()
	assert.Equal(t, 0, summary.TotalSolutions)
	assert.Equal(t, 0.0, summary.SuccessRate)
}
