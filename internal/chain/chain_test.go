package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"turnindex/internal/feedback"
	"turnindex/internal/types"
)

// patternAnalyzerAdapter adapts C4's pattern analyzer to the FeedbackAnalyzer
// interface chain.BackFill expects.
type patternAnalyzerAdapter struct{}

func (patternAnalyzerAdapter) Analyze(content string) (types.FeedbackSentiment, float64, float64) {
	r := feedback.AnalyzePattern(content)
	return r.Sentiment, r.Strength, r.Confidence
}

func turn(id string, role types.Role, content string) *types.Turn {
	return &types.Turn{ID: id, Role: role, Content: content}
}

func TestBackFillSetsSequenceAndAdjacency(t *testing.T) {
	turns := []*types.Turn{
		turn("1", types.RoleUser, "how do I fix this bug"),
		turn("2", types.RoleAssistant, "I fixed the bug by editing the handler function"),
		turn("3", types.RoleUser, "thanks, that worked perfectly"),
	}

	_, err := NewBuilder().BackFill(turns, patternAnalyzerAdapter{})
	require.NoError(t, err)

	assert.Equal(t, 0, turns[0].SequencePosition)
	assert.Equal(t, "", turns[0].PreviousTurnID)
	assert.Equal(t, "2", turns[0].NextTurnID)
	assert.Equal(t, "1", turns[1].PreviousTurnID)
	assert.Equal(t, "3", turns[1].NextTurnID)
	assert.Equal(t, "", turns[2].NextTurnID)
}

func TestBackFillWorkedExampleFromSpec(t *testing.T) {
	turns := []*types.Turn{
		turn("u1", types.RoleUser, "the build keeps failing, can you help"),
		turn("a2", types.RoleAssistant, "I fixed the build by editing the config file and adding the missing dependency"),
		turn("u3", types.RoleUser, "thanks, fixed!"),
		turn("a4", types.RoleAssistant, "I also refactored the function to resolve the second issue with the config"),
		turn("u5", types.RoleUser, "still broken, that did not work at all"),
	}
	turns[1].IsSolutionAttempt = true
	turns[3].IsSolutionAttempt = true

	_, err := NewBuilder().BackFill(turns, patternAnalyzerAdapter{})
	require.NoError(t, err)

	a2, u3, a4, u5 := turns[1], turns[2], turns[3], turns[4]

	assert.Equal(t, "u3", a2.FeedbackTurnID)
	assert.Equal(t, "a2", u3.RelatedSolutionID)
	assert.True(t, a2.IsValidatedSolution)
	assert.InDelta(t, 0.4, a2.ValidationStrength, 1e-9)

	assert.Equal(t, "u5", a4.FeedbackTurnID)
	assert.Equal(t, "a4", u5.RelatedSolutionID)
	assert.True(t, a4.IsRefutedAttempt)
	assert.Less(t, a4.ValidationStrength, 0.0)

	// P6 chain closure
	assert.Equal(t, a2.ID, u3.RelatedSolutionID)
	assert.Equal(t, a4.ID, u5.RelatedSolutionID)
}

func TestBackFillIsIdempotent(t *testing.T) {
	build := func() []*types.Turn {
		return []*types.Turn{
			turn("1", types.RoleUser, "the build keeps failing"),
			turn("2", types.RoleAssistant, "fixed it by editing the config"),
			turn("3", types.RoleUser, "perfect, that worked"),
		}
	}

	first := build()
	first[1].IsSolutionAttempt = true
	_, err := NewBuilder().BackFill(first, patternAnalyzerAdapter{})
	require.NoError(t, err)

	second := build()
	second[1].IsSolutionAttempt = true
	_, err = NewBuilder().BackFill(second, patternAnalyzerAdapter{})
	require.NoError(t, err)
	_, err = NewBuilder().BackFill(second, patternAnalyzerAdapter{})
	require.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].SequencePosition, second[i].SequencePosition)
		assert.Equal(t, first[i].PreviousTurnID, second[i].PreviousTurnID)
		assert.Equal(t, first[i].NextTurnID, second[i].NextTurnID)
		assert.Equal(t, first[i].FeedbackTurnID, second[i].FeedbackTurnID)
		assert.Equal(t, first[i].RelatedSolutionID, second[i].RelatedSolutionID)
		assert.Equal(t, first[i].ValidationStrength, second[i].ValidationStrength)
		assert.Equal(t, first[i].IsValidatedSolution, second[i].IsValidatedSolution)
	}
}

func TestBackFillClearsStaleOppositeFlagOnReclassification(t *testing.T) {
	turns := []*types.Turn{
		turn("1", types.RoleUser, "the build keeps failing"),
		turn("2", types.RoleAssistant, "fixed it by editing the config"),
		turn("3", types.RoleUser, "perfect, that worked"),
	}
	turns[1].IsSolutionAttempt = true
	// simulate a turn reloaded from storage with a stale refuted flag from a
	// prior run over different feedback content.
	turns[1].IsRefutedAttempt = true

	_, err := NewBuilder().BackFill(turns, patternAnalyzerAdapter{})
	require.NoError(t, err)

	assert.True(t, turns[1].IsValidatedSolution)
	assert.False(t, turns[1].IsRefutedAttempt)
}

func TestBackFillSingleTurnSessionHasEmptyAdjacency(t *testing.T) {
	turns := []*types.Turn{turn("1", types.RoleUser, "hello")}
	_, err := NewBuilder().BackFill(turns, patternAnalyzerAdapter{})
	require.NoError(t, err)
	assert.Equal(t, "", turns[0].PreviousTurnID)
	assert.Equal(t, "", turns[0].NextTurnID)
	assert.Equal(t, "", turns[0].FeedbackTurnID)
}

func TestClassifyConversationTypeSolutionFocused(t *testing.T) {
	turns := []*types.Turn{
		turn("1", types.RoleAssistant, "fix one"),
		turn("2", types.RoleAssistant, "fix two"),
	}
	turns[0].IsSolutionAttempt = true
	turns[1].IsSolutionAttempt = true
	assert.Equal(t, ConversationSolutionFocused, ClassifyConversationType(turns))
}

func TestClassifyConversationTypeGeneralAssistance(t *testing.T) {
	turns := []*types.Turn{
		turn("1", types.RoleUser, "what's the weather like"),
		turn("2", types.RoleAssistant, "I can't check that"),
	}
	assert.Equal(t, ConversationGeneralAssistance, ClassifyConversationType(turns))
}
