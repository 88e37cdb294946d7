package enrichment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnindex/internal/embedding"
	"turnindex/internal/extraction"
	"turnindex/internal/feedback"
	"turnindex/internal/types"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	embedding.ResetForTest()
	t.Cleanup(embedding.ResetForTest)
	gw := embedding.Get(embedding.Config{Provider: "hash"})

	return NewProcessor(Config{
		SemanticAnalyzer: feedback.NewSemanticAnalyzer(gw),
		Extractor:        extraction.NewExtractor(gw),
	})
}

func TestEnrichAssistantSolutionTurn(t *testing.T) {
	p := newTestProcessor(t)
	raw := &types.RawTurn{
		UpstreamID: "a1",
		Role:       types.RoleAssistant,
		Content:    "I fixed the bug by editing config.go and running the tests, which now pass.",
		ToolsUsed:  []string{"Edit", "Bash"},
	}

	turn := p.Enrich(context.Background(), raw, types.EnrichmentContext{Source: "bulk", SequencePosition: 0})

	require.NotNil(t, turn)
	assert.Equal(t, "a1", turn.ID)
	assert.NotEmpty(t, turn.ContentHash)
	assert.True(t, turn.IsSolutionAttempt)
	assert.Greater(t, turn.SolutionQualityScore, 1.0)
	assert.NotEmpty(t, turn.PrimaryTopic)
}

func TestEnrichUserFeedbackTurnSetsOutcomeFields(t *testing.T) {
	p := newTestProcessor(t)
	raw := &types.RawTurn{
		UpstreamID: "u1",
		Role:       types.RoleUser,
		Content:    "that fixed it, thanks, works perfectly now",
	}

	turn := p.Enrich(context.Background(), raw, types.EnrichmentContext{Source: "bulk", SequencePosition: 1})

	assert.Equal(t, types.SentimentPositive, turn.FeedbackSentiment)
	assert.GreaterOrEqual(t, turn.OutcomeCertainty, 0.0)
	assert.LessOrEqual(t, turn.OutcomeCertainty, 1.0)
}

func TestEnrichEmptyContentUsesPlaceholder(t *testing.T) {
	p := newTestProcessor(t)
	raw := &types.RawTurn{UpstreamID: "e1", Role: types.RoleUser, Content: ""}

	turn := p.Enrich(context.Background(), raw, types.EnrichmentContext{})

	assert.NotEmpty(t, turn.Content)
	assert.NotEmpty(t, turn.ContentHash)
}

func TestEnrichConsolidatesAdjacencyFromContext(t *testing.T) {
	p := newTestProcessor(t)
	prev := &types.RawTurn{UpstreamID: "p0"}
	next := &types.RawTurn{UpstreamID: "n2"}
	raw := &types.RawTurn{UpstreamID: "mid", Role: types.RoleUser, Content: "okay, got it"}

	turn := p.Enrich(context.Background(), raw, types.EnrichmentContext{
		PreviousRaw: prev, NextRaw: next, SequencePosition: 1,
	})

	assert.Equal(t, "p0", turn.PreviousTurnID)
	assert.Equal(t, "n2", turn.NextTurnID)
	assert.Equal(t, 1, turn.SequencePosition)
}

func TestStatsTracksCountAndSuccesses(t *testing.T) {
	p := newTestProcessor(t)
	p.Enrich(context.Background(), &types.RawTurn{UpstreamID: "s1", Role: types.RoleUser, Content: "hello there"},
		types.EnrichmentContext{})

	stats := p.Stats()
	assert.Equal(t, 1, stats.Count)
	assert.Greater(t, stats.AnalyzerSuccesses["topic"], 0)
	assert.Greater(t, stats.AnalyzerSuccesses["quality"], 0)
}
