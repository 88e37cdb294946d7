package feedback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"turnindex/internal/embedding"
	"turnindex/internal/types"
)

func newTestGateway(t *testing.T) *embedding.Gateway {
	t.Helper()
	embedding.ResetForTest()
	t.Cleanup(embedding.ResetForTest)
	return embedding.Get(embedding.Config{Provider: "hash"})
}

func TestSemanticAnalyzerClassifiesPositive(t *testing.T) {
	gw := newTestGateway(t)
	a := NewSemanticAnalyzer(gw)

	r := a.Analyze(context.Background(), "that worked perfectly, thank you so much")
	require.False(t, r.FallbackUsed)
	assert.Equal(t, types.SentimentPositive, r.Sentiment)
}

func TestSemanticAnalyzerClassifiesNegative(t *testing.T) {
	gw := newTestGateway(t)
	a := NewSemanticAnalyzer(gw)

	r := a.Analyze(context.Background(), "still broken, same error as before, did not work")
	require.False(t, r.FallbackUsed)
	assert.Equal(t, types.SentimentNegative, r.Sentiment)
}

func TestSemanticAnalyzerExposesPerClassSimilarities(t *testing.T) {
	gw := newTestGateway(t)
	a := NewSemanticAnalyzer(gw)

	r := a.Analyze(context.Background(), "it's partially working now, some progress")
	assert.NotZero(t, r.PositiveSimilarity)
	assert.NotZero(t, r.NegativeSimilarity)
	assert.NotZero(t, r.PartialSimilarity)
}
