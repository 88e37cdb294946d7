package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"turnindex/internal/types"
)

func TestFuseAgreementYieldsHighConsistency(t *testing.T) {
	pattern := PatternResult{Sentiment: types.SentimentPositive, Strength: 0.9, Confidence: 0.9}
	semantic := SemanticResult{Sentiment: types.SentimentPositive, Confidence: 0.9}

	r := Fuse(pattern, semantic, TechnicalInput{})
	assert.Equal(t, types.SentimentPositive, r.Sentiment)
	assert.True(t, r.PatternVsSemanticAgreement)
	assert.InDelta(t, 1.0, r.Consistency, 1e-9)
	assert.False(t, r.FallbackUsed)
}

func TestFuseDisagreementFallsBackToPattern(t *testing.T) {
	pattern := PatternResult{Sentiment: types.SentimentNegative, Strength: 0.1, Confidence: 0.2}
	semantic := SemanticResult{Sentiment: types.SentimentPositive, Confidence: 0.2}

	r := Fuse(pattern, semantic, TechnicalInput{})
	assert.True(t, r.FallbackUsed)
	assert.Equal(t, pattern.Sentiment, r.Sentiment)
}

func TestFuseLowConfidenceRequiresManualReview(t *testing.T) {
	pattern := PatternResult{Sentiment: types.SentimentNeutral, Confidence: 0.1}
	semantic := SemanticResult{Sentiment: types.SentimentNeutral, Confidence: 0.1}

	r := Fuse(pattern, semantic, TechnicalInput{})
	assert.True(t, r.RequiresManualReview)
}

func TestFuseWeightsAlwaysNormalizeToOne(t *testing.T) {
	w := weights{pattern: 0.4, semantic: 0.35, technical: 0.25}
	w.semantic *= 1.2
	w.pattern *= 0.9
	w = w.normalize()
	total := w.pattern + w.semantic + w.technical
	assert.InDelta(t, 1.0, total, 1e-9)
}
