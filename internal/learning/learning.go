// Package learning implements the validation learner (C12): applying a
// feedback turn's analysed outcome back onto the solution turn it responds
// to, and keeping running aggregate statistics over every outcome it has
// ever recorded.
//
// Unlike C9, which back-fills a whole session's adjacency in one pass, C12
// is invoked one pair at a time — synchronously during bulk back-fill, or
// asynchronously when a freshly-ingested turn is recognised as feedback for
// an already-indexed solution.
package learning

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"turnindex/internal/chain"
	"turnindex/internal/extraction"
	"turnindex/internal/feedback"
	"turnindex/internal/technical"
	"turnindex/internal/types"
)

// IndexUpdater is the subset of C10 that C12 writes through. Satisfied by
// *internal/index.Index.
type IndexUpdater interface {
	UpdateMetadata(ctx context.Context, ids []string, metadatas []map[string]string) error
}

// SemanticAnalyzer is the subset of C5 that C12 runs as part of fusion.
// Satisfied by *internal/feedback.SemanticAnalyzer. Optional: a Learner
// built with a nil analyzer falls back to pattern-only fusion input, the
// same degraded mode C7 itself supports.
type SemanticAnalyzer interface {
	Analyze(ctx context.Context, feedbackContent string) feedback.SemanticResult
}

// Outcome is the result of applying one feedback turn to one solution turn,
// the write-back half of spec.md §4.9 step 3.
type Outcome struct {
	SolutionID          string                  `json:"solution_id"`
	FeedbackSentiment   types.FeedbackSentiment `json:"feedback_sentiment"`
	ValidationStrength  float64                 `json:"validation_strength"`
	IsValidatedSolution bool                    `json:"is_validated_solution"`
	IsRefutedAttempt    bool                    `json:"is_refuted_attempt"`
	OutcomeCertainty    float64                 `json:"outcome_certainty"`
	// SolutionConfidence is learner-internal bookkeeping carried over from
	// the ported algorithm; it has no corresponding field on types.Turn and
	// is exposed only in the metadata written to C10 and in this Outcome.
	SolutionConfidence   float64 `json:"solution_confidence"`
	RequiresManualReview bool    `json:"requires_manual_review"`
}

// stats accumulates the counters get_learning_summary reports, guarded by
// Learner.mu.
type stats struct {
	total, validated, refuted, partial, neutral int
	sentimentCounts                             map[types.FeedbackSentiment]int
	sumValidationStrength                       float64
	sumOutcomeCertainty                         float64
}

// Learner applies feedback outcomes to stored solutions and tracks
// aggregate validation statistics for C11's neutral-preference scoring and
// for health reporting.
type Learner struct {
	mu       sync.Mutex
	index    IndexUpdater
	semantic SemanticAnalyzer
	stats    stats
}

// NewLearner constructs a Learner. semantic may be nil.
func NewLearner(index IndexUpdater, semantic SemanticAnalyzer) *Learner {
	return &Learner{
		index:    index,
		semantic: semantic,
		stats:    stats{sentimentCounts: map[types.FeedbackSentiment]int{}},
	}
}

// solutionConfidence ports feedback_learner.py's apply_feedback_to_solution
// confidence formula verbatim.
func solutionConfidence(sentiment types.FeedbackSentiment, strength, confidence float64) float64 {
	switch sentiment {
	case types.SentimentPositive:
		return 1.0 + strength*confidence
	case types.SentimentNegative:
		penalty := strength * confidence * 0.7
		return maxF(0.3, 1.0-penalty)
	case types.SentimentPartial:
		return 1.0 + strength*confidence*0.3
	default:
		return 1.0
	}
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// ApplyFeedback runs C7 over feedbackContent, derives the solution's updated
// outcome fields per spec.md §4.9 step 3, writes them over a copy of
// solutionMetadata back to the index via C10 (solutionMetadata itself is
// left unchanged), and folds the outcome into the running
// aggregates exposed by Summary. solutionContent supplies the tools used by
// the solution turn, so C6's technical analysis can boost the domain the
// solution itself touched rather than guessing from the feedback alone.
func (l *Learner) ApplyFeedback(ctx context.Context, solutionID, solutionContent, feedbackContent string, solutionMetadata map[string]string) (Outcome, error) {
	pattern := feedback.AnalyzePattern(feedbackContent)

	var semanticResult feedback.SemanticResult
	if l.semantic != nil {
		semanticResult = l.semantic.Analyze(ctx, feedbackContent)
	}

	var solutionCtx *technical.SolutionContext
	if tools := extraction.ExtractTools(solutionContent); len(tools) > 0 {
		solutionCtx = &technical.SolutionContext{ToolsUsed: tools}
	}
	tech := technical.Analyze(feedbackContent, solutionCtx)
	techInput := feedback.TechnicalInput{
		Available:              tech.Confidence > 0,
		Confidence:             tech.Confidence,
		ComplexOutcomeDetected: tech.ComplexOutcomeDetected,
		Domain:                 tech.Domain,
	}

	fusion := feedback.Fuse(pattern, semanticResult, techInput)

	isValidated, isRefuted, validationStrength := chain.DeriveOutcome(fusion.Sentiment, pattern.Strength, fusion.Confidence)

	outcome := Outcome{
		SolutionID:           solutionID,
		FeedbackSentiment:    fusion.Sentiment,
		ValidationStrength:   validationStrength,
		IsValidatedSolution:  isValidated,
		IsRefutedAttempt:     isRefuted,
		OutcomeCertainty:     types.Clamp(fusion.Confidence, 0, 1),
		SolutionConfidence:   solutionConfidence(fusion.Sentiment, pattern.Strength, fusion.Confidence),
		RequiresManualReview: fusion.RequiresManualReview,
	}

	metadata := cloneMetadata(solutionMetadata)
	metadata["feedback_sentiment"] = string(outcome.FeedbackSentiment)
	metadata["validation_strength"] = formatFloat(outcome.ValidationStrength)
	metadata["is_validated_solution"] = strconv.FormatBool(outcome.IsValidatedSolution)
	metadata["is_refuted_attempt"] = strconv.FormatBool(outcome.IsRefutedAttempt)
	metadata["outcome_certainty"] = formatFloat(outcome.OutcomeCertainty)
	metadata["solution_confidence"] = formatFloat(outcome.SolutionConfidence)

	if l.index != nil {
		if err := l.index.UpdateMetadata(ctx, []string{solutionID}, []map[string]string{metadata}); err != nil {
			return outcome, fmt.Errorf("learning: update metadata for %s: %w", solutionID, err)
		}
	}

	l.record(outcome)
	return outcome, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func cloneMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+6)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (l *Learner) record(o Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stats.total++
	l.stats.sentimentCounts[o.FeedbackSentiment]++
	l.stats.sumValidationStrength += o.ValidationStrength
	l.stats.sumOutcomeCertainty += o.OutcomeCertainty

	switch {
	case o.IsValidatedSolution:
		l.stats.validated++
	case o.IsRefutedAttempt:
		l.stats.refuted++
	case o.FeedbackSentiment == types.SentimentPartial:
		l.stats.partial++
	default:
		l.stats.neutral++
	}
}

// Summary is C12's contribution to health reporting (C13) and to C11's
// neutral validation preference, the aggregates get_learning_summary
// reports.
type Summary struct {
	TotalSolutions        int
	ValidatedSolutions    int
	RefutedSolutions      int
	PartialSolutions      int
	SentimentDistribution map[types.FeedbackSentiment]int
	AvgValidationStrength float64
	AvgOutcomeCertainty   float64
	SuccessRate           float64
	FailureRate           float64
	PartialRate           float64
}

// Summary returns a snapshot of the running aggregates.
func (l *Learner) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()

	dist := make(map[types.FeedbackSentiment]int, len(l.stats.sentimentCounts))
	for k, v := range l.stats.sentimentCounts {
		dist[k] = v
	}

	if l.stats.total == 0 {
		return Summary{SentimentDistribution: dist}
	}

	n := float64(l.stats.total)
	return Summary{
		TotalSolutions:        l.stats.total,
		ValidatedSolutions:    l.stats.validated,
		RefutedSolutions:      l.stats.refuted,
		PartialSolutions:      l.stats.partial,
		SentimentDistribution: dist,
		AvgValidationStrength: l.stats.sumValidationStrength / n,
		AvgOutcomeCertainty:   l.stats.sumOutcomeCertainty / n,
		SuccessRate:           float64(l.stats.validated) / n,
		FailureRate:           float64(l.stats.refuted) / n,
		PartialRate:           float64(l.stats.partial) / n,
	}
}
