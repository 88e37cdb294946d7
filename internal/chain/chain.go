// Package chain implements the adjacency and chain-building pass (C9):
// sequencing a session's turns, pairing assistant solution attempts with the
// user turn that follows them, and writing back validation outcomes derived
// from analysing that follow-up turn as feedback.
package chain

import (
	"fmt"

	"github.com/dominikbraun/graph"

	"turnindex/internal/types"
)

// FeedbackAnalyzer analyses a feedback turn's content and reports the
// sentiment, strength, and confidence used to derive validation outcomes.
// Callers supply C4's pattern analyzer directly, or C7's fusion result
// translated into this shape when semantic analysis is available (spec.md
// §4.9 step 3).
type FeedbackAnalyzer interface {
	Analyze(content string) (sentiment types.FeedbackSentiment, strength, confidence float64)
}

// turnHash identifies a vertex by the turn's ID, the hash function required
// by dominikbraun/graph.
func turnHash(t *types.Turn) string {
	return t.ID
}

// Builder runs the adjacency back-fill over one session's turns at a time.
type Builder struct{}

// NewBuilder constructs a Builder. Stateless: a Builder holds no data
// between calls, so one instance may be reused across sessions.
func NewBuilder() *Builder {
	return &Builder{}
}

// BackFill walks turns (already in session sequence order), sets adjacency
// fields on every turn, pairs solution attempts with their feedback turn,
// and writes validation outcomes derived from analyze. Returns the session
// graph built during the walk, primarily for callers that want to inspect
// or export the chain structure.
//
// BackFill is idempotent (P7): re-running it over the same slice recomputes
// the same field values, since every field it sets is a pure function of
// sequence position and content, never of the field's previous value.
func (b *Builder) BackFill(turns []*types.Turn, analyze FeedbackAnalyzer) (graph.Graph[string, *types.Turn], error) {
	g := graph.New(turnHash, graph.Directed())

	for _, t := range turns {
		if err := g.AddVertex(t); err != nil && err != graph.ErrVertexAlreadyExists {
			return nil, fmt.Errorf("chain: add vertex %s: %w", t.ID, err)
		}
	}

	for i, t := range turns {
		t.SequencePosition = i
		if i > 0 {
			t.PreviousTurnID = turns[i-1].ID
		} else {
			t.PreviousTurnID = ""
		}
		if i < len(turns)-1 {
			t.NextTurnID = turns[i+1].ID
		} else {
			t.NextTurnID = ""
		}
		if t.PreviousTurnID != "" {
			if err := addEdgeOnce(g, t.PreviousTurnID, t.ID); err != nil {
				return nil, err
			}
		}
	}

	for i, t := range turns {
		if t.Role != types.RoleAssistant || !t.IsSolutionAttempt {
			continue
		}
		if i+1 >= len(turns) {
			continue
		}
		next := turns[i+1]
		if next.Role != types.RoleUser {
			continue
		}

		t.FeedbackTurnID = next.ID
		next.RelatedSolutionID = t.ID
		if err := addEdgeOnce(g, t.ID, next.ID); err != nil {
			return nil, err
		}

		applyFeedback(t, next, analyze)
	}

	return g, nil
}

func addEdgeOnce(g graph.Graph[string, *types.Turn], from, to string) error {
	if err := g.AddEdge(from, to); err != nil && err != graph.ErrEdgeAlreadyExists {
		return fmt.Errorf("chain: add edge %s->%s: %w", from, to, err)
	}
	return nil
}

// applyFeedback runs analyze over the feedback turn's content and writes the
// derived outcome fields onto both turns, per spec.md §4.9 step 3.
func applyFeedback(solution, feedback *types.Turn, analyze FeedbackAnalyzer) {
	sentiment, strength, confidence := analyze.Analyze(feedback.Content)

	feedback.FeedbackSentiment = sentiment
	feedback.OutcomeCertainty = types.Clamp(confidence, 0, 1)

	isValidated, isRefuted, validationStrength := DeriveOutcome(sentiment, strength, confidence)
	solution.IsValidatedSolution = isValidated
	solution.IsRefutedAttempt = isRefuted
	solution.ValidationStrength = validationStrength
}

// DeriveOutcome computes the validation outcome for a solution turn from its
// feedback turn's analysed sentiment, strength, and confidence, per spec.md
// §4.9 step 3. Shared between C9 (synchronous back-fill) and C12 (the
// asynchronous per-turn path), which the spec names as running the same
// derivation.
func DeriveOutcome(sentiment types.FeedbackSentiment, strength, confidence float64) (isValidated, isRefuted bool, validationStrength float64) {
	switch sentiment {
	case types.SentimentPositive:
		return true, false, types.Clamp(strength*confidence, -1, 1)
	case types.SentimentNegative:
		return false, true, types.Clamp(-strength*confidence, -1, 1)
	case types.SentimentPartial:
		return false, false, types.Clamp(strength*confidence*0.5, -1, 1)
	default:
		return false, false, 0
	}
}
