package rpc

import (
	"context"
	"strconv"

	"turnindex/internal/index"
	"turnindex/internal/query"
)

// candidateFromRecord translates a C10 record plus its raw similarity into
// C11's Candidate shape. Reuses index.RecordToTurn rather than re-parsing
// metadata, so the two translations can never drift apart.
func candidateFromRecord(rec index.Record, similarity float32) query.Candidate {
	t := index.RecordToTurn(rec)

	confidence := t.OutcomeCertainty
	if confidence == 0 {
		confidence = 1.0
	}

	return query.Candidate{
		ID:                   t.ID,
		Content:              t.Content,
		BaseSimilarity:       float64(similarity),
		ProjectKey:           t.ProjectKey,
		Topics:               t.Topics,
		SolutionQualityScore: t.SolutionQualityScore,
		IsValidatedSolution:  t.IsValidatedSolution,
		IsRefutedAttempt:     t.IsRefutedAttempt,
		ValidationStrength:   t.ValidationStrength,
		StoredConfidence:     confidence,
		HasCode:              t.HasCode,
		ToolsUsed:            t.ToolsUsed,
		ContentLength:        t.ContentLength,
		TimestampUnix:        t.TimestampUnix,
	}
}

func recordTimestamp(rec index.Record) float64 {
	v, _ := strconv.ParseFloat(rec.Metadata["timestamp_unix"], 64)
	return v
}

// indexChainLookup adapts *index.Index into query.ChainLookup by reading
// the previous_turn_id/next_turn_id adjacency fields C9 wrote (spec.md
// §4.11 step 5).
type indexChainLookup struct {
	idx *index.Index
	ctx context.Context
}

func (l indexChainLookup) Neighbor(id string, direction int) (string, string, bool) {
	recs, err := l.idx.Get(l.ctx, []string{id})
	if err != nil || len(recs) == 0 {
		return "", "", false
	}
	turn := index.RecordToTurn(recs[0])

	neighborID := turn.NextTurnID
	if direction < 0 {
		neighborID = turn.PreviousTurnID
	}
	if neighborID == "" {
		return "", "", false
	}

	neighborRecs, err := l.idx.Get(l.ctx, []string{neighborID})
	if err != nil || len(neighborRecs) == 0 {
		return "", "", false
	}
	neighbor := index.RecordToTurn(neighborRecs[0])
	return neighbor.ID, neighbor.Content, true
}
