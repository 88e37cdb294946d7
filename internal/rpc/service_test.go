package rpc

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnindex/internal/chain"
	"turnindex/internal/embedding"
	"turnindex/internal/enrichment"
	"turnindex/internal/extraction"
	"turnindex/internal/feedback"
	"turnindex/internal/index"
	"turnindex/internal/learning"
	"turnindex/internal/maintenance"
	"turnindex/internal/topic"
	"turnindex/internal/types"
)

func newTestService(t *testing.T) (*Service, *index.Index) {
	t.Helper()
	embedding.ResetForTest()
	t.Cleanup(embedding.ResetForTest)
	gw := embedding.Get(embedding.Config{Provider: "hash"})

	idx, err := index.New(index.Config{Gateway: gw, CollectionName: t.Name()})
	require.NoError(t, err)

	semantic := feedback.NewSemanticAnalyzer(gw)
	processor := enrichment.NewProcessor(enrichment.Config{
		TopicClassifier:  topic.NewClassifier(),
		SemanticAnalyzer: semantic,
		Extractor:        extraction.NewExtractor(gw),
	})
	builder := chain.NewBuilder()
	learner := learning.NewLearner(idx, semantic)
	maintainer, err := maintenance.Open(idx, "")
	require.NoError(t, err)
	t.Cleanup(func() { maintainer.Close() })

	svc := NewService(Config{
		Index:        idx,
		ChainBuilder: builder,
		Learner:      learner,
		Maintainer:   maintainer,
		Enricher:     processor,
	})
	return svc, idx
}

// seedTurn writes one minimal-but-realistic turn directly to idx, bypassing
// enrichment, for tests that only exercise the search/read paths.
func seedTurn(t *testing.T, idx *index.Index, turn *types.Turn) {
	t.Helper()
	turn.ContentHash = types.ContentHash(turn.Content)
	_, err := idx.AddBatch(context.Background(), []index.Entry{index.TurnToEntry(turn)})
	require.NoError(t, err)
}

func TestSearchConversationsRanksByRelevance(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()

	seedTurn(t, idx, &types.Turn{
		ID: "t1", Content: "fixed the flaky retry logic in the uploader", Role: types.RoleAssistant,
		ProjectKey: "proj-a", TimestampUnix: 1000,
	})
	seedTurn(t, idx, &types.Turn{
		ID: "t2", Content: "discussed lunch plans for the team offsite", Role: types.RoleAssistant,
		ProjectKey: "proj-a", TimestampUnix: 1001,
	})

	resp, err := svc.SearchConversations(ctx, SearchRequest{Query: "fixed the flaky retry logic", N: 5})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "t1", resp.Results[0].Turn.ID)
}

func TestSearchConversationsAppliesProjectFilter(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()

	seedTurn(t, idx, &types.Turn{ID: "a1", Content: "build the api gateway", ProjectKey: "proj-a", TimestampUnix: 1})
	seedTurn(t, idx, &types.Turn{ID: "b1", Content: "build the api gateway", ProjectKey: "proj-b", TimestampUnix: 2})

	resp, err := svc.SearchConversations(ctx, SearchRequest{Query: "build the api gateway", Project: "proj-a", N: 5})
	require.NoError(t, err)
	for _, row := range resp.Results {
		assert.Equal(t, "proj-a", row.Turn.ProjectKey)
	}
}

func TestSearchValidatedDropsBelowMinStrength(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()

	seedTurn(t, idx, &types.Turn{
		ID: "strong", Content: "validated the database migration worked", TimestampUnix: 1,
		IsValidatedSolution: true, ValidationStrength: 0.9,
	})
	seedTurn(t, idx, &types.Turn{
		ID: "weak", Content: "validated the database migration worked", TimestampUnix: 2,
		IsValidatedSolution: true, ValidationStrength: 0.1,
	})

	resp, err := svc.SearchValidated(ctx, SearchValidatedRequest{
		Query: "validated the database migration worked", N: 5, MinValidationStrength: 0.5,
	})
	require.NoError(t, err)
	for _, row := range resp.Results {
		assert.GreaterOrEqual(t, row.Turn.ValidationStrength, 0.5)
	}
}

func TestMostRecentOrdersDescendingByTimestamp(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()

	seedTurn(t, idx, &types.Turn{ID: "old", Content: "older turn", TimestampUnix: 100})
	seedTurn(t, idx, &types.Turn{ID: "new", Content: "newer turn", TimestampUnix: 200})

	resp, err := svc.MostRecent(ctx, MostRecentRequest{N: 2})
	require.NoError(t, err)
	require.Len(t, resp.Turns, 2)
	assert.Equal(t, "new", resp.Turns[0].ID)
	assert.Equal(t, "old", resp.Turns[1].ID)
}

func TestContextChainWalksAdjacency(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()

	seedTurn(t, idx, &types.Turn{ID: "t1", Content: "first", TimestampUnix: 1, NextTurnID: "t2"})
	seedTurn(t, idx, &types.Turn{ID: "t2", Content: "second", TimestampUnix: 2, PreviousTurnID: "t1", NextTurnID: "t3"})
	seedTurn(t, idx, &types.Turn{ID: "t3", Content: "third", TimestampUnix: 3, PreviousTurnID: "t2"})

	resp, err := svc.ContextChain(ctx, ContextChainRequest{TurnID: "t2", Radius: 1})
	require.NoError(t, err)
	require.Len(t, resp.Chain, 3)
	assert.Equal(t, "t1", resp.Chain[0].ID)
	assert.True(t, resp.Chain[1].IsAnchor)
	assert.Equal(t, "t3", resp.Chain[2].ID)
}

func TestContextChainErrorsOnUnknownTurn(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ContextChain(context.Background(), ContextChainRequest{TurnID: "missing"})
	assert.Error(t, err)
}

// fakeTranscriptSource serves a fixed set of in-memory transcript files.
type fakeTranscriptSource struct {
	files map[string]string
}

func (f fakeTranscriptSource) ListFiles(ctx context.Context) ([]string, error) {
	var names []string
	for name := range f.files {
		names = append(names, name)
	}
	return names, nil
}

func (f fakeTranscriptSource) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.files[path])), nil
}

func TestForceSyncIngestsAndChainLinksASession(t *testing.T) {
	svc, idx := newTestService(t)

	svc.transcripts = fakeTranscriptSource{files: map[string]string{
		"session.jsonl": `{"uuid":"u1","sessionId":"s1","cwd":"/home/dev/app","timestamp":"2025-01-01T00:00:00Z","message":{"role":"user","content":"the build is broken"}}
{"uuid":"u2","sessionId":"s1","cwd":"/home/dev/app","timestamp":"2025-01-01T00:01:00Z","message":{"role":"assistant","content":"fixed it by pinning the dependency"}}
`,
	}}

	resp, err := svc.ForceSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Added)
	assert.Equal(t, 2, idx.Count())

	recent, err := svc.MostRecent(context.Background(), MostRecentRequest{N: 2})
	require.NoError(t, err)
	require.Len(t, recent.Turns, 2)
	assert.Equal(t, recent.Turns[0].ID, recent.Turns[1].NextTurnID)
}

func TestForceSyncErrorsWithoutTranscriptSource(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ForceSync(context.Background())
	assert.Error(t, err)
}

func TestBackfillChainsRelinksAnExistingSession(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()

	seedTurn(t, idx, &types.Turn{ID: "s1-0", Content: "first in session", SessionKey: "s1", SequencePosition: 0, TimestampUnix: 1})
	seedTurn(t, idx, &types.Turn{ID: "s1-1", Content: "second in session", SessionKey: "s1", SequencePosition: 1, TimestampUnix: 2})

	resp, err := svc.BackfillChains(ctx, BackfillChainsRequest{Session: "s1"})
	require.NoError(t, err)
	require.Contains(t, resp.Sessions, "s1")
	assert.Equal(t, 2, resp.Sessions["s1"].TurnsProcessed)

	recs, err := idx.Get(ctx, []string{"s1-0"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "s1-1", index.RecordToTurn(recs[0]).NextTurnID)
}

func TestProcessValidationFeedbackUpdatesSolution(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()

	seedTurn(t, idx, &types.Turn{ID: "sol1", Content: "applied the patch to fix the race", IsSolutionAttempt: true, TimestampUnix: 1})

	outcome, err := svc.ProcessValidationFeedback(ctx, ProcessValidationFeedbackRequest{
		SolutionID:      "sol1",
		SolutionContent: "applied the patch to fix the race",
		FeedbackContent: "that worked, thanks",
	})
	require.NoError(t, err)
	assert.Equal(t, "sol1", outcome.SolutionID)
	assert.True(t, outcome.IsValidatedSolution)
}

func TestHealthReportSummarizesPopulation(t *testing.T) {
	svc, idx := newTestService(t)
	ctx := context.Background()
	seedTurn(t, idx, &types.Turn{ID: "h1", Content: "a turn with fields populated", SolutionQualityScore: 0.5})

	report, err := svc.HealthReport(ctx, HealthReportRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalRecords)
}
