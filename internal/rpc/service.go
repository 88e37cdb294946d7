// Package rpc implements the tool/RPC surface (spec.md §6.4): the core's
// public API, consumed by an MCP tool registration shell (see mcp.go).
// Service itself never imports the mcp SDK — it is a plain Go API that
// happens to be easy to wrap in typed tool handlers, kept that way so the
// core stays testable without spinning up a transport.
package rpc

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"turnindex/internal/chain"
	"turnindex/internal/enrichment"
	"turnindex/internal/feedback"
	"turnindex/internal/index"
	"turnindex/internal/ingest"
	"turnindex/internal/learning"
	"turnindex/internal/maintenance"
	"turnindex/internal/query"
	"turnindex/internal/technical"
	"turnindex/internal/types"
)

// TranscriptSource discovers and opens bulk transcript files for force_sync.
// Discovery and filesystem watching are deliberately out of scope for the
// core (spec.md §1): this interface is the seam where an external
// collaborator supplies what force_sync consumes. cmd/server wires a
// concrete directory-walking implementation; Service never lists a
// directory itself.
type TranscriptSource interface {
	ListFiles(ctx context.Context) ([]string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// Config wires a Service's dependencies. Index, ChainBuilder, Learner,
// Maintainer, and Enricher are required; Transcripts may be nil (force_sync
// then returns an error rather than silently doing nothing).
type Config struct {
	Index        *index.Index
	ChainBuilder  *chain.Builder
	Learner       *learning.Learner
	Maintainer    *maintenance.Maintainer
	Enricher      *enrichment.Processor
	Transcripts   TranscriptSource

	QueryDeadline   time.Duration
	DefaultN        int
	CandidateFactor int
	DefaultChainLen int
	Location        *time.Location
}

// Service implements every operation in spec.md §6.4's tool table.
type Service struct {
	idx          *index.Index
	chainBuilder *chain.Builder
	learner      *learning.Learner
	maintainer   *maintenance.Maintainer
	enricher     *enrichment.Processor
	transcripts  TranscriptSource
	analyzer     chain.FeedbackAnalyzer

	queryDeadline   time.Duration
	defaultN        int
	candidateFactor int
	defaultChainLen int
	location        *time.Location
}

// NewService constructs a Service from cfg, applying the documented
// defaults (spec.md §4.11, §5) for any zero-valued tuning field.
func NewService(cfg Config) *Service {
	n := cfg.DefaultN
	if n <= 0 {
		n = 10
	}
	factor := cfg.CandidateFactor
	if factor <= 0 {
		factor = 3
	}
	deadline := cfg.QueryDeadline
	if deadline <= 0 {
		deadline = 500 * time.Millisecond
	}
	chainLen := cfg.DefaultChainLen
	if chainLen <= 0 {
		chainLen = 2
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		idx:             cfg.Index,
		chainBuilder:    cfg.ChainBuilder,
		learner:         cfg.Learner,
		maintainer:      cfg.Maintainer,
		enricher:        cfg.Enricher,
		transcripts:     cfg.Transcripts,
		analyzer:        patternTechnicalAnalyzer{},
		queryDeadline:   deadline,
		defaultN:        n,
		candidateFactor: factor,
		defaultChainLen: chainLen,
		location:        loc,
	}
}

// ---- search_conversations, search_validated, search_failed ----

// ResultRow is one ranked row returned by a search operation.
type ResultRow struct {
	Turn     *types.Turn        `json:"turn"`
	Combined float64            `json:"combined_score"`
	Analysis query.BoostAnalysis `json:"boost_analysis"`
	Chain    []query.ChainTurn   `json:"context_chain,omitempty"`
}

// SearchRequest is search_conversations' parameter set (spec.md §6.4).
type SearchRequest struct {
	Query                string `json:"query"`
	Project              string `json:"project,omitempty"`
	N                    int    `json:"n,omitempty"`
	TimeFilter           string `json:"time_filter,omitempty"`
	TopicFocus           string `json:"topic_focus,omitempty"`
	PreferSolutions      bool   `json:"prefer_solutions,omitempty"`
	TroubleshootingMode  bool   `json:"troubleshooting_mode,omitempty"`
	ValidationPreference string `json:"validation_preference,omitempty"`
	PreferRecent         bool   `json:"prefer_recent,omitempty"`
	ShowContextChain     bool   `json:"show_context_chain,omitempty"`
	ChainLength          int    `json:"chain_length,omitempty"`
}

// SearchResponse is the shared shape every search operation returns.
type SearchResponse struct {
	Results          []ResultRow `json:"results"`
	DeadlineExceeded bool        `json:"deadline_exceeded,omitempty"`
}

// SearchConversations runs the full boosted query (spec.md §4.11).
func (s *Service) SearchConversations(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryDeadline)
	defer cancel()

	n := req.N
	if n <= 0 {
		n = s.defaultN
	}
	k := n * s.candidateFactor

	filter := map[string]string{}
	if req.Project != "" {
		filter["project_key"] = req.Project
	}

	candidates, err := s.idx.Query(ctx, req.Query, k, filter)
	if err != nil {
		if ctx.Err() != nil {
			return SearchResponse{DeadlineExceeded: true}, nil
		}
		return SearchResponse{}, fmt.Errorf("rpc: search_conversations: %w", err)
	}

	tr, err := ResolveTimeFilter(req.TimeFilter, s.location, types.Now())
	if err != nil {
		return SearchResponse{}, fmt.Errorf("rpc: search_conversations: %w", err)
	}

	flags := query.Flags{
		TopicFocus:           req.TopicFocus,
		PreferSolutions:      req.PreferSolutions,
		TroubleshootingMode:  req.TroubleshootingMode,
		ValidationPreference: query.ValidationPreference(req.ValidationPreference),
		PreferRecent:         req.PreferRecent,
		ShowContextChain:     req.ShowContextChain,
		ProjectContext:       req.Project,
		ChainLength:          chainLenOrDefault(req.ChainLength, s.defaultChainLen),
	}

	qCandidates := make([]query.Candidate, 0, len(candidates))
	byID := make(map[string]index.Candidate, len(candidates))
	for _, c := range candidates {
		if !tr.Contains(recordTimestamp(c.Record)) {
			continue
		}
		qCandidates = append(qCandidates, candidateFromRecord(c.Record, c.Similarity))
		byID[c.ID] = c
	}

	scored := query.Run(qCandidates, flags, n, types.Now())

	lookup := indexChainLookup{idx: s.idx, ctx: ctx}
	rows := make([]ResultRow, len(scored))
	for i, sc := range scored {
		rec := byID[sc.ID]
		turn := index.RecordToTurn(rec.Record)
		row := ResultRow{Turn: turn, Combined: sc.Combined, Analysis: sc.Analysis}
		if req.ShowContextChain {
			row.Chain = query.AttachContextChain(lookup, turn.ID, turn.Content, flags.ChainLength)
		}
		rows[i] = row
	}

	if ctx.Err() != nil {
		return SearchResponse{Results: rows, DeadlineExceeded: true}, nil
	}
	return SearchResponse{Results: rows}, nil
}

func chainLenOrDefault(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return fallback
}

// SearchValidatedRequest is search_validated's parameter set.
type SearchValidatedRequest struct {
	Query                 string  `json:"query"`
	Project               string  `json:"project,omitempty"`
	N                     int     `json:"n,omitempty"`
	MinValidationStrength float64 `json:"min_validation_strength,omitempty"`
}

// SearchValidated pre-sets validation_preference to validated_only and
// additionally drops rows below min_validation_strength.
func (s *Service) SearchValidated(ctx context.Context, req SearchValidatedRequest) (SearchResponse, error) {
	resp, err := s.SearchConversations(ctx, SearchRequest{
		Query:                req.Query,
		Project:              req.Project,
		N:                    req.N,
		ValidationPreference: string(query.ValidatedOnly),
	})
	if err != nil {
		return resp, err
	}
	filtered := resp.Results[:0]
	for _, row := range resp.Results {
		if row.Turn.ValidationStrength >= req.MinValidationStrength {
			filtered = append(filtered, row)
		}
	}
	resp.Results = filtered
	return resp, nil
}

// SearchFailedRequest is search_failed's parameter set.
type SearchFailedRequest struct {
	Query   string `json:"query"`
	Project string `json:"project,omitempty"`
	N       int    `json:"n,omitempty"`
}

// SearchFailed pre-sets validation_preference to include_failures.
func (s *Service) SearchFailed(ctx context.Context, req SearchFailedRequest) (SearchResponse, error) {
	return s.SearchConversations(ctx, SearchRequest{
		Query:                req.Query,
		Project:              req.Project,
		N:                    req.N,
		ValidationPreference: string(query.IncludeFailures),
	})
}

// ---- most_recent ----

// MostRecentRequest is most_recent's parameter set.
type MostRecentRequest struct {
	Role    string `json:"role,omitempty"`
	Project string `json:"project,omitempty"`
	N       int    `json:"n,omitempty"`
}

// MostRecentResponse carries the newest turns by timestamp_unix.
type MostRecentResponse struct {
	Turns []*types.Turn `json:"turns"`
}

// MostRecent streams the whole index (optionally filtered by role/project)
// and returns the n newest by timestamp_unix.
func (s *Service) MostRecent(ctx context.Context, req MostRecentRequest) (MostRecentResponse, error) {
	n := req.N
	if n <= 0 {
		n = s.defaultN
	}

	filter := map[string]string{}
	if req.Role != "" {
		filter["role"] = req.Role
	}
	if req.Project != "" {
		filter["project_key"] = req.Project
	}

	var turns []*types.Turn
	err := s.idx.Iterate(ctx, filter, 0, func(batch []index.Record) error {
		for _, rec := range batch {
			turns = append(turns, index.RecordToTurn(rec))
		}
		return nil
	})
	if err != nil {
		return MostRecentResponse{}, fmt.Errorf("rpc: most_recent: %w", err)
	}

	sort.Slice(turns, func(i, j int) bool {
		return turns[i].TimestampUnix > turns[j].TimestampUnix
	})
	if n < len(turns) {
		turns = turns[:n]
	}
	return MostRecentResponse{Turns: turns}, nil
}

// ---- context_chain ----

// ContextChainRequest is context_chain's parameter set.
type ContextChainRequest struct {
	TurnID string `json:"turn_id"`
	Radius int    `json:"radius,omitempty"`
}

// ContextChainResponse is the session window around a turn.
type ContextChainResponse struct {
	Chain []query.ChainTurn `json:"context_chain"`
}

// ContextChain attaches up to radius turns in each direction from turnID.
func (s *Service) ContextChain(ctx context.Context, req ContextChainRequest) (ContextChainResponse, error) {
	recs, err := s.idx.Get(ctx, []string{req.TurnID})
	if err != nil {
		return ContextChainResponse{}, fmt.Errorf("rpc: context_chain: %w", err)
	}
	if len(recs) == 0 {
		return ContextChainResponse{}, fmt.Errorf("rpc: context_chain: unknown turn %q", req.TurnID)
	}

	anchor := index.RecordToTurn(recs[0])
	radius := req.Radius
	if radius <= 0 {
		radius = s.defaultChainLen
	}
	lookup := indexChainLookup{idx: s.idx, ctx: ctx}
	chain := query.AttachContextChain(lookup, anchor.ID, anchor.Content, radius)
	return ContextChainResponse{Chain: chain}, nil
}

// ---- force_sync ----

// ForceSyncResponse reports force_sync's outcome counters.
type ForceSyncResponse struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

// ForceSync walks every file TranscriptSource reports, parses and enriches
// every turn, back-fills adjacency per session, and writes the result to
// the index (spec.md §6.4). Discovery itself stays outside the core: the
// Service only consumes what TranscriptSource hands it.
func (s *Service) ForceSync(ctx context.Context) (ForceSyncResponse, error) {
	if s.transcripts == nil {
		return ForceSyncResponse{}, fmt.Errorf("rpc: force_sync: no transcript source configured")
	}

	files, err := s.transcripts.ListFiles(ctx)
	if err != nil {
		return ForceSyncResponse{}, fmt.Errorf("rpc: force_sync: list files: %w", err)
	}

	bySession := make(map[string][]*types.RawTurn)
	var result ForceSyncResponse

	for _, path := range files {
		r, err := s.transcripts.Open(ctx, path)
		if err != nil {
			result.Errors++
			continue
		}
		ingest.ScanFile(r, path, func(rt *types.RawTurn) {
			bySession[rt.SessionKey] = append(bySession[rt.SessionKey], rt)
		})
		r.Close()
	}

	sessions := make([]string, 0, len(bySession))
	for session := range bySession {
		sessions = append(sessions, session)
	}
	sort.Strings(sessions)

	for _, session := range sessions {
		raws := bySession[session]
		added, skipped, errs := s.syncSession(ctx, raws)
		result.Added += added
		result.Skipped += skipped
		result.Errors += errs
	}
	return result, nil
}

func (s *Service) syncSession(ctx context.Context, raws []*types.RawTurn) (added, skipped, errs int) {
	turns := make([]*types.Turn, len(raws))
	for i, raw := range raws {
		ectx := types.EnrichmentContext{Source: "bulk", SequencePosition: i}
		if i > 0 {
			ectx.PreviousRaw = raws[i-1]
		}
		if i < len(raws)-1 {
			ectx.NextRaw = raws[i+1]
		}
		turns[i] = s.enricher.Enrich(ctx, raw, ectx)
	}

	if _, err := s.chainBuilder.BackFill(turns, s.analyzer); err != nil {
		return 0, 0, len(turns)
	}

	entries := make([]index.Entry, len(turns))
	for i, t := range turns {
		entries[i] = index.TurnToEntry(t)
	}
	result, err := s.idx.AddBatch(ctx, entries)
	if err != nil {
		return result.Added, result.Skipped, result.Errors + 1
	}
	return result.Added, result.Skipped, result.Errors
}

// ---- backfill_chains ----

// BackfillChainsRequest is backfill_chains' parameter set. An empty Session
// means "every session currently stored".
type BackfillChainsRequest struct {
	Session string `json:"session,omitempty"`
}

// SessionCounters is one session's contribution to backfill_chains' result.
type SessionCounters struct {
	TurnsProcessed int `json:"turns_processed"`
	ChainLinks     int `json:"chain_links"`
}

// BackfillChainsResponse reports per-session counters.
type BackfillChainsResponse struct {
	Sessions map[string]SessionCounters `json:"sessions"`
}

// BackfillChains re-runs C9's adjacency pass over already-stored turns,
// grouped by session_key, and writes the recomputed fields back via
// UpdateMetadata (spec.md §6.4, §4.9). Safe to re-run (P7): every field
// BackFill sets is a pure function of sequence position and content.
func (s *Service) BackfillChains(ctx context.Context, req BackfillChainsRequest) (BackfillChainsResponse, error) {
	sessions, err := s.resolveSessions(ctx, req.Session)
	if err != nil {
		return BackfillChainsResponse{}, err
	}

	out := make(map[string]SessionCounters, len(sessions))
	for _, session := range sessions {
		counters, err := s.backfillOneSession(ctx, session)
		if err != nil {
			return BackfillChainsResponse{}, err
		}
		out[session] = counters
	}
	return BackfillChainsResponse{Sessions: out}, nil
}

func (s *Service) resolveSessions(ctx context.Context, session string) ([]string, error) {
	if session != "" {
		return []string{session}, nil
	}

	seen := make(map[string]bool)
	err := s.idx.Iterate(ctx, nil, 0, func(batch []index.Record) error {
		for _, rec := range batch {
			if key := rec.Metadata["session_key"]; key != "" {
				seen[key] = true
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rpc: backfill_chains: enumerate sessions: %w", err)
	}
	sessions := make([]string, 0, len(seen))
	for session := range seen {
		sessions = append(sessions, session)
	}
	sort.Strings(sessions)
	return sessions, nil
}

func (s *Service) backfillOneSession(ctx context.Context, session string) (SessionCounters, error) {
	var turns []*types.Turn
	err := s.idx.Iterate(ctx, map[string]string{"session_key": session}, 0, func(batch []index.Record) error {
		for _, rec := range batch {
			turns = append(turns, index.RecordToTurn(rec))
		}
		return nil
	})
	if err != nil {
		return SessionCounters{}, fmt.Errorf("rpc: backfill_chains: session %s: %w", session, err)
	}

	sort.Slice(turns, func(i, j int) bool {
		return turns[i].SequencePosition < turns[j].SequencePosition
	})

	g, err := s.chainBuilder.BackFill(turns, s.analyzer)
	if err != nil {
		return SessionCounters{}, fmt.Errorf("rpc: backfill_chains: session %s: %w", session, err)
	}

	ids := make([]string, len(turns))
	metadatas := make([]map[string]string, len(turns))
	for i, t := range turns {
		ids[i] = t.ID
		metadatas[i] = index.TurnToEntry(t).Metadata
	}
	if err := s.idx.UpdateMetadata(ctx, ids, metadatas); err != nil {
		return SessionCounters{}, fmt.Errorf("rpc: backfill_chains: session %s: write back: %w", session, err)
	}

	edgeCount := 0
	if edges, err := g.Edges(); err == nil {
		edgeCount = len(edges)
	}

	return SessionCounters{TurnsProcessed: len(turns), ChainLinks: edgeCount}, nil
}

// ---- process_validation_feedback ----

// ProcessValidationFeedbackRequest is process_validation_feedback's
// parameter set.
type ProcessValidationFeedbackRequest struct {
	SolutionID       string            `json:"solution_id"`
	SolutionContent  string            `json:"solution_content"`
	FeedbackContent  string            `json:"feedback_content"`
	SolutionMetadata map[string]string `json:"solution_metadata,omitempty"`
}

// ProcessValidationFeedback runs C12 over one feedback/solution pair.
func (s *Service) ProcessValidationFeedback(ctx context.Context, req ProcessValidationFeedbackRequest) (learning.Outcome, error) {
	outcome, err := s.learner.ApplyFeedback(ctx, req.SolutionID, req.SolutionContent, req.FeedbackContent, req.SolutionMetadata)
	if err != nil {
		return outcome, fmt.Errorf("rpc: process_validation_feedback: %w", err)
	}
	return outcome, nil
}

// ---- health_report ----

// HealthReportRequest is health_report's parameter set.
type HealthReportRequest struct {
	SampleSize int `json:"sample_size,omitempty"`
}

// HealthReport runs C13's sampling health scan.
func (s *Service) HealthReport(ctx context.Context, req HealthReportRequest) (maintenance.HealthReport, error) {
	report, err := s.maintainer.HealthReport(ctx, req.SampleSize)
	if err != nil {
		return report, fmt.Errorf("rpc: health_report: %w", err)
	}
	return report, nil
}

// patternTechnicalAnalyzer adapts C4+C6 (fused via C7 with no semantic
// input) into chain.FeedbackAnalyzer, for the synchronous back-fill paths
// (force_sync, backfill_chains) where no embedding round-trip per feedback
// turn is wanted. Matches spec.md §4.9 step 3's "C4 (or C7 when available)":
// C7 is available here via pattern+technical, just not pattern+semantic.
type patternTechnicalAnalyzer struct{}

func (patternTechnicalAnalyzer) Analyze(content string) (types.FeedbackSentiment, float64, float64) {
	pattern := feedback.AnalyzePattern(content)
	tech := technical.Analyze(content, nil)
	techInput := feedback.TechnicalInput{
		Available:              tech.Confidence > 0,
		Confidence:             tech.Confidence,
		ComplexOutcomeDetected: tech.ComplexOutcomeDetected,
		Domain:                 tech.Domain,
	}
	fusion := feedback.Fuse(pattern, feedback.SemanticResult{}, techInput)
	return fusion.Sentiment, pattern.Strength, fusion.Confidence
}
