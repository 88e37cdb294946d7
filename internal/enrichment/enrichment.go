// Package enrichment implements the enrichment processor (C2): the single
// per-turn pass that runs every analyzer (C3, C4/C7, C6, C8) over one raw
// turn, consolidates its adjacency fields from the surrounding context, and
// produces the enriched Turn that C10 persists.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"turnindex/internal/extraction"
	"turnindex/internal/feedback"
	"turnindex/internal/quality"
	"turnindex/internal/technical"
	"turnindex/internal/topic"
	"turnindex/internal/types"
)

// defaultPerTurnDeadline is the soft per-turn budget spec.md §5 recommends.
// It bounds only the context handed to the semantic analyzer and the
// extractor; the topic, quality and technical analyzers take no context and
// always run to completion.
const defaultPerTurnDeadline = time.Second

// SemanticAnalyzer is the subset of C5 that C2's fusion step runs. Satisfied
// by *internal/feedback.SemanticAnalyzer; nil disables the semantic path
// and falls back to pattern-only analysis (spec.md §4.2 "C4 (or C7 when
// semantic path is available)").
type SemanticAnalyzer interface {
	Analyze(ctx context.Context, feedbackContent string) feedback.SemanticResult
}

// stats is C2's per-processor bookkeeping (spec.md §4.2): count, running
// mean latency, and per-analyzer success/error counters.
type stats struct {
	count             int
	meanLatencyMs     float64
	analyzerSuccesses map[string]int
	analyzerErrors    map[string]int
}

// Stats is a snapshot of a Processor's bookkeeping.
type Stats struct {
	Count             int
	MeanLatencyMs     float64
	AnalyzerSuccesses map[string]int
	AnalyzerErrors    map[string]int
}

// Processor runs the enrichment pass. One instance is created per producer
// (hook or bulk scanner) and reused across every turn that producer emits;
// creating one per turn defeats the shared-resource model spec.md §8
// describes as the primary performance contract.
type Processor struct {
	topicClassifier *topic.Classifier
	semantic        SemanticAnalyzer
	extractor       *extraction.Extractor
	deadline        time.Duration

	mu    sync.Mutex
	stats stats
}

// Config wires a Processor's analyzer dependencies. Extractor is required;
// SemanticAnalyzer may be nil (degrades to pattern-only feedback fusion).
type Config struct {
	TopicClassifier  *topic.Classifier
	SemanticAnalyzer SemanticAnalyzer
	Extractor        *extraction.Extractor
	PerTurnDeadline  time.Duration
}

// NewProcessor constructs a Processor from cfg.
func NewProcessor(cfg Config) *Processor {
	deadline := cfg.PerTurnDeadline
	if deadline <= 0 {
		deadline = defaultPerTurnDeadline
	}
	classifier := cfg.TopicClassifier
	if classifier == nil {
		classifier = topic.NewClassifier()
	}
	return &Processor{
		topicClassifier: classifier,
		semantic:        cfg.SemanticAnalyzer,
		extractor:       cfg.Extractor,
		deadline:        deadline,
		stats: stats{
			analyzerSuccesses: make(map[string]int),
			analyzerErrors:    make(map[string]int),
		},
	}
}

// Enrich runs raw through every analyzer and returns the enriched Turn
// (spec.md §4.2). Every sub-step is isolated: a panicking analyzer degrades
// only its own fields to their documented defaults and never aborts the
// record. The per-turn deadline reaches only the context passed to the
// semantic analyzer and the extractor; Enrich does not stop waiting on a
// slow analyzer, so no analyzer is abandoned mid-run.
func (p *Processor) Enrich(ctx context.Context, raw *types.RawTurn, ectx types.EnrichmentContext) *types.Turn {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.deadline)
	defer cancel()

	content := raw.Content
	if content == "" {
		content = fmt.Sprintf(types.EmptyContentPlaceholderFormat, raw.UpstreamID)
	}

	t := &types.Turn{
		ID:                 raw.UpstreamID,
		Content:            content,
		ContentHash:        types.ContentHash(content),
		Role:               raw.Role,
		ProjectKey:         raw.ProjectKey,
		ProjectDisplayName: raw.ProjectDisplayName,
		SessionKey:         raw.SessionKey,
		SourceFile:         raw.SourceFile,
		SequencePosition:   ectx.SequencePosition,
		TimestampISO:       raw.TimestampISO,
		TimestampUnix:      raw.TimestampUnix,
		ToolsUsed:          raw.ToolsUsed,
		ContentLength:      len([]rune(content)),
		RealtimeLearningBoost: quality.RealtimeLearningBoost(types.DefaultRealtimeLearningBoost),
	}
	t.HasCode = quality.DetectsCode(content)

	p.runTopic(t)
	p.runQuality(t, raw, ectx)
	p.runFeedback(ctx, t)
	p.runTechnical(ctx, t, ectx)
	p.runExtraction(ctx, t)
	consolidateAdjacency(t, ectx)

	p.record(time.Since(start))
	return t
}

func (p *Processor) runTopic(t *types.Turn) {
	defer p.guard("topic")()
	scores := p.topicClassifier.Score(t.Content)
	primary, confidence := topic.PrimaryTopic(scores)
	t.Topics = scores
	t.PrimaryTopic = primary
	t.TopicConfidence = types.Clamp(confidence, types.MinTopicConfidence, types.MaxTopicConfidence)
	p.succeed("topic")
}

func (p *Processor) runQuality(t *types.Turn, raw *types.RawTurn, ectx types.EnrichmentContext) {
	defer p.guard("quality")()
	t.SolutionQualityScore = quality.Score(t.Content, quality.Context{HasCode: t.HasCode, ToolsUsed: raw.ToolsUsed})
	t.HasSuccessMarkers = quality.HasSuccessMarkers(t.Content)
	t.HasQualityIndicators = quality.HasQualityIndicators(t.Content)
	t.IsSolutionAttempt = quality.IsSolutionAttempt(t.Content, t.Role)
	t.SolutionCategory = quality.Category(t.Content)
	t.TroubleshootingContextScore = quality.TroubleshootingBoost(t.Content, ectx.TroubleshootingMode)
	p.succeed("quality")
}

// runFeedback runs C4 (and C5/C7 when a semantic analyzer is configured)
// over a user turn. Assistant turns carry no feedback-outcome fields from
// this pass; C9 and C12 write them onto solution turns later.
func (p *Processor) runFeedback(ctx context.Context, t *types.Turn) {
	if t.Role != types.RoleUser {
		return
	}
	defer p.guard("feedback")()

	pattern := feedback.AnalyzePattern(t.Content)

	var semanticResult feedback.SemanticResult
	if p.semantic != nil {
		semanticResult = p.semantic.Analyze(ctx, t.Content)
		t.SemanticSentiment = semanticResult.Sentiment
		t.SemanticConfidence = semanticResult.Confidence
		t.PositiveSimilarity = semanticResult.PositiveSimilarity
		t.NegativeSimilarity = semanticResult.NegativeSimilarity
		t.PartialSimilarity = semanticResult.PartialSimilarity
	}

	tech := technical.Analyze(t.Content, nil)
	fusion := feedback.Fuse(pattern, semanticResult, feedback.TechnicalInput{
		Available:              tech.Confidence > 0,
		Confidence:             tech.Confidence,
		ComplexOutcomeDetected: tech.ComplexOutcomeDetected,
		Domain:                 tech.Domain,
	})

	t.FeedbackSentiment = fusion.Sentiment
	t.OutcomeCertainty = types.Clamp(fusion.Confidence, types.MinOutcomeCertainty, types.MaxOutcomeCertainty)
	t.TechnicalDomain = fusion.TechnicalDomain
	t.TechnicalConfidence = tech.Confidence
	t.ComplexOutcomeDetected = fusion.ComplexOutcomeDetected
	if fusion.PatternVsSemanticAgreement {
		t.PatternVsSemanticAgreement = 1.0
	}
	t.PrimaryAnalysisMethod = fusion.PrimaryMethod
	t.RequiresManualReview = fusion.RequiresManualReview

	p.succeed("feedback")
}

// runTechnical runs C6 over an assistant turn using the solution-tool
// context carried in ectx, so the domain scoring can favour whatever domain
// the preceding solution touched.
func (p *Processor) runTechnical(ctx context.Context, t *types.Turn, ectx types.EnrichmentContext) {
	if t.Role != types.RoleAssistant {
		return
	}
	defer p.guard("technical")()

	var solutionCtx *technical.SolutionContext
	if len(ectx.SolutionToolContext) > 0 {
		solutionCtx = &technical.SolutionContext{ToolsUsed: ectx.SolutionToolContext}
	}
	result := technical.Analyze(t.Content, solutionCtx)
	t.TechnicalDomain = result.Domain
	t.TechnicalConfidence = result.Confidence
	t.ComplexOutcomeDetected = result.ComplexOutcomeDetected

	p.succeed("technical")
}

func (p *Processor) runExtraction(ctx context.Context, t *types.Turn) {
	if p.extractor == nil {
		return
	}
	defer p.guard("extraction")()

	result := p.extractor.Extract(ctx, t.Content)

	if entities, err := json.Marshal(result.Entities); err == nil && len(result.Entities) > 0 {
		t.Entities = string(entities)
	}
	t.TechnicalTools = result.Tools
	t.FrameworkMentions = result.Frameworks
	t.SolutionSimilarityScore = result.SolutionSimilarityScore
	t.FeedbackSimilarityScore = result.FeedbackSimilarityScore
	t.ErrorSimilarityScore = result.ErrorSimilarityScore
	t.BestPatternMatch = result.BestPatternMatch
	t.HybridConfidence = result.HybridConfidence

	p.succeed("extraction")
}

// consolidateAdjacency fills in whatever adjacency C2 can determine locally
// from the surrounding context; C9's back-fill pass refines these once the
// whole session is available.
func consolidateAdjacency(t *types.Turn, ectx types.EnrichmentContext) {
	if ectx.PreviousRaw != nil {
		t.PreviousTurnID = ectx.PreviousRaw.UpstreamID
	}
	if ectx.NextRaw != nil {
		t.NextTurnID = ectx.NextRaw.UpstreamID
	}
}

// guard returns a deferred function that recovers from a panic in the
// analyzer named by name, logging it and counting it as a failure rather
// than letting it abort the whole Enrich call (spec.md §4.2, §7.2).
func (p *Processor) guard(name string) func() {
	return func() {
		if r := recover(); r != nil {
			log.Printf("[enrichment] analyzer %s panicked: %v", name, r)
			p.fail(name)
		}
	}
}

func (p *Processor) succeed(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.analyzerSuccesses[name]++
}

func (p *Processor) fail(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.analyzerErrors[name]++
}

func (p *Processor) record(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.count++
	ms := float64(latency.Microseconds()) / 1000.0
	p.stats.meanLatencyMs += (ms - p.stats.meanLatencyMs) / float64(p.stats.count)
}

// Stats returns a snapshot of the processor's running statistics.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	successes := make(map[string]int, len(p.stats.analyzerSuccesses))
	for k, v := range p.stats.analyzerSuccesses {
		successes[k] = v
	}
	errs := make(map[string]int, len(p.stats.analyzerErrors))
	for k, v := range p.stats.analyzerErrors {
		errs[k] = v
	}
	return Stats{
		Count:             p.stats.count,
		MeanLatencyMs:     p.stats.meanLatencyMs,
		AnalyzerSuccesses: successes,
		AnalyzerErrors:    errs,
	}
}
