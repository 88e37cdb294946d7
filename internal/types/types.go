// Package types defines the core data structures for the conversation memory
// index: the Turn entity and every enrichment attribute attached to it by the
// analyzers in internal/topic, internal/quality, internal/feedback,
// internal/technical, internal/extraction, internal/chain, and internal/learning.
//
// These types are shared across the whole pipeline and are designed to be
// passed by pointer but treated as immutable once persisted (see
// internal/index for the write path).
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Role identifies who produced a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleUnknown   Role = "unknown"
)

// SolutionCategory classifies the kind of fix an assistant Turn proposes.
type SolutionCategory string

const (
	SolutionCodeFix            SolutionCategory = "code_fix"
	SolutionConfigChange       SolutionCategory = "config_change"
	SolutionDebuggingHelp      SolutionCategory = "debugging_help"
	SolutionApproachSuggestion SolutionCategory = "approach_suggestion"
	SolutionCommandSolution    SolutionCategory = "command_solution"
	SolutionFileOperation      SolutionCategory = "file_operation"
	SolutionGeneralGuidance    SolutionCategory = "general_guidance"
	SolutionNone               SolutionCategory = "none"
)

// FeedbackSentiment is the outcome classification of a feedback Turn.
type FeedbackSentiment string

const (
	SentimentPositive FeedbackSentiment = "positive"
	SentimentNegative FeedbackSentiment = "negative"
	SentimentPartial  FeedbackSentiment = "partial"
	SentimentNeutral  FeedbackSentiment = "neutral"
	SentimentNone     FeedbackSentiment = ""
)

// TechnicalDomain is the primary domain detected by the technical-context
// analyzer (C6).
type TechnicalDomain string

const (
	DomainBuildSystem TechnicalDomain = "build_system"
	DomainTesting     TechnicalDomain = "testing"
	DomainRuntime     TechnicalDomain = "runtime"
	DomainDeployment  TechnicalDomain = "deployment"
	DomainNone        TechnicalDomain = "none"
)

// Clamp bounds for every numeric enrichment field (spec.md §3.3 invariant 2,
// §4.13). Kept centralized so C2's writers and C13's repair pass apply the
// exact same intervals.
const (
	MinSolutionQuality = 0.1
	MaxSolutionQuality = 3.0

	MinValidationStrength = -1.0
	MaxValidationStrength = 1.0

	MinTopicConfidence = 0.0
	MaxTopicConfidence = 2.0

	MinOutcomeCertainty = 0.0
	MaxOutcomeCertainty = 1.0

	MinRealtimeLearningBoost = 0.1
	MaxRealtimeLearningBoost = 3.0

	MinTroubleshootingScore = 1.0
	MaxTroubleshootingScore = 2.5

	// DefaultRealtimeLearningBoost is the neutral value used until a
	// producing function for this field is specified (spec.md §9, open
	// question); see internal/quality.RealtimeLearningBoost.
	DefaultRealtimeLearningBoost = 1.0

	// EmptyContentPlaceholderFormat, filled with the entry id, is substituted
	// for Turns whose extracted content is empty (spec.md §3.1, §6.1).
	EmptyContentPlaceholderFormat = "[Empty content from entry %s]"

	// MaxBatch is the per-call write ceiling the storage layer imposes on
	// internal/index (spec.md §3.3 invariant 7, §4.10, GLOSSARY).
	MaxBatch = 166
)

// ContentHash returns the canonical content_hash for a Turn's content
// (spec.md §3.3 invariant 1): every producer and C10 must derive it the
// same way, since the index dedups on this value.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Clamp constrains v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Turn is the immutable record representing one conversational utterance
// (spec.md §3.1) together with every attribute derived for it by the
// enrichment pipeline (spec.md §3.2).
type Turn struct {
	// Identity (§3.1)
	ID                 string `json:"id"`
	Content            string `json:"content"`
	ContentHash        string `json:"content_hash"`
	Role               Role   `json:"role"`
	ProjectKey         string `json:"project_key,omitempty"`
	ProjectDisplayName string `json:"project_display_name,omitempty"`
	SessionKey         string `json:"session_key,omitempty"`
	SourceFile         string `json:"source_file,omitempty"`
	SequencePosition   int    `json:"sequence_position"`
	TimestampISO       string `json:"timestamp_iso,omitempty"`
	TimestampUnix      float64 `json:"timestamp_unix,omitempty"`
	HasCode            bool   `json:"has_code"`
	ToolsUsed          []string `json:"tools_used,omitempty"`
	ContentLength      int    `json:"content_length"`

	// Topic (§3.2)
	Topics           map[string]float64 `json:"topics,omitempty"`
	PrimaryTopic     string             `json:"primary_topic,omitempty"`
	TopicConfidence  float64            `json:"topic_confidence"`

	// Quality (§3.2)
	SolutionQualityScore float64          `json:"solution_quality_score"`
	HasSuccessMarkers    bool             `json:"has_success_markers"`
	HasQualityIndicators bool             `json:"has_quality_indicators"`
	IsSolutionAttempt    bool             `json:"is_solution_attempt"`
	SolutionCategory     SolutionCategory `json:"solution_category,omitempty"`

	// Adjacency (§3.2)
	PreviousTurnID    string `json:"previous_turn_id,omitempty"`
	NextTurnID        string `json:"next_turn_id,omitempty"`
	RelatedSolutionID string `json:"related_solution_id,omitempty"`
	FeedbackTurnID    string `json:"feedback_turn_id,omitempty"`

	// Feedback outcome (§3.2)
	FeedbackSentiment  FeedbackSentiment `json:"feedback_sentiment,omitempty"`
	ValidationStrength float64           `json:"validation_strength"`
	IsValidatedSolution bool             `json:"is_validated_solution"`
	IsRefutedAttempt    bool             `json:"is_refuted_attempt"`
	OutcomeCertainty    float64          `json:"outcome_certainty"`

	// Troubleshooting / realtime learning (§3.2)
	TroubleshootingContextScore float64 `json:"troubleshooting_context_score"`
	RealtimeLearningBoost       float64 `json:"realtime_learning_boost"`

	// Semantic validation / multi-modal fusion (§3.2, §4.7)
	SemanticSentiment          FeedbackSentiment `json:"semantic_sentiment,omitempty"`
	SemanticConfidence         float64           `json:"semantic_confidence"`
	PositiveSimilarity         float64           `json:"positive_similarity"`
	NegativeSimilarity         float64           `json:"negative_similarity"`
	PartialSimilarity          float64           `json:"partial_similarity"`
	TechnicalDomain            TechnicalDomain   `json:"technical_domain,omitempty"`
	TechnicalConfidence        float64           `json:"technical_confidence"`
	ComplexOutcomeDetected     bool              `json:"complex_outcome_detected"`
	PatternVsSemanticAgreement float64           `json:"pattern_vs_semantic_agreement"`
	PrimaryAnalysisMethod      string            `json:"primary_analysis_method,omitempty"`
	RequiresManualReview       bool              `json:"requires_manual_review"`
	BestMatchingPatterns       string            `json:"best_matching_patterns,omitempty"` // serialised JSON list
	SemanticAnalysisDetails    string            `json:"semantic_analysis_details,omitempty"` // serialised JSON object

	// Hybrid extraction (§3.2, §4.8)
	Entities               string  `json:"entities,omitempty"` // serialised JSON list
	TechnicalTools         []string `json:"technical_tools,omitempty"`
	FrameworkMentions      []string `json:"framework_mentions,omitempty"`
	SolutionSimilarityScore float64 `json:"solution_similarity_score"`
	FeedbackSimilarityScore float64 `json:"feedback_similarity_score"`
	ErrorSimilarityScore    float64 `json:"error_similarity_score"`
	BestPatternMatch        string  `json:"best_pattern_match,omitempty"`
	HybridConfidence        float64 `json:"hybrid_confidence"`
}

// IsPlaceholder reports whether Content is the empty-content marker
// substituted at ingestion time (spec.md §6.1). Ergonomic helper, not part of
// any invariant.
func (t *Turn) IsPlaceholder() bool {
	return len(t.Content) > 0 && t.Content[0] == '[' &&
		t.ContentLength == len([]rune(t.Content)) && t.ContentHash != "" &&
		hasEmptyContentPrefix(t.Content)
}

func hasEmptyContentPrefix(s string) bool {
	const prefix = "[Empty content from entry "
	if len(s) < len(prefix) {
		return false
	}
	return s[:len(prefix)] == prefix
}

// RawTurn is the not-yet-enriched shape delivered by a producer (bulk scanner
// or hook), after §6.1/§6.2 normalisation but before C2 runs (spec.md §4.2).
type RawTurn struct {
	UpstreamID         string
	Content            string
	Role               Role
	ProjectKey         string
	ProjectDisplayName string
	SessionKey         string
	SourceFile         string
	SequencePosition   int
	TimestampISO       string
	TimestampUnix      float64
	HasTimestamp       bool
	ToolsUsed          []string
}

// EnrichmentContext carries everything C2 needs besides the raw turn itself
// (spec.md §4.2): sibling turns when known, the processing source, and
// (for bulk ingestion) the full session sequence so C9 can run afterwards.
type EnrichmentContext struct {
	Source            string // "hook" or "bulk"
	PreviousRaw        *RawTurn
	NextRaw             *RawTurn
	SequencePosition    int
	TroubleshootingMode bool
	SolutionToolContext []string // tools used by the solution a feedback turn responds to
}

// Now returns the current time. Defined as a var so tests can freeze it;
// production code always uses the default.
var Now = time.Now
