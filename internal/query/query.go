// Package query implements the boosted query engine (C11): per-candidate
// multi-factor relevance boosting over raw vector-similarity candidates,
// ported from the original system's boosting_engine.py.
package query

import (
	"sort"
	"time"

	"turnindex/internal/quality"
	"turnindex/internal/topic"
)

// ValidationPreference selects how a candidate's validation status affects
// its relevance (spec.md §4.11).
type ValidationPreference string

const (
	ValidatedOnly     ValidationPreference = "validated_only"
	IncludeFailures   ValidationPreference = "include_failures"
	NeutralPreference ValidationPreference = "neutral"
)

const (
	maxTopicBoost           = 2.5
	maxQualityBoost         = 3.0
	maxValidationBoost      = 2.5
	maxTroubleshootingBoost = 2.5
	maxRecencyBoost         = 1.8
	maxTotalBoost           = 8.0
	maxPreferenceMultiplier = 2.0
)

// Flags carries the query-time preferences and filters spec.md §4.11 lists.
type Flags struct {
	TopicFocus            string
	PreferSolutions        bool
	TroubleshootingMode    bool
	ValidationPreference   ValidationPreference
	PreferRecent           bool
	ShowContextChain       bool
	ProjectContext         string
	PreferCode             bool
	PreferValidated        bool
	PreferDetailed         bool
	PreferImplementation   bool
	ChainLength            int
}

// Candidate is one raw top-K result from C10, carrying the typed enrichment
// fields the boost formulas need. Callers translate a C10 record's metadata
// into this shape before calling Score/Run.
type Candidate struct {
	ID             string
	Content        string
	BaseSimilarity float64

	ProjectKey           string
	Topics               map[string]float64
	SolutionQualityScore float64
	IsValidatedSolution  bool
	IsRefutedAttempt     bool
	ValidationStrength   float64
	// StoredConfidence backs the "neutral" validation preference branch,
	// which spec.md §4.11 says should "use stored confidence directly"
	// without naming a specific field. This project uses the candidate's
	// outcome_certainty (see DESIGN.md Open Question decisions); callers
	// populate it from Turn.OutcomeCertainty, defaulting to 1.0 when a
	// candidate has no feedback outcome yet.
	StoredConfidence float64
	HasCode          bool
	ToolsUsed        []string
	ContentLength    int
	TimestampUnix    float64
}

// BoostAnalysis is the structured breakdown spec.md §4.11 step 4 requires,
// enumerating every factor applied to one candidate.
type BoostAnalysis struct {
	ProjectBoost         float64 `json:"project_boost"`
	TopicBoost           float64 `json:"topic_boost"`
	QualityBoost         float64 `json:"quality_boost"`
	ValidationBoost      float64 `json:"validation_boost"`
	TroubleshootingBoost float64 `json:"troubleshooting_boost"`
	RecencyBoost         float64 `json:"recency_boost"`
	PreferenceMultiplier float64 `json:"preference_multiplier"`
	BoostCappingApplied  bool    `json:"boost_capping_applied"`
}

// Scored is one ranked query result.
type Scored struct {
	Candidate
	Combined float64
	Analysis BoostAnalysis
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func projectBoost(c Candidate, flags Flags) float64 {
	if flags.ProjectContext != "" && c.ProjectKey == flags.ProjectContext {
		return 1.2
	}
	return 1.0
}

func topicBoostFor(c Candidate, flags Flags) float64 {
	if flags.TopicFocus == "" || len(c.Topics) == 0 {
		return 1.0
	}
	return minF(topic.Boost(c.Topics, flags.TopicFocus), maxTopicBoost)
}

func qualityBoostFor(c Candidate, flags Flags) float64 {
	if !flags.PreferSolutions {
		return 1.0
	}
	return minF(c.SolutionQualityScore, maxQualityBoost)
}

func validationBoostFor(c Candidate, flags Flags) float64 {
	var boost float64
	switch flags.ValidationPreference {
	case ValidatedOnly:
		switch {
		case c.IsValidatedSolution:
			boost = 1.5 + c.ValidationStrength
		case c.IsRefutedAttempt:
			boost = 0.2
		default:
			boost = 0.8
		}
	case IncludeFailures:
		if c.IsRefutedAttempt {
			boost = 1.3
		} else {
			boost = 1.0
		}
	default:
		confidence := c.StoredConfidence
		if confidence == 0 {
			confidence = 1.0
		}
		boost = confidence
	}
	return minF(boost, maxValidationBoost)
}

func troubleshootingBoostFor(c Candidate, flags Flags) float64 {
	boost := quality.TroubleshootingBoost(c.Content, flags.TroubleshootingMode)
	return minF(boost, maxTroubleshootingBoost)
}

// recencyBoost is the piecewise age-based boost (spec.md §4.11), computed
// against now so callers don't need banned wall-clock calls inside scoring
// loops.
func recencyBoost(timestampUnix float64, flags Flags, now time.Time) float64 {
	if !flags.PreferRecent || timestampUnix == 0 {
		return 1.0
	}
	age := now.Sub(time.Unix(int64(timestampUnix), 0))
	switch {
	case age <= time.Hour:
		return 1.8
	case age <= 6*time.Hour:
		return 1.6
	case age <= 24*time.Hour:
		return 1.4
	case age <= 3*24*time.Hour:
		return 1.2
	case age <= 7*24*time.Hour:
		return 1.1
	case age <= 30*24*time.Hour:
		return 1.0
	default:
		return 0.8
	}
}

func preferenceMultiplier(c Candidate, flags Flags, qualityBoost, validationBoost float64) float64 {
	multiplier := 1.0
	if flags.PreferSolutions && qualityBoost > 1.5 {
		multiplier *= 1.3
	}
	if flags.PreferValidated && validationBoost > 1.2 {
		multiplier *= 1.4
	}
	if flags.PreferCode && c.HasCode {
		multiplier *= 1.2
	}
	if flags.PreferDetailed {
		if c.ContentLength > 500 {
			multiplier *= 1.1
		}
		if c.ContentLength > 1000 {
			multiplier *= 1.1
		}
	}
	if flags.PreferImplementation && hasImplementationTool(c.ToolsUsed) {
		multiplier *= 1.25
	}
	return minF(multiplier, maxPreferenceMultiplier)
}

var implementationTools = map[string]bool{"Edit": true, "Write": true, "MultiEdit": true, "Bash": true}

func hasImplementationTool(tools []string) bool {
	for _, t := range tools {
		if implementationTools[t] {
			return true
		}
	}
	return false
}

// Score computes the combined relevance score and boost breakdown for one
// candidate, per spec.md §4.11 steps 2-3.
func Score(c Candidate, flags Flags, now time.Time) Scored {
	if c.Content == "" || c.BaseSimilarity <= 0 {
		return Scored{Candidate: c, Analysis: BoostAnalysis{
			ProjectBoost: projectBoost(c, flags), TopicBoost: 1.0, QualityBoost: 1.0,
			ValidationBoost: 1.0, TroubleshootingBoost: 1.0, RecencyBoost: 1.0,
			PreferenceMultiplier: 1.0,
		}}
	}

	analysis := BoostAnalysis{
		ProjectBoost:         projectBoost(c, flags),
		TopicBoost:           topicBoostFor(c, flags),
		QualityBoost:         qualityBoostFor(c, flags),
		ValidationBoost:      validationBoostFor(c, flags),
		TroubleshootingBoost: troubleshootingBoostFor(c, flags),
		RecencyBoost:         recencyBoost(c.TimestampUnix, flags, now),
	}
	analysis.PreferenceMultiplier = preferenceMultiplier(c, flags, analysis.QualityBoost, analysis.ValidationBoost)

	individual := analysis.ProjectBoost * analysis.TopicBoost * analysis.QualityBoost *
		analysis.ValidationBoost * analysis.TroubleshootingBoost * analysis.RecencyBoost
	analysis.BoostCappingApplied = individual > maxTotalBoost
	capped := minF(individual, maxTotalBoost)

	combined := c.BaseSimilarity * capped * analysis.PreferenceMultiplier

	return Scored{Candidate: c, Combined: combined, Analysis: analysis}
}

// Run scores every candidate and returns the top n, sorted descending by
// combined score.
func Run(candidates []Candidate, flags Flags, n int, now time.Time) []Scored {
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Score(c, flags, now)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Combined > scored[j].Combined
	})
	if n > 0 && n < len(scored) {
		scored = scored[:n]
	}
	return scored
}
