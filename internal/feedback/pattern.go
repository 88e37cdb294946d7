// Package feedback implements the pattern-based feedback analyzer (C4), the
// semantic feedback analyzer (C5), and the multi-modal fusion stage (C7)
// that reconciles their outputs (and optionally C6's) into a single
// validation verdict for a feedback turn.
package feedback

import (
	"regexp"
	"strings"

	"turnindex/internal/types"
)

var positivePatterns = map[string][]string{
	"strong": {
		"perfect", "exactly", "brilliant", "awesome", "fantastic", "excellent",
		"works perfectly", "fixed it", "that worked", "problem solved",
		"exactly what i needed", "spot on", "flawless", "incredible",
		"you nailed it", "perfect solution", "amazing work",
	},
	"moderate": {
		"great", "good", "works", "working", "fixed", "thanks", "helpful",
		"solved", "success", "correct", "right", "yes", "good job",
		"that helps", "much better", "resolved", "successful",
	},
	"subtle": {
		"better", "improved", "progress", "closer", "helped", "useful",
		"getting there", "on the right track", "step forward", "partial fix",
		"some improvement", "heading in right direction",
	},
}

var negativePatterns = map[string][]string{
	"strong": {
		"completely broken", "made it worse", "totally wrong", "disaster",
		"doesn't work at all", "same exact error", "even more broken",
		"completely failed", "waste of time", "no improvement", "worse than before",
	},
	"moderate": {
		"still not working", "didn't work", "still broken", "not fixed",
		"same error", "still happening", "no change", "still failing",
		"not right", "incorrect", "wrong approach", "doesn't help",
	},
	"subtle": {
		"not quite", "almost", "close but", "still some issues",
		"partially broken", "sort of works", "mostly wrong",
		"needs more work", "not there yet", "some problems remain",
	},
}

var partialSuccessPatterns = []string{
	"partially working", "some progress", "better but", "almost there",
	"fixed one issue but", "working sometimes", "intermittent",
	"works for some cases", "half working", "mixed results",
	"progress made but", "step in right direction but", "improvement but",
}

var neutralPatterns = []string{
	"i see", "okay", "understood", "got it", "makes sense",
	"i'll try", "let me check", "interesting", "noted", "hmm",
}

var confidenceIndicators = map[string][]string{
	"high": {
		"definitely", "absolutely", "certainly", "clearly", "obviously",
		"without a doubt", "for sure", "completely", "totally", "entirely",
	},
	"medium": {
		"probably", "likely", "seems", "appears", "looks like",
		"i think", "believe", "pretty sure", "fairly certain",
	},
	"low": {
		"maybe", "perhaps", "might", "could be", "not sure",
		"unsure", "hard to tell", "difficult to say", "unclear",
	},
}

func compileTiers(tiers map[string][]string) map[string][]*regexp.Regexp {
	out := make(map[string][]*regexp.Regexp, len(tiers))
	for tier, phrases := range tiers {
		out[tier] = compileList(phrases)
	}
	return out
}

func compileList(phrases []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(phrases))
	for i, p := range phrases {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(p) + `\b`)
	}
	return out
}

var (
	positiveRe   = compileTiers(positivePatterns)
	negativeRe   = compileTiers(negativePatterns)
	partialRe    = compileList(partialSuccessPatterns)
	neutralRe    = compileList(neutralPatterns)
	confidenceRe = compileTiers(confidenceIndicators)
)

func countAll(patterns []*regexp.Regexp, lower string) int {
	total := 0
	for _, p := range patterns {
		total += len(p.FindAllStringIndex(lower, -1))
	}
	return total
}

// PatternBreakdown exposes the per-tier match counts behind a PatternResult,
// for diagnostics and for C7's fusion stage.
type PatternBreakdown struct {
	PositiveStrong, PositiveModerate, PositiveSubtle int
	NegativeStrong, NegativeModerate, NegativeSubtle int
	Partial, Neutral                                int
	TotalPositive, TotalNegative                     int
}

// PatternResult is C4's output for a single feedback turn.
type PatternResult struct {
	Sentiment  types.FeedbackSentiment
	Strength   float64
	Confidence float64
	Certainty  float64
	Breakdown  PatternBreakdown
}

// AnalyzePattern scores feedbackContent against the tiered lexicons and
// returns sentiment, strength, confidence, and certainty (spec.md §4.4).
func AnalyzePattern(feedbackContent string) PatternResult {
	if len(strings.TrimSpace(feedbackContent)) < 3 {
		return PatternResult{Sentiment: types.SentimentNeutral}
	}

	lower := strings.ToLower(feedbackContent)

	b := PatternBreakdown{
		PositiveStrong:   countAll(positiveRe["strong"], lower),
		PositiveModerate: countAll(positiveRe["moderate"], lower),
		PositiveSubtle:   countAll(positiveRe["subtle"], lower),
		NegativeStrong:   countAll(negativeRe["strong"], lower),
		NegativeModerate: countAll(negativeRe["moderate"], lower),
		NegativeSubtle:   countAll(negativeRe["subtle"], lower),
		Partial:          countAll(partialRe, lower),
		Neutral:          countAll(neutralRe, lower),
	}
	b.TotalPositive = b.PositiveStrong*3 + b.PositiveModerate*2 + b.PositiveSubtle
	b.TotalNegative = b.NegativeStrong*3 + b.NegativeModerate*2 + b.NegativeSubtle

	sentiment := types.SentimentNeutral
	strength := 0.0

	switch {
	case b.TotalPositive > b.TotalNegative && b.TotalPositive > b.Partial:
		sentiment = types.SentimentPositive
		strength = minF(float64(b.TotalPositive)/5.0, 1.0)
	case b.TotalNegative > b.TotalPositive && b.TotalNegative > b.Partial:
		sentiment = types.SentimentNegative
		strength = minF(float64(b.TotalNegative)/5.0, 1.0)
	case b.Partial > 0 && b.Partial >= maxInt(b.TotalPositive, b.TotalNegative):
		sentiment = types.SentimentPartial
		strength = minF(float64(b.Partial)/3.0, 1.0)
	case b.Neutral > 0:
		sentiment = types.SentimentNeutral
	}

	confidenceScore := 0.0
	confidenceScore += float64(countAll(confidenceRe["high"], lower)) * 0.4
	confidenceScore += float64(countAll(confidenceRe["medium"], lower)) * 0.2
	confidenceScore -= float64(countAll(confidenceRe["low"], lower)) * 0.2
	confidence := maxF(0.0, minF(confidenceScore+0.5, 1.0))

	certainty := 0.0
	if sentiment != types.SentimentNeutral {
		dominant := maxInt(maxInt(b.TotalPositive, b.TotalNegative), b.Partial)
		totalPatterns := b.TotalPositive + b.TotalNegative + b.Partial + b.Neutral
		if totalPatterns > 0 {
			certainty = (float64(dominant) / float64(totalPatterns)) * confidence
		}
	}

	return PatternResult{
		Sentiment:  sentiment,
		Strength:   strength,
		Confidence: confidence,
		Certainty:  certainty,
		Breakdown:  b,
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
