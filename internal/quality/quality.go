// Package quality implements the solution-quality, solution-attempt, and
// solution-category half of C3, plus the troubleshooting-context boost used
// by both enrichment and query-time scoring.
package quality

import (
	"regexp"
	"strings"

	"turnindex/internal/types"
)

var successMarkers = []string{
	"fixed", "working", "solved", "success", "complete", "done",
	"perfect", "exactly", "brilliant", "awesome", "fantastic",
	"that worked", "problem resolved", "issue fixed", "bug fixed",
	"now working", "all good", "working perfectly", "works great",
	"deployed successfully", "tests passing", "build succeeded",
	"running smoothly", "production ready", "live and working",
}

var qualityIndicators = []string{
	"tested", "validated", "confirmed", "verified", "checked",
	"production-ready", "deployed", "live", "stable",
	"typecheck passed", "build succeeded", "tests passing",
	"lint clean", "no errors", "validation passed",
	"optimized", "performance improved", "faster", "efficient",
	"scalable", "robust", "reliable", "secure",
}

var implementationSuccess = []string{
	"final solution", "this worked", "problem solved",
	"issue resolved", "successfully implemented",
	"deployment successful", "migration complete",
	"optimization complete", "refactoring done",
	"functionality working", "feature complete",
	"integration successful", "configuration correct",
}

var codeSuccessPatterns = []string{
	"code works", "implementation successful", "function working",
	"method working", "class implemented", "component working",
	"no errors", "running smoothly", "behaving correctly",
	"executing properly", "output correct", "result as expected",
}

var failureIndicators = []string{
	"broken", "not working", "still failing", "error persists",
	"same issue", "didn't work", "still broken", "made worse",
	"regression", "critical bug", "system down",
}

var (
	successMarkersRe       = compileWordBoundary(successMarkers)
	qualityIndicatorsRe    = compileWordBoundary(qualityIndicators)
	implementationSuccessRe = compileWordBoundary(implementationSuccess)
	codeSuccessPatternsRe   = compileWordBoundary(codeSuccessPatterns)
	failureIndicatorsRe     = compileWordBoundary(failureIndicators)
)

func compileWordBoundary(phrases []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(phrases))
	for i, p := range phrases {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(p) + `\b`)
	}
	return out
}

func countMatches(patterns []*regexp.Regexp, lower string) int {
	total := 0
	for _, p := range patterns {
		total += len(p.FindAllStringIndex(lower, -1))
	}
	return total
}

var codeBlockRe = regexp.MustCompile("(?s)```[\\w]*\n.*?\n```")

// DetectsCode reports whether content contains a fenced code block,
// independent of any caller-supplied HasCode hint. Used by C2 to set a
// Turn's own has_code attribute before quality scoring runs.
func DetectsCode(content string) bool {
	return codeBlockRe.MatchString(content)
}

var implementationTools = map[string]bool{
	"Edit": true, "Write": true, "MultiEdit": true, "Bash": true,
}

// Context carries the metadata quality scoring needs alongside raw content.
type Context struct {
	HasCode   bool
	ToolsUsed []string
}

func hasImplementationTools(tools []string) bool {
	for _, t := range tools {
		if implementationTools[t] {
			return true
		}
	}
	return false
}

func toolDiversity(tools []string) int {
	seen := make(map[string]bool, len(tools))
	for _, t := range tools {
		seen[t] = true
	}
	return len(seen)
}

// Score computes the solution quality score for content, clamped to
// [types.MinSolutionQuality, types.MaxSolutionQuality].
func Score(content string, ctx Context) float64 {
	if len(strings.TrimSpace(content)) < 10 {
		return 1.0
	}

	lower := strings.ToLower(content)

	score := 1.0
	score += float64(countMatches(successMarkersRe, lower)) * 0.3
	score += float64(countMatches(qualityIndicatorsRe, lower)) * 0.4
	score += float64(countMatches(implementationSuccessRe, lower)) * 0.5
	score += float64(countMatches(codeSuccessPatternsRe, lower)) * 0.3

	if ctx.HasCode || codeBlockRe.MatchString(content) {
		score += 0.2
	}
	if hasImplementationTools(ctx.ToolsUsed) {
		score += 0.3
	}
	if toolDiversity(ctx.ToolsUsed) >= 3 {
		score += 0.2
	}

	length := len([]rune(content))
	if length > 500 {
		score += 0.1
	}
	if length > 1500 {
		score += 0.1
	}

	score -= float64(countMatches(failureIndicatorsRe, lower)) * 0.4

	return types.Clamp(score, types.MinSolutionQuality, types.MaxSolutionQuality)
}

// HasSuccessMarkers reports whether content contains at least one success
// marker match.
func HasSuccessMarkers(content string) bool {
	return countMatches(successMarkersRe, strings.ToLower(content)) > 0
}

// HasQualityIndicators reports whether content contains at least one quality
// indicator match.
func HasQualityIndicators(content string) bool {
	return countMatches(qualityIndicatorsRe, strings.ToLower(content)) > 0
}

// MatchedSuccessMarkers returns the distinct success-marker phrases found in
// content, in lexicon order. Used by C8 to populate its success-marker list.
func MatchedSuccessMarkers(content string) []string {
	lower := strings.ToLower(content)
	var out []string
	for i, p := range successMarkersRe {
		if p.MatchString(lower) {
			out = append(out, successMarkers[i])
		}
	}
	return out
}

// RealtimeLearningBoost is an extension point for online-learning feedback
// signals on top of the static quality score. It returns the neutral default
// when base is 0 and otherwise clamps base to
// [types.MinRealtimeLearningBoost, types.MaxRealtimeLearningBoost]; C2 calls
// it with the neutral default.
func RealtimeLearningBoost(base float64) float64 {
	if base == 0 {
		return types.DefaultRealtimeLearningBoost
	}
	return types.Clamp(base, types.MinRealtimeLearningBoost, types.MaxRealtimeLearningBoost)
}
