package quality

import (
	"strings"

	"turnindex/internal/types"
)

var troubleshootingPatterns = []string{
	"error", "exception", "failed", "failing", "broken", "not working",
	"issue", "problem", "bug", "crash", "hang", "timeout", "stack trace",
	"debug", "investigate", "diagnose", "trace", "inspect", "analyze",
	"troubleshoot", "examine", "check", "verify", "test", "console",
	"tried", "attempted", "testing", "checking", "investigating",
	"found the issue", "identified the problem", "root cause",
	"solution found", "fixed by", "resolved with", "workaround",
}

var diagnosisIndicators = []string{"error", "exception", "failed", "broken", "bug"}

var resolutionIndicators = []string{"fixed", "solved", "resolved", "working", "solution"}

func containsCount(lower string, phrases []string) int {
	count := 0
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			count++
		}
	}
	return count
}

// TroubleshootingBoost computes the troubleshooting-context score for
// content when troubleshooting mode is active; returns the neutral 1.0
// baseline otherwise. Result is clamped to [types.MinTroubleshootingScore,
// types.MaxTroubleshootingScore].
func TroubleshootingBoost(content string, troubleshootingMode bool) float64 {
	if !troubleshootingMode {
		return 1.0
	}

	lower := strings.ToLower(content)
	score := 1.0
	score += float64(containsCount(lower, troubleshootingPatterns)) * 0.15
	score += float64(containsCount(lower, diagnosisIndicators)) * 0.2
	score += float64(containsCount(lower, resolutionIndicators)) * 0.25

	return types.Clamp(score, types.MinTroubleshootingScore, types.MaxTroubleshootingScore)
}
