package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"turnindex/internal/types"
)

func TestScoreNeutralForShortContent(t *testing.T) {
	assert.Equal(t, 1.0, Score("ok", Context{}))
}

func TestScoreBoostedBySuccessMarkers(t *testing.T) {
	content := "The fix is working and the tests are passing now, problem resolved."
	score := Score(content, Context{})
	assert.Greater(t, score, 1.0)
	assert.LessOrEqual(t, score, types.MaxSolutionQuality)
}

func TestScorePenalizedByFailureIndicators(t *testing.T) {
	content := strings.Repeat("still broken, made worse, regression, critical bug. ", 3)
	score := Score(content, Context{})
	assert.Equal(t, types.MinSolutionQuality, score)
}

func TestScoreClampUpperBound(t *testing.T) {
	content := strings.Repeat("fixed working solved success complete done perfect exactly brilliant awesome fantastic tested validated confirmed verified checked final solution this worked problem solved issue resolved successfully implemented code works implementation successful function working ", 5)
	score := Score(content, Context{HasCode: true, ToolsUsed: []string{"Edit", "Write", "Bash"}})
	assert.Equal(t, types.MaxSolutionQuality, score)
}

func TestIsSolutionAttemptRequiresAssistantRole(t *testing.T) {
	content := "Let me fix this: ```go\nfunc main() {}\n``` This should resolve the issue."
	assert.True(t, IsSolutionAttempt(content, types.RoleAssistant))
	assert.False(t, IsSolutionAttempt(content, types.RoleUser))
}

func TestIsSolutionAttemptBelowThreshold(t *testing.T) {
	assert.False(t, IsSolutionAttempt("sure, sounds good", types.RoleAssistant))
}

func TestCategoryPriorityOrdering(t *testing.T) {
	assert.Equal(t, types.SolutionCodeFix, Category("```go\nfunc foo() {}\n```"))
	assert.Equal(t, types.SolutionConfigChange, Category("update the .env variable"))
	assert.Equal(t, types.SolutionCommandSolution, Category("run the following command in bash"))
	assert.Equal(t, types.SolutionDebuggingHelp, Category("check the console.log output"))
	assert.Equal(t, types.SolutionApproachSuggestion, Category("consider this architecture pattern"))
	assert.Equal(t, types.SolutionFileOperation, Category("move the file to a new directory"))
	assert.Equal(t, types.SolutionGeneralGuidance, Category("thanks for asking"))
}

func TestTroubleshootingBoostNeutralWhenModeOff(t *testing.T) {
	assert.Equal(t, 1.0, TroubleshootingBoost("error exception failed", false))
}

func TestTroubleshootingBoostClampsToMax(t *testing.T) {
	content := strings.Repeat("error exception failed broken bug fixed solved resolved working solution ", 5)
	boost := TroubleshootingBoost(content, true)
	assert.Equal(t, types.MaxTroubleshootingScore, boost)
}

func TestTroubleshootingBoostFloorAtMin(t *testing.T) {
	boost := TroubleshootingBoost("hello there", true)
	assert.Equal(t, types.MinTroubleshootingScore, boost)
}
