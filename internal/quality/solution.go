package quality

import (
	"regexp"
	"strings"

	"turnindex/internal/types"
)

var solutionPatterns = compileRegex([]string{
	`try\s+this`, `here'?s\s+(?:the\s+)?(?:fix|solution)`, `you\s+can\s+(?:fix|solve)`,
	`to\s+(?:fix|solve|resolve)`, `the\s+(?:issue|problem|bug)\s+is`,
	`(?:add|change|modify|update|replace)\s+this`, `update\s+(?:the\s+)?code`,
	`modify\s+(?:your\s+)?(?:function|method|class)`, `replace\s+(?:this\s+)?(?:line|code)`,
	`let\s+me\s+(?:fix|update|modify|change)`, `i'll\s+(?:fix|update|modify|add)`,
	`going\s+to\s+(?:fix|update|modify|add)`, `will\s+(?:fix|update|modify|add)`,
	`check\s+(?:if|whether|that)`, `verify\s+(?:that\s+)?(?:the\s+)?`,
	`make\s+sure`, `ensure\s+(?:that\s+)?(?:the\s+)?`,
	`set\s+(?:the\s+)?(?:config|environment|variable)`, `configure\s+(?:the\s+)?`,
	`install\s+(?:the\s+)?`, `run\s+(?:the\s+)?(?:following\s+)?command`,
})

var assistantIndicators = []string{
	"i'll", "let me", "here's", "you can", "try", "to fix", "to solve",
	"the solution", "the issue", "the problem", "update", "modify", "change",
}

var toolMentionRe = regexp.MustCompile(`(?i)\b(?:edit|write|modify|update|add|change)\b.*?(?:file|code|function)`)

func compileRegex(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// IsSolutionAttempt scores assistant content against solution phrasing,
// code-block presence, and tool-usage mentions; it returns true once the
// weighted score reaches threshold 3.
func IsSolutionAttempt(content string, role types.Role) bool {
	if role != types.RoleAssistant {
		return false
	}
	if len(strings.TrimSpace(content)) < 20 {
		return false
	}

	lower := strings.ToLower(content)

	patternMatches := 0
	for _, p := range solutionPatterns {
		if p.MatchString(lower) {
			patternMatches++
		}
	}

	indicatorMatches := 0
	for _, ind := range assistantIndicators {
		if strings.Contains(lower, ind) {
			indicatorMatches++
		}
	}

	hasCodeBlocks := codeBlockRe.MatchString(content)
	hasToolMentions := toolMentionRe.MatchString(content)

	score := patternMatches*2 + indicatorMatches
	if hasCodeBlocks {
		score += 4
	}
	if hasToolMentions {
		score += 2
	}

	length := len([]rune(content))
	if length > 200 {
		score++
	}
	if length > 500 {
		score++
	}

	return score >= 3
}

var codeFixKeywords = []string{"function", "class", "def ", "const ", "let ", "var "}
var configKeywords = []string{"config", "environment", ".env", "package.json", "settings", "variable"}
var commandKeywords = []string{"run ", "execute", "command", "bash", "terminal", "npm ", "pip ", "yarn "}
var debugKeywords = []string{"debug", "check", "verify", "inspect", "console.log", "print", "log"}
var architectureKeywords = []string{"approach", "strategy", "pattern", "architecture", "design", "structure"}
var fileKeywords = []string{"file", "directory", "folder", "path", "create", "delete", "move"}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Category classifies a solution attempt's content by a fixed priority
// ordering: code block/keywords > config keywords > command keywords >
// debug keywords > architecture keywords > file keywords > general.
func Category(content string) types.SolutionCategory {
	lower := strings.ToLower(content)

	if codeBlockRe.MatchString(content) || containsAny(lower, codeFixKeywords) {
		return types.SolutionCodeFix
	}
	if containsAny(lower, configKeywords) {
		return types.SolutionConfigChange
	}
	if containsAny(lower, commandKeywords) {
		return types.SolutionCommandSolution
	}
	if containsAny(lower, debugKeywords) {
		return types.SolutionDebuggingHelp
	}
	if containsAny(lower, architectureKeywords) {
		return types.SolutionApproachSuggestion
	}
	if containsAny(lower, fileKeywords) {
		return types.SolutionFileOperation
	}
	return types.SolutionGeneralGuidance
}
