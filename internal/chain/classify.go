package chain

import (
	"strings"

	"turnindex/internal/types"
)

// ConversationType is a session-level summary label, supplementing the
// per-turn adjacency fields for analytics consumers (spec.md's overview
// names "analytics tools" as a downstream consumer of the index).
type ConversationType string

const (
	ConversationSolutionFocused   ConversationType = "solution_focused"
	ConversationIterativeDebug    ConversationType = "iterative_debugging"
	ConversationExtendedDiscuss   ConversationType = "extended_discussion"
	ConversationTroubleshooting   ConversationType = "troubleshooting"
	ConversationGeneralAssistance ConversationType = "general_assistance"
)

// ClassifyConversationType labels a whole session's turns by its dominant
// shape: solution-attempt-heavy, feedback-heavy (iterative debugging), long
// and unstructured, troubleshooting-flavored, or general assistance. Reads
// is_solution_attempt (set by C2) and related_solution_id (set by BackFill),
// so run it after BackFill.
func ClassifyConversationType(turns []*types.Turn) ConversationType {
	if len(turns) == 0 {
		return ConversationGeneralAssistance
	}

	solutionAttempts := 0
	feedbackMessages := 0
	for _, t := range turns {
		if t.IsSolutionAttempt {
			solutionAttempts++
		}
		if t.RelatedSolutionID != "" {
			feedbackMessages++
		}
	}

	total := float64(len(turns))
	switch {
	case float64(solutionAttempts) >= total*0.6:
		return ConversationSolutionFocused
	case solutionAttempts > 0 && float64(feedbackMessages) >= float64(solutionAttempts)*0.8:
		return ConversationIterativeDebug
	case len(turns) > 20:
		return ConversationExtendedDiscuss
	case anyMentionsErrorOrBug(turns):
		return ConversationTroubleshooting
	default:
		return ConversationGeneralAssistance
	}
}

func anyMentionsErrorOrBug(turns []*types.Turn) bool {
	for _, t := range turns {
		lower := strings.ToLower(t.Content)
		if strings.Contains(lower, "error") || strings.Contains(lower, "bug") {
			return true
		}
	}
	return false
}
