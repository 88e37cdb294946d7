package index

import (
	"encoding/json"
	"strconv"

	"turnindex/internal/types"
)

// TurnToEntry flattens an enriched Turn into the scalar-only metadata map
// the vector store requires (spec.md §6.3): compound fields (topic map,
// tool/framework lists) are serialised as JSON strings, everything else as
// its string form.
func TurnToEntry(t *types.Turn) Entry {
	m := map[string]string{
		"id":                    t.ID,
		"content_hash":          t.ContentHash,
		"role":                  string(t.Role),
		"project_key":           t.ProjectKey,
		"project_display_name":  t.ProjectDisplayName,
		"session_key":           t.SessionKey,
		"source_file":           t.SourceFile,
		"sequence_position":     strconv.Itoa(t.SequencePosition),
		"timestamp_iso":         t.TimestampISO,
		"timestamp_unix":        formatFloat(t.TimestampUnix),
		"has_code":              strconv.FormatBool(t.HasCode),
		"tools_used":            marshalStrings(t.ToolsUsed),
		"content_length":        strconv.Itoa(t.ContentLength),

		"topics":           marshalTopics(t.Topics),
		"primary_topic":    t.PrimaryTopic,
		"topic_confidence": formatFloat(t.TopicConfidence),

		"solution_quality_score": formatFloat(t.SolutionQualityScore),
		"has_success_markers":    strconv.FormatBool(t.HasSuccessMarkers),
		"has_quality_indicators": strconv.FormatBool(t.HasQualityIndicators),
		"is_solution_attempt":    strconv.FormatBool(t.IsSolutionAttempt),
		"solution_category":      string(t.SolutionCategory),

		"previous_turn_id":    t.PreviousTurnID,
		"next_turn_id":        t.NextTurnID,
		"related_solution_id": t.RelatedSolutionID,
		"feedback_turn_id":    t.FeedbackTurnID,

		"feedback_sentiment":    string(t.FeedbackSentiment),
		"validation_strength":   formatFloat(t.ValidationStrength),
		"is_validated_solution": strconv.FormatBool(t.IsValidatedSolution),
		"is_refuted_attempt":    strconv.FormatBool(t.IsRefutedAttempt),
		"outcome_certainty":     formatFloat(t.OutcomeCertainty),

		"troubleshooting_context_score": formatFloat(t.TroubleshootingContextScore),
		"realtime_learning_boost":       formatFloat(t.RealtimeLearningBoost),

		"semantic_sentiment":            string(t.SemanticSentiment),
		"semantic_confidence":           formatFloat(t.SemanticConfidence),
		"positive_similarity":           formatFloat(t.PositiveSimilarity),
		"negative_similarity":           formatFloat(t.NegativeSimilarity),
		"partial_similarity":            formatFloat(t.PartialSimilarity),
		"technical_domain":              string(t.TechnicalDomain),
		"technical_confidence":          formatFloat(t.TechnicalConfidence),
		"complex_outcome_detected":      strconv.FormatBool(t.ComplexOutcomeDetected),
		"pattern_vs_semantic_agreement": formatFloat(t.PatternVsSemanticAgreement),
		"primary_analysis_method":       t.PrimaryAnalysisMethod,
		"requires_manual_review":        strconv.FormatBool(t.RequiresManualReview),
		"best_matching_patterns":        t.BestMatchingPatterns,
		"semantic_analysis_details":     t.SemanticAnalysisDetails,

		"entities":                  t.Entities,
		"technical_tools":           marshalStrings(t.TechnicalTools),
		"framework_mentions":        marshalStrings(t.FrameworkMentions),
		"solution_similarity_score": formatFloat(t.SolutionSimilarityScore),
		"feedback_similarity_score": formatFloat(t.FeedbackSimilarityScore),
		"error_similarity_score":    formatFloat(t.ErrorSimilarityScore),
		"best_pattern_match":        t.BestPatternMatch,
		"hybrid_confidence":         formatFloat(t.HybridConfidence),
	}
	return Entry{ID: t.ID, Content: t.Content, Metadata: m}
}

// RecordToTurn reconstructs a Turn from a stored Record. Per spec.md's
// schema-evolution invariant, a missing or malformed key yields the field's
// zero value rather than an error — callers that need documented non-zero
// defaults apply them afterwards (see internal/maintenance's health report).
func RecordToTurn(r Record) *types.Turn {
	m := r.Metadata
	t := &types.Turn{
		ID:                 r.ID,
		Content:            r.Content,
		ContentHash:        m["content_hash"],
		Role:               types.Role(m["role"]),
		ProjectKey:         m["project_key"],
		ProjectDisplayName: m["project_display_name"],
		SessionKey:         m["session_key"],
		SourceFile:         m["source_file"],
		SequencePosition:   parseInt(m["sequence_position"]),
		TimestampISO:       m["timestamp_iso"],
		TimestampUnix:      parseFloat(m["timestamp_unix"]),
		HasCode:            parseBool(m["has_code"]),
		ToolsUsed:          unmarshalStrings(m["tools_used"]),
		ContentLength:      parseInt(m["content_length"]),

		Topics:          unmarshalTopics(m["topics"]),
		PrimaryTopic:    m["primary_topic"],
		TopicConfidence: parseFloat(m["topic_confidence"]),

		SolutionQualityScore: parseFloat(m["solution_quality_score"]),
		HasSuccessMarkers:    parseBool(m["has_success_markers"]),
		HasQualityIndicators: parseBool(m["has_quality_indicators"]),
		IsSolutionAttempt:    parseBool(m["is_solution_attempt"]),
		SolutionCategory:     types.SolutionCategory(m["solution_category"]),

		PreviousTurnID:    m["previous_turn_id"],
		NextTurnID:        m["next_turn_id"],
		RelatedSolutionID: m["related_solution_id"],
		FeedbackTurnID:    m["feedback_turn_id"],

		FeedbackSentiment:   types.FeedbackSentiment(m["feedback_sentiment"]),
		ValidationStrength:  parseFloat(m["validation_strength"]),
		IsValidatedSolution: parseBool(m["is_validated_solution"]),
		IsRefutedAttempt:    parseBool(m["is_refuted_attempt"]),
		OutcomeCertainty:    parseFloat(m["outcome_certainty"]),

		TroubleshootingContextScore: parseFloat(m["troubleshooting_context_score"]),
		RealtimeLearningBoost:       parseFloat(m["realtime_learning_boost"]),

		SemanticSentiment:          types.FeedbackSentiment(m["semantic_sentiment"]),
		SemanticConfidence:         parseFloat(m["semantic_confidence"]),
		PositiveSimilarity:         parseFloat(m["positive_similarity"]),
		NegativeSimilarity:         parseFloat(m["negative_similarity"]),
		PartialSimilarity:          parseFloat(m["partial_similarity"]),
		TechnicalDomain:            types.TechnicalDomain(m["technical_domain"]),
		TechnicalConfidence:        parseFloat(m["technical_confidence"]),
		ComplexOutcomeDetected:     parseBool(m["complex_outcome_detected"]),
		PatternVsSemanticAgreement: parseFloat(m["pattern_vs_semantic_agreement"]),
		PrimaryAnalysisMethod:      m["primary_analysis_method"],
		RequiresManualReview:       parseBool(m["requires_manual_review"]),
		BestMatchingPatterns:       m["best_matching_patterns"],
		SemanticAnalysisDetails:    m["semantic_analysis_details"],

		Entities:                m["entities"],
		TechnicalTools:          unmarshalStrings(m["technical_tools"]),
		FrameworkMentions:       unmarshalStrings(m["framework_mentions"]),
		SolutionSimilarityScore: parseFloat(m["solution_similarity_score"]),
		FeedbackSimilarityScore: parseFloat(m["feedback_similarity_score"]),
		ErrorSimilarityScore:    parseFloat(m["error_similarity_score"]),
		BestPatternMatch:        m["best_pattern_match"],
		HybridConfidence:        parseFloat(m["hybrid_confidence"]),
	}
	return t
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func parseBool(s string) bool {
	v, _ := strconv.ParseBool(s)
	return v
}

func marshalStrings(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	b, err := json.Marshal(ss)
	if err != nil {
		return ""
	}
	return string(b)
}

func unmarshalStrings(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func marshalTopics(topics map[string]float64) string {
	if len(topics) == 0 {
		return ""
	}
	b, err := json.Marshal(topics)
	if err != nil {
		return ""
	}
	return string(b)
}

func unmarshalTopics(s string) map[string]float64 {
	if s == "" {
		return nil
	}
	var out map[string]float64
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
