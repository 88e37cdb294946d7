package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"turnindex/internal/types"
)

func TestTurnToEntryAndBackRoundTrips(t *testing.T) {
	original := &types.Turn{
		ID:                   "t1",
		Content:              "fixed the build",
		ContentHash:          "abc123",
		Role:                 types.RoleAssistant,
		ProjectKey:           "proj-a",
		SequencePosition:     3,
		TimestampUnix:        1_700_000_000,
		HasCode:              true,
		ToolsUsed:            []string{"Edit", "Bash"},
		ContentLength:        16,
		Topics:               map[string]float64{"debugging": 1.5},
		PrimaryTopic:         "debugging",
		TopicConfidence:      1.5,
		SolutionQualityScore: 2.1,
		IsSolutionAttempt:    true,
		SolutionCategory:     types.SolutionCodeFix,
		IsValidatedSolution:  true,
		ValidationStrength:   0.6,
		OutcomeCertainty:     0.8,
		TechnicalTools:       []string{"go"},
		HybridConfidence:     0.42,
	}

	entry := TurnToEntry(original)
	assert.Equal(t, "t1", entry.ID)
	assert.Equal(t, "fixed the build", entry.Content)
	assert.Equal(t, "proj-a", entry.Metadata["project_key"])

	record := Record{ID: entry.ID, Content: entry.Content, Metadata: entry.Metadata}
	restored := RecordToTurn(record)

	assert.Equal(t, original.ID, restored.ID)
	assert.Equal(t, original.Role, restored.Role)
	assert.Equal(t, original.SequencePosition, restored.SequencePosition)
	assert.Equal(t, original.ToolsUsed, restored.ToolsUsed)
	assert.Equal(t, original.Topics, restored.Topics)
	assert.Equal(t, original.SolutionQualityScore, restored.SolutionQualityScore)
	assert.Equal(t, original.IsValidatedSolution, restored.IsValidatedSolution)
	assert.Equal(t, original.ValidationStrength, restored.ValidationStrength)
	assert.Equal(t, original.TechnicalTools, restored.TechnicalTools)
	assert.Equal(t, original.HybridConfidence, restored.HybridConfidence)
}

func TestRecordToTurnHandlesMissingFields(t *testing.T) {
	restored := RecordToTurn(Record{ID: "t2", Content: "x", Metadata: map[string]string{}})
	assert.Equal(t, "t2", restored.ID)
	assert.Equal(t, types.Role(""), restored.Role)
	assert.Nil(t, restored.ToolsUsed)
	assert.Equal(t, 0.0, restored.SolutionQualityScore)
}
