package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnindex/internal/types"
)

func TestScanFileParsesUUIDAndMessageContent(t *testing.T) {
	input := `{"uuid":"t1","sessionId":"s1","cwd":"/home/user/my-project","timestamp":"2025-08-01T02:00:00Z","message":{"role":"assistant","content":"fixed the bug"}}
`
	var got []*types.RawTurn
	stats := ScanFile(strings.NewReader(input), "session.jsonl", func(r *types.RawTurn) {
		got = append(got, r)
	})

	require.Equal(t, 1, stats.TurnsParsed)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].UpstreamID)
	assert.Equal(t, types.RoleAssistant, got[0].Role)
	assert.Equal(t, "fixed the bug", got[0].Content)
	assert.Equal(t, "home_user_my-project", got[0].ProjectKey)
	assert.Equal(t, "my-project", got[0].ProjectDisplayName)
	assert.Equal(t, "s1", got[0].SessionKey)
	assert.True(t, got[0].HasTimestamp)
}

func TestScanFileConcatenatesStructuredContentParts(t *testing.T) {
	input := `{"id":"t2","message":{"role":"user","content":[{"type":"text","text":"part one"},"part two",{"type":"tool_use","id":"x"}]}}
`
	var got []*types.RawTurn
	ScanFile(strings.NewReader(input), "f.jsonl", func(r *types.RawTurn) {
		got = append(got, r)
	})

	require.Len(t, got, 1)
	assert.Contains(t, got[0].Content, "part one")
	assert.Contains(t, got[0].Content, "part two")
}

func TestScanFileSkipsUnparseableLines(t *testing.T) {
	input := "not json at all\n{\"uuid\":\"good\",\"message\":{\"role\":\"user\",\"content\":\"hi\"}}\n"
	var got []*types.RawTurn
	stats := ScanFile(strings.NewReader(input), "f.jsonl", func(r *types.RawTurn) {
		got = append(got, r)
	})

	assert.Equal(t, 1, stats.LinesSkipped)
	assert.Equal(t, 1, stats.TurnsParsed)
	require.Len(t, got, 1)
	assert.Equal(t, "good", got[0].UpstreamID)
}

func TestScanFileAssignsDeterministicFallbackIDWhenAbsent(t *testing.T) {
	input := `{"message":{"role":"user","content":"hi"}}` + "\n"

	scan := func() *types.RawTurn {
		var got []*types.RawTurn
		stats := ScanFile(strings.NewReader(input), "f.jsonl", func(r *types.RawTurn) {
			got = append(got, r)
		})
		assert.Equal(t, 0, stats.LinesSkipped)
		require.Len(t, got, 1)
		return got[0]
	}

	first := scan()
	second := scan()
	assert.NotEmpty(t, first.UpstreamID)
	assert.Equal(t, first.UpstreamID, second.UpstreamID)
}

func TestScanFileAssignsSequentialPositions(t *testing.T) {
	input := `{"uuid":"a","message":{"role":"user","content":"1"}}
{"uuid":"b","message":{"role":"assistant","content":"2"}}
`
	var got []*types.RawTurn
	ScanFile(strings.NewReader(input), "f.jsonl", func(r *types.RawTurn) {
		got = append(got, r)
	})

	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].SequencePosition)
	assert.Equal(t, 1, got[1].SequencePosition)
}

func TestNormalizeHookBuildsRawTurn(t *testing.T) {
	raw := NormalizeHook(HookInput{
		Type:      "user",
		Content:   "that worked",
		Timestamp: "2025-08-01T02:00:00Z",
		SessionID: "sess1",
		Cwd:       "/home/user/idaho-adventures",
	}, 3)

	assert.Equal(t, types.RoleUser, raw.Role)
	assert.Equal(t, "that worked", raw.Content)
	assert.Equal(t, "idaho-adventures", raw.ProjectDisplayName)
	assert.Equal(t, 3, raw.SequencePosition)
	assert.True(t, raw.HasTimestamp)
	assert.Contains(t, raw.UpstreamID, "sess1")
}

func TestNormalizeProjectKeyCollapsesSeparatorsAndCase(t *testing.T) {
	assert.Equal(t, "home_user_my-project", NormalizeProjectKey("/Home/User/My-Project"))
	assert.Equal(t, "", NormalizeProjectKey(""))
	assert.Equal(t, "c:_users_dev_app", NormalizeProjectKey(`C:\Users\dev\app`))
}
