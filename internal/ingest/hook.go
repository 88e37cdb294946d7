package ingest

import (
	"path/filepath"

	"turnindex/internal/types"
)

// HookInput is what a live event hook delivers (spec.md §6.2): a role tag
// under "type", the turn's content, an optional timestamp, and ambient
// session/cwd context supplied by the calling hook rather than carried in
// the payload itself.
type HookInput struct {
	Type      string
	Content   string
	Timestamp string
	SessionID string
	Cwd       string
}

// NormalizeHook turns a HookInput into the same RawTurn shape ScanFile
// produces, so C2 routes hook turns through the identical path as bulk
// turns (spec.md §6.2). index is the hook turn's position within its
// session, used both for sequence_position and, when no upstream id is
// present, to keep a generated id unique.
func NormalizeHook(in HookInput, index int) *types.RawTurn {
	role := parseRole(in.Type)

	content := in.Content
	projectDisplayName := "unknown"
	if in.Cwd != "" {
		projectDisplayName = filepath.Base(in.Cwd)
	}

	raw := &types.RawTurn{
		UpstreamID:         placeholderID(in.SessionID, index),
		Content:            content,
		Role:               role,
		ProjectKey:         NormalizeProjectKey(in.Cwd),
		ProjectDisplayName: projectDisplayName,
		SessionKey:         in.SessionID,
		SourceFile:         "",
		SequencePosition:   index,
		TimestampISO:       in.Timestamp,
	}
	if unix, ok := parseISOToUnix(in.Timestamp); ok {
		raw.TimestampUnix = unix
		raw.HasTimestamp = true
	}
	return raw
}
