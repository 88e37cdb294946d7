// Package ingest implements the two producer contracts spec.md §6.1/§6.2
// describe: the bulk transcript-file scanner and the hook normaliser. Both
// are parsing-only — neither runs any analyzer; they produce types.RawTurn
// values for internal/enrichment to enrich.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"turnindex/internal/types"
)

// ScanStats tallies how a ScanFile call went: spec.md §6.1 requires a
// counter increment per skipped (unparseable) line.
type ScanStats struct {
	LinesRead    int
	LinesSkipped int
	TurnsParsed  int
}

// rawEntry mirrors one line of a Claude transcript JSONL file: a UUID/ID,
// timestamp, session id, working directory, and a nested message object
// whose content may be a plain string or a list of typed parts.
type rawEntry struct {
	UUID      string          `json:"uuid"`
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	SessionID string          `json:"sessionId"`
	Cwd       string          `json:"cwd"`
	Message   *rawMessage     `json:"message"`
	Content   json.RawMessage `json:"content"`
	Type      string          `json:"type"`
}

type rawMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ScanFile streams sourceFile line by line, parsing each into a RawTurn and
// invoking emit with its zero-based sequence position. Parse failures are
// counted, not returned as errors: one malformed line never aborts the
// scan (spec.md §6.1).
func ScanFile(r io.Reader, sourceFile string, emit func(*types.RawTurn)) ScanStats {
	var stats ScanStats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	position := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		stats.LinesRead++
		if line == "" {
			continue
		}

		var entry rawEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			stats.LinesSkipped++
			continue
		}

		raw, ok := parseEntry(entry, sourceFile, position)
		if !ok {
			stats.LinesSkipped++
			continue
		}

		emit(raw)
		stats.TurnsParsed++
		position++
	}

	return stats
}

func parseEntry(entry rawEntry, sourceFile string, position int) (*types.RawTurn, bool) {
	id := entry.UUID
	if id == "" {
		id = entry.ID
	}

	var role types.Role
	var content string
	if entry.Message != nil {
		role = parseRole(entry.Message.Role)
		content = extractContent(entry.Message.Content)
	} else {
		role = parseRole(entry.Type)
		content = extractContent(entry.Content)
	}

	if id == "" {
		// No upstream id at all: spec.md §3.1 requires a deterministic
		// fallback rather than dropping the line. sourceFile+position is
		// stable across repeated scans of the same file, so the derived id
		// is reproducible instead of a fresh random UUID each run.
		id = bulkPlaceholderID(sourceFile, position)
	}

	projectDisplayName := "unknown"
	if entry.Cwd != "" {
		projectDisplayName = filepath.Base(entry.Cwd)
	}

	raw := &types.RawTurn{
		UpstreamID:         id,
		Content:            content,
		Role:               role,
		ProjectKey:         NormalizeProjectKey(entry.Cwd),
		ProjectDisplayName: projectDisplayName,
		SessionKey:         entry.SessionID,
		SourceFile:         sourceFile,
		SequencePosition:   position,
		TimestampISO:       entry.Timestamp,
	}
	if unix, ok := parseISOToUnix(entry.Timestamp); ok {
		raw.TimestampUnix = unix
		raw.HasTimestamp = true
	}
	return raw, true
}

// extractContent normalises a message's content field: a bare JSON string
// passes through verbatim; a list of parts concatenates every string part
// and every {"type":"text", "text":...} part, stringifying anything else
// (spec.md §6.1).
func extractContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return string(raw)
	}

	var sb strings.Builder
	for i, part := range parts {
		if i > 0 {
			sb.WriteString(" ")
		}
		var s string
		if err := json.Unmarshal(part, &s); err == nil {
			sb.WriteString(s)
			continue
		}
		var p contentPart
		if err := json.Unmarshal(part, &p); err == nil && p.Type == "text" {
			sb.WriteString(p.Text)
			continue
		}
		sb.Write(part)
	}
	return strings.TrimSpace(sb.String())
}

func parseRole(s string) types.Role {
	switch s {
	case string(types.RoleUser):
		return types.RoleUser
	case string(types.RoleAssistant):
		return types.RoleAssistant
	default:
		return types.RoleUnknown
	}
}

// parseISOToUnix converts an RFC3339-ish timestamp to Unix seconds. Absence
// or malformed input is not an error (spec.md §3.1: "either may be absent").
func parseISOToUnix(iso string) (float64, bool) {
	if iso == "" {
		return 0, false
	}
	t, err := parseTimeLenient(iso)
	if err != nil {
		return 0, false
	}
	return float64(t.UnixNano()) / 1e9, true
}

// parseTimeLenient accepts the timestamp layouts actually seen in
// transcript files: RFC3339 with or without fractional seconds.
func parseTimeLenient(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// placeholderID is used by the hook path when the caller supplies neither
// a uuid nor an id; it keeps ids unique within a session.
func placeholderID(sessionID string, index int) string {
	return fmt.Sprintf("%s_hook_%s", sessionID, strconv.Itoa(index))
}

// bulkTranscriptNamespace scopes the deterministic UUIDs bulkPlaceholderID
// derives, so they can never collide with a UUID from another namespace.
var bulkTranscriptNamespace = uuid.MustParse("6f6d6e0e-23ff-4b74-9cdf-0f5a7c9e7f9e")

// bulkPlaceholderID derives a deterministic id for a bulk transcript line
// that arrived with neither a uuid nor an id (spec.md §3.1). sourceFile and
// position together are stable across repeated scans of the same file, so
// re-scanning never mints a new id for the same line.
func bulkPlaceholderID(sourceFile string, position int) string {
	name := sourceFile + "|" + strconv.Itoa(position)
	return uuid.NewSHA1(bulkTranscriptNamespace, []byte(name)).String()
}

// NormalizeProjectKey derives the stable project_key stored alongside a
// turn from a raw working directory path: lower-cased with path separators
// collapsed to underscores, so the same project always maps to the same
// key regardless of the separator style of the machine that produced it.
func NormalizeProjectKey(cwd string) string {
	if cwd == "" {
		return ""
	}
	key := strings.ToLower(cwd)
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.Trim(key, "/")
	key = strings.ReplaceAll(key, "/", "_")
	return key
}
