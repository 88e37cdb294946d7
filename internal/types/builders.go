package types

import "fmt"

// TurnBuilder provides a fluent API for constructing Turns in tests and in
// the ingestion producers, mirroring the teacher's thought-builder idiom.
type TurnBuilder struct {
	turn *Turn
}

// NewTurn creates a TurnBuilder with sensible defaults.
func NewTurn() *TurnBuilder {
	return &TurnBuilder{
		turn: &Turn{
			Role:                  RoleUnknown,
			RealtimeLearningBoost: DefaultRealtimeLearningBoost,
		},
	}
}

func (b *TurnBuilder) ID(id string) *TurnBuilder {
	b.turn.ID = id
	return b
}

func (b *TurnBuilder) Content(content string) *TurnBuilder {
	b.turn.Content = content
	b.turn.ContentLength = len([]rune(content))
	return b
}

func (b *TurnBuilder) Role(role Role) *TurnBuilder {
	b.turn.Role = InternRole(role)
	return b
}

func (b *TurnBuilder) Project(key, display string) *TurnBuilder {
	b.turn.ProjectKey = key
	b.turn.ProjectDisplayName = display
	return b
}

func (b *TurnBuilder) Session(key string) *TurnBuilder {
	b.turn.SessionKey = key
	return b
}

func (b *TurnBuilder) Source(file string, position int) *TurnBuilder {
	b.turn.SourceFile = file
	b.turn.SequencePosition = position
	return b
}

func (b *TurnBuilder) Timestamp(iso string, unix float64) *TurnBuilder {
	b.turn.TimestampISO = iso
	b.turn.TimestampUnix = unix
	return b
}

func (b *TurnBuilder) Tools(tools ...string) *TurnBuilder {
	interned := make([]string, len(tools))
	for i, t := range tools {
		interned[i] = InternToolName(t)
	}
	b.turn.ToolsUsed = interned
	return b
}

// Build finalizes the Turn, filling ContentHash if it has not been set and
// applying the empty-content placeholder rule (spec.md §3.1, §6.1).
func (b *TurnBuilder) Build() *Turn {
	if b.turn.Content == "" {
		id := b.turn.ID
		if id == "" {
			id = "unknown"
		}
		b.turn.Content = fmt.Sprintf(EmptyContentPlaceholderFormat, id)
		b.turn.ContentLength = len([]rune(b.turn.Content))
	}
	if b.turn.ContentHash == "" {
		b.turn.ContentHash = ContentHash(b.turn.Content)
	}
	return b.turn
}
