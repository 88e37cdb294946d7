// Package embedding implements the shared embedding model gateway (C1):
// a process-wide, lazily-initialized text→vector encoder reused by every
// downstream analyzer (internal/feedback, internal/extraction,
// internal/index, internal/query).
package embedding

import "context"

// Encoder generates vector embeddings from text. Implementations must be
// safe for concurrent use.
type Encoder interface {
	// Encode generates the embedding for a single text.
	Encode(ctx context.Context, text string) ([]float32, error)

	// EncodeBatch generates embeddings for multiple texts in one call.
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns D, the fixed embedding dimensionality (spec.md §3.3
	// invariant 6).
	Dimension() int

	// Model returns the model identifier.
	Model() string
}

// Config configures the embedding gateway.
type Config struct {
	Provider string // "hash" or "http"
	Model    string
	APIKey   string
	Endpoint string

	AllowUpdateCheck bool

	CacheEnabled bool
	CacheSize    int

	Timeout int64 // milliseconds
}
