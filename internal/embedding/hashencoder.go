package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashEncoder is the always-available local encoder: a deterministic
// feature-hashed bag-of-words embedding. It requires no network access and
// is what the gateway falls back to whenever a remote provider is not
// configured or its one-time update check fails (spec.md §4.1, §7 kind 3).
//
// Unlike a pure whole-string hash (which produces near-orthogonal vectors
// for any two different strings and so carries no semantic signal), this
// hashes individual tokens into a shared feature space so that texts sharing
// vocabulary land closer together under cosine similarity — enough signal
// for the prototype-similarity analyzers (C5, C8) to function without a
// hosted embedding API.
type HashEncoder struct {
	dimension int
}

// NewHashEncoder creates a HashEncoder with the given dimensionality.
func NewHashEncoder(dimension int) *HashEncoder {
	if dimension <= 0 {
		dimension = 384
	}
	return &HashEncoder{dimension: dimension}
}

func (h *HashEncoder) Dimension() int { return h.dimension }
func (h *HashEncoder) Model() string  { return "local-hash" }

// Encode implements Encoder.
func (h *HashEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return h.embed(text), nil
}

// EncodeBatch implements Encoder.
func (h *HashEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *HashEncoder) embed(text string) []float32 {
	vec := make([]float32, h.dimension)

	tokens := tokenize(text)
	for _, tok := range tokens {
		idx, sign := hashToken(tok, h.dimension)
		vec[idx] += sign
	}

	normalize(vec)
	return vec
}

func tokenize(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

func hashToken(token string, dimension int) (int, float32) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	sum := h.Sum32()

	idx := int(sum) % dimension
	if idx < 0 {
		idx += dimension
	}

	// Use the next bit to decide sign, reducing systematic collision bias
	// (standard feature-hashing practice).
	if sum&0x8000_0000 != 0 {
		return idx, -1
	}
	return idx, 1
}

func normalize(vec []float32) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v * v)
	}
	if sumSquares == 0 {
		return
	}
	magnitude := float32(math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] /= magnitude
	}
}
