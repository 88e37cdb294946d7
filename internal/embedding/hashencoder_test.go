package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashEncoderSharedVocabularyIsCloserThanUnrelated(t *testing.T) {
	enc := NewHashEncoder(384)
	ctx := context.Background()

	a, err := enc.Encode(ctx, "the build failed with a compile error in the linker")
	require.NoError(t, err)
	b, err := enc.Encode(ctx, "build error compile linker failure")
	require.NoError(t, err)
	c, err := enc.Encode(ctx, "the cat sat quietly on the warm windowsill")
	require.NoError(t, err)

	related := cosine(a, b)
	unrelated := cosine(a, c)

	assert.Greater(t, related, unrelated, "texts sharing vocabulary should be more similar than unrelated texts")
}

func TestHashEncoderDeterministic(t *testing.T) {
	enc := NewHashEncoder(128)
	ctx := context.Background()

	v1, _ := enc.Encode(ctx, "deterministic output")
	v2, _ := enc.Encode(ctx, "deterministic output")
	assert.Equal(t, v1, v2)
}

func TestHashEncoderEmptyTextYieldsZeroVector(t *testing.T) {
	enc := NewHashEncoder(64)
	v, err := enc.Encode(context.Background(), "")
	require.NoError(t, err)
	for _, x := range v {
		assert.Equal(t, float32(0), x)
	}
}
