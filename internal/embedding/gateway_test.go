package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewaySingletonConstructsOnce(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	cfg := Config{Provider: "hash"}

	g1 := Get(cfg)
	g2 := Get(Config{Provider: "http", Endpoint: "https://example.invalid"})

	assert.Same(t, g1, g2, "Get must return the same instance regardless of later config")
	assert.Equal(t, 1, g1.Stats().Constructions)
}

func TestGatewayFallsBackToOfflineWithoutEndpoint(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	g := Get(Config{Provider: "http", Endpoint: ""})
	assert.True(t, g.Offline())
}

func TestGatewayEncodeProducesNormalizedVector(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	g := Get(Config{Provider: "hash"})
	v, err := g.Encode(context.Background(), "go routines and channels")
	require.NoError(t, err)
	assert.Equal(t, g.Dimension(), len(v))

	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sumSq, 1e-5)
}

func TestGatewayUpdateCheckAttemptedAtMostOnce(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	g := Get(Config{Provider: "http", Endpoint: "https://example.invalid/embed", AllowUpdateCheck: true})
	stats := g.Stats()
	assert.LessOrEqual(t, stats.UpdateCheckAttempts, 1)
	assert.True(t, g.Offline(), "unreachable endpoint must latch offline mode")
}

func TestGatewayEncodeBatchSameLengthAsInput(t *testing.T) {
	ResetForTest()
	defer ResetForTest()

	g := Get(Config{Provider: "hash"})
	vecs, err := g.EncodeBatch(context.Background(), []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)
}
