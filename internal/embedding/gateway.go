package embedding

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"
)

// Gateway is the process-wide embedding encoder (C1). Exactly one instance
// exists for the life of the process (spec.md §4.1, invariant P8); every
// analyzer that needs vectors holds a reference to the same Gateway rather
// than constructing its own encoder.
//
// First initialization is allowed one network round-trip (an "update
// check"); whether that check succeeds or fails, the gateway permanently
// latches into the mode it resolved to (online remote encoder, or offline
// local encoder) for the remainder of the process.
type Gateway struct {
	mu      sync.RWMutex
	encoder Encoder
	offline bool

	breaker *gobreaker.CircuitBreaker
	group   singleflight.Group

	updateCheckAttempts int
	stats               Stats
}

// Stats exposes counters relevant to P8 (encoder reuse) and to health
// reporting.
type Stats struct {
	Constructions       int
	UpdateCheckAttempts int
	EncodeCalls         int64
	EncodeErrors        int64
}

var (
	processGateway     *Gateway
	processGatewayOnce sync.Once
)

// Get returns the process-wide Gateway, constructing it on first call with
// cfg. Subsequent calls ignore cfg and return the already-constructed
// instance — this is the "encoder reuse discipline" the spec requires
// (§4.1 rationale).
func Get(cfg Config) *Gateway {
	processGatewayOnce.Do(func() {
		processGateway = newGateway(cfg)
	})
	return processGateway
}

// ResetForTest tears down the process singleton so tests can construct a
// fresh Gateway under a different configuration. Production code must never
// call this.
func ResetForTest() {
	processGateway = nil
	processGatewayOnce = sync.Once{}
}

func newGateway(cfg Config) *Gateway {
	g := &Gateway{
		stats: Stats{Constructions: 1},
	}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding-update-check",
		MaxRequests: 1,
		Interval:    0, // never reset automatically; this is a one-shot latch
		Timeout:     365 * 24 * time.Hour,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})

	g.encoder, g.offline = g.resolveEncoder(cfg)
	return g
}

// resolveEncoder performs the one-time update check (when configured and
// when the provider is remote) and returns the encoder to use plus whether
// the gateway is now in offline mode.
func (g *Gateway) resolveEncoder(cfg Config) (Encoder, bool) {
	if cfg.Provider != "http" || cfg.Endpoint == "" {
		log.Printf("[embedding] provider=%s: using local hash encoder (offline)", cfg.Provider)
		return wrapCached(NewHashEncoder(dimensionFor(cfg)), cfg), true
	}

	dim := dimensionFor(cfg)
	httpEnc := NewHTTPEncoder(cfg.Endpoint, cfg.APIKey, cfg.Model, dim, time.Duration(cfg.Timeout)*time.Millisecond)

	if !cfg.AllowUpdateCheck {
		log.Printf("[embedding] update check disabled: using remote encoder without a reachability probe")
		return wrapCached(httpEnc, cfg), false
	}

	g.updateCheckAttempts++
	_, err := g.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, probeErr := httpEnc.Encode(ctx, "connectivity probe")
		return nil, probeErr
	})

	if err != nil {
		log.Printf("[embedding] update check failed (%v): falling back to local hash encoder, entering offline mode permanently", err)
		return wrapCached(NewHashEncoder(dim), cfg), true
	}

	log.Printf("[embedding] update check succeeded: using remote encoder %s", cfg.Model)
	return wrapCached(httpEnc, cfg), false
}

func dimensionFor(cfg Config) int {
	if cfg.Provider == "hash" {
		return 384
	}
	return 1024
}

func wrapCached(enc Encoder, cfg Config) Encoder {
	if !cfg.CacheEnabled {
		return enc
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = 10000
	}
	return NewCachedEncoder(enc, size)
}

// Offline reports whether the gateway is permanently running without a
// remote provider (spec.md §7 kind 3).
func (g *Gateway) Offline() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.offline
}

// Dimension returns D for the active encoder.
func (g *Gateway) Dimension() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.encoder.Dimension()
}

// Encode generates an embedding for a single text, collapsing concurrent
// identical in-flight requests via singleflight.
func (g *Gateway) Encode(ctx context.Context, text string) ([]float32, error) {
	g.mu.RLock()
	enc := g.encoder
	g.mu.RUnlock()

	v, err, _ := g.group.Do(text, func() (interface{}, error) {
		return enc.Encode(ctx, text)
	})

	g.recordCall(err)
	if err != nil {
		return nil, fmt.Errorf("embedding gateway: %w", err)
	}
	return v.([]float32), nil
}

// EncodeBatch generates embeddings for multiple texts.
func (g *Gateway) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	g.mu.RLock()
	enc := g.encoder
	g.mu.RUnlock()

	vecs, err := enc.EncodeBatch(ctx, texts)
	g.recordCall(err)
	if err != nil {
		return nil, fmt.Errorf("embedding gateway: %w", err)
	}
	return vecs, nil
}

func (g *Gateway) recordCall(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stats.EncodeCalls++
	if err != nil {
		g.stats.EncodeErrors++
	}
}

// Stats returns a snapshot of gateway statistics, including the
// update-check attempt count referenced by invariant P8.
func (g *Gateway) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := g.stats
	s.UpdateCheckAttempts = g.updateCheckAttempts
	return s
}
