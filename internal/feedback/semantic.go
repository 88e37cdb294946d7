package feedback

import (
	"context"
	"math"
	"sync"
	"time"

	"turnindex/internal/embedding"
	"turnindex/internal/types"
	"turnindex/pkg/cache"
)

// prototype sentences for each sentiment class, encoded once at construction
// and never changed thereafter. These are curated example utterances, not a
// corpus sample — the analyzer needs only their mean direction in embedding
// space.
var prototypeSentences = map[types.FeedbackSentiment][]string{
	types.SentimentPositive: {
		"that worked perfectly, thank you",
		"the fix solved the problem",
		"great, it's working now",
		"exactly what I needed, thanks",
		"tests are passing now",
	},
	types.SentimentNegative: {
		"that did not work at all",
		"still broken, same error as before",
		"this made things worse",
		"the bug is still there",
		"that's not right, it failed again",
	},
	types.SentimentPartial: {
		"it's partially working now",
		"some progress but still issues remain",
		"better, but not fully fixed",
		"works for some cases but not all",
		"almost there, one more thing to fix",
	},
}

// SemanticResult is C5's output for a single feedback turn.
type SemanticResult struct {
	Sentiment          types.FeedbackSentiment
	Confidence         float64
	PositiveSimilarity float64
	NegativeSimilarity float64
	PartialSimilarity  float64
	FallbackUsed       bool
}

// SemanticAnalyzer computes cosine similarity between a feedback turn's
// embedding and the mean embedding of each prototype class.
type SemanticAnalyzer struct {
	gateway *embedding.Gateway

	once       sync.Once
	initErr    error
	prototypes map[types.FeedbackSentiment][]float32

	inputCache *cache.LRU[string, []float32]
}

// NewSemanticAnalyzer builds a SemanticAnalyzer over gateway. Prototype
// vectors are computed lazily on first use rather than at construction, so
// that constructing one is cheap even if the gateway is never exercised.
func NewSemanticAnalyzer(gw *embedding.Gateway) *SemanticAnalyzer {
	return &SemanticAnalyzer{
		gateway: gw,
		inputCache: cache.New[string, []float32](&cache.Config{
			MaxEntries: 2000,
			TTL:        10 * time.Minute,
		}),
	}
}

func (a *SemanticAnalyzer) ensurePrototypes(ctx context.Context) error {
	a.once.Do(func() {
		prototypes := make(map[types.FeedbackSentiment][]float32, len(prototypeSentences))
		for sentiment, sentences := range prototypeSentences {
			vecs, err := a.gateway.EncodeBatch(ctx, sentences)
			if err != nil {
				a.initErr = err
				return
			}
			prototypes[sentiment] = meanVector(vecs)
		}
		a.prototypes = prototypes
	})
	return a.initErr
}

// Analyze computes the semantic sentiment for feedbackContent. When the
// gateway is unavailable (construction failed, encoding errors), it returns
// neutral with confidence 0 and FallbackUsed set (spec.md §4.5).
func (a *SemanticAnalyzer) Analyze(ctx context.Context, feedbackContent string) SemanticResult {
	if err := a.ensurePrototypes(ctx); err != nil {
		return SemanticResult{Sentiment: types.SentimentNeutral, FallbackUsed: true}
	}

	vec, ok := a.inputCache.Get(feedbackContent)
	if !ok {
		var err error
		vec, err = a.gateway.Encode(ctx, feedbackContent)
		if err != nil {
			return SemanticResult{Sentiment: types.SentimentNeutral, FallbackUsed: true}
		}
		a.inputCache.Set(feedbackContent, vec)
	}

	posSim := cosine(vec, a.prototypes[types.SentimentPositive])
	negSim := cosine(vec, a.prototypes[types.SentimentNegative])
	partSim := cosine(vec, a.prototypes[types.SentimentPartial])

	best := types.SentimentPositive
	bestSim := posSim
	runnerUp := negSim
	if negSim > bestSim {
		best, bestSim, runnerUp = types.SentimentNegative, negSim, posSim
	}
	if partSim > bestSim {
		runnerUp = bestSim
		best, bestSim = types.SentimentPartial, partSim
	} else if partSim > runnerUp {
		runnerUp = partSim
	}

	confidence := types.Clamp(bestSim-runnerUp, 0, 1)

	return SemanticResult{
		Sentiment:          best,
		Confidence:         confidence,
		PositiveSimilarity: posSim,
		NegativeSimilarity: negSim,
		PartialSimilarity:  partSim,
	}
}

func meanVector(vecs [][]float32) []float32 {
	if len(vecs) == 0 {
		return nil
	}
	dim := len(vecs[0])
	mean := make([]float32, dim)
	for _, v := range vecs {
		for i, x := range v {
			mean[i] += x
		}
	}
	n := float32(len(vecs))
	for i := range mean {
		mean[i] /= n
	}
	return mean
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
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
