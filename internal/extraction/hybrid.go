// Package extraction implements the hybrid extractor (C8): a regex NER pass
// plus a tool/framework vocabulary matcher, combined with cosine similarity
// against three pre-computed pattern-template centroids to produce a single
// hybrid_confidence score for a turn.
package extraction

import (
	"context"
	"math"
	"sync"

	"turnindex/internal/quality"
)

const minContentLength = 20

// patternTemplates are curated example sentences for each of the three
// patterns C8 scores against. Encoded once at construction into centroid
// vectors, mirroring the prototype-centroid approach C5 uses for sentiment.
var patternTemplates = map[string][]string{
	"solution": {
		"here is the fix for the bug",
		"I implemented the feature by editing the file",
		"added the missing import and the function now works",
		"refactored the function to resolve the issue",
	},
	"feedback": {
		"that worked, thank you",
		"still not working, same error",
		"it's partially fixed now",
		"confirmed, tests are passing",
	},
	"error": {
		"traceback: exception raised during execution",
		"build failed with a compilation error",
		"runtime error: null pointer dereference",
		"the process crashed with a segmentation fault",
	},
}

// Result is C8's output for a single turn.
type Result struct {
	Entities                []Entity
	Tools                   []string
	Frameworks              []string
	FileReferences          []string
	SuccessMarkers          []string
	SolutionSimilarityScore float64
	FeedbackSimilarityScore float64
	ErrorSimilarityScore    float64
	BestPatternMatch        string
	HybridConfidence        float64
}

// Gateway is the subset of internal/embedding.Gateway the extractor needs,
// kept as an interface so tests can stub it without a real Gateway.
type Gateway interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Extractor runs the hybrid extraction pass for a single turn.
type Extractor struct {
	gateway Gateway

	once      sync.Once
	initErr   error
	centroids map[string][]float32
}

// NewExtractor builds an Extractor over gateway. Centroid vectors are
// computed lazily on first Extract call.
func NewExtractor(gw Gateway) *Extractor {
	return &Extractor{gateway: gw}
}

func (e *Extractor) ensureCentroids(ctx context.Context) error {
	e.once.Do(func() {
		centroids := make(map[string][]float32, len(patternTemplates))
		for pattern, sentences := range patternTemplates {
			vecs, err := e.gateway.EncodeBatch(ctx, sentences)
			if err != nil {
				e.initErr = err
				return
			}
			centroids[pattern] = meanVector(vecs)
		}
		e.centroids = centroids
	})
	return e.initErr
}

// Extract runs the hybrid extraction pass over content, per spec.md §4.8.
// Content shorter than 20 characters returns an empty, all-zero result.
func (e *Extractor) Extract(ctx context.Context, content string) Result {
	if len([]rune(content)) < minContentLength {
		return Result{}
	}

	entities := extractEntities(content)
	tools := extractTools(content)
	frameworks := extractFrameworks(content)
	fileRefs := extractFileReferences(content)
	markers := quality.MatchedSuccessMarkers(content)

	result := Result{
		Entities:       entities,
		Tools:          tools,
		Frameworks:     frameworks,
		FileReferences: fileRefs,
		SuccessMarkers: markers,
	}

	if err := e.ensureCentroids(ctx); err != nil {
		return result
	}

	vec, err := e.gateway.Encode(ctx, content)
	if err != nil {
		return result
	}

	result.SolutionSimilarityScore = cosine(vec, e.centroids["solution"])
	result.FeedbackSimilarityScore = cosine(vec, e.centroids["feedback"])
	result.ErrorSimilarityScore = cosine(vec, e.centroids["error"])

	best, bestSim := bestOf(result)
	result.BestPatternMatch = best

	entityDensity := density(len(entities), 5)
	toolDensity := density(len(tools), 3)
	result.HybridConfidence = (entityDensity + bestSim + toolDensity) / 3.0

	return result
}

func bestOf(r Result) (string, float64) {
	best := "solution"
	bestSim := r.SolutionSimilarityScore
	if r.FeedbackSimilarityScore > bestSim {
		best, bestSim = "feedback", r.FeedbackSimilarityScore
	}
	if r.ErrorSimilarityScore > bestSim {
		best, bestSim = "error", r.ErrorSimilarityScore
	}
	return best, bestSim
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
