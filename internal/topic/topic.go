// Package topic implements the topic classifier (C3's topic half):
// keyword-pattern scoring of turn content against a fixed set of software
// development topics.
package topic

import (
	"regexp"
	"strings"
	"sync"
)

const (
	normalizationFactor = 0.01
	maxScore            = 2.0
	minScore            = 0.1
)

// keywordSets holds the dozen topic categories and their keyword lists,
// ported from the project's original topic-detection lexicon.
var keywordSets = map[string][]string{
	"debugging": {
		"error", "bug", "issue", "problem", "fix", "debug", "troubleshoot",
		"stack trace", "exception", "failed", "failing", "broken", "not working",
		"crash", "hang", "timeout", "stderr", "stdout", "console",
	},
	"performance": {
		"slow", "optimize", "performance", "speed", "latency", "memory",
		"bottleneck", "cache", "profiling", "benchmark", "cpu", "load time",
		"efficiency", "scalability", "throttling", "concurrent",
	},
	"authentication": {
		"auth", "login", "token", "session", "user", "security", "oauth",
		"jwt", "credential", "password", "signin", "signup", "permission",
		"role", "access", "authorize", "authenticate",
	},
	"deployment": {
		"deploy", "production", "live", "release", "build", "ci/cd",
		"pipeline", "docker", "container", "kubernetes", "server", "hosting",
		"environment", "staging", "publish", "launch",
	},
	"testing": {
		"test", "jest", "playwright", "coverage", "validation", "unit test",
		"e2e", "integration test", "mock", "stub", "assertion", "spec",
		"tdd", "bdd", "qa", "quality assurance",
	},
	"styling": {
		"css", "design", "responsive", "layout", "ui", "styling", "theme",
		"component", "frontend", "visual", "appearance", "style", "sass",
		"tailwind", "bootstrap", "flexbox", "grid",
	},
	"database": {
		"sql", "query", "database", "db", "migration", "schema", "table",
		"orm", "postgresql", "mysql", "mongodb", "redis", "supabase",
		"prisma", "sequelize", "transaction", "index",
	},
	"api": {
		"endpoint", "api", "rest", "graphql", "request", "response", "http",
		"fetch", "axios", "webhook", "microservice", "json", "xml",
		"curl", "postman", "swagger", "openapi",
	},
	"state_management": {
		"state", "redux", "context", "store", "mutation", "reactive",
		"zustand", "mobx", "recoil", "global state", "local state",
		"useState", "useEffect", "reducer",
	},
	"configuration": {
		"config", "env", "environment", "settings", "variables", "setup",
		"installation", "package.json", "dockerfile", "yaml", "json config",
		"dotenv", "webpack", "vite", "babel",
	},
	"architecture": {
		"architecture", "design pattern", "structure", "component", "module",
		"class", "function", "method", "inheritance", "composition",
		"mvc", "mvp", "mvvm", "clean architecture",
	},
	"framework": {
		"react", "nextjs", "vue", "angular", "svelte", "express", "fastapi",
		"django", "flask", "spring", "rails", "laravel", "framework",
		"library", "package", "dependency",
	},
}

// topicOrder fixes the tie-break order for PrimaryTopic: Go map iteration is
// randomized, so argmax must walk an explicit slice rather than the map
// itself to stay deterministic when two topics tie for the top score.
var topicOrder = []string{
	"debugging", "performance", "authentication", "deployment", "testing",
	"styling", "database", "api", "state_management", "configuration",
	"architecture", "framework",
}

var (
	compiledOnce sync.Once
	compiled     map[string][]*regexp.Regexp
)

// compile pre-compiles every keyword pattern once, at first use, across the
// whole process — the classifier is stateless and safe for concurrent calls
// afterward.
func compile() map[string][]*regexp.Regexp {
	compiledOnce.Do(func() {
		compiled = make(map[string][]*regexp.Regexp, len(keywordSets))
		for topicName, keywords := range keywordSets {
			patterns := make([]*regexp.Regexp, 0, len(keywords))
			for _, kw := range keywords {
				patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
			}
			compiled[topicName] = patterns
		}
	})
	return compiled
}

// Classifier scores turn content against the topic lexicon.
type Classifier struct{}

// NewClassifier returns a topic Classifier. There is no per-instance state;
// multiple Classifiers share the same compiled pattern set.
func NewClassifier() *Classifier {
	compile() // force compilation at construction, not on first Score call
	return &Classifier{}
}

// Score computes a topic→score map for content. Scores below minScore are
// dropped; content shorter than 10 bytes once surrounding whitespace is
// trimmed yields an empty map.
func (c *Classifier) Score(content string) map[string]float64 {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < 10 {
		return map[string]float64{}
	}

	lower := strings.ToLower(content)
	wordCount := len(strings.Fields(content))
	if wordCount == 0 {
		return map[string]float64{}
	}

	denom := float64(wordCount) * normalizationFactor
	scores := make(map[string]float64)

	for topicName, patterns := range compile() {
		total := 0
		for _, p := range patterns {
			total += len(p.FindAllStringIndex(lower, -1))
		}
		if total == 0 {
			continue
		}
		normalized := float64(total) / denom
		if normalized > maxScore {
			normalized = maxScore
		}
		if normalized >= minScore {
			scores[topicName] = normalized
		}
	}

	return scores
}

// PrimaryTopic returns the argmax key of scores, and its score, or ("", 0)
// if scores is empty (spec invariant P4). Ties resolve to whichever topic
// comes first in topicOrder, so the result is stable across runs (R2).
func PrimaryTopic(scores map[string]float64) (string, float64) {
	best := ""
	bestScore := 0.0
	first := true
	for _, topicName := range topicOrder {
		score, ok := scores[topicName]
		if !ok {
			continue
		}
		if first || score > bestScore {
			best = topicName
			bestScore = score
			first = false
		}
	}
	return best, bestScore
}

// Boost returns the search-time topic boost factor for a query focused on
// queryTopic, given the result's detected topics.
func Boost(resultTopics map[string]float64, queryTopic string) float64 {
	if queryTopic == "" {
		return 1.0
	}
	relevance, ok := resultTopics[queryTopic]
	if !ok {
		return 1.0
	}
	return 1.0 + relevance*0.5
}
