package extraction

import "regexp"

// knownTools is the product's assistant tool vocabulary: the tool names an
// agent can invoke, matched against content to report which ones are
// discussed or named.
var knownTools = []string{
	"Bash", "Edit", "Write", "MultiEdit", "Read", "Grep", "Glob",
	"WebFetch", "WebSearch", "TodoWrite", "NotebookEdit", "Task",
}

// knownFrameworks is a well-known-frameworks list spanning the common web,
// backend, and mobile ecosystems a development conversation might mention.
var knownFrameworks = []string{
	"React", "Vue", "Angular", "Svelte", "Next.js", "Nuxt",
	"Django", "Flask", "FastAPI", "Express", "NestJS", "Spring",
	"Rails", "Laravel", "Symfony", ".NET", "ASP.NET",
	"Gin", "Echo", "Fiber", "gRPC", "GraphQL",
	"Kubernetes", "Docker", "Terraform", "Ansible",
	"TensorFlow", "PyTorch", "Pandas", "NumPy",
}

func buildWordBoundaryMatchers(names []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(names))
	for i, n := range names {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(n) + `\b`)
	}
	return out
}

var (
	toolMatchers      = buildWordBoundaryMatchers(knownTools)
	frameworkMatchers = buildWordBoundaryMatchers(knownFrameworks)
)

func matchVocabulary(content string, names []string, matchers []*regexp.Regexp) []string {
	var out []string
	for i, m := range matchers {
		if m.MatchString(content) {
			out = append(out, names[i])
		}
	}
	return out
}

// extractTools returns the known tool names mentioned in content.
func extractTools(content string) []string {
	return matchVocabulary(content, knownTools, toolMatchers)
}

// ExtractTools returns the known tool names mentioned in content. Exported
// for callers outside this package that need tool detection without the
// rest of the hybrid extraction pass, such as C12 building a technical
// analysis SolutionContext from a solution turn's content.
func ExtractTools(content string) []string {
	return extractTools(content)
}

// extractFrameworks returns the known framework names mentioned in content.
func extractFrameworks(content string) []string {
	return matchVocabulary(content, knownFrameworks, frameworkMatchers)
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// density normalises a raw count against a saturation point, per spec.md
// §4.8's entity/tool density sub-scores (min(count/n, 1)).
func density(count, saturatesAt int) float64 {
	if saturatesAt <= 0 {
		return 0
	}
	return minF(float64(count)/float64(saturatesAt), 1.0)
}
