package extraction

import "regexp"

// Entity is one span of content recognised as a standard English entity
// label by the regex NER pass.
type Entity struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

type entityPattern struct {
	regex      *regexp.Regexp
	entityType string
}

var entityPatterns = []entityPattern{
	{regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`), "url"},
	{regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), "email"},
	{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), "date"},
	{regexp.MustCompile(`\b([01]?[0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?\b`), "time"},
	{regexp.MustCompile(`\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`), "uuid"},
	{regexp.MustCompile(`\b\d+\.?\d*\s*(ms|seconds?|minutes?|hours?|days?|KB|MB|GB|%)\b`), "measurement"},
	{regexp.MustCompile(`\bv?\d+\.\d+\.\d+(?:-[a-zA-Z0-9.]+)?\b`), "version"},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`), "ip_address"},
	{regexp.MustCompile(`\b[A-Z][a-zA-Z]{2,}(?:\s+[A-Z][a-zA-Z]{2,}){1,2}\b`), "person_or_org"},
}

var fileReferenceRe = regexp.MustCompile(`(?:[A-Za-z]:[/\\]|\.{0,2}/|[\w-]+/)[\w./-]*\.[a-zA-Z0-9]+\b`)

// extractEntities runs the regex NER pass, deduplicating by (type, text).
func extractEntities(content string) []Entity {
	seen := make(map[string]bool)
	var out []Entity
	for _, p := range entityPatterns {
		for _, text := range p.regex.FindAllString(content, -1) {
			key := p.entityType + ":" + text
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, Entity{Text: text, Type: p.entityType})
		}
	}
	return out
}

// extractFileReferences finds path-shaped tokens with a file extension,
// distinct from the generic "url"/"file_path" NER labels above so callers
// can populate a dedicated file-reference list per spec.md §4.8.
func extractFileReferences(content string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range fileReferenceRe.FindAllString(content, -1) {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}
