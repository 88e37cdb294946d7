package technical

import (
	"regexp"
	"strings"
)

type contradictionPair struct {
	success *regexp.Regexp
	failure *regexp.Regexp
}

var contradictionPairs = buildContradictionPairs()

func buildContradictionPairs() []contradictionPair {
	raw := [][2]string{
		{`build\s+(pass|success|ok)`, `test\s+(fail|error|broken)`},
		{`compil\w+\s+(success|ok)`, `test\s+(fail|error)`},
		{`works?\s+(local|dev)`, `fail\w*\s+(prod|production|deploy)`},
		{`local\w*\s+(success|ok)`, `production\s+(error|fail)`},
		{`some\s+tests?\s+(pass|ok)`, `other\s+tests?\s+(fail|error)`},
		{`mostly\s+(work|success)`, `but\s+\w*\s+(error|fail|issue)`},
		{`partial\w*\s+(success|work)`, `still\s+\w*\s+(error|issue)`},
		{`functional\w*\s+(correct|ok)`, `performance\s+(slow|issue|problem)`},
		{`works?\s+(correct)`, `too\s+(slow|fast)`},
		{`sometimes\s+(work|pass)`, `sometimes\s+(fail|error)`},
		{`intermittent\w*`, `(fail|error|issue)`},
		{`flaky`, `test`},
		{`dev\s+(environment|env)`, `prod\w*\s+(fail|error)`},
		{`staging\s+(ok|pass)`, `production\s+(fail|error)`},
	}
	out := make([]contradictionPair, len(raw))
	for i, pair := range raw {
		out[i] = contradictionPair{
			success: regexp.MustCompile(pair[0]),
			failure: regexp.MustCompile(pair[1]),
		}
	}
	return out
}

var contrastiveConnectives = []string{
	"but", "however", "although", "except", "partially",
	"some work", "mostly work", "intermittent", "sometimes",
}

var successWords = map[string]bool{"work": true, "pass": true, "success": true, "ok": true, "good": true}
var failureWords = map[string]bool{"fail": true, "error": true, "broke": true, "issue": true, "problem": true}

// detectComplexOutcome reports whether lower (already lowercased content)
// contains a mixed success/failure signal: either one of the fixed
// contradiction pairs both matching, or a contrastive connective with
// success and failure vocabulary nearby.
func detectComplexOutcome(lower string) bool {
	for _, pair := range contradictionPairs {
		if pair.success.MatchString(lower) && pair.failure.MatchString(lower) {
			return true
		}
	}

	words := strings.Fields(lower)
	for _, connective := range contrastiveConnectives {
		idx := indexOf(words, connective)
		if idx < 0 {
			continue
		}
		start := idx - 3
		if start < 0 {
			start = 0
		}
		end := idx + 4
		if end > len(words) {
			end = len(words)
		}
		nearby := strings.Join(words[start:end], " ")

		hasSuccess, hasFailure := false, false
		for w := range successWords {
			if strings.Contains(nearby, w) {
				hasSuccess = true
			}
		}
		for w := range failureWords {
			if strings.Contains(nearby, w) {
				hasFailure = true
			}
		}
		if hasSuccess && hasFailure {
			return true
		}
	}

	return false
}

func indexOf(words []string, target string) int {
	for i, w := range words {
		if w == target {
			return i
		}
	}
	return -1
}
