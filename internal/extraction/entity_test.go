package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractEntitiesFindsURLAndEmail(t *testing.T) {
	entities := extractEntities("see https://example.com/docs or email me at dev@example.com")

	var types []string
	for _, e := range entities {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, "url")
	assert.Contains(t, types, "email")
}

func TestExtractEntitiesDeduplicates(t *testing.T) {
	entities := extractEntities("v1.2.3 and again v1.2.3")
	count := 0
	for _, e := range entities {
		if e.Text == "v1.2.3" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestExtractFileReferencesFindsPaths(t *testing.T) {
	refs := extractFileReferences("edit src/main.go and tests/util_test.py")
	assert.Contains(t, refs, "src/main.go")
	assert.Contains(t, refs, "tests/util_test.py")
}

func TestExtractToolsAndFrameworks(t *testing.T) {
	assert.Contains(t, extractTools("I used Bash and Edit to fix it"), "Bash")
	assert.Contains(t, extractFrameworks("migrated the API to FastAPI"), "FastAPI")
}
