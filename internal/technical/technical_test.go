package technical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"turnindex/internal/types"
)

func TestAnalyzeDetectsBuildSystemDomain(t *testing.T) {
	r := Analyze("npm run build successful, clean build", nil)
	assert.Equal(t, types.DomainBuildSystem, r.Domain)
	assert.Greater(t, r.Confidence, 0.4)
}

func TestAnalyzeBelowThresholdYieldsNoDomain(t *testing.T) {
	r := Analyze("hello there, just saying hi", nil)
	assert.Equal(t, types.DomainNone, r.Domain)
}

func TestAnalyzeEmptyContent(t *testing.T) {
	r := Analyze("", nil)
	assert.Equal(t, types.DomainNone, r.Domain)
	assert.Equal(t, 0.0, r.Confidence)
}

func TestAnalyzeComplexOutcomeContradiction(t *testing.T) {
	r := Analyze("build passes but tests are failing", nil)
	assert.True(t, r.ComplexOutcomeDetected)
}

func TestAnalyzeNoComplexOutcomeForSimpleSuccess(t *testing.T) {
	r := Analyze("all tests pass, build successful", nil)
	assert.False(t, r.ComplexOutcomeDetected)
}

func TestAnalyzeSolutionContextBoostsMatchingDomain(t *testing.T) {
	without := Analyze("npm build", nil)
	with := Analyze("npm build", &SolutionContext{ToolsUsed: []string{"npm"}})
	assert.GreaterOrEqual(t, with.DomainScores[types.DomainBuildSystem], without.DomainScores[types.DomainBuildSystem])
}

func TestAnalyzeTiedDomainScoresResolveStably(t *testing.T) {
	// "docker" and "service up" each score identically for both runtime and
	// deployment; domainOrder puts runtime first, so it must win every time.
	for i := 0; i < 50; i++ {
		r := Analyze("docker service up", nil)
		assert.Equal(t, types.DomainRuntime, r.Domain)
		assert.Equal(t, r.DomainScores[types.DomainRuntime], r.DomainScores[types.DomainDeployment])
	}
}

func TestAnalyzeDetectsTools(t *testing.T) {
	r := Analyze("running pytest now", nil)
	assert.Contains(t, r.DetectedTools, "pytest")
}
