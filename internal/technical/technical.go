// Package technical implements the technical-context analyzer (C6): domain
// detection (build_system, testing, runtime, deployment) over feedback
// content, plus complex-outcome (mixed success/failure) detection.
package technical

import (
	"strings"

	"turnindex/internal/types"
)

type domainLexicon struct {
	success []string
	failure []string
	tools   []string
}

var domains = map[types.TechnicalDomain]domainLexicon{
	types.DomainBuildSystem: {
		success: []string{
			"build successful", "compilation successful", "build passes", "compiled successfully",
			"build complete", "make successful", "gradle build successful", "webpack build",
			"build finished", "no build errors", "build succeeded", "npm run build",
			"compiled without errors", "build process completed", "successful compilation",
			"build artifacts created", "clean build", "build passed",
		},
		failure: []string{
			"build failed", "compilation error", "build error", "compile failed",
			"build broken", "make failed", "gradle build failed", "webpack failed",
			"build failure", "compilation failed", "build issues", "build problems",
			"cannot compile", "build script failed", "build process failed",
			"build artifacts missing", "build timeout", "build crashed",
		},
		tools: []string{"gcc", "clang", "make", "cmake", "gradle", "maven", "npm", "webpack", "vite", "rollup"},
	},
	types.DomainTesting: {
		success: []string{
			"tests pass", "all tests pass", "tests successful", "test suite passed",
			"no test failures", "tests green", "test execution successful", "100% tests passed",
			"all tests passed", "test run successful", "no failing tests", "tests completed",
			"test coverage", "all assertions passed", "test validation passed", "tests ok",
			"unit tests pass", "integration tests pass", "e2e tests pass",
		},
		failure: []string{
			"test failed", "tests failing", "test failure", "failing tests",
			"test errors", "assertion failed", "test suite failed", "tests broken",
			"test execution failed", "some tests failed", "test timeout", "test crashed",
			"unit test failed", "integration test failed", "e2e tests failed", "test flaky",
			"tests unstable", "intermittent test failures", "test environment issues",
		},
		tools: []string{"pytest", "jest", "mocha", "junit", "phpunit", "rspec", "jasmine", "cypress", "selenium", "playwright"},
	},
	types.DomainRuntime: {
		success: []string{
			"runs successfully", "executes correctly", "running fine", "works as expected",
			"no runtime errors", "application running", "execution successful", "runs without issues",
			"performance good", "responsive", "stable execution", "running smoothly",
			"no crashes", "application stable", "runtime healthy", "executing properly",
			"process running", "service up", "application responsive",
		},
		failure: []string{
			"runtime error", "execution failed", "application crashed", "runtime exception",
			"segmentation fault", "memory error", "null pointer", "stack overflow",
			"runtime failure", "execution error", "process crashed", "application hang",
			"performance issues", "slow execution", "timeout error", "deadlock",
			"resource exhausted", "out of memory", "cpu spike", "infinite loop",
		},
		tools: []string{"node", "python", "java", "dotnet", "go", "ruby", "php", "docker", "pm2", "systemd"},
	},
	types.DomainDeployment: {
		success: []string{
			"deployed successfully", "deployment complete", "deploy successful", "deployment passed",
			"server running", "service deployed", "production ready", "deployment finished",
			"rollout successful", "deployment healthy", "service up", "deployment validated",
			"infrastructure ready", "deployment stable", "release successful", "deploy complete",
			"environment ready", "deployment verified", "production deployment successful",
		},
		failure: []string{
			"deployment failed", "deploy error", "deployment failure", "rollout failed",
			"deployment timeout", "deploy crashed", "deployment issues", "rollback required",
			"deployment unhealthy", "service down", "deployment validation failed", "deploy problems",
			"infrastructure issues", "deployment blocked", "release failed", "environment issues",
			"deployment rollback", "deployment stuck", "service unavailable",
		},
		tools: []string{"docker", "kubernetes", "helm", "terraform", "ansible", "jenkins", "github-actions", "aws", "gcp", "azure"},
	},
}

// domainOrder fixes the tie-break order for the primary-domain argmax and
// the tool-extraction scan: Go map iteration is randomized, so both must
// walk an explicit slice rather than range over domains/toolDomain directly
// to stay deterministic when two domains tie for the top score.
var domainOrder = []types.TechnicalDomain{
	types.DomainBuildSystem, types.DomainTesting, types.DomainRuntime, types.DomainDeployment,
}

// toolDomain maps a tool name to the domain it belongs to, for
// solution-context boosting.
var toolDomain = buildToolDomainMap()

// toolOrder fixes the scan order for extractTools, built once alongside
// toolDomain from the same ordered domain walk.
var toolOrder = buildToolOrder()

func buildToolDomainMap() map[string]types.TechnicalDomain {
	m := make(map[string]types.TechnicalDomain)
	for _, domain := range domainOrder {
		for _, tool := range domains[domain].tools {
			m[tool] = domain
		}
	}
	return m
}

func buildToolOrder() []string {
	var out []string
	for _, domain := range domainOrder {
		out = append(out, domains[domain].tools...)
	}
	return out
}

const maxPossibleScore = 5.0
const domainConfidenceThreshold = 0.4

// SolutionContext carries optional context about the solution a feedback
// turn responds to: the tools it used. When provided, the domain matching
// the solution's tools receives a score boost.
type SolutionContext struct {
	ToolsUsed []string
}

// Result is C6's output for a single feedback turn.
type Result struct {
	Domain                 types.TechnicalDomain
	Confidence             float64
	DomainScores           map[types.TechnicalDomain]float64
	ComplexOutcomeDetected bool
	DetectedTools          []string
}

// Analyze scores content against the four domain lexicons and detects
// complex (mixed success/failure) outcomes.
func Analyze(content string, solutionCtx *SolutionContext) Result {
	if strings.TrimSpace(content) == "" {
		return Result{DomainScores: map[types.TechnicalDomain]float64{}}
	}

	lower := strings.ToLower(content)
	scores := make(map[types.TechnicalDomain]float64, len(domains))

	for _, domain := range domainOrder {
		lex := domains[domain]
		score := 0.0
		for _, p := range lex.success {
			if strings.Contains(lower, p) {
				score += 2.0
			}
		}
		for _, p := range lex.failure {
			if strings.Contains(lower, p) {
				score += 1.5
			}
		}
		for _, tool := range lex.tools {
			if strings.Contains(lower, tool) {
				score += 1.0
			}
		}
		scores[domain] = score
	}

	if solutionCtx != nil {
		boosts := make(map[types.TechnicalDomain]float64)
		for _, tool := range solutionCtx.ToolsUsed {
			if domain, ok := toolDomain[tool]; ok {
				boosts[domain] += 0.5
			}
		}
		for domain, boost := range boosts {
			if _, ok := scores[domain]; ok {
				scores[domain] *= 1.0 + boost
			}
		}
	}

	primaryDomain := types.DomainNone
	confidence := 0.0
	first := true
	for _, domain := range domainOrder {
		score := scores[domain]
		if first || score > confidence {
			primaryDomain = domain
			confidence = score
			first = false
		}
	}
	confidence = confidence / maxPossibleScore
	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence <= domainConfidenceThreshold {
		primaryDomain = types.DomainNone
	}

	return Result{
		Domain:                 primaryDomain,
		Confidence:             confidence,
		DomainScores:           scores,
		ComplexOutcomeDetected: detectComplexOutcome(lower),
		DetectedTools:          extractTools(lower),
	}
}

func extractTools(lower string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tool := range toolOrder {
		if strings.Contains(lower, tool) && !seen[tool] {
			seen[tool] = true
			out = append(out, tool)
		}
	}
	return out
}
