package maintenance

import (
	"context"
	"errors"

	"turnindex/internal/index"
)

// defaultHealthSampleSize bounds how many records HealthReport inspects, so
// a report over a large index stays cheap.
const defaultHealthSampleSize = 2000

// FieldHealth is one field's population and (when numeric and bounded)
// range-violation rate across the sampled records.
type FieldHealth struct {
	Field              string  `json:"field"`
	PopulationRate     float64 `json:"population_rate"`
	RangeViolationRate float64 `json:"range_violation_rate"`
	HasRangeViolations bool    `json:"has_range_violations"`
}

// HealthReport summarises the sampled slice of the index: how well
// populated each observed field is, how often the clamp-bounded fields
// fall outside their declared range, and a single composite score.
type HealthReport struct {
	TotalRecords   int           `json:"total_records"`
	SampledRecords int           `json:"sampled_records"`
	Fields         []FieldHealth `json:"fields"`
	CompositeScore float64       `json:"composite_score"`
}

var errStopSampling = errors.New("maintenance: sample size reached")

// HealthReport samples up to sampleSize records (defaultHealthSampleSize
// when sampleSize <= 0) and computes per-field population and
// range-violation rates plus a composite score.
func (m *Maintainer) HealthReport(ctx context.Context, sampleSize int) (HealthReport, error) {
	if sampleSize <= 0 {
		sampleSize = defaultHealthSampleSize
	}

	populated := make(map[string]int)
	violations := make(map[string]int)
	sampled := 0
	total := m.index.Count()

	err := m.index.Iterate(ctx, nil, 0, func(batch []index.Record) error {
		for _, rec := range batch {
			if sampled >= sampleSize {
				return errStopSampling
			}
			sampled++
			for k, v := range rec.Metadata {
				if v != "" {
					populated[k]++
				}
			}
			for _, cf := range clampFields {
				raw, ok := rec.Metadata[cf.name]
				if !ok || raw == "" {
					continue
				}
				v, err := parseFloatField(raw)
				if err != nil {
					continue
				}
				if v < cf.min || v > cf.max {
					violations[cf.name]++
				}
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopSampling) {
		return HealthReport{}, err
	}

	report := HealthReport{TotalRecords: total, SampledRecords: sampled}
	if sampled == 0 {
		return report, nil
	}

	isClamped := make(map[string]bool, len(clampFields))
	for _, cf := range clampFields {
		isClamped[cf.name] = true
	}

	var sumPopulation, sumInverseViolation float64
	for _, field := range sortedKeys(populated) {
		fh := FieldHealth{
			Field:          field,
			PopulationRate: float64(populated[field]) / float64(sampled),
		}
		if isClamped[field] {
			fh.HasRangeViolations = true
			fh.RangeViolationRate = float64(violations[field]) / float64(sampled)
		}
		sumPopulation += fh.PopulationRate
		sumInverseViolation += 1 - fh.RangeViolationRate
		report.Fields = append(report.Fields, fh)
	}

	n := float64(len(report.Fields))
	avgPopulation := sumPopulation / n
	avgInverseViolation := sumInverseViolation / n
	report.CompositeScore = 0.5*avgPopulation + 0.5*avgInverseViolation

	return report, nil
}
