package unify

import (
	"github.com/ayalamanuliber/contractor-hub/internal/model"
)

// ComputeMetrics aggregates dataset-level metrics. The quality-tier histogram
// uses its own boundaries (good = 80-89) which deliberately differ from the
// per-record completion tiers; both contracts are preserved as reported.
func ComputeMetrics(contractors []model.ContractorRecord) model.DatasetMetrics {
	m := model.DatasetMetrics{
		TotalContractors: len(contractors),
		HealthBreakdown:  make(map[model.BusinessHealth]int),
	}

	for i := range contractors {
		rec := &contractors[i]

		if rec.HasCampaign {
			m.WithCampaign++
		} else {
			m.WithoutCampaign++
		}

		switch score := rec.DataCompletionScore; {
		case score >= 90:
			m.QualityTiers.Premium++
		case score >= 80:
			m.QualityTiers.Good++
		case score >= 70:
			m.QualityTiers.NeedsWork++
		default:
			m.QualityTiers.LowQuality++
		}

		health := rec.BusinessHealth
		if health == "" {
			health = model.HealthUnknown
		}
		m.HealthBreakdown[health]++
	}

	m.DataDensity = densityFor(m.TotalContractors)
	m.UIScaleMode = scaleModeFor(m.TotalContractors)
	return m
}

func densityFor(total int) model.DataDensity {
	switch {
	case total > 1000:
		return model.DensityHigh
	case total > 100:
		return model.DensityMedium
	default:
		return model.DensityLow
	}
}

func scaleModeFor(total int) model.UIScaleMode {
	switch {
	case total > 2000:
		return model.ScaleCompact
	case total > 500:
		return model.ScaleBalanced
	default:
		return model.ScaleDetailed
	}
}
