package model

import "time"

// DataDensity classifies the overall dataset size.
type DataDensity string

const (
	DensityHigh   DataDensity = "HIGH"   // > 1000 records
	DensityMedium DataDensity = "MEDIUM" // > 100 records
	DensityLow    DataDensity = "LOW"
)

// UIScaleMode is a rendering hint for the dashboard, derived from dataset size.
type UIScaleMode string

const (
	ScaleCompact  UIScaleMode = "COMPACT"  // > 2000 records
	ScaleBalanced UIScaleMode = "BALANCED" // > 500 records
	ScaleDetailed UIScaleMode = "DETAILED"
)

// QualityTiers is the dataset-level completion histogram. Its boundaries
// (good = 80-89) intentionally differ from the per-record CompletionTier
// labels; both are preserved as-is from the hub's reporting contract.
type QualityTiers struct {
	Premium    int `json:"premium"`     // >= 90
	Good       int `json:"good"`        // 80-89
	NeedsWork  int `json:"needs_work"`  // 70-79
	LowQuality int `json:"low_quality"` // < 70
}

// DatasetMetrics aggregates the unified dataset for the dashboard.
type DatasetMetrics struct {
	TotalContractors int                    `json:"total_contractors"`
	WithCampaign     int                    `json:"with_campaign"`
	WithoutCampaign  int                    `json:"without_campaign"`
	QualityTiers     QualityTiers           `json:"quality_tiers"`
	HealthBreakdown  map[BusinessHealth]int `json:"health_breakdown"`
	DataDensity      DataDensity            `json:"data_density"`
	UIScaleMode      UIScaleMode            `json:"ui_scale_mode"`
}

// DatabaseInfo describes the provenance of a unified dataset.
type DatabaseInfo struct {
	Version       string    `json:"version"`
	GeneratedAt   time.Time `json:"generated_at"`
	CSVSource     string    `json:"csv_source,omitempty"`
	CampaignCount int       `json:"campaign_count"`
	SkippedRows   int       `json:"skipped_rows"`
}

// Dataset is the fully-unified, atomically-published view consumed by the
// hub, the REST layer, and the export engine.
type Dataset struct {
	DatabaseInfo DatabaseInfo       `json:"database_info"`
	Metrics      DatasetMetrics     `json:"metrics"`
	Contractors  []ContractorRecord `json:"contractors"`
	UnifiedAt    time.Time          `json:"unified_at"`
}

// Record returns the contractor with the given normalized id, or nil.
func (d *Dataset) Record(businessID string) *ContractorRecord {
	for i := range d.Contractors {
		if d.Contractors[i].BusinessID == businessID {
			return &d.Contractors[i]
		}
	}
	return nil
}

// ExecutionState summarizes the outreach funnel: how many contractors are in
// each stage of manual campaign execution. Queue additionally admits
// non-campaign records whose completion score is ready for generation (>= 70).
type ExecutionState struct {
	Queue         int `json:"queue"`
	Ready         int `json:"ready"`
	Sent          int `json:"sent"`
	Complete      int `json:"complete"`
	SentThisWeek  int `json:"sent_this_week"`
	TotalCampaign int `json:"total_campaign"`
}
