// Package unify merges the contractor CSV feed with the campaign database
// into a single scored dataset with aggregate metrics.
package unify

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ayalamanuliber/contractor-hub/internal/model"
	"github.com/ayalamanuliber/contractor-hub/internal/normalize"
	"github.com/ayalamanuliber/contractor-hub/internal/scoring"
)

// ErrNoCSVRows is fatal for a unification pass: with zero contractor rows
// there is nothing to publish, and the previous dataset stays authoritative.
var ErrNoCSVRows = eris.New("unify: csv source yielded zero rows")

// Stats reports what one unification pass processed.
type Stats struct {
	CSVRows      int `json:"csv_rows"`
	SkippedRows  int `json:"skipped_rows"`
	Campaigns    int `json:"campaigns"`
	CampaignOnly int `json:"campaign_only"`
	WithCampaign int `json:"with_campaign"`
	TotalRecords int `json:"total_records"`
	DuplicateIDs int `json:"duplicate_ids"`
}

// Unify builds a complete dataset from raw CSV rows (as column maps) and
// canonical campaign records. The result is fully formed before it is
// returned; callers publish it atomically.
func Unify(rows []map[string]string, campaigns []*model.CampaignRecord, now time.Time) (*model.Dataset, Stats, error) {
	var stats Stats
	stats.CSVRows = len(rows)
	stats.Campaigns = len(campaigns)

	if len(rows) == 0 {
		return nil, stats, ErrNoCSVRows
	}

	// Campaign map by normalized id; later entries win on duplicates.
	campaignByID := make(map[string]*model.CampaignRecord, len(campaigns))
	for _, c := range campaigns {
		if _, dup := campaignByID[c.BusinessID]; dup {
			stats.DuplicateIDs++
		}
		campaignByID[c.BusinessID] = c
	}

	records := make(map[string]*model.ContractorRecord, len(rows))
	var order []string

	for _, row := range rows {
		rec, err := normalize.FromCSVRow(row)
		if err != nil {
			stats.SkippedRows++
			zap.L().Warn("unify: skipping malformed row",
				zap.String("business_id", row[normalize.ColBusinessID]),
				zap.Error(err),
			)
			continue
		}

		if _, dup := records[rec.BusinessID]; dup {
			// CSV duplicates collapse to the last row, same as campaigns.
			stats.DuplicateIDs++
		} else {
			order = append(order, rec.BusinessID)
		}

		if c, ok := campaignByID[rec.BusinessID]; ok {
			rec.HasCampaign = true
			rec.CampaignData = c
			rec.CampaignStatus = campaignStatus(c)
		} else {
			rec.CampaignStatus = model.CampaignNoCampaign
		}

		scoring.Apply(rec, scoring.Score(rec))
		rec.CreatedAt = now
		rec.UpdatedAt = now
		records[rec.BusinessID] = rec
	}

	if len(records) == 0 {
		return nil, stats, eris.Wrapf(ErrNoCSVRows, "all %d rows were malformed", len(rows))
	}

	// Campaign ids with no CSV row synthesize minimal records.
	var campaignOnlyIDs []string
	for id := range campaignByID {
		if _, ok := records[id]; !ok {
			campaignOnlyIDs = append(campaignOnlyIDs, id)
		}
	}
	sort.Strings(campaignOnlyIDs)
	for _, id := range campaignOnlyIDs {
		rec := normalize.CampaignOnly(campaignByID[id], now)
		rec.CampaignStatus = campaignStatus(campaignByID[id])
		records[id] = rec
		order = append(order, id)
		stats.CampaignOnly++
	}

	contractors := make([]model.ContractorRecord, 0, len(records))
	for _, id := range order {
		contractors = append(contractors, *records[id])
	}

	stats.TotalRecords = len(contractors)
	// Counted over the collapsed records so duplicate CSV ids sharing a
	// campaign do not inflate the stat.
	for i := range contractors {
		if contractors[i].HasCampaign {
			stats.WithCampaign++
		}
	}

	ds := &model.Dataset{
		DatabaseInfo: model.DatabaseInfo{
			Version:       model.SchemaVersion,
			GeneratedAt:   now,
			CampaignCount: len(campaignByID),
			SkippedRows:   stats.SkippedRows,
		},
		Metrics:     ComputeMetrics(contractors),
		Contractors: contractors,
		UnifiedAt:   now,
	}

	zap.L().Info("unify: pass complete",
		zap.Int("records", stats.TotalRecords),
		zap.Int("with_campaign", stats.WithCampaign),
		zap.Int("campaign_only", stats.CampaignOnly),
		zap.Int("skipped", stats.SkippedRows),
	)

	return ds, stats, nil
}

// campaignStatus derives the initial funnel status from sequence progress so
// that re-unification does not reset partially-executed campaigns.
func campaignStatus(c *model.CampaignRecord) model.CampaignStatus {
	switch {
	case c.Complete():
		return model.CampaignComplete
	case c.SentCount() > 0:
		return model.CampaignSent
	default:
		return model.CampaignReady
	}
}
