package unify

import (
	"fmt"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayalamanuliber/contractor-hub/internal/model"
	"github.com/ayalamanuliber/contractor-hub/internal/normalize"
)

func csvRow(id, name string) map[string]string {
	return map[string]string{
		normalize.ColBusinessID:   id,
		normalize.ColCompanyName:  name,
		normalize.ColPrimaryEmail: "a@acme.com",
		normalize.ColPhone:        "555-1111",
	}
}

func TestUnify_NoCampaign(t *testing.T) {
	now := time.Now().UTC()
	ds, stats, err := Unify([]map[string]string{csvRow("00042", "Acme Roofing")}, nil, now)
	require.NoError(t, err)

	require.Len(t, ds.Contractors, 1)
	rec := ds.Contractors[0]
	assert.Equal(t, "42", rec.BusinessID)
	assert.False(t, rec.HasCampaign)
	assert.Nil(t, rec.CampaignData)
	assert.Equal(t, model.CampaignNoCampaign, rec.CampaignStatus)
	assert.Equal(t, 25, rec.DataCompletionScore)
	assert.Equal(t, model.CompletionPoor, rec.CompletionTier)
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, 0, stats.WithCampaign)
}

func TestUnify_CampaignOverlay(t *testing.T) {
	campaign := &model.CampaignRecord{
		BusinessID:  "42",
		CompanyName: "Acme (campaign name)",
		EmailSequences: []model.EmailSequence{
			{EmailNumber: 1, Subject: "s1", Status: model.EmailPending},
		},
	}
	ds, _, err := Unify([]map[string]string{csvRow("00042", "Acme Roofing")}, []*model.CampaignRecord{campaign}, time.Now())
	require.NoError(t, err)

	rec := ds.Contractors[0]
	assert.True(t, rec.HasCampaign)
	assert.Equal(t, model.CampaignReady, rec.CampaignStatus)
	// CSV always wins on shared fields; campaign presence never changes the score.
	assert.Equal(t, "Acme Roofing", rec.CompanyName)
	assert.Equal(t, 25, rec.DataCompletionScore)
}

func TestUnify_CampaignOnlySynthesis(t *testing.T) {
	campaign := &model.CampaignRecord{BusinessID: "77", CompanyName: "Orphan Plumbing"}
	ds, stats, err := Unify([]map[string]string{csvRow("42", "Acme Roofing")}, []*model.CampaignRecord{campaign}, time.Now())
	require.NoError(t, err)

	require.Len(t, ds.Contractors, 2)
	rec := ds.Record("77")
	require.NotNil(t, rec)
	assert.True(t, rec.HasCampaign)
	assert.Equal(t, 0, rec.DataCompletionScore)
	assert.Equal(t, model.HealthNeedsAttention, rec.BusinessHealth)
	assert.Equal(t, 1, stats.CampaignOnly)
}

func TestUnify_DuplicateCampaignLastWins(t *testing.T) {
	first := &model.CampaignRecord{BusinessID: "42", CompanyName: "first"}
	second := &model.CampaignRecord{BusinessID: "42", CompanyName: "second"}
	ds, stats, err := Unify([]map[string]string{csvRow("42", "Acme Roofing")}, []*model.CampaignRecord{first, second}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "second", ds.Contractors[0].CampaignData.CompanyName)
	assert.Equal(t, 1, stats.DuplicateIDs)
}

func TestUnify_DuplicateRowsCountCampaignOnce(t *testing.T) {
	campaign := &model.CampaignRecord{BusinessID: "42", CompanyName: "Acme"}
	rows := []map[string]string{
		csvRow("42", "Acme Roofing"),
		csvRow("00042", "Acme Roofing"),
	}
	ds, stats, err := Unify(rows, []*model.CampaignRecord{campaign}, time.Now())
	require.NoError(t, err)

	require.Len(t, ds.Contractors, 1)
	assert.Equal(t, 1, stats.WithCampaign)
	assert.Equal(t, 1, stats.TotalRecords)
}

func TestUnify_MalformedRowsSkippedNotFatal(t *testing.T) {
	rows := []map[string]string{
		csvRow("42", "Acme Roofing"),
		csvRow("0000", "No ID Contracting"), // all-zero id
		csvRow("43", ""),                    // no name
	}
	ds, stats, err := Unify(rows, nil, time.Now())
	require.NoError(t, err)
	assert.Len(t, ds.Contractors, 1)
	assert.Equal(t, 2, stats.SkippedRows)
	assert.Equal(t, 2, ds.DatabaseInfo.SkippedRows)
}

func TestUnify_ZeroRowsFatal(t *testing.T) {
	_, _, err := Unify(nil, nil, time.Now())
	assert.True(t, eris.Is(err, ErrNoCSVRows))
}

func TestUnify_AllRowsMalformedFatal(t *testing.T) {
	_, _, err := Unify([]map[string]string{csvRow("000", "x")}, nil, time.Now())
	assert.True(t, eris.Is(err, ErrNoCSVRows))
}

func TestUnify_PartiallySentCampaignKeepsStatus(t *testing.T) {
	campaign := &model.CampaignRecord{
		BusinessID: "42",
		EmailSequences: []model.EmailSequence{
			{EmailNumber: 1, Status: model.EmailSent},
			{EmailNumber: 2, Status: model.EmailPending},
			{EmailNumber: 3, Status: model.EmailPending},
		},
	}
	ds, _, err := Unify([]map[string]string{csvRow("42", "Acme Roofing")}, []*model.CampaignRecord{campaign}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.CampaignSent, ds.Contractors[0].CampaignStatus)
}

func TestComputeMetrics_DensityAndScale(t *testing.T) {
	recs := make([]model.ContractorRecord, 2500)
	for i := range recs {
		recs[i] = model.ContractorRecord{BusinessID: fmt.Sprintf("%d", i+1)}
	}
	m := ComputeMetrics(recs)
	assert.Equal(t, model.DensityHigh, m.DataDensity)
	assert.Equal(t, model.ScaleCompact, m.UIScaleMode)
}

func TestComputeMetrics_QualityTierBuckets(t *testing.T) {
	recs := []model.ContractorRecord{
		{DataCompletionScore: 95},
		{DataCompletionScore: 90},
		{DataCompletionScore: 89},
		{DataCompletionScore: 80},
		{DataCompletionScore: 79},
		{DataCompletionScore: 70},
		{DataCompletionScore: 69},
		{DataCompletionScore: 0},
	}
	m := ComputeMetrics(recs)
	assert.Equal(t, 2, m.QualityTiers.Premium)
	assert.Equal(t, 2, m.QualityTiers.Good)
	assert.Equal(t, 2, m.QualityTiers.NeedsWork)
	assert.Equal(t, 2, m.QualityTiers.LowQuality)
	assert.Equal(t, model.DensityLow, m.DataDensity)
	assert.Equal(t, model.ScaleDetailed, m.UIScaleMode)
}

func TestComputeMetrics_HealthHistogram(t *testing.T) {
	recs := []model.ContractorRecord{
		{BusinessHealth: model.HealthHealthy},
		{BusinessHealth: model.HealthHealthy},
		{BusinessHealth: ""},
	}
	m := ComputeMetrics(recs)
	assert.Equal(t, 2, m.HealthBreakdown[model.HealthHealthy])
	assert.Equal(t, 1, m.HealthBreakdown[model.HealthUnknown])
}
