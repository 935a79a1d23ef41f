package model

import (
	"maps"
	"slices"
	"time"
)

// Clone returns a deep copy of the record. Mutating the copy, including its
// campaign overlay and score history, never touches the original.
func (r ContractorRecord) Clone() ContractorRecord {
	out := r
	out.MissingFields = slices.Clone(r.MissingFields)
	out.ImprovementSuggestions = slices.Clone(r.ImprovementSuggestions)
	if r.ScoreHistory != nil {
		out.ScoreHistory = make([]ScoreChange, len(r.ScoreHistory))
		for i, sc := range r.ScoreHistory {
			sc.FieldsUpdated = slices.Clone(sc.FieldsUpdated)
			out.ScoreHistory[i] = sc
		}
	}
	out.RawCSVData = maps.Clone(r.RawCSVData)
	if r.CampaignData != nil {
		cd := r.CampaignData.Clone()
		out.CampaignData = &cd
	}
	return out
}

// Clone returns a deep copy of the campaign, including the per-email
// tracking timestamps.
func (c CampaignRecord) Clone() CampaignRecord {
	out := c
	if c.EmailSequences != nil {
		out.EmailSequences = make([]EmailSequence, len(c.EmailSequences))
		for i, e := range c.EmailSequences {
			e.SentDate = cloneTime(e.SentDate)
			e.OpenedDate = cloneTime(e.OpenedDate)
			e.RespondedDate = cloneTime(e.RespondedDate)
			out.EmailSequences[i] = e
		}
	}
	return out
}

// Clone returns a deep copy of the dataset, so callers can read it without
// holding whatever lock guards the original.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	out := *d
	out.Metrics.HealthBreakdown = maps.Clone(d.Metrics.HealthBreakdown)
	if d.Contractors != nil {
		out.Contractors = make([]ContractorRecord, len(d.Contractors))
		for i := range d.Contractors {
			out.Contractors[i] = d.Contractors[i].Clone()
		}
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
