// Package model defines the canonical contractor data model shared by the
// unification pipeline, the hub cache, the export engine, and the REST layer.
package model

import "time"

// Canonical defaults applied at normalization time. Every ingestion path uses
// these; presentation code must never invent its own.
const (
	DefaultCompanyName = "Unknown Company"
	DefaultCategory    = "General"
	DefaultPricing     = "Standard"
	DefaultAngle       = "General outreach"
	SchemaVersion      = "hub-v2"
)

// BusinessHealth classifies the operational state of a contractor business.
type BusinessHealth string

const (
	HealthHealthy        BusinessHealth = "HEALTHY"
	HealthEmerging       BusinessHealth = "EMERGING"
	HealthStruggling     BusinessHealth = "STRUGGLING"
	HealthNeedsAttention BusinessHealth = "NEEDS_ATTENTION"
	HealthUnknown        BusinessHealth = "UNKNOWN"
)

// OutreachPriority ranks how aggressively a contractor should be contacted.
type OutreachPriority string

const (
	PriorityHigh   OutreachPriority = "HIGH"
	PriorityMedium OutreachPriority = "MEDIUM"
	PriorityLow    OutreachPriority = "LOW"
)

// SophisticationTier buckets a contractor's marketing sophistication.
type SophisticationTier string

const (
	TierProfessional SophisticationTier = "Professional"
	TierEstablished  SophisticationTier = "Established"
	TierGrowing      SophisticationTier = "Growing"
	TierAmateur      SophisticationTier = "Amateur"
	TierUnknownSoph  SophisticationTier = "Unknown"
)

// EmailQuality classifies the contractor's primary email domain.
type EmailQuality string

const (
	EmailProfessionalDomain EmailQuality = "PROFESSIONAL_DOMAIN"
	EmailPersonalDomain     EmailQuality = "PERSONAL_DOMAIN"
	EmailUnknown            EmailQuality = "UNKNOWN"
)

// CampaignStatus tracks where a contractor sits in the outreach funnel.
type CampaignStatus string

const (
	CampaignReady      CampaignStatus = "READY"
	CampaignSent       CampaignStatus = "SENT"
	CampaignComplete   CampaignStatus = "COMPLETE"
	CampaignNoCampaign CampaignStatus = "NO_CAMPAIGN"
)

// CompletionTier buckets the data-completion score for a single record.
// Boundaries are inclusive lower bounds: >=90 PREMIUM, >=80 READY, >=70 GOOD,
// >=50 NEEDS_WORK, else POOR.
type CompletionTier string

const (
	CompletionPremium   CompletionTier = "PREMIUM"
	CompletionReady     CompletionTier = "READY"
	CompletionGood      CompletionTier = "GOOD"
	CompletionNeedsWork CompletionTier = "NEEDS_WORK"
	CompletionPoor      CompletionTier = "POOR"
)

// CompletionBreakdown holds the five capped sub-scores. Their sum always
// equals the total completion score.
type CompletionBreakdown struct {
	BasicInfo      int `json:"basic_info"`      // cap 30
	Location       int `json:"location"`        // cap 15
	OnlinePresence int `json:"online_presence"` // cap 20
	BusinessIntel  int `json:"business_intel"`  // cap 25
	Enhancement    int `json:"enhancement"`     // cap 10
}

// Sum returns the total of the five sub-scores.
func (b CompletionBreakdown) Sum() int {
	return b.BasicInfo + b.Location + b.OnlinePresence + b.BusinessIntel + b.Enhancement
}

// MissingField describes one absent data point and the weight of fixing it.
type MissingField struct {
	Field    string `json:"field"`
	Priority string `json:"priority"` // HIGH, MEDIUM, LOW
	Impact   string `json:"impact"`
}

// ScoreChange is one append-only score-history entry. Entries are only
// recorded when an update actually moves the total score.
type ScoreChange struct {
	Date          time.Time `json:"date"`
	OldScore      int       `json:"old_score"`
	NewScore      int       `json:"new_score"`
	Change        int       `json:"change"`
	FieldsUpdated []string  `json:"fields_updated"`
}

// ContractorRecord is the unified, per-business record keyed by the
// normalized business id.
type ContractorRecord struct {
	BusinessID string `json:"business_id"`

	// Basic info.
	CompanyName  string `json:"company_name"`
	Category     string `json:"category"`
	PrimaryEmail string `json:"primary_email"`
	Phone        string `json:"phone"`
	Website      string `json:"website"`
	AddressFull  string `json:"address_full"`
	City         string `json:"city"`
	StateCode    string `json:"state_code"`
	PostalCode   string `json:"postal_code"`

	// Quality signals.
	GoogleRating       float64          `json:"google_rating"`
	GoogleReviewsCount int              `json:"google_reviews_count"`
	BusinessHealth     BusinessHealth   `json:"business_health"`
	OutreachPriority   OutreachPriority `json:"outreach_priority"`

	// Intelligence.
	SophisticationScore int                `json:"sophistication_score"`
	SophisticationTier  SophisticationTier `json:"sophistication_tier"`
	EmailQuality        EmailQuality       `json:"email_quality"`
	TrustScore          float64            `json:"trust_score"`

	// Targeting.
	PricingPsychology     string `json:"pricing_psychology"`
	PrimaryAngle          string `json:"primary_angle"`
	ConversionProbability string `json:"conversion_probability"`

	// Campaign overlay. CampaignData is non-nil exactly when HasCampaign.
	HasCampaign    bool            `json:"has_campaign"`
	CampaignData   *CampaignRecord `json:"campaign_data,omitempty"`
	CampaignStatus CampaignStatus  `json:"campaign_status"`

	// Derived scoring fields, owned by the completion scorer.
	DataCompletionScore    int                 `json:"data_completion_score"`
	CompletionBreakdown    CompletionBreakdown `json:"completion_breakdown"`
	CompletionTier         CompletionTier      `json:"completion_tier"`
	MissingFields          []MissingField      `json:"missing_fields"`
	ImprovementSuggestions []string            `json:"improvement_suggestions"`
	ScoreHistory           []ScoreChange       `json:"score_history"`

	// Raw source row, retained verbatim for lossless export round-trips.
	RawCSVData map[string]string `json:"raw_csv_data,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Enhanced reports whether the record was touched after unification.
func (r *ContractorRecord) Enhanced() bool {
	return !r.UpdatedAt.Equal(r.CreatedAt) || len(r.ScoreHistory) > 0
}

// LastScoreChange returns the delta of the most recent history entry, or 0.
func (r *ContractorRecord) LastScoreChange() int {
	if len(r.ScoreHistory) == 0 {
		return 0
	}
	return r.ScoreHistory[len(r.ScoreHistory)-1].Change
}
