// Package scoring computes the weighted data-completion score for contractor
// records and applies field updates with rescoring and history tracking.
package scoring

import (
	"github.com/ayalamanuliber/contractor-hub/internal/model"
)

// Sub-score caps. They sum to exactly 100; the outer cap on the total is kept
// anyway so a future weight tweak cannot push the score out of range.
const (
	capBasicInfo      = 30
	capLocation       = 15
	capOnlinePresence = 20
	capBusinessIntel  = 25
	capEnhancement    = 10
)

// Result is the full scoring output for one record.
type Result struct {
	TotalScore             int                       `json:"total_score"`
	Breakdown              model.CompletionBreakdown `json:"breakdown"`
	Tier                   model.CompletionTier      `json:"tier"`
	MissingFields          []model.MissingField      `json:"missing_fields"`
	ImprovementSuggestions []string                  `json:"improvement_suggestions"`
}

// Score computes the completion score, tier, missing fields, and suggestions
// for a normalized record. Campaign presence never affects the score.
func Score(rec *model.ContractorRecord) Result {
	b := model.CompletionBreakdown{
		BasicInfo:      scoreBasicInfo(rec),
		Location:       scoreLocation(rec),
		OnlinePresence: scoreOnlinePresence(rec),
		BusinessIntel:  scoreBusinessIntel(rec),
		Enhancement:    scoreEnhancement(rec),
	}

	total := b.Sum()
	if total > 100 {
		total = 100
	}

	return Result{
		TotalScore:             total,
		Breakdown:              b,
		Tier:                   TierFor(total),
		MissingFields:          missingFields(rec),
		ImprovementSuggestions: suggestions(b),
	}
}

// Apply writes a scoring result onto the record's derived fields.
func Apply(rec *model.ContractorRecord, res Result) {
	rec.DataCompletionScore = res.TotalScore
	rec.CompletionBreakdown = res.Breakdown
	rec.CompletionTier = res.Tier
	rec.MissingFields = res.MissingFields
	rec.ImprovementSuggestions = res.ImprovementSuggestions
}

// TierFor maps a total score to its completion tier. Boundaries are inclusive
// lower bounds; every score 0-100 lands in exactly one tier.
func TierFor(score int) model.CompletionTier {
	switch {
	case score >= 90:
		return model.CompletionPremium
	case score >= 80:
		return model.CompletionReady
	case score >= 70:
		return model.CompletionGood
	case score >= 50:
		return model.CompletionNeedsWork
	default:
		return model.CompletionPoor
	}
}

func scoreBasicInfo(rec *model.ContractorRecord) int {
	s := 0
	if rec.CompanyName != "" && rec.CompanyName != model.DefaultCompanyName {
		s += 10
	}
	if rec.Category != "" && rec.Category != model.DefaultCategory {
		s += 5
	}
	if rec.PrimaryEmail != "" {
		s += 10
	}
	if rec.Phone != "" {
		s += 5
	}
	return capAt(s, capBasicInfo)
}

func scoreLocation(rec *model.ContractorRecord) int {
	s := 0
	if rec.AddressFull != "" {
		s += 5
	}
	if rec.City != "" {
		s += 3
	}
	if rec.StateCode != "" {
		s += 4
	}
	if rec.PostalCode != "" {
		s += 3
	}
	return capAt(s, capLocation)
}

func scoreOnlinePresence(rec *model.ContractorRecord) int {
	s := 0
	if rec.Website != "" {
		s += 8
	}
	if rec.GoogleRating > 0 {
		s += 7
	}
	if rec.GoogleReviewsCount > 0 {
		s += 5
	}
	return capAt(s, capOnlinePresence)
}

func scoreBusinessIntel(rec *model.ContractorRecord) int {
	s := 0
	if rec.BusinessHealth != model.HealthUnknown && rec.BusinessHealth != "" {
		s += 8
	}
	if rec.SophisticationTier != model.TierUnknownSoph && rec.SophisticationTier != "" {
		s += 7
	}
	if rec.TrustScore > 0 {
		s += 5
	}
	if rec.PricingPsychology != model.DefaultPricing && rec.PricingPsychology != "" {
		s += 5
	}
	return capAt(s, capBusinessIntel)
}

func scoreEnhancement(rec *model.ContractorRecord) int {
	s := 0
	if rec.EmailQuality == model.EmailProfessionalDomain {
		s += 3
	}
	if rec.ConversionProbability == "high" {
		s += 3
	}
	if rec.PrimaryAngle != model.DefaultAngle && rec.PrimaryAngle != "" {
		s += 2
	}
	if rec.SophisticationScore > 50 {
		s += 2
	}
	return capAt(s, capEnhancement)
}

func capAt(s, limit int) int {
	if s > limit {
		return limit
	}
	return s
}

// Fixed impact strings surfaced with each missing field.
var fieldImpacts = map[string]string{
	"company_name":    "Identifies the business in every email and export",
	"primary_email":   "Required to run any outreach campaign",
	"phone":           "Enables call follow-up after email sequences",
	"website":         "Signals legitimacy and feeds online-presence scoring",
	"address_full":    "Needed for local-market targeting",
	"google_rating":   "Social proof used in email personalization",
	"business_health": "Drives outreach priority and angle selection",
}

// missingFields lists absent data points ordered HIGH, MEDIUM, LOW.
func missingFields(rec *model.ContractorRecord) []model.MissingField {
	var out []model.MissingField

	if rec.CompanyName == "" || rec.CompanyName == model.DefaultCompanyName {
		out = append(out, model.MissingField{Field: "company_name", Priority: "HIGH", Impact: fieldImpacts["company_name"]})
	}
	if rec.PrimaryEmail == "" {
		out = append(out, model.MissingField{Field: "primary_email", Priority: "HIGH", Impact: fieldImpacts["primary_email"]})
	}
	if rec.Phone == "" {
		out = append(out, model.MissingField{Field: "phone", Priority: "MEDIUM", Impact: fieldImpacts["phone"]})
	}
	if rec.Website == "" {
		out = append(out, model.MissingField{Field: "website", Priority: "MEDIUM", Impact: fieldImpacts["website"]})
	}
	if rec.AddressFull == "" {
		out = append(out, model.MissingField{Field: "address_full", Priority: "MEDIUM", Impact: fieldImpacts["address_full"]})
	}
	if rec.GoogleRating == 0 {
		out = append(out, model.MissingField{Field: "google_rating", Priority: "LOW", Impact: fieldImpacts["google_rating"]})
	}
	if rec.BusinessHealth == model.HealthUnknown || rec.BusinessHealth == "" {
		out = append(out, model.MissingField{Field: "business_health", Priority: "LOW", Impact: fieldImpacts["business_health"]})
	}
	return out
}

// suggestions generates advisory text per weak sub-score band. Purely
// informational; nothing downstream computes on these.
func suggestions(b model.CompletionBreakdown) []string {
	var out []string
	if b.BasicInfo < 25 {
		out = append(out, "Complete basic contact info (name, category, email, phone) to unlock campaign generation")
	}
	if b.Location < 12 {
		out = append(out, "Fill in the full address to enable local-market segmentation")
	}
	if b.OnlinePresence < 15 {
		out = append(out, "Add website and Google review data to strengthen personalization")
	}
	if b.BusinessIntel < 20 {
		out = append(out, "Enrich business health and sophistication signals for better angle selection")
	}
	return out
}
