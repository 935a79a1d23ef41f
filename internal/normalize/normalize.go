// Package normalize converts raw CSV rows and raw campaign JSON entries into
// canonical ContractorRecord and CampaignRecord values, applying one fixed
// default per field.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ayalamanuliber/contractor-hub/internal/identity"
	"github.com/ayalamanuliber/contractor-hub/internal/model"
)

// ErrMalformed marks a source row that fails required-field checks (missing
// business id or company name). Malformed rows are skipped, never fatal.
var ErrMalformed = eris.New("normalize: malformed record")

// CSV column names, grouped by source layer prefix.
const (
	ColBusinessID      = "business_id"
	ColCompletionScore = "data_completion_score"

	ColCompanyName  = "L1_company_name"
	ColCategory     = "L1_category"
	ColPrimaryEmail = "L1_primary_email"
	ColPhone        = "L1_phone"
	ColWebsite      = "L1_website"
	ColAddressFull  = "L1_address_full"
	ColCity         = "L1_city"
	ColStateCode    = "L1_state_code"
	ColPostalCode   = "L1_postal_code"
	ColGoogleRating = "L1_google_rating"
	ColGoogleCount  = "L1_google_reviews_count"

	ColBusinessHealth = "L2_business_health"
	ColPriority       = "L2_outreach_priority"
	ColTrustScore     = "L2_trust_score"

	ColSophScore = "L3_sophistication_score"
	ColSophTier  = "L3_sophistication_tier"
	ColEmailQual = "L3_email_quality"

	ColPricing    = "L5_pricing_psychology"
	ColAngle      = "L5_primary_angle"
	ColConversion = "L5_conversion_probability"
)

// RowMap zips a header row and a data row into a column map. Short rows leave
// trailing columns absent.
func RowMap(header, row []string) map[string]string {
	m := make(map[string]string, len(header))
	for i, col := range header {
		if i >= len(row) {
			break
		}
		m[col] = strings.TrimSpace(row[i])
	}
	return m
}

// FromCSVRow builds a partial ContractorRecord from one CSV row. Scoring
// fields are left zero; the completion scorer owns them. The raw row is
// retained verbatim for export round-trips.
func FromCSVRow(row map[string]string) (*model.ContractorRecord, error) {
	id := identity.NormalizeID(row[ColBusinessID])
	if id == "" {
		return nil, eris.Wrapf(ErrMalformed, "empty or all-zero business id %q", row[ColBusinessID])
	}

	name := strings.TrimSpace(row[ColCompanyName])
	if name == "" {
		return nil, eris.Wrapf(ErrMalformed, "missing company name for id %s", id)
	}

	rec := &model.ContractorRecord{
		BusinessID:   id,
		CompanyName:  name,
		Category:     stringOr(row[ColCategory], model.DefaultCategory),
		PrimaryEmail: row[ColPrimaryEmail],
		Phone:        row[ColPhone],
		Website:      row[ColWebsite],
		AddressFull:  row[ColAddressFull],
		City:         row[ColCity],
		StateCode:    strings.ToUpper(row[ColStateCode]),
		PostalCode:   row[ColPostalCode],

		GoogleRating:       parseNonNegFloat(row[ColGoogleRating]),
		GoogleReviewsCount: parseNonNegInt(row[ColGoogleCount]),
		BusinessHealth:     parseHealth(row[ColBusinessHealth]),
		OutreachPriority:   parsePriority(row[ColPriority]),

		SophisticationScore: parseBoundedInt(row[ColSophScore], 0, 100),
		SophisticationTier:  parseSophTier(row[ColSophTier]),
		EmailQuality:        parseEmailQuality(row[ColEmailQual]),
		TrustScore:          parseNonNegFloat(row[ColTrustScore]),

		PricingPsychology:     stringOr(row[ColPricing], model.DefaultPricing),
		PrimaryAngle:          stringOr(row[ColAngle], model.DefaultAngle),
		ConversionProbability: stringOr(strings.ToLower(row[ColConversion]), "unknown"),

		// Prior hub score travels with the row but is only accepted in range.
		DataCompletionScore: parseBoundedInt(row[ColCompletionScore], 0, 100),

		RawCSVData: row,
	}
	return rec, nil
}

// CampaignOnly synthesizes a minimal record for a campaign id that has no
// matching CSV row. Completion score stays 0 and the business is flagged for
// attention.
func CampaignOnly(campaign *model.CampaignRecord, now time.Time) *model.ContractorRecord {
	return &model.ContractorRecord{
		BusinessID:            campaign.BusinessID,
		CompanyName:           stringOr(campaign.CompanyName, model.DefaultCompanyName),
		Category:              model.DefaultCategory,
		BusinessHealth:        model.HealthNeedsAttention,
		OutreachPriority:      model.PriorityMedium,
		SophisticationTier:    model.TierUnknownSoph,
		EmailQuality:          model.EmailUnknown,
		PricingPsychology:     model.DefaultPricing,
		PrimaryAngle:          model.DefaultAngle,
		ConversionProbability: "unknown",
		HasCampaign:           true,
		CampaignData:          campaign,
		CampaignStatus:        model.CampaignReady,
		CompletionTier:        model.CompletionPoor,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// RawCampaignEntry mirrors one entry of the campaign JSON database before
// canonicalization. BusinessID may arrive as a string or a number.
type RawCampaignEntry struct {
	BusinessID     any                 `json:"business_id"`
	CompanyName    string              `json:"company_name"`
	ContactTiming  model.ContactTiming `json:"contact_timing"`
	EmailSequences []RawEmailSequence  `json:"email_sequences"`
}

// RawEmailSequence is one raw sequence email; unknown statuses degrade to
// pending.
type RawEmailSequence struct {
	EmailNumber   int        `json:"email_number"`
	Subject       string     `json:"subject"`
	Body          string     `json:"body"`
	Status        string     `json:"status"`
	SentDate      *time.Time `json:"sent_date,omitempty"`
	OpenedDate    *time.Time `json:"opened_date,omitempty"`
	RespondedDate *time.Time `json:"responded_date,omitempty"`
}

// CampaignFromRaw canonicalizes a raw campaign entry. The map key from the
// campaign JSON wins over an embedded business_id field so that both sources
// of the id pass through the same normalization.
func CampaignFromRaw(key string, raw RawCampaignEntry) (*model.CampaignRecord, error) {
	id := identity.NormalizeID(key)
	if id == "" {
		id = identity.NormalizeIDAny(raw.BusinessID)
	}
	if id == "" {
		return nil, eris.Wrapf(ErrMalformed, "campaign entry %q has no usable business id", key)
	}

	rec := &model.CampaignRecord{
		BusinessID:    id,
		CompanyName:   raw.CompanyName,
		ContactTiming: raw.ContactTiming,
	}
	for i, e := range raw.EmailSequences {
		num := e.EmailNumber
		if num == 0 {
			num = i + 1
		}
		rec.EmailSequences = append(rec.EmailSequences, model.EmailSequence{
			EmailNumber:   num,
			Subject:       e.Subject,
			Body:          e.Body,
			Status:        parseEmailStatus(e.Status),
			SentDate:      e.SentDate,
			OpenedDate:    e.OpenedDate,
			RespondedDate: e.RespondedDate,
		})
	}
	return rec, nil
}

func stringOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// parseNonNegFloat parses a float, rejecting failures and negatives as 0.
func parseNonNegFloat(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func parseNonNegInt(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseBoundedInt accepts the raw value only when it parses and lands within
// [lo, hi]; anything else defaults to 0.
func parseBoundedInt(v string, lo, hi int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < lo || n > hi {
		return 0
	}
	return n
}

func parseHealth(v string) model.BusinessHealth {
	switch model.BusinessHealth(strings.ToUpper(strings.TrimSpace(v))) {
	case model.HealthHealthy:
		return model.HealthHealthy
	case model.HealthEmerging:
		return model.HealthEmerging
	case model.HealthStruggling:
		return model.HealthStruggling
	case model.HealthNeedsAttention:
		return model.HealthNeedsAttention
	default:
		return model.HealthUnknown
	}
}

func parsePriority(v string) model.OutreachPriority {
	switch model.OutreachPriority(strings.ToUpper(strings.TrimSpace(v))) {
	case model.PriorityHigh:
		return model.PriorityHigh
	case model.PriorityLow:
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}

func parseSophTier(v string) model.SophisticationTier {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "professional":
		return model.TierProfessional
	case "established":
		return model.TierEstablished
	case "growing":
		return model.TierGrowing
	case "amateur":
		return model.TierAmateur
	default:
		return model.TierUnknownSoph
	}
}

func parseEmailQuality(v string) model.EmailQuality {
	switch model.EmailQuality(strings.ToUpper(strings.TrimSpace(v))) {
	case model.EmailProfessionalDomain:
		return model.EmailProfessionalDomain
	case model.EmailPersonalDomain:
		return model.EmailPersonalDomain
	default:
		return model.EmailUnknown
	}
}

func parseEmailStatus(v string) model.EmailStatus {
	switch model.EmailStatus(strings.ToLower(strings.TrimSpace(v))) {
	case model.EmailScheduled:
		return model.EmailScheduled
	case model.EmailSent:
		return model.EmailSent
	case model.EmailOpened:
		return model.EmailOpened
	case model.EmailResponded:
		return model.EmailResponded
	default:
		return model.EmailPending
	}
}
