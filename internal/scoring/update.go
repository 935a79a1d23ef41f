package scoring

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/ayalamanuliber/contractor-hub/internal/model"
)

// ErrInvalidField marks a rejected field update. The record is left untouched
// when any update in the batch fails validation.
var ErrInvalidField = eris.New("scoring: invalid field update")

// ChangeMagnitude classifies the size of a score delta for UI feedback.
type ChangeMagnitude string

const (
	ChangeNone        ChangeMagnitude = "NONE"
	ChangeMinor       ChangeMagnitude = "MINOR"       // > 0
	ChangeModerate    ChangeMagnitude = "MODERATE"    // >= 5
	ChangeSignificant ChangeMagnitude = "SIGNIFICANT" // >= 10
	ChangeMajor       ChangeMagnitude = "MAJOR"       // >= 20
)

// UpdateResult reports the outcome of one field-update-and-rescore pass.
type UpdateResult struct {
	OldScore  int                  `json:"old_score"`
	NewScore  int                  `json:"new_score"`
	Change    int                  `json:"change"`
	Magnitude ChangeMagnitude      `json:"magnitude"`
	Tier      model.CompletionTier `json:"tier"`
	Updated   []string             `json:"updated_fields"`
}

// ApplyUpdate validates and applies field updates onto the record, rescores,
// and appends to score history only when the total actually moved.
// UpdatedAt is bumped unconditionally, even for zero-effect updates; the hub
// treats it as a "touched" timestamp.
func ApplyUpdate(rec *model.ContractorRecord, updates map[string]string, now time.Time) (UpdateResult, error) {
	// Validate and stage on a copy so a failed update leaves the record and
	// its previous score intact.
	staged := *rec
	var fields []string
	for field, value := range updates {
		if err := applyField(&staged, field, value); err != nil {
			return UpdateResult{}, err
		}
		fields = append(fields, field)
	}
	// Map iteration order is random; keep the reported field list stable.
	sort.Strings(fields)

	res := Score(&staged)
	if res.TotalScore < 0 || res.TotalScore > 100 || res.Breakdown.Sum() != res.TotalScore {
		// Derived score failed to recompute consistently; keep the old score.
		return UpdateResult{}, eris.Errorf("scoring: inconsistent rescore for %s (breakdown %d vs total %d)",
			rec.BusinessID, res.Breakdown.Sum(), res.TotalScore)
	}

	oldScore := rec.DataCompletionScore
	*rec = staged
	Apply(rec, res)
	rec.UpdatedAt = now

	delta := res.TotalScore - oldScore
	if delta != 0 {
		rec.ScoreHistory = append(rec.ScoreHistory, model.ScoreChange{
			Date:          now,
			OldScore:      oldScore,
			NewScore:      res.TotalScore,
			Change:        delta,
			FieldsUpdated: fields,
		})
	}

	return UpdateResult{
		OldScore:  oldScore,
		NewScore:  res.TotalScore,
		Change:    delta,
		Magnitude: classifyChange(delta),
		Tier:      res.Tier,
		Updated:   fields,
	}, nil
}

func classifyChange(delta int) ChangeMagnitude {
	abs := delta
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 20:
		return ChangeMajor
	case abs >= 10:
		return ChangeSignificant
	case abs >= 5:
		return ChangeModerate
	case abs > 0:
		return ChangeMinor
	default:
		return ChangeNone
	}
}

// applyField validates a single update and writes it onto the staged record.
func applyField(rec *model.ContractorRecord, field, value string) error {
	value = strings.TrimSpace(value)

	switch field {
	case "company_name":
		rec.CompanyName = value
	case "category":
		rec.Category = value
	case "primary_email":
		if value != "" && !strings.Contains(value, "@") {
			return eris.Wrapf(ErrInvalidField, "primary_email %q is not an email address", value)
		}
		rec.PrimaryEmail = value
	case "phone":
		rec.Phone = value
	case "website":
		rec.Website = value
	case "address_full":
		rec.AddressFull = value
	case "city":
		rec.City = value
	case "state_code":
		if value != "" && len(value) != 2 {
			return eris.Wrap(ErrInvalidField, "State code must be 2 characters")
		}
		rec.StateCode = strings.ToUpper(value)
	case "postal_code":
		rec.PostalCode = value
	case "google_rating":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 || f > 5 {
			return eris.Wrapf(ErrInvalidField, "google_rating %q must be a number between 0 and 5", value)
		}
		rec.GoogleRating = f
	case "google_reviews_count":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return eris.Wrapf(ErrInvalidField, "google_reviews_count %q must be a non-negative integer", value)
		}
		rec.GoogleReviewsCount = n
	case "trust_score":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return eris.Wrapf(ErrInvalidField, "trust_score %q must be a non-negative number", value)
		}
		rec.TrustScore = f
	case "sophistication_score":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 100 {
			return eris.Wrapf(ErrInvalidField, "sophistication_score %q must be 0-100", value)
		}
		rec.SophisticationScore = n
	case "business_health":
		rec.BusinessHealth = model.BusinessHealth(strings.ToUpper(value))
	case "sophistication_tier":
		rec.SophisticationTier = model.SophisticationTier(value)
	case "email_quality":
		rec.EmailQuality = model.EmailQuality(strings.ToUpper(value))
	case "outreach_priority":
		rec.OutreachPriority = model.OutreachPriority(strings.ToUpper(value))
	case "pricing_psychology":
		rec.PricingPsychology = value
	case "primary_angle":
		rec.PrimaryAngle = value
	case "conversion_probability":
		rec.ConversionProbability = strings.ToLower(value)
	default:
		return eris.Wrapf(ErrInvalidField, "unknown field %q", field)
	}
	return nil
}
