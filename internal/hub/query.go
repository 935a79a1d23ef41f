package hub

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ayalamanuliber/contractor-hub/internal/model"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// QueryParams filters and pages the contractor list.
type QueryParams struct {
	Page          int    `json:"page"`
	Limit         int    `json:"limit"`
	Search        string `json:"search"`
	Category      string `json:"category"`
	MinCompletion int    `json:"min_completion"`
	HasCampaign   *bool  `json:"has_campaign"`
	State         string `json:"state"`
	SortBy        string `json:"sort_by"`
	SortOrder     string `json:"sort_order"`
}

// Pagination describes the page window of a query response.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	PerPage     int  `json:"per_page"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

// QueryResult is one page of filtered contractors.
type QueryResult struct {
	Records    []model.ContractorRecord `json:"records"`
	Pagination Pagination               `json:"pagination"`
}

// Query filters, sorts, and pages the current dataset. It never blocks on a
// refresh; callers wanting fresh data go through Dataset first.
func (h *Hub) Query(params QueryParams) QueryResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var matched []model.ContractorRecord
	if h.dataset != nil {
		for i := range h.dataset.Contractors {
			if matches(&h.dataset.Contractors[i], params) {
				// Copy out so the page survives later in-place mutations.
				matched = append(matched, h.dataset.Contractors[i].Clone())
			}
		}
	}

	sortRecords(matched, params.SortBy, params.SortOrder)

	limit := params.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := params.Page
	if page < 1 {
		page = 1
	}

	total := len(matched)
	totalPages := (total + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	records := matched[start:end]
	if records == nil {
		records = []model.ContractorRecord{}
	}

	return QueryResult{
		Records: records,
		Pagination: Pagination{
			CurrentPage: page,
			PerPage:     limit,
			TotalItems:  total,
			TotalPages:  totalPages,
			HasNext:     page < totalPages,
			HasPrev:     page > 1,
		},
	}
}

func matches(rec *model.ContractorRecord, p QueryParams) bool {
	if p.Search != "" {
		q := strings.ToLower(p.Search)
		if !strings.Contains(strings.ToLower(rec.CompanyName), q) &&
			!strings.Contains(strings.ToLower(rec.Category), q) &&
			!strings.Contains(strings.ToLower(rec.City), q) &&
			!strings.Contains(strings.ToLower(rec.PrimaryEmail), q) {
			return false
		}
	}
	if p.Category != "" && !strings.EqualFold(rec.Category, p.Category) {
		return false
	}
	if p.MinCompletion > 0 && rec.DataCompletionScore < p.MinCompletion {
		return false
	}
	if p.HasCampaign != nil && rec.HasCampaign != *p.HasCampaign {
		return false
	}
	if p.State != "" && !strings.EqualFold(rec.StateCode, p.State) {
		return false
	}
	return true
}

// sortRecords orders the result set. The default is completion score
// descending with a locale-aware company name ascending tie-break.
func sortRecords(records []model.ContractorRecord, sortBy, sortOrder string) {
	coll := collate.New(language.English, collate.IgnoreCase)
	desc := false

	var less func(a, b *model.ContractorRecord) int
	switch sortBy {
	case "company_name":
		less = func(a, b *model.ContractorRecord) int {
			return coll.CompareString(a.CompanyName, b.CompanyName)
		}
		desc = sortOrder == "desc"
	case "updated_at":
		less = func(a, b *model.ContractorRecord) int {
			switch {
			case a.UpdatedAt.Before(b.UpdatedAt):
				return -1
			case a.UpdatedAt.After(b.UpdatedAt):
				return 1
			default:
				return 0
			}
		}
		desc = sortOrder == "desc"
	default: // data_completion_score
		less = func(a, b *model.ContractorRecord) int {
			return a.DataCompletionScore - b.DataCompletionScore
		}
		desc = sortOrder != "asc"
	}

	sort.SliceStable(records, func(i, j int) bool {
		c := less(&records[i], &records[j])
		if c == 0 {
			return coll.CompareString(records[i].CompanyName, records[j].CompanyName) < 0
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}
