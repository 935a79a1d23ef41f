package hub

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayalamanuliber/contractor-hub/internal/model"
)

func queryHub(records ...model.ContractorRecord) *Hub {
	h := New(nil, nil, time.Minute)
	h.dataset = &model.Dataset{Contractors: records}
	h.loadedAt = time.Now()
	return h
}

func rec(id, name string, score int) model.ContractorRecord {
	return model.ContractorRecord{
		BusinessID:          id,
		CompanyName:         name,
		Category:            "Roofing",
		DataCompletionScore: score,
	}
}

func TestQuery_DefaultSortScoreDescNameTieBreak(t *testing.T) {
	h := queryHub(
		rec("1", "Zeta Roofing", 80),
		rec("2", "alpha roofing", 80),
		rec("3", "Mid Build", 95),
	)

	res := h.Query(QueryParams{})
	require.Len(t, res.Records, 3)
	assert.Equal(t, "3", res.Records[0].BusinessID)
	// Equal scores break ties on company name, case-insensitively.
	assert.Equal(t, "2", res.Records[1].BusinessID)
	assert.Equal(t, "1", res.Records[2].BusinessID)
}

func TestQuery_SortByCompanyName(t *testing.T) {
	h := queryHub(
		rec("1", "Charlie Co", 10),
		rec("2", "Able Co", 20),
		rec("3", "Baker Co", 30),
	)

	res := h.Query(QueryParams{SortBy: "company_name"})
	assert.Equal(t, []string{"2", "3", "1"}, ids(res))

	res = h.Query(QueryParams{SortBy: "company_name", SortOrder: "desc"})
	assert.Equal(t, []string{"1", "3", "2"}, ids(res))
}

func TestQuery_Search(t *testing.T) {
	a := rec("1", "Acme Roofing", 50)
	a.City = "Austin"
	b := rec("2", "Best Builders", 60)
	b.PrimaryEmail = "sales@acmegroup.com"
	c := rec("3", "Other Co", 70)
	h := queryHub(a, b, c)

	res := h.Query(QueryParams{Search: "acme"})
	assert.ElementsMatch(t, []string{"1", "2"}, ids(res))

	res = h.Query(QueryParams{Search: "austin"})
	assert.Equal(t, []string{"1"}, ids(res))
}

func TestQuery_Filters(t *testing.T) {
	a := rec("1", "Acme", 95)
	a.StateCode = "TX"
	a.HasCampaign = true
	b := rec("2", "Best", 60)
	b.StateCode = "CA"
	c := rec("3", "Cobalt", 85)
	c.StateCode = "tx"
	h := queryHub(a, b, c)

	res := h.Query(QueryParams{MinCompletion: 80})
	assert.ElementsMatch(t, []string{"1", "3"}, ids(res))

	res = h.Query(QueryParams{State: "TX"})
	assert.ElementsMatch(t, []string{"1", "3"}, ids(res), "state match is case-insensitive")

	yes := true
	res = h.Query(QueryParams{HasCampaign: &yes})
	assert.Equal(t, []string{"1"}, ids(res))

	no := false
	res = h.Query(QueryParams{HasCampaign: &no})
	assert.ElementsMatch(t, []string{"2", "3"}, ids(res))

	res = h.Query(QueryParams{Category: "roofing"})
	assert.Len(t, res.Records, 3)
}

func TestQuery_Pagination(t *testing.T) {
	var records []model.ContractorRecord
	for i := 0; i < 45; i++ {
		records = append(records, rec(fmt.Sprintf("%d", i), fmt.Sprintf("Co %02d", i), i))
	}
	h := queryHub(records...)

	res := h.Query(QueryParams{Page: 1, Limit: 20})
	assert.Len(t, res.Records, 20)
	assert.Equal(t, Pagination{
		CurrentPage: 1, PerPage: 20, TotalItems: 45, TotalPages: 3,
		HasNext: true, HasPrev: false,
	}, res.Pagination)

	res = h.Query(QueryParams{Page: 3, Limit: 20})
	assert.Len(t, res.Records, 5)
	assert.True(t, res.Pagination.HasPrev)
	assert.False(t, res.Pagination.HasNext)

	// Out-of-range page clamps to the last page.
	res = h.Query(QueryParams{Page: 99, Limit: 20})
	assert.Equal(t, 3, res.Pagination.CurrentPage)
	assert.Len(t, res.Records, 5)
}

func TestQuery_LimitCap(t *testing.T) {
	var records []model.ContractorRecord
	for i := 0; i < 80; i++ {
		records = append(records, rec(fmt.Sprintf("%d", i), "Co", i))
	}
	h := queryHub(records...)

	res := h.Query(QueryParams{Limit: 500})
	assert.Len(t, res.Records, 50)
	assert.Equal(t, 50, res.Pagination.PerPage)
}

func TestQuery_EmptyDataset(t *testing.T) {
	h := New(nil, nil, time.Minute)
	res := h.Query(QueryParams{})
	assert.NotNil(t, res.Records)
	assert.Empty(t, res.Records)
	assert.Equal(t, 0, res.Pagination.TotalItems)
	assert.Equal(t, 1, res.Pagination.TotalPages)
}

func ids(res QueryResult) []string {
	out := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		out = append(out, r.BusinessID)
	}
	return out
}
