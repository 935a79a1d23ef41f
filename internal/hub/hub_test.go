package hub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayalamanuliber/contractor-hub/internal/model"
	"github.com/ayalamanuliber/contractor-hub/internal/scoring"
	"github.com/ayalamanuliber/contractor-hub/internal/store"
	"github.com/ayalamanuliber/contractor-hub/internal/unify"
)

// fakeStore records persistence calls without a real database.
type fakeStore struct {
	saved     []*model.Dataset
	history   map[string][]model.ScoreChange
	latest    *model.Dataset
	latestErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{history: map[string][]model.ScoreChange{}}
}

func (f *fakeStore) SaveDataset(_ context.Context, ds *model.Dataset) error {
	f.saved = append(f.saved, ds)
	return nil
}

func (f *fakeStore) LatestDataset(_ context.Context) (*model.Dataset, error) {
	return f.latest, f.latestErr
}

func (f *fakeStore) AppendScoreHistory(_ context.Context, id string, change model.ScoreChange) error {
	f.history[id] = append(f.history[id], change)
	return nil
}

func (f *fakeStore) ScoreHistory(_ context.Context, id string) ([]model.ScoreChange, error) {
	return f.history[id], nil
}

func (f *fakeStore) SaveExportLog(context.Context, store.ExportLog) error { return nil }

func (f *fakeStore) Migrate(context.Context) error { return nil }

func (f *fakeStore) Close() error { return nil }

// testDataset unifies a small fixed set of rows so hub tests exercise the
// same records the rest of the system produces.
func testDataset(t *testing.T, campaigns []*model.CampaignRecord) *model.Dataset {
	t.Helper()
	rows := []map[string]string{
		{
			"business_id": "42", "L1_company_name": "Acme Roofing",
			"L1_primary_email": "a@acme.com", "L1_phone": "555-1111",
		},
		{
			"business_id": "77", "L1_company_name": "Best Builders",
			"L1_primary_email": "info@best.com", "L1_phone": "555-2222",
			"L1_website": "https://best.com", "L1_address_full": "1 Main St",
			"L1_city": "Austin", "L1_state_code": "TX", "L1_postal_code": "78701",
			"L1_google_rating": "4.8", "L1_google_reviews_count": "120",
			"L2_business_health": "HEALTHY", "L3_sophistication_score": "80",
			"L3_sophistication_tier": "ADVANCED", "L2_trust_score": "9",
			"L5_pricing_psychology": "Premium",
		},
	}
	ds, _, err := unify.Unify(rows, campaigns, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return ds
}

func testCampaign(id string) *model.CampaignRecord {
	return &model.CampaignRecord{
		BusinessID:  id,
		CompanyName: "Acme Roofing",
		EmailSequences: []model.EmailSequence{
			{EmailNumber: 1, Subject: "Intro", Status: model.EmailPending},
			{EmailNumber: 2, Subject: "Follow up", Status: model.EmailPending},
			{EmailNumber: 3, Subject: "Last call", Status: model.EmailPending},
		},
	}
}

func TestDataset_TTLCache(t *testing.T) {
	loads := 0
	h := New(func(context.Context) (*model.Dataset, error) {
		loads++
		return testDataset(t, nil), nil
	}, nil, 5*time.Minute)

	_, err := h.Dataset(context.Background(), false)
	require.NoError(t, err)
	_, err = h.Dataset(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, loads, "second call within TTL must hit the cache")

	_, err = h.Dataset(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, loads, "force bypasses the TTL")
}

func TestDataset_TTLExpiry(t *testing.T) {
	loads := 0
	h := New(func(context.Context) (*model.Dataset, error) {
		loads++
		return testDataset(t, nil), nil
	}, nil, 5*time.Minute)

	clock := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return clock }

	_, err := h.Dataset(context.Background(), false)
	require.NoError(t, err)

	clock = clock.Add(6 * time.Minute)
	_, err = h.Dataset(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestDataset_FailedRefreshKeepsPrevious(t *testing.T) {
	loads := 0
	h := New(func(context.Context) (*model.Dataset, error) {
		loads++
		if loads > 1 {
			return nil, eris.New("source went away")
		}
		return testDataset(t, nil), nil
	}, nil, 5*time.Minute)

	first, err := h.Dataset(context.Background(), false)
	require.NoError(t, err)

	second, err := h.Dataset(context.Background(), true)
	require.NoError(t, err, "failed refresh degrades to the prior dataset")
	assert.Equal(t, first, second)
}

func TestDataset_InitialLoadFailureIsFatal(t *testing.T) {
	h := New(func(context.Context) (*model.Dataset, error) {
		return nil, eris.New("no csv")
	}, nil, time.Minute)

	_, err := h.Dataset(context.Background(), false)
	require.Error(t, err)
}

func TestDataset_PersistsSnapshot(t *testing.T) {
	st := newFakeStore()
	h := New(func(context.Context) (*model.Dataset, error) {
		return testDataset(t, nil), nil
	}, st, time.Minute)

	_, err := h.Dataset(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, st.saved, 1)
	assert.Len(t, st.saved[0].Contractors, 2)
}

func TestRestore(t *testing.T) {
	st := newFakeStore()
	st.latest = testDataset(t, nil)

	h := New(nil, st, time.Minute)
	require.NoError(t, h.Restore(context.Background()))

	res := h.Query(QueryParams{})
	assert.Equal(t, 2, res.Pagination.TotalItems)
}

func TestUpdateRecord_ScoreAndHistory(t *testing.T) {
	st := newFakeStore()
	h := New(func(context.Context) (*model.Dataset, error) {
		return testDataset(t, nil), nil
	}, st, time.Minute)
	_, err := h.Dataset(context.Background(), false)
	require.NoError(t, err)

	res, err := h.UpdateRecord(context.Background(), "42", map[string]string{
		"website": "https://acme.com",
	})
	require.NoError(t, err)
	assert.Equal(t, 8, res.Change) // website adds 8 to online presence
	require.Len(t, st.history["42"], 1)
	assert.Equal(t, res.NewScore, st.history["42"][0].NewScore)
}

func TestUpdateRecord_ValidationFailureLeavesRecord(t *testing.T) {
	h := New(func(context.Context) (*model.Dataset, error) {
		return testDataset(t, nil), nil
	}, nil, time.Minute)
	before, err := h.Record(context.Background(), "42")
	require.NoError(t, err)

	_, err = h.UpdateRecord(context.Background(), "42", map[string]string{
		"state_code": "Texas",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "State code must be 2 characters")

	after, err := h.Record(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdateRecord_UnknownID(t *testing.T) {
	h := New(func(context.Context) (*model.Dataset, error) {
		return testDataset(t, nil), nil
	}, nil, time.Minute)
	_, err := h.Dataset(context.Background(), false)
	require.NoError(t, err)

	_, err = h.UpdateRecord(context.Background(), "9999", map[string]string{"city": "Austin"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestBulkUpdate_PartialFailure(t *testing.T) {
	h := New(func(context.Context) (*model.Dataset, error) {
		return testDataset(t, nil), nil
	}, nil, time.Minute)
	_, err := h.Dataset(context.Background(), false)
	require.NoError(t, err)

	res := h.BulkUpdate(context.Background(), map[string]map[string]string{
		"42":   {"city": "Dallas"},
		"9999": {"city": "Nowhere"},
	})
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, res.Errors, "9999")
}

func TestMarkEmailSent_FunnelTransitions(t *testing.T) {
	h := New(func(context.Context) (*model.Dataset, error) {
		return testDataset(t, []*model.CampaignRecord{testCampaign("42")}), nil
	}, nil, time.Minute)
	_, err := h.Dataset(context.Background(), false)
	require.NoError(t, err)

	rec, err := h.MarkEmailSent(context.Background(), "42", 1)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignSent, rec.CampaignStatus)

	rec, err = h.MarkEmailSent(context.Background(), "42", 2)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignSent, rec.CampaignStatus)

	rec, err = h.MarkEmailSent(context.Background(), "42", 3)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignComplete, rec.CampaignStatus)

	// Re-sending is idempotent.
	rec, err = h.MarkEmailSent(context.Background(), "42", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.CampaignData.SentCount())
}

func TestMarkEmailSent_Errors(t *testing.T) {
	h := New(func(context.Context) (*model.Dataset, error) {
		return testDataset(t, []*model.CampaignRecord{testCampaign("42")}), nil
	}, nil, time.Minute)
	_, err := h.Dataset(context.Background(), false)
	require.NoError(t, err)

	_, err = h.MarkEmailSent(context.Background(), "77", 1)
	assert.Error(t, err, "record without campaign")

	_, err = h.MarkEmailSent(context.Background(), "42", 4)
	assert.Error(t, err, "email number out of range")

	_, err = h.MarkEmailSent(context.Background(), "9999", 1)
	assert.Error(t, err, "unknown id")
}

func TestExecution_Funnel(t *testing.T) {
	h := New(func(context.Context) (*model.Dataset, error) {
		return testDataset(t, []*model.CampaignRecord{testCampaign("42")}), nil
	}, nil, time.Minute)
	_, err := h.Dataset(context.Background(), false)
	require.NoError(t, err)

	state := h.Execution()
	// 77 has no campaign but scores high enough to queue for generation.
	assert.Equal(t, 1, state.Queue)
	assert.Equal(t, 1, state.Ready)
	assert.Equal(t, 0, state.Sent)
	assert.Equal(t, 1, state.TotalCampaign)
	assert.Equal(t, 0, state.SentThisWeek)

	_, err = h.MarkEmailSent(context.Background(), "42", 1)
	require.NoError(t, err)

	state = h.Execution()
	assert.Equal(t, 0, state.Ready)
	assert.Equal(t, 1, state.Sent)
	assert.Equal(t, 1, state.SentThisWeek)
}

func TestRefresh_CarriesCampaignProgress(t *testing.T) {
	h := New(func(context.Context) (*model.Dataset, error) {
		return testDataset(t, []*model.CampaignRecord{testCampaign("42")}), nil
	}, nil, time.Minute)
	_, err := h.Dataset(context.Background(), false)
	require.NoError(t, err)

	_, err = h.MarkEmailSent(context.Background(), "42", 1)
	require.NoError(t, err)

	// The loader returns pristine pending sequences; the hub replays the
	// send progress onto the fresh dataset.
	ds, err := h.Dataset(context.Background(), true)
	require.NoError(t, err)

	rec := ds.Record("42")
	require.NotNil(t, rec)
	assert.Equal(t, model.CampaignSent, rec.CampaignStatus)
	assert.Equal(t, 1, rec.CampaignData.SentCount())

	state := h.Execution()
	assert.Equal(t, 1, state.SentThisWeek)
}

func TestUpdateRecord_EmptyUpdateBumpsTimestampOnly(t *testing.T) {
	h := New(func(context.Context) (*model.Dataset, error) {
		return testDataset(t, nil), nil
	}, nil, time.Minute)
	before, err := h.Record(context.Background(), "42")
	require.NoError(t, err)

	res, err := h.UpdateRecord(context.Background(), "42", nil)
	require.NoError(t, err)
	assert.Equal(t, scoring.ChangeNone, res.Magnitude)

	after, err := h.Record(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, before.DataCompletionScore, after.DataCompletionScore)
	assert.Empty(t, after.ScoreHistory)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestMarkEmailSent_OutOfOrderSequences(t *testing.T) {
	campaign := &model.CampaignRecord{
		BusinessID:  "42",
		CompanyName: "Acme Roofing",
		EmailSequences: []model.EmailSequence{
			{EmailNumber: 2, Subject: "Follow up", Status: model.EmailPending},
			{EmailNumber: 1, Subject: "Intro", Status: model.EmailPending},
			{EmailNumber: 3, Subject: "Last call", Status: model.EmailPending},
		},
	}
	h := New(func(context.Context) (*model.Dataset, error) {
		return testDataset(t, []*model.CampaignRecord{campaign}), nil
	}, nil, time.Minute)
	_, err := h.Dataset(context.Background(), false)
	require.NoError(t, err)

	// Email 1 sits at array index 1 here; sends must match on the declared
	// number, not the position.
	rec, err := h.MarkEmailSent(context.Background(), "42", 1)
	require.NoError(t, err)

	e1 := rec.CampaignData.SequenceByNumber(1)
	require.NotNil(t, e1)
	assert.Equal(t, model.EmailSent, e1.Status)
	e2 := rec.CampaignData.SequenceByNumber(2)
	require.NotNil(t, e2)
	assert.Equal(t, model.EmailPending, e2.Status)
}

func TestDataset_CopiesAreIsolatedFromMutations(t *testing.T) {
	h := New(func(context.Context) (*model.Dataset, error) {
		return testDataset(t, []*model.CampaignRecord{testCampaign("42")}), nil
	}, nil, time.Minute)

	snap, err := h.Dataset(context.Background(), false)
	require.NoError(t, err)

	_, err = h.UpdateRecord(context.Background(), "77", map[string]string{"city": "Dallas"})
	require.NoError(t, err)
	_, err = h.MarkEmailSent(context.Background(), "42", 1)
	require.NoError(t, err)

	// The copy handed out before the mutations still shows the old state.
	assert.Equal(t, "Austin", snap.Record("77").City)
	assert.Equal(t, model.CampaignReady, snap.Record("42").CampaignStatus)
	assert.Equal(t, 0, snap.Record("42").CampaignData.SentCount())

	// And writing into a copy never reaches the hub.
	snap.Record("77").CompanyName = "Scribbled Over"
	cur, err := h.Record(context.Background(), "77")
	require.NoError(t, err)
	assert.Equal(t, "Best Builders", cur.CompanyName)
}

func TestHub_ConcurrentReadersAndWriters(t *testing.T) {
	h := New(func(context.Context) (*model.Dataset, error) {
		return testDataset(t, []*model.CampaignRecord{testCampaign("42")}), nil
	}, nil, time.Minute)
	_, err := h.Dataset(context.Background(), false)
	require.NoError(t, err)

	// Readers walk full copies while writers rescore and advance the
	// funnel. Run with -race to verify the copies really detach.
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				ds, derr := h.Dataset(context.Background(), false)
				if derr != nil {
					continue
				}
				for j := range ds.Contractors {
					_ = ds.Contractors[j].DataCompletionScore
					_ = ds.Contractors[j].Enhanced()
				}
				_ = h.Query(QueryParams{Search: "roofing"})
				_ = h.Execution()
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, _ = h.UpdateRecord(context.Background(), "77", map[string]string{"city": "Dallas"})
				_, _ = h.MarkEmailSent(context.Background(), "42", 1+i%3)
			}
		}()
	}
	wg.Wait()

	cur, err := h.Record(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, model.CampaignComplete, cur.CampaignStatus)
}
