// Package hub owns the unified contractor dataset: a TTL-gated cache over
// the unification pass, a serialized mutation path for single-record edits,
// and the query/funnel views served by the REST layer.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ayalamanuliber/contractor-hub/internal/model"
	"github.com/ayalamanuliber/contractor-hub/internal/scoring"
	"github.com/ayalamanuliber/contractor-hub/internal/store"
	"github.com/ayalamanuliber/contractor-hub/internal/unify"
)

// Loader produces a freshly unified dataset from the configured sources.
type Loader func(ctx context.Context) (*model.Dataset, error)

// Hub serves the cached unified dataset and serializes mutations to it.
// Readers during a refresh see the prior dataset; the new one is published
// as a single pointer swap only after unification fully succeeds.
type Hub struct {
	load  Loader
	store store.Store // nil disables persistence
	ttl   time.Duration
	now   func() time.Time

	mu       sync.RWMutex
	dataset  *model.Dataset
	loadedAt time.Time

	// refreshMu single-flights the expensive unification pass.
	refreshMu sync.Mutex

	// sentLog holds timestamps of MarkEmailSent events for the rolling
	// sent-this-week count.
	sentLog []time.Time
}

// New creates a Hub. st may be nil to run without snapshot persistence.
func New(load Loader, st store.Store, ttl time.Duration) *Hub {
	return &Hub{
		load:  load,
		store: st,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Restore seeds the hub from the latest persisted snapshot, if any. The
// snapshot counts as already-stale so the first Dataset call re-unifies,
// but queries against a warm process work immediately.
func (h *Hub) Restore(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	ds, err := h.store.LatestDataset(ctx)
	if err != nil {
		return eris.Wrap(err, "hub: restore snapshot")
	}
	if ds == nil {
		return nil
	}

	h.mu.Lock()
	h.dataset = ds
	h.loadedAt = ds.UnifiedAt
	h.rebuildSentLogLocked()
	h.mu.Unlock()

	zap.L().Info("restored dataset snapshot",
		zap.Int("records", len(ds.Contractors)),
		zap.Time("unified_at", ds.UnifiedAt))
	return nil
}

// Dataset returns a deep copy of the cached dataset, re-unifying first when
// it is older than the TTL. force bypasses the TTL. The copy means callers
// read outside the hub lock without ever observing a concurrent mutation.
// A failed refresh keeps serving the last good dataset with a warning; it
// is fatal only when no prior dataset exists.
func (h *Hub) Dataset(ctx context.Context, force bool) (*model.Dataset, error) {
	if err := h.ensure(ctx, force); err != nil {
		return nil, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dataset.Clone(), nil
}

// Record returns a copy of one contractor, refreshing the dataset first when
// it is stale.
func (h *Hub) Record(ctx context.Context, businessID string) (model.ContractorRecord, error) {
	if err := h.ensure(ctx, false); err != nil {
		return model.ContractorRecord{}, err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	rec := h.dataset.Record(businessID)
	if rec == nil {
		return model.ContractorRecord{}, eris.Errorf("hub: contractor %s not found", businessID)
	}
	return rec.Clone(), nil
}

// ensure refreshes the cached dataset when it is missing or stale. The new
// dataset is published as a single pointer swap under the write lock.
func (h *Hub) ensure(ctx context.Context, force bool) error {
	h.mu.RLock()
	ds, loadedAt := h.dataset, h.loadedAt
	h.mu.RUnlock()

	if ds != nil && !force && h.now().Sub(loadedAt) < h.ttl {
		return nil
	}

	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	h.mu.RLock()
	ds, loadedAt = h.dataset, h.loadedAt
	h.mu.RUnlock()
	if ds != nil && !force && h.now().Sub(loadedAt) < h.ttl {
		return nil
	}

	fresh, err := h.load(ctx)
	if err != nil {
		if ds != nil {
			zap.L().Warn("refresh failed, serving previous dataset",
				zap.Error(err),
				zap.Time("loaded_at", loadedAt))
			return nil
		}
		return eris.Wrap(err, "hub: initial load")
	}

	h.mu.Lock()
	h.carryCampaignProgressLocked(fresh)
	h.dataset = fresh
	h.loadedAt = h.now()
	h.rebuildSentLogLocked()
	// Snapshot under the lock: once unlocked, fresh is live and mutable.
	snap := fresh.Clone()
	h.mu.Unlock()

	h.persistSnapshot(ctx, snap)

	zap.L().Info("dataset refreshed",
		zap.Int("records", len(snap.Contractors)),
		zap.Bool("forced", force))
	return nil
}

// UpdateRecord applies manual field edits to one contractor, rescoring it
// under the hub write lock. A validation or rescore failure leaves the
// record untouched and is returned to the caller.
func (h *Hub) UpdateRecord(ctx context.Context, businessID string, updates map[string]string) (scoring.UpdateResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dataset == nil {
		return scoring.UpdateResult{}, eris.New("hub: no dataset loaded")
	}
	rec := h.dataset.Record(businessID)
	if rec == nil {
		return scoring.UpdateResult{}, eris.Errorf("hub: contractor %s not found", businessID)
	}

	res, err := scoring.ApplyUpdate(rec, updates, h.now())
	if err != nil {
		return scoring.UpdateResult{}, err
	}

	h.dataset.Metrics = unify.ComputeMetrics(h.dataset.Contractors)

	if h.store != nil && res.Change != 0 && len(rec.ScoreHistory) > 0 {
		hist := rec.ScoreHistory[len(rec.ScoreHistory)-1]
		if perr := h.store.AppendScoreHistory(ctx, businessID, hist); perr != nil {
			zap.L().Warn("score history persist failed",
				zap.String("business_id", businessID),
				zap.Error(perr))
		}
	}
	return res, nil
}

// BulkUpdateResult reports a batch of record updates. A failure on one
// record never aborts the rest of the batch.
type BulkUpdateResult struct {
	Success bool                            `json:"success"`
	Updated int                             `json:"updated"`
	Failed  int                             `json:"failed"`
	Errors  map[string]string               `json:"errors,omitempty"`
	Results map[string]scoring.UpdateResult `json:"results,omitempty"`
}

// BulkUpdate applies field updates to many records, keyed by business id.
func (h *Hub) BulkUpdate(ctx context.Context, updates map[string]map[string]string) BulkUpdateResult {
	result := BulkUpdateResult{
		Errors:  map[string]string{},
		Results: map[string]scoring.UpdateResult{},
	}
	for id, fields := range updates {
		res, err := h.UpdateRecord(ctx, id, fields)
		if err != nil {
			result.Failed++
			result.Errors[id] = err.Error()
			continue
		}
		result.Updated++
		result.Results[id] = res
	}
	result.Success = result.Failed == 0
	return result
}

// MarkEmailSent records that sequence email n (1-3) went out for the given
// contractor and advances its funnel status: READY becomes SENT on the
// first send, SENT becomes COMPLETE once all three are out.
func (h *Hub) MarkEmailSent(ctx context.Context, businessID string, emailNumber int) (model.ContractorRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dataset == nil {
		return model.ContractorRecord{}, eris.New("hub: no dataset loaded")
	}
	rec := h.dataset.Record(businessID)
	if rec == nil {
		return model.ContractorRecord{}, eris.Errorf("hub: contractor %s not found", businessID)
	}
	if !rec.HasCampaign || rec.CampaignData == nil {
		return model.ContractorRecord{}, eris.Errorf("hub: contractor %s has no campaign", businessID)
	}

	// Sequences are matched on their declared number, not array position;
	// campaign files do not guarantee ordering.
	e := rec.CampaignData.SequenceByNumber(emailNumber)
	if e == nil {
		return model.ContractorRecord{}, eris.Errorf("hub: email number %d out of range for %s", emailNumber, businessID)
	}

	now := h.now()
	if e.Status == model.EmailSent || e.Status == model.EmailOpened || e.Status == model.EmailResponded {
		return rec.Clone(), nil // already sent, idempotent
	}
	e.Status = model.EmailSent
	e.SentDate = &now

	if rec.CampaignData.Complete() {
		rec.CampaignStatus = model.CampaignComplete
	} else {
		rec.CampaignStatus = model.CampaignSent
	}
	rec.UpdatedAt = now
	h.sentLog = append(h.sentLog, now)

	h.persistSnapshot(ctx, h.dataset)

	zap.L().Info("email marked sent",
		zap.String("business_id", businessID),
		zap.Int("email_number", emailNumber),
		zap.String("campaign_status", string(rec.CampaignStatus)))
	return rec.Clone(), nil
}

// Execution summarizes the outreach funnel. Queue admits non-campaign
// records whose completion score qualifies them for generation (>= 70).
func (h *Hub) Execution() model.ExecutionState {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var state model.ExecutionState
	if h.dataset == nil {
		return state
	}

	for i := range h.dataset.Contractors {
		rec := &h.dataset.Contractors[i]
		if !rec.HasCampaign {
			if rec.DataCompletionScore >= 70 {
				state.Queue++
			}
			continue
		}
		state.TotalCampaign++
		switch rec.CampaignStatus {
		case model.CampaignReady:
			state.Ready++
		case model.CampaignSent:
			state.Sent++
		case model.CampaignComplete:
			state.Complete++
		}
	}

	weekAgo := h.now().AddDate(0, 0, -7)
	for _, ts := range h.sentLog {
		if ts.After(weekAgo) {
			state.SentThisWeek++
		}
	}
	return state
}

// persistSnapshot writes the dataset to the store. Persistence failures are
// warn-only: the in-memory dataset is the source of truth.
func (h *Hub) persistSnapshot(ctx context.Context, ds *model.Dataset) {
	if h.store == nil {
		return
	}
	if err := h.store.SaveDataset(ctx, ds); err != nil {
		zap.L().Warn("dataset snapshot persist failed", zap.Error(err))
	}
}

// carryCampaignProgressLocked replays send progress from the outgoing
// dataset onto a freshly unified one, so a refresh between a send and the
// next campaign-file update does not silently reset the funnel.
func (h *Hub) carryCampaignProgressLocked(fresh *model.Dataset) {
	if h.dataset == nil {
		return
	}
	for i := range fresh.Contractors {
		nrec := &fresh.Contractors[i]
		if !nrec.HasCampaign || nrec.CampaignData == nil {
			continue
		}
		old := h.dataset.Record(nrec.BusinessID)
		if old == nil || old.CampaignData == nil {
			continue
		}
		for j := range nrec.CampaignData.EmailSequences {
			ne := &nrec.CampaignData.EmailSequences[j]
			oe := old.CampaignData.SequenceByNumber(ne.EmailNumber)
			if oe == nil || ne.Status != model.EmailPending {
				continue
			}
			if oe.Status == model.EmailSent || oe.Status == model.EmailOpened || oe.Status == model.EmailResponded {
				ne.Status = oe.Status
				ne.SentDate = oe.SentDate
			}
		}
		switch {
		case nrec.CampaignData.Complete():
			nrec.CampaignStatus = model.CampaignComplete
		case nrec.CampaignData.SentCount() > 0:
			nrec.CampaignStatus = model.CampaignSent
		}
	}
}

// rebuildSentLogLocked reseeds the rolling sent counter from sequence sent
// dates after a restore or refresh.
func (h *Hub) rebuildSentLogLocked() {
	h.sentLog = h.sentLog[:0]
	if h.dataset == nil {
		return
	}
	weekAgo := h.now().AddDate(0, 0, -7)
	for i := range h.dataset.Contractors {
		c := h.dataset.Contractors[i].CampaignData
		if c == nil {
			continue
		}
		for _, e := range c.EmailSequences {
			if e.SentDate != nil && e.SentDate.After(weekAgo) {
				h.sentLog = append(h.sentLog, *e.SentDate)
			}
		}
	}
}
