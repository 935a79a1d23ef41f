package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ayalamanuliber/contractor-hub/internal/model"
	"github.com/ayalamanuliber/contractor-hub/internal/normalize"
)

// campaignDatabase mirrors the campaign JSON file: metadata plus entries
// keyed by raw business id.
type campaignDatabase struct {
	DatabaseInfo map[string]any                        `json:"database_info"`
	Contractors  map[string]normalize.RawCampaignEntry `json:"contractors"`
}

// ReadCampaignDatabase decodes the campaign JSON and canonicalizes every
// entry. Malformed entries are skipped with a warning; they never fail the
// read. Entries are returned in raw-key order so duplicate normalized ids
// resolve deterministically (last key wins downstream).
func ReadCampaignDatabase(ctx context.Context, r io.Reader) ([]*model.CampaignRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "campaign json: context cancelled")
	}

	var db campaignDatabase
	if err := json.NewDecoder(r).Decode(&db); err != nil {
		return nil, eris.Wrap(err, "campaign json: decode")
	}

	keys := make([]string, 0, len(db.Contractors))
	for key := range db.Contractors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var campaigns []*model.CampaignRecord
	for _, key := range keys {
		c, err := normalize.CampaignFromRaw(key, db.Contractors[key])
		if err != nil {
			zap.L().Warn("campaign json: skipping entry",
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, nil
}
