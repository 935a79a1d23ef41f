package hub

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayalamanuliber/contractor-hub/internal/fetcher"
	"github.com/ayalamanuliber/contractor-hub/internal/model"
	"github.com/ayalamanuliber/contractor-hub/internal/unify"
)

// NewLoader builds a Loader that fetches the contractor CSV and the
// campaign database concurrently and unifies them. The CSV source is
// required; a failing campaign source degrades to campaign-free records
// with a warning.
func NewLoader(csvSource, campaignSource string) Loader {
	return func(ctx context.Context) (*model.Dataset, error) {
		var (
			rows      []map[string]string
			campaigns []*model.CampaignRecord
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			rc, err := fetcher.Open(gctx, csvSource)
			if err != nil {
				return eris.Wrapf(err, "loader: open contractor csv %s", csvSource)
			}
			defer rc.Close()

			rows, err = fetcher.ReadContractorCSV(gctx, rc)
			return eris.Wrap(err, "loader: read contractor csv")
		})
		g.Go(func() error {
			if campaignSource == "" {
				return nil
			}
			rc, err := fetcher.Open(gctx, campaignSource)
			if err != nil {
				zap.L().Warn("campaign source unavailable, continuing without campaigns",
					zap.String("source", campaignSource),
					zap.Error(err))
				return nil
			}
			defer rc.Close()

			campaigns, err = fetcher.ReadCampaignDatabase(gctx, rc)
			if err != nil {
				zap.L().Warn("campaign database unreadable, continuing without campaigns",
					zap.String("source", campaignSource),
					zap.Error(err))
				campaigns = nil
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		ds, stats, err := unify.Unify(rows, campaigns, time.Now().UTC())
		if err != nil {
			return nil, eris.Wrap(err, "loader: unify")
		}
		ds.DatabaseInfo.CSVSource = csvSource

		zap.L().Info("sources unified",
			zap.Int("csv_rows", stats.CSVRows),
			zap.Int("campaigns", stats.Campaigns),
			zap.Int("skipped", stats.SkippedRows),
			zap.Int("records", len(ds.Contractors)))
		return ds, nil
	}
}
