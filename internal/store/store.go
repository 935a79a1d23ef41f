// Package store persists unified dataset snapshots, score history, and
// export logs behind a driver-selectable interface.
package store

import (
	"context"
	"time"

	"github.com/ayalamanuliber/contractor-hub/internal/model"
)

// ExportLog records one export run for auditability.
type ExportLog struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Format     string    `json:"format"`
	Exported   int       `json:"exported"`
	Skipped    int       `json:"skipped"`
	BackupPath string    `json:"backup_path,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is the persistence interface for the contractor hub. Snapshots are
// whole-dataset: the hub writes one after each successful unification and
// restores the latest at startup.
type Store interface {
	// Dataset snapshots.
	SaveDataset(ctx context.Context, ds *model.Dataset) error
	LatestDataset(ctx context.Context) (*model.Dataset, error) // nil when none stored

	// Score history, duplicated out of the snapshot for cheap querying.
	AppendScoreHistory(ctx context.Context, businessID string, change model.ScoreChange) error
	ScoreHistory(ctx context.Context, businessID string) ([]model.ScoreChange, error)

	// Export audit trail.
	SaveExportLog(ctx context.Context, log ExportLog) error

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
