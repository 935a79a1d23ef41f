package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/ayalamanuliber/contractor-hub/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS dataset_snapshots (
	id           TEXT PRIMARY KEY,
	payload      TEXT NOT NULL,
	record_count INTEGER NOT NULL,
	unified_at   DATETIME NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS score_history (
	id          TEXT PRIMARY KEY,
	business_id TEXT NOT NULL,
	old_score   INTEGER NOT NULL,
	new_score   INTEGER NOT NULL,
	change      INTEGER NOT NULL,
	fields      TEXT NOT NULL,
	changed_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS export_log (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	format      TEXT NOT NULL,
	exported    INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	backup_path TEXT,
	success     INTEGER NOT NULL,
	error       TEXT,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON dataset_snapshots(created_at);
CREATE INDEX IF NOT EXISTS idx_score_history_business_id ON score_history(business_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveDataset(ctx context.Context, ds *model.Dataset) error {
	payload, err := json.Marshal(ds)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal dataset")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dataset_snapshots (id, payload, record_count, unified_at, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), string(payload), len(ds.Contractors), ds.UnifiedAt, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: insert snapshot")
}

func (s *SQLiteStore) LatestDataset(ctx context.Context) (*model.Dataset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM dataset_snapshots ORDER BY created_at DESC, id DESC LIMIT 1`,
	)

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest snapshot")
	}

	var ds model.Dataset
	if err := json.Unmarshal([]byte(payload), &ds); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal snapshot")
	}
	return &ds, nil
}

func (s *SQLiteStore) AppendScoreHistory(ctx context.Context, businessID string, change model.ScoreChange) error {
	fields, err := json.Marshal(change.FieldsUpdated)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal fields")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO score_history (id, business_id, old_score, new_score, change, fields, changed_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), businessID, change.OldScore, change.NewScore, change.Change, string(fields), change.Date,
	)
	return eris.Wrapf(err, "sqlite: append score history %s", businessID)
}

func (s *SQLiteStore) ScoreHistory(ctx context.Context, businessID string) ([]model.ScoreChange, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT old_score, new_score, change, fields, changed_at FROM score_history WHERE business_id = ? ORDER BY changed_at`,
		businessID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: score history %s", businessID)
	}
	defer rows.Close()

	var history []model.ScoreChange
	for rows.Next() {
		var sc model.ScoreChange
		var fields string
		if err := rows.Scan(&sc.OldScore, &sc.NewScore, &sc.Change, &fields, &sc.Date); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan score history")
		}
		if err := json.Unmarshal([]byte(fields), &sc.FieldsUpdated); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal fields")
		}
		history = append(history, sc)
	}
	return history, eris.Wrap(rows.Err(), "sqlite: score history iterate")
}

func (s *SQLiteStore) SaveExportLog(ctx context.Context, log ExportLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO export_log (id, path, format, exported, skipped, backup_path, success, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.Path, log.Format, log.Exported, log.Skipped, log.BackupPath, log.Success, log.Error, log.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert export log")
}
