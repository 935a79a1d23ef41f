package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ayalamanuliber/contractor-hub/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS dataset_snapshots (
	id           TEXT PRIMARY KEY,
	payload      JSONB NOT NULL,
	record_count INTEGER NOT NULL,
	unified_at   TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS score_history (
	id          TEXT PRIMARY KEY,
	business_id TEXT NOT NULL,
	old_score   INTEGER NOT NULL,
	new_score   INTEGER NOT NULL,
	change      INTEGER NOT NULL,
	fields      JSONB NOT NULL,
	changed_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS export_log (
	id          TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	format      TEXT NOT NULL,
	exported    INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	backup_path TEXT,
	success     BOOLEAN NOT NULL,
	error       TEXT,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_created_at ON dataset_snapshots(created_at);
CREATE INDEX IF NOT EXISTS idx_score_history_business_id ON score_history(business_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveDataset(ctx context.Context, ds *model.Dataset) error {
	payload, err := json.Marshal(ds)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal dataset")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO dataset_snapshots (id, payload, record_count, unified_at, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), payload, len(ds.Contractors), ds.UnifiedAt, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: insert snapshot")
}

func (s *PostgresStore) LatestDataset(ctx context.Context) (*model.Dataset, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT payload FROM dataset_snapshots ORDER BY created_at DESC, id DESC LIMIT 1`,
	)

	var payload []byte
	err := row.Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest snapshot")
	}

	var ds model.Dataset
	if err := json.Unmarshal(payload, &ds); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal snapshot")
	}
	return &ds, nil
}

func (s *PostgresStore) AppendScoreHistory(ctx context.Context, businessID string, change model.ScoreChange) error {
	fields, err := json.Marshal(change.FieldsUpdated)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal fields")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO score_history (id, business_id, old_score, new_score, change, fields, changed_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.New().String(), businessID, change.OldScore, change.NewScore, change.Change, fields, change.Date,
	)
	return eris.Wrapf(err, "postgres: append score history %s", businessID)
}

func (s *PostgresStore) ScoreHistory(ctx context.Context, businessID string) ([]model.ScoreChange, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT old_score, new_score, change, fields, changed_at FROM score_history WHERE business_id = $1 ORDER BY changed_at`,
		businessID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: score history %s", businessID)
	}
	defer rows.Close()

	var history []model.ScoreChange
	for rows.Next() {
		var sc model.ScoreChange
		var fields []byte
		if err := rows.Scan(&sc.OldScore, &sc.NewScore, &sc.Change, &fields, &sc.Date); err != nil {
			return nil, eris.Wrap(err, "postgres: scan score history")
		}
		if err := json.Unmarshal(fields, &sc.FieldsUpdated); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal fields")
		}
		history = append(history, sc)
	}
	return history, eris.Wrap(rows.Err(), "postgres: score history iterate")
}

func (s *PostgresStore) SaveExportLog(ctx context.Context, log ExportLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO export_log (id, path, format, exported, skipped, backup_path, success, error, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		log.ID, log.Path, log.Format, log.Exported, log.Skipped, log.BackupPath, log.Success, log.Error, log.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert export log")
}
