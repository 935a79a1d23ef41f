package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayalamanuliber/contractor-hub/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_LatestDataset_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT payload FROM dataset_snapshots`).
		WillReturnError(pgx.ErrNoRows)

	ds, err := s.LatestDataset(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestDataset_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	stored := &model.Dataset{
		DatabaseInfo: model.DatabaseInfo{Version: model.SchemaVersion},
		Contractors: []model.ContractorRecord{
			{BusinessID: "321", CompanyName: "Acme Roofing", DataCompletionScore: 72},
		},
		UnifiedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM dataset_snapshots`).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	ds, err := s.LatestDataset(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ds)
	require.Len(t, ds.Contractors, 1)
	assert.Equal(t, "321", ds.Contractors[0].BusinessID)
	assert.Equal(t, 72, ds.Contractors[0].DataCompletionScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveDataset(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO dataset_snapshots`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), 2, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ds := &model.Dataset{
		Contractors: []model.ContractorRecord{{BusinessID: "1"}, {BusinessID: "2"}},
		UnifiedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.SaveDataset(context.Background(), ds))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ScoreHistoryRoundTrip(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	change := model.ScoreChange{
		Date:          time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC),
		OldScore:      25,
		NewScore:      33,
		Change:        8,
		FieldsUpdated: []string{"website"},
	}

	mock.ExpectExec(`INSERT INTO score_history`).
		WithArgs(pgxmock.AnyArg(), "42", 25, 33, 8, pgxmock.AnyArg(), change.Date).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.AppendScoreHistory(context.Background(), "42", change))

	mock.ExpectQuery(`SELECT old_score, new_score, change, fields, changed_at FROM score_history`).
		WithArgs("42").
		WillReturnRows(pgxmock.NewRows([]string{"old_score", "new_score", "change", "fields", "changed_at"}).
			AddRow(25, 33, 8, []byte(`["website"]`), change.Date))

	history, err := s.ScoreHistory(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 8, history[0].Change)
	assert.Equal(t, []string{"website"}, history[0].FieldsUpdated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveExportLog(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO export_log`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveExportLog(context.Background(), ExportLog{
		Path:     "/tmp/out.csv",
		Format:   "csv",
		Exported: 12,
		Success:  true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
