package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgres_LoadSnapshot_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, records, summary, fetched_at FROM snapshots`).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.LoadSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LoadSnapshot(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	fetched := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"id", "records", "summary", "fetched_at"}).
		AddRow("snap-1",
			[]byte(`[{"identificacao_emenda": "2024-0001-0001", "ano": 2024}]`),
			[]byte(`{"total_opportunities": 1}`),
			fetched)
	mock.ExpectQuery(`SELECT id, records, summary, fetched_at FROM snapshots`).
		WillReturnRows(rows)

	got, err := s.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "snap-1", got.ID)
	require.Len(t, got.Records, 1)
	assert.Equal(t, 2024, got.Records[0].Ano)
	assert.Equal(t, 1, got.Summary.TotalOpportunities)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveSnapshot(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO snapshots`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveSnapshot(context.Background(), testSnapshot(), time.Hour)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Prune(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM snapshots WHERE expires_at`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
