package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/email-lookup/internal/lookup"
)

func strptr(s string) *string { return &s }

func TestRecordStore_GetReturnsRecord(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStoreWithPool(mock)
	require.NoError(t, err)

	created := time.Unix(1700000000, 0).UTC()
	rows := pgxmock.NewRows([]string{"key", "email", "source", "created_at"}).
		AddRow("abc123", strptr("a@example.com"), strptr("github"), created)

	mock.ExpectQuery("SELECT key, email, source, created_at").
		WithArgs("abc123").
		WillReturnRows(rows)

	rec, err := store.Get(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, "abc123", rec.Key)
	require.Equal(t, "a@example.com", *rec.Email)
	require.Equal(t, "github", *rec.Source)
	require.Equal(t, created, rec.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordStore_GetMissingMapsToErrNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT key, email, source, created_at").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"key", "email", "source", "created_at"}))

	_, err = store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, lookup.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordStore_UpsertReturnsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStoreWithPool(mock)
	require.NoError(t, err)

	created := time.Unix(1700000000, 0).UTC()
	rows := pgxmock.NewRows([]string{"key", "email", "source", "created_at"}).
		AddRow("abc123", strptr("a@example.com"), strptr("blog"), created)

	mock.ExpectQuery("INSERT INTO email_records").
		WithArgs("abc123", strptr("a@example.com"), strptr("blog")).
		WillReturnRows(rows)

	rec, err := store.Upsert(context.Background(), "abc123", strptr("a@example.com"), strptr("blog"))
	require.NoError(t, err)
	require.Equal(t, "blog", *rec.Source)
	require.Equal(t, created, rec.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordStore_UpsertNegativeResult(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStoreWithPool(mock)
	require.NoError(t, err)

	created := time.Unix(1700000000, 0).UTC()
	rows := pgxmock.NewRows([]string{"key", "email", "source", "created_at"}).
		AddRow("abc123", (*string)(nil), (*string)(nil), created)

	mock.ExpectQuery("INSERT INTO email_records").
		WithArgs("abc123", (*string)(nil), (*string)(nil)).
		WillReturnRows(rows)

	rec, err := store.Upsert(context.Background(), "abc123", nil, nil)
	require.NoError(t, err)
	require.Nil(t, rec.Email)
	require.Nil(t, rec.Source)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordStore_EnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewRecordStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS email_records").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
