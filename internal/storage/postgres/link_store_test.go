package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/onionwatch/onionwatch/internal/tracker"
)

func TestRecordProbeAliveUpsertsWithTimestamp(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLinkStoreWithPool(mock, "onion_links")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	addr := "http://probedonionaddress1.onion"

	mock.ExpectExec("INSERT INTO onion_links").
		WithArgs(addr, "alive", &now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.RecordProbe(context.Background(), addr, true, now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordProbeDeadWritesNullLastSeen(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLinkStoreWithPool(mock, "onion_links")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	addr := "http://probedonionaddress2.onion"

	mock.ExpectExec("INSERT INTO onion_links").
		WithArgs(addr, "dead", (*time.Time)(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.RecordProbe(context.Background(), addr, false, now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLinkFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLinkStoreWithPool(mock, "onion_links")
	require.NoError(t, err)

	addr := "http://storedonionaddress1.onion"
	seen := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT url, status, last_seen FROM onion_links").
		WithArgs(addr).
		WillReturnRows(pgxmock.NewRows([]string{"url", "status", "last_seen"}).
			AddRow(addr, "alive", &seen))

	rec, ok, err := store.GetLink(context.Background(), addr)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, addr, rec.Address)
	require.Equal(t, tracker.StatusAlive, rec.Status)
	require.NotNil(t, rec.LastSeen)
	require.True(t, rec.LastSeen.Equal(seen))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLinkMissing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLinkStoreWithPool(mock, "onion_links")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT url, status, last_seen FROM onion_links").
		WithArgs("http://unknownonionaddress.onion").
		WillReturnError(pgx.ErrNoRows)

	_, ok, err := store.GetLink(context.Background(), "http://unknownonionaddress.onion")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAliveReturnsAddresses(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLinkStoreWithPool(mock, "onion_links")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT url FROM onion_links").
		WithArgs("alive").
		WillReturnRows(pgxmock.NewRows([]string{"url"}).
			AddRow("http://aliveonionaddress1.onion").
			AddRow("http://aliveonionaddress2.onion"))

	addrs, err := store.ListAlive(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		"http://aliveonionaddress1.onion",
		"http://aliveonionaddress2.onion",
	}, addrs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteDeadBeforeReturnsCount(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLinkStoreWithPool(mock, "onion_links")
	require.NoError(t, err)

	cutoff := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec("DELETE FROM onion_links").
		WithArgs("dead", cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 7))

	deleted, err := store.DeleteDeadBefore(context.Background(), cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(7), deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewLinkStoreWithPoolRejectsBadTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewLinkStoreWithPool(mock, "onion_links; DROP TABLE users")
	require.Error(t, err)
}

func TestLinkStoreInitCreatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewLinkStoreWithPool(mock, "onion_links")
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS onion_links").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.Init(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
