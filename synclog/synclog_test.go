package synclog

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repldef/repldef/enginedb"
	"github.com/repldef/repldef/porttype"
)

func newSQLiteConn(t *testing.T) *enginedb.Conn {
	t.Helper()
	conn, err := enginedb.Open(enginedb.Config{Engine: porttype.SQLite3, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	for _, stmt := range CreateTablesSQL(porttype.SQLite3) {
		_, err := conn.DB().ExecContext(context.Background(), stmt)
		require.NoError(t, err, stmt)
	}
	return conn
}

func TestCreateTablesSQLUsesIfNotExistsExceptOnMSSQL(t *testing.T) {
	for _, engine := range []porttype.Engine{porttype.MySQL, porttype.Postgres, porttype.MSSQL, porttype.SQLite3} {
		stmts := CreateTablesSQL(engine)
		assert.Len(t, stmts, 6)
		if engine == porttype.MSSQL {
			for _, s := range stmts {
				assert.NotContains(t, s, "IF NOT EXISTS")
			}
		} else {
			assert.Contains(t, stmts[0], "IF NOT EXISTS")
		}
	}
}

func TestAppendAssignsVersionViaAutoincrement(t *testing.T) {
	conn := newSQLiteConn(t)
	v1, err := Append(context.Background(), conn.DB(), porttype.SQLite3, Entry{
		TableName: "users", PKValue: []byte(`1`), Operation: Insert, Origin: "local",
	})
	require.NoError(t, err)
	v2, err := Append(context.Background(), conn.DB(), porttype.SQLite3, Entry{
		TableName: "users", PKValue: []byte(`2`), Operation: Insert, Origin: "local",
	})
	require.NoError(t, err)
	assert.Equal(t, v1+1, v2)
}

func TestAppendRejectsDirectCallOnPostgres(t *testing.T) {
	_, err := Append(context.Background(), fakeExecer{}, porttype.Postgres, Entry{
		TableName: "users", PKValue: []byte(`1`), Operation: Insert, Origin: "local",
	})
	require.Error(t, err, "postgres has no LastInsertId; callers must use AppendReturning")
}

type fakeExecer struct{}

func (fakeExecer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return fakeResult{}, nil
}

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

func TestSaveStateValueThenLoadStateRoundTrips(t *testing.T) {
	conn := newSQLiteConn(t)
	require.NoError(t, SaveStateValue(context.Background(), conn, "origin_id", "peer-a"))
	require.NoError(t, SaveStateValue(context.Background(), conn, "last_server_version", "42"))
	require.NoError(t, SaveStateValue(context.Background(), conn, "last_push_version", "7"))

	st, err := LoadState(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, "peer-a", st.OriginID)
	assert.Equal(t, int64(42), st.LastServerVersion)
	assert.Equal(t, int64(7), st.LastPushVersion)
}

func TestSaveStateValueUpsertsExistingKey(t *testing.T) {
	conn := newSQLiteConn(t)
	require.NoError(t, SaveStateValue(context.Background(), conn, "last_server_version", "1"))
	require.NoError(t, SaveStateValue(context.Background(), conn, "last_server_version", "2"))

	st, err := LoadState(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.LastServerVersion)
}

func TestLoadStateOnEmptyStoreIsZeroValue(t *testing.T) {
	conn := newSQLiteConn(t)
	st, err := LoadState(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, State{}, st)
}

func TestUpsertClientThenListClients(t *testing.T) {
	conn := newSQLiteConn(t)
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	require.NoError(t, UpsertClient(context.Background(), conn, Client{
		OriginID: "peer-a", LastSyncVersion: 10, LastSyncTimestamp: now, CreatedAt: now,
	}))
	require.NoError(t, UpsertClient(context.Background(), conn, Client{
		OriginID: "peer-b", LastSyncVersion: 5, LastSyncTimestamp: now, CreatedAt: now,
	}))

	clients, err := ListClients(context.Background(), conn)
	require.NoError(t, err)
	require.Len(t, clients, 2)
}

func TestUpsertClientOverwritesLastSyncVersion(t *testing.T) {
	conn := newSQLiteConn(t)
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	require.NoError(t, UpsertClient(context.Background(), conn, Client{OriginID: "peer-a", LastSyncVersion: 1, LastSyncTimestamp: now, CreatedAt: now}))
	require.NoError(t, UpsertClient(context.Background(), conn, Client{OriginID: "peer-a", LastSyncVersion: 9, LastSyncTimestamp: now, CreatedAt: now}))

	clients, err := ListClients(context.Background(), conn)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, int64(9), clients[0].LastSyncVersion)
}

func TestRebindLeavesNonPostgresQueriesUnchanged(t *testing.T) {
	q := "INSERT INTO x (a, b) VALUES (?, ?)"
	assert.Equal(t, q, rebind(porttype.MySQL, q))
	assert.Equal(t, "INSERT INTO x (a, b) VALUES ($1, $2)", rebind(porttype.Postgres, q))
}
