package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repldef/repldef/coordinator"
	"github.com/repldef/repldef/enginedb"
	"github.com/repldef/repldef/pager"
	"github.com/repldef/repldef/porttype"
	"github.com/repldef/repldef/synclog"
)

func newSQLiteConn(t *testing.T) *enginedb.Conn {
	t.Helper()
	conn, err := enginedb.Open(enginedb.Config{Engine: porttype.SQLite3, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestInstallSchemaCreatesMetadataTables(t *testing.T) {
	conn := newSQLiteConn(t)
	require.NoError(t, installSchema(context.Background(), conn))

	// installSchema is idempotent: re-running it must not error.
	require.NoError(t, installSchema(context.Background(), conn))

	_, err := synclog.LoadState(context.Background(), conn)
	require.NoError(t, err)
}

func TestRunOnceWithNoRemoteEntriesIsNoop(t *testing.T) {
	conn := newSQLiteConn(t)
	require.NoError(t, installSchema(context.Background(), conn))
	require.NoError(t, synclog.SaveStateValue(context.Background(), conn, "origin_id", "local"))
	require.NoError(t, synclog.SaveStateValue(context.Background(), conn, "last_server_version", "0"))

	coord := &coordinator.Coordinator{Conn: conn, LocalOriginID: "local", BatchConfig: pager.Config{BatchSize: 10}}
	require.NoError(t, runOnce(context.Background(), coord))

	state, err := synclog.LoadState(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, int64(0), state.LastServerVersion)
}

func TestParseOptionsAppliesDefaultSyncInterval(t *testing.T) {
	opts := parseOptions([]string{"--config", "peer.yaml"})
	assert.Equal(t, "peer.yaml", opts.Config)
	assert.Equal(t, 10, opts.SyncInterval)
	assert.False(t, opts.Once)
}

func TestParseOptionsHonorsOnceAndInterval(t *testing.T) {
	opts := parseOptions([]string{"--config", "peer.yaml", "--sync-interval", "5", "--once"})
	assert.Equal(t, 5, opts.SyncInterval)
	assert.True(t, opts.Once)
}
