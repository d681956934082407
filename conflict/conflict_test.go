package conflict

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repldef/repldef/synclog"
)

func TestIsConflictRequiresSameTableAndPKDifferentOrigin(t *testing.T) {
	local := synclog.Entry{TableName: "users", PKValue: []byte(`1`), Origin: "a"}
	remote := synclog.Entry{TableName: "users", PKValue: []byte(`1`), Origin: "b"}
	assert.True(t, IsConflict(local, remote))

	sameOrigin := synclog.Entry{TableName: "users", PKValue: []byte(`1`), Origin: "a"}
	assert.False(t, IsConflict(local, sameOrigin))

	differentTable := synclog.Entry{TableName: "posts", PKValue: []byte(`1`), Origin: "b"}
	assert.False(t, IsConflict(local, differentTable))
}

func TestResolveLastWriteWinsPicksLaterTimestamp(t *testing.T) {
	local := synclog.Entry{Origin: "a", Timestamp: "2026-01-01T00:00:00Z", Version: 1}
	remote := synclog.Entry{Origin: "b", Timestamp: "2026-01-02T00:00:00Z", Version: 2}
	res, err := Resolve(local, remote, LastWriteWins, "", nil)
	require.NoError(t, err)
	assert.Equal(t, remote, res.Winner)
}

func TestResolveLastWriteWinsTiesGoToHigherVersion(t *testing.T) {
	local := synclog.Entry{Origin: "a", Timestamp: "2026-01-01T00:00:00Z", Version: 5}
	remote := synclog.Entry{Origin: "b", Timestamp: "2026-01-01T00:00:00Z", Version: 3}
	res, err := Resolve(local, remote, LastWriteWins, "", nil)
	require.NoError(t, err)
	assert.Equal(t, local, res.Winner)
}

func TestResolveServerWins(t *testing.T) {
	local := synclog.Entry{Origin: "server-1"}
	remote := synclog.Entry{Origin: "client-1"}
	res, err := Resolve(local, remote, ServerWins, "server-1", nil)
	require.NoError(t, err)
	assert.Equal(t, local, res.Winner)

	res, err = Resolve(local, remote, ServerWins, "client-1", nil)
	require.NoError(t, err)
	assert.Equal(t, remote, res.Winner)
}

func TestResolveClientWins(t *testing.T) {
	local := synclog.Entry{Origin: "a"}
	remote := synclog.Entry{Origin: "b"}
	res, err := Resolve(local, remote, ClientWins, "", nil)
	require.NoError(t, err)
	assert.Equal(t, local, res.Winner)
}

func TestResolveCustomWithNoResolverIsUnresolvedConflict(t *testing.T) {
	_, err := Resolve(synclog.Entry{}, synclog.Entry{}, Custom, "", nil)
	require.Error(t, err)
}

func TestResolveCustomDeclining(t *testing.T) {
	resolver := func(local, remote synclog.Entry) (synclog.Entry, error) {
		return synclog.Entry{}, errors.New("cannot decide")
	}
	_, err := Resolve(synclog.Entry{}, synclog.Entry{}, Custom, "", resolver)
	require.Error(t, err)
}

func TestResolveCustomPicksResolverWinner(t *testing.T) {
	remote := synclog.Entry{Origin: "remote"}
	resolver := func(local, remote synclog.Entry) (synclog.Entry, error) {
		return remote, nil
	}
	res, err := Resolve(synclog.Entry{Origin: "local"}, remote, Custom, "", resolver)
	require.NoError(t, err)
	assert.Equal(t, remote, res.Winner)
}
