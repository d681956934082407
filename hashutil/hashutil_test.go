package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repldef/repldef/synclog"
)

func TestCanonicalJSONSortsKeys(t *testing.T) {
	out, err := CanonicalJSON(map[string]any{"b": 1, "a": 2})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1}`, out)
}

func TestCanonicalJSONIsDeterministicAcrossKeyOrder(t *testing.T) {
	a, err := CanonicalJSON(map[string]any{"x": 1, "y": 2})
	require.NoError(t, err)
	b, err := CanonicalJSON(map[string]any{"y": 2, "x": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCanonicalJSONPreservesNull(t *testing.T) {
	out, err := CanonicalJSON(map[string]any{"a": nil})
	require.NoError(t, err)
	assert.Equal(t, `{"a":null}`, out)
}

func TestCanonicalJSONNestedArray(t *testing.T) {
	out, err := CanonicalJSON(map[string]any{"xs": []any{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, `{"xs":[1,2,3]}`, out)
}

func TestComputeBatchHashIsOrderSensitive(t *testing.T) {
	e1 := synclog.Entry{Version: 1, TableName: "users", Operation: synclog.Insert, Origin: "a", Timestamp: "2026-01-01T00:00:00Z"}
	e2 := synclog.Entry{Version: 2, TableName: "users", Operation: synclog.Update, Origin: "a", Timestamp: "2026-01-01T00:00:01Z"}

	forward, err := ComputeBatchHash([]synclog.Entry{e1, e2})
	require.NoError(t, err)
	backward, err := ComputeBatchHash([]synclog.Entry{e2, e1})
	require.NoError(t, err)

	assert.NotEqual(t, forward, backward)

	again, err := ComputeBatchHash([]synclog.Entry{e1, e2})
	require.NoError(t, err)
	assert.Equal(t, forward, again)
}

func TestComputeDatabaseHashOrdersTablesAlphabetically(t *testing.T) {
	var seen []string
	fetch := func(table string) ([]any, error) {
		seen = append(seen, table)
		return []any{map[string]any{"id": 1}}, nil
	}
	_, err := ComputeDatabaseHash([]string{"zebra", "apple"}, fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "zebra"}, seen)
}

func TestVerifyHashCaseInsensitive(t *testing.T) {
	require.NoError(t, VerifyHash("ABCDEF", "abcdef"))

	err := VerifyHash("abc", "def")
	require.Error(t, err)
}
