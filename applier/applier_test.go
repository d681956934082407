package applier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repldef/repldef/pager"
	"github.com/repldef/repldef/synclog"
	"github.com/repldef/repldef/syncerr"
)

func TestApplyBatchSkipsEchoedEntries(t *testing.T) {
	batch := pager.Batch{Entries: []synclog.Entry{
		{TableName: "users", Origin: "local"},
		{TableName: "posts", Origin: "remote"},
	}}
	var seen []string
	apply := func(ctx context.Context, e synclog.Entry) (bool, error) {
		seen = append(seen, e.TableName)
		return true, nil
	}

	result, err := ApplyBatch(context.Background(), batch, "local", 3, apply)
	require.NoError(t, err)
	assert.Equal(t, []string{"posts"}, seen)
	assert.Len(t, result.Skipped, 1)
	assert.Len(t, result.Applied, 1)
}

func TestApplyBatchRetriesDeferredEntriesAcrossPasses(t *testing.T) {
	batch := pager.Batch{Entries: []synclog.Entry{
		{TableName: "posts", Origin: "remote", PKValue: []byte(`1`)},
	}}
	attempts := 0
	apply := func(ctx context.Context, e synclog.Entry) (bool, error) {
		attempts++
		return attempts >= 2, nil
	}

	result, err := ApplyBatch(context.Background(), batch, "local", 3, apply)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Len(t, result.Applied, 1)
	assert.Empty(t, result.Deferred)
}

func TestApplyBatchExhaustsPassBudgetReturnsDeferredChangeFailed(t *testing.T) {
	batch := pager.Batch{Entries: []synclog.Entry{
		{TableName: "posts", Origin: "remote"},
	}}
	apply := func(ctx context.Context, e synclog.Entry) (bool, error) {
		return false, nil
	}

	result, err := ApplyBatch(context.Background(), batch, "local", 2, apply)
	require.Error(t, err)
	var syncErr *syncerr.Error
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, syncerr.DeferredChangeFailed, syncErr.Kind)
	assert.Len(t, result.Deferred, 1)
}

func TestApplyBatchAbortsOnFatalError(t *testing.T) {
	batch := pager.Batch{Entries: []synclog.Entry{
		{TableName: "posts", Origin: "remote"},
		{TableName: "comments", Origin: "remote"},
	}}
	calls := 0
	apply := func(ctx context.Context, e synclog.Entry) (bool, error) {
		calls++
		return false, errors.New("connection reset")
	}

	_, err := ApplyBatch(context.Background(), batch, "local", 3, apply)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "a fatal error must abort remaining entries in the batch")
}

func TestApplyBatchDefaultsMaxPasses(t *testing.T) {
	batch := pager.Batch{Entries: []synclog.Entry{{TableName: "posts", Origin: "remote"}}}
	attempts := 0
	apply := func(ctx context.Context, e synclog.Entry) (bool, error) {
		attempts++
		return false, nil
	}
	_, err := ApplyBatch(context.Background(), batch, "local", 0, apply)
	require.Error(t, err)
	assert.Equal(t, DefaultMaxPasses, attempts)
}

func TestIsForeignKeyViolationAcrossEngines(t *testing.T) {
	assert.True(t, IsForeignKeyViolation(errors.New("Cannot add or update a child row: a foreign key constraint fails")))
	assert.True(t, IsForeignKeyViolation(errors.New(`insert or update on table "posts" violates foreign key constraint`)))
	assert.True(t, IsForeignKeyViolation(errors.New("The INSERT statement conflicted with the REFERENCE constraint")))
	assert.False(t, IsForeignKeyViolation(errors.New("connection reset by peer")))
	assert.False(t, IsForeignKeyViolation(nil))
}

func TestClassify(t *testing.T) {
	applied, err := Classify("users", []byte(`1`), nil)
	assert.True(t, applied)
	assert.NoError(t, err)

	applied, err = Classify("posts", []byte(`1`), errors.New("a foreign key constraint fails"))
	assert.False(t, applied)
	assert.NoError(t, err)

	applied, err = Classify("posts", []byte(`1`), errors.New("disk full"))
	assert.False(t, applied)
	require.Error(t, err)
	var syncErr *syncerr.Error
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, syncerr.Database, syncErr.Kind)
}
