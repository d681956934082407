// Package applier is the Change Applier: applies one
// replicated batch to the local store, skipping echoes and retrying
// FK-deferred entries across a bounded number of passes.
package applier

import (
	"context"
	"strings"

	"github.com/repldef/repldef/pager"
	"github.com/repldef/repldef/synclog"
	"github.com/repldef/repldef/syncerr"
)

// DefaultMaxPasses is the pass budget when the caller doesn't override it
//.
const DefaultMaxPasses = 3

// ApplyEntry applies one entry to the local store. Applied=false signals
// specifically "this entry would violate a foreign key right now, try me
// later"; any returned error is fatal for the whole batch.
type ApplyEntry func(ctx context.Context, entry synclog.Entry) (applied bool, err error)

// Result is the outcome of ApplyBatch.
type Result struct {
	Applied  []synclog.Entry
	Skipped  []synclog.Entry // echo-suppressed
	Deferred []synclog.Entry // still unresolved after the last pass (empty on success)
}

// ApplyBatch runs the deferred-retry algorithm over one fetched
// pager.Batch:
//
//  1. Skip every entry whose Origin equals localOriginID (echo suppression).
//  2. Attempt each remaining entry in version order.
//  3. Any entry returning an error aborts the batch.
//  4. Retry the deferred set, in original order, until all succeed or the
//     pass budget is exhausted.
func ApplyBatch(ctx context.Context, batch pager.Batch, localOriginID string, maxPasses int, apply ApplyEntry) (Result, error) {
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	var result Result
	pending := make([]synclog.Entry, 0, len(batch.Entries))
	for _, e := range batch.Entries {
		if e.Origin == localOriginID {
			result.Skipped = append(result.Skipped, e)
			continue
		}
		pending = append(pending, e)
	}

	for pass := 0; pass < maxPasses && len(pending) > 0; pass++ {
		var deferred []synclog.Entry
		for _, e := range pending {
			applied, err := apply(ctx, e)
			if err != nil {
				return result, err
			}
			if applied {
				result.Applied = append(result.Applied, e)
				continue
			}
			deferred = append(deferred, e)
		}
		pending = deferred
	}

	if len(pending) > 0 {
		result.Deferred = pending
		first := pending[0]
		return result, &syncerr.Error{
			Kind:   syncerr.DeferredChangeFailed,
			Entry:  first,
			Reason: "foreign key dependency not satisfied within the configured pass budget",
		}
	}

	return result, nil
}

// fkPatterns are the case-insensitive substrings used to classify a storage
// error as a foreign-key violation. Non-matching errors are fatal for the batch.
var fkPatterns = []string{
	"foreign key",
	"fk constraint",
	"violates foreign key constraint",
	"a foreign key constraint fails",
	"conflicted with the reference constraint",
}

// IsForeignKeyViolation reports whether err's message looks like a
// foreign-key constraint failure for any supported engine.
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range fkPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// Classify adapts a raw storage error into the applier's (applied, err)
// contract: FK-shaped errors become a deferral (applied=false, err=nil);
// anything else is returned as a fatal *syncerr.Error so the batch aborts.
func Classify(tableName string, pkValue []byte, err error) (applied bool, outErr error) {
	if err == nil {
		return true, nil
	}
	if IsForeignKeyViolation(err) {
		return false, nil
	}
	return false, &syncerr.Error{
		Kind:      syncerr.Database,
		TableName: tableName,
		PKValue:   pkValue,
		Details:   err.Error(),
		Cause:     err,
	}
}
