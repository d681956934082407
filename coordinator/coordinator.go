// Package coordinator is the Replication Coordinator: the
// three entry points (Pull, Push, Sync) that wire together the pager, the
// change applier, trigger suppression, and the hash/watermark bookkeeping
// into one serialized per-peer operation, orchestrating lower-level packages
// the way a migration generator orchestrates schema packages, but driving
// I/O callbacks instead of parsed SQL.
package coordinator

import (
	"context"

	"github.com/repldef/repldef/applier"
	"github.com/repldef/repldef/enginedb"
	"github.com/repldef/repldef/pager"
	"github.com/repldef/repldef/repllog"
	"github.com/repldef/repldef/synclog"
)

// FetchRemote retrieves up to limit entries with version > fromVersion from
// the remote peer (opaque as to transport: HTTP, gRPC, direct DB access).
type FetchRemote func(ctx context.Context, fromVersion int64, limit int) ([]synclog.Entry, error)

// SendRemote ships a locally-fetched batch to the remote peer and reports
// success or a transport/apply error.
type SendRemote func(ctx context.Context, batch pager.Batch) error

// CommitVersion durably records a new watermark (lastServerVersion on pull,
// lastPushVersion on push).
type CommitVersion func(ctx context.Context, version int64) error

// Coordinator serializes pull/push/sync for one local connection against one
// remote peer. It does not itself hold any cross-invocation state beyond
// Conn; watermarks live in synclog.State via the Commit callbacks.
type Coordinator struct {
	Conn          *enginedb.Conn
	LocalOriginID string
	BatchConfig   pager.Config
	MaxPasses     int
	Logger        repllog.Logger
}

// Stats is the result shape common to Pull and Push.
type Stats struct {
	ChangesApplied int
	FromVersion    int64
	ToVersion      int64
}

// Pull enables suppression, fetches remote batches starting at lastVersion,
// applies each through the Change Applier, and commits the watermark after
// each successful batch. Suppression is disabled on every exit path. A batch
// whose apply or commit step fails returns with the watermark left at the
// last value successfully committed; the next Pull resumes from there.
func (c *Coordinator) Pull(ctx context.Context, lastVersion int64, fetchRemote FetchRemote, applyLocal applier.ApplyEntry, commit CommitVersion) (Stats, error) {
	logger := c.logger()
	var stats Stats

	err := c.Conn.WithSuppression(ctx, func(ctx context.Context) error {
		applied, final, err := pager.ProcessAllBatches(
			ctx, lastVersion, c.BatchConfig,
			pager.Fetcher(fetchRemote),
			func(ctx context.Context, batch pager.Batch) (int, error) {
				result, err := applier.ApplyBatch(ctx, batch, c.LocalOriginID, c.MaxPasses, applyLocal)
				if err != nil {
					return len(result.Applied), err
				}
				logger.Printf("coordinator: pull applied %d entries (version %d..%d)", len(result.Applied), batch.FromVersion, batch.ToVersion)
				return len(result.Applied), nil
			},
			pager.CommitFunc(commit),
		)
		stats = Stats{ChangesApplied: applied, FromVersion: lastVersion, ToVersion: final}
		return err
	})

	return stats, err
}

// Push is the mirror of Pull: it fetches local batches and hands them to
// sendRemote, which is responsible for transport and for reporting whether
// the remote accepted the batch. Push does not apply anything
// locally, so it does not need suppression.
func (c *Coordinator) Push(ctx context.Context, lastPushVersion int64, fetchLocal pager.Fetcher, sendRemote SendRemote, commit CommitVersion) (Stats, error) {
	applied, final, err := pager.ProcessAllBatches(
		ctx, lastPushVersion, c.BatchConfig, fetchLocal,
		func(ctx context.Context, batch pager.Batch) (int, error) {
			if err := sendRemote(ctx, batch); err != nil {
				return 0, err
			}
			c.logger().Printf("coordinator: push sent %d entries (version %d..%d)", len(batch.Entries), batch.FromVersion, batch.ToVersion)
			return len(batch.Entries), nil
		},
		pager.CommitFunc(commit),
	)
	return Stats{ChangesApplied: applied, FromVersion: lastPushVersion, ToVersion: final}, err
}

// SyncResult reports the outcome of both halves of Sync.
type SyncResult struct {
	Pull Stats
	Push Stats
}

// Sync pulls, then pushes. If pull fails, push is not attempted; pull's
// partial progress (whatever was committed before the failure) is retained
// regardless.
func (c *Coordinator) Sync(
	ctx context.Context,
	lastVersion int64, fetchRemote FetchRemote, applyLocal applier.ApplyEntry, commitPull CommitVersion,
	lastPushVersion int64, fetchLocal pager.Fetcher, sendRemote SendRemote, commitPush CommitVersion,
) (SyncResult, error) {
	pullStats, err := c.Pull(ctx, lastVersion, fetchRemote, applyLocal, commitPull)
	if err != nil {
		return SyncResult{Pull: pullStats}, err
	}

	pushStats, err := c.Push(ctx, lastPushVersion, fetchLocal, sendRemote, commitPush)
	return SyncResult{Pull: pullStats, Push: pushStats}, err
}

func (c *Coordinator) logger() repllog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return repllog.Default()
}
