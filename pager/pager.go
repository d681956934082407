// Package pager is the Batch Fetch/Pager: paginates a
// change log by monotonic version and folds in an optional batch hash.
package pager

import (
	"context"

	"github.com/repldef/repldef/hashutil"
	"github.com/repldef/repldef/synclog"
)

// Batch is the SyncBatch wire shape exchanged between peers.
type Batch struct {
	Entries     []synclog.Entry
	FromVersion int64
	ToVersion   int64
	HasMore     bool
	Hash        string // empty means "not computed"
}

// Fetcher reads up to limit entries with version > fromVersion, in
// ascending version order. It is the only suspension point in this
// package; pager itself never touches storage directly.
type Fetcher func(ctx context.Context, fromVersion int64, limit int) ([]synclog.Entry, error)

// Config controls pagination and hashing.
type Config struct {
	BatchSize    int
	ComputeHash  bool
}

// FetchBatch reads entries with version > fromVersion, limited to
// config.BatchSize, and reports whether the store had at least one more row
// beyond the limit. ToVersion is the max version returned, or
// fromVersion if the batch is empty.
func FetchBatch(ctx context.Context, fromVersion int64, config Config, fetch Fetcher) (Batch, error) {
	limit := config.BatchSize
	if limit <= 0 {
		limit = 500
	}

	// Fetch one extra row to detect hasMore without a second round-trip.
	rows, err := fetch(ctx, fromVersion, limit+1)
	if err != nil {
		return Batch{}, err
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	toVersion := fromVersion
	if len(rows) > 0 {
		toVersion = rows[len(rows)-1].Version
	}

	batch := Batch{
		Entries:     rows,
		FromVersion: fromVersion,
		ToVersion:   toVersion,
		HasMore:     hasMore,
	}

	if config.ComputeHash && len(rows) > 0 {
		hash, err := hashutil.ComputeBatchHash(rows)
		if err != nil {
			return Batch{}, err
		}
		batch.Hash = hash
	}

	return batch, nil
}

// ApplyFunc consumes one fetched batch; returns the count of entries it
// actually applied (used for changesApplied accounting in the coordinator)
// and an error that aborts the whole pass.
type ApplyFunc func(ctx context.Context, batch Batch) (applied int, err error)

// CommitFunc durably records progress after a batch succeeds, so that a
// restart resumes from the last committed watermark rather than fromVersion
//.
type CommitFunc func(ctx context.Context, toVersion int64) error

// ProcessAllBatches repeatedly fetches and applies batches starting at
// start until the fetcher reports HasMore=false, committing the watermark
// after each successful batch. It returns the total number of entries
// applied and the final watermark.
func ProcessAllBatches(ctx context.Context, start int64, config Config, fetch Fetcher, apply ApplyFunc, commit CommitFunc) (changesApplied int, finalVersion int64, err error) {
	finalVersion = start
	for {
		batch, err := FetchBatch(ctx, finalVersion, config, fetch)
		if err != nil {
			return changesApplied, finalVersion, err
		}

		if len(batch.Entries) == 0 {
			return changesApplied, finalVersion, nil
		}

		applied, err := apply(ctx, batch)
		if err != nil {
			// Database errors abort the current batch; the watermark is not
			// advanced past the last committed value.
			return changesApplied, finalVersion, err
		}
		changesApplied += applied

		if err := commit(ctx, batch.ToVersion); err != nil {
			return changesApplied, finalVersion, err
		}
		finalVersion = batch.ToVersion

		if !batch.HasMore {
			return changesApplied, finalVersion, nil
		}
	}
}
