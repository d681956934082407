// Package tombstone is the Tombstone / Client Tracker:
// computes the safe purge watermark from known peers and detects
// too-far-behind and stale clients.
package tombstone

import (
	"time"

	"github.com/repldef/repldef/synclog"
	"github.com/repldef/repldef/syncerr"
)

// SafePurgeVersion is min(lastSyncVersion) across clients; rows at or below
// it are safe to delete since no known peer still needs them. With zero
// clients, the safe purge version is 0 (purge nothing).
func SafePurgeVersion(clients []synclog.Client) int64 {
	if len(clients) == 0 {
		return 0
	}
	min := clients[0].LastSyncVersion
	for _, c := range clients[1:] {
		if c.LastSyncVersion < min {
			min = c.LastSyncVersion
		}
	}
	return min
}

// CheckResync returns a FullResyncRequired error if clientVersion is behind
// oldestAvailableVersion, nil otherwise.
func CheckResync(clientVersion, oldestAvailableVersion int64) error {
	if clientVersion < oldestAvailableVersion {
		return &syncerr.Error{
			Kind:                   syncerr.FullResyncRequired,
			ClientVersion:          clientVersion,
			OldestAvailableVersion: oldestAvailableVersion,
		}
	}
	return nil
}

// StaleClients returns the origin IDs of clients whose LastSyncTimestamp is
// older than staleWindow relative to now. Stale clients are surfaced for
// administrative cleanup, not automatically deleted.
func StaleClients(clients []synclog.Client, now time.Time, staleWindow time.Duration) []string {
	var stale []string
	for _, c := range clients {
		if now.Sub(c.LastSyncTimestamp) > staleWindow {
			stale = append(stale, c.OriginID)
		}
	}
	return stale
}
