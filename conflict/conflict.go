// Package conflict is the Conflict Resolver: decides which
// of two log entries wins when two peers independently modify the same key.
package conflict

import (
	"github.com/repldef/repldef/synclog"
	"github.com/repldef/repldef/syncerr"
)

// Strategy selects how conflicts are resolved.
type Strategy int

const (
	LastWriteWins Strategy = iota
	ServerWins
	ClientWins
	Custom
)

// CustomResolver is the caller-supplied resolver for Strategy=Custom. It
// returns the winning entry, or an error (typically wrapping
// UnresolvedConflict) if it declines to decide.
type CustomResolver func(local, remote synclog.Entry) (synclog.Entry, error)

// Resolution is the result of Resolve.
type Resolution struct {
	Winner   synclog.Entry
	Strategy Strategy
}

// IsConflict reports whether local and remote are a genuine conflict: same
// table and PK, different origin.
func IsConflict(local, remote synclog.Entry) bool {
	return local.TableName == remote.TableName &&
		string(local.PKValue) == string(remote.PKValue) &&
		local.Origin != remote.Origin
}

// Resolve picks a winner between local and remote per strategy. serverOrigin
// is required only for ServerWins. custom is required only for Custom.
func Resolve(local, remote synclog.Entry, strategy Strategy, serverOrigin string, custom CustomResolver) (Resolution, error) {
	switch strategy {
	case LastWriteWins:
		return Resolution{Winner: pickLatest(local, remote), Strategy: strategy}, nil

	case ServerWins:
		if local.Origin == serverOrigin {
			return Resolution{Winner: local, Strategy: strategy}, nil
		}
		return Resolution{Winner: remote, Strategy: strategy}, nil

	case ClientWins:
		return Resolution{Winner: local, Strategy: strategy}, nil

	case Custom:
		if custom == nil {
			return Resolution{}, &syncerr.Error{Kind: syncerr.UnresolvedConflict, Local: local, Remote: remote, Reason: "no custom resolver supplied"}
		}
		winner, err := custom(local, remote)
		if err != nil {
			return Resolution{}, &syncerr.Error{Kind: syncerr.UnresolvedConflict, Local: local, Remote: remote, Reason: err.Error(), Cause: err}
		}
		return Resolution{Winner: winner, Strategy: strategy}, nil

	default:
		return Resolution{}, syncerr.Invalid("conflict: unknown strategy %d", strategy)
	}
}

// pickLatest compares timestamps lexicographically (RFC3339 with
// millisecond precision sorts correctly as a string); ties go to the
// higher version.
func pickLatest(local, remote synclog.Entry) synclog.Entry {
	if local.Timestamp > remote.Timestamp {
		return local
	}
	if remote.Timestamp > local.Timestamp {
		return remote
	}
	if local.Version >= remote.Version {
		return local
	}
	return remote
}
