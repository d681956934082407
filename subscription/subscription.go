// Package subscription is the Subscription Filter:
// decides which log entries a given peer subscription should see.
package subscription

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/repldef/repldef/synclog"
)

// Type enumerates subscription kinds.
type Type int

const (
	Record Type = iota
	Table
	Query
)

// Subscription is one SyncSubscription row.
type Subscription struct {
	SubscriptionID string
	OriginID       string
	Type           Type
	TableName      string
	Filter         string // JSON array for Record; opaque query text for Query
	CreatedAt      time.Time
	ExpiresAt      *time.Time
}

// IsExpired reports whether the subscription has expired as of now.
// Expiry is lexicographic RFC3339 comparison; equal to now is NOT expired
// (strict precedence).
func (s Subscription) IsExpired(now time.Time) bool {
	if s.ExpiresAt == nil {
		return false
	}
	return s.ExpiresAt.UTC().Format(time.RFC3339) < now.UTC().Format(time.RFC3339)
}

// Matches reports whether entry should be delivered to sub, given the
// current time for expiry purposes.
func Matches(entry synclog.Entry, sub Subscription, now time.Time) bool {
	if sub.IsExpired(now) {
		return false
	}

	switch sub.Type {
	case Table:
		return entry.TableName == sub.TableName
	case Query:
		// Query semantics are the host application's responsibility; this
		// component only short-circuits the table dimension.
		return entry.TableName == sub.TableName
	case Record:
		if entry.TableName != sub.TableName {
			return false
		}
		return matchesRecordFilter(entry.PKValue, sub.Filter)
	default:
		return false
	}
}

// matchesRecordFilter parses filter as a JSON array and checks whether it
// contains pkValue; if filter doesn't parse as JSON, it falls back to a
// substring match against the raw PK bytes.
func matchesRecordFilter(pkValue json.RawMessage, filter string) bool {
	var candidates []json.RawMessage
	if err := json.Unmarshal([]byte(filter), &candidates); err == nil {
		pkCanon := normalizeJSON(pkValue)
		for _, c := range candidates {
			if normalizeJSON(c) == pkCanon {
				return true
			}
		}
		return false
	}
	return strings.Contains(filter, string(pkValue))
}

// normalizeJSON collapses whitespace so two differently-formatted but
// equal JSON values compare equal; this is a pragmatic stand-in for a full
// canonicalization since PK values are expected to be small flat objects.
func normalizeJSON(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
