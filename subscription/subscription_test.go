package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/repldef/repldef/synclog"
)

func TestIsExpiredStrictBoundary(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	exact := now
	sub := Subscription{ExpiresAt: &exact}
	assert.False(t, sub.IsExpired(now), "equal to expiry is not yet expired")

	past := now.Add(-time.Second)
	sub = Subscription{ExpiresAt: &past}
	assert.True(t, sub.IsExpired(now))

	sub = Subscription{ExpiresAt: nil}
	assert.False(t, sub.IsExpired(now))
}

func TestMatchesTableSubscription(t *testing.T) {
	sub := Subscription{Type: Table, TableName: "users"}
	assert.True(t, Matches(synclog.Entry{TableName: "users"}, sub, time.Now()))
	assert.False(t, Matches(synclog.Entry{TableName: "posts"}, sub, time.Now()))
}

func TestMatchesExpiredSubscriptionNeverMatches(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	sub := Subscription{Type: Table, TableName: "users", ExpiresAt: &past}
	assert.False(t, Matches(synclog.Entry{TableName: "users"}, sub, time.Now()))
}

func TestMatchesRecordSubscriptionByPKList(t *testing.T) {
	sub := Subscription{Type: Record, TableName: "users", Filter: `[1, 2, 3]`}
	assert.True(t, Matches(synclog.Entry{TableName: "users", PKValue: []byte(`2`)}, sub, time.Now()))
	assert.False(t, Matches(synclog.Entry{TableName: "users", PKValue: []byte(`9`)}, sub, time.Now()))
}

func TestMatchesRecordSubscriptionWrongTable(t *testing.T) {
	sub := Subscription{Type: Record, TableName: "users", Filter: `[1]`}
	assert.False(t, Matches(synclog.Entry{TableName: "posts", PKValue: []byte(`1`)}, sub, time.Now()))
}

func TestMatchesQuerySubscriptionChecksTableOnly(t *testing.T) {
	sub := Subscription{Type: Query, TableName: "users", Filter: "status = 'active'"}
	assert.True(t, Matches(synclog.Entry{TableName: "users"}, sub, time.Now()))
	assert.False(t, Matches(synclog.Entry{TableName: "posts"}, sub, time.Now()))
}
