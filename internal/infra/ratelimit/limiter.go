// Package ratelimit throttles password grant attempts per client.
package ratelimit

import (
	"context"
	"strings"
	"time"
)

type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// GrantKey names the account and client address a password grant attempt
// comes from. Usernames compare case-insensitively.
type GrantKey struct {
	Username string
	ClientIP string
}

func (k GrantKey) normalized() GrantKey {
	return GrantKey{Username: strings.ToLower(strings.TrimSpace(k.Username)), ClientIP: k.ClientIP}
}

func (k GrantKey) String() string {
	n := k.normalized()
	return "grant:" + n.ClientIP + ":" + n.Username
}

// Limiter counts grant attempts per key in fixed windows. A limit <= 0
// disables it.
type Limiter interface {
	Allow(ctx context.Context, key GrantKey, limit int, window time.Duration) (Decision, error)
	// Forget drops the attempts recorded for key, after a successful grant.
	Forget(ctx context.Context, key GrantKey) error
}

func unlimited(limit int) Decision {
	return Decision{Allowed: true, Limit: limit, Remaining: limit}
}
