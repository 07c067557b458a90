package guard

import (
	"context"
	"time"
)

// Result reports the outcome of a rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long the caller should wait when denied.
	RetryAfter time.Duration
}

// Guard bounds repeated attempts per caller identity. Invite validation and
// acceptance consult it before reaching the lifecycle managers, blunting
// token-enumeration attacks.
type Guard interface {
	// Allow consumes one attempt from the key's budget of points per window.
	Allow(ctx context.Context, key string, points int, window time.Duration) (*Result, error)
}
