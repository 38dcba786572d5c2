package core

import (
	"context"
	"time"
)

// SessionStore remembers revoked session token ids until they would have expired anyway.
type SessionStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
