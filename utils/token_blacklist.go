package utils

import (
	"context"
	"sync"
	"time"
)

// revokedEntry keeps expiration metadata for a revoked session id.
type revokedEntry struct {
	expiresAt time.Time
}

var (
	revoked   = map[string]revokedEntry{}
	revokedMu sync.RWMutex
)

// RevokeSession marks a session id (jti) as logged out until the token would
// expire on its own. Prefers Redis so revocation survives restarts.
func RevokeSession(jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	if rc := GetRedis(); rc != nil {
		ttl := time.Until(expiresAt)
		if ttl <= 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rc.Set(ctx, "session:revoked:"+jti, "1", ttl).Err()
		return
	}
	revokedMu.Lock()
	revoked[jti] = revokedEntry{expiresAt: expiresAt}
	revokedMu.Unlock()
}

// IsSessionRevoked checks whether a session id was revoked before natural expiration.
func IsSessionRevoked(jti string) bool {
	if jti == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, "session:revoked:"+jti).Result()
		if err == nil {
			return n > 0
		}
		// Fail open on Redis errors to avoid locking every session out.
		return false
	}
	revokedMu.RLock()
	entry, ok := revoked[jti]
	revokedMu.RUnlock()
	if !ok {
		return false
	}

	if time.Now().After(entry.expiresAt) {
		revokedMu.Lock()
		delete(revoked, jti)
		revokedMu.Unlock()
		return false
	}

	return true
}
