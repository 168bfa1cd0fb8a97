package utils

import (
	"context"
	"sync"
	"time"
)

var (
	oauthStates   = map[string]time.Time{}
	oauthStatesMu sync.Mutex
)

// SaveState records a one-time OAuth state nonce with a TTL.
func SaveState(state string, ttl time.Duration) {
	if state == "" {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rc.Set(ctx, "oauth:state:"+state, "1", ttl).Err()
		return
	}
	oauthStatesMu.Lock()
	oauthStates[state] = time.Now().Add(ttl)
	oauthStatesMu.Unlock()
}

// ConsumeState validates and deletes an OAuth state nonce. Returns false for
// unknown or expired states.
func ConsumeState(state string) bool {
	if state == "" {
		return false
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Del(ctx, "oauth:state:"+state).Result()
		return err == nil && n > 0
	}
	oauthStatesMu.Lock()
	defer oauthStatesMu.Unlock()
	expires, ok := oauthStates[state]
	if !ok {
		return false
	}
	delete(oauthStates, state)
	return time.Now().Before(expires)
}
