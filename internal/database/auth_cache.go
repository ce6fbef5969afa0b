package database

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// AuthCacheEntry represents a cached authentication result
type AuthCacheEntry struct {
	PrincipalID  int
	Username     string
	PasswordHash string // hash of the provided password for verification
	ExpiresAt    time.Time
}

// AuthCache provides in-memory caching of successful authentications so
// newsreaders that reconnect per command batch do not pay the bcrypt cost
// every time.
type AuthCache struct {
	entries map[string]*AuthCacheEntry // key: username
	mutex   sync.RWMutex
	ttl     time.Duration

	hits   int64
	misses int64
}

// NewAuthCache creates a new authentication cache with the given TTL.
func NewAuthCache(ttl time.Duration) *AuthCache {
	return &AuthCache{
		entries: make(map[string]*AuthCacheEntry),
		ttl:     ttl,
	}
}

// generatePasswordHash creates a deterministic hash of the provided password.
// This is NOT for storage, only for cache-entry verification.
func generatePasswordHash(password string) string {
	hash := sha256.Sum256([]byte(password))
	return fmt.Sprintf("%x", hash)
}

// Set caches a successful authentication
func (c *AuthCache) Set(principalID int, username, password string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[username] = &AuthCacheEntry{
		PrincipalID:  principalID,
		Username:     username,
		PasswordHash: generatePasswordHash(password),
		ExpiresAt:    time.Now().Add(c.ttl),
	}
}

// Get checks if authentication is cached and still valid
func (c *AuthCache) Get(username, password string) (int, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[username]
	if !exists || time.Now().After(entry.ExpiresAt) {
		c.misses++
		return 0, false
	}
	if entry.PasswordHash != generatePasswordHash(password) {
		c.misses++
		return 0, false
	}

	c.hits++
	return entry.PrincipalID, true
}

// Remove drops a cached entry, e.g. after a password change.
func (c *AuthCache) Remove(username string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, username)
}

// Stats returns hit/miss counters for the admin API.
func (c *AuthCache) Stats() map[string]interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return map[string]interface{}{
		"entries": len(c.entries),
		"hits":    c.hits,
		"misses":  c.misses,
	}
}
