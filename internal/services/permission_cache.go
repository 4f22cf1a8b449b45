package services

import (
	"sync"
	"time"

	"github.com/congregate/backend/internal/models"
)

// Cache policy: entries are fresh for 5 minutes, then served stale until the
// eviction sweep removes them at 30 minutes. Explicit invalidation removes
// entries immediately, regardless of freshness.
const (
	permissionFreshFor   = 5 * time.Minute
	permissionEvictAfter = 30 * time.Minute
)

// PermissionSet is the resolved view of a user's effective permissions for
// one church: the union of permission keys across all assigned roles, plus
// the roles themselves.
type PermissionSet struct {
	Permissions []string            `json:"permissions"`
	Roles       []models.ChurchRole `json:"roles"`
}

// Has reports whether the set contains the permission key.
func (p *PermissionSet) Has(key string) bool {
	for _, k := range p.Permissions {
		if k == key {
			return true
		}
	}
	return false
}

// HasRole reports whether the set contains a role with the given name.
func (p *PermissionSet) HasRole(name string) bool {
	for _, r := range p.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

type permCacheKey struct {
	userID   uint
	churchID uint
}

type permCacheEntry struct {
	set       PermissionSet
	fetchedAt time.Time
}

// PermissionCache is an in-memory, invalidatable cache of resolved
// permission sets keyed by (user, church). It is pure storage: the
// read-through logic lives in PermissionService, which makes the cache
// trivially substitutable in tests.
type PermissionCache struct {
	mu         sync.RWMutex
	entries    map[permCacheKey]permCacheEntry
	freshFor   time.Duration
	evictAfter time.Duration
}

// NewPermissionCache creates a cache with the default policy.
func NewPermissionCache() *PermissionCache {
	return &PermissionCache{
		entries:    make(map[permCacheKey]permCacheEntry),
		freshFor:   permissionFreshFor,
		evictAfter: permissionEvictAfter,
	}
}

// Get returns the cached set for (user, church) if any entry exists,
// fresh or stale.
func (c *PermissionCache) Get(userID, churchID uint) (PermissionSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[permCacheKey{userID, churchID}]
	if !ok {
		return PermissionSet{}, false
	}
	return entry.set, true
}

// GetFresh returns the cached set only when it is within the freshness
// window; a stale hit reports false so the caller re-fetches.
func (c *PermissionCache) GetFresh(userID, churchID uint) (PermissionSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[permCacheKey{userID, churchID}]
	if !ok || time.Since(entry.fetchedAt) > c.freshFor {
		return PermissionSet{}, false
	}
	return entry.set, true
}

// Put stores a freshly resolved set.
func (c *PermissionCache) Put(userID, churchID uint, set PermissionSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[permCacheKey{userID, churchID}] = permCacheEntry{set: set, fetchedAt: time.Now()}
}

// InvalidateChurch removes every entry keyed to the church. Role mutations
// don't know which users hold the mutated role, so invalidation is
// church-wide: coarser than strictly necessary, but never stale.
func (c *PermissionCache) InvalidateChurch(churchID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if key.churchID == churchID {
			delete(c.entries, key)
		}
	}
}

// InvalidateUser removes the entry for one (user, church) pair.
func (c *PermissionCache) InvalidateUser(userID, churchID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, permCacheKey{userID, churchID})
}

// EvictStale removes entries older than the eviction window and returns
// how many were removed. Called periodically by the cleanup scheduler.
func (c *PermissionCache) EvictStale() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	for key, entry := range c.entries {
		if time.Since(entry.fetchedAt) > c.evictAfter {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of cached entries.
func (c *PermissionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
