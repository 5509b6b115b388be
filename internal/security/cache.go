package security

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/itemstore/internal/datastore"
)

// UserCache holds recently authenticated users so that every request does not
// hit the users table. Entries expire after the configured TTL.
type UserCache struct {
	c *cache.Cache
}

// NewUserCache returns a cache whose entries live for ttl. A zero ttl disables caching.
func NewUserCache(ttl time.Duration) *UserCache {
	if ttl <= 0 {
		return &UserCache{}
	}
	return &UserCache{c: cache.New(ttl, cacheCleanupFactor*ttl)}
}

func userKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// Get returns a copy of the cached user.
func (uc *UserCache) Get(id uint) (datastore.User, bool) {
	if uc.c == nil {
		return datastore.User{}, false
	}
	v, ok := uc.c.Get(userKey(id))
	if !ok {
		return datastore.User{}, false
	}
	user, ok := v.(datastore.User)
	return user, ok
}

// Set caches user under its ID.
func (uc *UserCache) Set(user *datastore.User) {
	if uc.c == nil || user == nil {
		return
	}
	uc.c.SetDefault(userKey(user.ID), *user)
}

// Invalidate drops a cached user.
func (uc *UserCache) Invalidate(id uint) {
	if uc.c == nil {
		return
	}
	uc.c.Delete(userKey(id))
}

// Len returns the number of cached users, expired entries included until cleanup.
func (uc *UserCache) Len() int {
	if uc.c == nil {
		return 0
	}
	return uc.c.ItemCount()
}
