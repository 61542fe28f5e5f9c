// Package cache memoizes resolver decisions and remote service listings in
// two independently configured TTL regions. For decisions, TTL expiry is a
// safety net; the primary consistency mechanism is explicit invalidation
// (see Invalidation). Listings expire by TTL alone and are overwritten
// wholesale on every fetch.
package cache

import (
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/mishaschwartz/Magpie/pkg/magpie"
)

type Config struct {
	DecisionsEnabled bool
	DecisionTTL      time.Duration

	ListingsEnabled bool
	ListingTTL      time.Duration
}

func DefaultConfig() Config {
	return Config{
		DecisionsEnabled: true,
		DecisionTTL:      20 * time.Second,
		ListingsEnabled:  true,
		ListingTTL:       time.Minute,
	}
}

type DecisionKey struct {
	Fingerprint string
	ResourceID  int64
	Action      string
}

func (k DecisionKey) String() string {
	return k.Fingerprint + "|" + strconv.FormatInt(k.ResourceID, 10) + "|" + k.Action
}

// Cache holds the two regions. A disabled region always misses and drops
// puts, so callers never branch on configuration.
type Cache struct {
	config Config

	decisions *gocache.Cache
	listings  *gocache.Cache

	mu         sync.Mutex
	byResource map[int64]map[string]DecisionKey
	byUser     map[string]map[string]DecisionKey
	keyUsers   map[string]string
}

func New(config Config) *Cache {
	c := &Cache{
		config:     config,
		byResource: make(map[int64]map[string]DecisionKey),
		byUser:     make(map[string]map[string]DecisionKey),
		keyUsers:   make(map[string]string),
	}

	if config.DecisionsEnabled {
		c.decisions = gocache.New(config.DecisionTTL, 2*config.DecisionTTL)
		c.decisions.OnEvicted(func(key string, _ interface{}) {
			c.mu.Lock()
			c.dropIndexedLocked(key)
			c.mu.Unlock()
		})
	}
	if config.ListingsEnabled {
		c.listings = gocache.New(config.ListingTTL, 2*config.ListingTTL)
	}

	return c
}

func (c *Cache) GetDecision(key DecisionKey) (magpie.Decision, bool) {
	if c.decisions == nil {
		return magpie.DecisionUndefined, false
	}

	value, ok := c.decisions.Get(key.String())
	if !ok {
		return magpie.DecisionUndefined, false
	}

	return value.(magpie.Decision), true
}

// PutDecision stores a decision under key. user names the user whose
// principal set produced the fingerprint, so membership mutations can find
// the key again.
func (c *Cache) PutDecision(key DecisionKey, user string, decision magpie.Decision) {
	if c.decisions == nil {
		return
	}

	keyString := key.String()

	c.mu.Lock()
	if _, ok := c.byResource[key.ResourceID]; !ok {
		c.byResource[key.ResourceID] = make(map[string]DecisionKey)
	}
	c.byResource[key.ResourceID][keyString] = key

	if _, ok := c.byUser[user]; !ok {
		c.byUser[user] = make(map[string]DecisionKey)
	}
	c.byUser[user][keyString] = key
	c.keyUsers[keyString] = user
	c.mu.Unlock()

	c.decisions.Set(keyString, decision, gocache.DefaultExpiration)
}

// Apply drops every cached decision the invalidation names. Callers run it
// before the corresponding store mutation becomes visible.
func (c *Cache) Apply(invalidation Invalidation) {
	if c.decisions == nil {
		return
	}

	c.mu.Lock()
	doomed := make(map[string]struct{})
	for _, id := range invalidation.ResourceIDs {
		for keyString := range c.byResource[id] {
			doomed[keyString] = struct{}{}
		}
	}
	for _, user := range invalidation.Users {
		for keyString := range c.byUser[user] {
			doomed[keyString] = struct{}{}
		}
	}
	for keyString := range doomed {
		c.dropIndexedLocked(keyString)
	}
	c.mu.Unlock()

	for keyString := range doomed {
		c.decisions.Delete(keyString)
	}
}

func (c *Cache) GetListing(serviceType string) ([]magpie.RemoteResource, bool) {
	if c.listings == nil {
		return nil, false
	}

	value, ok := c.listings.Get(serviceType)
	if !ok {
		return nil, false
	}

	return value.([]magpie.RemoteResource), true
}

func (c *Cache) PutListing(serviceType string, listing []magpie.RemoteResource) {
	if c.listings == nil {
		return
	}

	c.listings.Set(serviceType, listing, gocache.DefaultExpiration)
}

// dropIndexedLocked removes keyString from every index. Callers hold c.mu.
func (c *Cache) dropIndexedLocked(keyString string) {
	user, ok := c.keyUsers[keyString]
	if !ok {
		return
	}
	delete(c.keyUsers, keyString)

	if keys, ok := c.byUser[user]; ok {
		key := keys[keyString]
		delete(keys, keyString)
		if len(keys) == 0 {
			delete(c.byUser, user)
		}

		if byResource, ok := c.byResource[key.ResourceID]; ok {
			delete(byResource, keyString)
			if len(byResource) == 0 {
				delete(c.byResource, key.ResourceID)
			}
		}
	}
}
