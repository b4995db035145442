// Package cache holds the process-wide task listing cache. The query layer
// reads through it; every mutating operation invalidates the affected users'
// entries instead of waiting for the TTL, so staleness is bounded by writes,
// not just by expiry.
package cache

import (
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ecanturk/taskforge/internal/models"
)

// TaskListCache is the explicit get/set/invalidate surface the query layer
// is tested against.
type TaskListCache interface {
	Get(key string) ([]models.Task, bool)
	Set(key string, tasks []models.Task)
	InvalidateUser(userID uuid.UUID)
}

// Key builds a cache key scoped to one user and one filter fingerprint.
// Including the fingerprint keeps differently-filtered listings from
// shadowing each other.
func Key(userID uuid.UUID, fingerprint string) string {
	return "tasks:" + userID.String() + ":" + fingerprint
}

func userPrefix(userID uuid.UUID) string {
	return "tasks:" + userID.String() + ":"
}

// MemoryTaskListCache is a TTL cache backed by go-cache.
type MemoryTaskListCache struct {
	store *gocache.Cache
}

func NewMemory(ttl time.Duration) *MemoryTaskListCache {
	return &MemoryTaskListCache{
		store: gocache.New(ttl, 2*ttl),
	}
}

func (c *MemoryTaskListCache) Get(key string) ([]models.Task, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	tasks, ok := v.([]models.Task)
	return tasks, ok
}

func (c *MemoryTaskListCache) Set(key string, tasks []models.Task) {
	c.store.SetDefault(key, tasks)
}

// InvalidateUser drops every cached listing for the user, whatever filters
// produced them.
func (c *MemoryTaskListCache) InvalidateUser(userID uuid.UUID) {
	prefix := userPrefix(userID)
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}
}

// Nop disables caching. Used in tests that assert on raw store reads.
type Nop struct{}

func (Nop) Get(string) ([]models.Task, bool) { return nil, false }
func (Nop) Set(string, []models.Task)        {}
func (Nop) InvalidateUser(uuid.UUID)         {}
