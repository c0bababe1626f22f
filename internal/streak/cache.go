package streak

import (
	"sync"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/models"
)

type cacheEntry struct {
	asOf calendar.Day
	data models.StreakData
}

// Cache memoizes streak data per habit id. Entries never expire on their own;
// callers invalidate a habit whenever its completions or patterns change.
// A lookup for a different as-of day is a miss.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

func (c *Cache) Get(habitID string, asOf calendar.Day) (models.StreakData, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[habitID]
	if !ok || !e.asOf.Equal(asOf) {
		return models.StreakData{}, false
	}
	return e.data, true
}

func (c *Cache) Put(habitID string, asOf calendar.Day, data models.StreakData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[habitID] = cacheEntry{asOf: asOf, data: data}
}

// Invalidate drops the cached streaks of one habit.
func (c *Cache) Invalidate(habitID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, habitID)
}

// Clear drops every cached entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of cached habits.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
