package job

import (
	"sync"
	"time"
)

// cacheKey identifies one getNextPossibleStartTime/getNextEndTime call by
// its search window.
type cacheKey struct {
	From  time.Time
	Until time.Time
}

type cacheEntry struct {
	result time.Time
	reason string
	found  bool
}

// StartTimeCache memoizes the result of searching a job's (from, until)
// window for the next possible start or end time. The search is expensive
// (a step-by-step scan re-evaluating every constraint predicate), and the
// same window is often asked about repeatedly within one scheduling pass
// (once by selectNextJob's priority loop, again by the group-fairness
// overlay). It is cleared at the start of every scheduling pass via
// Job.ClearCache, since constraint results depend on "now".
type StartTimeCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

// NewStartTimeCache returns an empty cache.
func NewStartTimeCache() *StartTimeCache {
	return &StartTimeCache{entries: make(map[cacheKey]cacheEntry)}
}

// Get returns the cached entry for the exact (from, until) pair, and
// whether one was present at all (as opposed to whether the search it
// memoizes succeeded — check the returned entry's Found for that).
func (c *StartTimeCache) Get(from, until time.Time) (entry cacheEntry, present bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey{From: from, Until: until}]
	return e, ok
}

// Result is the cached time a search settled on (zero if it found nothing).
func (e cacheEntry) Result() time.Time { return e.result }

// Reason is the cached diagnostic string, set when the search failed.
func (e cacheEntry) Reason() string { return e.reason }

// Found reports whether the memoized search succeeded.
func (e cacheEntry) Found() bool { return e.found }

// Set records the result of a (from, until) search.
func (c *StartTimeCache) Set(from, until, result time.Time, reason string, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{From: from, Until: until}] = cacheEntry{result: result, reason: reason, found: found}
}

// Clear discards all cached entries.
func (c *StartTimeCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cacheEntry)
}
