package recordstore

import (
	"slices"
	"sync"
	"time"

	"github.com/Strob0t/interviewlab/internal/domain/settings"
)

// settingsCache holds the last settings read or written and when. Entries
// older than ttl are stale and refreshed from the backend on the next read.
// A read that found no record is remembered the same way.
type settingsCache struct {
	mu          sync.Mutex
	value       *settings.Settings
	missing     bool
	refreshedAt time.Time
	ttl         time.Duration
	now         func() time.Time
}

// get reports a fresh entry. missing is set when the fresh entry records
// that no settings exist.
func (c *settingsCache) get() (value *settings.Settings, missing, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if (c.value == nil && !c.missing) || c.ttl <= 0 || c.now().Sub(c.refreshedAt) >= c.ttl {
		return nil, false, false
	}
	if c.missing {
		return nil, true, true
	}
	return clone(c.value), false, true
}

func (c *settingsCache) set(s *settings.Settings) {
	c.mu.Lock()
	c.value = clone(s)
	c.missing = false
	c.refreshedAt = c.now()
	c.mu.Unlock()
}

func (c *settingsCache) setMissing() {
	c.mu.Lock()
	c.value = nil
	c.missing = true
	c.refreshedAt = c.now()
	c.mu.Unlock()
}

func (c *settingsCache) invalidate() {
	c.mu.Lock()
	c.value = nil
	c.missing = false
	c.mu.Unlock()
}

func clone(s *settings.Settings) *settings.Settings {
	out := *s
	out.ScoringFactors = slices.Clone(s.ScoringFactors)
	out.OutputOptions = slices.Clone(s.OutputOptions)
	return &out
}
