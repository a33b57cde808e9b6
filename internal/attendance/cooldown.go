package attendance

import (
	"time"
)

// cooldownMap tracks when each identity was last marked OUT so immediate
// re-detections do not reopen a session. Entries are transient and evicted
// lazily on read; the map is intentionally not persisted, a restart simply
// forgets recent OUTs.
type cooldownMap struct {
	ttl     time.Duration
	entries map[string]time.Time
}

func newCooldownMap(ttl time.Duration) *cooldownMap {
	return &cooldownMap{
		ttl:     ttl,
		entries: make(map[string]time.Time),
	}
}

// Active reports whether name is still cooling down at now. Expired
// entries are evicted as a side effect.
func (c *cooldownMap) Active(name string, now time.Time) bool {
	last, ok := c.entries[name]
	if !ok {
		return false
	}
	if now.Sub(last) < c.ttl {
		return true
	}
	delete(c.entries, name)
	return false
}

// Set records an OUT at the given time for name.
func (c *cooldownMap) Set(name string, t time.Time) {
	c.entries[name] = t
}

// Len returns the number of live entries, counting expired ones until
// they are read.
func (c *cooldownMap) Len() int {
	return len(c.entries)
}
