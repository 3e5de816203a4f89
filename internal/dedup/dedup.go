// Package dedup drops repeated MQTT deliveries within a time window.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Deduper remembers message ids for a TTL. It is safe for concurrent use.
type Deduper struct {
	mu   sync.Mutex
	ttl  time.Duration
	max  int
	seen map[string]time.Time
	last map[string]lastPayload
	now  func() time.Time
}

type lastPayload struct {
	hash    string
	expires time.Time
}

// New returns a Deduper keeping ids for ttl and at most max entries
// (expired entries are purged once max is exceeded).
func New(ttl time.Duration, max int) *Deduper {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if max <= 0 {
		max = 10000
	}
	return &Deduper{ttl: ttl, max: max, seen: make(map[string]time.Time, max), last: make(map[string]lastPayload), now: time.Now}
}

// ShouldProcess reports whether id has not been seen within the TTL, and
// records it. Empty ids are always processed.
func (d *Deduper) ShouldProcess(id string) bool {
	if id == "" {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if exp, ok := d.seen[id]; ok && now.Before(exp) {
		return false
	}
	d.seen[id] = now.Add(d.ttl)
	if len(d.seen) > d.max {
		for k, v := range d.seen {
			if now.After(v) {
				delete(d.seen, k)
			}
			if len(d.seen) <= d.max {
				break
			}
		}
	}
	return true
}

// ShouldProcessNext reports whether payload differs from the previous payload
// seen on stream within the TTL, and makes it the stream's latest. Only a
// back-to-back repeat is dropped, so A, B, A yields three deliveries.
func (d *Deduper) ShouldProcessNext(stream string, payload []byte) bool {
	h := hashOf(payload)

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	prev, ok := d.last[stream]
	d.last[stream] = lastPayload{hash: h, expires: now.Add(d.ttl)}
	return !ok || prev.hash != h || !now.Before(prev.expires)
}

func hashOf(payload []byte) string {
	h := sha256.Sum256(payload)
	return hex.EncodeToString(h[:])
}

// Len returns the number of remembered ids, expired or not.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
