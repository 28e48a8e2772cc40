package delivery

import (
	"sync"
	"time"
)

const defaultRegistryTTL = 48 * time.Hour

// PollRegistration links a dispatched poll to its origin so the
// collector can attribute answers. Registrations are ephemeral; a
// process restart loses them and later answers are recorded with a
// blank origin.
type PollRegistration struct {
	Subscriber   string
	Organization string
	Program      string
	Season       int
	RunIndex     int
	ContentType  string
	Question     string
	Options      []string
}

type registryEntry struct {
	registration PollRegistration
	expiresAt    time.Time
}

// PollRegistry is an in-memory TTL cache keyed by poll id.
type PollRegistry struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]registryEntry
}

func NewPollRegistry(ttl time.Duration) *PollRegistry {
	if ttl <= 0 {
		ttl = defaultRegistryTTL
	}
	return &PollRegistry{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]registryEntry),
	}
}

func (r *PollRegistry) Register(pollID string, registration PollRegistration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweep()
	r.entries[pollID] = registryEntry{
		registration: registration,
		expiresAt:    r.now().Add(r.ttl),
	}
}

func (r *PollRegistry) Lookup(pollID string) (PollRegistration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[pollID]
	if !ok {
		return PollRegistration{}, false
	}
	if r.now().After(entry.expiresAt) {
		delete(r.entries, pollID)
		return PollRegistration{}, false
	}
	return entry.registration, true
}

func (r *PollRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweep()
	return len(r.entries)
}

// sweep drops expired entries. Callers hold the lock.
func (r *PollRegistry) sweep() {
	cutoff := r.now()
	for pollID, entry := range r.entries {
		if cutoff.After(entry.expiresAt) {
			delete(r.entries, pollID)
		}
	}
}
