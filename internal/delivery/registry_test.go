package delivery

import (
	"testing"
	"time"
)

func TestPollRegistryLookup(t *testing.T) {
	t.Parallel()

	registry := NewPollRegistry(time.Hour)
	registry.Register("poll-1", PollRegistration{Subscriber: "Alice", RunIndex: 2})

	registration, ok := registry.Lookup("poll-1")
	if !ok {
		t.Fatal("Lookup() should find a fresh registration")
	}
	if registration.Subscriber != "Alice" || registration.RunIndex != 2 {
		t.Fatalf("registration = %+v", registration)
	}

	if _, ok := registry.Lookup("poll-unknown"); ok {
		t.Fatal("Lookup() should miss an unknown poll id")
	}
}

func TestPollRegistryTTLEviction(t *testing.T) {
	t.Parallel()

	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	registry := NewPollRegistry(time.Hour)
	registry.now = func() time.Time { return current }

	registry.Register("poll-1", PollRegistration{Subscriber: "Alice"})

	current = current.Add(59 * time.Minute)
	if _, ok := registry.Lookup("poll-1"); !ok {
		t.Fatal("registration should survive inside its TTL")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := registry.Lookup("poll-1"); ok {
		t.Fatal("registration should expire after its TTL")
	}
	if registry.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after eviction", registry.Len())
	}
}
