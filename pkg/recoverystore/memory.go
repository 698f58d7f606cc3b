package recoverystore

import (
	"context"
	"sync"

	"github.com/novavault/recovery-middleware/pkg/recovery"
)

type memoryEntry struct {
	mu sync.Mutex
	// deleted marks an entry removed while another goroutine still holds a
	// reference to it. Readers and writers that acquire mu afterwards must
	// treat it as gone.
	deleted bool
	req     *recovery.Request
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// NewMemoryStore creates an in-memory store. Per-identity mutual exclusion
// is a mutex on each entry, so Mutate calls for different identities never
// block each other.
func NewMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]*memoryEntry)}
}

func (s *memoryStore) Create(ctx context.Context, req *recovery.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[req.IdentityKey]; ok {
		entry.mu.Lock()
		active := !entry.deleted && entry.req.Status.Active()
		entry.mu.Unlock()
		if active {
			return ErrActiveExists
		}
	}
	s.entries[req.IdentityKey] = &memoryEntry{req: clone(req)}
	return nil
}

func (s *memoryStore) Get(ctx context.Context, identityKey string) (*recovery.Request, error) {
	entry, err := s.entry(identityKey)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return nil, ErrRequestNotFound
	}
	return clone(entry.req), nil
}

func (s *memoryStore) Mutate(ctx context.Context, identityKey string, fn func(*recovery.Request) error) (*recovery.Request, error) {
	entry, err := s.entry(identityKey)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.deleted {
		return nil, ErrRequestNotFound
	}

	next := clone(entry.req)
	if err := fn(next); err != nil {
		return nil, err
	}
	entry.req = next
	return clone(next), nil
}

func (s *memoryStore) Delete(ctx context.Context, identityKey string) error {
	return s.DeleteIf(ctx, identityKey, func(*recovery.Request) error { return nil })
}

func (s *memoryStore) DeleteIf(ctx context.Context, identityKey string, fn func(*recovery.Request) error) error {
	entry, err := s.entry(identityKey)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	if entry.deleted {
		entry.mu.Unlock()
		return ErrRequestNotFound
	}
	if err := fn(clone(entry.req)); err != nil {
		entry.mu.Unlock()
		return err
	}
	entry.deleted = true
	entry.mu.Unlock()

	// The deleted flag already hides the entry; the map cleanup happens
	// outside entry.mu so lock order against Create stays s.mu before
	// entry.mu. Create may have replaced the slot in the meantime.
	s.mu.Lock()
	if current, ok := s.entries[identityKey]; ok && current == entry {
		delete(s.entries, identityKey)
	}
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) entry(identityKey string) (*memoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[identityKey]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return entry, nil
}
