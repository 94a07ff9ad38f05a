package synonym

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

// Pair is a single learned association token -> synonym.
type Pair struct {
	Token   string `json:"token"`
	Synonym string `json:"synonym"`
}

// Store holds personal synonyms learned from earlier searches. It is
// passed explicitly to index construction and to the learning step.
type Store interface {
	// Lookup returns the learned synonyms for token.
	Lookup(token string) []string
	// Add records token -> synonym in memory and reports whether it was new.
	Add(token, synonym string) bool
	// Load replaces the in-memory table with the persisted one.
	Load(ctx context.Context) error
	// Persist flushes pending additions to the backing store.
	Persist(ctx context.Context) error
	// Generation increases every time a new pair is added.
	Generation() uint64
	// Snapshot returns a copy of the table with sorted values.
	Snapshot() map[string][]string
}

// Backend persists learned pairs. A nil Backend keeps everything in memory.
type Backend interface {
	LoadAll(ctx context.Context) ([]Pair, error)
	Save(ctx context.Context, pairs []Pair) error
}

var _ Store = (*PersonalStore)(nil)

// PersonalStore is the default Store: an in-memory set map with an optional
// persistence backend. It is safe for concurrent use.
type PersonalStore struct {
	mu         sync.RWMutex
	entries    map[string]map[string]struct{}
	pending    []Pair
	backend    Backend
	generation atomic.Uint64
}

// NewPersonalStore returns an empty store. backend may be nil.
func NewPersonalStore(backend Backend) *PersonalStore {
	return &PersonalStore{
		entries: make(map[string]map[string]struct{}),
		backend: backend,
	}
}

func (s *PersonalStore) Lookup(token string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.entries[token]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for syn := range set {
		out = append(out, syn)
	}
	sort.Strings(out)
	return out
}

func (s *PersonalStore) Add(token, synonym string) bool {
	if token == "" || synonym == "" || token == synonym {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.insertLocked(token, synonym) {
		return false
	}
	s.pending = append(s.pending, Pair{Token: token, Synonym: synonym})
	s.generation.Add(1)
	return true
}

func (s *PersonalStore) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	pairs, err := s.backend.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading personal synonyms: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]map[string]struct{}, len(pairs))
	for _, p := range pairs {
		s.insertLocked(p.Token, p.Synonym)
	}
	// Additions not yet flushed survive a reload.
	for _, p := range s.pending {
		s.insertLocked(p.Token, p.Synonym)
	}
	s.generation.Add(1)
	return nil
}

func (s *PersonalStore) Persist(ctx context.Context) error {
	if s.backend == nil {
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
		return nil
	}
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	if err := s.backend.Save(ctx, batch); err != nil {
		s.mu.Lock()
		s.pending = append(batch, s.pending...)
		s.mu.Unlock()
		return fmt.Errorf("persisting %d personal synonyms: %w", len(batch), err)
	}
	return nil
}

func (s *PersonalStore) Generation() uint64 {
	return s.generation.Load()
}

func (s *PersonalStore) Snapshot() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string, len(s.entries))
	for token, set := range s.entries {
		values := make([]string, 0, len(set))
		for syn := range set {
			values = append(values, syn)
		}
		sort.Strings(values)
		out[token] = values
	}
	return out
}

// Pending returns the number of additions not yet persisted.
func (s *PersonalStore) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

func (s *PersonalStore) insertLocked(token, synonym string) bool {
	set, ok := s.entries[token]
	if !ok {
		set = make(map[string]struct{})
		s.entries[token] = set
	}
	if _, exists := set[synonym]; exists {
		return false
	}
	set[synonym] = struct{}{}
	return true
}
