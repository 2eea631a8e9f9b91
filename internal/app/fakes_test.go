package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pscheid92/reactboard/internal/domain"
)

// --- Mapping store ---

// memStore is an in-memory domain.MappingStore enforcing both uniqueness constraints.
type memStore struct {
	mu        sync.Mutex
	rows      []domain.BoardMapping
	nextID    int64
	findErr   error
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{}
}

func (s *memStore) FindByReference(_ context.Context, referenceID string) (*domain.BoardMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, r := range s.rows {
		if r.ReferenceID == referenceID {
			m := r
			return &m, nil
		}
	}
	return nil, domain.ErrMappingNotFound
}

func (s *memStore) FindByCounter(_ context.Context, counterID string) (*domain.BoardMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.CounterID == counterID {
			m := r
			return &m, nil
		}
	}
	return nil, domain.ErrMappingNotFound
}

func (s *memStore) Insert(_ context.Context, referenceID, counterID string) (*domain.BoardMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	for _, r := range s.rows {
		if r.ReferenceID == referenceID {
			return nil, domain.ErrDuplicateReference
		}
		if r.CounterID == counterID {
			return nil, domain.ErrDuplicateCounter
		}
	}
	s.nextID++
	m := domain.BoardMapping{ID: s.nextID, ReferenceID: referenceID, CounterID: counterID, CreatedAt: time.Now()}
	s.rows = append(s.rows, m)
	return &m, nil
}

func (s *memStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.rows)), nil
}

func (s *memStore) all() []domain.BoardMapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.BoardMapping(nil), s.rows...)
}

// mockStore delegates to function fields; unset functions report not implemented.
type mockStore struct {
	findByReferenceFn func(ctx context.Context, referenceID string) (*domain.BoardMapping, error)
	insertFn          func(ctx context.Context, referenceID, counterID string) (*domain.BoardMapping, error)
}

func (m *mockStore) FindByReference(ctx context.Context, referenceID string) (*domain.BoardMapping, error) {
	if m.findByReferenceFn != nil {
		return m.findByReferenceFn(ctx, referenceID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockStore) FindByCounter(context.Context, string) (*domain.BoardMapping, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *mockStore) Insert(ctx context.Context, referenceID, counterID string) (*domain.BoardMapping, error) {
	if m.insertFn != nil {
		return m.insertFn(ctx, referenceID, counterID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockStore) Count(context.Context) (int64, error) {
	return 0, fmt.Errorf("not implemented")
}

// --- Publisher ---

type editCall struct {
	EntryID string
	Summary string
}

type crossRefCall struct {
	BoardChannelID, GuildID, ChannelID, MessageID string
}

// fakePublisher records calls and hands out sequential entry IDs.
type fakePublisher struct {
	mu          sync.Mutex
	creates     []string
	edits       []editCall
	crossRefs   []crossRefCall
	nextID      atomic.Int64
	createDelay time.Duration
	createErr   error
	editErr     error
	crossRefErr error
}

func (p *fakePublisher) Create(_ context.Context, summary string, _ domain.Author) (string, error) {
	if p.createDelay > 0 {
		time.Sleep(p.createDelay)
	}
	if p.createErr != nil {
		return "", p.createErr
	}
	id := fmt.Sprintf("entry-%d", p.nextID.Add(1))
	p.mu.Lock()
	p.creates = append(p.creates, summary)
	p.mu.Unlock()
	return id, nil
}

func (p *fakePublisher) Edit(_ context.Context, entryID, summary string, _ domain.Author) error {
	if p.editErr != nil {
		return p.editErr
	}
	p.mu.Lock()
	p.edits = append(p.edits, editCall{EntryID: entryID, Summary: summary})
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) CrossReference(_ context.Context, boardChannelID, guildID, channelID, messageID string) error {
	p.mu.Lock()
	p.crossRefs = append(p.crossRefs, crossRefCall{boardChannelID, guildID, channelID, messageID})
	p.mu.Unlock()
	return p.crossRefErr
}

func (p *fakePublisher) counts() (creates, edits int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creates), len(p.edits)
}

// --- Locker ---

// nopLocker never blocks, exposing the store's uniqueness handling.
type nopLocker struct{}

func (nopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

type failingLocker struct{ err error }

func (l failingLocker) Lock(context.Context, string) (func(), error) { return nil, l.err }

// --- Recorder ---

type recordedOutcome struct {
	outcome domain.Outcome
	failure string
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recordedOutcome
}

func (r *fakeRecorder) ObserveOutcome(outcome domain.Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recordedOutcome{outcome: outcome})
}

func (r *fakeRecorder) ObserveFailure(kind string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, recordedOutcome{failure: kind})
}
