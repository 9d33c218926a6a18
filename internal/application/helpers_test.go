package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/bnema/tokenpool/internal/ports"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type staticSource struct {
	name     string
	accounts []domain.Account
	err      error

	mu    sync.Mutex
	calls int
}

func (s *staticSource) Name() string {
	return s.name
}

func (s *staticSource) Load(context.Context) ([]domain.Account, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	return s.accounts, nil
}

func (s *staticSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recordingSink) Emit(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

func (r *recordingSink) Kinds() []domain.EventKind {
	events := r.Events()
	kinds := make([]domain.EventKind, 0, len(events))
	for _, event := range events {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

type inMemoryRuntimeRepo struct {
	mu       sync.Mutex
	snapshot *domain.PoolSnapshot
	saves    int
	saveErr  error
}

func (r *inMemoryRuntimeRepo) Load(context.Context) (domain.PoolSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.snapshot == nil {
		return domain.PoolSnapshot{}, domain.ErrRuntimeNotFound
	}
	return r.snapshot.Clone(), nil
}

func (r *inMemoryRuntimeRepo) Save(_ context.Context, snapshot domain.PoolSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveErr != nil {
		return r.saveErr
	}
	cloned := snapshot.Clone()
	r.snapshot = &cloned
	r.saves++
	return nil
}

func (r *inMemoryRuntimeRepo) Update(_ context.Context, fn ports.RuntimeUpdateFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current domain.PoolSnapshot
	found := r.snapshot != nil
	if found {
		current = r.snapshot.Clone()
	}

	next, err := fn(current, found)
	if err != nil {
		return err
	}
	if r.saveErr != nil {
		return r.saveErr
	}
	cloned := next.Clone()
	r.snapshot = &cloned
	r.saves++
	return nil
}

func accountsFor(labels ...string) []domain.Account {
	accounts := make([]domain.Account, 0, len(labels))
	for _, label := range labels {
		accounts = append(accounts, domain.Account{Label: label, Token: "tok-" + label})
	}
	return accounts
}

func newTestPool(t *testing.T, labels ...string) (*Pool, *recordingSink, *clockwork.FakeClock) {
	t.Helper()

	sink := &recordingSink{}
	clock := clockwork.NewFakeClockAt(testNow)
	pool := NewPool(
		[]ports.CredentialSource{&staticSource{name: "inline", accounts: accountsFor(labels...)}},
		WithEventSink(sink),
		WithClock(clock),
	)
	require.NoError(t, pool.Initialize(context.Background()))

	return pool, sink, clock
}
