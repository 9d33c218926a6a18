package application

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/bnema/tokenpool/internal/ports"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Pool owns the ordered accounts, the selection cursor, the set of rate
// limited labels and the per-account usage counters. All methods are safe
// for concurrent use.
type Pool struct {
	sources []ports.CredentialSource
	sink    ports.EventSink
	clock   clockwork.Clock
	logger  zerolog.Logger

	mu          sync.Mutex
	initialized bool
	accounts    []domain.Account
	positions   map[string]int
	cursor      int
	rateLimited map[string]struct{}
	usage       map[string]domain.AccountUsage
}

type PoolOption func(*Pool)

func WithEventSink(sink ports.EventSink) PoolOption {
	return func(p *Pool) {
		if sink != nil {
			p.sink = sink
		}
	}
}

func WithClock(clock clockwork.Clock) PoolOption {
	return func(p *Pool) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func WithLogger(logger zerolog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// NewPool returns an uninitialized pool reading from sources in priority order.
func NewPool(sources []ports.CredentialSource, opts ...PoolOption) *Pool {
	p := &Pool{
		sources: sources,
		sink:    ports.NopEventSink{},
		clock:   clockwork.NewRealClock(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	initialized := p.initialized
	p.mu.Unlock()
	if initialized {
		return domain.ErrAlreadyInitialized
	}

	accounts := LoadAccounts(ctx, p.logger, p.sources...)
	if len(accounts) == 0 {
		return fmt.Errorf("initialize account pool: %w", domain.ErrInitialization)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return domain.ErrAlreadyInitialized
	}

	p.accounts = slices.Clone(accounts)
	p.positions = make(map[string]int, len(accounts))
	p.usage = make(map[string]domain.AccountUsage, len(accounts))
	for i, account := range p.accounts {
		p.positions[account.Label] = i
		p.usage[account.Label] = domain.AccountUsage{}
	}
	p.rateLimited = make(map[string]struct{})
	p.cursor = 0
	p.initialized = true

	p.logger.Info().Int("accounts", len(p.accounts)).Str("current", p.accounts[0].Label).Msg("account pool initialized")

	return nil
}

func (p *Pool) CurrentAccount() (domain.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return domain.Account{}, domain.ErrPoolNotInitialized
	}

	return p.accounts[p.cursor], nil
}

func (p *Pool) Accounts() []domain.Account {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.accounts)
}

func (p *Pool) HasAccount(label string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.positions[label]
	return ok
}

func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.accounts)
}

// RotateOnRateLimit moves the cursor to the next account that is not rate
// limited when statusCode is 429. The hit is charged to the account selected
// before the scan, whether or not a replacement is found. Calling it with a
// 429 before Initialize panics.
func (p *Pool) RotateOnRateLimit(statusCode int) bool {
	if statusCode != domain.StatusTooManyRequests {
		return false
	}

	p.mu.Lock()
	if !p.initialized {
		p.mu.Unlock()
		panic(fmt.Errorf("rotate on rate limit: %w", domain.ErrPoolNotInitialized))
	}

	rotated, event := p.rotateLocked()
	p.mu.Unlock()

	p.sink.Emit(event)
	return rotated
}

// rotateAwayFrom rotates only while label is still the current account. A
// 429 that arrives for an account the cursor already left is charged to that
// account and leaves the cursor alone; stale reports whether that happened.
func (p *Pool) rotateAwayFrom(label string) (rotated, stale bool, err error) {
	p.mu.Lock()
	if !p.initialized {
		p.mu.Unlock()
		return false, false, fmt.Errorf("rotate away from %q: %w", label, domain.ErrPoolNotInitialized)
	}

	if p.accounts[p.cursor].Label != label {
		if usage, ok := p.usage[label]; ok {
			usage.RateLimitHits++
			p.usage[label] = usage
		}
		p.mu.Unlock()
		return false, true, nil
	}

	rotated, event := p.rotateLocked()
	p.mu.Unlock()

	p.sink.Emit(event)
	return rotated, false, nil
}

// rotateLocked charges a hit to the current account and scans forward for
// one that is not rate limited. p.mu must be held.
func (p *Pool) rotateLocked() (bool, domain.Event) {
	now := p.clock.Now()
	start := p.cursor
	outgoing := p.accounts[start].Label
	usage := p.usage[outgoing]
	usage.RateLimitHits++
	p.usage[outgoing] = usage

	event := domain.Event{Kind: domain.EventRotationFailed, Label: outgoing, From: outgoing, Usage: usage, At: now}
	if len(p.accounts) == 1 {
		event.Reason = domain.ReasonSingleAccount
		return false, event
	}

	event.Reason = domain.ReasonAllRateLimited
	for next := (start + 1) % len(p.accounts); next != start; next = (next + 1) % len(p.accounts) {
		label := p.accounts[next].Label
		if _, limited := p.rateLimited[label]; limited {
			continue
		}
		p.cursor = next
		return true, domain.Event{Kind: domain.EventRotationSucceeded, Label: label, From: outgoing, To: label, Usage: usage, At: now}
	}

	return false, event
}

// MarkAccountRateLimited is idempotent; unknown labels are ignored.
func (p *Pool) MarkAccountRateLimited(label string) {
	p.mu.Lock()
	_, known := p.positions[label]
	_, already := p.rateLimited[label]
	if !known || already {
		p.mu.Unlock()
		return
	}
	p.rateLimited[label] = struct{}{}
	event := domain.Event{Kind: domain.EventRateLimitOnset, Label: label, Usage: p.usage[label], At: p.clock.Now()}
	p.mu.Unlock()

	p.sink.Emit(event)
}

// ResetRateLimitStatus is idempotent; unknown labels are ignored.
func (p *Pool) ResetRateLimitStatus(label string) {
	p.mu.Lock()
	if _, limited := p.rateLimited[label]; !limited {
		p.mu.Unlock()
		return
	}
	delete(p.rateLimited, label)
	event := domain.Event{Kind: domain.EventRateLimitReset, Label: label, Usage: p.usage[label], At: p.clock.Now()}
	p.mu.Unlock()

	p.sink.Emit(event)
}

func (p *Pool) IsAccountRateLimited(label string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, limited := p.rateLimited[label]
	return limited
}

// AreAllAccountsRateLimited reports pool exhaustion. It has no side effects.
func (p *Pool) AreAllAccountsRateLimited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.initialized && len(p.rateLimited) == len(p.accounts)
}

func (p *Pool) State() domain.PoolState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return domain.DerivePoolState(len(p.accounts), len(p.accounts)-len(p.rateLimited))
}

// RecordRequest counts a request for label. Unknown labels are ignored so
// bookkeeping never fails the request path.
func (p *Pool) RecordRequest(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	usage, ok := p.usage[label]
	if !ok {
		return
	}
	usage.Requests++
	p.usage[label] = usage
}

func (p *Pool) UsageStats() domain.UsageStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return domain.UsageStats(p.usage).Clone()
}

func (p *Pool) RotationStatus() domain.RotationStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := domain.RotationStatus{
		TotalAccounts:       len(p.accounts),
		CurrentIndex:        p.cursor,
		RateLimitedAccounts: p.rateLimitedLabelsLocked(),
		State:               domain.DerivePoolState(len(p.accounts), len(p.accounts)-len(p.rateLimited)),
	}
	if p.initialized {
		status.CurrentAccount = p.accounts[p.cursor].Label
	}

	return status
}

// UpdateState copies the current account into state. Rotation does not do
// this on its own; call it after every successful rotation.
func (p *Pool) UpdateState(state *CredentialState) error {
	if state == nil {
		return fmt.Errorf("update credential state: state is nil")
	}

	account, err := p.CurrentAccount()
	if err != nil {
		return fmt.Errorf("update credential state: %w", err)
	}
	state.set(account)

	return nil
}

func (p *Pool) Snapshot() domain.PoolSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := domain.PoolSnapshot{
		RateLimited: p.rateLimitedLabelsLocked(),
		Usage:       domain.UsageStats(p.usage).Clone(),
		UpdatedAt:   p.clock.Now(),
	}
	if p.initialized {
		snapshot.ActiveLabel = p.accounts[p.cursor].Label
	}

	return snapshot
}

// Restore applies a persisted snapshot. The snapshot's rate limited set
// replaces the pool's, labels the pool does not know are dropped and
// counters only ever move up.
func (p *Pool) Restore(snapshot domain.PoolSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return fmt.Errorf("restore pool snapshot: %w", domain.ErrPoolNotInitialized)
	}

	if position, ok := p.positions[snapshot.ActiveLabel]; ok {
		p.cursor = position
	}

	clear(p.rateLimited)
	for _, label := range snapshot.RateLimited {
		if _, ok := p.positions[label]; ok {
			p.rateLimited[label] = struct{}{}
		}
	}

	for label, restored := range snapshot.Usage {
		current, ok := p.usage[label]
		if !ok {
			continue
		}
		current.Requests = max(current.Requests, restored.Requests)
		current.RateLimitHits = max(current.RateLimitHits, restored.RateLimitHits)
		p.usage[label] = current
	}

	return nil
}

// rateLimitedLabelsLocked returns the limited labels in pool order.
func (p *Pool) rateLimitedLabelsLocked() []string {
	labels := make([]string, 0, len(p.rateLimited))
	for _, account := range p.accounts {
		if _, limited := p.rateLimited[account.Label]; limited {
			labels = append(labels, account.Label)
		}
	}
	return labels
}
