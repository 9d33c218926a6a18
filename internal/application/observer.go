package application

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/bnema/tokenpool/internal/ports"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const (
	HeaderRateLimitRemaining = "X-Ratelimit-Remaining"
	HeaderRetryAfter         = "Retry-After"
)

type Outcome struct {
	Rotated   bool
	Exhausted bool
	Account   domain.Account
}

// ResponseObserver applies one upstream response to the pool: it records the
// request, marks or clears the rate limit flag from the status and headers,
// rotates on a 429 from the current account and propagates the new
// credential. Any 429 marks the account, with or without Retry-After.
type ResponseObserver struct {
	pool   *Pool
	state  *CredentialState
	sink   ports.EventSink
	clock  clockwork.Clock
	logger zerolog.Logger
}

func NewResponseObserver(pool *Pool, state *CredentialState, sink ports.EventSink, clock clockwork.Clock, logger zerolog.Logger) *ResponseObserver {
	if sink == nil {
		sink = ports.NopEventSink{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &ResponseObserver{pool: pool, state: state, sink: sink, clock: clock, logger: logger}
}

func (o *ResponseObserver) Observe(label string, statusCode int, header http.Header) (Outcome, error) {
	o.pool.RecordRequest(label)

	remaining, hasRemaining := rateLimitRemaining(header)
	switch {
	case statusCode == domain.StatusTooManyRequests, hasRemaining && remaining <= 0:
		o.pool.MarkAccountRateLimited(label)
	case statusCode >= 200 && statusCode < 300 && hasRemaining && remaining > 0:
		o.pool.ResetRateLimitStatus(label)
	}

	var outcome Outcome
	if statusCode == domain.StatusTooManyRequests {
		rotated, stale, err := o.pool.rotateAwayFrom(label)
		if err != nil {
			return Outcome{}, err
		}
		outcome.Rotated = rotated
		switch {
		case rotated:
			if err := o.pool.UpdateState(o.state); err != nil {
				return Outcome{}, fmt.Errorf("propagate rotated account: %w", err)
			}
		case stale:
			o.logger.Debug().
				Str("account", label).
				Msg("rate limited response from an account that is no longer current")
		default:
			o.logger.Warn().
				Str("account", label).
				Str("retry_after", header.Get(HeaderRetryAfter)).
				Msg("rate limited with no replacement account")
		}
	}

	if o.pool.AreAllAccountsRateLimited() {
		outcome.Exhausted = true
		if o.pool.Size() > 1 {
			o.sink.Emit(domain.Event{Kind: domain.EventPoolExhausted, Label: label, At: o.clock.Now()})
		}
	}

	account, err := o.pool.CurrentAccount()
	if err != nil {
		return Outcome{}, err
	}
	outcome.Account = account

	return outcome, nil
}

func rateLimitRemaining(header http.Header) (int64, bool) {
	if header == nil {
		return 0, false
	}

	raw := strings.TrimSpace(header.Get(HeaderRateLimitRemaining))
	if raw == "" {
		return 0, false
	}

	remaining, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}

	return remaining, true
}
