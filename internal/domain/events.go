package domain

import "time"

type EventKind string

const (
	EventRotationSucceeded EventKind = "rotation_succeeded"
	EventRotationFailed    EventKind = "rotation_failed"
	EventRateLimitOnset    EventKind = "rate_limit_onset"
	EventRateLimitReset    EventKind = "rate_limit_reset"
	EventPoolExhausted     EventKind = "pool_exhausted"
	EventUsageSummary      EventKind = "usage_summary"
)

const (
	ReasonSingleAccount  = "single_account"
	ReasonAllRateLimited = "all_rate_limited"
)

type Event struct {
	Kind   EventKind
	Label  string
	From   string
	To     string
	Reason string
	Usage  AccountUsage
	At     time.Time
}
