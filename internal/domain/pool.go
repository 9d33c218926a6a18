package domain

import (
	"slices"
	"time"
)

// StatusTooManyRequests is the upstream throttling status that triggers rotation.
const StatusTooManyRequests = 429

type PoolState string

const (
	PoolStateNormal    PoolState = "normal"
	PoolStateDegraded  PoolState = "degraded"
	PoolStateExhausted PoolState = "exhausted"
)

// DerivePoolState classifies a pool from its size and the number of
// accounts that are not rate limited.
func DerivePoolState(size, active int) PoolState {
	switch {
	case active <= 0:
		return PoolStateExhausted
	case active == 1 && size > 1:
		return PoolStateDegraded
	default:
		return PoolStateNormal
	}
}

type AccountUsage struct {
	Requests      uint64 `json:"requests"`
	RateLimitHits uint64 `json:"rate_limit_hits"`
}

type UsageStats map[string]AccountUsage

func (u UsageStats) Clone() UsageStats {
	out := make(UsageStats, len(u))
	for label, usage := range u {
		out[label] = usage
	}
	return out
}

type RotationStatus struct {
	CurrentAccount      string    `json:"current_account"`
	TotalAccounts       int       `json:"total_accounts"`
	CurrentIndex        int       `json:"current_index"`
	RateLimitedAccounts []string  `json:"rate_limited_accounts"`
	State               PoolState `json:"state"`
}

// PoolSnapshot is the persisted form of the mutable pool state.
type PoolSnapshot struct {
	ActiveLabel string
	RateLimited []string
	Usage       UsageStats
	UpdatedAt   time.Time
}

func (s PoolSnapshot) Clone() PoolSnapshot {
	return PoolSnapshot{
		ActiveLabel: s.ActiveLabel,
		RateLimited: slices.Clone(s.RateLimited),
		Usage:       s.Usage.Clone(),
		UpdatedAt:   s.UpdatedAt,
	}
}
