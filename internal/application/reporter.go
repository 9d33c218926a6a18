package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/bnema/tokenpool/internal/ports"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

const DefaultReportInterval = 5 * time.Minute

// UsageReporter emits one usage_summary event per account on a fixed interval.
type UsageReporter struct {
	pool     *Pool
	sink     ports.EventSink
	clock    clockwork.Clock
	interval time.Duration
	cron     *cron.Cron
}

func NewUsageReporter(pool *Pool, sink ports.EventSink, clock clockwork.Clock, interval time.Duration) (*UsageReporter, error) {
	if sink == nil {
		sink = ports.NopEventSink{}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = DefaultReportInterval
	}

	r := &UsageReporter{
		pool:     pool,
		sink:     sink,
		clock:    clock,
		interval: interval,
		cron:     cron.New(),
	}

	if _, err := r.cron.AddFunc(fmt.Sprintf("@every %s", interval), r.ReportNow); err != nil {
		return nil, fmt.Errorf("schedule usage report: %w", err)
	}

	return r, nil
}

func (r *UsageReporter) Interval() time.Duration {
	return r.interval
}

func (r *UsageReporter) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running report to finish or ctx to end.
func (r *UsageReporter) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *UsageReporter) ReportNow() {
	stats := r.pool.UsageStats()
	now := r.clock.Now()
	for _, account := range r.pool.Accounts() {
		r.sink.Emit(domain.Event{
			Kind:  domain.EventUsageSummary,
			Label: account.Label,
			Usage: stats[account.Label],
			At:    now,
		})
	}
}
