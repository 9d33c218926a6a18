package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/bnema/tokenpool/internal/ports"
)

// PoolService carries pool state across process runs by restoring a
// persisted snapshot on Open and saving one after every mutation. Each
// mutation runs inside a runtime Update so that concurrent invocations
// sharing one runtime file add up instead of overwriting each other.
type PoolService struct {
	pool      *Pool
	runtime   ports.RuntimeRepository
	updatedAt time.Time
}

func NewPoolService(pool *Pool, runtime ports.RuntimeRepository) *PoolService {
	return &PoolService{pool: pool, runtime: runtime}
}

func (s *PoolService) Pool() *Pool {
	return s.pool
}

func (s *PoolService) Open(ctx context.Context) error {
	if err := s.pool.Initialize(ctx); err != nil {
		return err
	}

	snapshot, err := s.runtime.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrRuntimeNotFound) {
			return nil
		}
		return fmt.Errorf("load pool runtime: %w", err)
	}

	if err := s.pool.Restore(snapshot); err != nil {
		return err
	}
	s.updatedAt = snapshot.UpdatedAt

	return nil
}

// UpdatedAt is when the runtime was last persisted, zero before the first save.
func (s *PoolService) UpdatedAt() time.Time {
	return s.updatedAt
}

func (s *PoolService) Status() (domain.RotationStatus, domain.UsageStats) {
	return s.pool.RotationStatus(), s.pool.UsageStats()
}

func (s *PoolService) Rotate(ctx context.Context, statusCode int) (bool, error) {
	var rotated bool
	err := s.apply(ctx, func() error {
		rotated = s.pool.RotateOnRateLimit(statusCode)
		return nil
	})
	if err != nil {
		return false, err
	}

	return rotated, nil
}

func (s *PoolService) MarkRateLimited(ctx context.Context, label string) error {
	if !s.pool.HasAccount(label) {
		return fmt.Errorf("mark %q rate limited: %w", label, domain.ErrAccountNotFound)
	}

	return s.apply(ctx, func() error {
		s.pool.MarkAccountRateLimited(label)
		return nil
	})
}

func (s *PoolService) ResetRateLimit(ctx context.Context, label string) error {
	if !s.pool.HasAccount(label) {
		return fmt.Errorf("reset %q rate limit: %w", label, domain.ErrAccountNotFound)
	}

	return s.apply(ctx, func() error {
		s.pool.ResetRateLimitStatus(label)
		return nil
	})
}

func (s *PoolService) RecordRequest(ctx context.Context, label string) error {
	return s.apply(ctx, func() error {
		s.pool.RecordRequest(label)
		return nil
	})
}

// Observe applies one upstream response through a ResponseObserver and
// persists the result.
func (s *PoolService) Observe(ctx context.Context, state *CredentialState, label string, statusCode int, header http.Header) (Outcome, error) {
	if !s.pool.HasAccount(label) {
		return Outcome{}, fmt.Errorf("observe response for %q: %w", label, domain.ErrAccountNotFound)
	}

	var outcome Outcome
	err := s.apply(ctx, func() error {
		observer := NewResponseObserver(s.pool, state, s.pool.sink, s.pool.clock, s.pool.logger)
		var err error
		outcome, err = observer.Observe(label, statusCode, header)
		return err
	})
	if err != nil {
		return Outcome{}, err
	}

	return outcome, nil
}

func (s *PoolService) Save(ctx context.Context) error {
	return s.apply(ctx, func() error { return nil })
}

// apply merges the stored snapshot into the pool, runs mutate and stores the
// result, all under the runtime lock. Merging first picks up rotations and
// counters written by other processes since Open.
func (s *PoolService) apply(ctx context.Context, mutate func() error) error {
	var mutateErr error
	var saved domain.PoolSnapshot
	err := s.runtime.Update(ctx, func(current domain.PoolSnapshot, found bool) (domain.PoolSnapshot, error) {
		if found {
			if err := s.pool.Restore(current); err != nil {
				mutateErr = err
				return domain.PoolSnapshot{}, err
			}
		}
		if err := mutate(); err != nil {
			mutateErr = err
			return domain.PoolSnapshot{}, err
		}
		saved = s.pool.Snapshot()
		return saved, nil
	})
	if mutateErr != nil {
		return mutateErr
	}
	if err != nil {
		return fmt.Errorf("save pool runtime: %w", err)
	}
	s.updatedAt = saved.UpdatedAt

	return nil
}
