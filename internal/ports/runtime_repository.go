package ports

import (
	"context"

	"github.com/bnema/tokenpool/internal/domain"
)

// RuntimeUpdateFunc receives the stored snapshot (found is false when none
// exists yet) and returns the snapshot to store in its place.
type RuntimeUpdateFunc func(current domain.PoolSnapshot, found bool) (domain.PoolSnapshot, error)

type RuntimeRepository interface {
	Load(ctx context.Context) (domain.PoolSnapshot, error)
	Save(ctx context.Context, snapshot domain.PoolSnapshot) error
	// Update reads, applies fn and writes back while holding the store's
	// lock, so concurrent writers never lose each other's changes.
	Update(ctx context.Context, fn RuntimeUpdateFunc) error
}
