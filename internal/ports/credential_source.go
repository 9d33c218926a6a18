package ports

import (
	"context"

	"github.com/bnema/tokenpool/internal/domain"
)

// CredentialSource produces accounts from one configured origin. An error or
// an empty result both mean the source contributed nothing.
type CredentialSource interface {
	Name() string
	Load(ctx context.Context) ([]domain.Account, error)
}
