// Package inline reads accounts from a single comma-delimited string.
package inline

import (
	"context"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/bnema/tokenpool/internal/ports"
)

type Source struct {
	raw string
}

var _ ports.CredentialSource = (*Source)(nil)

func NewSource(raw string) *Source {
	return &Source{raw: raw}
}

func (s *Source) Name() string {
	return "inline"
}

func (s *Source) Load(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return domain.ParseAccounts(s.raw, domain.SeparatorComma)
}
