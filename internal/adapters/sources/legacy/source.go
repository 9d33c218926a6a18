// Package legacy provides the single-token fallback source.
package legacy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/bnema/tokenpool/internal/ports"
)

// Source yields one account from a literal token or, when none is configured,
// from a secret store entry.
type Source struct {
	token     string
	store     ports.SecretStore
	secretKey string
}

var _ ports.CredentialSource = (*Source)(nil)

func NewSource(token string, store ports.SecretStore, secretKey string) *Source {
	return &Source{
		token:     strings.TrimSpace(token),
		store:     store,
		secretKey: strings.TrimSpace(secretKey),
	}
}

func (s *Source) Name() string {
	return "legacy"
}

func (s *Source) Load(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	token := s.token
	if token == "" {
		stored, err := s.lookupSecret(ctx)
		if err != nil {
			return nil, err
		}
		token = strings.TrimSpace(stored)
	}
	if token == "" {
		return nil, nil
	}

	return []domain.Account{{Label: domain.AutoLabel(1), Token: token}}, nil
}

func (s *Source) lookupSecret(ctx context.Context) (string, error) {
	if s.store == nil || s.secretKey == "" {
		return "", nil
	}

	value, err := s.store.Get(ctx, s.secretKey)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return "", fmt.Errorf("legacy token %q: %w", s.secretKey, domain.ErrSourceUnavailable)
		}
		return "", fmt.Errorf("legacy token %q: %w: %w", s.secretKey, domain.ErrSourceUnavailable, err)
	}

	return value, nil
}
