// Package file reads accounts from a newline-delimited file.
package file

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/bnema/tokenpool/internal/ports"
)

type Source struct {
	path string
}

var _ ports.CredentialSource = (*Source)(nil)

func NewSource(path string) *Source {
	return &Source{path: strings.TrimSpace(path)}
}

func (s *Source) Name() string {
	return "file"
}

// Load reads the file once. Any read failure is reported as
// domain.ErrSourceUnavailable.
func (s *Source) Load(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file %q: %w: %w", s.path, domain.ErrSourceUnavailable, err)
	}

	accounts, err := domain.ParseAccounts(string(data), domain.SeparatorNewline)
	if err != nil {
		return nil, fmt.Errorf("parse accounts file %q: %w", s.path, err)
	}

	return accounts, nil
}
