package application

import (
	"bytes"
	"context"
	"testing"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/bnema/tokenpool/internal/ports"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLoadAccounts(t *testing.T) {
	t.Parallel()

	formatErr := &domain.FormatError{Position: 1, Reason: "expected at most one ':' separator"}
	tests := []struct {
		name    string
		sources []ports.CredentialSource
		want    []domain.Account
	}{
		{
			name: "first source wins",
			sources: []ports.CredentialSource{
				&staticSource{name: "inline", accounts: accountsFor("a", "b")},
				&staticSource{name: "file", accounts: accountsFor("c")},
			},
			want: accountsFor("a", "b"),
		},
		{
			name: "format error falls through",
			sources: []ports.CredentialSource{
				&staticSource{name: "inline", err: formatErr},
				&staticSource{name: "file", accounts: accountsFor("c")},
			},
			want: accountsFor("c"),
		},
		{
			name: "unavailable and empty fall through to legacy",
			sources: []ports.CredentialSource{
				&staticSource{name: "inline"},
				&staticSource{name: "file", err: domain.ErrSourceUnavailable},
				&staticSource{name: "legacy", accounts: accountsFor("account-1")},
			},
			want: accountsFor("account-1"),
		},
		{
			name: "nil sources are skipped",
			sources: []ports.CredentialSource{
				nil,
				&staticSource{name: "legacy", accounts: accountsFor("account-1")},
			},
			want: accountsFor("account-1"),
		},
		{
			name: "nothing anywhere",
			sources: []ports.CredentialSource{
				&staticSource{name: "inline", err: formatErr},
				&staticSource{name: "file"},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := LoadAccounts(context.Background(), zerolog.Nop(), tt.sources...)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadAccountsLogsSkippedSources(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	LoadAccounts(context.Background(), logger,
		&staticSource{name: "inline", err: &domain.FormatError{Position: 2, Reason: "token is empty"}},
		&staticSource{name: "file", accounts: accountsFor("a")},
	)

	out := buf.String()
	assert.Contains(t, out, `"source":"inline"`)
	assert.Contains(t, out, "credential entry 2: token is empty")
	assert.Contains(t, out, `"source":"file"`)
	assert.Contains(t, out, "credential source selected")
	assert.NotContains(t, out, "tok-a")
}
