package domain

import (
	"fmt"
	"strings"
)

type Separator string

const (
	SeparatorComma   Separator = ","
	SeparatorNewline Separator = "\n"
)

// FormatError reports a malformed entry. It aborts parsing of the whole source.
type FormatError struct {
	Position int
	Reason   string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("credential entry %d: %s", e.Position, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return ErrFormat
}

// ParseAccounts splits raw on sep and parses each non-empty segment as
// "label:token" or a bare token. Bare tokens are labeled by their 1-based
// position among all surviving segments.
func ParseAccounts(raw string, sep Separator) ([]Account, error) {
	if sep == SeparatorNewline {
		raw = strings.ReplaceAll(raw, "\r\n", "\n")
	}

	accounts := make([]Account, 0)
	seen := make(map[string]struct{})
	position := 0
	for _, segment := range strings.Split(raw, string(sep)) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		position++

		account, err := parseEntry(segment, position)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[account.Label]; ok {
			return nil, &FormatError{Position: position, Reason: fmt.Sprintf("duplicate label %q", account.Label)}
		}
		seen[account.Label] = struct{}{}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

func parseEntry(segment string, position int) (Account, error) {
	switch strings.Count(segment, ":") {
	case 0:
		return newAccount(AutoLabel(position), segment, position)
	case 1:
		label, token, _ := strings.Cut(segment, ":")
		label = strings.TrimSpace(label)
		if label == "" {
			return Account{}, &FormatError{Position: position, Reason: "label is empty"}
		}
		return newAccount(label, token, position)
	default:
		return Account{}, &FormatError{Position: position, Reason: "expected at most one ':' separator"}
	}
}

func newAccount(label, token string, position int) (Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Account{}, &FormatError{Position: position, Reason: "token is empty"}
	}

	return Account{Label: label, Token: token}, nil
}
