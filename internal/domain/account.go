package domain

import (
	"strconv"
	"strings"
)

const autoLabelPrefix = "account-"

type Account struct {
	Label string
	Token string
}

// MaskedToken keeps the first and last four characters of the token.
func (a Account) MaskedToken() string {
	token := strings.TrimSpace(a.Token)
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}

	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

func AutoLabel(position int) string {
	return autoLabelPrefix + strconv.Itoa(position)
}
