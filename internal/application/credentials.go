package application

import (
	"context"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/bnema/tokenpool/internal/ports"
	"github.com/rs/zerolog"
)

// LoadAccounts returns the accounts of the first source that yields any.
// Source failures are logged and treated as empty.
func LoadAccounts(ctx context.Context, logger zerolog.Logger, sources ...ports.CredentialSource) []domain.Account {
	for _, source := range sources {
		if source == nil {
			continue
		}

		accounts, err := source.Load(ctx)
		if err != nil {
			logger.Debug().Err(err).Str("source", source.Name()).Msg("credential source skipped")
			continue
		}
		if len(accounts) == 0 {
			logger.Debug().Str("source", source.Name()).Msg("credential source empty")
			continue
		}

		logger.Debug().Str("source", source.Name()).Int("accounts", len(accounts)).Msg("credential source selected")
		return accounts
	}

	return nil
}
