package toml

import "fmt"

const currentRuntimeSchemaVersion = 1

type runtimeFileSchema struct {
	Version     int                  `toml:"version"`
	ActiveLabel string               `toml:"active_label"`
	RateLimited []string             `toml:"rate_limited"`
	UpdatedAt   string               `toml:"updated_at"`
	Accounts    []accountUsageSchema `toml:"accounts"`
}

func (s *runtimeFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentRuntimeSchemaVersion
	}
	if s.RateLimited == nil {
		s.RateLimited = []string{}
	}
}

func (s runtimeFileSchema) validateVersion() error {
	if s.Version > currentRuntimeSchemaVersion {
		return fmt.Errorf("unsupported pool runtime schema version %d (current %d)", s.Version, currentRuntimeSchemaVersion)
	}

	return nil
}

type accountUsageSchema struct {
	Label         string `toml:"label"`
	Requests      uint64 `toml:"requests"`
	RateLimitHits uint64 `toml:"rate_limit_hits"`
}
