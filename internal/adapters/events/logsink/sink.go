// Package logsink writes pool events as structured zerolog entries.
package logsink

import (
	"github.com/bnema/tokenpool/internal/domain"
	"github.com/bnema/tokenpool/internal/ports"
	"github.com/rs/zerolog"
)

type Sink struct {
	logger zerolog.Logger
}

var _ ports.EventSink = (*Sink)(nil)

func NewSink(logger zerolog.Logger) *Sink {
	return &Sink{logger: logger.With().Str("component", "account_pool").Logger()}
}

func (s *Sink) Emit(event domain.Event) {
	entry := s.logger.WithLevel(levelFor(event.Kind)).
		Str("event", string(event.Kind)).
		Time("at", event.At)

	if event.Label != "" {
		entry = entry.Str("account", event.Label)
	}
	if event.From != "" {
		entry = entry.Str("from", event.From)
	}
	if event.To != "" {
		entry = entry.Str("to", event.To)
	}
	if event.Reason != "" {
		entry = entry.Str("reason", event.Reason)
	}

	switch event.Kind {
	case domain.EventUsageSummary, domain.EventRotationSucceeded, domain.EventRotationFailed:
		entry = entry.
			Uint64("requests", event.Usage.Requests).
			Uint64("rate_limit_hits", event.Usage.RateLimitHits)
	}

	entry.Msg(messageFor(event.Kind))
}

func levelFor(kind domain.EventKind) zerolog.Level {
	switch kind {
	case domain.EventRotationFailed, domain.EventRateLimitOnset:
		return zerolog.WarnLevel
	case domain.EventPoolExhausted:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func messageFor(kind domain.EventKind) string {
	switch kind {
	case domain.EventRotationSucceeded:
		return "rotated to next account"
	case domain.EventRotationFailed:
		return "no account available for rotation"
	case domain.EventRateLimitOnset:
		return "account rate limited"
	case domain.EventRateLimitReset:
		return "account rate limit cleared"
	case domain.EventPoolExhausted:
		return "all accounts rate limited"
	case domain.EventUsageSummary:
		return "account usage"
	default:
		return string(kind)
	}
}
