// Package metrics exposes pool events as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/bnema/tokenpool/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sink holds all pool metrics on a private registry.
type Sink struct {
	registry *prometheus.Registry

	RotationsTotal         *prometheus.CounterVec
	RateLimitTransitions   *prometheus.CounterVec
	PoolExhaustedTotal     prometheus.Counter
	AccountRequests        *prometheus.GaugeVec
	AccountRateLimitHits   *prometheus.GaugeVec
	AccountRateLimitActive *prometheus.GaugeVec
}

var _ ports.EventSink = (*Sink)(nil)

func NewSink() *Sink {
	registry := prometheus.NewRegistry()

	s := &Sink{
		registry: registry,

		RotationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenpool_rotations_total",
				Help: "Rotation attempts triggered by 429 responses, by result",
			},
			[]string{"result", "reason"},
		),
		RateLimitTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenpool_rate_limit_transitions_total",
				Help: "Rate limit flag transitions by account and direction",
			},
			[]string{"account", "transition"},
		),
		PoolExhaustedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tokenpool_pool_exhausted_total",
				Help: "Times every account in the pool was observed rate limited",
			},
		),
		AccountRequests: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokenpool_account_requests",
				Help: "Requests recorded per account as of the last usage event",
			},
			[]string{"account"},
		),
		AccountRateLimitHits: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokenpool_account_rate_limit_hits",
				Help: "Rate limit hits recorded per account as of the last usage event",
			},
			[]string{"account"},
		),
		AccountRateLimitActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokenpool_account_rate_limited",
				Help: "1 while the account is flagged as rate limited",
			},
			[]string{"account"},
		),
	}

	registry.MustRegister(
		s.RotationsTotal,
		s.RateLimitTransitions,
		s.PoolExhaustedTotal,
		s.AccountRequests,
		s.AccountRateLimitHits,
		s.AccountRateLimitActive,
	)

	return s
}

func (s *Sink) Emit(event domain.Event) {
	switch event.Kind {
	case domain.EventRotationSucceeded:
		s.RotationsTotal.WithLabelValues("succeeded", "").Inc()
		s.AccountRateLimitHits.WithLabelValues(event.From).Set(float64(event.Usage.RateLimitHits))
	case domain.EventRotationFailed:
		s.RotationsTotal.WithLabelValues("failed", event.Reason).Inc()
		s.AccountRateLimitHits.WithLabelValues(event.From).Set(float64(event.Usage.RateLimitHits))
	case domain.EventRateLimitOnset:
		s.RateLimitTransitions.WithLabelValues(event.Label, "onset").Inc()
		s.AccountRateLimitActive.WithLabelValues(event.Label).Set(1)
	case domain.EventRateLimitReset:
		s.RateLimitTransitions.WithLabelValues(event.Label, "reset").Inc()
		s.AccountRateLimitActive.WithLabelValues(event.Label).Set(0)
	case domain.EventPoolExhausted:
		s.PoolExhaustedTotal.Inc()
	case domain.EventUsageSummary:
		s.AccountRequests.WithLabelValues(event.Label).Set(float64(event.Usage.Requests))
		s.AccountRateLimitHits.WithLabelValues(event.Label).Set(float64(event.Usage.RateLimitHits))
	}
}

func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
