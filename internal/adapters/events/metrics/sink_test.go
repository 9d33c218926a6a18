package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkCountsRotations(t *testing.T) {
	t.Parallel()

	sink := NewSink()
	sink.Emit(domain.Event{Kind: domain.EventRotationSucceeded, From: "a", To: "b", Usage: domain.AccountUsage{RateLimitHits: 1}})
	sink.Emit(domain.Event{Kind: domain.EventRotationSucceeded, From: "b", To: "c", Usage: domain.AccountUsage{RateLimitHits: 2}})
	sink.Emit(domain.Event{Kind: domain.EventRotationFailed, From: "c", Reason: domain.ReasonAllRateLimited, Usage: domain.AccountUsage{RateLimitHits: 1}})

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.RotationsTotal.WithLabelValues("succeeded", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.RotationsTotal.WithLabelValues("failed", domain.ReasonAllRateLimited)))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.AccountRateLimitHits.WithLabelValues("b")))
}

func TestSinkTracksRateLimitFlag(t *testing.T) {
	t.Parallel()

	sink := NewSink()
	sink.Emit(domain.Event{Kind: domain.EventRateLimitOnset, Label: "a"})
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.AccountRateLimitActive.WithLabelValues("a")))

	sink.Emit(domain.Event{Kind: domain.EventRateLimitReset, Label: "a"})
	assert.Equal(t, 0.0, testutil.ToFloat64(sink.AccountRateLimitActive.WithLabelValues("a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.RateLimitTransitions.WithLabelValues("a", "onset")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.RateLimitTransitions.WithLabelValues("a", "reset")))
}

func TestSinkUsageSummaryAndExhaustion(t *testing.T) {
	t.Parallel()

	sink := NewSink()
	sink.Emit(domain.Event{Kind: domain.EventUsageSummary, Label: "a", Usage: domain.AccountUsage{Requests: 12, RateLimitHits: 3}})
	sink.Emit(domain.Event{Kind: domain.EventPoolExhausted})

	assert.Equal(t, 12.0, testutil.ToFloat64(sink.AccountRequests.WithLabelValues("a")))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.AccountRateLimitHits.WithLabelValues("a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.PoolExhaustedTotal))
}

func TestSinkHandlerServesRegistry(t *testing.T) {
	t.Parallel()

	sink := NewSink()
	sink.Emit(domain.Event{Kind: domain.EventPoolExhausted})

	server := httptest.NewServer(sink.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "tokenpool_pool_exhausted_total 1")
}
