package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerExposesMetricsUntilShutdown(t *testing.T) {
	t.Parallel()

	sink := NewSink()
	sink.Emit(domain.Event{Kind: domain.EventRateLimitOnset, Label: "work"})

	server, err := StartServer("", sink, zerolog.Nop())
	require.NoError(t, err)

	resp, err := http.Get(server.URL())
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `tokenpool_account_rate_limited{account="work"} 1`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))
	require.NoError(t, server.Shutdown(ctx))

	_, err = http.Get(server.URL())
	assert.Error(t, err)
}

func TestStartServerRejectsBadAddress(t *testing.T) {
	t.Parallel()

	_, err := StartServer("not-an-address", NewSink(), zerolog.Nop())
	require.Error(t, err)
	assert.ErrorContains(t, err, "listen metrics server")
}
