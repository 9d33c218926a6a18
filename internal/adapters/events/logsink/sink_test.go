package logsink

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/bnema/tokenpool/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestSinkEmitRotationSucceeded(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := NewSink(zerolog.New(&buf))
	sink.Emit(domain.Event{
		Kind:  domain.EventRotationSucceeded,
		Label: "b",
		From:  "a",
		To:    "b",
		Usage: domain.AccountUsage{Requests: 4, RateLimitHits: 1},
		At:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "account_pool", entry["component"])
	assert.Equal(t, "rotation_succeeded", entry["event"])
	assert.Equal(t, "a", entry["from"])
	assert.Equal(t, "b", entry["to"])
	assert.Equal(t, float64(1), entry["rate_limit_hits"])
}

func TestSinkEmitLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind  domain.EventKind
		level string
	}{
		{kind: domain.EventRotationFailed, level: "warn"},
		{kind: domain.EventRateLimitOnset, level: "warn"},
		{kind: domain.EventRateLimitReset, level: "info"},
		{kind: domain.EventPoolExhausted, level: "error"},
		{kind: domain.EventUsageSummary, level: "info"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(string(tc.kind), func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			NewSink(zerolog.New(&buf)).Emit(domain.Event{Kind: tc.kind, Label: "a"})

			entries := decodeLines(t, &buf)
			require.Len(t, entries, 1)
			assert.Equal(t, tc.level, entries[0]["level"])
			assert.Equal(t, "a", entries[0]["account"])
		})
	}
}

func TestSinkRespectsLoggerLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewSink(zerolog.New(&buf).Level(zerolog.WarnLevel)).Emit(domain.Event{Kind: domain.EventUsageSummary, Label: "a"})
	assert.Empty(t, buf.String())
}

func TestSinkLogsUsageSummaryAtDefaultLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewSink(zerolog.New(&buf).Level(zerolog.InfoLevel)).Emit(domain.Event{
		Kind:  domain.EventUsageSummary,
		Label: "a",
		Usage: domain.AccountUsage{Requests: 3},
	})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "account usage", entries[0]["message"])
	assert.EqualValues(t, 3, entries[0]["requests"])
}
