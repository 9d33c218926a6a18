package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerivePoolState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		size   int
		active int
		want   PoolState
	}{
		{name: "all active", size: 3, active: 3, want: PoolStateNormal},
		{name: "single account active", size: 1, active: 1, want: PoolStateNormal},
		{name: "one left of many", size: 3, active: 1, want: PoolStateDegraded},
		{name: "none left", size: 3, active: 0, want: PoolStateExhausted},
		{name: "single account limited", size: 1, active: 0, want: PoolStateExhausted},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, DerivePoolState(tc.size, tc.active))
		})
	}
}

func TestUsageStatsCloneIsIndependent(t *testing.T) {
	t.Parallel()

	stats := UsageStats{"a": {Requests: 1}}
	clone := stats.Clone()
	clone["a"] = AccountUsage{Requests: 99}
	clone["b"] = AccountUsage{}

	assert.Equal(t, UsageStats{"a": {Requests: 1}}, stats)
}

func TestAccountMaskedToken(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ghu_********wxyz", Account{Token: "ghu_abcdefghwxyz"}.MaskedToken())
	assert.Equal(t, "*****", Account{Token: "short"}.MaskedToken())
}
