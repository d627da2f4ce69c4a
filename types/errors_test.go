package types_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arxtrus/bootes/types"
)

func TestErrorRendersCode(t *testing.T) {
	t.Parallel()

	err := types.Validation("Invalid stock symbol: AAPL$", "symbol")
	require.Equal(t, "[VALIDATION_ERROR] Invalid stock symbol: AAPL$", err.Error())
	require.Equal(t, "symbol", err.Field)
}

func TestErrorUnwrapsTransportCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	err := types.Network("Failed to fetch data for AAPL: dial tcp: connection refused", cause)

	require.ErrorIs(t, err, cause)
	require.True(t, types.IsNetwork(err))
}

func TestKindPredicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want func(error) bool
	}{
		{types.Validation("bad", "symbol"), types.IsValidation},
		{types.NotFound("gone", "AAPL"), types.IsNotFound},
		{types.RateLimit("slow down", 30 * time.Second), types.IsRateLimit},
		{types.Network("boom", nil), types.IsNetwork},
		{types.API("weird shape"), types.IsAPI},
	}
	for _, tt := range tests {
		require.True(t, tt.want(tt.err), "predicate failed for %v", tt.err)
	}

	require.False(t, types.IsValidation(errors.New("untyped")))
	require.False(t, types.IsNotFound(nil))
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := types.NotFound("No data found for symbol: XYZ", "XYZ")
	wrapped := fmt.Errorf("stock history: %w", inner)
	require.True(t, types.IsNotFound(wrapped))
}
