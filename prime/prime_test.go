package prime_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doquedb-go/hashkernel/prime"
)

func TestRoundUpExact(t *testing.T) {
	require.Equal(t, uint64(97), prime.RoundUp(97))
	require.Equal(t, uint64(1), prime.RoundUp(0))
	require.Equal(t, uint64(1), prime.RoundUp(1))
}

func TestRoundUpBetween(t *testing.T) {
	// S1 from spec.md: requested capacity 100 rounds to 193.
	require.Equal(t, uint64(193), prime.RoundUp(100))
}

func TestRoundUpNextAfterResize(t *testing.T) {
	// S4 from spec.md: next prime from the table >= 8 is 17.
	require.Equal(t, uint64(17), prime.RoundUp(8))
}

func TestRoundUpSaturates(t *testing.T) {
	require.Equal(t, prime.Largest, prime.RoundUp(prime.Largest+1))
	require.Equal(t, prime.Largest, prime.RoundUp(1<<62))
}

func TestRoundUpMonotonic(t *testing.T) {
	prev := uint64(0)
	for i := 0; i < prime.Len(); i++ {
		cur := prime.At(i)
		require.Greater(t, cur, prev)
		prev = cur
	}
}
