package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDailyAt(t *testing.T) {
	require.Equal(t, "0 6 * * *", DailyAt(6))
	require.Equal(t, "0 0 * * *", DailyAt(0))
	require.Equal(t, "0 23 * * *", DailyAt(23))
	// Out-of-range hours wrap instead of producing an invalid spec.
	require.Equal(t, "0 1 * * *", DailyAt(25))
	require.Equal(t, "0 23 * * *", DailyAt(-1))
}
