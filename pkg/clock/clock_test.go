package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedAt(t *testing.T, value string) Fixed {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	instant, err := time.ParseInLocation("2006-01-02 15:04:05", value, loc)
	require.NoError(t, err)
	return Fixed{Instant: instant}
}

func TestSystemClockUsesConfiguredLocation(t *testing.T) {
	c, err := NewSystem("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", c.Now().Location().String())
	assert.Equal(t, 0, c.Today().Hour())
}

func TestNewSystemRejectsUnknownZone(t *testing.T) {
	_, err := NewSystem("Mars/Olympus_Mons")
	require.Error(t, err)
}

func TestTodayIsCivilMidnight(t *testing.T) {
	c := fixedAt(t, "2025-03-14 23:59:59")
	today := c.Today()
	assert.Equal(t, 14, today.Day())
	assert.Equal(t, 0, today.Hour())
	assert.Equal(t, c.Instant.Location(), today.Location())
}

func TestCalculateReleaseTime(t *testing.T) {
	c := fixedAt(t, "2025-03-14 10:00:00")

	for hours := 0; hours <= MaxReleaseDelayHours; hours++ {
		got, err := CalculateReleaseTime(c, hours)
		require.NoError(t, err)
		assert.Equal(t, c.Instant.Add(time.Duration(hours)*time.Hour), got)
	}
}

func TestCalculateReleaseTimeRejectsOutOfRange(t *testing.T) {
	c := fixedAt(t, "2025-03-14 10:00:00")

	_, err := CalculateReleaseTime(c, -1)
	require.Error(t, err)

	_, err = CalculateReleaseTime(c, MaxReleaseDelayHours+1)
	require.Error(t, err)
}
