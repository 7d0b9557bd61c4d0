package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicstack/clinic-scheduling/internal/schedule"
)

func TestParseTimeOfDay(t *testing.T) {
	got, err := schedule.ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, tod(9, 30), got)
	assert.Equal(t, "09:30:00", got.String())

	got, err = schedule.ParseTimeOfDay("14:00:00")
	require.NoError(t, err)
	assert.Equal(t, tod(14, 0), got)

	got, err = schedule.ParseTimeOfDay("00:00")
	require.NoError(t, err)
	assert.Equal(t, schedule.TimeOfDay(0), got)
	assert.Equal(t, "00:00:00", got.String())
}

func TestParseTimeOfDayRejects(t *testing.T) {
	for _, s := range []string{"", "9:30", "24:00", "12:60", "12:30:15", "noonish", "12-30"} {
		_, err := schedule.ParseTimeOfDay(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestTimeOfDayAt(t *testing.T) {
	date := time.Date(2026, 8, 31, 17, 45, 12, 0, time.Local)

	at := tod(9, 30).At(date)
	assert.Equal(t, time.Date(2026, 8, 31, 9, 30, 0, 0, time.Local), at)
}

func TestSameDate(t *testing.T) {
	morning := time.Date(2026, 8, 31, 0, 5, 0, 0, time.Local)
	night := time.Date(2026, 8, 31, 23, 55, 0, 0, time.Local)
	assert.True(t, schedule.SameDate(morning, night))
	assert.False(t, schedule.SameDate(night, night.Add(10*time.Minute)))
}

func TestWeekdayName(t *testing.T) {
	assert.Equal(t, "Sunday", schedule.WeekdayName(0))
	assert.Equal(t, "Saturday", schedule.WeekdayName(6))
	assert.Equal(t, "unknown", schedule.WeekdayName(7))
}
