package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeOfDay is a local wall-clock time with minute granularity, stored as
// minutes since midnight. Serialized form is always "HH:MM:SS".
type TimeOfDay int

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS". Seconds, when present, must
// be zero; slots are minute granular.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	switch len(s) {
	case 5:
		if _, err := fmt.Sscanf(s, "%02d:%02d", &h, &m); err != nil {
			return 0, fmt.Errorf("parse time of day %q: %w", s, err)
		}
	case 8:
		if _, err := fmt.Sscanf(s, "%02d:%02d:%02d", &h, &m, &sec); err != nil {
			return 0, fmt.Errorf("parse time of day %q: %w", s, err)
		}
	default:
		return 0, fmt.Errorf("parse time of day %q: want HH:MM or HH:MM:SS", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec != 0 {
		return 0, fmt.Errorf("parse time of day %q: out of range", s)
	}
	return TimeOfDay(h*60 + m), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:00", int(t)/60, int(t)%60)
}

func (t TimeOfDay) Valid() bool { return t >= 0 && t < 24*60 }

// At anchors the wall-clock time on the given calendar date.
func (t TimeOfDay) At(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(t)/60, int(t)%60, 0, 0, date.Location())
}

// DateString is the canonical YYYY-MM-DD form used on the wire and in keys.
func DateString(date time.Time) string {
	return date.Format("2006-01-02")
}

// SameDate reports whether two instants fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	return DateString(a) == DateString(b)
}

// ClinicSchedule is the clinic's operating window for one day of the week
// (0=Sunday .. 6=Saturday). When IsClosed is false, StartTime < EndTime.
type ClinicSchedule struct {
	ClinicID  uuid.UUID
	DayOfWeek int
	IsClosed  bool
	StartTime TimeOfDay
	EndTime   TimeOfDay
}

// ClinicHoliday closes a clinic entirely on one calendar date, overriding
// the weekly schedule.
type ClinicHoliday struct {
	ClinicID uuid.UUID
	Date     time.Time
	Reason   *string
}

// DoctorSchedule is a doctor's working window for one day of the week. When
// active, the window must be contained in the clinic's window for the same
// day; the write validator enforces this.
type DoctorSchedule struct {
	DoctorID            uuid.UUID
	DayOfWeek           int
	IsActive            bool
	StartTime           TimeOfDay
	EndTime             TimeOfDay
	SlotDurationMinutes int
}

// DoctorHoliday is a doctor-specific leave date, independent of clinic
// holidays.
type DoctorHoliday struct {
	DoctorID uuid.UUID
	Date     time.Time
	Reason   *string
}

// DoctorSettings supplies fallbacks when no DoctorSchedule row covers a day.
type DoctorSettings struct {
	DoctorID                   uuid.UUID
	DefaultAppointmentDuration int
	AllowCustomDuration        bool
}

var weekdayNames = [...]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// WeekdayName returns the English name for a 0-6 day-of-week value.
func WeekdayName(dow int) string {
	if dow < 0 || dow > 6 {
		return "unknown"
	}
	return weekdayNames[dow]
}
