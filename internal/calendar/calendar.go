// Package calendar derives the temporal fields of a downtime record:
// elapsed duration (including intervals that cross midnight), the ISO-8601
// week label, the month label and the year.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInterval is returned when start and end time describe an empty
// interval (identical clock readings).
var ErrInvalidInterval = errors.New("start and end time describe an empty interval")

const (
	// DateLayout is the canonical record date format.
	DateLayout = "2006-01-02"
	// ClockLayout is the canonical persisted time-of-day format.
	ClockLayout = "15:04:05"

	minutesPerDay = 24 * 60
)

// Normalized carries the derived temporal fields of a record together with
// the canonicalized inputs.
type Normalized struct {
	Date          string
	StartTime     string
	EndTime       string
	DurationHours float64
	WeekLabel     string
	MonthLabel    string
	Year          int
}

// Normalize computes duration and calendar labels for a record. An end time
// numerically earlier than the start time means the interval crossed
// midnight; the calendar labels are always taken from the start date, the
// day the shift began.
func Normalize(date, start, end string) (Normalized, error) {
	day, err := ParseDate(date)
	if err != nil {
		return Normalized{}, err
	}

	startMin, err := parseClock(start)
	if err != nil {
		return Normalized{}, fmt.Errorf("invalid start time %q: %w", start, err)
	}
	endMin, err := parseClock(end)
	if err != nil {
		return Normalized{}, fmt.Errorf("invalid end time %q: %w", end, err)
	}

	if startMin == endMin {
		return Normalized{}, ErrInvalidInterval
	}

	elapsed := endMin - startMin
	if elapsed < 0 {
		// Crossed midnight: (24:00 - start) + (end - 0:00).
		elapsed += minutesPerDay
	}

	return Normalized{
		Date:          day.Format(DateLayout),
		StartTime:     formatClock(startMin),
		EndTime:       formatClock(endMin),
		DurationHours: roundHours(elapsed),
		WeekLabel:     WeekLabel(day),
		MonthLabel:    MonthLabel(day),
		Year:          day.Year(),
	}, nil
}

// ParseDate parses a YYYY-MM-DD record date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// WeekLabel returns the ISO-8601 week label for a date, e.g. "2026-S05".
// The ISO year may differ from the calendar year near year boundaries.
func WeekLabel(d time.Time) string {
	year, week := d.ISOWeek()
	return fmt.Sprintf("%d-S%02d", year, week)
}

// MonthLabel returns the month label for a date, e.g. "2026-M01".
func MonthLabel(d time.Time) string {
	return fmt.Sprintf("%d-M%02d", d.Year(), int(d.Month()))
}

// WeekBounds returns the Monday and Sunday of an ISO week label.
func WeekBounds(label string) (time.Time, time.Time, error) {
	year, week, err := parseWeekLabel(label)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	// January 4th is always inside ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	monday := jan4.AddDate(0, 0, 1-weekday+(week-1)*7)
	return monday, monday.AddDate(0, 0, 6), nil
}

// CurrentWeek returns the ISO week label containing the given instant.
func CurrentWeek(now time.Time) string {
	return WeekLabel(now)
}

// PreviousWeek returns the ISO week label of the week before the given instant.
func PreviousWeek(now time.Time) string {
	return WeekLabel(now.AddDate(0, 0, -7))
}

func parseWeekLabel(label string) (year, week int, err error) {
	parts := strings.SplitN(label, "-S", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid week label %q: expected YYYY-SNN", label)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid week label %q: expected YYYY-SNN", label)
	}
	week, err = strconv.Atoi(parts[1])
	if err != nil || week < 1 || week > 53 {
		return 0, 0, fmt.Errorf("invalid week label %q: week out of range", label)
	}
	return year, week, nil
}

// parseClock parses HH:MM or HH:MM:SS into minutes since midnight.
// Seconds are not carried; form inputs are minute-granular.
func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, errors.New("expected HH:MM or HH:MM:SS")
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, errors.New("hour out of range")
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, errors.New("minute out of range")
	}
	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return 0, errors.New("second out of range")
		}
	}
	return hour*60 + minute, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d:00", minutes/60, minutes%60)
}

// roundHours converts minutes to hours rounded half-up to two decimals.
func roundHours(minutes int) float64 {
	centiHours := (minutes*100 + 30) / 60 // +30 rounds the division half-up
	return float64(centiHours) / 100
}
