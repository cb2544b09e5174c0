package tariff

import (
	"fmt"
	"time"
)

// YearSegment is the slice of a billing interval that falls inside one
// calendar year. Fixed-term coefficients and energy tolls are looked up per
// year, so an interval crossing Dec 31 is billed as two segments.
type YearSegment struct {
	Year       int       `json:"year"`
	Days       int       `json:"days"`
	DaysInYear int       `json:"daysInYear"`
	Start      time.Time `json:"start"` // exclusive day, like the interval's t0
	End        time.Time `json:"end"`   // inclusive day
}

func daysInYear(year int) int {
	jan1 := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	next := time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC)
	return int(next.Sub(jan1).Hours() / 24)
}

func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// Segments splits [t0, tf] into per-calendar-year segments. The day of t0
// is excluded and the day of tf included, so the billed-day count is the
// plain calendar difference. Intervals spanning more than two calendar
// years are rejected.
func Segments(t0, tf time.Time) ([]YearSegment, error) {
	if !tf.After(t0) {
		return nil, fmt.Errorf("billing interval end %s is not after start %s", tf.Format("2006-01-02"), t0.Format("2006-01-02"))
	}
	if tf.Year() > t0.Year()+1 {
		return nil, fmt.Errorf("billing interval spans %d calendar years, at most 2 supported", tf.Year()-t0.Year()+1)
	}

	if t0.Year() == tf.Year() {
		return []YearSegment{{
			Year:       t0.Year(),
			Days:       daysBetween(t0, tf),
			DaysInYear: daysInYear(t0.Year()),
			Start:      t0,
			End:        tf,
		}}, nil
	}

	dec31 := time.Date(t0.Year(), 12, 31, 0, 0, 0, 0, t0.Location())
	return []YearSegment{
		{
			Year:       t0.Year(),
			Days:       daysBetween(t0, dec31),
			DaysInYear: daysInYear(t0.Year()),
			Start:      t0,
			End:        dec31,
		},
		{
			Year:       tf.Year(),
			Days:       daysBetween(dec31, tf),
			DaysInYear: daysInYear(tf.Year()),
			Start:      dec31,
			End:        tf,
		},
	}, nil
}

// BilledDays returns the regulated day count of the interval.
func BilledDays(t0, tf time.Time) int {
	return daysBetween(t0, tf)
}
