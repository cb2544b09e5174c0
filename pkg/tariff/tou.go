package tariff

import (
	"fmt"
	"time"
)

// Period is a time-of-use pricing window.
type Period int

const (
	P1 Period = 1 // punta (peak)
	P2 Period = 2 // valle (valley)
	P3 Period = 3 // supervalle (super-valley)
)

func (p Period) String() string { return fmt.Sprintf("P%d", int(p)) }

// ErrPartition reports a broken TOU partition: an hour that would land in
// zero or more than one period, or a malformed hourly index. It is an
// internal defect, never a user error, and aborts the computation.
var ErrPartition = fmt.Errorf("TOU partition violated")

// PeriodFor classifies one clock hour. Windows are half-open: inclusive of
// the start hour, exclusive of the end hour.
//
// 2.0A has a single period. 2.0DHA peak hours are 12-22h in standard time
// and 13-23h under DST. 2.0DHS boundaries ignore DST: P1 13-23h,
// P3 01-07h, P2 the remaining 23-01h and 07-13h.
func (c Class) PeriodFor(ts time.Time) Period {
	h := ts.Hour()
	switch c.Periods {
	case 2:
		if ts.IsDST() {
			if h >= 13 && h < 23 {
				return P1
			}
			return P2
		}
		if h >= 12 && h < 22 {
			return P1
		}
		return P2
	case 3:
		switch {
		case h >= 13 && h < 23:
			return P1
		case h >= 1 && h < 7:
			return P3
		default:
			return P2
		}
	default:
		return P1
	}
}

// Assign labels every hour of a priced interval with its TOU period. The
// hourly index must be strictly increasing; duplicated or out-of-order
// timestamps would double-count an hour and fail with ErrPartition.
func (c Class) Assign(hours []time.Time) ([]Period, error) {
	out := make([]Period, len(hours))
	var prev time.Time
	for i, ts := range hours {
		if i > 0 && !ts.After(prev) {
			return nil, fmt.Errorf("hour %s not after %s: %w", ts, prev, ErrPartition)
		}
		prev = ts
		p := c.PeriodFor(ts)
		if int(p) < 1 || int(p) > c.Periods {
			return nil, fmt.Errorf("hour %s labeled %s outside 1..%d: %w", ts, p, c.Periods, ErrPartition)
		}
		out[i] = p
	}
	return out, nil
}

// HourRange returns the start of every clock hour in [start, end), walked
// in real time so DST-transition days yield 23 or 25 local hours.
func HourRange(start, end time.Time) []time.Time {
	var out []time.Time
	for ts := start; ts.Before(end); ts = ts.Add(time.Hour) {
		out = append(out, ts)
	}
	return out
}
