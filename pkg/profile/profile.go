// Package profile estimates hourly consumption from aggregate meter
// readings using the regulatory load-profile coefficients (COF) published
// alongside the PVPC, and normalizes caller-supplied hourly series into the
// billing timezone.
package profile

import (
	"fmt"
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/tariff"
	"github.com/azoguelabs/pvpcbill/pkg/types"
)

// AmbiguousPolicy decides how a wall-clock hourly series is mapped onto the
// repeated hour of a DST fall-back transition.
type AmbiguousPolicy string

const (
	// AmbiguousSequential maps equal consecutive wall-clock stamps onto the
	// two real instants in order: first occurrence DST, second standard
	// time. A lone occurrence maps to the first (DST) instant.
	AmbiguousSequential AmbiguousPolicy = "sequential"
	// AmbiguousReject fails the computation when a wall-clock stamp is
	// ambiguous.
	AmbiguousReject AmbiguousPolicy = "reject"
)

// ErrAmbiguousLocalTime reports a wall-clock timestamp that cannot be
// mapped to a unique instant under the configured policy.
var ErrAmbiguousLocalTime = fmt.Errorf("ambiguous local time")

// ParsePolicy resolves a policy name; empty selects AmbiguousSequential.
func ParsePolicy(name string) (AmbiguousPolicy, error) {
	switch AmbiguousPolicy(name) {
	case "", AmbiguousSequential:
		return AmbiguousSequential, nil
	case AmbiguousReject:
		return AmbiguousReject, nil
	}
	return "", fmt.Errorf("unknown ambiguous-time policy %q (valid: %s|%s)", name, AmbiguousSequential, AmbiguousReject)
}

func sameWall(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day() && a.Hour() == b.Hour()
}

// localizeWall maps one wall-clock hour onto Madrid instants. It returns
// the first matching instant, the second one when the hour is repeated by
// a fall-back transition, and whether that ambiguity exists.
func localizeWall(ts time.Time) (first, second time.Time, ambiguous bool, err error) {
	base := time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), 0, 0, 0, tariff.Madrid)
	if !sameWall(base, ts) {
		// spring-forward gap: the wall-clock hour never happened
		return time.Time{}, time.Time{}, false, fmt.Errorf("local time %s does not exist (DST gap): %w",
			ts.Format("2006-01-02 15:04"), ErrAmbiguousLocalTime)
	}
	if prev := base.Add(-time.Hour); sameWall(prev, base) {
		return prev, base, true, nil
	}
	if next := base.Add(time.Hour); sameWall(base, next) {
		return base, next, true, nil
	}
	return base, time.Time{}, false, nil
}

// Localize attaches the billing timezone to a wall-clock hourly series.
// The series must be in chronological wall-clock order; repeated stamps at
// a fall-back transition are resolved by the policy.
func Localize(hours []types.ConsumptionHour, policy AmbiguousPolicy) ([]types.ConsumptionHour, error) {
	out := make([]types.ConsumptionHour, 0, len(hours))
	var prevWall time.Time
	var prevWasFirst bool
	for i, h := range hours {
		first, second, ambiguous, err := localizeWall(h.TSStart)
		if err != nil {
			return nil, err
		}
		ts := first
		if ambiguous {
			if policy == AmbiguousReject {
				return nil, fmt.Errorf("local time %s occurs twice: %w", h.TSStart.Format("2006-01-02 15:04"), ErrAmbiguousLocalTime)
			}
			if i > 0 && sameWall(h.TSStart, prevWall) && prevWasFirst {
				ts = second
				prevWasFirst = false
			} else {
				prevWasFirst = true
			}
		} else {
			prevWasFirst = false
		}
		prevWall = h.TSStart
		out = append(out, types.ConsumptionHour{TSStart: ts, KWH: h.KWH})
	}
	return out, nil
}

// Estimate turns per-period consumption totals into an hourly series over
// the priced interval, distributing each total proportionally to the COF
// weights of the hours in that TOU period. A single total is distributed
// over every hour regardless of discrimination. The prices series supplies
// both the hourly index and the COF weights.
func Estimate(totals []float64, class tariff.Class, prices []types.PVPCHour) ([]types.ConsumptionHour, error) {
	if len(totals) != 1 && len(totals) != class.Periods {
		return nil, fmt.Errorf("%d period totals for tariff %s with %d TOU periods", len(totals), class.Code, class.Periods)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("empty price series for profile estimation")
	}

	hours := make([]time.Time, len(prices))
	for i, p := range prices {
		hours[i] = p.TSStart
	}

	// an undiscriminated total spreads over the whole interval
	if len(totals) == 1 {
		var sum float64
		for _, p := range prices {
			sum += p.COF
		}
		if sum <= 0 {
			return nil, fmt.Errorf("profile coefficients sum to %g over the interval", sum)
		}
		out := make([]types.ConsumptionHour, len(prices))
		for i, p := range prices {
			out[i] = types.ConsumptionHour{TSStart: p.TSStart, KWH: p.COF * totals[0] / sum}
		}
		return out, nil
	}

	periods, err := class.Assign(hours)
	if err != nil {
		return nil, err
	}

	sums := make([]float64, class.Periods)
	for i, p := range prices {
		sums[int(periods[i])-1] += p.COF
	}
	for i, total := range totals {
		if total != 0 && sums[i] <= 0 {
			return nil, fmt.Errorf("no profile coefficients in period P%d to distribute %.3f kWh", i+1, total)
		}
	}

	out := make([]types.ConsumptionHour, len(prices))
	for i, p := range prices {
		idx := int(periods[i]) - 1
		var kwh float64
		if sums[idx] > 0 {
			kwh = p.COF * totals[idx] / sums[idx]
		}
		out[i] = types.ConsumptionHour{TSStart: p.TSStart, KWH: kwh}
	}
	return out, nil
}
