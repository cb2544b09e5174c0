// Package pvpc supplies the hourly PVPC price breakdown (access toll,
// energy cost, profile coefficient) the billing engine prices against.
package pvpc

import (
	"context"
	"fmt"
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/tariff"
	"github.com/azoguelabs/pvpcbill/pkg/types"
)

// Provider is the price oracle. Implementations must return one row per
// local clock hour, sorted, gapless over the requested range.
type Provider interface {
	// GetHourlyPrices returns the PVPC breakdown for a tariff class over
	// [start, end) in the billing timezone.
	GetHourlyPrices(ctx context.Context, class tariff.Class, start, end time.Time) ([]types.PVPCHour, error)
}

// Refresher is implemented by providers that keep a persistent price
// cache and can top it up to the present.
type Refresher interface {
	Refresh(ctx context.Context, class tariff.Class, now time.Time) error
}

// ErrDataGap reports that the oracle cannot supply a contiguous hourly
// series for the requested interval. No partial invoice is produced.
var ErrDataGap = fmt.Errorf("hourly price series has gaps")

// ValidateSeries checks that a price series covers [start, end) with
// exactly one row per hour, in order.
func ValidateSeries(series []types.PVPCHour, start, end time.Time) error {
	want := tariff.HourRange(start, end)
	if len(series) != len(want) {
		return fmt.Errorf("got %d hourly prices, interval has %d hours: %w", len(series), len(want), ErrDataGap)
	}
	for i, ts := range want {
		if !series[i].TSStart.Equal(ts) {
			return fmt.Errorf("price row %d is %s, expected %s: %w",
				i, series[i].TSStart.Format(time.RFC3339), ts.Format(time.RFC3339), ErrDataGap)
		}
	}
	return nil
}
