package pvpc

import (
	"context"
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/tariff"
	"github.com/azoguelabs/pvpcbill/pkg/types"
)

// Fixed is an offline Provider with flat synthetic prices: TCU and COF are
// constant, TEA mirrors the regulated per-period access toll of the hour's
// year. Used in tests and for dry runs without esios access.
type Fixed struct {
	TCUEURKWH float64
	COF       float64
	// TCUFor overrides the flat TCU per hour when set.
	TCUFor func(ts time.Time) float64
}

// GetHourlyPrices implements Provider.
func (f *Fixed) GetHourlyPrices(ctx context.Context, class tariff.Class, start, end time.Time) ([]types.PVPCHour, error) {
	start = start.In(tariff.Madrid)
	end = end.In(tariff.Madrid)

	hours := tariff.HourRange(start, end)
	out := make([]types.PVPCHour, 0, len(hours))
	for _, ts := range hours {
		coefs, err := class.EnergyCoefficients(ts.Year())
		if err != nil {
			return nil, err
		}
		tcu := f.TCUEURKWH
		if f.TCUFor != nil {
			tcu = f.TCUFor(ts)
		}
		out = append(out, types.PVPCHour{
			TSStart: ts,
			TEA:     coefs[int(class.PeriodFor(ts))-1],
			TCU:     tcu,
			COF:     f.COF,
		})
	}
	return out, nil
}
