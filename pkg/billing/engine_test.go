package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/pvpc"
	"github.com/azoguelabs/pvpcbill/pkg/tariff"
	"github.com/azoguelabs/pvpcbill/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatOracle prices every hour at a flat 0.1 €/kWh energy cost with unit
// profile coefficients; the access toll mirrors the regulated per-period
// rates. Expected figures below are hand-computed from the published
// formulas against these synthetic prices.
func flatOracle() pvpc.Provider {
	return &pvpc.Fixed{TCUEURKWH: 0.1, COF: 1}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, tariff.Madrid)
}

func rentalOverride(v float64) *float64 { return &v }

func TestComputeScenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("TwoSegmentsVHC", func(t *testing.T) {
		// 2016-11-01 -> 2017-01-05: 60 days of 2016 and 5 of 2017
		inv, err := Compute(ctx, types.BillingParams{
			T0:          day(2016, 11, 1),
			TF:          day(2017, 1, 5),
			TariffCode:  "VHC",
			Consumption: types.PerPeriodKWH(219, 126, 154),
			TaxZone:     tariff.ZoneIVA,
			RentalEUR:   rentalOverride(1.62),
		}, flatOracle())
		require.NoError(t, err)

		assert.Equal(t, 65, inv.BilledDays())
		assert.Equal(t, 25.72, inv.FixedTerm())
		// TEA 219*0.062012 + 126*0.002879 + 154*0.000886 = 14.079826
		// TCU 499 kWh * 0.1 = 49.90 -> round(63.979826)
		assert.Equal(t, 63.98, inv.VariableTerm())
		assert.Equal(t, 4.59, inv.ElectricityTax())
		assert.Equal(t, 1.62, inv.MeterRental())
		assert.Equal(t, 20.14, inv.VAT())
		assert.Equal(t, 116.05, inv.Total())
		assert.Equal(t, 499.0, inv.TotalConsumptionKWH())

		details := inv.Details()
		require.Len(t, details, 2)
		assert.Equal(t, 60, details[0].Segment.Days)
		assert.Equal(t, 5, details[1].Segment.Days)
		assert.Equal(t, 366, details[0].Segment.DaysInYear)
		assert.Equal(t, 365, details[1].Segment.DaysInYear)
	})

	t.Run("SingleSegmentNOC", func(t *testing.T) {
		inv, err := Compute(ctx, types.BillingParams{
			T0:          day(2016, 11, 1),
			TF:          day(2016, 12, 9),
			TariffCode:  "NOC",
			Consumption: types.PerPeriodKWH(219, 280),
			TaxZone:     tariff.ZoneIPSI,
			RentalEUR:   rentalOverride(1.62),
		}, flatOracle())
		require.NoError(t, err)

		assert.Equal(t, 38, inv.BilledDays())
		assert.Equal(t, 15.06, inv.FixedTerm())
		// TEA rounds: 13.58 + 0.62; TCU rounds: 21.90 + 28.00
		assert.Equal(t, 64.10, inv.VariableTerm())
		assert.Equal(t, 4.05, inv.ElectricityTax())
		assert.Equal(t, 1.62, inv.MeterRental())
		assert.Equal(t, 0.90, inv.VAT())
		assert.Equal(t, 85.73, inv.Total())
	})

	t.Run("EmptyConsumption", func(t *testing.T) {
		// the oracle must not be consulted at all
		inv, err := Compute(ctx, types.BillingParams{
			T0:         day(2016, 11, 1),
			TF:         day(2016, 12, 9),
			TariffCode: "NOC",
			TaxZone:    tariff.ZoneIPSI,
			RentalEUR:  rentalOverride(1.62),
		}, &failingProvider{})
		require.NoError(t, err)

		assert.Equal(t, 15.06, inv.FixedTerm())
		assert.Equal(t, 0.0, inv.VariableTerm())
		assert.Equal(t, 0.77, inv.ElectricityTax())
		assert.Equal(t, 1.62, inv.MeterRental())
		assert.Equal(t, 0.22, inv.VAT())
		assert.Equal(t, 17.67, inv.Total())
		assert.Equal(t, 0.0, inv.TotalConsumptionKWH())
	})

	t.Run("SocialBonusAndDefaultRental", func(t *testing.T) {
		inv, err := Compute(ctx, types.BillingParams{
			T0:          day(2016, 11, 1),
			TF:          day(2016, 12, 9),
			TariffCode:  "GEN",
			SocialBonus: true,
		}, &failingProvider{})
		require.NoError(t, err)

		assert.Equal(t, 15.06, inv.FixedTerm())
		// -25% of the rounded subtotal
		assert.Equal(t, -3.77, inv.SocialBonusDiscount())
		assert.Equal(t, 0.58, inv.ElectricityTax())
		// default single-phase rental prorated: 9.72 * 38/366
		assert.Equal(t, 1.01, inv.MeterRental())
		assert.Equal(t, 2.70, inv.VAT())
		assert.Equal(t, 15.58, inv.Total())
	})

	t.Run("SegmentBoundarySplit", func(t *testing.T) {
		inv, err := Compute(ctx, types.BillingParams{
			T0:          day(2016, 12, 28),
			TF:          day(2017, 1, 3),
			TariffCode:  "GEN",
			Consumption: types.TotalKWH(100),
			RentalEUR:   rentalOverride(0),
		}, flatOracle())
		require.NoError(t, err)

		assert.Equal(t, 6, inv.BilledDays())
		assert.Equal(t, 2.36, inv.FixedTerm())
		// uniform profile: 50 kWh per year segment, same GEN toll both years
		assert.Equal(t, 14.40, inv.VariableTerm())

		details := inv.Details()
		require.Len(t, details, 2)
		assert.InDelta(t, 50.0, details[0].Periods[0].KWH, 1e-9)
		assert.InDelta(t, 50.0, details[1].Periods[0].KWH, 1e-9)
	})
}

func TestComputeDefaults(t *testing.T) {
	inv, err := Compute(context.Background(), types.BillingParams{
		T0: day(2016, 11, 1),
		TF: day(2016, 12, 9),
	}, &failingProvider{})
	require.NoError(t, err)

	s := inv.Summary()
	assert.Equal(t, DefaultCUPS, s.CUPS)
	assert.Equal(t, tariff.CodeGEN, s.TariffCode)
	assert.Equal(t, 3.45, s.ContractedKW)
	assert.InDelta(t, DefaultElectricityTax*100, s.ElectricityTaxPct, 1e-9)
	assert.Equal(t, "2016-11-01", s.TSStart)
	assert.Equal(t, "2016-12-09", s.TSEnd)
	assert.NotEmpty(t, s.ID)
}

func TestComputeHourlySeries(t *testing.T) {
	ctx := context.Background()

	// two full wall-clock days at 0.5 kWh/h
	var hours []types.ConsumptionHour
	for d := 10; d <= 11; d++ {
		for h := 0; h < 24; h++ {
			hours = append(hours, types.ConsumptionHour{
				TSStart: time.Date(2016, 2, d, h, 0, 0, 0, time.UTC),
				KWH:     0.5,
			})
		}
	}

	t.Run("DerivedInterval", func(t *testing.T) {
		inv, err := Compute(ctx, types.BillingParams{
			TariffCode:  "GEN",
			Consumption: types.Consumption{Hourly: hours, HourlyWallClock: true},
			RentalEUR:   rentalOverride(0),
		}, flatOracle())
		require.NoError(t, err)

		// read dates bracket the series days
		assert.Equal(t, 2, inv.BilledDays())
		assert.Equal(t, "2016-02-09", inv.Summary().TSStart)
		assert.Equal(t, "2016-02-11", inv.Summary().TSEnd)
		assert.Equal(t, 24.0, inv.TotalConsumptionKWH())
		// TEA round(24*0.044027)=1.06, TCU round(24*0.1)=2.40
		assert.Equal(t, 3.46, inv.VariableTerm())
	})

	t.Run("MissingHoursMonotonic", func(t *testing.T) {
		full, err := Compute(ctx, types.BillingParams{
			T0:          day(2016, 2, 9),
			TF:          day(2016, 2, 11),
			TariffCode:  "GEN",
			Consumption: types.Consumption{Hourly: hours, HourlyWallClock: true},
		}, flatOracle())
		require.NoError(t, err)

		trimmed, err := Compute(ctx, types.BillingParams{
			T0:          day(2016, 2, 9),
			TF:          day(2016, 2, 11),
			TariffCode:  "GEN",
			Consumption: types.Consumption{Hourly: hours[:30], HourlyWallClock: true},
		}, flatOracle())
		require.NoError(t, err)

		assert.LessOrEqual(t, trimmed.VariableTerm(), full.VariableTerm())
	})

	t.Run("OutsideIntervalRejected", func(t *testing.T) {
		_, err := Compute(ctx, types.BillingParams{
			T0:          day(2016, 3, 1),
			TF:          day(2016, 3, 3),
			TariffCode:  "GEN",
			Consumption: types.Consumption{Hourly: hours, HourlyWallClock: true},
		}, flatOracle())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestComputeRoundTrips(t *testing.T) {
	ctx := context.Background()
	params := types.BillingParams{
		T0:          day(2016, 11, 1),
		TF:          day(2016, 12, 9),
		TariffCode:  "VHC",
		Consumption: types.PerPeriodKWH(219, 126, 154),
		RentalEUR:   rentalOverride(1.62),
	}

	orig, err := Compute(ctx, params, flatOracle())
	require.NoError(t, err)

	t.Run("HourlyIdempotence", func(t *testing.T) {
		// feeding the computed hourly series back reproduces the bill
		again := params
		again.Consumption = types.HourlyKWH(orig.HourlyConsumption())
		inv, err := Compute(ctx, again, flatOracle())
		require.NoError(t, err)
		assert.Equal(t, orig.Text(), inv.Text())
	})

	t.Run("TariffRoundTrip", func(t *testing.T) {
		for _, code := range []string{"NOC", "GEN"} {
			other := params
			other.TariffCode = code
			other.Consumption = types.TotalKWH(499)
			_, err := Compute(ctx, other, flatOracle())
			require.NoError(t, err)
		}
		inv, err := Compute(ctx, params, flatOracle())
		require.NoError(t, err)
		assert.Equal(t, orig.Text(), inv.Text())
	})
}

func TestComputeErrors(t *testing.T) {
	ctx := context.Background()
	base := types.BillingParams{T0: day(2016, 11, 1), TF: day(2016, 12, 9)}

	t.Run("UnknownTariff", func(t *testing.T) {
		p := base
		p.TariffCode = "3.0A"
		_, err := Compute(ctx, p, flatOracle())
		assert.ErrorIs(t, err, ErrUnknownTariff)
	})

	t.Run("InvertedInterval", func(t *testing.T) {
		p := base
		p.T0, p.TF = p.TF, p.T0
		_, err := Compute(ctx, p, flatOracle())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("TooLongSpan", func(t *testing.T) {
		p := base
		p.TF = day(2018, 2, 1)
		_, err := Compute(ctx, p, flatOracle())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("NoIntervalNoConsumption", func(t *testing.T) {
		_, err := Compute(ctx, types.BillingParams{}, flatOracle())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("NegativePower", func(t *testing.T) {
		p := base
		p.ContractedKW = -1
		_, err := Compute(ctx, p, flatOracle())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("PeriodCountMismatch", func(t *testing.T) {
		p := base
		p.TariffCode = "NOC"
		p.Consumption = types.PerPeriodKWH(100, 100, 100)
		_, err := Compute(ctx, p, flatOracle())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("ConflictingConsumption", func(t *testing.T) {
		p := base
		p.Consumption = types.Consumption{
			PerPeriod: []float64{100},
			Hourly:    []types.ConsumptionHour{{TSStart: day(2016, 11, 2), KWH: 1}},
		}
		_, err := Compute(ctx, p, flatOracle())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("UnknownTaxZone", func(t *testing.T) {
		p := base
		p.TaxZone = "VAT"
		_, err := Compute(ctx, p, flatOracle())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("OracleFailure", func(t *testing.T) {
		p := base
		p.Consumption = types.TotalKWH(100)
		_, err := Compute(ctx, p, &failingProvider{})
		require.Error(t, err)
	})
}

type failingProvider struct{}

func (f *failingProvider) GetHourlyPrices(ctx context.Context, class tariff.Class, start, end time.Time) ([]types.PVPCHour, error) {
	return nil, fmt.Errorf("oracle should not have been consulted")
}
