package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/log"
	"github.com/azoguelabs/pvpcbill/pkg/profile"
	"github.com/azoguelabs/pvpcbill/pkg/pvpc"
	"github.com/azoguelabs/pvpcbill/pkg/tariff"
	"github.com/azoguelabs/pvpcbill/pkg/types"
	"github.com/google/uuid"
)

// Defaults applied to unspecified billing parameters, per the reference
// residential contract.
const (
	DefaultCUPS           = "ES00XXXXXXXXXXXXXXDB"
	DefaultContractedKW   = 3.45
	DefaultElectricityTax = 0.0511269632 // 4.864% * 1.05113
	DefaultRentalEURYear  = 0.81 * 12    // single-phase meter
)

// Engine computes invoices against a price provider.
type Engine struct {
	provider pvpc.Provider
}

// New returns an Engine pricing against the given provider.
func New(provider pvpc.Provider) *Engine {
	return &Engine{provider: provider}
}

// Compute is a convenience wrapper around Engine.Compute.
func Compute(ctx context.Context, params types.BillingParams, provider pvpc.Provider) (*Invoice, error) {
	return New(provider).Compute(ctx, params)
}

// wallDate rebuilds a timestamp's wall-clock date as local midnight.
// Billing boundaries are dates, whatever zone the caller carried them in.
func wallDate(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, tariff.Madrid)
}

// Compute runs the full billing cascade and returns an immutable Invoice.
func (e *Engine) Compute(ctx context.Context, params types.BillingParams) (*Invoice, error) {
	started := time.Now()
	inv, err := e.compute(ctx, params)
	observeCompute(params.TariffCode, err == nil, time.Since(started))
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).InfoContext(ctx, "computed invoice",
		slog.String("id", inv.id),
		slog.String("tariff", inv.class.Code),
		slog.Int("days", inv.billedDays),
		slog.Float64("total", inv.total))
	return inv, nil
}

func (e *Engine) compute(ctx context.Context, params types.BillingParams) (*Invoice, error) {
	params, class, zone, policy, err := normalize(params)
	if err != nil {
		return nil, err
	}

	segments, err := tariff.Segments(params.T0, params.TF)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	billedDays := tariff.BilledDays(params.T0, params.TF)

	// Fixed power term: contracted kW at the year's margin+toll rate,
	// prorated by billed days over the year's length.
	details := make([]SegmentDetail, len(segments))
	var fixedRaw float64
	for i, seg := range segments {
		coef, err := tariff.PowerCoefficient(seg.Year)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		cost := params.ContractedKW * float64(seg.Days) * coef / float64(seg.DaysInYear)
		details[i] = SegmentDetail{Segment: seg, FixedCoef: coef, FixedCost: cost}
		fixedRaw += cost
	}
	fixedTotal := RoundCurrency(fixedRaw)

	// Priced interval: hours shifted one day past the read dates, since
	// the day of t0 is excluded and the day of tf included.
	pStart := params.T0.AddDate(0, 0, 1)
	pEnd := params.TF.AddDate(0, 0, 1)

	var prices []types.PVPCHour
	var hourly []types.ConsumptionHour
	var variableTotal float64
	if !params.Consumption.IsZero() {
		prices, err = e.provider.GetHourlyPrices(ctx, class, pStart, pEnd)
		if err != nil {
			return nil, err
		}

		hourly, err = resolveHourly(params.Consumption, class, prices, policy)
		if err != nil {
			return nil, err
		}

		if err := priceSegments(details, class, hourly, prices, params.TF.Year()); err != nil {
			return nil, err
		}

		if len(details) == 1 {
			var teas, tcus []float64
			for _, pc := range details[0].Periods {
				teas = append(teas, pc.TEA)
				tcus = append(tcus, pc.TCU)
			}
			variableTotal = RoundCurrency(roundSum(teas) + roundSum(tcus))
		} else {
			var raw float64
			for _, d := range details {
				for _, pc := range d.Periods {
					raw += pc.TEA + pc.TCU
				}
			}
			variableTotal = RoundCurrency(raw)
		}
	} else {
		for i := range details {
			details[i].Periods = emptyPeriods(class)
		}
	}

	subtotal := fixedTotal + variableTotal

	var bonus float64
	if params.SocialBonus {
		bonus = RoundCurrency(-0.25 * RoundCurrency(subtotal))
		subtotal += bonus
	}

	excise := RoundCurrency(params.ElectricityTax * subtotal)
	subtotal += excise

	var rental float64
	if params.RentalEUR != nil {
		rental = RoundCurrency(*params.RentalEUR)
	} else {
		var yearFrac float64
		for _, seg := range segments {
			yearFrac += float64(seg.Days) / float64(seg.DaysInYear)
		}
		rental = RoundCurrency(yearFrac * *params.RentalEURYear)
	}

	vatGeneral := subtotal * zone.GeneralRate
	vatMeter := rental * zone.MeterRate
	vat := RoundCurrency(vatGeneral + vatMeter)

	total := RoundCurrency(subtotal + rental + vat)

	return &Invoice{
		id:            uuid.NewString(),
		createdAt:     time.Now().UTC(),
		params:        params,
		class:         class,
		zone:          zone,
		billedDays:    billedDays,
		details:       details,
		fixedTotal:    fixedTotal,
		variableTotal: variableTotal,
		bonus:         bonus,
		excise:        excise,
		rental:        rental,
		vatGeneral:    vatGeneral,
		vatMeter:      vatMeter,
		vat:           vat,
		total:         total,
		prices:        prices,
		hourly:        hourly,
	}, nil
}

// normalize validates the parameters and fills in contract defaults.
func normalize(params types.BillingParams) (types.BillingParams, tariff.Class, tariff.Zone, profile.AmbiguousPolicy, error) {
	var class tariff.Class
	var zone tariff.Zone
	var policy profile.AmbiguousPolicy

	if params.CUPS == "" {
		params.CUPS = DefaultCUPS
	}
	if params.TariffCode == "" {
		params.TariffCode = tariff.CodeGEN
	}
	class, err := tariff.Parse(params.TariffCode)
	if err != nil {
		return params, class, zone, policy, err
	}
	params.TariffCode = class.Code

	if params.TaxZone == "" {
		params.TaxZone = tariff.ZoneIVA
	}
	zone, err = tariff.ParseZone(params.TaxZone)
	if err != nil {
		return params, class, zone, policy, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	policy, err = profile.ParsePolicy(params.AmbiguousPolicy)
	if err != nil {
		return params, class, zone, policy, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if params.ContractedKW < 0 {
		return params, class, zone, policy, fmt.Errorf("%w: contracted power %.2f kW is negative", ErrInvalidInput, params.ContractedKW)
	}
	if params.ContractedKW == 0 {
		params.ContractedKW = DefaultContractedKW
	}
	if params.ElectricityTax < 0 {
		return params, class, zone, policy, fmt.Errorf("%w: electricity tax rate %.4f is negative", ErrInvalidInput, params.ElectricityTax)
	}
	if params.ElectricityTax == 0 {
		params.ElectricityTax = DefaultElectricityTax
	}
	if params.RentalEURYear == nil {
		rentalYear := DefaultRentalEURYear
		params.RentalEURYear = &rentalYear
	}

	cons := params.Consumption
	if len(cons.PerPeriod) > 0 && len(cons.Hourly) > 0 {
		return params, class, zone, policy, fmt.Errorf("%w: both per-period totals and an hourly series supplied", ErrInvalidInput)
	}
	if len(cons.PerPeriod) > 1 && len(cons.PerPeriod) != class.Periods {
		return params, class, zone, policy, fmt.Errorf("%w: %d period totals for tariff %s with %d TOU periods",
			ErrInvalidInput, len(cons.PerPeriod), class.Code, class.Periods)
	}
	for _, v := range cons.PerPeriod {
		if v < 0 {
			return params, class, zone, policy, fmt.Errorf("%w: negative consumption %.3f kWh", ErrInvalidInput, v)
		}
	}
	for _, h := range cons.Hourly {
		if h.KWH < 0 {
			return params, class, zone, policy, fmt.Errorf("%w: negative consumption %.3f kWh at %s", ErrInvalidInput, h.KWH, h.TSStart)
		}
	}

	// The interval may be given explicitly or derived from an hourly
	// series: the read dates bracket the series' wall-clock days.
	switch {
	case !params.T0.IsZero() && !params.TF.IsZero():
		params.T0 = wallDate(params.T0)
		params.TF = wallDate(params.TF)
	case len(cons.Hourly) > 0:
		params.T0 = wallDate(cons.Hourly[0].TSStart).AddDate(0, 0, -1)
		params.TF = wallDate(cons.Hourly[len(cons.Hourly)-1].TSStart)
	default:
		return params, class, zone, policy, fmt.Errorf("%w: need a date range or an hourly consumption series", ErrInvalidInput)
	}

	return params, class, zone, policy, nil
}

// resolveHourly produces the Madrid-localized hourly consumption the
// energy term is priced on, estimating it from per-period totals when no
// metered series was supplied.
func resolveHourly(cons types.Consumption, class tariff.Class, prices []types.PVPCHour, policy profile.AmbiguousPolicy) ([]types.ConsumptionHour, error) {
	if len(cons.Hourly) == 0 {
		hourly, err := profile.Estimate(cons.PerPeriod, class, prices)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return hourly, nil
	}

	hourly := cons.Hourly
	if cons.HourlyWallClock {
		var err error
		hourly, err = profile.Localize(hourly, policy)
		if err != nil {
			return nil, err
		}
	} else {
		out := make([]types.ConsumptionHour, len(hourly))
		for i, h := range hourly {
			out[i] = types.ConsumptionHour{TSStart: h.TSStart.In(tariff.Madrid), KWH: h.KWH}
		}
		hourly = out
	}

	for _, h := range hourly {
		if h.TSStart.Minute() != 0 || h.TSStart.Second() != 0 || h.TSStart.Nanosecond() != 0 {
			return nil, fmt.Errorf("%w: consumption timestamp %s is not on an hour boundary", ErrInvalidInput, h.TSStart)
		}
	}
	return hourly, nil
}

func emptyPeriods(class tariff.Class) []PeriodCost {
	out := make([]PeriodCost, class.Periods)
	for i := range out {
		out[i].Period = tariff.Period(i + 1)
	}
	return out
}

// priceSegments fills each segment's per-period energy costs: the access
// toll at the segment year's coefficient and the hourly-priced energy
// cost. Consumption hours must all land on priced hours.
func priceSegments(details []SegmentDetail, class tariff.Class, hourly []types.ConsumptionHour, prices []types.PVPCHour, endYear int) error {
	priceAt := make(map[int64]types.PVPCHour, len(prices))
	for _, p := range prices {
		priceAt[p.TSStart.Unix()] = p
	}

	boundary := time.Date(endYear, 1, 1, 0, 0, 0, 0, tariff.Madrid)
	segHours := make([][]types.ConsumptionHour, len(details))
	for _, h := range hourly {
		idx := 0
		if len(details) > 1 && !h.TSStart.Before(boundary) {
			idx = 1
		}
		segHours[idx] = append(segHours[idx], h)
	}

	for i := range details {
		coefs, err := class.EnergyCoefficients(details[i].Segment.Year)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}

		hours := make([]time.Time, len(segHours[i]))
		for j, h := range segHours[i] {
			hours[j] = h.TSStart
		}
		periods, err := class.Assign(hours)
		if err != nil {
			return err
		}

		pcs := emptyPeriods(class)
		for j, h := range segHours[i] {
			price, ok := priceAt[h.TSStart.Unix()]
			if !ok {
				return fmt.Errorf("%w: consumption hour %s has no price in the billed interval",
					ErrInvalidInput, h.TSStart.Format(time.RFC3339))
			}
			idx := int(periods[j]) - 1
			pcs[idx].KWH += h.KWH
			pcs[idx].TCU += h.KWH * price.TCU
		}
		for p := range pcs {
			pcs[p].TEA = pcs[p].KWH * coefs[p]
		}
		details[i].Periods = pcs
	}
	return nil
}
