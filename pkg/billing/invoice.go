package billing

import (
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/tariff"
	"github.com/azoguelabs/pvpcbill/pkg/types"
)

// PeriodCost is the energy term of one TOU period inside one calendar-year
// segment. TEA and TCU are unrounded euros; rounding happens when the
// totals are settled.
type PeriodCost struct {
	Period tariff.Period `json:"period"`
	KWH    float64       `json:"kWh"`
	TEA    float64       `json:"teaEUR"`
	TCU    float64       `json:"tcuEUR"`
}

// SegmentDetail is the breakdown of one calendar-year segment: the fixed
// power term applied at the year's rate plus the energy term per period.
type SegmentDetail struct {
	Segment   tariff.YearSegment `json:"segment"`
	FixedCoef float64            `json:"fixedCoefEURKWYear"`
	FixedCost float64            `json:"fixedCostEUR"`
	Periods   []PeriodCost       `json:"periods"`
}

// Invoice is the immutable result of one billing computation. All monetary
// accessors return euros already rounded to the cent; the detail slices
// keep the unrounded intermediates for rendering.
type Invoice struct {
	id        string
	createdAt time.Time

	params types.BillingParams
	class  tariff.Class
	zone   tariff.Zone

	billedDays int
	details    []SegmentDetail

	fixedTotal    float64
	variableTotal float64
	bonus         float64
	excise        float64
	rental        float64
	vatGeneral    float64 // unrounded
	vatMeter      float64 // unrounded
	vat           float64
	total         float64

	prices []types.PVPCHour
	hourly []types.ConsumptionHour
}

// ID returns the invoice record identifier.
func (inv *Invoice) ID() string { return inv.id }

// CreatedAt returns the computation time.
func (inv *Invoice) CreatedAt() time.Time { return inv.createdAt }

// Params returns the normalized billing parameters the invoice was
// computed from.
func (inv *Invoice) Params() types.BillingParams { return inv.params }

// Class returns the tariff class billed.
func (inv *Invoice) Class() tariff.Class { return inv.class }

// Zone returns the tax zone applied.
func (inv *Invoice) Zone() tariff.Zone { return inv.zone }

// BilledDays returns the regulated day count: the day of t0 excluded, the
// day of tf included.
func (inv *Invoice) BilledDays() int { return inv.billedDays }

// Details returns the per-segment breakdown.
func (inv *Invoice) Details() []SegmentDetail {
	out := make([]SegmentDetail, len(inv.details))
	copy(out, inv.details)
	return out
}

// FixedTerm returns the power term in euros.
func (inv *Invoice) FixedTerm() float64 { return inv.fixedTotal }

// VariableTerm returns the energy term in euros.
func (inv *Invoice) VariableTerm() float64 { return inv.variableTotal }

// SocialBonusDiscount returns the bono social discount in euros, zero or
// negative.
func (inv *Invoice) SocialBonusDiscount() float64 { return inv.bonus }

// ElectricityTax returns the excise tax in euros.
func (inv *Invoice) ElectricityTax() float64 { return inv.excise }

// MeterRental returns the measuring-equipment cost in euros, before VAT.
func (inv *Invoice) MeterRental() float64 { return inv.rental }

// VAT returns the IVA/IGIC/IPSI amount in euros.
func (inv *Invoice) VAT() float64 { return inv.vat }

// Total returns the invoice total in euros.
func (inv *Invoice) Total() float64 { return inv.total }

// TotalConsumptionKWH returns the billed consumption total, rounded to
// 0.01 kWh.
func (inv *Invoice) TotalConsumptionKWH() float64 {
	var sum float64
	for _, h := range inv.hourly {
		sum += h.KWH
	}
	return RoundCurrency(sum)
}

// HourlyConsumption returns the Madrid-localized hourly series the energy
// term was priced on: the metered series, or the profile-estimated one
// when only totals were supplied.
func (inv *Invoice) HourlyConsumption() []types.ConsumptionHour {
	out := make([]types.ConsumptionHour, len(inv.hourly))
	copy(out, inv.hourly)
	return out
}

// Prices returns the hourly price series of the billed interval.
func (inv *Invoice) Prices() []types.PVPCHour {
	out := make([]types.PVPCHour, len(inv.prices))
	copy(out, inv.prices)
	return out
}

// Summary flattens the invoice into its stored and API representation.
func (inv *Invoice) Summary() types.InvoiceSummary {
	return types.InvoiceSummary{
		ID:                inv.id,
		CUPS:              inv.params.CUPS,
		TariffCode:        inv.class.Code,
		TariffDesc:        inv.class.Name,
		TaxZoneDesc:       inv.zone.Name,
		TSStart:           inv.params.T0.Format("2006-01-02"),
		TSEnd:             inv.params.TF.Format("2006-01-02"),
		BilledDays:        inv.billedDays,
		ContractedKW:      RoundCurrency(inv.params.ContractedKW),
		TotalKWH:          inv.TotalConsumptionKWH(),
		SocialBonus:       inv.params.SocialBonus,
		FixedTerm:         inv.fixedTotal,
		VariableTerm:      inv.variableTotal,
		BonusDiscount:     inv.bonus,
		ElectricityTaxPct: inv.params.ElectricityTax * 100,
		ElectricityTax:    inv.excise,
		MeterRental:       inv.rental,
		VATRates:          []float64{inv.zone.GeneralRate, inv.zone.MeterRate},
		VAT:               inv.vat,
		Total:             inv.total,
		CreatedAt:         inv.createdAt,
	}
}
