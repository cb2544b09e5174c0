package types

import "time"

const (
	// CurrentPriceSeriesVersion is bumped when the stored hourly price
	// layout changes.
	CurrentPriceSeriesVersion = 1
	// CurrentInvoiceVersion is bumped when the stored invoice layout changes.
	CurrentInvoiceVersion = 1
)

// PVPCHour is one hour of the published PVPC price breakdown for a tariff.
// TEA and TCU are €/kWh; COF is the regulatory load-profile weight used to
// estimate hourly consumption when only aggregate readings exist.
type PVPCHour struct {
	TSStart time.Time `json:"tsStart"`
	TEA     float64   `json:"teaEURKWH"`
	TCU     float64   `json:"tcuEURKWH"`
	COF     float64   `json:"cof"`
}

// ConsumptionHour is one hour of metered or estimated consumption.
type ConsumptionHour struct {
	TSStart time.Time `json:"tsStart"`
	KWH     float64   `json:"kWh"`
}

// Consumption is the billing consumption input. Exactly one representation
// is used: PerPeriod (one kWh total per TOU period; a single element is an
// undiscriminated total) or Hourly (a metered series). Both empty means the
// invoice carries no energy term.
type Consumption struct {
	PerPeriod []float64         `json:"perPeriod,omitempty"`
	Hourly    []ConsumptionHour `json:"hourly,omitempty"`
	// HourlyWallClock marks the Hourly timestamps as zone-less wall-clock
	// readings (meter CSV exports) that still need localizing; the billing
	// ambiguous-time policy decides the DST fall-back hour.
	HourlyWallClock bool `json:"hourlyWallClock,omitempty"`
}

// TotalKWH builds a single aggregate consumption input.
func TotalKWH(kwh float64) Consumption {
	return Consumption{PerPeriod: []float64{kwh}}
}

// PerPeriodKWH builds a per-TOU-period consumption input.
func PerPeriodKWH(kwh ...float64) Consumption {
	return Consumption{PerPeriod: kwh}
}

// HourlyKWH builds a consumption input from a metered hourly series.
func HourlyKWH(hours []ConsumptionHour) Consumption {
	return Consumption{Hourly: hours}
}

// IsZero reports whether no consumption was supplied at all.
func (c Consumption) IsZero() bool {
	return len(c.PerPeriod) == 0 && len(c.Hourly) == 0
}

// TotalSupplied returns the sum of the supplied consumption in kWh.
func (c Consumption) TotalSupplied() float64 {
	var total float64
	if len(c.Hourly) > 0 {
		for _, h := range c.Hourly {
			total += h.KWH
		}
		return total
	}
	for _, v := range c.PerPeriod {
		total += v
	}
	return total
}

// BillingParams carries every input of one invoice computation. A change to
// any field means a fresh call to the billing engine; the struct itself is
// plain data and never mutated by the computation.
type BillingParams struct {
	CUPS string `json:"cups"`
	// T0 and TF are local dates (midnight, Europe/Madrid). The day of T0 is
	// excluded from the bill and the day of TF included, per regulation.
	T0 time.Time `json:"t0"`
	TF time.Time `json:"tf"`
	// TariffCode is the access-toll code: 2.0A, 2.0DHA or 2.0DHS.
	TariffCode      string      `json:"tariffCode"`
	ContractedKW    float64     `json:"contractedKW"`
	Consumption     Consumption `json:"consumption"`
	SocialBonus     bool        `json:"socialBonus"`
	TaxZone         string      `json:"taxZone"`
	ElectricityTax  float64     `json:"electricityTax"`
	RentalEUR       *float64    `json:"rentalEUR,omitempty"`
	RentalEURYear   *float64    `json:"rentalEURYear,omitempty"`
	AmbiguousPolicy string      `json:"ambiguousPolicy,omitempty"`
}

// InvoiceSummary is the flattened, rounded view of a computed invoice, with
// the field set of the official breakdown. Stored records and the JSON API
// share this shape.
type InvoiceSummary struct {
	ID            string    `json:"id,omitempty"`
	CUPS          string    `json:"cups"`
	TariffCode    string    `json:"cod_peaje"`
	TariffDesc    string    `json:"desc_peaje"`
	TaxZoneDesc   string    `json:"desc_impuesto"`
	TSStart       string    `json:"ts_ini"`
	TSEnd         string    `json:"ts_fin"`
	BilledDays    int       `json:"dias_fact"`
	ContractedKW  float64   `json:"p_contrato"`
	TotalKWH      float64   `json:"consumo_total"`
	SocialBonus   bool      `json:"con_bono"`
	FixedTerm     float64   `json:"coste_termino_fijo"`
	VariableTerm  float64   `json:"coste_termino_consumo"`
	BonusDiscount float64   `json:"descuento_bono_social"`
	ElectricityTaxPct float64 `json:"impuesto_elec"`
	ElectricityTax float64  `json:"coste_impuesto_elec"`
	MeterRental   float64   `json:"coste_medida"`
	VATRates      []float64 `json:"tipos_iva"`
	VAT           float64   `json:"coste_iva"`
	Total         float64   `json:"total_factura"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
}
