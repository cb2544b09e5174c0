// Package tariff models the regulated Spanish low-voltage access tolls
// (≤1kV, ≤10kW): the three 2.0* tariff classes, their per-year toll
// coefficients, the tax zones, and the calendar/TOU arithmetic the PVPC
// billing engine runs on.
//
// Coefficient sources: IDAE regulated tariff sheets for 2015/2016 and the
// matching BOE resolutions for 2014/2017.
package tariff

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Toll codes for the three supported low-power tariff classes.
const (
	CodeGEN = "2.0A"   // general, no time discrimination
	CodeNOC = "2.0DHA" // two periods, DST-dependent boundaries
	CodeVHC = "2.0DHS" // electric vehicle, three fixed periods
)

// PowerMarginEURKWYear is the regulated marketing margin added to the
// yearly power toll (€/kW/year).
const PowerMarginEURKWYear = 4.0

// Madrid is the billing timezone: PVPC data, profile coefficients and TOU
// boundaries are all defined in Spanish local time.
var Madrid = func() *time.Location {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		panic(fmt.Errorf("failed to load Europe/Madrid location: %w", err))
	}
	return loc
}()

// ErrUnknown is returned when a tariff identifier is not one of the three
// recognized classes.
var ErrUnknown = fmt.Errorf("unknown tariff (valid: 1|2|3, GEN|NOC|VHC, %s|%s|%s)", CodeGEN, CodeNOC, CodeVHC)

// Class describes one tariff class.
type Class struct {
	Code    string `json:"code"`      // toll code (2.0A...)
	Short   string `json:"short"`     // GEN, NOC or VHC
	Name    string `json:"name"`      // human description
	Periods int    `json:"touPeriods"` // number of TOU periods
}

var classes = []Class{
	{Code: CodeGEN, Short: "GEN", Name: "General", Periods: 1},
	{Code: CodeNOC, Short: "NOC", Name: "Nocturna", Periods: 2},
	{Code: CodeVHC, Short: "VHC", Name: "Vehículo eléctrico", Periods: 3},
}

// Classes returns the supported tariff classes in regulation order.
func Classes() []Class {
	out := make([]Class, len(classes))
	copy(out, classes)
	return out
}

// Parse resolves a tariff identifier: a 1-based index ("1".."3"), a short
// code (GEN/NOC/VHC) or a toll code (2.0A/2.0DHA/2.0DHS).
func Parse(id string) (Class, error) {
	id = strings.TrimSpace(id)
	if n, err := strconv.Atoi(id); err == nil {
		if n < 1 || n > len(classes) {
			return Class{}, fmt.Errorf("tariff index %d: %w", n, ErrUnknown)
		}
		return classes[n-1], nil
	}
	for _, c := range classes {
		if strings.EqualFold(id, c.Code) || strings.EqualFold(id, c.Short) {
			return c, nil
		}
	}
	return Class{}, fmt.Errorf("tariff %q: %w", id, ErrUnknown)
}

// Power access toll (€/kW/year) per calendar year, before the marketing
// margin.
var powerTollEURKWYear = map[int]float64{
	2014: 35.648148,
	2015: 38.043426,
	2016: 38.043426,
	2017: 37.156426,
}

// Energy access toll (€/kWh) per calendar year and tariff class, one
// coefficient per TOU period (P1 first).
var energyTollEURKWH = map[int]map[string][]float64{
	2014: {
		CodeGEN: {0.044027},
		CodeNOC: {0.062012, 0.002215},
		CodeVHC: {0.074568, 0.017809, 0.006596},
	},
	2015: {
		CodeGEN: {0.044027},
		CodeNOC: {0.062012, 0.002215},
		CodeVHC: {0.074568, 0.017809, 0.006596},
	},
	2016: {
		CodeGEN: {0.044027},
		CodeNOC: {0.062012, 0.002215},
		CodeVHC: {0.062012, 0.002879, 0.000886},
	},
	2017: {
		CodeGEN: {0.044027},
		CodeNOC: {0.062012, 0.002215},
		CodeVHC: {0.062012, 0.002879, 0.000886},
	},
}

// PowerCoefficient returns the fixed-term coefficient for a calendar year:
// marketing margin plus the year's power access toll, in €/kW/year.
func PowerCoefficient(year int) (float64, error) {
	toll, ok := powerTollEURKWYear[year]
	if !ok {
		return 0, fmt.Errorf("no power toll published for year %d", year)
	}
	return PowerMarginEURKWYear + toll, nil
}

// EnergyCoefficients returns the per-period energy access tolls (€/kWh) for
// a tariff class in a calendar year, ordered P1..Pn.
func (c Class) EnergyCoefficients(year int) ([]float64, error) {
	byClass, ok := energyTollEURKWH[year]
	if !ok {
		return nil, fmt.Errorf("no energy tolls published for year %d", year)
	}
	coefs, ok := byClass[c.Code]
	if !ok {
		return nil, fmt.Errorf("tariff %q: %w", c.Code, ErrUnknown)
	}
	out := make([]float64, len(coefs))
	copy(out, coefs)
	return out, nil
}

// Zone identifies a VAT-equivalent tax regime.
type Zone struct {
	Code      string  `json:"code"` // IVA, IGIC or IPSI
	Name      string  `json:"name"`
	GeneralRate float64 `json:"generalRate"` // applied to energy subtotal
	MeterRate   float64 `json:"meterRate"`   // applied to equipment rental
}

// Tax zone codes.
const (
	ZoneIVA  = "IVA"  // Península y Baleares
	ZoneIGIC = "IGIC" // Canarias
	ZoneIPSI = "IPSI" // Ceuta y Melilla
)

var zones = []Zone{
	{Code: ZoneIVA, Name: "Península y Baleares (IVA)", GeneralRate: 0.21, MeterRate: 0.21},
	{Code: ZoneIGIC, Name: "Canarias (IGIC)", GeneralRate: 0.03, MeterRate: 0.07},
	{Code: ZoneIPSI, Name: "Ceuta y Melilla (IPSI)", GeneralRate: 0.01, MeterRate: 0.04},
}

// Zones returns the supported tax zones.
func Zones() []Zone {
	out := make([]Zone, len(zones))
	copy(out, zones)
	return out
}

// ParseZone resolves a tax zone code.
func ParseZone(code string) (Zone, error) {
	for _, z := range zones {
		if strings.EqualFold(code, z.Code) {
			return z, nil
		}
	}
	return Zone{}, fmt.Errorf("unknown tax zone %q (valid: %s|%s|%s)", code, ZoneIVA, ZoneIGIC, ZoneIPSI)
}
