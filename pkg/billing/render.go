package billing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

func lineTotal(line string, total float64) string {
	return fmt.Sprintf("%-70s %.2f €", line, total)
}

// formatRate prints a percentage with its full precision, no trailing
// zeros.
func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// JSON returns the invoice summary as indented JSON.
func (inv *Invoice) JSON() ([]byte, error) {
	return json.MarshalIndent(inv.Summary(), "", "  ")
}

// Text renders the invoice as the fixed-layout plain-text bill.
func (inv *Invoice) Text() string {
	var b strings.Builder

	rule := strings.Repeat("-", 80)
	hashes := strings.Repeat("#", 80)

	socialBonus := "No"
	if inv.params.SocialBonus {
		socialBonus = "Sí"
	}

	b.WriteString("FACTURA ELÉCTRICA:\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "* Fecha inicio             \t%s\n", inv.params.T0.Format("02/01/2006"))
	fmt.Fprintf(&b, "* Fecha final              \t%s\n", inv.params.TF.Format("02/01/2006"))
	fmt.Fprintf(&b, "* Peaje de acceso          \t%s (%s)\n", inv.class.Code, inv.class.Name)
	fmt.Fprintf(&b, "* Potencia contratada      \t%.2f kW\n", inv.params.ContractedKW)
	fmt.Fprintf(&b, "* Consumo periodo          \t%.2f kWh\n", inv.TotalConsumptionKWH())
	fmt.Fprintf(&b, "* ¿Bono Social?            \t%s\n", socialBonus)
	fmt.Fprintf(&b, "* Equipo de medida         \t%.2f €\n", inv.rental)
	fmt.Fprintf(&b, "* Impuestos                \t%s\n", inv.zone.Name)
	fmt.Fprintf(&b, "* Días facturables         \t%d\n", inv.billedDays)
	b.WriteString(rule + "\n\n")

	b.WriteString("- CÁLCULO DEL TÉRMINO FIJO POR POTENCIA CONTRATADA:\n")
	fmt.Fprintf(&b, "  %s\n", strings.Join(inv.fixedDetailLines(), "\n  "))
	b.WriteString(lineTotal("     -> Término fijo", inv.fixedTotal) + "\n\n")

	fmt.Fprintf(&b, "- CÁLCULO DEL TÉRMINO VARIABLE POR ENERGÍA CONSUMIDA (TARIFA %s):\n", inv.class.Code)
	fmt.Fprintf(&b, "  %s\n", strings.Join(inv.variableDetailLines(), "\n  "))
	b.WriteString(lineTotal("     -> Término de consumo", inv.variableTotal))

	b.WriteString("\n")
	if inv.params.SocialBonus {
		b.WriteString("\n" + lineTotal("- DESCUENTO POR BONO SOCIAL:", inv.bonus) + "\n")
	}
	b.WriteString("\n")

	subtotal := inv.fixedTotal + inv.variableTotal + inv.bonus
	b.WriteString("- IMPUESTO ELÉCTRICO:\n")
	b.WriteString(lineTotal(fmt.Sprintf("    %s%% x (%.2f€ + %.2f€)",
		formatRate(inv.params.ElectricityTax*100), inv.fixedTotal, inv.variableTotal), inv.excise) + "\n\n")

	b.WriteString(lineTotal("- EQUIPO DE MEDIDA:", inv.rental) + "\n\n")

	subtotal += inv.excise
	b.WriteString("- IVA O EQUIVALENTE:\n")
	var vatDetail string
	if inv.zone.GeneralRate != inv.zone.MeterRate {
		vatDetail = fmt.Sprintf("    %.0f%% de %.2f€ + %.0f%% de %.2f€",
			inv.zone.GeneralRate*100, subtotal, inv.zone.MeterRate*100, inv.rental)
	} else {
		vatDetail = fmt.Sprintf("    %.0f%% de %.2f€", inv.zone.GeneralRate*100, subtotal+inv.rental)
	}
	b.WriteString(lineTotal(vatDetail, inv.vat) + "\n\n")

	b.WriteString(hashes + "\n")
	b.WriteString(lineTotal("# TOTAL FACTURA", inv.total) + "\n")
	b.WriteString(hashes + "\n")

	return b.String()
}

func (inv *Invoice) fixedDetailLines() []string {
	lines := make([]string, len(inv.details))
	for i, d := range inv.details {
		lines[i] = fmt.Sprintf("  %.2f kW * %s €/kW/año * %d días (%d) / %d = %.2f €",
			inv.params.ContractedKW, formatRate(d.FixedCoef),
			d.Segment.Days, d.Segment.Year, d.Segment.DaysInYear, d.FixedCost)
	}
	return lines
}

func (inv *Invoice) variableDetailLines() []string {
	if inv.TotalConsumptionKWH() <= 0 {
		return []string{""}
	}

	var lines []string
	multi := len(inv.details) > 1
	for i, d := range inv.details {
		if multi {
			start, end := inv.params.T0, d.Segment.End
			if i > 0 {
				start, end = d.Segment.Start.AddDate(0, 0, 1), inv.params.TF
			}
			lines = append(lines, fmt.Sprintf(" *Tramo %d, de %s a %s:",
				i+1, start.Format("02/01/2006"), end.Format("02/01/2006")))
		}
		for _, pc := range d.Periods {
			if pc.KWH <= 0 {
				continue
			}
			cost := pc.TEA + pc.TCU
			lines = append(lines, fmt.Sprintf(
				"  Periodo %d: %.6f €/kWh                          -> %.2f€(P%d)\n"+
					"    - Peaje de acceso: %.0fkWh * %.6f€/kWh = %.2f€\n"+
					"    - Coste de la energía: %.0fkWh * %.6f€/kWh = %.2f€",
				int(pc.Period), cost/pc.KWH, cost, int(pc.Period),
				pc.KWH, pc.TEA/pc.KWH, pc.TEA,
				pc.KWH, pc.TCU/pc.KWH, pc.TCU))
		}
	}
	return lines
}
