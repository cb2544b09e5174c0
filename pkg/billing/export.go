package billing

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// decimalComma formats a float with the distributor's comma decimal mark.
func decimalComma(v float64, decimals int) string {
	return strings.Replace(fmt.Sprintf("%.*f", decimals, v), ".", ",", 1)
}

// CSVFilename names the consumption export after the billed interval.
func (inv *Invoice) CSVFilename() string {
	return fmt.Sprintf("consumo_%s_to_%s.csv",
		inv.params.T0.Format("2006_01_02"), inv.params.TF.Format("2006_01_02"))
}

// WriteCSV writes the hourly consumption in the de facto distributor
// format, importable by the CNMC bill simulator:
//
//	CUPS;Fecha;Hora;Consumo_kWh;Metodo_obtencion
//	ES00XXXXXXXXXXXXXXDB;06/09/2015;1;0,267;R
//
// Hora is 1-based (hour 1 covers 00:00-01:00) and Consumo_kWh uses a
// comma decimal mark with 3 decimals. Metodo_obtencion R marks real
// (metered or estimated) readings.
func (inv *Invoice) WriteCSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("CUPS;Fecha;Hora;Consumo_kWh;Metodo_obtencion\n"); err != nil {
		return err
	}
	for _, h := range inv.hourly {
		_, err := fmt.Fprintf(bw, "%s;%s;%d;%s;R\n",
			inv.params.CUPS, h.TSStart.Format("02/01/2006"), h.TSStart.Hour()+1, decimalComma(h.KWH, 3))
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteXLSX writes a workbook with the invoice summary and the hourly
// consumption table.
func (inv *Invoice) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	summarySheet := "factura"
	hoursSheet := "consumo"
	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(hoursSheet); err != nil {
		return err
	}

	s := inv.Summary()
	rows := [][2]interface{}{
		{"CUPS", s.CUPS},
		{"Peaje de acceso", fmt.Sprintf("%s (%s)", s.TariffCode, s.TariffDesc)},
		{"Fecha inicio", s.TSStart},
		{"Fecha final", s.TSEnd},
		{"Días facturables", s.BilledDays},
		{"Potencia contratada (kW)", s.ContractedKW},
		{"Consumo total (kWh)", s.TotalKWH},
		{"Término fijo (€)", s.FixedTerm},
		{"Término de consumo (€)", s.VariableTerm},
		{"Descuento bono social (€)", s.BonusDiscount},
		{"Impuesto eléctrico (€)", s.ElectricityTax},
		{"Equipo de medida (€)", s.MeterRental},
		{"IVA o equivalente (€)", s.VAT},
		{"TOTAL (€)", s.Total},
	}
	_ = f.SetCellValue(summarySheet, "A1", "Factura eléctrica PVPC")
	for i, r := range rows {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+3), r[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+3), r[1])
	}

	_ = f.SetCellValue(hoursSheet, "A1", "Fecha")
	_ = f.SetCellValue(hoursSheet, "B1", "Hora")
	_ = f.SetCellValue(hoursSheet, "C1", "Consumo_kWh")
	for i, h := range inv.hourly {
		row := i + 2
		_ = f.SetCellValue(hoursSheet, fmt.Sprintf("A%d", row), h.TSStart.Format("02/01/2006"))
		_ = f.SetCellValue(hoursSheet, fmt.Sprintf("B%d", row), h.TSStart.Hour()+1)
		_ = f.SetCellValue(hoursSheet, fmt.Sprintf("C%d", row), h.KWH)
	}

	return f.Write(w)
}

// WritePDF renders the invoice breakdown as a one-page PDF.
func (inv *Invoice) WritePDF(w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, tr("Factura eléctrica PVPC"))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)

	s := inv.Summary()
	field := func(label, value string) {
		pdf.Cell(0, 6, tr(fmt.Sprintf("%s: %s", label, value)))
		pdf.Ln(5)
	}
	field("CUPS", s.CUPS)
	field("Peaje de acceso", fmt.Sprintf("%s (%s)", s.TariffCode, s.TariffDesc))
	field("Periodo", fmt.Sprintf("%s a %s (%d días)", s.TSStart, s.TSEnd, s.BilledDays))
	field("Potencia contratada", fmt.Sprintf("%.2f kW", s.ContractedKW))
	field("Consumo total", fmt.Sprintf("%.2f kWh", s.TotalKWH))
	field("Impuestos", s.TaxZoneDesc)
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 6, tr("Concepto"), "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, tr("Importe (€)"), "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	amount := func(label string, v float64) {
		pdf.CellFormat(90, 6, tr(label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", v), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	amount("Término fijo", s.FixedTerm)
	amount("Término de consumo", s.VariableTerm)
	if inv.params.SocialBonus {
		amount("Descuento bono social", s.BonusDiscount)
	}
	amount(fmt.Sprintf("Impuesto eléctrico (%s%%)", formatRate(s.ElectricityTaxPct)), s.ElectricityTax)
	amount("Equipo de medida", s.MeterRental)
	amount("IVA o equivalente", s.VAT)
	pdf.SetFont("Arial", "B", 10)
	amount("TOTAL FACTURA", s.Total)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
