// Command factura computes a single PVPC invoice from the command line and
// prints or exports it.
//
// Run offline with flat synthetic prices:
//
//	factura -storage-provider=none -price-provider=fixed \
//	    -t0 2016-11-01 -tf 2016-12-09 -tariff NOC -consumption 219,280
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/billing"
	"github.com/azoguelabs/pvpcbill/pkg/log"
	"github.com/azoguelabs/pvpcbill/pkg/pvpc"
	"github.com/azoguelabs/pvpcbill/pkg/storage"
	"github.com/azoguelabs/pvpcbill/pkg/tariff"
	"github.com/azoguelabs/pvpcbill/pkg/types"

	"github.com/levenlabs/go-lflag"
)

func main() {
	db := storage.Configured()
	provider := pvpc.Configured(db)

	t0Str := lflag.RequiredString("t0", "Billing interval start date (YYYY-MM-DD, excluded day)")
	tfStr := lflag.RequiredString("tf", "Billing interval end date (YYYY-MM-DD, included day)")
	tariffID := lflag.String("tariff", "GEN", "Tariff: 1|2|3, GEN|NOC|VHC or 2.0A|2.0DHA|2.0DHS")
	zone := lflag.String("zone", tariff.ZoneIVA, "Tax zone: IVA|IGIC|IPSI")
	cups := lflag.String("cups", "", "CUPS of the supply point")
	powerStr := lflag.String("power", "", "Contracted power in kW")
	consumptionStr := lflag.String("consumption", "", "Consumption in kWh, one value per TOU period, comma-separated")
	bonus := lflag.Bool("social-bonus", false, "Apply the social bonus discount")
	rentalStr := lflag.String("rental", "", "Meter rental for the interval in € (overrides the yearly default)")
	format := lflag.String("format", "text", "Output format: text|json|csv|xlsx|pdf")
	output := lflag.String("output", "", "Output file; stdout when empty")

	lflag.Configure()

	ctx := context.Background()
	defer db.Close()

	params, err := buildParams(*t0Str, *tfStr, *tariffID, *zone, *cups, *powerStr, *consumptionStr, *rentalStr, *bonus)
	if err != nil {
		log.Ctx(ctx).Error("invalid arguments", slog.Any("error", err))
		os.Exit(2)
	}

	inv, err := billing.Compute(ctx, params, provider)
	if err != nil {
		log.Ctx(ctx).Error("failed to compute invoice", slog.Any("error", err))
		os.Exit(1)
	}

	if err := render(inv, *format, *output); err != nil {
		log.Ctx(ctx).Error("failed to write output", slog.Any("error", err))
		os.Exit(1)
	}
}

func buildParams(t0Str, tfStr, tariffID, zone, cups, powerStr, consumptionStr, rentalStr string, bonus bool) (types.BillingParams, error) {
	var params types.BillingParams

	t0, err := time.ParseInLocation("2006-01-02", t0Str, tariff.Madrid)
	if err != nil {
		return params, fmt.Errorf("invalid t0: %w", err)
	}
	tf, err := time.ParseInLocation("2006-01-02", tfStr, tariff.Madrid)
	if err != nil {
		return params, fmt.Errorf("invalid tf: %w", err)
	}

	params = types.BillingParams{
		CUPS:        cups,
		T0:          t0,
		TF:          tf,
		TariffCode:  tariffID,
		TaxZone:     zone,
		SocialBonus: bonus,
	}
	if powerStr != "" {
		params.ContractedKW, err = strconv.ParseFloat(powerStr, 64)
		if err != nil {
			return params, fmt.Errorf("invalid power: %w", err)
		}
	}
	if consumptionStr != "" {
		var perPeriod []float64
		for _, part := range strings.Split(consumptionStr, ",") {
			kwh, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return params, fmt.Errorf("invalid consumption %q: %w", part, err)
			}
			perPeriod = append(perPeriod, kwh)
		}
		params.Consumption = types.PerPeriodKWH(perPeriod...)
	}
	if rentalStr != "" {
		rental, err := strconv.ParseFloat(rentalStr, 64)
		if err != nil {
			return params, fmt.Errorf("invalid rental: %w", err)
		}
		params.RentalEUR = &rental
	}
	return params, nil
}

func render(inv *billing.Invoice, format, output string) error {
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "text":
		_, err := io.WriteString(w, inv.Text())
		return err
	case "json":
		b, err := inv.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", b)
		return err
	case "csv":
		return inv.WriteCSV(w)
	case "xlsx":
		return inv.WriteXLSX(w)
	case "pdf":
		return inv.WritePDF(w)
	default:
		return fmt.Errorf("unknown format %q (valid: text|json|csv|xlsx|pdf)", format)
	}
}
