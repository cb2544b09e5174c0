package storage

import (
	"context"
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/types"
)

// Database defines the interface for persisting hourly price series and
// computed invoices.
type Database interface {
	// Prices
	// UpsertPriceHours adds or updates hourly price records for a tariff.
	UpsertPriceHours(ctx context.Context, tariffCode string, hours []types.PVPCHour, version int) error
	GetPriceHours(ctx context.Context, tariffCode string, start, end time.Time) ([]types.PVPCHour, error)
	GetLatestPriceTime(ctx context.Context, tariffCode string) (time.Time, int, error)

	// Invoices
	InsertInvoice(ctx context.Context, inv types.InvoiceSummary) error
	GetInvoice(ctx context.Context, id string) (types.InvoiceSummary, error)
	GetInvoiceHistory(ctx context.Context, cups string, start, end time.Time) ([]types.InvoiceSummary, error)

	// Lifecycle
	Close() error
}
