package storage

import (
	"context"
	"errors"
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// noneDatabase discards writes and returns empty reads. It is used when
// persistence is disabled.
type noneDatabase struct{}

var _ Database = noneDatabase{}

func (noneDatabase) UpsertPriceHours(context.Context, string, []types.PVPCHour, int) error {
	return nil
}

func (noneDatabase) GetPriceHours(context.Context, string, time.Time, time.Time) ([]types.PVPCHour, error) {
	return nil, nil
}

func (noneDatabase) GetLatestPriceTime(context.Context, string) (time.Time, int, error) {
	return time.Time{}, 0, nil
}

func (noneDatabase) InsertInvoice(context.Context, types.InvoiceSummary) error {
	return nil
}

func (noneDatabase) GetInvoice(context.Context, string) (types.InvoiceSummary, error) {
	return types.InvoiceSummary{}, ErrNotFound
}

func (noneDatabase) GetInvoiceHistory(context.Context, string, time.Time, time.Time) ([]types.InvoiceSummary, error) {
	return nil, nil
}

func (noneDatabase) Close() error { return nil }
