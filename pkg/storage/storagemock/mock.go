package storagemock

import (
	"context"
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/storage"
	"github.com/azoguelabs/pvpcbill/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) UpsertPriceHours(ctx context.Context, tariffCode string, hours []types.PVPCHour, version int) error {
	args := m.Called(ctx, tariffCode, hours, version)
	return args.Error(0)
}

func (m *MockDatabase) GetPriceHours(ctx context.Context, tariffCode string, start, end time.Time) ([]types.PVPCHour, error) {
	args := m.Called(ctx, tariffCode, start, end)
	if v := args.Get(0); v != nil {
		return v.([]types.PVPCHour), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) GetLatestPriceTime(ctx context.Context, tariffCode string) (time.Time, int, error) {
	args := m.Called(ctx, tariffCode)
	return args.Get(0).(time.Time), args.Int(1), args.Error(2)
}

func (m *MockDatabase) InsertInvoice(ctx context.Context, inv types.InvoiceSummary) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockDatabase) GetInvoice(ctx context.Context, id string) (types.InvoiceSummary, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(types.InvoiceSummary), args.Error(1)
	}
	return types.InvoiceSummary{}, args.Error(1)
}

func (m *MockDatabase) GetInvoiceHistory(ctx context.Context, cups string, start, end time.Time) ([]types.InvoiceSummary, error) {
	args := m.Called(ctx, cups, start, end)
	if v := args.Get(0); v != nil {
		return v.([]types.InvoiceSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
