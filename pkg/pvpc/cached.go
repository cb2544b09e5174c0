package pvpc

import (
	"context"
	"log/slog"
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/log"
	"github.com/azoguelabs/pvpcbill/pkg/storage"
	"github.com/azoguelabs/pvpcbill/pkg/tariff"
	"github.com/azoguelabs/pvpcbill/pkg/types"
)

// Cached wraps a Provider with a storage-backed price cache. Reads are
// served from storage when the stored series already covers the interval;
// otherwise the wrapped provider is queried and the result written back.
// Write-back failures are logged, never fatal: the fetched series is still
// returned.
type Cached struct {
	base Provider
	db   storage.Database
}

var _ Provider = (*Cached)(nil)

// NewCached builds a caching provider on top of base.
func NewCached(base Provider, db storage.Database) *Cached {
	return &Cached{base: base, db: db}
}

// GetHourlyPrices implements Provider.
func (c *Cached) GetHourlyPrices(ctx context.Context, class tariff.Class, start, end time.Time) ([]types.PVPCHour, error) {
	stored, err := c.db.GetPriceHours(ctx, class.Code, start, end)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to read cached prices",
			slog.String("tariffCode", class.Code), slog.Any("err", err))
	} else if ValidateSeries(stored, start, end) == nil {
		return stored, nil
	}

	hours, err := c.base.GetHourlyPrices(ctx, class, start, end)
	if err != nil {
		return nil, err
	}

	if err := c.db.UpsertPriceHours(ctx, class.Code, hours, types.CurrentPriceSeriesVersion); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to write back fetched prices",
			slog.String("tariffCode", class.Code), slog.Any("err", err))
	}
	return hours, nil
}

// Refresh fetches prices from the wrapped provider for every hour between
// the latest stored record and now, and persists them. It is meant for a
// periodic job keeping the cache warm.
func (c *Cached) Refresh(ctx context.Context, class tariff.Class, now time.Time) error {
	latest, _, err := c.db.GetLatestPriceTime(ctx, class.Code)
	if err != nil {
		return err
	}

	end := now.In(tariff.Madrid).Truncate(time.Hour)
	var start time.Time
	if latest.IsZero() {
		// Nothing stored yet, backfill the last 30 days.
		start = end.Add(-30 * 24 * time.Hour)
	} else {
		start = latest.In(tariff.Madrid).Add(time.Hour)
	}
	if !start.Before(end) {
		return nil
	}

	hours, err := c.base.GetHourlyPrices(ctx, class, start, end)
	if err != nil {
		return err
	}
	if err := c.db.UpsertPriceHours(ctx, class.Code, hours, types.CurrentPriceSeriesVersion); err != nil {
		return err
	}
	log.Ctx(ctx).InfoContext(ctx, "refreshed price cache",
		slog.String("tariffCode", class.Code),
		slog.Time("start", start), slog.Time("end", end),
		slog.Int("hours", len(hours)))
	return nil
}
