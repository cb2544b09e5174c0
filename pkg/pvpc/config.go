package pvpc

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/azoguelabs/pvpcbill/pkg/storage"
	"github.com/azoguelabs/pvpcbill/pkg/tariff"
	"github.com/levenlabs/go-lflag"
)

// Configured sets up the price provider based on flags, backed by the
// given storage for caching. The fixed provider is offline and skips the
// cache entirely.
func Configured(db storage.Database) Provider {
	name := lflag.String("price-provider", "esios", "Price provider to use (available: esios, fixed)")
	fixedTCU := lflag.String("fixed-tcu", "0.1", "Flat energy cost (€/kWh) for the fixed provider")

	var p struct {
		Provider
		Refresher
	}

	es := configuredEsios()

	lflag.Do(func() {
		switch *name {
		case "esios":
			cached := NewCached(es, db)
			if err := es.Validate(); err != nil {
				panic(fmt.Sprintf("esios validation failed: %v", err))
			}
			p.Provider = cached
			p.Refresher = cached
		case "fixed":
			tcu, err := strconv.ParseFloat(*fixedTCU, 64)
			if err != nil {
				panic(fmt.Sprintf("invalid fixed-tcu: %v", err))
			}
			p.Provider = &Fixed{TCUEURKWH: tcu, COF: 1}
			p.Refresher = nopRefresher{}
		default:
			panic(fmt.Sprintf("unknown price provider: %s", *name))
		}
	})

	return &p
}

type nopRefresher struct{}

func (nopRefresher) Refresh(context.Context, tariff.Class, time.Time) error { return nil }
