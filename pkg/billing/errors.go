// Package billing computes Spanish residential PVPC electricity invoices:
// the fixed power term, the energy term priced hour by hour, the social
// bonus discount, the electricity excise tax, the meter rental and the
// regional VAT equivalent, with cent rounding at the regulated boundaries.
package billing

import (
	"fmt"

	"github.com/azoguelabs/pvpcbill/pkg/profile"
	"github.com/azoguelabs/pvpcbill/pkg/pvpc"
	"github.com/azoguelabs/pvpcbill/pkg/tariff"
)

// ErrInvalidInput reports billing parameters that cannot produce an
// invoice: an empty or inverted date range, a negative contracted power,
// conflicting consumption representations, or a span over more than two
// calendar years.
var ErrInvalidInput = fmt.Errorf("invalid billing input")

// Re-exported sentinels so callers can match every billing failure mode
// against this package alone.
var (
	ErrUnknownTariff      = tariff.ErrUnknown
	ErrPartitionViolation = tariff.ErrPartition
	ErrDataGap            = pvpc.ErrDataGap
	ErrAmbiguousLocalTime = profile.ErrAmbiguousLocalTime
)
