// Package impact scores a downtime record: it resolves the productivity
// factor for (site, client, shift count) from the reference matrix and
// derives the productivity-loss percentage from the record's duration.
package impact

import (
	"errors"
	"fmt"
	"math"

	"downtime-tracker-backend/internal/model"
)

// ErrMissingFactor is returned when no matrix entry matches the record and
// no wildcard fallback applies. Impact is never silently defaulted to zero.
var ErrMissingFactor = errors.New("no productivity factor configured")

// Key identifies one productivity matrix row.
type Key struct {
	Site       string
	Client     string
	ShiftCount int
}

// Matrix is an immutable lookup snapshot of the productivity matrix,
// fetched per transaction.
type Matrix map[Key]float64

// NewMatrix builds a lookup snapshot from stored matrix rows. Rows with a
// non-positive factor are unusable and skipped.
func NewMatrix(entries []model.ProductivityMatrixEntry) Matrix {
	m := make(Matrix, len(entries))
	for _, e := range entries {
		if e.Factor <= 0 {
			continue
		}
		m[Key{Site: e.Site, Client: e.Client, ShiftCount: e.ShiftCount}] = e.Factor
	}
	return m
}

// lookupChain is the ordered list of fallback strategies: exact match,
// then wildcard client, then wildcard shift count. New tiers slot in here
// without touching call sites.
var lookupChain = []func(site, client string, shifts int) Key{
	func(site, client string, shifts int) Key {
		return Key{Site: site, Client: client, ShiftCount: shifts}
	},
	func(site, client string, shifts int) Key {
		return Key{Site: site, Client: model.MatrixWildcardClient, ShiftCount: shifts}
	},
	func(site, client string, shifts int) Key {
		return Key{Site: site, Client: client, ShiftCount: model.MatrixWildcardShiftCount}
	},
}

// Factor resolves the productivity factor for a record, walking the
// fallback chain in priority order.
func (m Matrix) Factor(site, client string, shifts int) (float64, error) {
	for _, keyFor := range lookupChain {
		if f, ok := m[keyFor(site, client, shifts)]; ok {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w for site=%q client=%q shift_count=%d", ErrMissingFactor, site, client, shifts)
}

// Calculator computes impact percentages against a fixed reference period.
type Calculator struct {
	// ReferencePeriodHours is the nominal production period length the
	// loss is measured against.
	ReferencePeriodHours float64
}

// Compute returns the impact percentage for a scored duration:
//
//	(duration / reference period) × factor × 100
//
// rounded half-up to two decimals, once, at the end. Intermediate terms
// are never rounded, so summed impacts are reproducible.
func (c Calculator) Compute(m Matrix, site, client string, shifts int, durationHours float64) (float64, error) {
	factor, err := m.Factor(site, client, shifts)
	if err != nil {
		return 0, err
	}
	pct := durationHours / c.ReferencePeriodHours * factor * 100
	return roundHalfUp2(pct), nil
}

// roundHalfUp2 rounds a non-negative value half-up to two decimals.
func roundHalfUp2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
