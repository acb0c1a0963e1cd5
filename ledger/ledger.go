// Package ledger tracks the accumulated position and its weighted-average
// cost basis.
//
// The ledger holds two primary quantities, Holdings (base asset) and
// TotalCost (quote spent to acquire them); CostBasis is always derived as
// TotalCost/Holdings. Sells remove cost at the ledger's average cost, not at
// the trade's execution price; the difference is the realized profit/loss,
// which is reported to the caller but never retained.
package ledger

import (
	"sort"

	"github.com/rustyeddy/cowtrader/market"
)

// positionEpsilon is the holdings level below which a position counts as
// closed. Summing trade amounts in floats leaves residue on a full exit;
// without the cutoff that residue would carry a bogus cost basis forward.
const positionEpsilon = 1e-9

// Ledger is the accumulated position. Holdings never goes negative; CostBasis
// stays consistent with TotalCost/Holdings within floating tolerance.
type Ledger struct {
	Holdings  float64 `json:"holdings"`
	TotalCost float64 `json:"total_cost"`
	CostBasis float64 `json:"cost_basis"`
	LastFill  *Fill   `json:"last_fill,omitempty"`
}

// Apply folds one fill into the ledger and returns the realized profit/loss
// (zero for buys and for sells against an empty position).
func (l *Ledger) Apply(f Fill) float64 {
	var realized float64

	switch f.Side {
	case market.SideBuy:
		l.Holdings += f.AssetAmount
		l.TotalCost += f.QuoteAmount
	case market.SideSell:
		consumed := f.AssetAmount
		if consumed > l.Holdings {
			consumed = l.Holdings
		}
		if l.Holdings > 0 {
			realized = (f.Price - l.CostBasis) * consumed
			l.TotalCost -= consumed * l.CostBasis
			l.Holdings -= consumed
		}
	}

	if l.Holdings > positionEpsilon {
		l.CostBasis = l.TotalCost / l.Holdings
	} else {
		// Position closed: reset exactly so rounding residue cannot leak
		// into the next accumulation round.
		l.Holdings = 0
		l.TotalCost = 0
		l.CostBasis = 0
	}

	fill := f
	l.LastFill = &fill
	return realized
}

// Rebuild replays fills chronologically from an empty ledger. Replaying the
// same fills one at a time through Apply yields an identical result.
func Rebuild(fills []Fill) Ledger {
	sorted := make([]Fill, len(fills))
	copy(sorted, fills)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	var l Ledger
	for _, f := range sorted {
		l.Apply(f)
	}
	return l
}
