package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLimits() Limits {
	return Limits{
		MinProfitMargin:  50,
		MaxConcentration: 0.8,
		LowConcentration: 0.3,
		MinOrderSize:     100,
		FallbackMaxBuy:   500,
		FallbackFraction: 0.3,
		FallbackOffset:   50,
	}
}

func TestFallback_WaitsBelowProfitThreshold(t *testing.T) {
	t.Parallel()

	// Even an over-concentrated position waits while unprofitable.
	snap := Snapshot{Price: 2900, CostBasis: 2950, AssetShare: 0.95, Holdings: 2}
	d := Fallback(snap, testLimits())

	assert.Equal(t, ActionWait, d.Action)
	assert.InDelta(t, 0.8, d.Confidence, 1e-12)
}

func TestFallback_SellsWhenOverConcentrated(t *testing.T) {
	t.Parallel()

	snap := Snapshot{
		Price:      3000,
		CostBasis:  2000,
		Holdings:   2.0,
		AssetShare: 0.9,
	}
	d := Fallback(snap, testLimits())

	assert.Equal(t, ActionSell, d.Action)
	assert.InDelta(t, 3050.0, d.Parameters.SellPrice, 1e-9)
	assert.InDelta(t, 0.6, d.Parameters.OrderSize, 1e-9)
	assert.Equal(t, LevelMedium, d.Parameters.Urgency)
}

func TestFallback_BuysDipWhenUnderweight(t *testing.T) {
	t.Parallel()

	snap := Snapshot{
		Price:        3000,
		CostBasis:    0,
		QuoteBalance: 1000,
		AssetShare:   0.1,
	}
	d := Fallback(snap, testLimits())

	assert.Equal(t, ActionBuy, d.Action)
	assert.InDelta(t, 2950.0, d.Parameters.BuyPrice, 1e-9)
	assert.InDelta(t, 300.0, d.Parameters.OrderSize, 1e-9)
}

func TestFallback_BuyCappedAtMax(t *testing.T) {
	t.Parallel()

	snap := Snapshot{
		Price:        3000,
		QuoteBalance: 10000,
		AssetShare:   0.1,
	}
	d := Fallback(snap, testLimits())

	assert.Equal(t, ActionBuy, d.Action)
	assert.InDelta(t, 500.0, d.Parameters.OrderSize, 1e-9)
}

func TestFallback_BalancedPortfolioWaits(t *testing.T) {
	t.Parallel()

	snap := Snapshot{Price: 3000, CostBasis: 2000, AssetShare: 0.5}
	d := Fallback(snap, testLimits())

	assert.Equal(t, ActionWait, d.Action)
	assert.InDelta(t, 0.6, d.Confidence, 1e-12)
}
