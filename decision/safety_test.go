package decision

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafety_RejectsUnprofitableSell(t *testing.T) {
	t.Parallel()

	d := Decision{
		Action:     ActionSell,
		Parameters: Parameters{SellPrice: 2040, OrderSize: 0.5},
	}
	snap := Snapshot{Price: 2040, CostBasis: 2000, TotalValue: 10000, QuoteBalance: 5000}

	got := Safety(d, snap, testLimits())
	assert.Equal(t, ActionWait, got.Action)
	assert.True(t, strings.HasPrefix(got.Reasoning, "Safety: "))
}

func TestSafety_AllowsProfitableSell(t *testing.T) {
	t.Parallel()

	d := Decision{
		Action:     ActionSell,
		Reasoning:  "take profit",
		Parameters: Parameters{SellPrice: 2100, OrderSize: 0.5},
	}
	snap := Snapshot{Price: 2050, CostBasis: 2000, TotalValue: 10000, QuoteBalance: 5000}

	got := Safety(d, snap, testLimits())
	assert.Equal(t, d, got)
}

func TestSafety_RejectsBuyWhenOverConcentrated(t *testing.T) {
	t.Parallel()

	d := Decision{
		Action:     ActionBuy,
		Parameters: Parameters{BuyPrice: 2900, OrderSize: 200},
	}
	snap := Snapshot{Price: 3000, AssetShare: 0.85, TotalValue: 10000}

	got := Safety(d, snap, testLimits())
	assert.Equal(t, ActionWait, got.Action)
}

func TestSafety_RejectsSellPushingQuoteShareOverLimit(t *testing.T) {
	t.Parallel()

	// Selling 1.2 at 3000 would move 3600 into quote: (5000+3600)/10000 = 86%.
	d := Decision{
		Action:     ActionSell,
		Parameters: Parameters{SellPrice: 3100, OrderSize: 1.2},
	}
	snap := Snapshot{Price: 3000, CostBasis: 2000, QuoteBalance: 5000, TotalValue: 10000}

	got := Safety(d, snap, testLimits())
	assert.Equal(t, ActionWait, got.Action)
	assert.Contains(t, got.Reasoning, "quote share")
}

func TestSafety_MinimumNotional(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		d    Decision
		want Action
	}{
		{
			"buy below minimum",
			Decision{Action: ActionBuy, Parameters: Parameters{BuyPrice: 2900, OrderSize: 50}},
			ActionWait,
		},
		{
			"buy at minimum",
			Decision{Action: ActionBuy, Parameters: Parameters{BuyPrice: 2900, OrderSize: 100}},
			ActionBuy,
		},
		{
			"sell notional below minimum",
			Decision{Action: ActionSell, Parameters: Parameters{SellPrice: 3100, OrderSize: 0.01}},
			ActionWait,
		},
		{
			"sell notional above minimum",
			Decision{Action: ActionSell, Parameters: Parameters{SellPrice: 3100, OrderSize: 0.5}},
			ActionSell,
		},
	}

	snap := Snapshot{Price: 3000, CostBasis: 2000, QuoteBalance: 2000, TotalValue: 10000, AssetShare: 0.5}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Safety(tt.d, snap, testLimits())
			assert.Equal(t, tt.want, got.Action)
		})
	}
}

func TestSafety_WaitAndCancelPassThrough(t *testing.T) {
	t.Parallel()

	snap := Snapshot{Price: 3000, CostBasis: 2000, TotalValue: 10000}
	wait := Decision{Action: ActionWait, Reasoning: "calm"}
	cancel := Decision{Action: ActionCancelOrders, Reasoning: "reset"}

	assert.Equal(t, wait, Safety(wait, snap, testLimits()))
	assert.Equal(t, cancel, Safety(cancel, snap, testLimits()))
}
