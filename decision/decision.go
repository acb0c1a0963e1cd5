// Package decision turns a market snapshot into a recommended action.
//
// A ranked list of AI backends is consulted with round-robin failover; every
// response is validated against a strict schema, and a deterministic rule set
// takes over when all backends fail. The safety filter is the last word: it
// downgrades any recommendation that violates the hard trading constraints
// to WAIT.
package decision

import "fmt"

// Action is the allowed decision vocabulary.
type Action string

const (
	ActionWait         Action = "WAIT"
	ActionBuy          Action = "BUY"
	ActionSell         Action = "SELL"
	ActionCancelOrders Action = "CANCEL_ORDERS"
)

// Level grades urgency and risk.
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// Parameters carries the actionable numbers of a decision. OrderSize is
// quote-denominated for buys and asset-denominated for sells.
type Parameters struct {
	BuyPrice  float64 `json:"buyPrice,omitempty"`
	SellPrice float64 `json:"sellPrice,omitempty"`
	OrderSize float64 `json:"orderSize,omitempty"`
	Urgency   Level   `json:"urgency,omitempty"`
}

// Decision is one recommended action with its rationale.
type Decision struct {
	Action     Action     `json:"action"`
	Reasoning  string     `json:"reasoning"`
	Confidence float64    `json:"confidence"`
	Parameters Parameters `json:"parameters"`
	RiskLevel  Level      `json:"riskLevel"`
}

// Validate checks the decision against the allowed vocabulary and clamps
// confidence into [0,1].
func (d *Decision) Validate() error {
	switch d.Action {
	case ActionWait, ActionBuy, ActionSell, ActionCancelOrders:
	default:
		return fmt.Errorf("invalid action %q", d.Action)
	}
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 1 {
		d.Confidence = 1
	}
	return nil
}

// Snapshot is the context a decision is made against. All prices and values
// are quote-denominated.
type Snapshot struct {
	Price         float64   `json:"currentPrice"`
	CostBasis     float64   `json:"costBasis"`
	Holdings      float64   `json:"holdings"`
	QuoteBalance  float64   `json:"quoteBalance"`
	TotalValue    float64   `json:"totalValue"`
	AssetShare    float64   `json:"assetShare"`
	RecentPrices  []float64 `json:"recentPrices"`
	HighWatermark *float64  `json:"highWatermark,omitempty"`
	LowWatermark  *float64  `json:"lowWatermark,omitempty"`
	OpenOrders    int       `json:"openOrders"`
}

// Limits are the hard trading constraints the safety filter and fallback
// rules enforce.
type Limits struct {
	MinProfitMargin  float64
	MaxConcentration float64
	LowConcentration float64
	MinOrderSize     float64
	FallbackMaxBuy   float64
	FallbackFraction float64
	FallbackOffset   float64
}
