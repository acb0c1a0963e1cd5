// journal/journal.go
package journal

import (
	"time"

	"github.com/rustyeddy/cowtrader/ledger"
)

// FillRecord is one reconciled fill as written to the journal.
type FillRecord struct {
	TradeID     string
	Pair        string
	Side        string
	AssetAmount float64
	QuoteAmount float64
	Price       float64
	RealizedPL  float64
	Time        time.Time
}

// DecisionRecord is one decision outcome per cycle. Source names the backend
// that produced the decision, or "fallback"/"safety" when rules rewrote it.
type DecisionRecord struct {
	ID         string
	Time       time.Time
	Action     string
	Source     string
	Reasoning  string
	Confidence float64
	RiskLevel  string
	Price      float64
	CostBasis  float64
}

// Journal records fills and decisions for later analysis.
type Journal interface {
	RecordFill(FillRecord) error
	RecordDecision(DecisionRecord) error
	Close() error
}

// FillFromEvent builds a journal record from a reconciled fill event.
func FillFromEvent(ev ledger.FillEvent, pair string) FillRecord {
	return FillRecord{
		TradeID:     ev.Fill.TradeID,
		Pair:        pair,
		Side:        string(ev.Fill.Side),
		AssetAmount: ev.Fill.AssetAmount,
		QuoteAmount: ev.Fill.QuoteAmount,
		Price:       ev.Fill.Price,
		RealizedPL:  ev.Realized,
		Time:        ev.Fill.Time,
	}
}

// Nop discards everything. Used when journaling is disabled.
type Nop struct{}

func (Nop) RecordFill(FillRecord) error         { return nil }
func (Nop) RecordDecision(DecisionRecord) error { return nil }
func (Nop) Close() error                        { return nil }
