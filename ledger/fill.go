// ledger/fill.go
package ledger

import (
	"time"

	"github.com/rustyeddy/cowtrader/market"
)

// Fill is a completed trade against the venue, parsed from an external
// trade-history record. TradeID is unique and immutable.
type Fill struct {
	TradeID     string      `json:"trade_id"`
	Side        market.Side `json:"side"`
	AssetAmount float64     `json:"asset_amount"`
	QuoteAmount float64     `json:"quote_amount"`
	Price       float64     `json:"price"` // execution price, quote per asset
	Time        time.Time   `json:"time"`
}
