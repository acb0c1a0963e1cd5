// cow/orders.go
package cow

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/cowtrader/market"
	"github.com/shopspring/decimal"
)

// OrderStatus is the venue's view of an order's lifecycle.
type OrderStatus string

const (
	StatusOpen      OrderStatus = "open"
	StatusFulfilled OrderStatus = "fulfilled"
	StatusCancelled OrderStatus = "cancelled"
	StatusExpired   OrderStatus = "expired"
)

// OrderRecord is one order as returned by the account order-history endpoint.
// Amounts are base-unit decimal strings (wei-style).
type OrderRecord struct {
	UID                string      `json:"uid"`
	SellToken          string      `json:"sellToken"`
	BuyToken           string      `json:"buyToken"`
	SellAmount         string      `json:"sellAmount"`
	BuyAmount          string      `json:"buyAmount"`
	ExecutedSellAmount string      `json:"executedSellAmount,omitempty"`
	ExecutedBuyAmount  string      `json:"executedBuyAmount,omitempty"`
	Status             OrderStatus `json:"status"`
	CreationDate       time.Time   `json:"creationDate"`
	ValidTo            int64       `json:"validTo"`
}

// OrderRequest is a fully specified limit-style order for submission.
type OrderRequest struct {
	SellToken         string `json:"sellToken"`
	BuyToken          string `json:"buyToken"`
	Receiver          string `json:"receiver"`
	SellAmount        string `json:"sellAmount"`
	BuyAmount         string `json:"buyAmount"`
	ValidTo           int64  `json:"validTo"`
	AppData           string `json:"appData"`
	FeeAmount         string `json:"feeAmount"`
	Kind              string `json:"kind"`
	PartiallyFillable bool   `json:"partiallyFillable"`
	SellTokenBalance  string `json:"sellTokenBalance"`
	BuyTokenBalance   string `json:"buyTokenBalance"`
	Signature         string `json:"signature,omitempty"`
	SigningScheme     string `json:"signingScheme,omitempty"`
}

// ZeroAppData is the empty 32-byte app-data document hash.
const ZeroAppData = "0x0000000000000000000000000000000000000000000000000000000000000000"

// OpenOrder is the locally cached view of an outstanding limit order. The
// core does not own order existence; it only reasons about this snapshot.
type OpenOrder struct {
	UID         string      `json:"uid"`
	Side        market.Side `json:"side"`
	AssetAmount float64     `json:"asset_amount"`
	QuoteAmount float64     `json:"quote_amount"`
	LimitPrice  float64     `json:"limit_price"`
	Expiry      time.Time   `json:"expiry"`
}

// FromBaseUnits converts a base-unit decimal string into a float amount,
// shifting by the token's decimals.
func FromBaseUnits(s string, decimals int32) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d.Shift(-decimals).InexactFloat64(), nil
}

// ToBaseUnits renders a float amount as a base-unit integer string.
func ToBaseUnits(amount float64, decimals int32) string {
	return decimal.NewFromFloat(amount).Shift(decimals).Round(0).String()
}

// ToOpenOrder interprets an order record as an open limit order on the given
// pair. The limit price comes from the requested (not executed) amounts.
func (r OrderRecord) ToOpenOrder(pair market.Pair) (OpenOrder, error) {
	isBuy := strings.EqualFold(r.SellToken, pair.Quote.Address)

	var assetRaw, quoteRaw string
	if isBuy {
		quoteRaw, assetRaw = r.SellAmount, r.BuyAmount
	} else {
		assetRaw, quoteRaw = r.SellAmount, r.BuyAmount
	}

	asset, err := FromBaseUnits(assetRaw, pair.Base.Decimals)
	if err != nil {
		return OpenOrder{}, err
	}
	quote, err := FromBaseUnits(quoteRaw, pair.Quote.Decimals)
	if err != nil {
		return OpenOrder{}, err
	}
	if asset <= 0 {
		return OpenOrder{}, fmt.Errorf("order %s: non-positive asset amount", r.UID)
	}

	side := market.SideSell
	if isBuy {
		side = market.SideBuy
	}
	return OpenOrder{
		UID:         r.UID,
		Side:        side,
		AssetAmount: asset,
		QuoteAmount: quote,
		LimitPrice:  quote / asset,
		Expiry:      time.Unix(r.ValidTo, 0),
	}, nil
}
