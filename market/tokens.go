// market/tokens.go
package market

import (
	"fmt"
	"strings"
	"time"
)

// Token describes an ERC-20 token the bot can trade.
type Token struct {
	Symbol   string
	Address  string
	Decimals int32
}

// Tokens holds metadata for the tokens supported on Base.
var Tokens = map[string]Token{
	"WETH": {
		Symbol:   "WETH",
		Address:  "0x4200000000000000000000000000000000000006",
		Decimals: 18,
	},
	"USDC": {
		Symbol:   "USDC",
		Address:  "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Decimals: 6,
	},
}

// Pair is the asset/quote pair the bot trades, e.g. WETH/USDC.
type Pair struct {
	Base  Token
	Quote Token
}

// NewPair resolves a pair from token symbols.
func NewPair(base, quote string) (Pair, error) {
	b, ok := Tokens[strings.ToUpper(base)]
	if !ok {
		return Pair{}, fmt.Errorf("unknown token: %s", base)
	}
	q, ok := Tokens[strings.ToUpper(quote)]
	if !ok {
		return Pair{}, fmt.Errorf("unknown token: %s", quote)
	}
	return Pair{Base: b, Quote: q}, nil
}

// Name returns the conventional BASE/QUOTE label.
func (p Pair) Name() string {
	return p.Base.Symbol + "/" + p.Quote.Symbol
}

// Matches reports whether the two addresses are this pair's tokens in either
// direction. CoW order records carry sellToken/buyToken, so a fill can show
// the pair in both orientations.
func (p Pair) Matches(sellToken, buyToken string) bool {
	s, b := strings.ToLower(sellToken), strings.ToLower(buyToken)
	base, quote := strings.ToLower(p.Base.Address), strings.ToLower(p.Quote.Address)
	return (s == base && b == quote) || (s == quote && b == base)
}

// Side is the direction of a trade or order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// PricePoint is one observed reference price. Immutable once recorded.
type PricePoint struct {
	Price float64   `json:"price"`
	Time  time.Time `json:"time"`
}
