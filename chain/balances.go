// Package chain reads ERC-20 token balances over JSON-RPC. It is thin glue
// around eth_call; only the balances flow into the core.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/rustyeddy/cowtrader/market"
	"github.com/shopspring/decimal"
)

// balanceOfSelector is the 4-byte selector of balanceOf(address).
const balanceOfSelector = "0x70a08231"

// Balances are the account's holdings of the pair's two tokens.
type Balances struct {
	Asset float64
	Quote float64
}

// Reader queries balances for one account and pair.
type Reader struct {
	url        string
	account    string
	pair       market.Pair
	httpClient *http.Client
}

func NewReader(rpcURL, account string, pair market.Pair) *Reader {
	return &Reader{
		url:        rpcURL,
		account:    account,
		pair:       pair,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Balances fetches both token balances. Any failure returns zero balances
// and the error; callers treat that as a skipped step, not a crash.
func (r *Reader) Balances(ctx context.Context) (Balances, error) {
	asset, err := r.balanceOf(ctx, r.pair.Base)
	if err != nil {
		return Balances{}, fmt.Errorf("%s balance: %w", r.pair.Base.Symbol, err)
	}
	quote, err := r.balanceOf(ctx, r.pair.Quote)
	if err != nil {
		return Balances{}, fmt.Errorf("%s balance: %w", r.pair.Quote.Symbol, err)
	}
	return Balances{Asset: asset, Quote: quote}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (r *Reader) balanceOf(ctx context.Context, token market.Token) (float64, error) {
	data := balanceOfSelector + "000000000000000000000000" + strings.TrimPrefix(strings.ToLower(r.account), "0x")

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_call",
		Params: []any{
			map[string]string{"to": token.Address, "data": data},
			"latest",
		},
	})
	if err != nil {
		return 0, fmt.Errorf("marshal rpc request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rpc status %d", resp.StatusCode)
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return 0, fmt.Errorf("decode rpc response: %w", err)
	}
	if rr.Error != nil {
		return 0, fmt.Errorf("rpc error %d: %s", rr.Error.Code, rr.Error.Message)
	}

	raw := strings.TrimPrefix(rr.Result, "0x")
	if raw == "" {
		return 0, fmt.Errorf("empty rpc result")
	}
	n, ok := new(big.Int).SetString(raw, 16)
	if !ok {
		return 0, fmt.Errorf("parse balance %q", rr.Result)
	}
	return decimal.NewFromBigInt(n, -token.Decimals).InexactFloat64(), nil
}
