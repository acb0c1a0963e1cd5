// feed/sources.go
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// Default REST endpoints for the ETH/USD reference price.
const (
	CoinGeckoURL = "https://api.coingecko.com/api/v3/simple/price?ids=ethereum&vs_currencies=usd"
	BinanceURL   = "https://api.binance.com/api/v3/ticker/price?symbol=ETHUSDT"
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: sourceTimeout}
}

// CoinGecko reads the simple-price endpoint. Response shape:
// {"ethereum":{"usd":3000.12}}.
type CoinGecko struct {
	URL        string
	HTTPClient *http.Client
}

func NewCoinGecko() *CoinGecko {
	return &CoinGecko{URL: CoinGeckoURL, HTTPClient: newHTTPClient()}
}

func (s *CoinGecko) Name() string { return "coingecko" }

func (s *CoinGecko) Price(ctx context.Context) (float64, error) {
	var body map[string]map[string]float64
	if err := getJSON(ctx, s.HTTPClient, s.URL, &body); err != nil {
		return 0, err
	}
	price, ok := body["ethereum"]["usd"]
	if !ok {
		return 0, fmt.Errorf("missing ethereum.usd in response")
	}
	return price, nil
}

// BinanceTicker reads the spot ticker endpoint. Response shape:
// {"symbol":"ETHUSDT","price":"3000.12"}.
type BinanceTicker struct {
	URL        string
	HTTPClient *http.Client
}

func NewBinanceTicker() *BinanceTicker {
	return &BinanceTicker{URL: BinanceURL, HTTPClient: newHTTPClient()}
}

func (s *BinanceTicker) Name() string { return "binance" }

func (s *BinanceTicker) Price(ctx context.Context) (float64, error) {
	var body struct {
		Price string `json:"price"`
	}
	if err := getJSON(ctx, s.HTTPClient, s.URL, &body); err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(body.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", body.Price, err)
	}
	return price, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Static is a fixed-price source for tests and dry runs.
type Static struct {
	Label string
	Value float64
	Err   error
}

func (s *Static) Name() string { return s.Label }

func (s *Static) Price(ctx context.Context) (float64, error) {
	return s.Value, s.Err
}
