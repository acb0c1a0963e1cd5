// Package orders manages the lifecycle of outstanding limit orders: it
// prevents duplicate placements at similar prices and periodically cancels
// orders whose limit price has drifted too far from the market.
//
// The manager only reasons about a locally cached snapshot; the venue owns
// order existence, and the cache is refreshed from it every cycle.
package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/cowtrader/cow"
	"github.com/rustyeddy/cowtrader/market"
	"github.com/sirupsen/logrus"
)

// ErrDuplicate reports that an open order of the same direction already sits
// at a similar price. Placement is skipped, not retried.
var ErrDuplicate = errors.New("duplicate open order at similar price")

// Venue is the slice of the exchange API the manager needs.
type Venue interface {
	AccountOrders(ctx context.Context, limit, offset int) ([]cow.OrderRecord, error)
	SubmitOrder(ctx context.Context, order cow.OrderRequest) (string, error)
	CancelOrder(ctx context.Context, uid, signature string) error
}

// Manager holds the cached open-order snapshot for one account and pair.
type Manager struct {
	venue        Venue
	signer       cow.Signer
	pair         market.Pair
	account      string
	validity     time.Duration
	dupThreshold float64
	cache        []cow.OpenOrder
	log          *logrus.Entry
	now          func() time.Time
}

func NewManager(venue Venue, signer cow.Signer, pair market.Pair, account string, validity time.Duration, dupThreshold float64) *Manager {
	return &Manager{
		venue:        venue,
		signer:       signer,
		pair:         pair,
		account:      account,
		validity:     validity,
		dupThreshold: dupThreshold,
		log:          logrus.WithField("component", "orders"),
		now:          time.Now,
	}
}

// Refresh replaces the cached snapshot with the venue's current open orders
// for the pair, dropping anything expired or unparsable.
func (m *Manager) Refresh(ctx context.Context) error {
	records, err := m.venue.AccountOrders(ctx, 50, 0)
	if err != nil {
		return fmt.Errorf("fetch open orders: %w", err)
	}

	open := make([]cow.OpenOrder, 0, len(records))
	now := m.now()
	for _, rec := range records {
		if rec.Status != cow.StatusOpen {
			continue
		}
		if !m.pair.Matches(rec.SellToken, rec.BuyToken) {
			continue
		}
		o, err := rec.ToOpenOrder(m.pair)
		if err != nil {
			m.log.WithField("uid", rec.UID).WithError(err).Warn("skipping unparsable open order")
			continue
		}
		if !o.Expiry.After(now) {
			continue
		}
		open = append(open, o)
	}
	m.cache = open
	return nil
}

// Open returns a copy of the cached snapshot.
func (m *Manager) Open() []cow.OpenOrder {
	out := make([]cow.OpenOrder, len(m.cache))
	copy(out, m.cache)
	return out
}

// Count returns the number of cached open orders.
func (m *Manager) Count() int { return len(m.cache) }

// IsDuplicate reports whether any cached open order of the same direction
// sits within the duplicate threshold of the requested price.
func (m *Manager) IsDuplicate(side market.Side, price float64) bool {
	for _, o := range m.cache {
		if o.Side == side && math.Abs(o.LimitPrice-price) < m.dupThreshold {
			return true
		}
	}
	return false
}

// SweepStale cancels every cached order whose limit price has drifted more
// than maxDistance from the current price and returns the count cancelled.
// A failed cancellation leaves the order cached for the next sweep; nothing
// is dropped on an uncertain outcome.
func (m *Manager) SweepStale(ctx context.Context, currentPrice, maxDistance float64) int {
	cancelled := 0
	kept := m.cache[:0]
	for _, o := range m.cache {
		if math.Abs(o.LimitPrice-currentPrice) <= maxDistance {
			kept = append(kept, o)
			continue
		}
		if err := m.cancel(ctx, o.UID); err != nil {
			m.log.WithField("uid", o.UID).WithError(err).Warn("stale order cancellation failed")
			kept = append(kept, o)
			continue
		}
		m.log.WithFields(logrus.Fields{
			"uid":   o.UID,
			"limit": o.LimitPrice,
			"price": currentPrice,
		}).Info("cancelled stale order")
		cancelled++
	}
	m.cache = kept
	return cancelled
}

// CancelAll cancels every cached open order and returns the count cancelled.
func (m *Manager) CancelAll(ctx context.Context) int {
	cancelled := 0
	kept := m.cache[:0]
	for _, o := range m.cache {
		if err := m.cancel(ctx, o.UID); err != nil {
			m.log.WithField("uid", o.UID).WithError(err).Warn("order cancellation failed")
			kept = append(kept, o)
			continue
		}
		cancelled++
	}
	m.cache = kept
	return cancelled
}

func (m *Manager) cancel(ctx context.Context, uid string) error {
	sig, err := m.signer.SignCancellation(ctx, uid)
	if err != nil {
		return fmt.Errorf("sign cancellation: %w", err)
	}
	if err := m.venue.CancelOrder(ctx, uid, sig); err != nil {
		// Already gone means the venue dropped it for us.
		if errors.Is(err, cow.ErrOrderGone) {
			return nil
		}
		return err
	}
	return nil
}

// Place builds, signs and submits a limit order unless a similar one is
// already open. Price is the limit price; size is quote-denominated for buys
// and asset-denominated for sells.
func (m *Manager) Place(ctx context.Context, side market.Side, price, size float64) (string, error) {
	if m.IsDuplicate(side, price) {
		return "", ErrDuplicate
	}
	if price <= 0 || size <= 0 {
		return "", fmt.Errorf("invalid order: price %.2f size %.6f", price, size)
	}

	var assetAmount, quoteAmount float64
	var req cow.OrderRequest
	if side == market.SideBuy {
		quoteAmount = size
		assetAmount = size / price
		req = m.request(m.pair.Quote, m.pair.Base, quoteAmount, assetAmount)
	} else {
		assetAmount = size
		quoteAmount = size * price
		req = m.request(m.pair.Base, m.pair.Quote, assetAmount, quoteAmount)
	}

	sig, err := m.signer.SignOrder(ctx, req)
	if err != nil {
		return "", fmt.Errorf("sign order: %w", err)
	}
	req.Signature = sig
	req.SigningScheme = "eip712"

	uid, err := m.venue.SubmitOrder(ctx, req)
	if err != nil {
		return "", fmt.Errorf("submit order: %w", err)
	}

	m.cache = append(m.cache, cow.OpenOrder{
		UID:         uid,
		Side:        side,
		AssetAmount: assetAmount,
		QuoteAmount: quoteAmount,
		LimitPrice:  price,
		Expiry:      m.now().Add(m.validity),
	})
	return uid, nil
}

func (m *Manager) request(sell, buy market.Token, sellAmount, buyAmount float64) cow.OrderRequest {
	return cow.OrderRequest{
		SellToken:         sell.Address,
		BuyToken:          buy.Address,
		Receiver:          m.account,
		SellAmount:        cow.ToBaseUnits(sellAmount, sell.Decimals),
		BuyAmount:         cow.ToBaseUnits(buyAmount, buy.Decimals),
		ValidTo:           m.now().Add(m.validity).Unix(),
		AppData:           cow.ZeroAppData,
		FeeAmount:         "0",
		Kind:              "sell",
		PartiallyFillable: false,
		SellTokenBalance:  "erc20",
		BuyTokenBalance:   "erc20",
	}
}
