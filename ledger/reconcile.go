package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/cowtrader/cow"
	"github.com/rustyeddy/cowtrader/market"
)

// History is the slice of the venue API reconciliation needs.
type History interface {
	AccountOrders(ctx context.Context, limit, offset int) ([]cow.OrderRecord, error)
}

// FillEvent pairs a newly reconciled fill with the profit/loss it realized
// against the prior cost basis.
type FillEvent struct {
	Fill     Fill
	Realized float64
}

// Reconciler pulls completed trades from the venue's order history and feeds
// the ones it has not seen before into the ledger, in chronological order.
// Dedup against the seen set is a hard invariant: a trade id is applied at
// most once for the life of the bot.
type Reconciler struct {
	history  History
	pair     market.Pair
	seen     *SeenSet
	pageSize int
}

func NewReconciler(history History, pair market.Pair, seen *SeenSet) *Reconciler {
	return &Reconciler{
		history:  history,
		pair:     pair,
		seen:     seen,
		pageSize: 20,
	}
}

// ReconcileOnce fetches the most recent page of order history, applies every
// unseen completed fill to the ledger and returns the new fill events, oldest
// first. Each distinct trade id is reported exactly once across all calls.
func (r *Reconciler) ReconcileOnce(ctx context.Context, l *Ledger) ([]FillEvent, error) {
	fills, err := r.fetchFills(ctx, r.pageSize)
	if err != nil {
		return nil, err
	}

	var events []FillEvent
	for _, f := range fills {
		if r.seen.Has(f.TradeID) {
			continue
		}
		realized := l.Apply(f)
		r.seen.Add(f.TradeID)
		events = append(events, FillEvent{Fill: f, Realized: realized})
	}
	return events, nil
}

// FetchFills pages through the account's order history and returns up to max
// completed fills for the configured pair, oldest first. Used for cold-start
// rebuilds; it does not touch the seen set or the ledger.
func (r *Reconciler) FetchFills(ctx context.Context, max int) ([]Fill, error) {
	return r.fetchFillsPaged(ctx, max)
}

func (r *Reconciler) fetchFills(ctx context.Context, limit int) ([]Fill, error) {
	records, err := r.history.AccountOrders(ctx, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch order history: %w", err)
	}
	return r.parseSorted(records), nil
}

func (r *Reconciler) fetchFillsPaged(ctx context.Context, max int) ([]Fill, error) {
	var all []cow.OrderRecord
	for offset := 0; len(all) < max; offset += r.pageSize {
		page, err := r.history.AccountOrders(ctx, r.pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("fetch order history page at %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		if len(page) < r.pageSize {
			break
		}
	}
	fills := r.parseSorted(all)
	if len(fills) > max {
		fills = fills[len(fills)-max:]
	}
	return fills, nil
}

// parseSorted filters records to completed trades on the pair, parses them
// and sorts ascending by creation time. Malformed records are discarded.
func (r *Reconciler) parseSorted(records []cow.OrderRecord) []Fill {
	fills := make([]Fill, 0, len(records))
	for _, rec := range records {
		if rec.Status != cow.StatusFulfilled {
			continue
		}
		if !r.pair.Matches(rec.SellToken, rec.BuyToken) {
			continue
		}
		f, err := ParseFill(rec, r.pair)
		if err != nil {
			continue
		}
		fills = append(fills, f)
	}
	sort.SliceStable(fills, func(i, j int) bool {
		return fills[i].Time.Before(fills[j].Time)
	})
	return fills
}

// ParseFill converts a fulfilled order record into a Fill. Executed amounts
// are preferred over requested amounts when the venue reports them.
func ParseFill(rec cow.OrderRecord, pair market.Pair) (Fill, error) {
	isBuy := strings.EqualFold(rec.SellToken, pair.Quote.Address)

	sellRaw, buyRaw := rec.SellAmount, rec.BuyAmount
	if rec.ExecutedSellAmount != "" && rec.ExecutedBuyAmount != "" {
		sellRaw, buyRaw = rec.ExecutedSellAmount, rec.ExecutedBuyAmount
	}

	var assetRaw, quoteRaw string
	if isBuy {
		quoteRaw, assetRaw = sellRaw, buyRaw
	} else {
		assetRaw, quoteRaw = sellRaw, buyRaw
	}

	asset, err := cow.FromBaseUnits(assetRaw, pair.Base.Decimals)
	if err != nil {
		return Fill{}, fmt.Errorf("order %s: %w", rec.UID, err)
	}
	quote, err := cow.FromBaseUnits(quoteRaw, pair.Quote.Decimals)
	if err != nil {
		return Fill{}, fmt.Errorf("order %s: %w", rec.UID, err)
	}
	if asset <= 0 || quote < 0 {
		return Fill{}, fmt.Errorf("order %s: non-positive amounts", rec.UID)
	}

	side := market.SideSell
	if isBuy {
		side = market.SideBuy
	}
	return Fill{
		TradeID:     rec.UID,
		Side:        side,
		AssetAmount: asset,
		QuoteAmount: quote,
		Price:       quote / asset,
		Time:        rec.CreationDate,
	}, nil
}
