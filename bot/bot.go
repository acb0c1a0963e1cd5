// Package bot sequences the trading cycle: refresh price, reconcile fills,
// refresh and sweep open orders, build the decision snapshot, decide, apply
// the safety filter, execute, persist.
//
// One cycle runs per tick, strictly sequentially; a failed step aborts the
// remainder of that cycle only. The process dies for exactly one reason:
// invalid configuration at startup.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rustyeddy/cowtrader/chain"
	"github.com/rustyeddy/cowtrader/config"
	"github.com/rustyeddy/cowtrader/decision"
	"github.com/rustyeddy/cowtrader/feed"
	"github.com/rustyeddy/cowtrader/journal"
	"github.com/rustyeddy/cowtrader/ledger"
	"github.com/rustyeddy/cowtrader/market"
	"github.com/rustyeddy/cowtrader/metrics"
	"github.com/rustyeddy/cowtrader/notify"
	"github.com/rustyeddy/cowtrader/orders"
	"github.com/rustyeddy/cowtrader/pkg/id"
	"github.com/rustyeddy/cowtrader/state"
	"github.com/sirupsen/logrus"
)

// callTimeout bounds every external call a cycle makes.
const callTimeout = 15 * time.Second

// shutdownGrace bounds the final persistence write on shutdown.
const shutdownGrace = 5 * time.Second

// Execution buffers: keep a little quote aside for future fees and never
// count dust as sellable.
const (
	quoteBuffer = 50
	assetDust   = 0.001
)

// ErrCycleInFlight reports a tick that fired while the previous cycle was
// still suspended on I/O. The new cycle is skipped, never run concurrently.
var ErrCycleInFlight = errors.New("cycle already in flight")

// BalanceSource yields the account's current token balances.
type BalanceSource interface {
	Balances(ctx context.Context) (chain.Balances, error)
}

// Deps wires the bot's collaborators.
type Deps struct {
	Config     *config.Config
	Pair       market.Pair
	Feed       *feed.Feed
	Seen       *ledger.SeenSet
	Reconciler *ledger.Reconciler
	Engine     *decision.Engine
	Orders     *orders.Manager
	Balances   BalanceSource
	Notifier   notify.Notifier
	Journal    journal.Journal
}

// Bot owns the canonical ledger, feed state, seen set and backend cursor for
// the life of the process. Nothing else mutates them.
type Bot struct {
	cfg      *config.Config
	pair     market.Pair
	feed     *feed.Feed
	ledger   ledger.Ledger
	seen     *ledger.SeenSet
	rec      *ledger.Reconciler
	engine   *decision.Engine
	orders   *orders.Manager
	balances BalanceSource
	notifier notify.Notifier
	journal  journal.Journal
	limits   decision.Limits

	cursor  int
	inCycle atomic.Bool
	log     *logrus.Entry
	now     func() time.Time
}

func New(d Deps) *Bot {
	t := d.Config.Trading
	return &Bot{
		cfg:      d.Config,
		pair:     d.Pair,
		feed:     d.Feed,
		seen:     d.Seen,
		rec:      d.Reconciler,
		engine:   d.Engine,
		orders:   d.Orders,
		balances: d.Balances,
		notifier: d.Notifier,
		journal:  d.Journal,
		limits: decision.Limits{
			MinProfitMargin:  t.MinProfitMargin,
			MaxConcentration: t.MaxConcentration,
			LowConcentration: t.LowConcentration,
			MinOrderSize:     t.MinOrderSize,
			FallbackMaxBuy:   t.FallbackMaxBuy,
			FallbackFraction: t.FallbackFraction,
			FallbackOffset:   t.FallbackOffset,
		},
		log: logrus.WithField("component", "bot"),
		now: time.Now,
	}
}

// Ledger returns a copy of the current position.
func (b *Bot) Ledger() ledger.Ledger { return b.ledger }

// Start loads prior state, or rebuilds the ledger from trade history on a
// cold start, and persists the result.
func (b *Bot) Start(ctx context.Context) error {
	doc, err := state.Load(b.cfg.State.File)
	if err != nil {
		// Unreadable state is "no prior state", not a crash.
		b.log.WithError(err).Warn("state file unreadable, treating as cold start")
	}

	if doc != nil {
		b.ledger = doc.Ledger
		b.feed.Restore(doc.Feed)
		b.seen.Restore(doc.ProcessedTradeIDs)
		b.cursor = doc.BackendCursor
		b.log.WithFields(logrus.Fields{
			"holdings":   b.ledger.Holdings,
			"cost_basis": b.ledger.CostBasis,
			"seen":       b.seen.Len(),
		}).Info("state restored")
		return nil
	}

	b.log.Info("no prior state, rebuilding from trade history")
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	fills, err := b.rec.FetchFills(cctx, 50)
	cancel()
	if err != nil {
		b.log.WithError(err).Warn("history rebuild failed, starting from empty ledger")
		b.notify(ctx, "🆕 <b>Bot started fresh</b>\nNo prior state and trade history was unavailable.")
		return nil
	}

	b.ledger = ledger.Rebuild(fills)
	for _, f := range fills {
		b.seen.Add(f.TradeID)
	}
	b.notify(ctx, fmt.Sprintf(
		"📊 <b>Bot initialized</b>\nHoldings: %.4f %s\nCost basis: %.2f\nFrom %d recent fills",
		b.ledger.Holdings, b.pair.Base.Symbol, b.ledger.CostBasis, len(fills)))

	if err := b.persist(); err != nil {
		b.log.WithError(err).Warn("initial state write failed")
	}
	return nil
}

// Run executes one cycle immediately, then one per tick until ctx is
// cancelled. A tick that fires mid-cycle is skipped. On shutdown the final
// persistence write gets a bounded grace period.
func (b *Bot) Run(ctx context.Context) {
	if err := b.RunCycle(ctx); err != nil {
		b.log.WithError(err).Warn("cycle failed")
	}

	ticker := time.NewTicker(b.cfg.Trading.Interval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			return
		case <-ticker.C:
			if err := b.RunCycle(ctx); err != nil {
				if errors.Is(err, ErrCycleInFlight) {
					metrics.IncCycle("skipped")
					continue
				}
				b.log.WithError(err).Warn("cycle failed")
			}
		}
	}
}

func (b *Bot) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := b.persist(); err != nil {
		b.log.WithError(err).Error("final state write failed")
	}
	b.notify(ctx, fmt.Sprintf(
		"⏹ <b>Bot stopped</b>\nHoldings: %.4f %s\nCost basis: %.2f",
		b.ledger.Holdings, b.pair.Base.Symbol, b.ledger.CostBasis))
	b.log.Info("shutdown complete")
}

// RunCycle executes one full trading cycle. Only one cycle runs at a time;
// overlapping invocations return ErrCycleInFlight.
func (b *Bot) RunCycle(ctx context.Context) error {
	if !b.inCycle.CompareAndSwap(false, true) {
		return ErrCycleInFlight
	}
	defer b.inCycle.Store(false)

	cycle := id.New()
	log := b.log.WithField("cycle", cycle)
	log.Info("cycle start")

	// Refresh price. Without a price nothing downstream is safe to run.
	price, err := b.fetchPrice(ctx)
	if err != nil {
		metrics.IncCycle("error")
		b.notify(ctx, "❌ <b>Cycle aborted</b>\nAll price sources failed.")
		return err
	}
	metrics.SetPrice(price)

	// Reconcile fills. A history failure leaves the ledger stale for one
	// cycle; it does not abort.
	b.reconcile(ctx, log)

	// Refresh the open-order snapshot, then sweep stale orders.
	if err := b.withTimeout(ctx, b.orders.Refresh); err != nil {
		log.WithError(err).Warn("open-order refresh failed, using cached snapshot")
	}
	swept := b.orders.SweepStale(ctx, price, b.cfg.Trading.MaxOrderDistance)
	if swept > 0 {
		metrics.AddOrdersCancelled(swept)
		b.notify(ctx, fmt.Sprintf("🧹 Cancelled %d stale order(s)", swept))
	}

	// Balances and decision snapshot.
	bal, err := b.fetchBalances(ctx)
	if err != nil {
		log.WithError(err).Warn("balance query failed, using zero balances")
	}
	snap := b.snapshot(price, bal)

	// Decide, then let the safety filter have the last word.
	res := b.engine.Decide(ctx, snap, b.cursor)
	b.cursor = res.Next

	source := res.Backend
	if res.Fallback {
		source = "fallback"
	}
	final := decision.Safety(res.Decision, snap, b.limits)
	if final.Action != res.Decision.Action {
		log.WithField("reason", final.Reasoning).Info("decision rewritten by safety filter")
		source = "safety"
	}
	metrics.IncDecision(string(final.Action), source)
	if err := b.journal.RecordDecision(journal.DecisionRecord{
		ID:         cycle,
		Time:       b.now(),
		Action:     string(final.Action),
		Source:     source,
		Reasoning:  final.Reasoning,
		Confidence: final.Confidence,
		RiskLevel:  string(final.RiskLevel),
		Price:      price,
		CostBasis:  b.ledger.CostBasis,
	}); err != nil {
		log.WithError(err).Warn("journal decision write failed")
	}

	log.WithFields(logrus.Fields{
		"action":     final.Action,
		"source":     source,
		"confidence": final.Confidence,
	}).Info("decision")

	b.execute(ctx, log, final, snap, bal)

	metrics.SetCostBasis(b.ledger.CostBasis)
	metrics.SetHoldings(b.ledger.Holdings)

	if err := b.persist(); err != nil {
		log.WithError(err).Warn("state write failed")
	}
	metrics.IncCycle("ok")
	log.Info("cycle complete")
	return nil
}

func (b *Bot) fetchPrice(ctx context.Context) (float64, error) {
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return b.feed.Fetch(cctx)
}

func (b *Bot) fetchBalances(ctx context.Context) (chain.Balances, error) {
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return b.balances.Balances(cctx)
}

func (b *Bot) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return fn(cctx)
}

func (b *Bot) reconcile(ctx context.Context, log *logrus.Entry) {
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	events, err := b.rec.ReconcileOnce(cctx, &b.ledger)
	if err != nil {
		log.WithError(err).Warn("fill reconciliation failed")
		return
	}

	for _, ev := range events {
		metrics.IncFill(string(ev.Fill.Side))
		if err := b.journal.RecordFill(journal.FillFromEvent(ev, b.pair.Name())); err != nil {
			log.WithError(err).Warn("journal fill write failed")
		}

		msg := fmt.Sprintf(
			"✅ <b>%s filled</b>\n%.4f %s at %.2f\nCost basis: %.2f\nHoldings: %.4f %s",
			ev.Fill.Side, ev.Fill.AssetAmount, b.pair.Base.Symbol, ev.Fill.Price,
			b.ledger.CostBasis, b.ledger.Holdings, b.pair.Base.Symbol)
		if ev.Fill.Side == market.SideSell && ev.Realized != 0 {
			msg += fmt.Sprintf("\n🎉 Realized: %.2f", ev.Realized)
		}
		b.notify(ctx, msg)

		log.WithFields(logrus.Fields{
			"trade_id": ev.Fill.TradeID,
			"side":     ev.Fill.Side,
			"price":    ev.Fill.Price,
			"realized": ev.Realized,
		}).Info("new fill")
	}
}

// snapshot assembles the decision context from the ledger, feed, balances
// and order cache.
func (b *Bot) snapshot(price float64, bal chain.Balances) decision.Snapshot {
	totalValue := bal.Asset*price + bal.Quote
	assetShare := 0.0
	if totalValue > 0 {
		assetShare = bal.Asset * price / totalValue
	}

	fs := b.feed.State()
	var high, low *float64
	if fs.High.Set {
		v := fs.High.Value
		high = &v
	}
	if fs.Low.Set {
		v := fs.Low.Value
		low = &v
	}

	return decision.Snapshot{
		Price:         price,
		CostBasis:     b.ledger.CostBasis,
		Holdings:      b.ledger.Holdings,
		QuoteBalance:  bal.Quote,
		TotalValue:    totalValue,
		AssetShare:    assetShare,
		RecentPrices:  b.feed.Recent(48),
		HighWatermark: high,
		LowWatermark:  low,
		OpenOrders:    b.orders.Count(),
	}
}

func (b *Bot) execute(ctx context.Context, log *logrus.Entry, d decision.Decision, snap decision.Snapshot, bal chain.Balances) {
	switch d.Action {
	case decision.ActionWait:
		log.WithField("reason", d.Reasoning).Debug("waiting")

	case decision.ActionCancelOrders:
		cctx, cancel := context.WithTimeout(ctx, callTimeout)
		n := b.orders.CancelAll(cctx)
		cancel()
		metrics.AddOrdersCancelled(n)
		b.notify(ctx, fmt.Sprintf("🚫 Cancelled %d open order(s)", n))

	case decision.ActionBuy:
		price, size := d.Parameters.BuyPrice, d.Parameters.OrderSize
		if price <= 0 || size <= 0 {
			log.Warn("buy decision missing price or size, skipping")
			return
		}
		if bal.Quote < size+quoteBuffer {
			log.WithFields(logrus.Fields{"quote": bal.Quote, "size": size}).Warn("insufficient quote balance")
			b.notify(ctx, fmt.Sprintf("⚠️ BUY skipped: %.2f %s available, %.2f needed",
				bal.Quote, b.pair.Quote.Symbol, size+quoteBuffer))
			return
		}
		b.place(ctx, log, market.SideBuy, price, size)

	case decision.ActionSell:
		price, size := d.Parameters.SellPrice, d.Parameters.OrderSize
		if price <= 0 || size <= 0 {
			log.Warn("sell decision missing price or size, skipping")
			return
		}
		if bal.Asset < size+assetDust {
			log.WithFields(logrus.Fields{"asset": bal.Asset, "size": size}).Warn("insufficient asset balance")
			b.notify(ctx, fmt.Sprintf("⚠️ SELL skipped: %.4f %s available, %.4f needed",
				bal.Asset, b.pair.Base.Symbol, size+assetDust))
			return
		}
		b.place(ctx, log, market.SideSell, price, size)
	}
}

func (b *Bot) place(ctx context.Context, log *logrus.Entry, side market.Side, price, size float64) {
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	uid, err := b.orders.Place(cctx, side, price, size)
	if errors.Is(err, orders.ErrDuplicate) {
		log.WithFields(logrus.Fields{"side": side, "price": price}).Info("skipping duplicate order")
		return
	}
	if err != nil {
		log.WithError(err).Warn("order placement failed")
		b.notify(ctx, fmt.Sprintf("❌ %s order failed: %v", side, err))
		return
	}

	metrics.IncOrderPlaced(string(side))
	b.notify(ctx, fmt.Sprintf("%s <b>%s order placed</b>\nLimit: %.2f\nSize: %.4f\nOrder: %s…",
		sideEmoji(side), side, price, size, shortUID(uid)))
	log.WithFields(logrus.Fields{"side": side, "price": price, "size": size, "uid": uid}).Info("order placed")
}

func (b *Bot) persist() error {
	return state.Save(b.cfg.State.File, &state.Document{
		Ledger:            b.ledger,
		Feed:              b.feed.State(),
		ProcessedTradeIDs: b.seen.Snapshot(),
		BackendCursor:     b.cursor,
		LastUpdated:       b.now(),
	})
}

// notify is fire-and-forget: sink failures never affect the cycle.
func (b *Bot) notify(ctx context.Context, text string) {
	b.notifier.Send(ctx, text)
}

func sideEmoji(side market.Side) string {
	if side == market.SideBuy {
		return "🟢"
	}
	return "🔴"
}

func shortUID(uid string) string {
	if len(uid) > 10 {
		return uid[:10]
	}
	return uid
}
