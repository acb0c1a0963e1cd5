// Package feed obtains a reference price from an ordered list of sources
// with failover, and maintains a bounded rolling history plus running
// high/low watermarks.
package feed

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/cowtrader/market"
	"github.com/sirupsen/logrus"
)

// HistoryLimit bounds the rolling price history.
const HistoryLimit = 200

// sourceTimeout bounds one source attempt. A slow source is skipped, not
// retried.
const sourceTimeout = 10 * time.Second

// ErrAllSourcesFailed reports that no configured source produced a valid
// price. Callers abort the current cycle but keep the process alive.
var ErrAllSourcesFailed = errors.New("all price sources failed")

// Source produces a current reference price, or an error when it cannot.
type Source interface {
	Name() string
	Price(ctx context.Context) (float64, error)
}

// Watermark is an extreme observed price. Zero value means "not yet
// observed", distinct from a price of zero.
type Watermark struct {
	Value float64 `json:"value"`
	Set   bool    `json:"set"`
}

// State is the feed's persistent state: bounded history and watermarks.
// Invariant: once both are set, High.Value >= every recorded price >=
// Low.Value.
type State struct {
	History []market.PricePoint `json:"history"`
	High    Watermark           `json:"high"`
	Low     Watermark           `json:"low"`
}

// Feed tries sources in priority order and records accepted prices.
type Feed struct {
	sources []Source
	state   State
	log     *logrus.Entry
	now     func() time.Time
}

func New(sources ...Source) *Feed {
	return &Feed{
		sources: sources,
		log:     logrus.WithField("component", "feed"),
		now:     time.Now,
	}
}

// Fetch returns the first valid positive price any source produces, recording
// it in the history and watermarks. A source that errors, times out or
// returns a non-positive value is skipped. Returns ErrAllSourcesFailed only
// when every source fails.
func (f *Feed) Fetch(ctx context.Context) (float64, error) {
	for _, src := range f.sources {
		price, err := f.try(ctx, src)
		if err != nil {
			f.log.WithField("source", src.Name()).WithError(err).Warn("price source failed")
			continue
		}
		if price <= 0 {
			f.log.WithField("source", src.Name()).Warn("price source returned non-positive price")
			continue
		}
		f.record(price)
		f.log.WithFields(logrus.Fields{"source": src.Name(), "price": price}).Debug("price accepted")
		return price, nil
	}
	return 0, ErrAllSourcesFailed
}

func (f *Feed) try(ctx context.Context, src Source) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, sourceTimeout)
	defer cancel()
	return src.Price(ctx)
}

func (f *Feed) record(price float64) {
	f.state.History = append(f.state.History, market.PricePoint{Price: price, Time: f.now()})
	if n := len(f.state.History); n > HistoryLimit {
		f.state.History = f.state.History[n-HistoryLimit:]
	}
	if !f.state.High.Set || price > f.state.High.Value {
		f.state.High = Watermark{Value: price, Set: true}
	}
	if !f.state.Low.Set || price < f.state.Low.Value {
		f.state.Low = Watermark{Value: price, Set: true}
	}
}

// Last returns the most recently accepted price, if any.
func (f *Feed) Last() (float64, bool) {
	if len(f.state.History) == 0 {
		return 0, false
	}
	return f.state.History[len(f.state.History)-1].Price, true
}

// Recent returns up to n most recent prices, oldest first.
func (f *Feed) Recent(n int) []float64 {
	h := f.state.History
	if len(h) > n {
		h = h[len(h)-n:]
	}
	out := make([]float64, len(h))
	for i, p := range h {
		out[i] = p.Price
	}
	return out
}

// State returns a copy of the feed state for persistence.
func (f *Feed) State() State {
	s := f.state
	s.History = make([]market.PricePoint, len(f.state.History))
	copy(s.History, f.state.History)
	return s
}

// Restore loads previously persisted state, re-trimming the history bound.
func (f *Feed) Restore(s State) {
	if n := len(s.History); n > HistoryLimit {
		s.History = s.History[n-HistoryLimit:]
	}
	f.state = s
}
