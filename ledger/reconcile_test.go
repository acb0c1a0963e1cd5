package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rustyeddy/cowtrader/cow"
	"github.com/rustyeddy/cowtrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHistory serves canned order-history pages.
type fakeHistory struct {
	records []cow.OrderRecord
	err     error
	calls   int
}

func (f *fakeHistory) AccountOrders(_ context.Context, limit, offset int) ([]cow.OrderRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if offset >= len(f.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.records) {
		end = len(f.records)
	}
	return f.records[offset:end], nil
}

func testPair(t *testing.T) market.Pair {
	t.Helper()
	pair, err := market.NewPair("WETH", "USDC")
	require.NoError(t, err)
	return pair
}

// buyRecord is a fulfilled order that sold quote for base: a buy.
func buyRecord(uid string, eth, usdc string, at time.Time) cow.OrderRecord {
	return cow.OrderRecord{
		UID:          uid,
		SellToken:    market.Tokens["USDC"].Address,
		BuyToken:     market.Tokens["WETH"].Address,
		SellAmount:   usdc,
		BuyAmount:    eth,
		Status:       cow.StatusFulfilled,
		CreationDate: at,
	}
}

func sellRecord(uid string, eth, usdc string, at time.Time) cow.OrderRecord {
	return cow.OrderRecord{
		UID:          uid,
		SellToken:    market.Tokens["WETH"].Address,
		BuyToken:     market.Tokens["USDC"].Address,
		SellAmount:   eth,
		BuyAmount:    usdc,
		Status:       cow.StatusFulfilled,
		CreationDate: at,
	}
}

func TestReconcileOnce_AppliesUnseenFillsOldestFirst(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	hist := &fakeHistory{records: []cow.OrderRecord{
		// Venue returns newest first; reconciliation must apply oldest first.
		sellRecord("s1", "500000000000000000", "1500000000", t0.Add(2*time.Hour)),
		buyRecord("b1", "1000000000000000000", "2000000000", t0),
	}}

	pair := testPair(t)
	seen := NewSeenSet()
	rec := NewReconciler(hist, pair, seen)

	var l Ledger
	events, err := rec.ReconcileOnce(context.Background(), &l)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "b1", events[0].Fill.TradeID)
	assert.Equal(t, market.SideBuy, events[0].Fill.Side)
	assert.Equal(t, "s1", events[1].Fill.TradeID)
	// Sold 0.5 at 3000 against a 2000 basis.
	assert.InDelta(t, 500.0, events[1].Realized, 1e-6)

	assert.InDelta(t, 0.5, l.Holdings, 1e-12)
	assert.InDelta(t, 2000.0, l.CostBasis, 1e-6)
}

func TestReconcileOnce_DedupAcrossRuns(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	hist := &fakeHistory{records: []cow.OrderRecord{
		buyRecord("b1", "1000000000000000000", "2000000000", t0),
	}}

	pair := testPair(t)
	seen := NewSeenSet()
	rec := NewReconciler(hist, pair, seen)

	var l Ledger
	first, err := rec.ReconcileOnce(context.Background(), &l)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Same history again: nothing new, ledger untouched.
	second, err := rec.ReconcileOnce(context.Background(), &l)
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.InDelta(t, 1.0, l.Holdings, 1e-12)
	assert.InDelta(t, 2000.0, l.CostBasis, 1e-6)
}

func TestReconcileOnce_SkipsOtherStatusesAndPairs(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	open := buyRecord("o1", "1000000000000000000", "2000000000", t0)
	open.Status = cow.StatusOpen
	cancelled := buyRecord("c1", "1000000000000000000", "2000000000", t0)
	cancelled.Status = cow.StatusCancelled
	foreign := buyRecord("f1", "1000000000000000000", "2000000000", t0)
	foreign.SellToken = "0x000000000000000000000000000000000000dEaD"

	hist := &fakeHistory{records: []cow.OrderRecord{open, cancelled, foreign}}
	rec := NewReconciler(hist, testPair(t), NewSeenSet())

	var l Ledger
	events, err := rec.ReconcileOnce(context.Background(), &l)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Zero(t, l.Holdings)
}

func TestReconcileOnce_HistoryErrorLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	hist := &fakeHistory{err: errors.New("boom")}
	seen := NewSeenSet()
	rec := NewReconciler(hist, testPair(t), seen)

	var l Ledger
	_, err := rec.ReconcileOnce(context.Background(), &l)
	require.Error(t, err)
	assert.Zero(t, l.Holdings)
	assert.Zero(t, seen.Len())
}

func TestFetchFills_PagesThroughHistory(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var records []cow.OrderRecord
	for i := 0; i < 45; i++ {
		records = append(records, buyRecord(
			"b"+string(rune('A'+i%26))+string(rune('a'+i/26)),
			"1000000000000000000", "2000000000", t0.Add(time.Duration(45-i)*time.Minute)))
	}

	rec := NewReconciler(&fakeHistory{records: records}, testPair(t), NewSeenSet())

	fills, err := rec.FetchFills(context.Background(), 30)
	require.NoError(t, err)
	assert.Len(t, fills, 30)
	// Oldest first.
	for i := 1; i < len(fills); i++ {
		assert.False(t, fills[i].Time.Before(fills[i-1].Time))
	}
}

func TestParseFill_PrefersExecutedAmounts(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recd := buyRecord("b1", "1000000000000000000", "2000000000", t0)
	recd.ExecutedBuyAmount = "500000000000000000"
	recd.ExecutedSellAmount = "1000000000"

	f, err := ParseFill(recd, testPair(t))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, f.AssetAmount, 1e-12)
	assert.InDelta(t, 1000.0, f.QuoteAmount, 1e-6)
	assert.InDelta(t, 2000.0, f.Price, 1e-6)
}

func TestParseFill_RejectsMalformedAmounts(t *testing.T) {
	t.Parallel()

	t0 := time.Now()
	bad := buyRecord("b1", "not-a-number", "2000000000", t0)
	_, err := ParseFill(bad, testPair(t))
	assert.Error(t, err)

	zero := buyRecord("b2", "0", "2000000000", t0)
	_, err = ParseFill(zero, testPair(t))
	assert.Error(t, err)
}
