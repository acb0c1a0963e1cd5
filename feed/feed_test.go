package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rustyeddy/cowtrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch_FailsOverToNextSource(t *testing.T) {
	t.Parallel()

	f := New(
		&Static{Label: "down", Err: errors.New("timeout")},
		&Static{Label: "up", Value: 3000},
	)

	price, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 3000.0, price, 1e-12)

	last, ok := f.Last()
	assert.True(t, ok)
	assert.InDelta(t, 3000.0, last, 1e-12)
}

func TestFetch_SkipsNonPositivePrices(t *testing.T) {
	t.Parallel()

	f := New(
		&Static{Label: "zero", Value: 0},
		&Static{Label: "negative", Value: -1},
		&Static{Label: "good", Value: 2850},
	)

	price, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 2850.0, price, 1e-12)
}

func TestFetch_AllSourcesFailed(t *testing.T) {
	t.Parallel()

	f := New(
		&Static{Label: "a", Err: errors.New("down")},
		&Static{Label: "b", Value: 0},
	)

	_, err := f.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrAllSourcesFailed)

	// A failed fetch records nothing.
	_, ok := f.Last()
	assert.False(t, ok)
	assert.False(t, f.State().High.Set)
}

func TestWatermarks(t *testing.T) {
	t.Parallel()

	src := &Static{Label: "s", Value: 3000}
	f := New(src)

	_, err := f.Fetch(context.Background())
	require.NoError(t, err)

	src.Value = 3500
	f.Fetch(context.Background())
	src.Value = 2800
	f.Fetch(context.Background())
	src.Value = 3100
	f.Fetch(context.Background())

	st := f.State()
	require.True(t, st.High.Set)
	require.True(t, st.Low.Set)
	assert.InDelta(t, 3500.0, st.High.Value, 1e-12)
	assert.InDelta(t, 2800.0, st.Low.Value, 1e-12)
}

func TestWatermark_ZeroDistinctFromUnset(t *testing.T) {
	t.Parallel()

	f := New(&Static{Label: "s", Value: 3000})
	st := f.State()

	assert.False(t, st.High.Set)
	assert.False(t, st.Low.Set)
	assert.Zero(t, st.High.Value)
}

func TestHistoryBound(t *testing.T) {
	t.Parallel()

	src := &Static{Label: "s", Value: 1}
	f := New(src)

	for i := 0; i < HistoryLimit+25; i++ {
		src.Value = float64(i + 1)
		_, err := f.Fetch(context.Background())
		require.NoError(t, err)
	}

	st := f.State()
	assert.Len(t, st.History, HistoryLimit)
	// Oldest entries were evicted; the newest survives.
	assert.InDelta(t, float64(HistoryLimit+25), st.History[len(st.History)-1].Price, 1e-12)
	assert.InDelta(t, 26.0, st.History[0].Price, 1e-12)
	// Watermarks remember evicted extremes.
	assert.InDelta(t, 1.0, st.Low.Value, 1e-12)
}

func TestRecent(t *testing.T) {
	t.Parallel()

	src := &Static{Label: "s"}
	f := New(src)
	for _, p := range []float64{10, 20, 30} {
		src.Value = p
		f.Fetch(context.Background())
	}

	assert.Equal(t, []float64{20, 30}, f.Recent(2))
	assert.Equal(t, []float64{10, 20, 30}, f.Recent(5))
}

func TestRestore_RetrimsHistory(t *testing.T) {
	t.Parallel()

	var st State
	now := time.Now()
	for i := 0; i < HistoryLimit+10; i++ {
		st.History = append(st.History, market.PricePoint{Price: float64(i), Time: now})
	}
	st.High = Watermark{Value: float64(HistoryLimit + 9), Set: true}
	st.Low = Watermark{Value: 0, Set: true}

	f := New()
	f.Restore(st)

	got := f.State()
	assert.Len(t, got.History, HistoryLimit)
	assert.True(t, got.Low.Set)
	assert.Zero(t, got.Low.Value)
}
