package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEngine() *MatchingEngine {
	return NewMatchingEngine()
}

func p(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// TestSimpleCrossFullFill mirrors spec.md scenario S1.
func TestSimpleCrossFullFill(t *testing.T) {
	eng := setupEngine()
	assert := assert.New(t)

	_, err := eng.Submit(Sell, p("100.50"), 100, "AAPL", "C1")
	require.NoError(t, err)
	_, err = eng.Submit(Sell, p("100.25"), 50, "AAPL", "C2")
	require.NoError(t, err)
	_, err = eng.Submit(Sell, p("99.75"), 75, "AAPL", "C3")
	require.NoError(t, err)

	var trades []Trade
	eng.SetTradeListener(func(tr Trade) { trades = append(trades, tr) })

	buyID, err := eng.Submit(Buy, p("100.30"), 80, "AAPL", "C4")
	require.NoError(t, err)

	require.Len(t, trades, 2)
	assert.True(trades[0].Price.Equal(p("99.75")))
	assert.EqualValues(75, trades[0].Quantity)
	assert.True(trades[1].Price.Equal(p("100.25")))
	assert.EqualValues(5, trades[1].Quantity)

	// A fully filled aggressor is never indexed, so its fill is checked
	// through the trades it produced.
	assert.Equal(buyID, trades[0].BuyOrderID)
	assert.Equal(buyID, trades[1].BuyOrderID)
	assert.EqualValues(80, trades[0].Quantity+trades[1].Quantity)
	_, ok := eng.Get(buyID)
	assert.False(ok)

	assert.True(eng.BestAsk().Equal(p("100.25")))
	assert.True(eng.BestBid().IsZero())
}

// TestPriceTimePriority mirrors spec.md scenario S2.
func TestPriceTimePriority(t *testing.T) {
	eng := setupEngine()

	id1, err := eng.Submit(Buy, p("100"), 10, "AAPL", "C1")
	require.NoError(t, err)
	id2, err := eng.Submit(Buy, p("100"), 20, "AAPL", "C2")
	require.NoError(t, err)

	var trades []Trade
	eng.SetTradeListener(func(tr Trade) { trades = append(trades, tr) })

	_, err = eng.Submit(Sell, p("100"), 15, "AAPL", "C3")
	require.NoError(t, err)

	require.Len(t, trades, 2)
	assert.EqualValues(t, 10, trades[0].Quantity)
	assert.Equal(t, id1, trades[0].BuyOrderID)
	assert.EqualValues(t, 5, trades[1].Quantity)
	assert.Equal(t, id2, trades[1].BuyOrderID)

	assert.True(t, eng.BestBid().Equal(p("100")))
	assert.EqualValues(t, 15, eng.Snapshot("AAPL").BidSize)
}

// TestNoCross mirrors spec.md scenario S3.
func TestNoCross(t *testing.T) {
	eng := setupEngine()
	var trades []Trade
	eng.SetTradeListener(func(tr Trade) { trades = append(trades, tr) })

	_, err := eng.Submit(Buy, p("99"), 10, "AAPL", "C1")
	require.NoError(t, err)
	_, err = eng.Submit(Sell, p("101"), 10, "AAPL", "C2")
	require.NoError(t, err)

	assert.Empty(t, trades)
	assert.True(t, eng.BestBid().Equal(p("99")))
	assert.True(t, eng.BestAsk().Equal(p("101")))
	assert.True(t, eng.Spread().Equal(p("2")))
}

// TestCancelRestingOrder mirrors spec.md scenario S4.
func TestCancelRestingOrder(t *testing.T) {
	eng := setupEngine()

	id, err := eng.Submit(Buy, p("100"), 10, "AAPL", "C1")
	require.NoError(t, err)

	assert.True(t, eng.Cancel(id))
	assert.True(t, eng.BestBid().IsZero())
	assert.False(t, eng.Cancel(id))
}

// TestModifyLosesTimePriority mirrors spec.md scenario S5.
func TestModifyLosesTimePriority(t *testing.T) {
	eng := setupEngine()

	idA, err := eng.Submit(Buy, p("100"), 10, "AAPL", "A")
	require.NoError(t, err)
	idB, err := eng.Submit(Buy, p("100"), 10, "AAPL", "B")
	require.NoError(t, err)

	require.True(t, eng.Modify(idA, p("100"), 10))

	var trades []Trade
	eng.SetTradeListener(func(tr Trade) { trades = append(trades, tr) })

	_, err = eng.Submit(Sell, p("100"), 10, "AAPL", "C")
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.Equal(t, idB, trades[0].BuyOrderID)
}

// TestPartialFillThenCancel mirrors spec.md scenario S6.
func TestPartialFillThenCancel(t *testing.T) {
	eng := setupEngine()

	idA, err := eng.Submit(Sell, p("100"), 10, "AAPL", "A")
	require.NoError(t, err)

	_, err = eng.Submit(Buy, p("100"), 4, "AAPL", "B")
	require.NoError(t, err)

	orderA, ok := eng.Get(idA)
	require.True(t, ok)
	assert.Equal(t, StatusPartiallyFilled, orderA.Status)
	assert.EqualValues(t, 6, orderA.Remaining())

	require.True(t, eng.Cancel(idA))
	_, ok = eng.Get(idA)
	assert.False(t, ok)
}

// TestAggressorPaysBookPrice mirrors spec.md scenario S7.
func TestAggressorPaysBookPrice(t *testing.T) {
	eng := setupEngine()
	var trades []Trade
	eng.SetTradeListener(func(tr Trade) { trades = append(trades, tr) })

	_, err := eng.Submit(Sell, p("99"), 10, "AAPL", "A")
	require.NoError(t, err)
	_, err = eng.Submit(Buy, p("101"), 10, "AAPL", "B")
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.True(t, trades[0].Price.Equal(p("99")))
}

func TestSubmitRejectsNonPositivePriceOrQty(t *testing.T) {
	eng := setupEngine()

	id, err := eng.Submit(Buy, p("0"), 10, "AAPL", "A")
	assert.Empty(t, id)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	id, err = eng.Submit(Buy, p("-5"), 10, "AAPL", "A")
	assert.Empty(t, id)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	id, err = eng.Submit(Buy, p("10"), 0, "AAPL", "A")
	assert.Empty(t, id)
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestModifyRejectsAfterPartialFill(t *testing.T) {
	eng := setupEngine()

	idA, err := eng.Submit(Sell, p("100"), 10, "AAPL", "A")
	require.NoError(t, err)
	_, err = eng.Submit(Buy, p("100"), 4, "AAPL", "B")
	require.NoError(t, err)

	assert.False(t, eng.Modify(idA, p("99"), 10))
}

func TestModifyUnknownOrder(t *testing.T) {
	eng := setupEngine()
	assert.False(t, eng.Modify("O999", p("100"), 10))
}

func TestSubmitBatchPreservesArrivalOrder(t *testing.T) {
	eng := setupEngine()
	var trades []Trade
	eng.SetTradeListener(func(tr Trade) { trades = append(trades, tr) })

	ids := eng.SubmitBatch([]SubmitRequest{
		{Side: Sell, Price: p("100"), Qty: 5, Symbol: "AAPL", ClientID: "A"},
		{Side: Sell, Price: p("100"), Qty: 5, Symbol: "AAPL", ClientID: "B"},
		{Side: Buy, Price: p("100"), Qty: 7, Symbol: "AAPL", ClientID: "C"},
	})
	require.Len(t, ids, 3)
	for _, id := range ids {
		assert.NotEmpty(t, id)
	}
	require.Len(t, trades, 2)
	assert.EqualValues(t, 5, trades[0].Quantity)
	assert.EqualValues(t, 2, trades[1].Quantity)
}

func TestSubmitBatchRejectionDoesNotHaltBatch(t *testing.T) {
	eng := setupEngine()
	ids := eng.SubmitBatch([]SubmitRequest{
		{Side: Buy, Price: p("-1"), Qty: 5, Symbol: "AAPL", ClientID: "A"},
		{Side: Buy, Price: p("100"), Qty: 5, Symbol: "AAPL", ClientID: "B"},
	})
	require.Len(t, ids, 2)
	assert.Empty(t, ids[0])
	assert.NotEmpty(t, ids[1])
}

func TestDepthAggregatesRemainingQuantityOnly(t *testing.T) {
	eng := setupEngine()

	_, err := eng.Submit(Sell, p("100"), 10, "AAPL", "A")
	require.NoError(t, err)
	_, err = eng.Submit(Sell, p("100"), 20, "AAPL", "B")
	require.NoError(t, err)
	_, err = eng.Submit(Sell, p("101"), 5, "AAPL", "C")
	require.NoError(t, err)

	// Fills A fully and B partially: B keeps 15 of its original 20.
	_, err = eng.Submit(Buy, p("100"), 15, "AAPL", "D")
	require.NoError(t, err)

	depth := eng.AskDepth(5)
	require.Len(t, depth, 2)
	assert.True(t, depth[0].Price.Equal(p("100")))
	assert.EqualValues(t, 15, depth[0].Quantity)
	assert.True(t, depth[1].Price.Equal(p("101")))
	assert.EqualValues(t, 5, depth[1].Quantity)
}

func TestDepthLimitsToRequestedLevels(t *testing.T) {
	eng := setupEngine()
	for i := 0; i < 5; i++ {
		price := decimal.NewFromInt(int64(100 + i))
		_, err := eng.Submit(Sell, price, 10, "AAPL", "A")
		require.NoError(t, err)
	}
	depth := eng.AskDepth(3)
	assert.Len(t, depth, 3)
}

// TestOrderStatusListenerFiresForRestingOrderOnly checks that a resting
// order's owner is notified of a fill it did not itself request
// (spec.md §6.4's order_status broadcast), while the aggressor learns
// its own outcome only through Submit's return value.
func TestOrderStatusListenerFiresForRestingOrderOnly(t *testing.T) {
	eng := setupEngine()
	var statuses []Order
	eng.SetOrderStatusListener(func(o Order) { statuses = append(statuses, o) })

	restingID, err := eng.Submit(Sell, p("100"), 10, "AAPL", "MAKER")
	require.NoError(t, err)

	_, err = eng.Submit(Buy, p("100"), 4, "AAPL", "TAKER")
	require.NoError(t, err)

	require.Len(t, statuses, 1)
	assert.Equal(t, restingID, statuses[0].ID)
	assert.Equal(t, StatusPartiallyFilled, statuses[0].Status)
}

// TestTradeCopiesSymbolFromBuyOrder checks spec.md §3's rule that a
// trade's symbol is copied from the buy order even when the two
// crossing orders were tagged with different symbols — the engine
// does not partition matching by symbol (spec.md §1, "single-symbol-
// agnostic").
func TestTradeCopiesSymbolFromBuyOrder(t *testing.T) {
	eng := setupEngine()
	var trades []Trade
	eng.SetTradeListener(func(tr Trade) { trades = append(trades, tr) })

	_, err := eng.Submit(Sell, p("50"), 10, "GOOG", "A")
	require.NoError(t, err)
	_, err = eng.Submit(Buy, p("50"), 10, "AAPL", "B")
	require.NoError(t, err)

	require.Len(t, trades, 1)
	assert.Equal(t, "AAPL", trades[0].Symbol)
}
