package engine

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// MatchingEngine owns a single order book, a monotonic order-id
// counter, and (indirectly, via the book) the trade listener. The
// engine is single-symbol-agnostic (spec.md §1): it does not
// partition matching by symbol — symbol is opaque data carried
// through to trades, exactly as the reference implementation's single
// global OrderBook never inspects it. Callers that need isolated
// books per symbol run one MatchingEngine per symbol.
//
// All public methods are safe for concurrent use: the whole engine is
// guarded by one exclusive lock, per spec.md §5's option (b).
type MatchingEngine struct {
	mu   sync.Mutex
	book *OrderBook

	idCounter  uint64
	arrivalSeq uint64
}

// NewMatchingEngine creates an engine with an empty order book.
func NewMatchingEngine() *MatchingEngine {
	return &MatchingEngine{
		book: NewOrderBook(),
	}
}

// SetTradeListener registers the single callback invoked synchronously
// on every trade the engine executes. The listener must not re-enter
// the engine on the calling goroutine.
func (me *MatchingEngine) SetTradeListener(l TradeListener) {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.book.SetTradeListener(l)
}

// SetOrderStatusListener registers the callback invoked whenever a
// resting order's status changes as a side effect of a different
// order's match (spec.md §6.4's order_status broadcast).
func (me *MatchingEngine) SetOrderStatusListener(l OrderStatusListener) {
	me.mu.Lock()
	defer me.mu.Unlock()
	me.book.SetOrderStatusListener(l)
}

func (me *MatchingEngine) nextOrderID() string {
	n := atomic.AddUint64(&me.idCounter, 1)
	return "O" + strconv.FormatUint(n, 10)
}

func (me *MatchingEngine) nextArrival() (time.Time, uint64) {
	return time.Now(), atomic.AddUint64(&me.arrivalSeq, 1)
}

// Submit validates and accepts a new limit order, runs the match loop
// against the opposite side of the book, and returns the order's id.
// price and qty must both be strictly positive; on failure it returns
// ("", ErrInvalidOrder) without mutating any state.
func (me *MatchingEngine) Submit(side Side, price decimal.Decimal, qty int64, symbol, clientID string) (string, error) {
	if price.Sign() <= 0 || qty <= 0 {
		return "", ErrInvalidOrder
	}

	me.mu.Lock()
	defer me.mu.Unlock()

	arrival, seq := me.nextArrival()
	order := &Order{
		ID:          me.nextOrderID(),
		Side:        side,
		LimitPrice:  price,
		OriginalQty: qty,
		Status:      StatusPending,
		ArrivalTime: arrival,
		ArrivalSeq:  seq,
		Symbol:      symbol,
		ClientID:    clientID,
	}

	matchLoop(me.book, order)

	if order.Remaining() > 0 {
		// Add cannot fail here: order.Remaining() > 0 and the id is
		// freshly minted, so both preconditions hold.
		_ = me.book.Add(order)
	} else if order.Status != StatusFilled {
		order.Status = StatusFilled
	}

	return order.ID, nil
}

// matchLoop is the central matching algorithm (spec.md §4.2). incoming
// is mutated in place; it is never itself inserted into by_id during
// matching.
func matchLoop(book *OrderBook, incoming *Order) {
	oppositeSide := Sell
	if incoming.Side == Sell {
		oppositeSide = Buy
	}
	tree, levels := book.ladder(oppositeSide)

	for incoming.Remaining() > 0 {
		bestLevel, ok := tree.Min()
		if !ok {
			break
		}

		if incoming.Side == Buy {
			if bestLevel.Price.GreaterThan(incoming.LimitPrice) {
				break
			}
		} else {
			if bestLevel.Price.LessThan(incoming.LimitPrice) {
				break
			}
		}

		front := bestLevel.Orders.Front()
		if front == nil {
			key := bestLevel.Price.String()
			delete(levels, key)
			tree.Delete(bestLevel)
			continue
		}
		resting := front.Value.(*Order)

		tradeQty := incoming.Remaining()
		if resting.Remaining() < tradeQty {
			tradeQty = resting.Remaining()
		}
		tradePrice := resting.LimitPrice

		var buy, sell *Order
		if incoming.Side == Buy {
			buy, sell = incoming, resting
		} else {
			buy, sell = resting, incoming
		}

		book.executeTrade(buy, sell, tradeQty, tradePrice)
		book.notifyStatus(*resting)
	}

	if incoming.Remaining() == 0 {
		incoming.Status = StatusFilled
	} else if incoming.FilledQty > 0 {
		incoming.Status = StatusPartiallyFilled
	}
}

// Cancel removes an open order from the book. Returns true iff an
// open order with that id existed.
func (me *MatchingEngine) Cancel(orderID string) bool {
	me.mu.Lock()
	defer me.mu.Unlock()
	return me.book.Cancel(orderID)
}

// Modify performs an atomic cancel-then-resubmit of orderID, preserving
// side, symbol, and client id but assigning a fresh arrival time (the
// replacement loses time priority). Returns false if the order does
// not exist or is not in status PENDING.
func (me *MatchingEngine) Modify(orderID string, newPrice decimal.Decimal, newQty int64) bool {
	if newPrice.Sign() <= 0 || newQty <= 0 {
		return false
	}

	me.mu.Lock()
	defer me.mu.Unlock()

	current, ok := me.book.byID[orderID]
	if !ok || current.Status != StatusPending {
		return false
	}

	side := current.Side
	symbol := current.Symbol
	clientID := current.ClientID
	me.book.Cancel(orderID)

	arrival, seq := me.nextArrival()
	replacement := &Order{
		ID:          orderID,
		Side:        side,
		LimitPrice:  newPrice,
		OriginalQty: newQty,
		Status:      StatusPending,
		ArrivalTime: arrival,
		ArrivalSeq:  seq,
		Symbol:      symbol,
		ClientID:    clientID,
	}
	matchLoop(me.book, replacement)
	if replacement.Remaining() > 0 {
		_ = me.book.Add(replacement)
	}
	return true
}

// Get returns a read-only snapshot of an order, if known.
func (me *MatchingEngine) Get(orderID string) (Order, bool) {
	me.mu.Lock()
	defer me.mu.Unlock()
	return me.book.Get(orderID)
}

// BestBid, BestAsk, Spread, and Depth are read-through pass-throughs
// to the underlying book.
func (me *MatchingEngine) BestBid() decimal.Decimal {
	me.mu.Lock()
	defer me.mu.Unlock()
	return me.book.BestBid()
}

func (me *MatchingEngine) BestAsk() decimal.Decimal {
	me.mu.Lock()
	defer me.mu.Unlock()
	return me.book.BestAsk()
}

func (me *MatchingEngine) Spread() decimal.Decimal {
	me.mu.Lock()
	defer me.mu.Unlock()
	return me.book.Spread()
}

func (me *MatchingEngine) BidDepth(levels int) []PriceLevelView {
	me.mu.Lock()
	defer me.mu.Unlock()
	return me.book.Depth(Buy, levels)
}

func (me *MatchingEngine) AskDepth(levels int) []PriceLevelView {
	me.mu.Lock()
	defer me.mu.Unlock()
	return me.book.Depth(Sell, levels)
}

// TopOfBook bundles best bid/ask and sizes for the snapshot broadcasts
// the socket and websocket adapters send.
type TopOfBook struct {
	Symbol  string
	BestBid decimal.Decimal
	BestAsk decimal.Decimal
	BidSize int64
	AskSize int64
	Spread  decimal.Decimal
}

// Snapshot returns the current top-of-book, labeled with symbol for
// the caller's convenience (the book itself does not partition by
// symbol).
func (me *MatchingEngine) Snapshot(symbol string) TopOfBook {
	me.mu.Lock()
	defer me.mu.Unlock()
	return TopOfBook{
		Symbol:  symbol,
		BestBid: me.book.BestBid(),
		BestAsk: me.book.BestAsk(),
		BidSize: me.book.BidSize(),
		AskSize: me.book.AskSize(),
		Spread:  me.book.Spread(),
	}
}

// SubmitRequest is one order in a SubmitBatch call.
type SubmitRequest struct {
	Side     Side
	Price    decimal.Decimal
	Qty      int64
	Symbol   string
	ClientID string
}

// SubmitBatch sequentially submits each order using the same match
// algorithm; ordering within the slice defines arrival order. A
// rejected order contributes an empty id at its slot and does not
// stop the rest of the batch from being submitted, mirroring Submit's
// own empty-id-means-rejected contract.
func (me *MatchingEngine) SubmitBatch(orders []SubmitRequest) []string {
	ids := make([]string, len(orders))
	for i, req := range orders {
		id, err := me.Submit(req.Side, req.Price, req.Qty, req.Symbol, req.ClientID)
		if err != nil {
			ids[i] = ""
			continue
		}
		ids[i] = id
	}
	return ids
}
