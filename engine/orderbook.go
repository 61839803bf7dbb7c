package engine

import (
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// bidsLess orders price levels highest-price-first (max side).
func bidsLess(a, b *PriceLevel) bool {
	return a.Price.GreaterThan(b.Price)
}

// asksLess orders price levels lowest-price-first (min side).
func asksLess(a, b *PriceLevel) bool {
	return a.Price.LessThan(b.Price)
}

// TradeListener is invoked synchronously, inside the match loop, for
// every trade the book executes. Implementations must not re-enter
// the engine on the calling goroutine.
type TradeListener func(Trade)

// OrderStatusListener is invoked synchronously whenever a resting
// order's status changes as a side effect of someone else's match
// (spec.md §6.4's order_status broadcast) — not for the submitter's
// own order, which already learns its outcome from Submit's return
// value and, on a fill, from the trade broadcast itself.
type OrderStatusListener func(Order)

// OrderBook holds the two price ladders and the order-id index. It
// does not partition by symbol; symbol is opaque metadata carried on
// each Order and Trade. It is not safe for concurrent use; the owning
// MatchingEngine serializes access with a single lock.
type OrderBook struct {
	bids *btree.BTreeG[*PriceLevel] // highest price first
	asks *btree.BTreeG[*PriceLevel] // lowest price first

	bidLevels map[string]*PriceLevel // keyed by Price.String()
	askLevels map[string]*PriceLevel

	byID map[string]*Order

	bestBid  decimal.Decimal
	bestAsk  decimal.Decimal
	bidSize  int64
	askSize  int64

	listener            TradeListener
	statusListener      OrderStatusListener
}

// NewOrderBook creates an empty order book.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:      btree.NewG(32, bidsLess),
		asks:      btree.NewG(32, asksLess),
		bidLevels: make(map[string]*PriceLevel),
		askLevels: make(map[string]*PriceLevel),
		byID:      make(map[string]*Order),
	}
}

// SetTradeListener registers the single callback invoked synchronously
// on every trade this book executes.
func (ob *OrderBook) SetTradeListener(l TradeListener) {
	ob.listener = l
}

// SetOrderStatusListener registers the single callback invoked
// synchronously whenever a resting order's status changes as a side
// effect of a match against a different, incoming order.
func (ob *OrderBook) SetOrderStatusListener(l OrderStatusListener) {
	ob.statusListener = l
}

func (ob *OrderBook) ladder(side Side) (*btree.BTreeG[*PriceLevel], map[string]*PriceLevel) {
	if side == Buy {
		return ob.bids, ob.bidLevels
	}
	return ob.asks, ob.askLevels
}

// Add inserts order at the tail of its (side, price) level's FIFO
// queue, creating the level if absent. Precondition: order.Remaining()
// > 0 and order.ID not already present.
func (ob *OrderBook) Add(order *Order) error {
	if order.Remaining() <= 0 {
		return ErrInvalidOrder
	}
	if _, exists := ob.byID[order.ID]; exists {
		return ErrInvalidOrder
	}

	tree, levels := ob.ladder(order.Side)
	key := order.LimitPrice.String()
	level, ok := levels[key]
	if !ok {
		level = newPriceLevel(order.LimitPrice)
		levels[key] = level
		tree.ReplaceOrInsert(level)
	}
	level.addOrder(order)
	ob.byID[order.ID] = order

	ob.refreshTopOfBook()
	return nil
}

// Remove deletes order from its ladder and from the id index. It does
// not change order.Status; callers set status before calling Remove
// when the removal represents a cancel rather than a fill. Returns
// whether a removal actually occurred.
func (ob *OrderBook) Remove(orderID string) bool {
	order, ok := ob.byID[orderID]
	if !ok {
		return false
	}
	ob.removeFromLadder(order)
	delete(ob.byID, orderID)
	ob.refreshTopOfBook()
	return true
}

func (ob *OrderBook) removeFromLadder(order *Order) {
	tree, levels := ob.ladder(order.Side)
	key := order.LimitPrice.String()
	level, ok := levels[key]
	if !ok {
		return
	}
	level.removeOrder(order)
	if level.Orders.Len() == 0 {
		delete(levels, key)
		tree.Delete(level)
	}
}

// Cancel marks order as CANCELLED and removes it from the book.
// Returns false if the order is unknown or already terminal.
func (ob *OrderBook) Cancel(orderID string) bool {
	order, ok := ob.byID[orderID]
	if !ok {
		return false
	}
	if isTerminal(order.Status) {
		return false
	}
	order.Status = StatusCancelled
	return ob.Remove(orderID)
}

// notifyStatus invokes the order-status listener, if any, with a
// read-only snapshot of order.
func (ob *OrderBook) notifyStatus(order Order) {
	if ob.statusListener != nil {
		ob.statusListener(order)
	}
}

func isTerminal(s OrderStatus) bool {
	return s == StatusFilled || s == StatusCancelled || s == StatusRejected
}

// Get returns a read-only view of the order, or false if unknown.
func (ob *OrderBook) Get(orderID string) (Order, bool) {
	order, ok := ob.byID[orderID]
	if !ok {
		return Order{}, false
	}
	return *order, true
}

// BestBid returns the best (highest) resting buy price, or zero if
// the bid side is empty.
func (ob *OrderBook) BestBid() decimal.Decimal { return ob.bestBid }

// BestAsk returns the best (lowest) resting sell price, or zero if
// the ask side is empty.
func (ob *OrderBook) BestAsk() decimal.Decimal { return ob.bestAsk }

// BidSize and AskSize return the aggregated remaining quantity at the
// best price on their respective sides.
func (ob *OrderBook) BidSize() int64 { return ob.bidSize }
func (ob *OrderBook) AskSize() int64 { return ob.askSize }

// Spread returns bestAsk - bestBid, or zero unless both sides are
// non-empty.
func (ob *OrderBook) Spread() decimal.Decimal {
	if ob.bestBid.IsZero() || ob.bestAsk.IsZero() {
		return decimal.Zero
	}
	return ob.bestAsk.Sub(ob.bestBid)
}

// Depth returns up to levels (price, aggregated remaining quantity)
// pairs on side, starting from the best price, in the side's natural
// ordering. Empty levels never appear.
func (ob *OrderBook) Depth(side Side, levels int) []PriceLevelView {
	if levels <= 0 {
		return nil
	}
	tree, _ := ob.ladder(side)
	out := make([]PriceLevelView, 0, levels)
	tree.Ascend(func(pl *PriceLevel) bool {
		if len(out) >= levels {
			return false
		}
		qty := pl.TotalRemaining()
		if qty > 0 {
			out = append(out, PriceLevelView{Price: pl.Price, Quantity: qty})
		}
		return true
	})
	return out
}

func (ob *OrderBook) refreshTopOfBook() {
	if bestLevel, ok := ob.bids.Min(); ok {
		ob.bestBid = bestLevel.Price
		ob.bidSize = bestLevel.TotalRemaining()
	} else {
		ob.bestBid = decimal.Zero
		ob.bidSize = 0
	}
	if bestLevel, ok := ob.asks.Min(); ok {
		ob.bestAsk = bestLevel.Price
		ob.askSize = bestLevel.TotalRemaining()
	} else {
		ob.bestAsk = decimal.Zero
		ob.askSize = 0
	}
}

// executeTrade fills quantity between buy and sell at the resting
// order's limit price, builds the Trade record, and invokes the
// listener synchronously. If either order becomes fully filled it is
// removed from its ladder and the id index. It is the caller's
// (match loop's) responsibility to pass the currently-resting order
// as whichever of buy/sell is not the incoming order.
func (ob *OrderBook) executeTrade(buy, sell *Order, quantity int64, tradePrice decimal.Decimal) Trade {
	buy.FilledQty += quantity
	sell.FilledQty += quantity

	transition := func(o *Order) {
		if o.IsFullyFilled() {
			o.Status = StatusFilled
		} else if o.FilledQty > 0 {
			o.Status = StatusPartiallyFilled
		}
	}
	transition(buy)
	transition(sell)

	trade := Trade{
		TradeID:     "T" + uuid.New().String(),
		BuyOrderID:  buy.ID,
		SellOrderID: sell.ID,
		Symbol:      buy.Symbol,
		Price:       tradePrice,
		Quantity:    quantity,
		Timestamp:   time.Now(),
	}

	for _, resting := range []*Order{buy, sell} {
		if resting.IsFullyFilled() {
			if _, open := ob.byID[resting.ID]; open {
				ob.Remove(resting.ID)
			}
		}
	}
	ob.refreshTopOfBook()

	if ob.listener != nil {
		ob.listener(trade)
	}

	return trade
}
