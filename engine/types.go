package engine

import (
	"container/list"
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies which side of the book an order rests on.
type Side string

// OrderStatus is one of the five terminal/non-terminal states an
// order can occupy over its lifetime.
type OrderStatus string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

const (
	StatusPending         OrderStatus = "PENDING"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusRejected        OrderStatus = "REJECTED"
)

// Order is the identity and mutable fill state of a resting or
// in-flight limit order. The book owns every open Order exclusively;
// callers must not retain a reference across engine calls once the
// order may have been removed from the book.
type Order struct {
	ID             string
	Side           Side
	LimitPrice     decimal.Decimal
	OriginalQty    int64
	FilledQty      int64
	Status         OrderStatus
	ArrivalTime    time.Time
	ArrivalSeq     uint64 // monotonic tie-break within the same ArrivalTime instant
	Symbol         string
	ClientID       string

	// element is this order's node in its PriceLevel's FIFO queue.
	// nil when the order is not resting on the book.
	element *list.Element
}

// Remaining returns the unfilled quantity.
func (o *Order) Remaining() int64 {
	return o.OriginalQty - o.FilledQty
}

// IsFullyFilled reports whether the order has no remaining quantity.
func (o *Order) IsFullyFilled() bool {
	return o.Remaining() == 0
}

// Trade is an immutable receipt of a match between a buy and a sell
// order. The resting side's limit price is always the execution
// price (spec: the aggressor crosses to the resting price).
type Trade struct {
	TradeID     string
	BuyOrderID  string
	SellOrderID string
	Symbol      string
	Price       decimal.Decimal
	Quantity    int64
	Timestamp   time.Time
}

// PriceLevel is a FIFO queue of open orders sharing one (side, price).
type PriceLevel struct {
	Price  decimal.Decimal
	Orders *list.List
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		Orders: list.New(),
	}
}

func (pl *PriceLevel) addOrder(o *Order) {
	o.element = pl.Orders.PushBack(o)
}

func (pl *PriceLevel) removeOrder(o *Order) {
	if o.element != nil {
		pl.Orders.Remove(o.element)
		o.element = nil
	}
}

// TotalRemaining sums remaining quantity across every order resting
// at this level. Never original_qty, per the depth-rendering contract.
func (pl *PriceLevel) TotalRemaining() int64 {
	var total int64
	for e := pl.Orders.Front(); e != nil; e = e.Next() {
		total += e.Value.(*Order).Remaining()
	}
	return total
}

// PriceLevelView is a read-only (price, aggregated remaining
// quantity) pair returned by depth queries.
type PriceLevelView struct {
	Price    decimal.Decimal
	Quantity int64
}
