// Package broadcast fans a single upstream trade listener slot out to
// any number of downstream subscribers (the line socket and websocket
// adapters), since the engine exposes exactly one listener slot but
// the spec requires multiple independent front-ends to observe every
// trade.
package broadcast

import (
	"sync"

	"clobd/engine"
)

// Sink receives every trade and every top-of-book snapshot the hub is
// told about. Implementations must not block for long: trades and
// order-status changes are delivered synchronously on the goroutine
// running the match, while the engine's lock is held.
type Sink interface {
	OnTrade(engine.Trade)
	OnSnapshot(engine.TopOfBook)
	OnOrderStatus(engine.Order)
}

// Hub fans trades and snapshots out to a dynamic set of subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[Sink]struct{}
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{subs: make(map[Sink]struct{})}
}

// Subscribe registers sink to receive future events.
func (h *Hub) Subscribe(sink Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sink] = struct{}{}
}

// Unsubscribe stops sink from receiving future events.
func (h *Hub) Unsubscribe(sink Sink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, sink)
}

// PublishTrade fans a trade out to every current subscriber. It is
// meant to be installed as the engine's TradeListener.
func (h *Hub) PublishTrade(tr engine.Trade) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sink := range h.subs {
		sink.OnTrade(tr)
	}
}

// PublishSnapshot fans a top-of-book snapshot out to every current
// subscriber.
func (h *Hub) PublishSnapshot(snap engine.TopOfBook) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sink := range h.subs {
		sink.OnSnapshot(snap)
	}
}

// PublishOrderStatus fans a resting order's status change out to every
// current subscriber. It is meant to be installed as the engine's
// OrderStatusListener.
func (h *Hub) PublishOrderStatus(order engine.Order) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sink := range h.subs {
		sink.OnOrderStatus(order)
	}
}
