// Package wsserver implements the websocket front-end (spec.md §6.4
// alternate transport): the same submit_order/cancel_order JSON
// messages as lineserver, carried over a websocket text frame instead
// of a raw newline-terminated TCP stream. Grounded on the reference
// implementation's WebSocketServer (original_source/websocket_server.hpp
// and .cpp), which layers the identical message shapes over
// websocketpp; here that role is played by gorilla/websocket.
package wsserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"clobd/engine"
	"clobd/internal/priceutil"
	"clobd/internal/wireproto"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server accepts websocket clients on a single HTTP handler and relays
// submit_order/cancel_order requests to an engine, broadcasting trades
// and periodic book snapshots to every connected client.
type Server struct {
	eng *engine.MatchingEngine
	log zerolog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	httpServer *http.Server
}

// New creates a Server bound to eng. Call Serve to start accepting
// connections.
func New(eng *engine.MatchingEngine, log zerolog.Logger) *Server {
	return &Server{
		eng:     eng,
		log:     log,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the HTTP handler that upgrades incoming requests to
// websocket connections, for embedding in a caller-owned mux or test
// server.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleUpgrade)
}

// Serve listens on addr, upgrading every incoming HTTP request to a
// websocket connection, and blocks until the server is closed or
// http.ListenAndServe fails.
func (s *Server) Serve(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.Handler()}
	s.log.Info().Str("addr", addr).Msg("wsserver: listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close stops accepting new connections and closes every client
// connection currently open.
func (s *Server) Close() error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Close()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]struct{})
	return err
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("wsserver: upgrade failed")
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()
	s.log.Info().Int("connections", n).Msg("wsserver: client connected")

	go s.handleClient(conn)
}

func (s *Server) handleClient(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		n := len(s.clients)
		s.mu.Unlock()
		conn.Close()
		s.log.Info().Int("connections", n).Msg("wsserver: client disconnected")
	}()

	s.send(conn, wireproto.NewWelcome("Connected to Limit Order Book Trading System"))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if len(data) == 0 {
			continue
		}

		var msg wireproto.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.send(conn, wireproto.NewError("invalid json"))
			continue
		}

		switch msg.Type {
		case wireproto.TypeSubmitOrder:
			s.handleSubmit(conn, msg)
		case wireproto.TypeCancelOrder:
			s.handleCancel(conn, msg)
		default:
			s.send(conn, wireproto.NewError("unknown message type: "+msg.Type))
		}
	}
}

func (s *Server) handleSubmit(conn *websocket.Conn, msg wireproto.ClientMessage) {
	side, err := parseSide(msg.OrderType)
	if err != nil {
		s.send(conn, wireproto.NewError(err.Error()))
		return
	}
	price, err := priceutil.FromFloat(msg.Price)
	if err != nil {
		s.send(conn, wireproto.NewError("invalid price"))
		return
	}
	symbol := msg.Symbol
	if symbol == "" {
		symbol = "DEFAULT"
	}

	orderID, err := s.eng.Submit(side, price, msg.Quantity, symbol, "WS_CLIENT")
	if err != nil {
		s.send(conn, wireproto.NewError(err.Error()))
		return
	}
	s.send(conn, wireproto.NewOrderSubmitted(orderID))
}

func (s *Server) handleCancel(conn *websocket.Conn, msg wireproto.ClientMessage) {
	ok := s.eng.Cancel(msg.OrderID)
	s.send(conn, wireproto.NewOrderCancelled(msg.OrderID, ok))
}

// OnTrade implements broadcast.Sink, forwarding a trade to every
// connected client.
func (s *Server) OnTrade(tr engine.Trade) {
	s.broadcast(wireproto.TradeBroadcast{
		Type:     "trade",
		TradeID:  tr.TradeID,
		Symbol:   tr.Symbol,
		Price:    priceutil.ToFloat(tr.Price),
		Quantity: tr.Quantity,
	})
}

// OnSnapshot implements broadcast.Sink, forwarding a top-of-book
// snapshot to every connected client.
func (s *Server) OnSnapshot(snap engine.TopOfBook) {
	s.broadcast(wireproto.OrderBookUpdate{
		Type:    "orderbook_update",
		Symbol:  snap.Symbol,
		BestBid: priceutil.ToFloat(snap.BestBid),
		BestAsk: priceutil.ToFloat(snap.BestAsk),
		BidSize: snap.BidSize,
		AskSize: snap.AskSize,
		Spread:  priceutil.ToFloat(snap.Spread),
	})
}

// OnOrderStatus implements broadcast.Sink, forwarding a resting
// order's status change to every connected client.
func (s *Server) OnOrderStatus(o engine.Order) {
	s.broadcast(wireproto.NewOrderStatus(o.ID, string(o.Status), "order status changed"))
}

func (s *Server) send(conn *websocket.Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Msg("wsserver: failed to marshal outbound message")
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		s.log.Warn().Err(err).Msg("wsserver: write failed, client likely disconnected")
	}
}

func (s *Server) broadcast(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		s.send(conn, v)
	}
}

func parseSide(s string) (engine.Side, error) {
	switch s {
	case "BUY", "buy":
		return engine.Buy, nil
	case "SELL", "sell":
		return engine.Sell, nil
	default:
		return "", fmt.Errorf("invalid orderType: %q", s)
	}
}
