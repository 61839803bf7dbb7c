// Package lineserver implements the line-oriented control socket
// (spec.md §6.4): plain TCP, one newline-terminated JSON object per
// message in each direction. It is grounded on the reference
// implementation's SimpleServer (original_source/simple_server.cpp),
// generalized from one thread per client to one goroutine per client.
package lineserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"clobd/engine"
	"clobd/internal/priceutil"
	"clobd/internal/wireproto"
)

// Server accepts plain-TCP clients and relays submit_order/cancel_order
// requests to an engine, broadcasting trades and periodic book
// snapshots to every connected client.
type Server struct {
	eng *engine.MatchingEngine
	log zerolog.Logger

	mu      sync.Mutex
	clients map[net.Conn]struct{}

	listener net.Listener
}

// New creates a Server bound to eng. Call Serve to start accepting
// connections.
func New(eng *engine.MatchingEngine, log zerolog.Logger) *Server {
	return &Server{
		eng:     eng,
		log:     log,
		clients: make(map[net.Conn]struct{}),
	}
}

// Serve listens on addr and blocks, accepting and handling clients
// until the listener is closed (by Close or process shutdown).
func (s *Server) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.log.Info().Str("addr", addr).Msg("lineserver: listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.clients[conn] = struct{}{}
		n := len(s.clients)
		s.mu.Unlock()
		s.log.Info().Int("connections", n).Msg("lineserver: client connected")

		go s.handleClient(conn)
	}
}

// Close stops accepting new connections and closes every client
// connection currently open.
func (s *Server) Close() error {
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		conn.Close()
	}
	s.clients = make(map[net.Conn]struct{})
	return err
}

func (s *Server) handleClient(conn net.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		n := len(s.clients)
		s.mu.Unlock()
		conn.Close()
		s.log.Info().Int("connections", n).Msg("lineserver: client disconnected")
	}()

	s.send(conn, wireproto.NewWelcome("Connected to Limit Order Book Trading System"))

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var msg wireproto.ClientMessage
		if err := json.Unmarshal(line, &msg); err != nil {
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

func (s *Server) handleSubmit(conn net.Conn, msg wireproto.ClientMessage) {
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

	orderID, err := s.eng.Submit(side, price, msg.Quantity, symbol, "SOCKET_CLIENT")
	if err != nil {
		s.send(conn, wireproto.NewError(err.Error()))
		return
	}
	s.send(conn, wireproto.NewOrderSubmitted(orderID))
}

func (s *Server) handleCancel(conn net.Conn, msg wireproto.ClientMessage) {
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

func (s *Server) send(conn net.Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Msg("lineserver: failed to marshal outbound message")
		return
	}
	b = append(b, '\n')
	if _, err := conn.Write(b); err != nil {
		s.log.Warn().Err(err).Msg("lineserver: write failed, client likely disconnected")
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
