// Command clobd is the demo/CLI harness (spec.md §6.5): it wires the
// matching engine to both ingress adapters, seeds the book with the
// reference implementation's demonstration order set, and broadcasts
// trades and periodic snapshots until a line (or end of input) arrives
// on standard input. Grounded on the
// reference implementation's main.cpp and the teacher's main.go.
package main

import (
	"bufio"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"clobd/engine"
	"clobd/internal/broadcast"
	"clobd/internal/config"
	"clobd/internal/csvloader"
	"clobd/internal/lineserver"
	"clobd/internal/ndjsonloader"
	"clobd/internal/wsserver"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Str("component", "clobd").Logger()

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Error().Err(err).Msg("failed to parse configuration")
		return 1
	}

	eng := engine.NewMatchingEngine()
	hub := broadcast.New()
	eng.SetTradeListener(hub.PublishTrade)
	eng.SetOrderStatusListener(hub.PublishOrderStatus)

	lineSrv := lineserver.New(eng, log.With().Str("adapter", "lineserver").Logger())
	hub.Subscribe(lineSrv)

	wsSrv := wsserver.New(eng, log.With().Str("adapter", "wsserver").Logger())
	hub.Subscribe(wsSrv)

	if cfg.CSVFile != "" {
		if err := loadCSV(cfg.CSVFile, eng, log); err != nil {
			log.Error().Err(err).Str("file", cfg.CSVFile).Msg("csv startup load failed")
			return 1
		}
	}
	if cfg.NDJSONFile != "" {
		if err := loadNDJSON(cfg.NDJSONFile, eng, log); err != nil {
			log.Error().Err(err).Str("file", cfg.NDJSONFile).Msg("ndjson startup load failed")
			return 1
		}
	}

	seedDemoOrders(eng, cfg.Symbol, log)

	errCh := make(chan error, 2)
	go func() {
		if err := lineSrv.Serve(cfg.SocketAddr); err != nil {
			errCh <- err
		}
	}()
	go func() {
		if err := wsSrv.Serve(cfg.WebSocketAddr); err != nil {
			errCh <- err
		}
	}()

	stop := make(chan struct{})
	ticker := time.NewTicker(cfg.SnapshotInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				hub.PublishSnapshot(eng.Snapshot(cfg.Symbol))
			case <-stop:
				return
			}
		}
	}()

	log.Info().
		Str("socket_addr", cfg.SocketAddr).
		Str("ws_addr", cfg.WebSocketAddr).
		Msg("clobd ready, press enter to shut down")

	waitCh := make(chan struct{})
	go func() {
		bufio.NewReader(os.Stdin).ReadString('\n')
		close(waitCh)
	}()

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("adapter failed to bind")
		close(stop)
		return 1
	case <-waitCh:
	}

	close(stop)
	lineSrv.Close()
	wsSrv.Close()
	log.Info().Msg("clobd shut down")
	return 0
}

func loadCSV(path string, eng *engine.MatchingEngine, log zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	submitted, skipped, err := csvloader.Load(f, eng, log)
	log.Info().Int("submitted", submitted).Int("skipped", skipped).Msg("csv startup load complete")
	return err
}

func loadNDJSON(path string, eng *engine.MatchingEngine, log zerolog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	submitted, skipped, err := ndjsonloader.Load(f, eng, log)
	log.Info().Int("submitted", submitted).Int("skipped", skipped).Msg("ndjson startup load complete")
	return err
}

// seedDemoOrders reproduces the reference implementation's main.cpp
// demonstration order set: three resting sells, then three buys. The
// first buy fills fully against the best ask, the second rests below
// the ask without crossing, and the third sweeps two ask levels and
// rests its residual.
func seedDemoOrders(eng *engine.MatchingEngine, symbol string, log zerolog.Logger) {
	ids := eng.SubmitBatch([]engine.SubmitRequest{
		{Side: engine.Sell, Price: decimal.NewFromFloat(100.50), Qty: 100, Symbol: symbol, ClientID: "DEMO"},
		{Side: engine.Sell, Price: decimal.NewFromFloat(100.25), Qty: 50, Symbol: symbol, ClientID: "DEMO"},
		{Side: engine.Sell, Price: decimal.NewFromFloat(99.75), Qty: 75, Symbol: symbol, ClientID: "DEMO"},
		{Side: engine.Buy, Price: decimal.NewFromFloat(100.00), Qty: 60, Symbol: symbol, ClientID: "DEMO"},
		{Side: engine.Buy, Price: decimal.NewFromFloat(99.50), Qty: 40, Symbol: symbol, ClientID: "DEMO"},
		{Side: engine.Buy, Price: decimal.NewFromFloat(100.30), Qty: 80, Symbol: symbol, ClientID: "DEMO"},
	})
	log.Info().Strs("order_ids", ids).Msg("seeded demonstration order set")
}
