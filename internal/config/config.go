// Package config centralizes the small set of settings the CLI
// harness needs to wire the engine to its adapters.
package config

import (
	"flag"
	"time"
)

// Config holds every knob the demo binary exposes.
type Config struct {
	SocketAddr       string        // line-oriented control socket (spec.md §6.4)
	WebSocketAddr    string        // websocket front-end
	SnapshotInterval time.Duration // periodic book-snapshot broadcast cadence
	CSVFile          string        // optional startup CSV load (spec.md §6.2)
	NDJSONFile       string        // optional startup NDJSON load (spec.md §6.3)
	Symbol           string        // demo symbol for the seeded order set
}

// Parse builds a Config from command-line flags, defaulting to the
// values the spec's CLI harness describes (port 8080, 5-second
// snapshot cadence).
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("clobd", flag.ContinueOnError)
	cfg := Config{}

	fs.StringVar(&cfg.SocketAddr, "socket-addr", ":8080", "listen address for the line-oriented control socket")
	fs.StringVar(&cfg.WebSocketAddr, "ws-addr", ":8081", "listen address for the websocket front-end")
	fs.DurationVar(&cfg.SnapshotInterval, "snapshot-interval", 5*time.Second, "period between orderbook_update broadcasts")
	fs.StringVar(&cfg.CSVFile, "csv-file", "", "optional CSV file to load orders from at startup")
	fs.StringVar(&cfg.NDJSONFile, "ndjson-file", "", "optional newline-delimited JSON file to load orders from at startup")
	fs.StringVar(&cfg.Symbol, "symbol", "AAPL", "symbol used for the demo order set")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
