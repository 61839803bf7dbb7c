// Package ndjsonloader implements the line-delimited object ingress
// adapter (spec.md §6.3): one flat JSON object per line, with a
// tolerant parser that defaults missing fields rather than rejecting
// the line outright — an object with a non-positive price or quantity
// is left to the engine to reject.
package ndjsonloader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"clobd/engine"
	"clobd/internal/priceutil"
)

type rawObject struct {
	Type     string  `json:"type"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
	Symbol   string  `json:"symbol"`
}

// Load reads r line by line, each line a flat JSON object, submitting
// one order per line to eng. A line that fails to parse as JSON at
// all is skipped with a warning; a well-formed object with a
// non-positive price or quantity is still submitted to the engine and
// rejected there, per spec.md §6.3.
func Load(r io.Reader, eng *engine.MatchingEngine, log zerolog.Logger) (submitted, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		obj := rawObject{
			Type:   "BUY",
			Symbol: "DEFAULT",
		}
		if jsonErr := json.Unmarshal([]byte(line), &obj); jsonErr != nil {
			log.Warn().Err(jsonErr).Str("line", line).Msg("ndjsonloader: skipping malformed line")
			skipped++
			continue
		}

		side, sideErr := parseSide(obj.Type)
		if sideErr != nil {
			log.Warn().Err(sideErr).Str("line", line).Msg("ndjsonloader: skipping malformed line")
			skipped++
			continue
		}

		price, priceErr := priceutil.FromFloat(obj.Price)
		if priceErr != nil {
			log.Warn().Err(priceErr).Str("line", line).Msg("ndjsonloader: skipping non-finite price")
			skipped++
			continue
		}

		symbol := obj.Symbol
		if symbol == "" {
			symbol = "DEFAULT"
		}

		if _, subErr := eng.Submit(side, price, obj.Quantity, symbol, "NDJSON_CLIENT"); subErr != nil {
			log.Warn().Err(subErr).Str("symbol", symbol).Msg("ndjsonloader: order rejected by engine")
			skipped++
			continue
		}
		submitted++
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return submitted, skipped, fmt.Errorf("ndjsonloader: %w", scanErr)
	}
	return submitted, skipped, nil
}

func parseSide(s string) (engine.Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "BUY":
		return engine.Buy, nil
	case "SELL":
		return engine.Sell, nil
	default:
		return "", fmt.Errorf("ndjsonloader: invalid type %q", s)
	}
}
