// Package csvloader implements the character-separated-file ingress
// adapter (spec.md §6.2): one order per line, comma-separated fields
// side, price, quantity[, symbol[, client_id]].
package csvloader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"clobd/engine"
	"clobd/internal/priceutil"
)

// Load reads r as headerless-or-headered CSV, submitting one order per
// well-formed line to eng. Malformed lines are skipped with a warning
// logged to log; the loader never aborts on a bad line. It returns the
// number of orders successfully submitted and the number of lines
// skipped.
func Load(r io.Reader, eng *engine.MatchingEngine, log zerolog.Logger) (submitted, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows may carry 3, 4, or 5 fields
	reader.TrimLeadingSpace = true

	first := true
	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			var parseErr *csv.ParseError
			if errors.As(readErr, &parseErr) {
				log.Warn().Err(readErr).Msg("csvloader: skipping malformed line")
				skipped++
				continue
			}
			return submitted, skipped, fmt.Errorf("csvloader: %w", readErr)
		}

		if first {
			first = false
			if len(record) > 0 && (record[0] == "type" || record[0] == "Type") {
				continue // header line
			}
		}

		side, price, qty, symbol, clientID, parseErr := parseLine(record)
		if parseErr != nil {
			log.Warn().Err(parseErr).Strs("record", record).Msg("csvloader: skipping malformed line")
			skipped++
			continue
		}

		if _, subErr := eng.Submit(side, price, qty, symbol, clientID); subErr != nil {
			log.Warn().Err(subErr).Str("symbol", symbol).Msg("csvloader: order rejected by engine")
			skipped++
			continue
		}
		submitted++
	}

	return submitted, skipped, nil
}

func parseLine(record []string) (side engine.Side, price decimal.Decimal, qty int64, symbol, clientID string, err error) {
	if len(record) < 3 {
		return "", decimal.Zero, 0, "", "", fmt.Errorf("csvloader: need at least 3 fields, got %d", len(record))
	}

	side, err = parseSide(record[0])
	if err != nil {
		return "", decimal.Zero, 0, "", "", err
	}

	price, err = priceutil.FromString(strings.TrimSpace(record[1]))
	if err != nil {
		return "", decimal.Zero, 0, "", "", fmt.Errorf("csvloader: bad price: %w", err)
	}

	qty, err = strconv.ParseInt(strings.TrimSpace(record[2]), 10, 64)
	if err != nil {
		return "", decimal.Zero, 0, "", "", fmt.Errorf("csvloader: bad quantity: %w", err)
	}

	symbol = "DEFAULT"
	if len(record) > 3 && strings.TrimSpace(record[3]) != "" {
		symbol = strings.TrimSpace(record[3])
	}

	clientID = "CSV_CLIENT"
	if len(record) > 4 && strings.TrimSpace(record[4]) != "" {
		clientID = strings.TrimSpace(record[4])
	}

	return side, price, qty, symbol, clientID, nil
}

func parseSide(s string) (engine.Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return engine.Buy, nil
	case "SELL":
		return engine.Sell, nil
	default:
		return "", fmt.Errorf("csvloader: invalid side %q", s)
	}
}
