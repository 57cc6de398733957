package occ

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wheelhouse/quote-relay/internal/model"
)

// Format errors. All are recoverable: callers skip the offending item.
var (
	ErrUnrecognizedClass = errors.New("cannot determine put/call from position type")
	ErrInvalidLength     = errors.New("symbol shorter than 21 characters")
	ErrInvalidDate       = errors.New("invalid date in symbol")
)

const (
	expiryLayout = "2006-01-02"
	occDate      = "060102"
)

// Contract holds the components parsed out of an OCC symbol.
type Contract struct {
	Ticker string  `json:"ticker"`
	Expiry string  `json:"expiry"` // YYYY-MM-DD
	Strike float64 `json:"strike"`
	Class  string  `json:"optionClass"` // "put" or "call"
	Symbol string  `json:"occSymbol"`   // the input as given
}

// Encode builds an OCC symbol from position components. The position type
// must contain "put" or "call" (case-insensitive); derived types such as
// "short_put" and "covered_call" resolve through the same substring check.
//
// The strike is scaled by 1000 and zero-padded to 8 digits. Strikes at or
// above $100,000 overflow the field; callers bound strikes below that.
func Encode(ticker, expiry string, strike float64, positionType string) (string, error) {
	date, err := time.Parse(expiryLayout, expiry)
	if err != nil {
		return "", fmt.Errorf("parse expiry %q: %w", expiry, err)
	}

	var flag byte
	switch lower := strings.ToLower(positionType); {
	case strings.Contains(lower, "put"):
		flag = 'P'
	case strings.Contains(lower, "call"):
		flag = 'C'
	default:
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedClass, positionType)
	}

	padded := fmt.Sprintf("%-6s", strings.ToUpper(ticker))
	scaled := int64(math.Round(strike * 1000))

	return fmt.Sprintf("%s%s%c%08d", padded, date.Format(occDate), flag, scaled), nil
}

// Decode parses an OCC symbol back into its components.
// Decode(Encode(x)) == x for tickers of at most 6 characters and strikes
// below $100,000 with at most 3 decimal digits.
func Decode(symbol string) (Contract, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if len(s) < 21 {
		return Contract{}, fmt.Errorf("%w: %q", ErrInvalidLength, symbol)
	}

	date, err := time.Parse(occDate, s[6:12])
	if err != nil {
		return Contract{}, fmt.Errorf("%w: %q", ErrInvalidDate, s[6:12])
	}

	scaled, err := strconv.ParseInt(s[13:21], 10, 64)
	if err != nil {
		return Contract{}, fmt.Errorf("parse strike %q: %w", s[13:21], err)
	}

	class := "call"
	if s[12] == 'P' {
		class = "put"
	}

	return Contract{
		Ticker: strings.TrimSpace(s[:6]),
		Expiry: date.Format(expiryLayout),
		Strike: float64(scaled) / 1000.0,
		Class:  class,
		Symbol: symbol,
	}, nil
}

// PositionsToSymbols converts positions to OCC symbols, order-preserving.
// Non-option positions are skipped; spread positions emit one symbol per
// leg. A position that fails to encode is logged and skipped rather than
// aborting the batch.
func PositionsToSymbols(positions []model.Position, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}

	symbols := make([]string, 0, len(positions))
	for _, pos := range positions {
		if !pos.IsOption() {
			continue
		}

		var strikes []float64
		if pos.IsSpread() {
			if pos.BuyStrike != 0 {
				strikes = append(strikes, pos.BuyStrike)
			}
			if pos.SellStrike != 0 {
				strikes = append(strikes, pos.SellStrike)
			}
		} else {
			strikes = append(strikes, pos.Strike)
		}

		for _, strike := range strikes {
			sym, err := Encode(pos.Ticker, pos.Expiry, strike, pos.Type)
			if err != nil {
				logger.Warn("skipping position",
					"ticker", pos.Ticker,
					"type", pos.Type,
					"error", err,
				)
				continue
			}
			symbols = append(symbols, sym)
		}
	}

	return symbols
}
