package model

import "strings"

// Position types that carry no option leg and are skipped during
// symbol conversion.
const (
	TypeStock   = "stock"
	TypeHolding = "holding"
)

// Position describes one portfolio position as supplied by the portfolio
// service. Read-only to the relay.
type Position struct {
	Ticker     string  `json:"ticker"`
	Type       string  `json:"type"`   // "put", "call", "short_put", "covered_call", "put_spread", ...
	Expiry     string  `json:"expiry"` // YYYY-MM-DD
	Strike     float64 `json:"strike,omitempty"`
	BuyStrike  float64 `json:"buyStrike,omitempty"`  // spread legs only
	SellStrike float64 `json:"sellStrike,omitempty"` // spread legs only
}

// IsOption reports whether the position maps to at least one option contract.
func (p Position) IsOption() bool {
	return p.Type != "" && p.Type != TypeStock && p.Type != TypeHolding
}

// IsSpread reports whether the position is a two-strike spread.
func (p Position) IsSpread() bool {
	return strings.Contains(p.Type, "_spread")
}

// Quote is a normalized level-one quote, keyed by symbol. Option and equity
// quotes share the struct; each instrument class populates its own subset of
// fields and the rest stay nil.
type Quote struct {
	Symbol string `json:"symbol"`

	// Shared fields (both instrument classes)
	Bid     *float64 `json:"bid,omitempty"`
	Ask     *float64 `json:"ask,omitempty"`
	Last    *float64 `json:"last,omitempty"`
	BidSize *int64   `json:"bidSize,omitempty"`
	AskSize *int64   `json:"askSize,omitempty"`
	Volume  *int64   `json:"volume,omitempty"`
	Mark    *float64 `json:"mark,omitempty"`

	// Option-only fields
	OpenInterest     *int64   `json:"openInterest,omitempty"`
	Delta            *float64 `json:"delta,omitempty"`
	Gamma            *float64 `json:"gamma,omitempty"`
	Theta            *float64 `json:"theta,omitempty"`
	Vega             *float64 `json:"vega,omitempty"`
	Rho              *float64 `json:"rho,omitempty"`
	IV               *float64 `json:"iv,omitempty"`
	UnderlyingPrice  *float64 `json:"underlyingPrice,omitempty"`
	DaysToExpiration *int64   `json:"daysToExpiration,omitempty"`
	TimeValue        *float64 `json:"timeValue,omitempty"`
	TheoreticalValue *float64 `json:"theoreticalValue,omitempty"`

	// Equity-only fields
	High             *float64 `json:"high,omitempty"`
	Low              *float64 `json:"low,omitempty"`
	Open             *float64 `json:"open,omitempty"`
	Close            *float64 `json:"close,omitempty"`
	NetChange        *float64 `json:"netChange,omitempty"`
	NetChangePercent *float64 `json:"netChangePercent,omitempty"`
	High52Week       *float64 `json:"high52Week,omitempty"`
	Low52Week        *float64 `json:"low52Week,omitempty"`

	// Timestamps (ms since epoch)
	QuoteTime *int64 `json:"quoteTime,omitempty"`
	TradeTime *int64 `json:"tradeTime,omitempty"`
}
