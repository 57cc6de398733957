package quote

import (
	"encoding/json"
	"testing"

	"github.com/wheelhouse/quote-relay/internal/schwab"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestOptionsFieldMapping(t *testing.T) {
	items := []schwab.OptionItem{{
		Key:              "AAPL  260221P00200000",
		BidPrice:         f64(4.10),
		AskPrice:         f64(4.25),
		LastPrice:        f64(4.15),
		TotalVolume:      i64(1200),
		OpenInterest:     i64(5400),
		Volatility:       f64(0.31),
		BidSize:          i64(12),
		AskSize:          i64(9),
		TimeValue:        f64(4.15),
		DaysToExpiration: i64(182),
		Delta:            f64(-0.45),
		Gamma:            f64(0.03),
		Theta:            f64(-0.02),
		Vega:             f64(0.11),
		Rho:              f64(-0.08),
		TheoreticalValue: f64(4.18),
		UnderlyingPrice:  f64(201.50),
		Mark:             f64(4.17),
		QuoteTimeMillis:  i64(1755955200000),
		TradeTimeMillis:  i64(1755955199000),
	}}

	quotes := Options(items, nil)
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}
	q := quotes[0]

	if q.Symbol != "AAPL  260221P00200000" {
		t.Errorf("symbol = %q", q.Symbol)
	}
	if q.Bid == nil || *q.Bid != 4.10 {
		t.Errorf("bid = %v, want 4.10", q.Bid)
	}
	if q.IV == nil || *q.IV != 0.31 {
		t.Errorf("iv = %v, want 0.31", q.IV)
	}
	if q.Delta == nil || *q.Delta != -0.45 {
		t.Errorf("delta = %v, want -0.45", q.Delta)
	}
	if q.UnderlyingPrice == nil || *q.UnderlyingPrice != 201.50 {
		t.Errorf("underlying = %v, want 201.50", q.UnderlyingPrice)
	}
	if q.DaysToExpiration == nil || *q.DaysToExpiration != 182 {
		t.Errorf("dte = %v, want 182", q.DaysToExpiration)
	}
	if q.QuoteTime == nil || *q.QuoteTime != 1755955200000 {
		t.Errorf("quoteTime = %v", q.QuoteTime)
	}
	// Equity-only fields stay nil on an option quote.
	if q.High != nil || q.NetChange != nil {
		t.Errorf("equity fields set on option quote: high=%v netChange=%v", q.High, q.NetChange)
	}
}

func TestOptionsPrunesAbsentFields(t *testing.T) {
	// A delta tick: only bid and delta changed upstream.
	items := []schwab.OptionItem{{
		Key:      "SPY   260320C00600000",
		BidPrice: f64(2.05),
		Delta:    f64(0.38),
	}}

	quotes := Options(items, nil)
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}

	out, err := json.Marshal(quotes[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]bool{"symbol": true, "bid": true, "delta": true}
	for k := range fields {
		if !want[k] {
			t.Errorf("unexpected field %q in pruned quote: %s", k, out)
		}
	}
	for k := range want {
		if _, ok := fields[k]; !ok {
			t.Errorf("missing field %q: %s", k, out)
		}
	}
}

func TestOptionsSkipsItemWithoutKey(t *testing.T) {
	items := []schwab.OptionItem{
		{BidPrice: f64(1.00)},
		{Key: "QQQ   260117C00500000", BidPrice: f64(3.20)},
	}

	quotes := Options(items, nil)
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}
	if quotes[0].Symbol != "QQQ   260117C00500000" {
		t.Errorf("symbol = %q", quotes[0].Symbol)
	}
}

func TestEquitiesFieldMapping(t *testing.T) {
	items := []schwab.EquityItem{{
		Key:              "SPY",
		BidPrice:         f64(592.10),
		AskPrice:         f64(592.15),
		LastPrice:        f64(592.12),
		BidSize:          i64(300),
		AskSize:          i64(250),
		TotalVolume:      i64(41000000),
		HighPrice:        f64(594.00),
		LowPrice:         f64(589.30),
		ClosePrice:       f64(590.80),
		OpenPrice:        f64(590.90),
		NetChange:        f64(1.32),
		High52Week:       f64(613.23),
		Low52Week:        f64(481.80),
		Mark:             f64(592.12),
		QuoteTimeMillis:  i64(1755955200000),
		TradeTimeMillis:  i64(1755955199500),
		NetChangePercent: f64(0.22),
	}}

	quotes := Equities(items, nil)
	if len(quotes) != 1 {
		t.Fatalf("got %d quotes, want 1", len(quotes))
	}
	q := quotes[0]

	if q.Symbol != "SPY" {
		t.Errorf("symbol = %q", q.Symbol)
	}
	if q.High == nil || *q.High != 594.00 {
		t.Errorf("high = %v, want 594.00", q.High)
	}
	if q.Close == nil || *q.Close != 590.80 {
		t.Errorf("close = %v, want 590.80", q.Close)
	}
	if q.NetChangePercent == nil || *q.NetChangePercent != 0.22 {
		t.Errorf("netChangePercent = %v, want 0.22", q.NetChangePercent)
	}
	if q.High52Week == nil || *q.High52Week != 613.23 {
		t.Errorf("high52Week = %v, want 613.23", q.High52Week)
	}
	// Option-only fields stay nil on an equity quote.
	if q.Delta != nil || q.OpenInterest != nil {
		t.Errorf("option fields set on equity quote: delta=%v oi=%v", q.Delta, q.OpenInterest)
	}
}

func TestEquitiesSkipsItemWithoutKey(t *testing.T) {
	items := []schwab.EquityItem{
		{LastPrice: f64(100)},
	}
	if quotes := Equities(items, nil); len(quotes) != 0 {
		t.Fatalf("got %d quotes, want 0", len(quotes))
	}
}
