package schwab

import (
	"encoding/json"
	"testing"
)

func TestDecodeOptionItems(t *testing.T) {
	content := json.RawMessage(`[
		{"key": "AAPL  260221C00200000", "2": 4.10, "3": 4.25, "9": 5400, "28": 0.45, "35": 201.5},
		{"key": "AAPL  260221P00195000", "2": 2.80, "10": 0.29}
	]`)

	items, err := DecodeOptionItems(content)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	first := items[0]
	if first.Key != "AAPL  260221C00200000" {
		t.Errorf("key = %q", first.Key)
	}
	if first.BidPrice == nil || *first.BidPrice != 4.10 {
		t.Errorf("bid = %v, want 4.10", first.BidPrice)
	}
	if first.OpenInterest == nil || *first.OpenInterest != 5400 {
		t.Errorf("open interest = %v, want 5400", first.OpenInterest)
	}
	if first.Delta == nil || *first.Delta != 0.45 {
		t.Errorf("delta = %v, want 0.45", first.Delta)
	}
	if first.UnderlyingPrice == nil || *first.UnderlyingPrice != 201.5 {
		t.Errorf("underlying = %v, want 201.5", first.UnderlyingPrice)
	}
	// Fields the streamer omitted stay nil.
	if first.Gamma != nil || first.TradeTimeMillis != nil {
		t.Errorf("absent fields populated: gamma=%v tradeTime=%v", first.Gamma, first.TradeTimeMillis)
	}

	second := items[1]
	if second.Volatility == nil || *second.Volatility != 0.29 {
		t.Errorf("volatility = %v, want 0.29", second.Volatility)
	}
}

func TestDecodeEquityItems(t *testing.T) {
	content := json.RawMessage(`[
		{"key": "SPY", "1": 592.10, "2": 592.15, "8": 41000000, "18": 1.32, "42": 0.22}
	]`)

	items, err := DecodeEquityItems(content)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}

	item := items[0]
	if item.Key != "SPY" {
		t.Errorf("key = %q", item.Key)
	}
	if item.BidPrice == nil || *item.BidPrice != 592.10 {
		t.Errorf("bid = %v, want 592.10", item.BidPrice)
	}
	if item.TotalVolume == nil || *item.TotalVolume != 41000000 {
		t.Errorf("volume = %v, want 41000000", item.TotalVolume)
	}
	if item.NetChangePercent == nil || *item.NetChangePercent != 0.22 {
		t.Errorf("netChangePercent = %v, want 0.22", item.NetChangePercent)
	}
	if item.HighPrice != nil {
		t.Errorf("high = %v, want nil", item.HighPrice)
	}
}

func TestDecodeMalformedContent(t *testing.T) {
	if _, err := DecodeOptionItems(json.RawMessage(`{"not":"an array"}`)); err == nil {
		t.Error("option decode accepted a non-array payload")
	}
	if _, err := DecodeEquityItems(json.RawMessage(`[{"key": 42}]`)); err == nil {
		t.Error("equity decode accepted a numeric key")
	}
}

func TestFieldsFor(t *testing.T) {
	if got := FieldsFor(ServiceOptions); got != optionFields {
		t.Errorf("FieldsFor(options) = %q", got)
	}
	if got := FieldsFor(ServiceEquities); got != equityFields {
		t.Errorf("FieldsFor(equities) = %q", got)
	}
	if got := FieldsFor(ServiceAccountActivity); got != "" {
		t.Errorf("FieldsFor(acct activity) = %q, want empty", got)
	}
}
