package schwab

import "encoding/json"

// Content items arrive with numeric field keys; the structs below pin each
// service's shape. Pointer fields stay nil when the streamer omits a field,
// which it does for any value unchanged since the last tick.

// OptionItem is one LEVELONE_OPTIONS content entry.
type OptionItem struct {
	Key              string   `json:"key"` // OCC symbol
	BidPrice         *float64 `json:"2"`
	AskPrice         *float64 `json:"3"`
	LastPrice        *float64 `json:"4"`
	TotalVolume      *int64   `json:"8"`
	OpenInterest     *int64   `json:"9"`
	Volatility       *float64 `json:"10"`
	BidSize          *int64   `json:"16"`
	AskSize          *int64   `json:"17"`
	TimeValue        *float64 `json:"25"`
	DaysToExpiration *int64   `json:"27"`
	Delta            *float64 `json:"28"`
	Gamma            *float64 `json:"29"`
	Theta            *float64 `json:"30"`
	Vega             *float64 `json:"31"`
	Rho              *float64 `json:"32"`
	TheoreticalValue *float64 `json:"34"`
	UnderlyingPrice  *float64 `json:"35"`
	Mark             *float64 `json:"37"`
	QuoteTimeMillis  *int64   `json:"38"`
	TradeTimeMillis  *int64   `json:"39"`
}

// optionFields is the field list requested on LEVELONE_OPTIONS subscribe,
// matching the tags on OptionItem.
const optionFields = "0,2,3,4,8,9,10,16,17,25,27,28,29,30,31,32,34,35,37,38,39"

// EquityItem is one LEVELONE_EQUITIES content entry.
type EquityItem struct {
	Key              string   `json:"key"` // ticker
	BidPrice         *float64 `json:"1"`
	AskPrice         *float64 `json:"2"`
	LastPrice        *float64 `json:"3"`
	BidSize          *int64   `json:"4"`
	AskSize          *int64   `json:"5"`
	TotalVolume      *int64   `json:"8"`
	HighPrice        *float64 `json:"10"`
	LowPrice         *float64 `json:"11"`
	ClosePrice       *float64 `json:"12"`
	OpenPrice        *float64 `json:"17"`
	NetChange        *float64 `json:"18"`
	High52Week       *float64 `json:"19"`
	Low52Week        *float64 `json:"20"`
	Mark             *float64 `json:"33"`
	QuoteTimeMillis  *int64   `json:"34"`
	TradeTimeMillis  *int64   `json:"35"`
	NetChangePercent *float64 `json:"42"`
}

// equityFields is the field list requested on LEVELONE_EQUITIES subscribe.
const equityFields = "0,1,2,3,4,5,8,10,11,12,17,18,19,20,33,34,35,42"

// FieldsFor returns the subscription field list for a service, empty for
// services that take no field parameter.
func FieldsFor(service string) string {
	switch service {
	case ServiceOptions:
		return optionFields
	case ServiceEquities:
		return equityFields
	default:
		return ""
	}
}

// DecodeOptionItems parses LEVELONE_OPTIONS content.
func DecodeOptionItems(content json.RawMessage) ([]OptionItem, error) {
	var items []OptionItem
	if err := json.Unmarshal(content, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// DecodeEquityItems parses LEVELONE_EQUITIES content.
func DecodeEquityItems(content json.RawMessage) ([]EquityItem, error) {
	var items []EquityItem
	if err := json.Unmarshal(content, &items); err != nil {
		return nil, err
	}
	return items, nil
}
