// Package quote normalizes raw streamer content items into the stable
// Quote schema broadcast to consumers. Both functions are pure per item:
// present raw fields map through a fixed table, absent fields stay nil and
// are omitted from the output JSON.
package quote

import (
	"log/slog"

	"github.com/wheelhouse/quote-relay/internal/model"
	"github.com/wheelhouse/quote-relay/internal/schwab"
)

// Options maps LEVELONE_OPTIONS items to Quotes. An item without a symbol
// key is logged and skipped; the rest of the batch is unaffected.
func Options(items []schwab.OptionItem, logger *slog.Logger) []model.Quote {
	if logger == nil {
		logger = slog.Default()
	}

	quotes := make([]model.Quote, 0, len(items))
	for _, item := range items {
		if item.Key == "" {
			logger.Warn("option item missing symbol key, skipping")
			continue
		}
		quotes = append(quotes, model.Quote{
			Symbol:           item.Key,
			Bid:              item.BidPrice,
			Ask:              item.AskPrice,
			Last:             item.LastPrice,
			BidSize:          item.BidSize,
			AskSize:          item.AskSize,
			Volume:           item.TotalVolume,
			OpenInterest:     item.OpenInterest,
			Delta:            item.Delta,
			Gamma:            item.Gamma,
			Theta:            item.Theta,
			Vega:             item.Vega,
			Rho:              item.Rho,
			IV:               item.Volatility,
			UnderlyingPrice:  item.UnderlyingPrice,
			DaysToExpiration: item.DaysToExpiration,
			TimeValue:        item.TimeValue,
			TheoreticalValue: item.TheoreticalValue,
			Mark:             item.Mark,
			QuoteTime:        item.QuoteTimeMillis,
			TradeTime:        item.TradeTimeMillis,
		})
	}
	return quotes
}

// Equities maps LEVELONE_EQUITIES items to Quotes.
func Equities(items []schwab.EquityItem, logger *slog.Logger) []model.Quote {
	if logger == nil {
		logger = slog.Default()
	}

	quotes := make([]model.Quote, 0, len(items))
	for _, item := range items {
		if item.Key == "" {
			logger.Warn("equity item missing symbol key, skipping")
			continue
		}
		quotes = append(quotes, model.Quote{
			Symbol:           item.Key,
			Bid:              item.BidPrice,
			Ask:              item.AskPrice,
			Last:             item.LastPrice,
			BidSize:          item.BidSize,
			AskSize:          item.AskSize,
			Volume:           item.TotalVolume,
			High:             item.HighPrice,
			Low:              item.LowPrice,
			Open:             item.OpenPrice,
			Close:            item.ClosePrice,
			NetChange:        item.NetChange,
			NetChangePercent: item.NetChangePercent,
			High52Week:       item.High52Week,
			Low52Week:        item.Low52Week,
			Mark:             item.Mark,
			QuoteTime:        item.QuoteTimeMillis,
			TradeTime:        item.TradeTimeMillis,
		})
	}
	return quotes
}
