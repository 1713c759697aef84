// Package strategy provides the trading-strategy configuration and the pure
// decision functions of the engine: entry evaluation, exit evaluation, order
// splitting and fill aggregation. Nothing in this package performs I/O.
package strategy

import (
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/exchange"
)

// DefaultBandWidth is the entry band width used when none is configured.
const DefaultBandWidth = 1.0

// Config holds the strategy parameters for one market window. All prices
// are on the 0-100 percentage scale.
type Config struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// EntryPrice is the lower bound of the entry acceptance band.
	EntryPrice float64 `json:"entryPrice" mapstructure:"entryPrice"`

	// EntryBandWidth widens the band to [EntryPrice, EntryPrice+width].
	// Zero means DefaultBandWidth.
	EntryBandWidth float64 `json:"entryBandWidth" mapstructure:"entryBandWidth"`

	ProfitTargetPrice float64 `json:"profitTargetPrice" mapstructure:"profitTargetPrice"`
	StopLossPrice     float64 `json:"stopLossPrice" mapstructure:"stopLossPrice"`

	// TradeSize is the USD notional per entry.
	TradeSize float64 `json:"tradeSize" mapstructure:"tradeSize"`

	// PriceDifferenceFilter optionally gates entries on the spread between
	// the reference price and the current spot price. Nil disables the gate.
	PriceDifferenceFilter *float64 `json:"priceDifferenceFilter,omitempty" mapstructure:"priceDifferenceFilter"`
}

// BandWidth returns the effective entry band width.
func (c Config) BandWidth() float64 {
	if c.EntryBandWidth <= 0 {
		return DefaultBandWidth
	}
	return c.EntryBandWidth
}

// Validate checks the configuration invariants. Violations are rejected
// here, at configuration time, never at trade time.
func (c Config) Validate() error {
	if c.EntryPrice < 0 || c.EntryPrice > 100 {
		return &exchange.ValidationError{Field: "entryPrice", Message: "must be between 0 and 100"}
	}
	if c.ProfitTargetPrice < 0 || c.ProfitTargetPrice > 100 {
		return &exchange.ValidationError{Field: "profitTargetPrice", Message: "must be between 0 and 100"}
	}
	if c.StopLossPrice < 0 || c.StopLossPrice > 100 {
		return &exchange.ValidationError{Field: "stopLossPrice", Message: "must be between 0 and 100"}
	}
	if c.ProfitTargetPrice <= c.EntryPrice {
		return &exchange.ValidationError{Field: "profitTargetPrice", Message: "must be above entryPrice"}
	}
	if c.StopLossPrice >= c.EntryPrice {
		return &exchange.ValidationError{Field: "stopLossPrice", Message: "must be below entryPrice"}
	}
	if c.TradeSize <= 0 {
		return &exchange.ValidationError{Field: "tradeSize", Message: "must be positive"}
	}
	if c.EntryBandWidth < 0 {
		return &exchange.ValidationError{Field: "entryBandWidth", Message: "must not be negative"}
	}
	if c.PriceDifferenceFilter != nil && *c.PriceDifferenceFilter < 0 {
		return &exchange.ValidationError{Field: "priceDifferenceFilter", Message: "must not be negative"}
	}
	return nil
}
