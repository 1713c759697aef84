// Package engine contains the trading engine: the poll loop, the order
// executor with its single-flight guard, and the adaptive stop-loss exit.
package engine

import (
	"time"

	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/exchange"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/strategy"
)

// Market is the active token pair the engine trades. Both token ids must be
// non-empty for trading to proceed; an absent market suspends evaluation
// for the poll cycle.
type Market struct {
	Slug        string
	UpTokenID   string
	DownTokenID string
}

// TokenFor returns the token id for a direction.
func (m Market) TokenFor(dir strategy.Direction) string {
	if dir == strategy.DirectionDown {
		return m.DownTokenID
	}
	return m.UpTokenID
}

// Tradeable reports whether the market carries both token ids.
func (m Market) Tradeable() bool {
	return m.UpTokenID != "" && m.DownTokenID != ""
}

// MarketProvider supplies the currently active market. Implemented by the
// discovery collaborator; nil result suspends evaluation.
type MarketProvider interface {
	ActiveMarket() *Market
}

// MarketProviderFunc adapts a function to the MarketProvider interface.
type MarketProviderFunc func() *Market

func (f MarketProviderFunc) ActiveMarket() *Market { return f() }

// SpotFeed supplies the spot observation for the price-difference filter.
type SpotFeed interface {
	// Snapshot returns the current spot price and the window-open
	// reference price. ok is false until both have been observed.
	Snapshot() (current, reference float64, ok bool)
}

// TradeStatus is the lifecycle state of a trade record.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusFilled    TradeStatus = "filled"
	TradeStatusFailed    TradeStatus = "failed"
	TradeStatusCancelled TradeStatus = "cancelled"
)

// OrderType distinguishes market from legacy limit orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// Trade is one entry in the append-only trade ledger. Each submitted
// order, including every leg of a split, produces its own Trade. Trades
// are immutable once filled or failed.
type Trade struct {
	ID              string             `json:"id"`
	MarketSlug      string             `json:"marketSlug"`
	TokenID         string             `json:"tokenId"`
	Side            exchange.Side      `json:"side"`
	Size            float64            `json:"size"`
	Price           float64            `json:"price"`
	Timestamp       time.Time          `json:"timestamp"`
	Status          TradeStatus        `json:"status"`
	OrderType       OrderType          `json:"orderType"`
	Direction       strategy.Direction `json:"direction"`
	Reason          string             `json:"reason"`
	Profit          *float64           `json:"profit,omitempty"`
	OrderID         string             `json:"orderId,omitempty"`
	TransactionHash string             `json:"transactionHash,omitempty"`
}

// Fill is one filled sub-order of a position.
type Fill struct {
	OrderID   string    `json:"orderId"`
	Price     float64   `json:"price"`
	Size      float64   `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

// Position is the single live holding. At most one exists at a time, owned
// exclusively by the engine. CurrentPrice and UnrealizedPnL are transient,
// recomputed every poll.
type Position struct {
	MarketSlug    string             `json:"marketSlug"`
	TokenID       string             `json:"tokenId"`
	Direction     strategy.Direction `json:"direction"`
	Size          float64            `json:"size"`
	EntryPrice    float64            `json:"entryPrice"`
	FilledOrders  []Fill             `json:"filledOrders"`
	CurrentPrice  float64            `json:"currentPrice"`
	UnrealizedPnL float64            `json:"unrealizedPnL"`
}

// Clone returns a deep copy safe to hand to subscribers.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	cp := *p
	cp.FilledOrders = append([]Fill(nil), p.FilledOrders...)
	return &cp
}

// Status is the derived trading status published to subscribers after
// every mutation.
type Status struct {
	TotalTrades      int       `json:"totalTrades"`
	SuccessfulTrades int       `json:"successfulTrades"`
	FailedTrades     int       `json:"failedTrades"`
	TotalProfit      float64   `json:"totalProfit"`
	Position         *Position `json:"position,omitempty"`
}
