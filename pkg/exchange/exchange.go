// Package exchange defines the order-submission capability the trading
// engine depends on, together with its error taxonomy. Implementations do
// the actual network I/O; the engine treats them as a black box with
// latency and transient failures.
package exchange

import (
	"context"

	"github.com/shopspring/decimal"
)

// Side is the order side on the CLOB.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// MarketOrderRequest describes a FAK market order. Amount is USD notional
// for BUY orders and shares for SELL orders.
type MarketOrderRequest struct {
	TokenID    string
	Side       Side
	Amount     float64
	FeeRateBps int
}

// OrderResponse is the exchange acknowledgement of a submitted order.
type OrderResponse struct {
	OrderID         string
	TransactionHash string
}

// Exchange quotes prices and submits market orders against outcome tokens.
type Exchange interface {
	// GetPrice fetches the current quote for tokenID on the given side,
	// as a decimal in (0,1). Fails with *PriceFetchError when unavailable.
	GetPrice(ctx context.Context, tokenID string, side Side) (decimal.Decimal, error)

	// SubmitMarketOrder submits a FAK market order. The submission is
	// atomic success or failure; the exchange cancels any unfilled
	// remainder itself. Fails with *OrderError on rejection and
	// ErrNoCredentials when the client has no signing credentials.
	SubmitMarketOrder(ctx context.Context, req MarketOrderRequest) (*OrderResponse, error)
}
