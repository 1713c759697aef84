package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/internal/metrics"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/exchange"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/pricing"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/retry"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/strategy"
)

// ErrBusy is returned when an order sequence is already in flight. Callers
// do not queue behind it; the next poll cycle re-evaluates from fresh prices.
var ErrBusy = errors.New("engine: order placement already in flight")

// defaultLegDelay separates split legs to reduce rate-limit pressure.
const defaultLegDelay = 500 * time.Millisecond

// execState is the executor's single-flight state.
type execState int

const (
	stateIdle execState = iota
	stateEnteringPosition
	stateExitingPosition
)

// TradeRecorder receives every finalized trade record. Implemented by the
// engine, which owns the ledger.
type TradeRecorder interface {
	RecordTrade(t Trade)
}

// ExitResult describes the outcome of an exit sequence.
type ExitResult struct {
	Closed   bool
	Realized float64
	Fills    []Fill
}

// Executor turns entry and exit decisions into submitted orders. It honors
// split legs, records a Trade per leg, and enforces at-most-one order
// sequence in flight at a time.
type Executor struct {
	ex         exchange.Exchange
	recorder   TradeRecorder
	retry      retry.Policy
	met        *metrics.Metrics
	log        *logrus.Entry
	legDelay   time.Duration
	feeRateBps int

	mu      sync.Mutex
	state   execState
	pending map[string]Trade // token id -> pending trade awaiting confirmation
}

// ExecutorOption configures the executor.
type ExecutorOption func(*Executor)

// WithRetryPolicy overrides the default retry policy for external calls.
func WithRetryPolicy(p retry.Policy) ExecutorOption {
	return func(x *Executor) { x.retry = p }
}

// WithLegDelay overrides the pause between split legs.
func WithLegDelay(d time.Duration) ExecutorOption {
	return func(x *Executor) { x.legDelay = d }
}

// WithFeeRateBps sets the fee rate passed through to order submission.
func WithFeeRateBps(bps int) ExecutorOption {
	return func(x *Executor) { x.feeRateBps = bps }
}

// WithExecutorMetrics wires metrics into the executor.
func WithExecutorMetrics(m *metrics.Metrics) ExecutorOption {
	return func(x *Executor) { x.met = m }
}

// WithExecutorLogger sets the logger.
func WithExecutorLogger(log *logrus.Entry) ExecutorOption {
	return func(x *Executor) { x.log = log }
}

// NewExecutor creates an order executor.
func NewExecutor(ex exchange.Exchange, recorder TradeRecorder, opts ...ExecutorOption) *Executor {
	x := &Executor{
		ex:       ex,
		recorder: recorder,
		retry:    retry.DefaultPolicy(),
		log:      logrus.WithField("component", "executor"),
		legDelay: defaultLegDelay,
		pending:  make(map[string]Trade),
	}

	for _, opt := range opts {
		opt(x)
	}

	return x
}

// EnterPosition places the buy legs for an entry decision and returns the
// resulting position, extending existing (which may be nil) with every leg
// that filled. A leg that fails is recorded and skipped; zero fills leave
// the position unchanged and return an error.
func (x *Executor) EnterPosition(ctx context.Context, market Market, dir strategy.Direction, cfg strategy.Config, existing *Position) (*Position, error) {
	if !x.tryBegin(stateEnteringPosition) {
		return existing, ErrBusy
	}
	defer x.release()

	tokenID := market.TokenFor(dir)
	legs := strategy.SplitOrder(cfg.TradeSize, cfg.EntryPrice)

	x.log.WithFields(logrus.Fields{
		"market":    market.Slug,
		"direction": dir,
		"size":      cfg.TradeSize,
		"legs":      len(legs),
	}).Info("entering position")

	var fills []Fill
	for i, leg := range legs {
		if i > 0 {
			if err := sleepCtx(ctx, x.legDelay); err != nil {
				break
			}
		}

		fill, err := x.submitLeg(ctx, market.Slug, tokenID, dir, exchange.Buy, leg, "entry signal", nil)
		if err != nil {
			x.log.WithError(err).WithField("leg", i+1).Warn("entry leg failed")
			continue
		}
		fills = append(fills, fill)
	}

	if len(fills) == 0 {
		return existing, fmt.Errorf("enter position: no legs filled")
	}

	all := fills
	if existing != nil {
		all = append(append([]Fill(nil), existing.FilledOrders...), fills...)
	}

	pos := &Position{
		MarketSlug:   market.Slug,
		TokenID:      tokenID,
		Direction:    dir,
		FilledOrders: all,
	}
	var weighted []strategy.Leg
	for _, f := range all {
		pos.Size += f.Size
		weighted = append(weighted, strategy.Leg{Price: f.Price, Size: f.Size})
	}
	pos.EntryPrice = strategy.WeightedAveragePrice(weighted)

	return pos, nil
}

// ExitPosition places the sell legs closing pos at targetPrice. The sell
// side is split with the same staggering rule as entries. Realized profit
// per leg is (fill − entry)/entry × legSize. Zero fills leave the position
// open and return an error; any fill closes the sequence.
func (x *Executor) ExitPosition(ctx context.Context, pos *Position, targetPrice float64, reason string) (*ExitResult, error) {
	if !x.tryBegin(stateExitingPosition) {
		return nil, ErrBusy
	}
	defer x.release()

	legs := strategy.SplitOrder(pos.Size, targetPrice)

	x.log.WithFields(logrus.Fields{
		"market": pos.MarketSlug,
		"size":   pos.Size,
		"target": targetPrice,
		"legs":   len(legs),
		"reason": reason,
	}).Info("exiting position")

	res := &ExitResult{}
	for i, leg := range legs {
		if i > 0 {
			if err := sleepCtx(ctx, x.legDelay); err != nil {
				break
			}
		}

		legSize := leg.Size
		profitFn := func(fillPrice float64) float64 {
			return (fillPrice - pos.EntryPrice) / pos.EntryPrice * legSize
		}

		fill, err := x.submitLeg(ctx, pos.MarketSlug, pos.TokenID, pos.Direction, exchange.Sell, leg, reason, profitFn)
		if err != nil {
			x.log.WithError(err).WithField("leg", i+1).Warn("exit leg failed")
			continue
		}
		res.Fills = append(res.Fills, fill)
		res.Realized += profitFn(fill.Price)
	}

	if len(res.Fills) == 0 {
		return res, fmt.Errorf("exit position: no legs filled")
	}

	res.Closed = true
	return res, nil
}

// submitLeg quotes, validates and submits one leg, recording its Trade in
// the final state. A missing-credentials rejection synthesizes a simulated
// fill at the quoted price instead of failing.
func (x *Executor) submitLeg(ctx context.Context, slug, tokenID string, dir strategy.Direction, side exchange.Side, leg strategy.Leg, reason string, profitFn func(float64) float64) (Fill, error) {
	trade := Trade{
		ID:         uuid.NewString(),
		MarketSlug: slug,
		TokenID:    tokenID,
		Side:       side,
		Size:       leg.Size,
		Price:      leg.Price,
		Timestamp:  time.Now(),
		Status:     TradeStatusPending,
		OrderType:  OrderTypeMarket,
		Direction:  dir,
		Reason:     reason,
	}
	x.setPending(tokenID, trade)
	defer x.clearPending(tokenID, trade.ID)

	var quote decimal.Decimal
	err := x.retry.Do(ctx, func(ctx context.Context) error {
		var ferr error
		quote, ferr = x.ex.GetPrice(ctx, tokenID, side)
		return ferr
	}, exchange.IsRetryable)
	if err != nil {
		return Fill{}, x.failLeg(trade, fmt.Errorf("quote: %w", err))
	}

	if !pricing.ValidQuote(quote) {
		return Fill{}, x.failLeg(trade, &exchange.ValidationError{
			Field:   "price",
			Message: fmt.Sprintf("quote %s outside (0,1)", quote),
		})
	}
	fillPrice := pricing.ToPercent(quote)

	mode := "live"
	var resp *exchange.OrderResponse
	err = x.retry.Do(ctx, func(ctx context.Context) error {
		var serr error
		resp, serr = x.ex.SubmitMarketOrder(ctx, exchange.MarketOrderRequest{
			TokenID:    tokenID,
			Side:       side,
			Amount:     leg.Size,
			FeeRateBps: x.feeRateBps,
		})
		return serr
	}, exchange.IsRetryable)

	switch {
	case errors.Is(err, exchange.ErrNoCredentials):
		// Simulation mode: no credentials means no network submission;
		// the leg fills at the quoted price.
		mode = "simulated"
		resp = &exchange.OrderResponse{OrderID: "sim-" + uuid.NewString()}
	case err != nil:
		return Fill{}, x.failLeg(trade, fmt.Errorf("submit: %w", err))
	}

	trade.Status = TradeStatusFilled
	trade.Price = fillPrice
	trade.OrderID = resp.OrderID
	trade.TransactionHash = resp.TransactionHash
	if profitFn != nil {
		p := profitFn(fillPrice)
		trade.Profit = &p
	}

	x.met.OrderSubmitted(mode, string(side))
	x.met.TradeRecorded(string(TradeStatusFilled))
	x.recorder.RecordTrade(trade)

	x.log.WithFields(logrus.Fields{
		"order_id": trade.OrderID,
		"side":     side,
		"price":    fillPrice,
		"size":     leg.Size,
		"mode":     mode,
	}).Info("leg filled")

	return Fill{
		OrderID:   trade.OrderID,
		Price:     fillPrice,
		Size:      leg.Size,
		Timestamp: time.Now(),
	}, nil
}

// failLeg finalizes a leg's trade record as failed and returns the error.
func (x *Executor) failLeg(trade Trade, err error) error {
	trade.Status = TradeStatusFailed
	trade.Reason = trade.Reason + ": " + err.Error()

	x.met.OrderFailed(string(trade.Side))
	x.met.TradeRecorded(string(TradeStatusFailed))
	x.recorder.RecordTrade(trade)

	return err
}

// CancelPending marks every pending, unconfirmed trade as cancelled and
// returns the cancelled records. Legs already submitted to the exchange
// are not revocable and resolve naturally.
func (x *Executor) CancelPending() []Trade {
	x.mu.Lock()
	defer x.mu.Unlock()

	var cancelled []Trade
	for tokenID, t := range x.pending {
		t.Status = TradeStatusCancelled
		cancelled = append(cancelled, t)
		delete(x.pending, tokenID)
	}
	return cancelled
}

func (x *Executor) tryBegin(s execState) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.state != stateIdle {
		return false
	}
	x.state = s
	return true
}

func (x *Executor) release() {
	x.mu.Lock()
	x.state = stateIdle
	x.mu.Unlock()
}

func (x *Executor) setPending(tokenID string, t Trade) {
	x.mu.Lock()
	x.pending[tokenID] = t
	x.mu.Unlock()
}

func (x *Executor) clearPending(tokenID, tradeID string) {
	x.mu.Lock()
	if t, ok := x.pending[tokenID]; ok && t.ID == tradeID {
		delete(x.pending, tokenID)
	}
	x.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
