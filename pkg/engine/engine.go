package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/internal/metrics"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/exchange"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/pricing"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/retry"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/strategy"
)

// defaultPollInterval is the trading-condition check cadence.
const defaultPollInterval = 2 * time.Second

// ConfigStore persists the strategy configuration across restarts. The
// trade ledger and position are in-memory only, deliberately.
type ConfigStore interface {
	SaveStrategy(cfg strategy.Config) error
}

// Engine is the top-level orchestrator. It owns the poll loop, the strategy
// configuration, the current position, the trade ledger and the derived
// status; all mutation happens on the poll goroutine or under its mutex,
// and subscribers only ever receive copies.
type Engine struct {
	markets  MarketProvider
	ex       exchange.Exchange
	executor *Executor
	adaptive *AdaptiveExit
	spot     SpotFeed
	store    ConfigStore
	retry    retry.Policy
	met      *metrics.Metrics
	log      *logrus.Entry

	pollInterval time.Duration
	execOpts     []ExecutorOption
	adaptiveOpts []AdaptiveOption

	mu           sync.RWMutex
	cfg          strategy.Config
	position     *Position
	trades       []Trade
	successCount int
	failCount    int
	totalProfit  float64
	statusSubs   []func(Status)
	tradeSubs    []func(Trade)

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures the engine.
type Option func(*Engine)

// WithPollInterval overrides the trading-condition poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.pollInterval = d }
}

// WithSpotFeed supplies the spot observation for the price-difference filter.
func WithSpotFeed(feed SpotFeed) Option {
	return func(e *Engine) { e.spot = feed }
}

// WithConfigStore persists configuration changes to the store.
func WithConfigStore(store ConfigStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithMetrics wires metrics into the engine and its executor.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.met = m }
}

// WithLogger sets the logger.
func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) { e.log = log }
}

// WithEngineRetryPolicy overrides the retry policy for the engine's own
// price fetches.
func WithEngineRetryPolicy(p retry.Policy) Option {
	return func(e *Engine) { e.retry = p }
}

// WithExecutorOptions passes options through to the executor.
func WithExecutorOptions(opts ...ExecutorOption) Option {
	return func(e *Engine) { e.execOpts = append(e.execOpts, opts...) }
}

// WithAdaptiveOptions passes options through to the adaptive exit.
func WithAdaptiveOptions(opts ...AdaptiveOption) Option {
	return func(e *Engine) { e.adaptiveOpts = append(e.adaptiveOpts, opts...) }
}

// New creates a trading engine over the given exchange and market provider.
func New(ex exchange.Exchange, markets MarketProvider, opts ...Option) *Engine {
	e := &Engine{
		markets:      markets,
		ex:           ex,
		retry:        retry.DefaultPolicy(),
		log:          logrus.WithField("component", "engine"),
		pollInterval: defaultPollInterval,
	}

	for _, opt := range opts {
		opt(e)
	}

	execOpts := append([]ExecutorOption{WithExecutorMetrics(e.met)}, e.execOpts...)
	e.executor = NewExecutor(ex, e, execOpts...)
	e.adaptive = NewAdaptiveExit(e.executor, ex, e.adaptiveOpts...)

	return e
}

// Configure validates and applies a new strategy configuration, persisting
// it when a store is wired.
func (e *Engine) Configure(cfg strategy.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.SaveStrategy(cfg); err != nil {
			e.log.WithError(err).Warn("failed to persist strategy config")
		}
	}

	e.log.WithFields(logrus.Fields{
		"enabled":       cfg.Enabled,
		"entry":         cfg.EntryPrice,
		"band_width":    cfg.BandWidth(),
		"profit_target": cfg.ProfitTargetPrice,
		"stop_loss":     cfg.StopLossPrice,
		"trade_size":    cfg.TradeSize,
	}).Info("strategy configured")

	e.publishStatus()
	return nil
}

// Start begins the poll loop.
func (e *Engine) Start() error {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.cancel != nil {
		return errors.New("engine: already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(ctx)

	e.log.WithField("poll_interval", e.pollInterval).Info("trading engine started")
	return nil
}

// Stop ends the poll loop and cancels pending, unconfirmed trades. Legs
// already submitted to the exchange resolve naturally.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.cancel == nil {
		return
	}
	e.cancel()
	e.cancel = nil
	<-e.done

	for _, t := range e.executor.CancelPending() {
		e.met.TradeRecorded(string(TradeStatusCancelled))
		e.RecordTrade(t)
	}

	e.log.Info("trading engine stopped")
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	e.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// tick runs one poll cycle. It never lets a failure escape into the loop;
// anything thrown inside one cycle is logged and the next tick starts clean.
func (e *Engine) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("panic", r).Error("poll cycle panicked")
		}
	}()

	e.met.PollCycle()

	market := e.markets.ActiveMarket()
	if market == nil || !market.Tradeable() {
		return
	}

	up, err := e.fetchPercent(ctx, market.UpTokenID)
	if err != nil {
		e.log.WithError(err).Warn("up price fetch failed")
		return
	}
	down, err := e.fetchPercent(ctx, market.DownTokenID)
	if err != nil {
		e.log.WithError(err).Warn("down price fetch failed")
		return
	}

	e.mu.Lock()
	cfg := e.cfg
	if e.position != nil {
		observed := up
		if e.position.Direction == strategy.DirectionDown {
			observed = down
		}
		e.position.CurrentPrice = observed
		e.position.UnrealizedPnL = (observed - e.position.EntryPrice) / e.position.EntryPrice * e.position.Size
		e.met.SetUnrealizedPnL(e.position.UnrealizedPnL)
	}
	pos := e.position.Clone()
	e.mu.Unlock()

	if pos == nil {
		e.evaluateEntry(ctx, *market, cfg, up, down)
		return
	}

	e.publishStatus()
	e.evaluateExit(ctx, cfg, pos, up, down)
}

func (e *Engine) evaluateEntry(ctx context.Context, market Market, cfg strategy.Config, up, down float64) {
	in := strategy.EntryInput{UpPrice: up, DownPrice: down}
	if e.spot != nil {
		if current, reference, ok := e.spot.Snapshot(); ok {
			in.Spot = &strategy.SpotObservation{Current: current, Reference: reference}
		}
	}

	decision := strategy.EvaluateEntry(cfg, in)
	if decision == nil {
		return
	}

	e.log.WithFields(logrus.Fields{
		"direction": decision.Direction,
		"price":     decision.Price,
	}).Info("entry condition matched")

	pos, err := e.executor.EnterPosition(ctx, market, decision.Direction, cfg, nil)
	if err != nil {
		if errors.Is(err, ErrBusy) {
			return
		}
		e.log.WithError(err).Error("entry failed")
		return
	}

	pos.CurrentPrice = decision.Price
	e.mu.Lock()
	e.position = pos
	e.mu.Unlock()
	e.publishStatus()
}

func (e *Engine) evaluateExit(ctx context.Context, cfg strategy.Config, pos *Position, up, down float64) {
	action, observed := strategy.EvaluateExit(cfg, pos.Direction, up, down)

	var (
		res *ExitResult
		err error
	)
	switch action {
	case strategy.ExitTakeProfit:
		e.log.WithField("price", observed).Info("profit target reached")
		res, err = e.executor.ExitPosition(ctx, pos, observed, "take profit")
	case strategy.ExitStopLoss:
		e.log.WithField("price", observed).Warn("stop loss triggered")
		res, err = e.adaptive.Execute(ctx, pos, cfg, observed)
	default:
		return
	}

	if err != nil {
		if errors.Is(err, ErrBusy) {
			return
		}
		// Position remains open; the next poll cycle re-evaluates.
		e.log.WithError(err).Error("exit failed")
		return
	}

	e.mu.Lock()
	e.position = nil
	e.totalProfit += res.Realized
	total := e.totalProfit
	e.mu.Unlock()

	e.met.PositionClosed(action.String())
	e.met.SetRealizedProfit(total)
	e.met.SetUnrealizedPnL(0)

	e.log.WithFields(logrus.Fields{
		"realized": res.Realized,
		"total":    total,
		"reason":   action.String(),
	}).Info("position closed")

	e.publishStatus()
}

// RecordTrade appends a finalized trade to the ledger and notifies
// subscribers. Implements TradeRecorder for the executor.
func (e *Engine) RecordTrade(t Trade) {
	e.mu.Lock()
	e.trades = append(e.trades, t)
	switch t.Status {
	case TradeStatusFilled:
		e.successCount++
	case TradeStatusFailed:
		e.failCount++
	}
	subs := append([]func(Trade){}, e.tradeSubs...)
	e.mu.Unlock()

	for _, fn := range subs {
		fn(t)
	}
	e.publishStatus()
}

// OnStatusChange registers a status subscriber.
func (e *Engine) OnStatusChange(fn func(Status)) {
	e.mu.Lock()
	e.statusSubs = append(e.statusSubs, fn)
	e.mu.Unlock()
}

// OnTradeRecorded registers a trade subscriber.
func (e *Engine) OnTradeRecorded(fn func(Trade)) {
	e.mu.Lock()
	e.tradeSubs = append(e.tradeSubs, fn)
	e.mu.Unlock()
}

// GetStatus returns a snapshot of the current trading status.
func (e *Engine) GetStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.statusLocked()
}

// GetTrades returns a copy of the trade ledger in record order.
func (e *Engine) GetTrades() []Trade {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Trade(nil), e.trades...)
}

func (e *Engine) statusLocked() Status {
	return Status{
		TotalTrades:      len(e.trades),
		SuccessfulTrades: e.successCount,
		FailedTrades:     e.failCount,
		TotalProfit:      e.totalProfit,
		Position:         e.position.Clone(),
	}
}

func (e *Engine) publishStatus() {
	e.mu.RLock()
	st := e.statusLocked()
	subs := append([]func(Status){}, e.statusSubs...)
	e.mu.RUnlock()

	for _, fn := range subs {
		fn(st)
	}
}

// fetchPercent fetches a token's BUY-side quote and converts it to the
// 0-100 scale, retrying transient failures.
func (e *Engine) fetchPercent(ctx context.Context, tokenID string) (float64, error) {
	var quote decimal.Decimal
	err := e.retry.Do(ctx, func(ctx context.Context) error {
		var ferr error
		quote, ferr = e.ex.GetPrice(ctx, tokenID, exchange.Buy)
		return ferr
	}, exchange.IsRetryable)
	if err != nil {
		return 0, err
	}
	return pricing.ToPercent(quote), nil
}
