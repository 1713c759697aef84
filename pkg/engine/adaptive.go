package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/exchange"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/pricing"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/retry"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/strategy"
)

const (
	// adaptiveMaxAttempts bounds the adaptive search phase.
	adaptiveMaxAttempts = 5

	// defaultAttemptDelay separates adaptive attempts, giving the market
	// time to move or the exchange time to recover.
	defaultAttemptDelay = 500 * time.Millisecond
)

// AdaptiveExit drives a stop-loss out of the market even when a naive sell
// at the stop price would miss it. It attempts an immediate sell, then a
// bounded sequence of progressively lower targets, then a forced exit at
// whatever the market offers. After a stop-loss triggers the terminal
// outcome is always a closed position, short of a hard failure on the
// final forced attempt, which is surfaced so the next poll retries.
type AdaptiveExit struct {
	executor     *Executor
	ex           exchange.Exchange
	retry        retry.Policy
	log          *logrus.Entry
	attemptDelay time.Duration
}

// AdaptiveOption configures the adaptive exit.
type AdaptiveOption func(*AdaptiveExit)

// WithAttemptDelay overrides the pause between adaptive attempts.
func WithAttemptDelay(d time.Duration) AdaptiveOption {
	return func(a *AdaptiveExit) { a.attemptDelay = d }
}

// WithAdaptiveRetryPolicy overrides the retry policy for price re-fetches.
func WithAdaptiveRetryPolicy(p retry.Policy) AdaptiveOption {
	return func(a *AdaptiveExit) { a.retry = p }
}

// WithAdaptiveLogger sets the logger.
func WithAdaptiveLogger(log *logrus.Entry) AdaptiveOption {
	return func(a *AdaptiveExit) { a.log = log }
}

// NewAdaptiveExit creates the stop-loss exit strategy.
func NewAdaptiveExit(executor *Executor, ex exchange.Exchange, opts ...AdaptiveOption) *AdaptiveExit {
	a := &AdaptiveExit{
		executor:     executor,
		ex:           ex,
		retry:        retry.DefaultPolicy(),
		log:          logrus.WithField("component", "adaptive-exit"),
		attemptDelay: defaultAttemptDelay,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Execute closes pos after a stop-loss trigger at observed price. It
// returns the exit result; an error means the position is still open.
func (a *AdaptiveExit) Execute(ctx context.Context, pos *Position, cfg strategy.Config, observed float64) (*ExitResult, error) {
	// Phase 1: immediate sell at the observed price.
	res, err := a.executor.ExitPosition(ctx, pos, observed, "stop loss")
	if err == nil && res.Closed {
		a.log.WithField("price", observed).Info("immediate stop-loss sell filled")
		return res, nil
	}
	a.log.WithError(err).Warn("immediate sell missed, starting adaptive search")

	// Phase 2: adaptive search over progressively lower targets.
	for attempt := 0; attempt < adaptiveMaxAttempts; attempt++ {
		if attempt > 0 {
			if serr := sleepCtx(ctx, a.attemptDelay); serr != nil {
				return nil, serr
			}
		}

		target := cfg.StopLossPrice - float64(attempt)
		if target < 0 || target > 100 {
			a.log.WithField("target", target).Warn("adaptive target out of range, aborting search")
			break
		}

		live, lerr := a.fetchLivePrice(ctx, pos.TokenID)
		if lerr != nil {
			a.log.WithError(lerr).WithField("attempt", attempt+1).Warn("adaptive price re-fetch failed")
			continue
		}

		a.log.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"target":  target,
			"live":    live,
		}).Info("adaptive exit attempt")

		if live > target {
			continue
		}

		res, err = a.executor.ExitPosition(ctx, pos, live, fmt.Sprintf("adaptive stop loss (attempt %d)", attempt+1))
		if err == nil && res.Closed {
			return res, nil
		}
		a.log.WithError(err).Warn("adaptive exit attempt did not fill")
	}

	// Phase 3: forced exit at whatever the market offers. Remaining
	// exposed is worse than a poor fill.
	live, lerr := a.fetchLivePrice(ctx, pos.TokenID)
	if lerr != nil {
		live = pos.CurrentPrice
		if live == 0 {
			live = observed
		}
	}

	a.log.WithField("price", live).Warn("forcing exit at market")
	res, err = a.executor.ExitPosition(ctx, pos, live, "forced exit")
	if err != nil {
		return nil, fmt.Errorf("forced exit failed, position remains open: %w", err)
	}
	return res, nil
}

// fetchLivePrice re-fetches the held token's BUY-side quote, the same feed
// the evaluators use.
func (a *AdaptiveExit) fetchLivePrice(ctx context.Context, tokenID string) (float64, error) {
	var quote decimal.Decimal
	err := a.retry.Do(ctx, func(ctx context.Context) error {
		var ferr error
		quote, ferr = a.ex.GetPrice(ctx, tokenID, exchange.Buy)
		return ferr
	}, exchange.IsRetryable)
	if err != nil {
		return 0, err
	}
	return pricing.ToPercent(quote), nil
}
