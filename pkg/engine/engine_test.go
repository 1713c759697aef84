package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/exchange"
	"github.com/Research-Beta-Team/polymarket-wallet-connected-sub000/pkg/strategy"
)

type staticSpot struct {
	current, reference float64
	ok                 bool
}

func (s staticSpot) Snapshot() (float64, float64, bool) {
	return s.current, s.reference, s.ok
}

func testEngine(ex exchange.Exchange, market *Market, opts ...Option) *Engine {
	provider := MarketProviderFunc(func() *Market { return market })
	base := []Option{
		WithPollInterval(time.Hour),
		WithEngineRetryPolicy(fastRetry()),
		WithExecutorOptions(WithRetryPolicy(fastRetry()), WithLegDelay(0)),
		WithAdaptiveOptions(WithAdaptiveRetryPolicy(fastRetry()), WithAttemptDelay(0)),
	}
	return New(ex, provider, append(base, opts...)...)
}

func TestConfigure_RejectsInvalid(t *testing.T) {
	e := testEngine(newFakeExchange(), nil)

	cfg := entryConfig(10)
	cfg.StopLossPrice = 97

	err := e.Configure(cfg)
	require.Error(t, err)

	var verr *exchange.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "stopLossPrice", verr.Field)
}

func TestConfigure_AppliesValid(t *testing.T) {
	e := testEngine(newFakeExchange(), nil)
	require.NoError(t, e.Configure(entryConfig(10)))

	st := e.GetStatus()
	assert.Equal(t, 0, st.TotalTrades)
	assert.Nil(t, st.Position)
}

func TestTick_SimpleEntry(t *testing.T) {
	ex := newFakeExchange()
	ex.noCreds = true
	ex.pushQuotes("tok-up", "0.964")
	ex.pushQuotes("tok-down", "0.40")

	market := testMarket()
	e := testEngine(ex, &market)
	require.NoError(t, e.Configure(entryConfig(10)))

	e.tick(context.Background())

	st := e.GetStatus()
	require.NotNil(t, st.Position)
	assert.Equal(t, strategy.DirectionUp, st.Position.Direction)
	assert.Equal(t, "tok-up", st.Position.TokenID)
	assert.Equal(t, 10.0, st.Position.Size)
	assert.Equal(t, 96.4, st.Position.EntryPrice)
	assert.Equal(t, 1, st.SuccessfulTrades)
}

func TestTick_TakeProfitCycle(t *testing.T) {
	ex := newFakeExchange()
	ex.noCreds = true
	// Tick 1: up/entry at 96.4. Tick 2: up at 98.5, exit leg at 98.5.
	ex.pushQuotes("tok-up", "0.964", "0.964", "0.985", "0.985")
	ex.pushQuotes("tok-down", "0.40")

	market := testMarket()
	e := testEngine(ex, &market)

	cfg := entryConfig(10)
	cfg.ProfitTargetPrice = 97.5
	require.NoError(t, e.Configure(cfg))

	e.tick(context.Background())
	require.NotNil(t, e.GetStatus().Position)

	e.tick(context.Background())

	st := e.GetStatus()
	assert.Nil(t, st.Position)
	want := (98.5 - 96.4) / 96.4 * 10
	assert.InDelta(t, want, st.TotalProfit, 1e-9)
	assert.Equal(t, 2, st.SuccessfulTrades)

	trades := e.GetTrades()
	require.Len(t, trades, 2)
	assert.Equal(t, exchange.Buy, trades[0].Side)
	assert.Equal(t, exchange.Sell, trades[1].Side)
	assert.Equal(t, "take profit", trades[1].Reason)
}

func TestTick_StopLossCycle(t *testing.T) {
	ex := newFakeExchange()
	ex.noCreds = true
	// Entry at 96.4, then the market collapses to 85.
	ex.pushQuotes("tok-up", "0.964", "0.964", "0.85", "0.85")
	ex.pushQuotes("tok-down", "0.40")

	market := testMarket()
	e := testEngine(ex, &market)
	require.NoError(t, e.Configure(entryConfig(10)))

	e.tick(context.Background())
	e.tick(context.Background())

	st := e.GetStatus()
	assert.Nil(t, st.Position)
	assert.Less(t, st.TotalProfit, 0.0)

	trades := e.GetTrades()
	require.Len(t, trades, 2)
	assert.Equal(t, "stop loss", trades[1].Reason)
}

func TestTick_HoldBetweenThresholds(t *testing.T) {
	ex := newFakeExchange()
	ex.noCreds = true
	ex.pushQuotes("tok-up", "0.964", "0.964", "0.97")
	ex.pushQuotes("tok-down", "0.40")

	market := testMarket()
	e := testEngine(ex, &market)
	require.NoError(t, e.Configure(entryConfig(10)))

	e.tick(context.Background())
	e.tick(context.Background())

	st := e.GetStatus()
	require.NotNil(t, st.Position)
	assert.Equal(t, 97.0, st.Position.CurrentPrice)
	assert.InDelta(t, (97.0-96.4)/96.4*10, st.Position.UnrealizedPnL, 1e-9)
	assert.Equal(t, 1, st.TotalTrades)
}

func TestTick_NoMarketSuspendsEvaluation(t *testing.T) {
	ex := newFakeExchange()
	e := testEngine(ex, nil)
	require.NoError(t, e.Configure(entryConfig(10)))

	e.tick(context.Background())

	assert.Equal(t, 0, ex.priceCalls)
	assert.Empty(t, e.GetTrades())
}

func TestTick_IncompleteMarketSuspendsEvaluation(t *testing.T) {
	ex := newFakeExchange()
	market := Market{Slug: "btc-updown-1h", UpTokenID: "tok-up"}
	e := testEngine(ex, &market)
	require.NoError(t, e.Configure(entryConfig(10)))

	e.tick(context.Background())

	assert.Equal(t, 0, ex.priceCalls)
}

func TestTick_DisabledStrategyNeverEnters(t *testing.T) {
	ex := newFakeExchange()
	ex.noCreds = true
	ex.pushQuotes("tok-up", "0.964")
	ex.pushQuotes("tok-down", "0.40")

	market := testMarket()
	e := testEngine(ex, &market)

	cfg := entryConfig(10)
	cfg.Enabled = false
	require.NoError(t, e.Configure(cfg))

	e.tick(context.Background())

	assert.Nil(t, e.GetStatus().Position)
	assert.Empty(t, e.GetTrades())
}

func TestTick_PriceDifferenceFilter(t *testing.T) {
	filter := 2.0
	cfg := entryConfig(10)
	cfg.PriceDifferenceFilter = &filter

	tests := []struct {
		name      string
		spot      staticSpot
		wantEntry bool
	}{
		{"matching spread", staticSpot{current: 100, reference: 102, ok: true}, true},
		{"mismatched spread", staticSpot{current: 100, reference: 105, ok: true}, false},
		{"feed not ready", staticSpot{ok: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := newFakeExchange()
			ex.noCreds = true
			ex.pushQuotes("tok-up", "0.964")
			ex.pushQuotes("tok-down", "0.40")

			market := testMarket()
			e := testEngine(ex, &market, WithSpotFeed(tt.spot))
			require.NoError(t, e.Configure(cfg))

			e.tick(context.Background())

			if tt.wantEntry {
				assert.NotNil(t, e.GetStatus().Position)
			} else {
				assert.Nil(t, e.GetStatus().Position)
			}
		})
	}
}

func TestSubscribers_ReceiveSnapshots(t *testing.T) {
	ex := newFakeExchange()
	ex.noCreds = true
	ex.pushQuotes("tok-up", "0.964")
	ex.pushQuotes("tok-down", "0.40")

	market := testMarket()
	e := testEngine(ex, &market)

	var statuses []Status
	var recorded []Trade
	e.OnStatusChange(func(s Status) { statuses = append(statuses, s) })
	e.OnTradeRecorded(func(tr Trade) { recorded = append(recorded, tr) })

	require.NoError(t, e.Configure(entryConfig(10)))
	e.tick(context.Background())

	require.NotEmpty(t, statuses)
	require.Len(t, recorded, 1)

	// Mutating a delivered snapshot must not affect engine state.
	last := statuses[len(statuses)-1]
	require.NotNil(t, last.Position)
	last.Position.Size = -1
	assert.Equal(t, 10.0, e.GetStatus().Position.Size)
}

func TestGetTrades_ReturnsCopy(t *testing.T) {
	ex := newFakeExchange()
	ex.noCreds = true
	ex.pushQuotes("tok-up", "0.964")
	ex.pushQuotes("tok-down", "0.40")

	market := testMarket()
	e := testEngine(ex, &market)
	require.NoError(t, e.Configure(entryConfig(10)))
	e.tick(context.Background())

	trades := e.GetTrades()
	require.Len(t, trades, 1)
	trades[0].Status = TradeStatusCancelled

	assert.Equal(t, TradeStatusFilled, e.GetTrades()[0].Status)
}

func TestStartStop(t *testing.T) {
	ex := newFakeExchange()
	e := testEngine(ex, nil, WithPollInterval(10*time.Millisecond))

	require.NoError(t, e.Start())
	assert.Error(t, e.Start())

	time.Sleep(30 * time.Millisecond)
	e.Stop()
	e.Stop()
}
