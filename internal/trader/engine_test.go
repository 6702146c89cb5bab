package trader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"scalpbot/internal/analysis/indicator"
	"scalpbot/internal/gateway/exchange"
	"scalpbot/internal/market"
	"scalpbot/internal/store/model"
	"scalpbot/internal/strategy"
)

type mockGateway struct{ mock.Mock }

func (m *mockGateway) Name() string { return "mock" }

func (m *mockGateway) FetchCandles(ctx context.Context) ([]market.Candle, error) {
	args := m.Called(ctx)
	candles, _ := args.Get(0).([]market.Candle)
	return candles, args.Error(1)
}

func (m *mockGateway) FetchAssetInfo(ctx context.Context) (market.AssetInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(market.AssetInfo), args.Error(1)
}

func (m *mockGateway) FetchAvailableBalance(ctx context.Context, quote string) (float64, error) {
	args := m.Called(ctx, quote)
	return args.Get(0).(float64), args.Error(1)
}

func (m *mockGateway) SetLeverage(ctx context.Context, leverage int) (exchange.Ack, error) {
	args := m.Called(ctx, leverage)
	return args.Get(0).(exchange.Ack), args.Error(1)
}

func (m *mockGateway) SubmitMarketOrder(ctx context.Context, side market.Side, qty float64) (exchange.OrderAck, error) {
	args := m.Called(ctx, side, qty)
	return args.Get(0).(exchange.OrderAck), args.Error(1)
}

func (m *mockGateway) SubmitConditionalOrder(ctx context.Context, req exchange.ConditionalOrder) (exchange.OrderAck, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(exchange.OrderAck), args.Error(1)
}

type stubStrategy struct {
	signal market.Signal
	dist   strategy.Distances
	err    error
}

func (s *stubStrategy) Name() string  { return "stub" }
func (s *stubStrategy) Lookback() int { return 1 }

func (s *stubStrategy) Signal(market.Window) (market.Signal, error) {
	return s.signal, s.err
}

func (s *stubStrategy) Distances(market.Window) (strategy.Distances, error) {
	return s.dist, nil
}

type memJournal struct {
	mu     sync.Mutex
	opened []model.TradeModel
	closed map[string]model.TradeClose
}

func (j *memJournal) RecordOpen(_ context.Context, t *model.TradeModel) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.opened = append(j.opened, *t)
	return nil
}

func (j *memJournal) RecordClose(_ context.Context, id string, c model.TradeClose) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed == nil {
		j.closed = map[string]model.TradeClose{}
	}
	j.closed[id] = c
	return nil
}

func (j *memJournal) ListRecent(context.Context, int) ([]model.TradeModel, error) { return nil, nil }
func (j *memJournal) Close() error                                                { return nil }

type clock struct{ t time.Time }

func (c *clock) now() time.Time      { return c.t }
func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func flatCandles(n int, closePrice float64) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		out[i] = market.Candle{
			OpenTime: int64(i) * 60_000,
			Open:     closePrice,
			High:     closePrice,
			Low:      closePrice,
			Close:    closePrice,
			Volume:   100,
		}
	}
	return out
}

func testSettings() Settings {
	return Settings{Symbol: "DOGEUSDT", QuoteAsset: "USDT", Leverage: 15, RiskPercentage: 0.02, Cooldown: time.Minute}
}

func newTestEngine(t *testing.T, strat strategy.Strategy, opts Options) (*Engine, *mockGateway, *clock) {
	t.Helper()
	gw := &mockGateway{}
	clk := &clock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	opts.Now = clk.now
	e, err := New(gw, strat, testSettings(), opts)
	require.NoError(t, err)

	gw.On("SetLeverage", mock.Anything, 15).Return(exchange.Ack{Symbol: "DOGEUSDT", Leverage: 15}, nil).Once()
	gw.On("FetchAssetInfo", mock.Anything).Return(*dogeAsset(), nil).Once()
	require.NoError(t, e.Configure(context.Background()))
	return e, gw, clk
}

func ack(id string) exchange.OrderAck {
	return exchange.OrderAck{OrderID: id, Symbol: "DOGEUSDT", Status: "NEW"}
}

func TestNewValidatesSettings(t *testing.T) {
	s := testSettings()
	s.Leverage = 0
	_, err := New(&mockGateway{}, &stubStrategy{}, s, Options{})
	assert.ErrorIs(t, err, ErrConfigurationMissing)

	_, err = New(nil, &stubStrategy{}, testSettings(), Options{})
	assert.ErrorIs(t, err, ErrConfigurationMissing)
}

func TestConfigureOrderAndFailure(t *testing.T) {
	gw := &mockGateway{}
	e, err := New(gw, &stubStrategy{}, testSettings(), Options{})
	require.NoError(t, err)

	boom := exchange.Wrap("mock", "leverage", errors.New("rejected"))
	gw.On("SetLeverage", mock.Anything, 15).Return(exchange.Ack{}, boom).Once()
	err = e.Configure(context.Background())
	assert.ErrorIs(t, err, exchange.ErrGatewayFailure)
	gw.AssertNotCalled(t, "FetchAssetInfo", mock.Anything)

	_, err = e.LiveCycle(context.Background())
	assert.ErrorIs(t, err, ErrConfigurationMissing)
}

func TestLiveCycleOpensProtectedPosition(t *testing.T) {
	strat := &stubStrategy{signal: market.SignalBuy, dist: strategy.Distances{StopLoss: 0.01, TakeProfit: 0.02}}
	journal := &memJournal{}
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	e, gw, _ := newTestEngine(t, strat, Options{Journal: journal, Metrics: metrics})

	gw.On("FetchCandles", mock.Anything).Return(flatCandles(30, 0.1), nil).Once()
	gw.On("FetchAvailableBalance", mock.Anything, "USDT").Return(100.0, nil).Once()
	gw.On("SubmitMarketOrder", mock.Anything, market.SideBuy, 300.0).Return(ack("1"), nil).Once()
	gw.On("SubmitConditionalOrder", mock.Anything, exchange.ConditionalOrder{
		Side: market.SideSell, Quantity: 300, Kind: market.ConditionalStop, TriggerPrice: 0.09,
	}).Return(ack("2"), nil).Once()
	gw.On("SubmitConditionalOrder", mock.Anything, exchange.ConditionalOrder{
		Side: market.SideSell, Quantity: 300, Kind: market.ConditionalTakeProfit, TriggerPrice: 0.12,
	}).Return(ack("3"), nil).Once()

	res, err := e.LiveCycle(context.Background())
	require.NoError(t, err)
	gw.AssertExpectations(t)

	assert.Equal(t, market.SignalBuy, res.Signal)
	assert.Equal(t, []string{"1", "2", "3"}, res.OrderIDs)
	require.NotNil(t, res.Opened)

	pos, ok := e.Position()
	require.True(t, ok)
	assert.Equal(t, StateInPosition, e.State())
	assert.Equal(t, market.SideBuy, pos.Side)
	assert.Equal(t, 300.0, pos.Quantity)
	assert.Equal(t, 0.1, pos.EntryPrice)
	require.NotNil(t, pos.StopLossPrice)
	require.NotNil(t, pos.TakeProfitPrice)
	assert.Equal(t, 0.09, *pos.StopLossPrice)
	assert.Equal(t, 0.12, *pos.TakeProfitPrice)

	require.Len(t, journal.opened, 1)
	assert.Equal(t, ModeLive, journal.opened[0].Mode)
	assert.Equal(t, pos.ID, journal.opened[0].TradeID)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.decisions.WithLabelValues("BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.orders.WithLabelValues(ModeLive, "MARKET", "BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.positionOpen))
	assert.Equal(t, 100.0, testutil.ToFloat64(metrics.balance))
}

func TestLiveCycleSkipsConditionalOnZeroDistance(t *testing.T) {
	strat := &stubStrategy{signal: market.SignalSell, dist: strategy.Distances{StopLoss: 0, TakeProfit: 0.02}}
	e, gw, _ := newTestEngine(t, strat, Options{})

	gw.On("FetchCandles", mock.Anything).Return(flatCandles(30, 0.1), nil).Once()
	gw.On("FetchAvailableBalance", mock.Anything, "USDT").Return(100.0, nil).Once()
	gw.On("SubmitMarketOrder", mock.Anything, market.SideSell, 300.0).Return(ack("1"), nil).Once()
	gw.On("SubmitConditionalOrder", mock.Anything, exchange.ConditionalOrder{
		Side: market.SideBuy, Quantity: 300, Kind: market.ConditionalTakeProfit, TriggerPrice: 0.08,
	}).Return(ack("2"), nil).Once()

	_, err := e.LiveCycle(context.Background())
	require.NoError(t, err)
	gw.AssertExpectations(t)
	gw.AssertNumberOfCalls(t, "SubmitConditionalOrder", 1)

	pos, ok := e.Position()
	require.True(t, ok)
	assert.Nil(t, pos.StopLossPrice)
}

func TestLiveCycleHoldSubmitsNothing(t *testing.T) {
	e, gw, _ := newTestEngine(t, &stubStrategy{signal: market.SignalHold}, Options{})
	gw.On("FetchCandles", mock.Anything).Return(flatCandles(30, 0.1), nil).Once()
	gw.On("FetchAvailableBalance", mock.Anything, "USDT").Return(100.0, nil).Once()

	res, err := e.LiveCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, market.SignalHold, res.Signal)
	assert.Nil(t, res.Opened)
	assert.Equal(t, StateFlat, e.State())
	gw.AssertNotCalled(t, "SubmitMarketOrder", mock.Anything, mock.Anything, mock.Anything)
}

func TestLiveCycleCooldown(t *testing.T) {
	strat := &stubStrategy{signal: market.SignalBuy, dist: strategy.Distances{}}
	e, gw, clk := newTestEngine(t, strat, Options{})

	gw.On("FetchCandles", mock.Anything).Return(flatCandles(30, 0.1), nil)
	gw.On("FetchAvailableBalance", mock.Anything, "USDT").Return(100.0, nil)
	gw.On("SubmitMarketOrder", mock.Anything, market.SideBuy, 300.0).Return(ack("1"), nil).Once()

	_, err := e.LiveCycle(context.Background())
	require.NoError(t, err)

	clk.add(30 * time.Second)
	res, err := e.LiveCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	gw.AssertNumberOfCalls(t, "FetchCandles", 1)

	strat.signal = market.SignalHold
	clk.add(31 * time.Second)
	res, err = e.LiveCycle(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, market.SignalHold, res.Signal)
	gw.AssertNumberOfCalls(t, "FetchCandles", 2)
}

func TestLiveCycleEntryAfterCooldownReplacesPosition(t *testing.T) {
	strat := &stubStrategy{signal: market.SignalBuy, dist: strategy.Distances{}}
	e, gw, clk := newTestEngine(t, strat, Options{})

	gw.On("FetchCandles", mock.Anything).Return(flatCandles(30, 0.1), nil)
	gw.On("FetchAvailableBalance", mock.Anything, "USDT").Return(100.0, nil)
	gw.On("SubmitMarketOrder", mock.Anything, market.SideBuy, 300.0).Return(ack("1"), nil).Twice()

	first, err := e.LiveCycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first.Opened)

	clk.add(61 * time.Second)
	second, err := e.LiveCycle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, second.Opened)
	assert.NotEqual(t, first.Opened.ID, second.Opened.ID)

	pos, ok := e.Position()
	require.True(t, ok)
	assert.Equal(t, second.Opened.ID, pos.ID)
	gw.AssertNumberOfCalls(t, "SubmitMarketOrder", 2)
}

func TestLiveCycleGatewayFailureKeepsPosition(t *testing.T) {
	strat := &stubStrategy{signal: market.SignalBuy, dist: strategy.Distances{StopLoss: 0.01, TakeProfit: 0.02}}
	e, gw, clk := newTestEngine(t, strat, Options{})

	boom := exchange.Wrap("mock", "order", errors.New("rejected"))
	gw.On("FetchCandles", mock.Anything).Return(flatCandles(30, 0.1), nil)
	gw.On("FetchAvailableBalance", mock.Anything, "USDT").Return(100.0, nil)
	gw.On("SubmitMarketOrder", mock.Anything, market.SideBuy, 300.0).Return(exchange.OrderAck{}, boom).Once()

	_, err := e.LiveCycle(context.Background())
	assert.ErrorIs(t, err, exchange.ErrGatewayFailure)
	assert.Equal(t, StateFlat, e.State())

	// no entry went through, so the next cycle is not held back by a cooldown
	clk.add(time.Second)
	gw.On("SubmitMarketOrder", mock.Anything, market.SideBuy, 300.0).Return(ack("1"), nil).Once()
	gw.On("SubmitConditionalOrder", mock.Anything, mock.Anything).Return(ack("2"), nil)
	res, err := e.LiveCycle(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res.Opened)
}

func TestLiveCycleProtectiveFailureStartsCooldown(t *testing.T) {
	strat := &stubStrategy{signal: market.SignalBuy, dist: strategy.Distances{StopLoss: 0.01, TakeProfit: 0.02}}
	e, gw, clk := newTestEngine(t, strat, Options{})

	gw.On("FetchCandles", mock.Anything).Return(flatCandles(30, 0.1), nil)
	gw.On("FetchAvailableBalance", mock.Anything, "USDT").Return(100.0, nil)
	gw.On("SubmitMarketOrder", mock.Anything, market.SideBuy, 300.0).Return(ack("1"), nil).Once()
	gw.On("SubmitConditionalOrder", mock.Anything, mock.Anything).
		Return(exchange.OrderAck{}, exchange.Wrap("mock", "stop", errors.New("rejected"))).Once()

	_, err := e.LiveCycle(context.Background())
	assert.ErrorIs(t, err, exchange.ErrGatewayFailure)
	assert.Equal(t, StateFlat, e.State())

	clk.add(10 * time.Second)
	res, err := e.LiveCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

func TestLiveCycleSignalErrorPassesThrough(t *testing.T) {
	strat := &stubStrategy{err: &indicator.InsufficientDataError{Indicator: "rsi", Required: 6, Actual: 2}}
	e, gw, _ := newTestEngine(t, strat, Options{})
	gw.On("FetchCandles", mock.Anything).Return(flatCandles(2, 0.1), nil).Once()

	_, err := e.LiveCycle(context.Background())
	assert.ErrorIs(t, err, indicator.ErrInsufficientData)
	gw.AssertNotCalled(t, "FetchAvailableBalance", mock.Anything, mock.Anything)
}

func TestReplayStepOpenThenClose(t *testing.T) {
	strat := &stubStrategy{signal: market.SignalBuy, dist: strategy.Distances{StopLoss: 0.01, TakeProfit: 0.02}}
	journal := &memJournal{}
	e, gw, _ := newTestEngine(t, strat, Options{Journal: journal})
	e.SetBalance(100)

	res, err := e.ReplayStep(context.Background(), flatCandles(10, 0.1))
	require.NoError(t, err)
	assert.True(t, res.Evaluated)
	require.NotNil(t, res.Opened)
	assert.Equal(t, 300.0, res.Opened.Quantity)
	assert.Equal(t, time.UnixMilli(9*60_000).UTC(), res.Opened.OpenedAt.UTC())

	res, err = e.ReplayStep(context.Background(), flatCandles(10, 0.2))
	require.NoError(t, err)
	assert.False(t, res.Evaluated)
	require.NotNil(t, res.Closed)
	assert.Equal(t, 30.0, res.Closed.PnL)
	assert.Equal(t, CloseTakeProfit, res.Closed.Reason)
	assert.Equal(t, 130.0, e.Balance())
	assert.Equal(t, StateFlat, e.State())

	gw.AssertNotCalled(t, "SubmitMarketOrder", mock.Anything, mock.Anything, mock.Anything)
	gw.AssertNotCalled(t, "FetchCandles", mock.Anything)

	require.Len(t, journal.opened, 1)
	assert.Equal(t, ModeBacktest, journal.opened[0].Mode)
	closed, ok := journal.closed[journal.opened[0].TradeID]
	require.True(t, ok)
	assert.Equal(t, "take_profit", closed.Reason)
}

func TestReplayStepSellLoss(t *testing.T) {
	strat := &stubStrategy{signal: market.SignalSell, dist: strategy.Distances{StopLoss: 0.01, TakeProfit: 0.02}}
	e, _, _ := newTestEngine(t, strat, Options{})
	e.SetBalance(100)

	_, err := e.ReplayStep(context.Background(), flatCandles(10, 0.1))
	require.NoError(t, err)
	res, err := e.ReplayStep(context.Background(), flatCandles(10, 0.2))
	require.NoError(t, err)
	require.NotNil(t, res.Closed)
	assert.Equal(t, -30.0, res.Closed.PnL)
	assert.Equal(t, CloseStopLoss, res.Closed.Reason)
	assert.Equal(t, 70.0, e.Balance())
}

func TestReplayStepInsufficientBalanceIsFatal(t *testing.T) {
	strat := &stubStrategy{signal: market.SignalBuy}
	e, _, _ := newTestEngine(t, strat, Options{})

	_, err := e.ReplayStep(context.Background(), flatCandles(10, 0.1))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = e.ReplayStep(context.Background(), nil)
	assert.ErrorIs(t, err, indicator.ErrInsufficientData)
}

func TestSettleReason(t *testing.T) {
	pos := Position{Side: market.SideBuy, EntryPrice: 100, Quantity: 2}
	s := Settle(pos, 110, time.Time{})
	assert.Equal(t, 20.0, s.PnL)
	assert.Equal(t, CloseNextCandle, s.Reason)
	assert.True(t, s.Win())

	sl := 95.0
	pos.StopLossPrice = &sl
	s = Settle(pos, 94, time.Time{})
	assert.Equal(t, CloseStopLoss, s.Reason)
	assert.Equal(t, -12.0, s.PnL)
}

func TestSnapshot(t *testing.T) {
	e, _, _ := newTestEngine(t, &stubStrategy{signal: market.SignalBuy}, Options{})
	e.SetBalance(100)
	_, err := e.ReplayStep(context.Background(), flatCandles(10, 0.1))
	require.NoError(t, err)

	snap := e.Snapshot()
	assert.Equal(t, "stub", snap.Strategy)
	assert.Equal(t, "mock", snap.Gateway)
	assert.Equal(t, "in_position", snap.State)
	assert.Equal(t, market.SignalBuy, snap.LastSignal)
	require.NotNil(t, snap.Position)
	require.NotNil(t, snap.Asset)
	assert.Equal(t, 5, snap.Asset.PricePrecision)
}

func TestResetReturnsToFlat(t *testing.T) {
	strat := &stubStrategy{signal: market.SignalBuy, dist: strategy.Distances{StopLoss: 0.01, TakeProfit: 0.02}}
	e, _, _ := newTestEngine(t, strat, Options{})
	e.SetBalance(100)
	res, err := e.ReplayStep(context.Background(), flatCandles(10, 0.1))
	require.NoError(t, err)
	require.NotNil(t, res.Opened)
	require.Equal(t, StateInPosition, e.State())

	e.Reset(50)
	assert.Equal(t, StateFlat, e.State())
	assert.Equal(t, 50.0, e.Balance())
	snap := e.Snapshot()
	assert.Nil(t, snap.Position)
	assert.Nil(t, snap.LastTradeAt)
	assert.Equal(t, market.SignalHold, snap.LastSignal)

	res, err = e.ReplayStep(context.Background(), flatCandles(10, 0.1))
	require.NoError(t, err)
	assert.True(t, res.Evaluated)
	assert.Nil(t, res.Closed)
	require.NotNil(t, res.Opened)
}
