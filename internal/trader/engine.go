// Package trader is the position lifecycle engine. It owns the single
// position, turns strategy signals into orders and settles replayed trades.
package trader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"scalpbot/internal/analysis/indicator"
	"scalpbot/internal/gateway/exchange"
	"scalpbot/internal/gateway/notifier"
	"scalpbot/internal/logger"
	"scalpbot/internal/market"
	"scalpbot/internal/pkg/numeric"
	"scalpbot/internal/store"
	"scalpbot/internal/strategy"
)

const (
	ModeLive     = "live"
	ModeBacktest = "backtest"
)

// DefaultCooldown is the minimum time between two live entries.
const DefaultCooldown = 60 * time.Second

type Settings struct {
	Symbol         string
	QuoteAsset     string
	Leverage       int
	RiskPercentage float64
	Cooldown       time.Duration
}

func (s Settings) validate() error {
	if s.Leverage <= 0 {
		return fmt.Errorf("%w: leverage must be > 0", ErrConfigurationMissing)
	}
	if !(s.RiskPercentage > 0) {
		return fmt.Errorf("%w: risk_percentage must be > 0", ErrConfigurationMissing)
	}
	if s.QuoteAsset == "" {
		return fmt.Errorf("%w: quote asset", ErrConfigurationMissing)
	}
	return nil
}

// Options carries the optional collaborators of an Engine.
type Options struct {
	Metrics  *Metrics
	Journal  store.TradeJournal
	Notifier notifier.TextNotifier
	Now      func() time.Time
}

type Engine struct {
	gw       exchange.Gateway
	strat    strategy.Strategy
	settings Settings
	metrics  *Metrics
	journal  store.TradeJournal
	notifier notifier.TextNotifier
	now      func() time.Time
	log      *logger.Component

	mu          sync.RWMutex
	asset       *market.AssetInfo
	position    *Position
	lastTradeAt time.Time
	balance     float64
	lastSignal  market.Signal
}

func New(gw exchange.Gateway, strat strategy.Strategy, settings Settings, opts Options) (*Engine, error) {
	if gw == nil || strat == nil {
		return nil, fmt.Errorf("%w: gateway and strategy are required", ErrConfigurationMissing)
	}
	if err := settings.validate(); err != nil {
		return nil, err
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = DefaultCooldown
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	n := opts.Notifier
	if n == nil {
		n = notifier.Nop{}
	}
	return &Engine{
		gw:         gw,
		strat:      strat,
		settings:   settings,
		metrics:    opts.Metrics,
		journal:    opts.Journal,
		notifier:   n,
		now:        now,
		log:        logger.Named("trader").With("strategy", strat.Name(), "symbol", settings.Symbol),
		lastSignal: market.SignalHold,
	}, nil
}

// Configure sets the leverage and loads the asset filters. It must succeed
// before any cycle runs.
func (e *Engine) Configure(ctx context.Context) error {
	if _, err := e.gw.SetLeverage(ctx, e.settings.Leverage); err != nil {
		return fmt.Errorf("set leverage: %w", err)
	}
	info, err := e.gw.FetchAssetInfo(ctx)
	if err != nil {
		return fmt.Errorf("fetch asset info: %w", err)
	}
	e.mu.Lock()
	e.asset = &info
	e.mu.Unlock()
	e.log.Infof("configured leverage=%d price_precision=%d quantity_precision=%d min_qty=%v min_notional=%v",
		e.settings.Leverage, info.PricePrecision, info.QuantityPrecision, info.MinQty, info.MinNotional)
	return nil
}

// QuantityToTrade sizes an entry with the engine's leverage, risk and asset filters.
func (e *Engine) QuantityToTrade(lastClose, balance float64) (float64, error) {
	e.mu.RLock()
	asset := e.asset
	e.mu.RUnlock()
	return QuantityToTrade(lastClose, balance, e.settings.Leverage, e.settings.RiskPercentage, asset)
}

// PlanEntry computes the entry for an actionable signal without touching the
// gateway. A HOLD signal returns ok=false.
func (e *Engine) PlanEntry(sig market.Signal, w market.Window, balance float64) (plan EntryPlan, ok bool, err error) {
	side, actionable := sig.Side()
	if !actionable {
		return EntryPlan{}, false, nil
	}
	last, has := w.Last()
	if !has {
		return EntryPlan{}, false, &indicator.InsufficientDataError{Indicator: "window", Required: 1, Actual: 0}
	}
	qty, err := e.QuantityToTrade(last.Close, balance)
	if err != nil {
		return EntryPlan{}, false, err
	}
	dist, err := e.strat.Distances(w)
	if err != nil {
		return EntryPlan{}, false, err
	}
	e.mu.RLock()
	precision := e.asset.PricePrecision
	e.mu.RUnlock()

	plan = EntryPlan{Side: side, Price: last.Close, Quantity: qty, Distances: dist}
	if dist.StopLoss != 0 {
		p := StopLossPrice(side, last.Close, dist.StopLoss, precision)
		plan.StopLossPrice = &p
	}
	if dist.TakeProfit != 0 {
		p := TakeProfitPrice(side, last.Close, dist.TakeProfit, precision)
		plan.TakeProfitPrice = &p
	}
	return plan, true, nil
}

// Settle closes pos at exit. Only the reason depends on the protective prices.
func Settle(pos Position, exit float64, closedAt time.Time) Settlement {
	return Settlement{
		Position:  pos,
		ExitPrice: exit,
		PnL:       ProfitLoss(pos.Side, pos.EntryPrice, exit, pos.Quantity),
		Reason:    classifyClose(pos, exit),
		ClosedAt:  closedAt,
	}
}

func classifyClose(pos Position, exit float64) CloseReason {
	if pos.TakeProfitPrice != nil && strategy.TakeProfitHit(pos.Side, exit, *pos.TakeProfitPrice) {
		return CloseTakeProfit
	}
	if pos.StopLossPrice != nil && strategy.StopLossHit(pos.Side, exit, *pos.StopLossPrice) {
		return CloseStopLoss
	}
	return CloseNextCandle
}

// CycleResult describes one live cycle.
type CycleResult struct {
	Skipped  bool
	Signal   market.Signal
	Balance  float64
	Opened   *Position
	OrderIDs []string
}

// LiveCycle runs one decision cycle against the gateway. Any error leaves the
// recorded position untouched. Live entries are gated on the cooldown only:
// the exchange-side stop and target own the exit, and the next entry
// replaces the recorded position.
func (e *Engine) LiveCycle(ctx context.Context) (res CycleResult, err error) {
	start := e.now()
	defer func() {
		e.metrics.observeCycle(e.now().Sub(start))
		if err != nil {
			e.metrics.cycleError(errorKind(err))
		}
	}()

	e.mu.RLock()
	last := e.lastTradeAt
	configured := e.asset != nil
	e.mu.RUnlock()
	if !configured {
		return res, fmt.Errorf("%w: engine not configured", ErrConfigurationMissing)
	}
	if !last.IsZero() && start.Sub(last) < e.settings.Cooldown {
		e.metrics.cooldownSkip()
		e.log.Debugf("cooldown active, %s left", e.settings.Cooldown-start.Sub(last))
		return CycleResult{Skipped: true, Signal: market.SignalHold}, nil
	}

	candles, err := e.gw.FetchCandles(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch candles: %w", err)
	}
	w := market.Window(candles)
	sig, err := e.strat.Signal(w)
	if err != nil {
		return res, fmt.Errorf("evaluate signal: %w", err)
	}
	e.recordSignal(sig)
	res.Signal = sig

	balance, err := e.gw.FetchAvailableBalance(ctx, e.settings.QuoteAsset)
	if err != nil {
		return res, fmt.Errorf("fetch balance: %w", err)
	}
	e.setBalance(balance)
	res.Balance = balance
	lastCandle, _ := w.Last()
	e.log.Infof("signal=%s price=%v available=%v", sig, lastCandle.Close, balance)

	plan, ok, err := e.PlanEntry(sig, w, balance)
	if err != nil || !ok {
		return res, err
	}

	orders, err := e.submit(ctx, plan)
	if err != nil {
		return res, err
	}
	pos := plan.Position(uuid.NewString(), e.now())
	e.mu.Lock()
	e.position = &pos
	e.mu.Unlock()
	e.metrics.opened()
	e.log.Infof("opened position id=%s side=%s qty=%v entry=%v sl=%s tp=%s",
		pos.ID, pos.Side, pos.Quantity, pos.EntryPrice, fmtPrice(pos.StopLossPrice), fmtPrice(pos.TakeProfitPrice))
	e.journalOpen(ctx, ModeLive, pos, orders)
	e.notify(ctx, openedMessage(e.strat.Name(), e.settings.Symbol, pos, e.now()))

	res.Opened = &pos
	for _, o := range orders {
		res.OrderIDs = append(res.OrderIDs, o.ID)
	}
	return res, nil
}

// submit sends the market entry then the protective orders. The cooldown
// starts as soon as the market order is accepted, even if a protective order
// fails afterwards.
func (e *Engine) submit(ctx context.Context, plan EntryPlan) ([]market.Order, error) {
	ack, err := e.gw.SubmitMarketOrder(ctx, plan.Side, plan.Quantity)
	if err != nil {
		return nil, fmt.Errorf("submit market order: %w", err)
	}
	e.mu.Lock()
	e.lastTradeAt = e.now()
	e.mu.Unlock()
	e.metrics.order(ModeLive, "MARKET", string(plan.Side))
	orders := []market.Order{ackToOrder(ack, plan.Side, "MARKET", plan.Quantity, "")}

	for _, o := range plan.ProtectiveOrders() {
		ack, err := e.gw.SubmitConditionalOrder(ctx, exchange.ConditionalOrder{
			Side:         o.Side,
			Quantity:     o.Quantity,
			Kind:         o.Conditional,
			TriggerPrice: o.TriggerPrice,
		})
		if err != nil {
			e.log.Errorf("protective %s order failed after entry: %v", o.Conditional, err)
			return orders, fmt.Errorf("submit %s order: %w", o.Conditional, err)
		}
		e.metrics.order(ModeLive, string(o.Conditional), string(o.Side))
		placed := ackToOrder(ack, o.Side, o.Kind, o.Quantity, o.Conditional)
		placed.TriggerPrice = o.TriggerPrice
		orders = append(orders, placed)
	}
	return orders, nil
}

// StepResult describes one replay step.
type StepResult struct {
	Signal market.Signal
	// Evaluated is false on closing steps, where no signal is computed.
	Evaluated bool
	Opened    *Position
	Closed    *Settlement
}

// ReplayStep advances the simulation by one window. An open position is
// closed at the last close; otherwise the signal is evaluated and a simulated
// entry recorded. The gateway is never called.
func (e *Engine) ReplayStep(ctx context.Context, w market.Window) (StepResult, error) {
	last, ok := w.Last()
	if !ok {
		return StepResult{}, &indicator.InsufficientDataError{Indicator: "window", Required: 1, Actual: 0}
	}

	e.mu.RLock()
	pos := e.position
	balance := e.balance
	e.mu.RUnlock()

	if pos != nil {
		s := Settle(*pos, last.Close, last.Time())
		e.mu.Lock()
		e.balance = numeric.Add(e.balance, s.PnL)
		e.position = nil
		newBalance := e.balance
		e.mu.Unlock()
		e.metrics.closed(s)
		e.metrics.setBalance(newBalance)
		e.log.Debugf("closed position side=%s entry=%v exit=%v qty=%v pnl=%.2f reason=%s balance=%.2f",
			s.Position.Side, s.Position.EntryPrice, s.ExitPrice, s.Position.Quantity, s.PnL, s.Reason, newBalance)
		e.journalClose(ctx, s)
		return StepResult{Signal: market.SignalHold, Closed: &s}, nil
	}

	sig, err := e.strat.Signal(w)
	if err != nil {
		return StepResult{}, err
	}
	e.recordSignal(sig)
	res := StepResult{Signal: sig, Evaluated: true}
	plan, open, err := e.PlanEntry(sig, w, balance)
	if err != nil || !open {
		return res, err
	}
	opened := plan.Position(uuid.NewString(), last.Time())
	e.mu.Lock()
	e.position = &opened
	e.lastTradeAt = opened.OpenedAt
	e.mu.Unlock()
	e.metrics.opened()
	e.metrics.order(ModeBacktest, "MARKET", string(plan.Side))
	e.log.Debugf("opened simulated position side=%s qty=%v entry=%v sl=%s tp=%s",
		opened.Side, opened.Quantity, opened.EntryPrice, fmtPrice(opened.StopLossPrice), fmtPrice(opened.TakeProfitPrice))
	e.journalOpen(ctx, ModeBacktest, opened, simulatedOrders(plan, e.settings.Symbol, opened.OpenedAt))
	res.Opened = &opened
	return res, nil
}

// SetBalance seeds the simulated balance used by ReplayStep.
func (e *Engine) SetBalance(v float64) { e.setBalance(v) }

// Reset returns the engine to Flat with no trade history and seeds the
// balance, so consecutive replays start from the same state.
func (e *Engine) Reset(balance float64) {
	e.mu.Lock()
	e.position = nil
	e.lastTradeAt = time.Time{}
	e.lastSignal = market.SignalHold
	e.mu.Unlock()
	e.metrics.flat()
	e.setBalance(balance)
}

func (e *Engine) Balance() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.balance
}

// Position returns a copy of the open position.
func (e *Engine) Position() (Position, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.position == nil {
		return Position{}, false
	}
	return *e.position, true
}

func (e *Engine) State() State {
	if _, ok := e.Position(); ok {
		return StateInPosition
	}
	return StateFlat
}

// Snapshot is a read-only view for the status API.
type Snapshot struct {
	Strategy    string            `json:"strategy"`
	Symbol      string            `json:"symbol"`
	Gateway     string            `json:"gateway"`
	State       string            `json:"state"`
	Leverage    int               `json:"leverage"`
	Balance     float64           `json:"balance"`
	LastSignal  market.Signal     `json:"last_signal"`
	LastTradeAt *time.Time        `json:"last_trade_at,omitempty"`
	Position    *Position         `json:"position,omitempty"`
	Asset       *market.AssetInfo `json:"asset,omitempty"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	snap := Snapshot{
		Strategy:   e.strat.Name(),
		Symbol:     e.settings.Symbol,
		Gateway:    e.gw.Name(),
		State:      StateFlat.String(),
		Leverage:   e.settings.Leverage,
		Balance:    e.balance,
		LastSignal: e.lastSignal,
	}
	if !e.lastTradeAt.IsZero() {
		t := e.lastTradeAt
		snap.LastTradeAt = &t
	}
	if e.position != nil {
		p := *e.position
		snap.Position = &p
		snap.State = StateInPosition.String()
	}
	if e.asset != nil {
		a := *e.asset
		snap.Asset = &a
	}
	return snap
}

func (e *Engine) recordSignal(sig market.Signal) {
	e.metrics.decision(sig.String())
	e.mu.Lock()
	e.lastSignal = sig
	e.mu.Unlock()
}

func (e *Engine) setBalance(v float64) {
	e.mu.Lock()
	e.balance = v
	e.mu.Unlock()
	e.metrics.setBalance(v)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, exchange.ErrGatewayFailure):
		return "gateway"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrConfigurationMissing):
		return "configuration"
	case errors.Is(err, indicator.ErrInsufficientData):
		return "insufficient_data"
	default:
		return "other"
	}
}

func ackToOrder(ack exchange.OrderAck, side market.Side, kind string, qty float64, cond market.ConditionalKind) market.Order {
	o := market.Order{
		ID:          ack.OrderID,
		Symbol:      ack.Symbol,
		Side:        side,
		Kind:        kind,
		Quantity:    qty,
		Conditional: cond,
		SubmittedAt: ack.SubmittedAt,
	}
	if ack.Quantity > 0 {
		o.Quantity = ack.Quantity
	}
	return o
}

func simulatedOrders(plan EntryPlan, symbol string, at time.Time) []market.Order {
	orders := []market.Order{{
		ID:          "SIMULATED_ORDER",
		Symbol:      symbol,
		Side:        plan.Side,
		Kind:        "MARKET",
		Quantity:    plan.Quantity,
		Simulated:   true,
		SubmittedAt: at,
	}}
	for _, o := range plan.ProtectiveOrders() {
		o.ID = "SIMULATED_ORDER"
		o.Symbol = symbol
		o.Simulated = true
		o.SubmittedAt = at
		orders = append(orders, o)
	}
	return orders
}

func fmtPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%v", *p)
}
