package arcade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polyarcade/internal/application/game"
	"github.com/alejandrodnm/polyarcade/internal/domain"
	"github.com/alejandrodnm/polyarcade/internal/ports"
)

const (
	// A resolved bet stays visible this long before leaving its slot.
	flashWindow = 3 * time.Second
	// Market windows default to 5 minutes when the provider omits an end time.
	defaultWindowLength = 5 * time.Minute
)

// Config holds session controller settings.
type Config struct {
	Wallet    string
	Market    string // default market, e.g. "BTC-5m"
	Bankroll  float64
	BetAmount float64
	MaxBets   int // 0 = MaxConcurrentBets
	Compact   bool
}

// Controller composes the bet slots, the resolution scheduler, and the game
// round engine into one arcade session. It owns the engine exclusively:
// rendering consumers only ever see immutable snapshots.
//
// Game rounds run in lockstep with the bets: the round is active if and
// only if at least one bet has status live.
type Controller struct {
	cfg      Config
	exec     ports.TradeExecutor
	markets  ports.MarketProvider
	store    ports.ArcadeStorage
	notifier ports.Notifier
	feed     ports.PriceFeed
	clock    Clock

	mu       sync.Mutex
	session  domain.Session
	slots    *Slots
	game     *game.Engine
	sched    *scheduler
	attempts map[string]int // bet id → pending retries so far
	placing  bool
	selling  map[string]bool
	running  bool

	// timer callbacks outlive the Start ctx caller; resolution calls use
	// this context and stop firing once the session stops.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewController wires a session controller. A nil clock uses the wall
// clock; a nil rng uses the default source.
func NewController(
	cfg Config,
	exec ports.TradeExecutor,
	markets ports.MarketProvider,
	store ports.ArcadeStorage,
	notifier ports.Notifier,
	feed ports.PriceFeed,
	clock Clock,
	rng domain.RandomSource,
) *Controller {
	if clock == nil {
		clock = NewClock()
	}
	return &Controller{
		cfg:      cfg,
		exec:     exec,
		markets:  markets,
		store:    store,
		notifier: notifier,
		feed:     feed,
		clock:    clock,
		slots:    NewSlots(cfg.MaxBets),
		game:     game.NewEngine(game.Config{Compact: cfg.Compact}, rng, clock.Now),
		sched:    newScheduler(clock),
		attempts: make(map[string]int),
		selling:  make(map[string]bool),
	}
}

// Start opens (or restores) the arcade session. An existing active session
// for the wallet is resumed: its counters win over the config and its
// pending trades are re-armed with resolution timers, past-due ones firing
// immediately.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return errors.New("session already running")
	}

	c.ctx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))

	existing, ok, err := c.store.GetActiveSession(ctx, c.cfg.Wallet)
	if err != nil {
		return fmt.Errorf("session start: %w", err)
	}
	if ok {
		c.session = existing
		c.running = true
		slog.Info("arcade: restored active session",
			"session", existing.ID,
			"balance", existing.Stats.CurrentBalance,
			"betsRemaining", existing.Stats.BetsRemaining,
		)
		if err := c.restoreBets(ctx); err != nil {
			slog.Warn("arcade: restoring pending bets failed", "err", err)
		}
		c.notifier.SessionUpdate(c.session.Stats)
		return nil
	}

	now := c.clock.Now().UTC()
	c.session = domain.Session{
		ID:        uuid.New().String(),
		Wallet:    c.cfg.Wallet,
		Market:    c.cfg.Market,
		Status:    domain.SessionActive,
		StartedAt: now,
		Stats: domain.SessionStats{
			Bankroll:       c.cfg.Bankroll,
			BetAmount:      c.cfg.BetAmount,
			CurrentBalance: c.cfg.Bankroll,
			BetsRemaining:  int(math.Floor(c.cfg.Bankroll / c.cfg.BetAmount)),
		},
	}
	if err := c.store.SaveSession(ctx, c.session); err != nil {
		return fmt.Errorf("session start: %w", err)
	}
	c.running = true
	slog.Info("arcade: session started",
		"session", c.session.ID,
		"bankroll", c.cfg.Bankroll,
		"betAmount", c.cfg.BetAmount,
		"credits", c.session.Stats.BetsRemaining,
	)
	c.notifier.SessionUpdate(c.session.Stats)
	return nil
}

// restoreBets re-arms resolution timers for the session's pending trades.
// Caller holds c.mu.
func (c *Controller) restoreBets(ctx context.Context) error {
	trades, err := c.store.ListTrades(ctx, c.session.ID)
	if err != nil {
		return err
	}
	now := c.clock.Now()
	for _, t := range trades {
		if t.Outcome != "pending" {
			continue
		}
		end := t.CreatedAt.Add(defaultWindowLength)
		bet := domain.NewBet(t.ID, t.Side, t.Market, t.Slug, "", t.Amount, t.EntryPrice, end, t.CreatedAt)
		if err := c.slots.Add(&bet); err != nil {
			return err
		}
		id := t.ID
		c.sched.schedule(id, resolveDelay(end, now), func() { c.resolveFire(id) })
	}
	c.syncRound()
	return nil
}

// PlaceBet allocates a slot, submits the order, and arms the bet's
// resolution timer. An empty market uses the session default. On any
// failure no state is left mutated.
func (c *Controller) PlaceBet(ctx context.Context, side domain.BetSide, market string) (domain.Bet, error) {
	if market == "" {
		market = c.cfg.Market
	}
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return domain.Bet{}, errors.New("no active session")
	}
	if c.placing {
		c.mu.Unlock()
		return domain.Bet{}, errors.New("placement already in flight")
	}
	if err := c.slots.CanPlace(c.session.Stats.BetsRemaining); err != nil {
		c.mu.Unlock()
		return domain.Bet{}, err
	}
	c.placing = true
	exclude := c.slots.Slugs(market)
	sessionID := c.session.ID
	amount := c.session.Stats.BetAmount
	c.mu.Unlock()

	bet, credits, err := c.submitBet(ctx, sessionID, side, market, amount, exclude)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.placing = false
	if err != nil {
		return domain.Bet{}, err
	}
	if !c.running {
		// Session stopped while the order was in flight; don't track it.
		return domain.Bet{}, errors.New("session stopped")
	}
	if err := c.slots.Add(&bet); err != nil {
		return domain.Bet{}, err
	}
	c.session.Stats.CurrentBalance -= bet.Amount
	if credits >= 0 {
		c.session.Stats.BetsRemaining = credits
	} else {
		c.session.Stats.BetsRemaining--
	}
	c.session.Stats.Trades++

	id := bet.ID
	c.sched.schedule(id, resolveDelay(bet.MarketEndTime, c.clock.Now()), func() { c.resolveFire(id) })
	c.syncRound()
	if c.feed != nil {
		c.feed.SetReference(bet.Side, bet.EntryPrice)
	}

	slog.Info("arcade: bet placed",
		"bet", bet.ID,
		"side", bet.Side,
		"market", bet.Market,
		"entry", bet.EntryPrice,
		"endsIn", time.Until(bet.MarketEndTime).Round(time.Second),
	)
	c.notifier.SessionUpdate(c.session.Stats)
	return bet, nil
}

// submitBet does the network half of a placement: window lookup and order
// submission. Runs without the controller lock held. The returned credit
// count is the collaborator's authoritative betsRemaining, -1 if absent.
func (c *Controller) submitBet(ctx context.Context, sessionID string, side domain.BetSide, market string, amount float64, exclude []string) (domain.Bet, int, error) {
	window, err := c.markets.NextWindow(ctx, market, exclude)
	if err != nil {
		return domain.Bet{}, -1, fmt.Errorf("market lookup: %w", err)
	}

	entry := window.YesPrice
	if side == domain.SideDown {
		entry = window.NoPrice
	}
	if entry <= 0 {
		entry = 0.5
	}

	placed, err := c.exec.PlaceBet(ctx, ports.PlaceBetRequest{
		SessionID:  sessionID,
		TokenID:    window.TokenID,
		Slug:       window.Slug,
		Side:       side,
		Amount:     amount,
		EntryPrice: entry,
	})
	if err != nil {
		return domain.Bet{}, -1, err
	}

	end := window.EndTime
	if end.IsZero() {
		end = c.clock.Now().Add(defaultWindowLength)
	}
	bet := domain.NewBet(placed.BetID, side, market, window.Slug, window.TokenID, amount, entry, end, c.clock.Now())
	return bet, placed.BetsRemaining, nil
}

// SellBet exits a live bet early. Slot removal and timer cancellation
// happen atomically under the controller lock, so a fire racing the sell
// can never apply results to the sold bet. While the sell call is in
// flight resolution fires back off, and proceeds are only credited if the
// bet is still live when the call returns.
func (c *Controller) SellBet(ctx context.Context, betID string) error {
	c.mu.Lock()
	bet, ok := c.slots.Get(betID)
	if !ok {
		c.mu.Unlock()
		return domain.ErrBetNotFound
	}
	if bet.Status != domain.BetStatusLive || c.selling[betID] {
		c.mu.Unlock()
		return fmt.Errorf("bet %s is not sellable", betID)
	}
	c.selling[betID] = true
	req := ports.SellRequest{
		SessionID: c.session.ID,
		BetID:     bet.ID,
		TokenID:   bet.TokenID,
		Side:      bet.Side,
		Shares:    bet.Shares,
		Price:     bet.EntryPrice,
	}
	c.mu.Unlock()

	result, err := c.exec.SellPosition(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.selling, betID)
	if err != nil {
		return fmt.Errorf("sell bet %s: %w", betID, err)
	}

	if cur, ok := c.slots.Get(betID); !ok || cur.Status != domain.BetStatusLive {
		return nil // settled while the call was in flight; nothing to credit twice
	}
	c.sched.cancel(betID)
	c.slots.Remove(betID)
	delete(c.attempts, betID)
	c.session.Stats.CurrentBalance += result.Proceeds
	c.syncRound()

	slog.Info("arcade: bet sold", "bet", betID, "proceeds", result.Proceeds)
	c.notifier.SessionUpdate(c.session.Stats)
	return nil
}

// resolveFire is the timer callback for one resolution attempt. A fire for
// a bet no longer in its slot, or already resolved, is a no-op.
func (c *Controller) resolveFire(betID string) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	bet, ok := c.slots.Get(betID)
	if !ok || bet.Status == domain.BetStatusResolved {
		c.mu.Unlock()
		return
	}
	if c.selling[betID] {
		// A sell is in flight. If it fails the bet stays live, so check
		// back instead of settling underneath it.
		c.sched.schedule(betID, retryInterval, func() { c.resolveFire(betID) })
		c.mu.Unlock()
		return
	}
	if bet.Status == domain.BetStatusLive {
		if err := bet.MarkResolving(); err != nil {
			c.mu.Unlock()
			return
		}
		c.syncRound()
	}
	ctx := c.ctx
	sessionID := c.session.ID
	c.mu.Unlock()

	res, err := c.exec.ResolveBet(ctx, sessionID, betID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	if _, ok := c.slots.Get(betID); !ok {
		return // sold while the call was in flight
	}

	switch {
	case err != nil && errors.Is(err, domain.ErrNetwork):
		c.retryOrTimeout(betID)
	case err != nil:
		// Hard error: surface it and tear down only this bet.
		slog.Error("arcade: bet resolution failed", "bet", betID, "err", err)
		c.notifier.UserError(fmt.Sprintf("Failed to resolve bet: %v", err))
		c.dropBet(betID)
	case res.Pending:
		c.retryOrTimeout(betID)
	default:
		c.applyResolution(betID, res)
	}
}

// retryOrTimeout schedules the next fixed-interval retry, or force-removes
// the bet once the cap is exceeded. Fail-open: the user is told to expect a
// refund rather than the bet silently succeeding. Caller holds c.mu.
func (c *Controller) retryOrTimeout(betID string) {
	if c.attempts[betID] >= maxResolveAttempts {
		slog.Warn("arcade: giving up on bet",
			"bet", betID,
			"attempts", c.attempts[betID],
			"err", domain.ErrResolutionTimeout,
		)
		c.notifier.UserError(domain.ErrResolutionTimeout.Error())
		c.dropBet(betID)
		return
	}
	c.attempts[betID]++
	c.sched.schedule(betID, retryInterval, func() { c.resolveFire(betID) })
}

// applyResolution settles a bet from a successful resolution response and
// reconciles the session counters wholesale from it. Caller holds c.mu.
func (c *Controller) applyResolution(betID string, res domain.Resolution) {
	bet, ok := c.slots.Get(betID)
	if !ok {
		return
	}
	if err := bet.MarkResolved(domain.BetResult{Outcome: res.Outcome, PnL: res.PnL}); err != nil {
		slog.Warn("arcade: duplicate resolution ignored", "bet", betID, "err", err)
		return
	}
	delete(c.attempts, betID)

	// Server counters are the source of truth, applied in response order.
	c.session.Stats.CurrentBalance = res.CurrentBalance
	c.session.Stats.TotalPnL = res.TotalPnL
	c.session.Stats.Wins = res.Wins
	c.session.Stats.Losses = res.Losses
	c.session.Stats.BetsRemaining = res.BetsRemaining

	slog.Info("arcade: bet resolved",
		"bet", betID,
		"outcome", res.Outcome,
		"pnl", res.PnL,
		"balance", res.CurrentBalance,
	)
	c.notifier.SessionUpdate(c.session.Stats)
	c.refreshTradeLog()

	// Keep the resolved bet visible for the flash window, then free the slot.
	c.sched.schedule(betID, flashWindow, func() { c.removeResolved(betID, res.SessionEnded) })
}

// removeResolved frees the slot of a resolved bet after its flash window.
func (c *Controller) removeResolved(betID string, sessionEnded bool) {
	c.mu.Lock()
	c.slots.Remove(betID)
	c.sched.done(betID)
	c.syncRound()
	c.mu.Unlock()

	if sessionEnded {
		slog.Info("arcade: credits exhausted, session over")
		if err := c.Stop(context.WithoutCancel(c.ctx)); err != nil {
			slog.Warn("arcade: auto-stop failed", "err", err)
		}
	}
}

// dropBet tears down one bet completely: timer, retry counter, slot.
// Caller holds c.mu.
func (c *Controller) dropBet(betID string) {
	c.sched.cancel(betID)
	delete(c.attempts, betID)
	c.slots.Remove(betID)
	c.syncRound()
}

// refreshTradeLog republishes the authoritative trade history. Caller
// holds c.mu.
func (c *Controller) refreshTradeLog() {
	trades, err := c.store.ListTrades(c.ctx, c.session.ID)
	if err != nil {
		slog.Warn("arcade: trade log refresh failed", "err", err)
		return
	}
	if err := c.notifier.TradeLog(c.ctx, trades); err != nil {
		slog.Warn("arcade: trade log notify failed", "err", err)
	}
}

// syncRound keeps the game round in lockstep with the live bets: active if
// and only if at least one bet is live. Caller holds c.mu.
func (c *Controller) syncRound() {
	live := c.slots.LiveCount()
	switch {
	case live > 0 && !c.game.Active():
		c.game.Start()
		slog.Debug("game: round started")
	case live == 0 && c.game.Active():
		summary := c.game.End()
		slog.Info("game: round ended",
			"score", summary.Score,
			"maxCombo", summary.MaxCombo,
			"items", summary.ItemsCollected,
			"obstacles", summary.ObstaclesHit,
		)
		c.notifier.RoundEnded(summary)
	}
	if live == 0 && c.feed != nil {
		c.feed.SetReference("", 0)
	}
}

// Tick advances the game round one render frame and forwards the batched
// HUD snapshot and flash events to the notifier.
func (c *Controller) Tick(fd domain.FrameData) {
	c.mu.Lock()
	if !c.running || !c.game.Active() {
		c.mu.Unlock()
		return
	}
	out := c.game.Tick(fd)
	c.mu.Unlock()

	if len(out.Flashes) > 0 {
		c.notifier.Flashes(out.Flashes)
	}
	if out.HUD != nil {
		c.notifier.HUD(*out.HUD)
	}
}

// Run consumes frames from the price feed until the context is cancelled.
// A closed frame channel ends the loop; a missing frame is simply skipped
// by virtue of the channel cadence.
func (c *Controller) Run(ctx context.Context) error {
	frames := c.feed.Frames()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fd, ok := <-frames:
			if !ok {
				return nil
			}
			c.Tick(fd)
		}
	}
}

// Stats returns the current reconciled session counters.
func (c *Controller) Stats() domain.SessionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Stats
}

// ActiveBets returns copies of the currently tracked bets.
func (c *Controller) ActiveBets() []domain.Bet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slots.All()
}

// GameActive reports whether a game round is running.
func (c *Controller) GameActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.Active()
}

// Stop cashes the session out: all pending timers are cancelled
// synchronously before state is discarded, so no orphaned callback can
// fire afterwards.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	c.sched.cancelAll()
	c.attempts = make(map[string]int)
	c.slots.Clear()
	if c.game.Active() {
		summary := c.game.End()
		c.notifier.RoundEnded(summary)
	}
	now := c.clock.Now().UTC()
	c.session.Status = domain.SessionStopped
	c.session.StoppedAt = &now
	session := c.session
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if err := c.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("session stop: %w", err)
	}
	slog.Info("arcade: session stopped",
		"session", session.ID,
		"balance", session.Stats.CurrentBalance,
		"pnl", session.Stats.TotalPnL,
		"record", fmt.Sprintf("%d-%d", session.Stats.Wins, session.Stats.Losses),
	)
	c.notifier.SessionUpdate(session.Stats)
	return nil
}
