package arcade

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/polyarcade/internal/domain"
	"github.com/alejandrodnm/polyarcade/internal/ports"
)

// --- fake clock ---------------------------------------------------------

type fakeTimer struct {
	at      time.Time
	f       func()
	fired   bool
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return !t.fired
}

// fakeClock is a hand-advanced clock. Advance fires due timers
// synchronously, including timers armed by the callbacks themselves, so a
// retry cascade plays out inside a single Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due *fakeTimer
		sort.Slice(c.timers, func(i, j int) bool { return c.timers[i].at.Before(c.timers[j].at) })
		for _, t := range c.timers {
			if !t.fired && !t.stopped && !t.at.After(target) {
				due = t
				break
			}
		}
		if due != nil {
			due.fired = true
			// Timers armed by earlier callbacks are based on the fired
			// timer's due time, so advance now before invoking f.
			if due.at.After(c.now) {
				c.now = due.at
			}
		}
		c.mu.Unlock()
		if due == nil {
			break
		}
		due.f()
	}

	c.mu.Lock()
	if target.After(c.now) {
		c.now = target
	}
	c.mu.Unlock()
}

// --- fake executor ------------------------------------------------------

type fakeExecutor struct {
	mu           sync.Mutex
	nextBetID    int
	placeErr     error
	sellErr      error
	sellProceeds float64

	// When set, SellPosition signals sellEntered and then parks until
	// sellRelease closes, simulating a slow sell RPC.
	sellEntered chan struct{}
	sellRelease chan struct{}

	// resolutions are consumed per bet id in order; the last one repeats.
	resolutions map[string][]resolutionStep
	resolves    map[string]int
	placeCalls  int
	sellCalls   int
}

type resolutionStep struct {
	res domain.Resolution
	err error
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		resolutions: make(map[string][]resolutionStep),
		resolves:    make(map[string]int),
	}
}

func (f *fakeExecutor) script(betID string, steps ...resolutionStep) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolutions[betID] = steps
}

func (f *fakeExecutor) PlaceBet(_ context.Context, req ports.PlaceBetRequest) (ports.PlacedBet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placeCalls++
	if f.placeErr != nil {
		return ports.PlacedBet{}, f.placeErr
	}
	f.nextBetID++
	return ports.PlacedBet{
		OrderID:       fmt.Sprintf("order-%d", f.nextBetID),
		BetID:         fmt.Sprintf("bet-%d", f.nextBetID),
		BetsRemaining: -1,
	}, nil
}

func (f *fakeExecutor) SellPosition(_ context.Context, req ports.SellRequest) (ports.SellResult, error) {
	f.mu.Lock()
	f.sellCalls++
	entered, release := f.sellEntered, f.sellRelease
	sellErr := f.sellErr
	proceeds := f.sellProceeds
	if proceeds == 0 {
		proceeds = req.Shares * req.Price
	}
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if sellErr != nil {
		return ports.SellResult{}, sellErr
	}
	return ports.SellResult{Proceeds: proceeds}, nil
}

func (f *fakeExecutor) ResolveBet(_ context.Context, _, betID string) (domain.Resolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.resolves[betID]
	f.resolves[betID] = n + 1
	steps := f.resolutions[betID]
	if len(steps) == 0 {
		return domain.Resolution{Pending: true}, nil
	}
	if n >= len(steps) {
		n = len(steps) - 1
	}
	return steps[n].res, steps[n].err
}

func (f *fakeExecutor) resolveCount(betID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolves[betID]
}

// --- fake market provider -----------------------------------------------

type fakeMarkets struct {
	clock  *fakeClock
	nextTs int
	err    error
}

func (f *fakeMarkets) NextWindow(_ context.Context, market string, exclude []string) (ports.MarketWindow, error) {
	if f.err != nil {
		return ports.MarketWindow{}, f.err
	}
	f.nextTs++
	return ports.MarketWindow{
		Slug:     fmt.Sprintf("%s-window-%d", market, f.nextTs),
		TokenID:  fmt.Sprintf("tok-%d", f.nextTs),
		YesPrice: 0.5,
		NoPrice:  0.5,
		EndTime:  f.clock.Now().Add(5 * time.Minute),
	}, nil
}

func (f *fakeMarkets) WindowBySlug(_ context.Context, slug string) (ports.MarketWindow, error) {
	return ports.MarketWindow{Slug: slug}, nil
}

// --- fake storage -------------------------------------------------------

type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	trades   []domain.TradeRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]domain.Session)}
}

func (f *fakeStore) SaveSession(_ context.Context, s domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeStore) GetSession(_ context.Context, id string) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("session %s not found", id)
	}
	return s, nil
}

func (f *fakeStore) GetActiveSession(_ context.Context, wallet string) (domain.Session, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Wallet == wallet && s.Status == domain.SessionActive {
			return s, true, nil
		}
	}
	return domain.Session{}, false, nil
}

func (f *fakeStore) UpdateSession(_ context.Context, s domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeStore) SaveTrade(_ context.Context, t domain.TradeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, t)
	return nil
}

func (f *fakeStore) GetTrade(_ context.Context, id string) (domain.TradeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.trades {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.TradeRecord{}, fmt.Errorf("trade %s not found", id)
}

func (f *fakeStore) ResolveTrade(_ context.Context, id string, outcome domain.BetOutcome, pnl float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.trades {
		if f.trades[i].ID == id {
			f.trades[i].Outcome = string(outcome)
			f.trades[i].PnL = pnl
			return nil
		}
	}
	return fmt.Errorf("trade %s not found", id)
}

func (f *fakeStore) DeleteTrade(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.trades {
		if f.trades[i].ID == id {
			f.trades = append(f.trades[:i], f.trades[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) ListTrades(_ context.Context, sessionID string) ([]domain.TradeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TradeRecord
	for _, t := range f.trades {
		if t.SessionID == sessionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) PendingTrades(_ context.Context, sessionID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.trades {
		if t.SessionID == sessionID && t.Outcome == "pending" {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Close() error { return nil }

// --- fake notifier ------------------------------------------------------

type fakeNotifier struct {
	mu        sync.Mutex
	huds      []domain.HUDSnapshot
	flashes   []ports.Flash
	summaries []domain.RoundSummary
	stats     []domain.SessionStats
	errors    []string
}

func (f *fakeNotifier) HUD(s domain.HUDSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.huds = append(f.huds, s)
}

func (f *fakeNotifier) Flashes(events []ports.Flash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flashes = append(f.flashes, events...)
}

func (f *fakeNotifier) RoundEnded(summary domain.RoundSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, summary)
}

func (f *fakeNotifier) SessionUpdate(stats domain.SessionStats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = append(f.stats, stats)
}

func (f *fakeNotifier) TradeLog(_ context.Context, _ []domain.TradeRecord) error { return nil }

func (f *fakeNotifier) UserError(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, msg)
}

func (f *fakeNotifier) userErrors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.errors...)
}

// --- fake price feed ----------------------------------------------------

type fakeFeed struct {
	mu     sync.Mutex
	frames chan domain.FrameData
	side   domain.BetSide
	entry  float64
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{frames: make(chan domain.FrameData, 16)}
}

func (f *fakeFeed) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeFeed) Frames() <-chan domain.FrameData { return f.frames }

func (f *fakeFeed) SetReference(side domain.BetSide, entry float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.side = side
	f.entry = entry
}
