package domain

import (
	"errors"
	"fmt"
	"time"
)

// Placement and resolution errors surfaced to the user. None of them is
// fatal to the session: only the affected bet is torn down.
var (
	ErrSlotsExhausted     = errors.New("maximum concurrent bets reached, wait for one to resolve")
	ErrNoCreditsRemaining = errors.New("no bet credits remaining")
	ErrOrderRejected      = errors.New("order rejected by exchange")
	ErrResolutionTimeout  = errors.New("market resolution timed out, bet will be refunded")
	ErrNetwork            = errors.New("network error")
	ErrBetNotFound        = errors.New("bet not found")
)

// BetSide is the direction of an arcade bet.
type BetSide string

const (
	SideUp   BetSide = "UP"
	SideDown BetSide = "DOWN"
)

// BetStatus is the lifecycle state of a live bet. Transitions are
// monotonic: live → resolving → resolved, never backwards and never
// skipping resolving.
type BetStatus string

const (
	BetStatusLive      BetStatus = "live"
	BetStatusResolving BetStatus = "resolving"
	BetStatusResolved  BetStatus = "resolved"
)

// BetOutcome is the settlement result of a resolved bet.
type BetOutcome string

const (
	OutcomeWon  BetOutcome = "won"
	OutcomeLost BetOutcome = "lost"
	OutcomePush BetOutcome = "push"
)

// BetResult carries the settlement of a resolved bet.
type BetResult struct {
	Outcome BetOutcome
	PnL     float64
}

// Bet is one live directional position in an arcade session.
type Bet struct {
	ID            string
	Side          BetSide
	EntryPrice    float64
	Amount        float64
	Shares        float64
	Market        string // e.g. "BTC-5m"
	Slug          string // market window slug on the exchange
	TokenID       string
	MarketEndTime time.Time
	PlacedAt      time.Time
	Status        BetStatus
	Result        *BetResult
}

// NewBet builds a live bet. Shares are amount/entryPrice; a zero entry
// price yields zero shares rather than Inf.
func NewBet(id string, side BetSide, market, slug, tokenID string, amount, entryPrice float64, endTime, now time.Time) Bet {
	shares := 0.0
	if entryPrice > 0 {
		shares = amount / entryPrice
	}
	return Bet{
		ID:            id,
		Side:          side,
		EntryPrice:    entryPrice,
		Amount:        amount,
		Shares:        shares,
		Market:        market,
		Slug:          slug,
		TokenID:       tokenID,
		MarketEndTime: endTime,
		PlacedAt:      now,
		Status:        BetStatusLive,
	}
}

// MarkResolving advances live → resolving.
func (b *Bet) MarkResolving() error {
	if b.Status != BetStatusLive {
		return fmt.Errorf("bet %s: cannot resolve from status %q", b.ID, b.Status)
	}
	b.Status = BetStatusResolving
	return nil
}

// MarkResolved advances resolving → resolved and records the result.
func (b *Bet) MarkResolved(r BetResult) error {
	if b.Status != BetStatusResolving {
		return fmt.Errorf("bet %s: cannot settle from status %q", b.ID, b.Status)
	}
	b.Status = BetStatusResolved
	b.Result = &r
	return nil
}

// Resolution is the three-shape response of the resolution collaborator:
// still pending, settled with authoritative session counters, or an error
// (returned separately). The counters are the source of truth — the session
// overwrites its local state with them wholesale.
type Resolution struct {
	Pending bool

	Outcome        BetOutcome
	PnL            float64
	CurrentBalance float64
	TotalPnL       float64
	Wins           int
	Losses         int
	BetsRemaining  int
	SessionEnded   bool
}

// SessionStats are the server-authoritative counters of an arcade session.
type SessionStats struct {
	Bankroll       float64
	BetAmount      float64
	CurrentBalance float64
	TotalPnL       float64
	Trades         int
	Wins           int
	Losses         int
	BetsRemaining  int
}

// SessionStatus is the lifecycle of an arcade session.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionStopped SessionStatus = "stopped"
)

// Session is one arcade run: a bankroll split into fixed-size bet credits.
type Session struct {
	ID        string
	Wallet    string
	Market    string
	Status    SessionStatus
	Stats     SessionStats
	StartedAt time.Time
	StoppedAt *time.Time
}

// TradeRecord is one settled (or pending) entry in the session trade log.
type TradeRecord struct {
	ID         string
	SessionID  string
	Market     string
	Slug       string
	Side       BetSide
	Amount     float64
	EntryPrice float64
	Shares     float64
	Outcome    string // "pending" until resolved
	PnL        float64
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
