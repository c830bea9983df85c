package ports

import (
	"context"

	"github.com/alejandrodnm/polyarcade/internal/domain"
)

// PlaceBetRequest is one directional arcade order.
type PlaceBetRequest struct {
	SessionID  string
	TokenID    string
	Slug       string
	Side       domain.BetSide
	Amount     float64 // USDC
	EntryPrice float64
}

// PlacedBet is the exchange acknowledgement of a placement.
type PlacedBet struct {
	OrderID string
	BetID   string // trade-log id assigned by the collaborator

	// BetsRemaining is the authoritative credit count after the placement,
	// or -1 when the collaborator did not report one.
	BetsRemaining int
}

// SellRequest is an early exit of a live position.
type SellRequest struct {
	SessionID string
	BetID     string
	TokenID   string
	Side      domain.BetSide
	Shares    float64
	Price     float64
}

// SellResult reports the proceeds of an early exit.
type SellResult struct {
	Proceeds float64
}

// TradeExecutor places, sells, and resolves arcade bets against the
// exchange. ResolveBet implements the three-shape contract the resolution
// scheduler depends on: a pending resolution (retry later), a settled
// resolution with authoritative session counters, or an error.
type TradeExecutor interface {
	PlaceBet(ctx context.Context, req PlaceBetRequest) (PlacedBet, error)
	SellPosition(ctx context.Context, req SellRequest) (SellResult, error)
	ResolveBet(ctx context.Context, sessionID, betID string) (domain.Resolution, error)
}
