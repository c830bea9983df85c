package ports

import (
	"context"

	"github.com/alejandrodnm/polyarcade/internal/domain"
)

// Flash is a short-lived HUD text event emitted per notable hit,
// independent of the batch cadence.
type Flash struct {
	Text  string
	Color string
}

// Notifier presents engine output to the user. The console implementation
// prints the trade log as a formatted table and HUD flashes as lines; it
// never mutates engine state.
type Notifier interface {
	// HUD publishes a batched score/combo/shield snapshot.
	HUD(snapshot domain.HUDSnapshot)

	// Flashes publishes the flash events of one tick.
	Flashes(events []Flash)

	// RoundEnded presents the summary of a finished game round.
	RoundEnded(summary domain.RoundSummary)

	// SessionUpdate presents the reconciled session counters.
	SessionUpdate(stats domain.SessionStats)

	// TradeLog presents the authoritative trade history.
	TradeLog(ctx context.Context, trades []domain.TradeRecord) error

	// UserError surfaces a short, non-fatal error message.
	UserError(msg string)
}
