package ports

import (
	"context"

	"github.com/alejandrodnm/polyarcade/internal/domain"
)

// PriceFeed streams per-frame coordinate oracles derived from a live price
// source. Frames() yields at the render cadence; a slow consumer misses
// frames rather than blocking the feed.
type PriceFeed interface {
	// Run connects and streams until the context is cancelled.
	Run(ctx context.Context) error

	// Frames returns the channel of coordinate frames.
	Frames() <-chan domain.FrameData

	// SetReference marks the entry the IsWinning flag is derived from.
	// A zero entry price clears it.
	SetReference(side domain.BetSide, entryPrice float64)
}
