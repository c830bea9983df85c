package ports

import (
	"context"
	"time"
)

// MarketWindow is one tradeable up/down window on the exchange.
type MarketWindow struct {
	Slug       string
	Question   string
	TokenID    string // YES token
	YesPrice   float64
	NoPrice    float64
	EndTime    time.Time
	Resolved   bool
	ResolvedUp bool // meaningful only when Resolved
}

// MarketProvider looks up up/down market windows.
type MarketProvider interface {
	// NextWindow returns the current (or, if already bet on, the next)
	// unresolved window for a market like "BTC-5m". Slugs in exclude are
	// windows the session already holds a position in.
	NextWindow(ctx context.Context, market string, exclude []string) (MarketWindow, error)

	// WindowBySlug fetches a specific window, resolved or not.
	WindowBySlug(ctx context.Context, slug string) (MarketWindow, error)
}
