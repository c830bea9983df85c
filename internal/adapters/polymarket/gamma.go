package polymarket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"time"

	"github.com/alejandrodnm/polyarcade/internal/ports"
)

const (
	gammaMarketsPath = "/markets"

	// No abrimos una ventana a punto de cerrar: mejor saltar a la siguiente.
	minWindowRemaining = 15 * time.Second
	maxWindowLookahead = 4
)

// ErrWindowNotFound indica que Gamma no conoce (todavía) ese slug.
var ErrWindowNotFound = errors.New("window not found")

// NextWindow busca la ventana up/down abierta más próxima para el asset,
// saltando los slugs excluidos y las ventanas a punto de cerrar.
// Implementa ports.MarketProvider junto con WindowBySlug.
func (c *Client) NextWindow(ctx context.Context, market string, exclude []string) (ports.MarketWindow, error) {
	now := time.Now().UTC()
	start := windowStart(now)
	step := int64(windowLength / time.Second)

	for i := int64(0); i < maxWindowLookahead; i++ {
		slug := windowSlug(market, start+i*step)
		if slices.Contains(exclude, slug) {
			continue
		}

		w, err := c.WindowBySlug(ctx, slug)
		if errors.Is(err, ErrWindowNotFound) {
			slog.Debug("gamma: window not listed yet", "slug", slug)
			continue
		}
		if err != nil {
			return ports.MarketWindow{}, err
		}
		if w.Resolved || time.Until(w.EndTime) < minWindowRemaining {
			continue
		}
		return w, nil
	}
	return ports.MarketWindow{}, fmt.Errorf("no open %s window within %d slots", market, maxWindowLookahead)
}

// WindowBySlug obtiene una ventana concreta de Gamma por su slug.
func (c *Client) WindowBySlug(ctx context.Context, slug string) (ports.MarketWindow, error) {
	u := fmt.Sprintf("%s%s?slug=%s", c.gammaBase, gammaMarketsPath, url.QueryEscape(slug))

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaLimiter, u, &resp); err != nil {
		return ports.MarketWindow{}, fmt.Errorf("gamma.WindowBySlug: %w", err)
	}
	if len(resp) == 0 {
		return ports.MarketWindow{}, fmt.Errorf("gamma.WindowBySlug %s: %w", slug, ErrWindowNotFound)
	}
	return mapWindow(resp[0])
}
