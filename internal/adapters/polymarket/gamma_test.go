package polymarket_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyarcade/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyarcade/internal/domain"
)

// gammaStub serves /markets?slug=... answering every known slug and
// recording the order of lookups.
type gammaStub struct {
	mu      sync.Mutex
	markets map[string]map[string]any
	lookups []string
}

func newGammaStub() *gammaStub {
	return &gammaStub{markets: make(map[string]map[string]any)}
}

func (g *gammaStub) add(slug string, market map[string]any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	market["slug"] = slug
	g.markets[slug] = market
}

func (g *gammaStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slug := r.URL.Query().Get("slug")
		g.mu.Lock()
		g.lookups = append(g.lookups, slug)
		market, ok := g.markets[slug]
		g.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.Write([]byte("[]"))
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{market})
	})
}

func (g *gammaStub) lookupOrder() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.lookups...)
}

func openMarket(end time.Time) map[string]any {
	return map[string]any{
		"question":      "Up or down?",
		"outcomePrices": `["0.5", "0.5"]`,
		"clobTokenIds":  `["tok-yes", "tok-no"]`,
		"endDate":       end.UTC().Format(time.RFC3339),
		"active":        true,
	}
}

func currentSlug(asset string) string {
	now := time.Now().UTC().Unix()
	return fmt.Sprintf("%s-updown-5m-%d", asset, now/300*300)
}

func nextSlug(asset string) string {
	now := time.Now().UTC().Unix()
	return fmt.Sprintf("%s-updown-5m-%d", asset, now/300*300+300)
}

func TestWindowBySlug_Success(t *testing.T) {
	stub := newGammaStub()
	stub.add("btc-updown-5m-1700000100", map[string]any{
		"question":      "BTC up or down?",
		"outcomePrices": `["0.61", "0.39"]`,
		"clobTokenIds":  `["tok-yes", "tok-no"]`,
		"endDate":       "2023-11-14T22:20:00Z",
	})
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := polymarket.NewClient(srv.URL)
	w, err := client.WindowBySlug(context.Background(), "btc-updown-5m-1700000100")
	require.NoError(t, err)
	assert.Equal(t, "btc-updown-5m-1700000100", w.Slug)
	assert.Equal(t, "tok-yes", w.TokenID)
	assert.Equal(t, 0.61, w.YesPrice)
}

func TestWindowBySlug_NotFound(t *testing.T) {
	srv := httptest.NewServer(newGammaStub().handler())
	defer srv.Close()

	client := polymarket.NewClient(srv.URL)
	_, err := client.WindowBySlug(context.Background(), "btc-updown-5m-1")
	assert.ErrorIs(t, err, polymarket.ErrWindowNotFound)
}

func TestWindowBySlug_ServerErrorIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := polymarket.NewClient(srv.URL)
	_, err := client.WindowBySlug(context.Background(), "btc-updown-5m-1")
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestNextWindow_PicksCurrentOpenWindow(t *testing.T) {
	current := currentSlug("btc")
	next := nextSlug("btc")
	stub := newGammaStub()
	stub.add(current, openMarket(time.Now().Add(4*time.Minute)))
	stub.add(next, openMarket(time.Now().Add(9*time.Minute)))
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := polymarket.NewClient(srv.URL)
	w, err := client.NextWindow(context.Background(), "btc", nil)
	require.NoError(t, err)
	// Near a boundary the current window may be skipped as almost-over.
	assert.Contains(t, []string{current, next}, w.Slug)
}

func TestNextWindow_SkipsExcludedSlugs(t *testing.T) {
	current := currentSlug("btc")
	next := nextSlug("btc")
	stub := newGammaStub()
	stub.add(current, openMarket(time.Now().Add(4*time.Minute)))
	stub.add(next, openMarket(time.Now().Add(9*time.Minute)))
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := polymarket.NewClient(srv.URL)
	w, err := client.NextWindow(context.Background(), "btc", []string{current})
	require.NoError(t, err)
	assert.NotEqual(t, current, w.Slug)
	assert.NotContains(t, stub.lookupOrder(), current)
}

func TestNextWindow_SkipsUnlistedWindows(t *testing.T) {
	next := nextSlug("eth")
	stub := newGammaStub()
	stub.add(next, openMarket(time.Now().Add(9*time.Minute)))
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	client := polymarket.NewClient(srv.URL)
	w, err := client.NextWindow(context.Background(), "eth", nil)
	require.NoError(t, err)
	assert.Equal(t, next, w.Slug)
}

func TestNextWindow_NoneOpen(t *testing.T) {
	srv := httptest.NewServer(newGammaStub().handler())
	defer srv.Close()

	client := polymarket.NewClient(srv.URL)
	_, err := client.NextWindow(context.Background(), "btc", nil)
	assert.Error(t, err)
}
