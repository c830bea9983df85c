package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polyarcade/internal/application/game"
	"github.com/alejandrodnm/polyarcade/internal/domain"
)

func testFeed() *Feed {
	return NewFeed(Config{
		Symbol:       "btcusdt",
		ChartWidth:   400,
		ChartHeight:  300,
		HeaderOffset: 52,
		Window:       time.Minute,
	})
}

func TestFeed_NoFrameWithoutPrices(t *testing.T) {
	f := testFeed()
	_, ok := f.buildFrame(time.Now())
	assert.False(t, ok)
}

func TestFeed_FrameGeometry(t *testing.T) {
	f := testFeed()
	now := time.Now()
	f.recordTrade(100, now.Add(-30*time.Second))
	f.recordTrade(100, now.Add(-20*time.Second))
	f.recordTrade(100, now)

	fd, ok := f.buildFrame(now)
	require.True(t, ok)

	assert.Equal(t, 400.0, fd.ChartWidth)
	assert.Equal(t, 52.0, fd.HeaderOffset)
	assert.InDelta(t, 400*markerFrac, fd.MarkerX, 1e-9)

	// A flat history opens a minimal band around the price, with the
	// marker vertically centered. MarkerY is chart-relative like PriceToY.
	assert.Less(t, fd.MinPrice, 100.0)
	assert.Greater(t, fd.MaxPrice, 100.0)
	assert.InDelta(t, 150.0, fd.PriceToY(100), 0.5)
	assert.InDelta(t, fd.PriceToY(fd.MarkerPrice), fd.MarkerY, 1e-9)

	// Extremes map to the chart edges.
	assert.InDelta(t, 300.0, fd.PriceToY(fd.MinPrice), 1e-9)
	assert.InDelta(t, 0.0, fd.PriceToY(fd.MaxPrice), 1e-9)

	// Time axis: window start at x=0, now at the marker column.
	assert.InDelta(t, 0.0, fd.TimeToX(now.Add(-time.Minute)), 1e-9)
	assert.InDelta(t, fd.MarkerX, fd.TimeToX(now), 1e-9)
}

// halfRNG draws 0.5 always: spawned items land exactly on the marker price.
type halfRNG struct{}

func (halfRNG) Float64() float64 { return 0.5 }

type manualClock struct{ t time.Time }

func (c *manualClock) now() time.Time { return c.t }

func TestFeed_FrameDrivesMarkerCollision(t *testing.T) {
	f := testFeed() // HeaderOffset 52
	now := time.Unix(1_700_000_000, 0)
	f.recordTrade(100, now.Add(-30*time.Second))
	f.recordTrade(100, now)

	fd, ok := f.buildFrame(now)
	require.True(t, ok)

	clock := &manualClock{t: now}
	e := game.NewEngine(game.Config{}, halfRNG{}, clock.now)
	e.Start()

	clock.t = clock.t.Add(6 * time.Second) // past the initial spawn delay
	e.Tick(fd)
	require.Len(t, e.Items(), 1)
	assert.InDelta(t, fd.MarkerPrice, e.Items()[0].PriceLevel, 1e-6)

	// The item drifts left into the marker column and must hit it even with
	// the chart pushed down by the header.
	collected := false
	for i := 0; i < 10 && !collected; i++ {
		clock.t = clock.t.Add(400 * time.Millisecond)
		e.Tick(fd)
		for _, it := range e.Items() {
			if it.Collected {
				collected = true
			}
		}
	}
	assert.True(t, collected, "item at the marker price never hit the marker")
}

func TestFeed_EMASmoothing(t *testing.T) {
	f := testFeed()
	now := time.Now()
	f.recordTrade(100, now)
	f.recordTrade(200, now.Add(time.Second))

	fd, ok := f.buildFrame(now.Add(time.Second))
	require.True(t, ok)
	// 0.2*200 + 0.8*100 = 120, not the raw 200.
	assert.InDelta(t, 120.0, fd.MarkerPrice, 1e-9)
}

func TestFeed_HistoryTrimmedToWindow(t *testing.T) {
	f := testFeed()
	now := time.Now()
	f.recordTrade(100, now.Add(-2*time.Minute))
	f.recordTrade(100, now)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Len(t, f.history, 1)
}

func TestFeed_IsWinning(t *testing.T) {
	f := testFeed()
	now := time.Now()
	f.recordTrade(100, now)

	fd, _ := f.buildFrame(now)
	assert.False(t, fd.IsWinning) // no reference set

	f.SetReference(domain.SideUp, 90)
	fd, _ = f.buildFrame(now)
	assert.True(t, fd.IsWinning)

	f.SetReference(domain.SideUp, 110)
	fd, _ = f.buildFrame(now)
	assert.False(t, fd.IsWinning)

	f.SetReference(domain.SideDown, 110)
	fd, _ = f.buildFrame(now)
	assert.True(t, fd.IsWinning)

	f.SetReference("", 0)
	fd, _ = f.buildFrame(now)
	assert.False(t, fd.IsWinning)
}

func TestFeed_RunStreamsFrames(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/btcusdt@aggTrade", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 0; i < 50; i++ {
			msg := `{"p": "65000.50", "T": ` + "1700000000000" + `}`
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}))
	defer srv.Close()

	f := NewFeed(Config{
		URL:           "ws" + strings.TrimPrefix(srv.URL, "http"),
		Symbol:        "btcusdt",
		FrameInterval: 10 * time.Millisecond,
		Window:        time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.Run(ctx)

	select {
	case fd := <-f.Frames():
		assert.InDelta(t, 65000.50, fd.MarkerPrice, 0.01)
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
}
