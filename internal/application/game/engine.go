package game

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polyarcade/internal/domain"
	"github.com/alejandrodnm/polyarcade/internal/ports"
)

const (
	hudInterval   = 150 * time.Millisecond
	flashDuration = 1200 * time.Millisecond

	defaultBurst = 14
	compactBurst = 8
)

// Config holds round engine settings.
type Config struct {
	Compact bool // constrained device: lower item cap and burst size
}

// TickOutput is everything one tick hands to the consuming layer. HUD is
// nil except on the batch cadence; flash events are emitted per hit
// regardless of it.
type TickOutput struct {
	HUD     *domain.HUDSnapshot
	Flashes []ports.Flash
}

// Engine runs the per-frame item simulation over the price chart. It is
// exclusively owned by the session controller and mutated only inside
// Start/Tick/End.
type Engine struct {
	cfg   Config
	rng   domain.RandomSource
	now   func() time.Time
	burst int
	cap   int

	state     domain.GameState
	items     []*domain.GameItem
	particles []Particle

	roundStart time.Time
	lastSpawn  time.Time
	nextSpawn  time.Duration
	lastHUD    time.Time

	flashText  string
	flashColor string
	flashUntil time.Time
}

// NewEngine creates a round engine. A nil rng uses the default source; a
// nil now uses time.Now.
func NewEngine(cfg Config, rng domain.RandomSource, now func() time.Time) *Engine {
	if rng == nil {
		rng = domain.DefaultRNG()
	}
	if now == nil {
		now = time.Now
	}
	itemCap, burst := domain.MaxItems, defaultBurst
	if cfg.Compact {
		itemCap, burst = domain.MaxItemsCompact, compactBurst
	}
	return &Engine{
		cfg:   cfg,
		rng:   rng,
		now:   now,
		cap:   itemCap,
		burst: burst,
		state: domain.NewGameState(),
	}
}

// Active reports whether a round is running.
func (e *Engine) Active() bool { return e.state.Phase == domain.PhaseActive }

// Start resets all counters, items, and timers and begins a round.
func (e *Engine) Start() {
	now := e.now()
	e.state = domain.GameState{Phase: domain.PhaseActive}
	e.items = nil
	e.particles = nil
	e.roundStart = now
	e.lastSpawn = now
	e.nextSpawn = 4*time.Second + time.Duration(e.rng.Float64()*float64(3*time.Second))
	e.lastHUD = time.Time{}
	e.flashText = ""
	e.flashUntil = time.Time{}
}

// End freezes the round and returns its summary. Further ticks are no-ops.
func (e *Engine) End() domain.RoundSummary {
	e.state.Phase = domain.PhaseEnded
	return e.state.Summary()
}

// Tick advances the simulation one render frame against the frame oracle.
// Order within a tick: spawn, position update, collision + economy,
// particles, shield expiry, HUD batch. Every collision is fully resolved
// before the HUD batch check runs.
func (e *Engine) Tick(fd domain.FrameData) TickOutput {
	var out TickOutput
	if e.state.Phase != domain.PhaseActive {
		return out
	}

	now := e.now()
	elapsed := now.Sub(e.roundStart)

	if now.Sub(e.lastSpawn) > e.nextSpawn && len(e.items) < e.cap {
		e.items = append(e.items, e.spawnItem(fd, now))
		e.lastSpawn = now
		e.nextSpawn = domain.SpawnInterval(elapsed, e.rng)
	}

	markerY := fd.MarkerY + fd.HeaderOffset

	kept := e.items[:0]
	for _, item := range e.items {
		item.Y = fd.PriceToY(item.PriceLevel) + fd.HeaderOffset
		age := now.Sub(item.SpawnedAt)
		spawnX := fd.MarkerX + fd.ChartWidth*domain.SpawnLeadFrac
		item.X = spawnX - age.Seconds()*domain.DriftPxPerSec

		if item.X < domain.OffscreenX {
			continue
		}

		if item.Collected {
			// Keep through the death animation, then drop.
			if now.Sub(item.HitAt) > domain.DeathAnimation {
				continue
			}
			kept = append(kept, item)
			continue
		}

		dx := fd.MarkerX - item.X
		dy := markerY - item.Y
		if math.Hypot(dx, dy) < item.Radius+domain.MarkerRadius {
			item.Collected = true
			item.HitAt = now
			out.Flashes = append(out.Flashes, e.applyHit(item, now)...)
		}
		kept = append(kept, item)
	}
	e.items = kept

	e.particles = tickParticles(e.particles)
	e.state.ExpireShield(now)

	if now.Sub(e.lastHUD) > hudInterval {
		e.lastHUD = now
		out.HUD = e.snapshot(now)
	}
	return out
}

// applyHit runs the economy rules for one collision and returns its flash
// events.
func (e *Engine) applyHit(item *domain.GameItem, now time.Time) []ports.Flash {
	def := domain.ItemDefOf(item.Kind)

	if item.Kind.IsObstacle() {
		if e.state.HitObstacle(item.Kind) {
			e.particles = spawnBurst(e.particles, item.X, item.Y, "96, 165, 250", e.burst, e.rng)
			e.setFlash("SHIELD BLOCKED!", "#60A5FA", now)
			return []ports.Flash{{Text: "SHIELD BLOCKED!", Color: "#60A5FA"}}
		}
		e.particles = spawnBurst(e.particles, item.X, item.Y, def.GlowColor, e.burst, e.rng)
		e.setFlash(def.Label, def.Color, now)
		return []ports.Flash{{Text: def.Label, Color: def.Color}}
	}

	e.state.Collect(item.Kind, now)
	e.particles = spawnBurst(e.particles, item.X, item.Y, def.GlowColor, e.burst, e.rng)

	if e.state.Combo > 0 && e.state.Combo%5 == 0 {
		text := fmt.Sprintf("%dx COMBO!", e.state.Combo)
		e.setFlash(text, "#00F0A0", now)
		return []ports.Flash{{Text: text, Color: "#00F0A0"}}
	}
	e.setFlash(def.Label, def.Color, now)
	return []ports.Flash{{Text: def.Label, Color: def.Color}}
}

func (e *Engine) spawnItem(fd domain.FrameData, now time.Time) *domain.GameItem {
	kind := domain.PickItemKind(e.rng)
	def := domain.ItemDefOf(kind)
	return &domain.GameItem{
		ID:         uuid.New().String(),
		Kind:       kind,
		PriceLevel: domain.SpawnPriceLevel(fd.MarkerPrice, fd.MinPrice, fd.MaxPrice, e.rng),
		SpawnedAt:  now,
		Radius:     def.Radius,
		BobPhase:   e.rng.Float64() * 2 * math.Pi,
	}
}

func (e *Engine) setFlash(text, color string, now time.Time) {
	e.flashText = text
	e.flashColor = color
	e.flashUntil = now.Add(flashDuration)
}

// snapshot builds the immutable HUD view for the batch cadence.
func (e *Engine) snapshot(now time.Time) *domain.HUDSnapshot {
	h := &domain.HUDSnapshot{
		Score:        e.state.Score,
		Combo:        e.state.Combo,
		ShieldActive: e.state.ShieldActive,
	}
	if now.Before(e.flashUntil) {
		h.FlashText = e.flashText
		h.FlashColor = e.flashColor
	}
	return h
}

// State returns a copy of the round counters.
func (e *Engine) State() domain.GameState { return e.state }

// Items returns copies of the live items, spawn order preserved.
func (e *Engine) Items() []domain.GameItem {
	out := make([]domain.GameItem, len(e.items))
	for i, it := range e.items {
		out[i] = *it
	}
	return out
}

// Particles returns the current particle pool for the rendering layer.
func (e *Engine) Particles() []Particle { return e.particles }
