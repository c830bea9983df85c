package domain

import (
	"math"
	"time"
)

// ItemKind identifies a spawnable game item: five collectibles and two
// obstacles.
type ItemKind string

const (
	ItemCoin    ItemKind = "coin"    // +10 score
	ItemGem     ItemKind = "gem"     // +25 score
	ItemStreak  ItemKind = "streak"  // +1 bonus combo
	ItemShield  ItemKind = "shield"  // blocks next obstacle
	ItemJackpot ItemKind = "jackpot" // +15 score, sets boost flag

	ItemSpike ItemKind = "spike" // breaks combo
	ItemDrain ItemKind = "drain" // -5 score
)

// IsObstacle reports whether the kind damages the player instead of
// rewarding it.
func (k ItemKind) IsObstacle() bool {
	return k == ItemSpike || k == ItemDrain
}

// ItemDef is the static catalog entry for one item kind.
type ItemDef struct {
	Kind      ItemKind
	Weight    int     // spawn probability weight
	Radius    float64 // collision radius px
	Color     string  // primary draw color
	GlowColor string  // glow rgba triplet
	Label     string  // flash text on collect
}

// Catalog is the weighted spawn table. Weights sum to 100.
var Catalog = []ItemDef{
	{Kind: ItemCoin, Weight: 40, Radius: 16, Color: "#F59E0B", GlowColor: "245, 158, 11", Label: "+10 XP"},
	{Kind: ItemGem, Weight: 15, Radius: 18, Color: "#A78BFA", GlowColor: "167, 139, 250", Label: "+25 XP"},
	{Kind: ItemStreak, Weight: 20, Radius: 16, Color: "#00F0A0", GlowColor: "0, 240, 160", Label: "STREAK!"},
	{Kind: ItemShield, Weight: 10, Radius: 18, Color: "#60A5FA", GlowColor: "96, 165, 250", Label: "SHIELD!"},
	{Kind: ItemJackpot, Weight: 5, Radius: 18, Color: "#00F0A0", GlowColor: "0, 240, 160", Label: "JACKPOT BOOST!"},
	{Kind: ItemSpike, Weight: 8, Radius: 20, Color: "#FF4060", GlowColor: "255, 64, 96", Label: "OUCH!"},
	{Kind: ItemDrain, Weight: 2, Radius: 20, Color: "#FF4060", GlowColor: "255, 64, 96", Label: "-5 XP"},
}

var catalogTotalWeight = func() int {
	total := 0
	for _, d := range Catalog {
		total += d.Weight
	}
	return total
}()

// ItemDefOf returns the catalog entry for a kind. Unknown kinds fall back
// to the coin entry.
func ItemDefOf(kind ItemKind) ItemDef {
	for _, d := range Catalog {
		if d.Kind == kind {
			return d
		}
	}
	return Catalog[0]
}

// PickItemKind draws a kind from the catalog weighted by spawn probability.
func PickItemKind(rng RandomSource) ItemKind {
	r := rng.Float64() * float64(catalogTotalWeight)
	for _, d := range Catalog {
		r -= float64(d.Weight)
		if r <= 0 {
			return d.Kind
		}
	}
	return ItemCoin
}

// Spawn timing and geometry constants.
const (
	BaseSpawnInterval = 6 * time.Second
	MinSpawnInterval  = 3 * time.Second
	spawnJitter       = 4 * time.Second // ±2s

	MaxItems        = 6 // desktop
	MaxItemsCompact = 4 // constrained devices

	// Items spawn ahead of the price marker and drift left through it.
	DriftPxPerSec = 30.0
	// Horizontal spawn lead, as a fraction of chart width.
	SpawnLeadFrac = 0.25
	// An item past this x is discarded regardless of state.
	OffscreenX = -40.0

	MarkerRadius   = 22.0 // price marker collision radius px
	DeathAnimation = 500 * time.Millisecond
	ShieldDuration = 60 * time.Second
)

// SpawnInterval returns the next item spawn delay: 6s base, tightening by
// 1s per elapsed minute, floored at 3s, jittered ±2s.
func SpawnInterval(elapsed time.Duration, rng RandomSource) time.Duration {
	reduction := time.Duration(elapsed/time.Minute) * time.Second
	interval := BaseSpawnInterval - reduction
	jitter := time.Duration((rng.Float64() - 0.5) * float64(spawnJitter))
	if interval+jitter < MinSpawnInterval {
		return MinSpawnInterval
	}
	return interval + jitter
}

// SpawnPriceLevel draws an item price within ±30% of the visible range,
// biased around the marker price and clamped to a 10%-of-range margin from
// the chart edges.
func SpawnPriceLevel(markerPrice, minPrice, maxPrice float64, rng RandomSource) float64 {
	rng64 := rng.Float64()
	priceRange := maxPrice - minPrice
	band := priceRange * 0.3
	lo := math.Max(minPrice+priceRange*0.1, markerPrice-band)
	hi := math.Min(maxPrice-priceRange*0.1, markerPrice+band)
	if hi < lo {
		return markerPrice
	}
	return lo + rng64*(hi-lo)
}

// GameItem is one live item drifting across the chart.
type GameItem struct {
	ID         string
	Kind       ItemKind
	PriceLevel float64
	SpawnedAt  time.Time
	X, Y       float64
	Collected  bool
	HitAt      time.Time // zero until collected
	Radius     float64
	BobPhase   float64 // idle animation offset
}
