package domain

import (
	"math"
	"time"
)

// GamePhase is the round lifecycle.
type GamePhase string

const (
	PhaseActive GamePhase = "active"
	PhaseEnded  GamePhase = "ended"
)

// GameState is the mutable state of one game round. It is owned by the
// round engine and mutated only inside tick/lifecycle calls.
type GameState struct {
	Score          int
	Combo          int
	MaxCombo       int
	ShieldActive   bool
	ShieldExpiry   time.Time
	JackpotBoost   bool
	ItemsCollected int
	ObstaclesHit   int
	Phase          GamePhase
}

// NewGameState returns a reset round state.
func NewGameState() GameState {
	return GameState{Phase: PhaseEnded}
}

// ComboMultiplier is the score multiplier for the combo value BEFORE the
// post-hit increment: ≥10 → 3x, ≥5 → 2x, ≥3 → 1.5x, else 1x.
func ComboMultiplier(combo int) float64 {
	switch {
	case combo >= 10:
		return 3
	case combo >= 5:
		return 2
	case combo >= 3:
		return 1.5
	default:
		return 1
	}
}

// Collect applies a collectible hit to the state. It returns the score
// delta for the hit. The multiplier uses the combo count at entry; every
// collectible then increments combo by one, streak grants one extra.
func (s *GameState) Collect(kind ItemKind, now time.Time) int {
	mult := ComboMultiplier(s.Combo)
	delta := 0
	switch kind {
	case ItemCoin:
		delta = int(math.Round(10 * mult))
	case ItemGem:
		delta = int(math.Round(25 * mult))
	case ItemStreak:
		s.Combo++ // bonus on top of the standard +1 below
	case ItemShield:
		// Non-stacking: re-collecting while shielded just refreshes nothing.
		if !s.ShieldActive {
			s.ShieldActive = true
			s.ShieldExpiry = now.Add(ShieldDuration)
		}
	case ItemJackpot:
		s.JackpotBoost = true
		delta = int(math.Round(15 * mult))
	}
	s.Score += delta
	s.Combo++
	if s.Combo > s.MaxCombo {
		s.MaxCombo = s.Combo
	}
	s.ItemsCollected++
	return delta
}

// HitObstacle applies an obstacle hit. If a shield is active it is consumed
// and the effect is fully blocked (combo untouched, blocked=true). Otherwise
// spike resets the combo and drain subtracts 5 from score, floored at 0.
func (s *GameState) HitObstacle(kind ItemKind) (blocked bool) {
	if s.ShieldActive {
		s.ShieldActive = false
		return true
	}
	switch kind {
	case ItemSpike:
		s.Combo = 0
	case ItemDrain:
		s.Score -= 5
		if s.Score < 0 {
			s.Score = 0
		}
	}
	s.ObstaclesHit++
	return false
}

// ExpireShield drops the shield once its window has passed.
func (s *GameState) ExpireShield(now time.Time) {
	if s.ShieldActive && now.After(s.ShieldExpiry) {
		s.ShieldActive = false
	}
}

// RoundSummary is the frozen result of an ended round.
type RoundSummary struct {
	Score          int
	MaxCombo       int
	ItemsCollected int
	ObstaclesHit   int
}

// Summary snapshots the counters that survive the round.
func (s *GameState) Summary() RoundSummary {
	return RoundSummary{
		Score:          s.Score,
		MaxCombo:       s.MaxCombo,
		ItemsCollected: s.ItemsCollected,
		ObstaclesHit:   s.ObstaclesHit,
	}
}

// HUDSnapshot is the read-only view handed to the rendering layer on the
// batch cadence. The consumer never mutates engine state through it.
type HUDSnapshot struct {
	Score        int
	Combo        int
	ShieldActive bool
	FlashText    string
	FlashColor   string
}
