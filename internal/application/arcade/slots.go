package arcade

import (
	"github.com/alejandrodnm/polyarcade/internal/domain"
)

// MaxConcurrentBets is the hard cap of simultaneously live bets per session.
const MaxConcurrentBets = 5

// Slots tracks the 0..N concurrently live bets of a session and enforces
// the slot and credit limits. It is not safe for concurrent use on its own;
// the session controller guards it with its lock.
type Slots struct {
	max  int
	bets []*domain.Bet
}

// NewSlots creates a slot tracker. max <= 0 uses MaxConcurrentBets.
func NewSlots(max int) *Slots {
	if max <= 0 {
		max = MaxConcurrentBets
	}
	return &Slots{max: max}
}

// CanPlace checks the slot and credit gates for a new placement. No state
// is mutated on failure.
func (s *Slots) CanPlace(creditsRemaining int) error {
	if len(s.bets) >= s.max {
		return domain.ErrSlotsExhausted
	}
	if creditsRemaining <= 0 {
		return domain.ErrNoCreditsRemaining
	}
	return nil
}

// Add appends a bet, re-checking the cap so the count can never exceed the
// max even transiently.
func (s *Slots) Add(b *domain.Bet) error {
	if len(s.bets) >= s.max {
		return domain.ErrSlotsExhausted
	}
	s.bets = append(s.bets, b)
	return nil
}

// Get returns the bet with the given id.
func (s *Slots) Get(id string) (*domain.Bet, bool) {
	for _, b := range s.bets {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}

// Remove deletes and returns the bet with the given id.
func (s *Slots) Remove(id string) (*domain.Bet, bool) {
	for i, b := range s.bets {
		if b.ID == id {
			s.bets = append(s.bets[:i], s.bets[i+1:]...)
			return b, true
		}
	}
	return nil, false
}

// Count is the number of occupied slots, any status.
func (s *Slots) Count() int { return len(s.bets) }

// LiveCount is the number of bets still in status live.
func (s *Slots) LiveCount() int {
	n := 0
	for _, b := range s.bets {
		if b.Status == domain.BetStatusLive {
			n++
		}
	}
	return n
}

// Slugs returns the window slugs already held for a market, for exclusion
// on the next placement.
func (s *Slots) Slugs(market string) []string {
	var out []string
	for _, b := range s.bets {
		if b.Market == market && b.Slug != "" {
			out = append(out, b.Slug)
		}
	}
	return out
}

// All returns copies of every tracked bet, placement order preserved.
func (s *Slots) All() []domain.Bet {
	out := make([]domain.Bet, len(s.bets))
	for i, b := range s.bets {
		out[i] = *b
	}
	return out
}

// Clear drops every bet and returns the removed copies.
func (s *Slots) Clear() []domain.Bet {
	out := s.All()
	s.bets = nil
	return out
}
