package game

import (
	"math"

	"github.com/alejandrodnm/polyarcade/internal/domain"
)

const (
	maxParticles     = 100
	particleGravity  = 0.05
	particleFriction = 0.98
	particleDecay    = 0.025
)

// Particle is one burst fragment. The rendering layer draws them; the
// engine only simulates position and lifetime.
type Particle struct {
	X, Y   float64
	VX, VY float64
	Life   float64 // 1.0 → 0.0
	Size   float64
	Color  string // rgba triplet, e.g. "245, 158, 11"
}

// spawnBurst appends count particles radiating from (x, y), trimming the
// oldest past the pool cap.
func spawnBurst(particles []Particle, x, y float64, color string, count int, rng domain.RandomSource) []Particle {
	for i := 0; i < count; i++ {
		angle := (2*math.Pi*float64(i))/float64(count) + (rng.Float64()-0.5)*0.5
		speed := 1.5 + rng.Float64()*3

		particles = append(particles, Particle{
			X:     x,
			Y:     y,
			VX:    math.Cos(angle) * speed,
			VY:    math.Sin(angle) * speed,
			Life:  1.0,
			Size:  1.5 + rng.Float64()*2,
			Color: color,
		})
	}
	if len(particles) > maxParticles {
		particles = particles[len(particles)-maxParticles:]
	}
	return particles
}

// tickParticles advances all particles one frame and drops the dead ones.
func tickParticles(particles []Particle) []Particle {
	alive := particles[:0]
	for i := range particles {
		p := particles[i]
		p.X += p.VX
		p.Y += p.VY
		p.VY += particleGravity
		p.VX *= particleFriction
		p.Life -= particleDecay
		if p.Life > 0 {
			alive = append(alive, p)
		}
	}
	return alive
}
