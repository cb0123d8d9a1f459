// Package simulation generates plausible household sensor readings.
package simulation

import (
	"math"
	"math/rand"
	"time"

	"github.com/danielpatrickdp/adaptive-home/go-controller/internal/home"
)

// #region simulator
// Simulator evolves a single home's state across calls to Next. It is not
// safe for concurrent use.
type Simulator struct {
	rng   *rand.Rand
	state home.Reading
}

// New returns a simulator seeded with seed, starting from a comfortable,
// occupied home with the door closed.
func New(seed int64) *Simulator {
	return &Simulator{
		rng: rand.New(rand.NewSource(seed)),
		state: home.Reading{
			Temperature: 22,
			Humidity:    45,
			AirQuality:  95,
			Presence:    true,
		},
	}
}

// Next advances the simulation to now and returns the new reading.
func (s *Simulator) Next(now time.Time) home.Reading {
	hour := now.Hour()
	active := hour >= 7 && hour <= 22

	s.state.Temperature = 20 + 5*math.Sin(math.Pi*float64(hour-6)/12) + s.uniform(-1, 1)
	s.state.Humidity = clamp(60-(s.state.Temperature-20)+s.uniform(-5, 5), 30, 70)

	toggle := 0.01
	if active {
		toggle = 0.1
	}
	if s.rng.Float64() < toggle {
		s.state.DoorOpen = !s.state.DoorOpen
	}

	if s.state.DoorOpen {
		s.state.AirQuality = math.Min(100, s.state.AirQuality+s.uniform(0, 5))
	} else {
		s.state.AirQuality = math.Max(0, s.state.AirQuality-s.uniform(0, 2))
	}

	present := 0.95
	if active {
		present = 0.9
	}
	s.state.Presence = s.rng.Float64() < present

	return s.state
}

// #endregion simulator

func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
