// Package energy turns periodic power samples into cumulative energy.
// One Integrator tracks one metering point (a whole PDU or a single
// outlet) across restarts, clock anomalies, and long outages.
package energy

import (
	"math"
	"time"
)

// maxGapHours caps how much of a polling gap is credited with energy.
// Past this the device or the process was unreachable for so long that
// extrapolating the whole gap would fabricate consumption; exactly 24
// hours of the newest sample's power is credited instead.
const maxGapHours = 24

// Integrator accumulates kilowatt-hours from (power, timestamp) samples
// using the trapezoidal rule. It holds no locks; callers observing the
// same metering point from multiple goroutines must serialize.
type Integrator struct {
	totalKwh   float64
	lastPower  float64
	lastSample time.Time
	primed     bool
}

// Snapshot is the persistable hand-off state of an Integrator. LastPower
// is nil until a first sample has been observed.
type Snapshot struct {
	EnergyKwh  float64
	LastPower  *float64
	LastSample time.Time
}

func NewIntegrator() *Integrator {
	return &Integrator{}
}

// Restore seeds the integrator from previously persisted state. It is
// meant to be called once, before the first Observe. A nil lastPower (or
// zero lastSample) restores only the accumulated total, so the next
// sample primes the integrator without adding energy.
func (g *Integrator) Restore(energyKwh float64, lastPower *float64, lastSample time.Time) {
	g.totalKwh = energyKwh
	if lastPower != nil && !lastSample.IsZero() {
		g.lastPower = *lastPower
		g.lastSample = lastSample
		g.primed = true
	}
}

// Observe feeds one power sample in watts. A nil power means the sample
// could not be obtained and is a no-op. The first real sample primes the
// integrator without adding energy. After that:
//
//   - a backwards clock step adds nothing but adopts the new sample,
//   - a gap over 24h credits the new power for exactly 24 hours,
//   - otherwise the trapezoidal average of the two samples is credited
//     for the elapsed interval.
func (g *Integrator) Observe(power *float64, now time.Time) {
	if power == nil {
		return
	}
	p := *power
	if !g.primed {
		g.lastPower = p
		g.lastSample = now
		g.primed = true
		return
	}

	dt := now.Sub(g.lastSample).Hours()
	switch {
	case dt < 0:
		// Clock moved backwards; skip the interval entirely.
	case dt > maxGapHours:
		g.totalKwh += p * maxGapHours / 1000
	default:
		g.totalKwh += (p + g.lastPower) / 2 * dt / 1000
	}
	g.lastPower = p
	g.lastSample = now
}

// TotalKilowattHours returns the running total rounded to 3 decimal
// places for display. The unrounded accumulator remains authoritative
// for further integration.
func (g *Integrator) TotalKilowattHours() float64 {
	return math.Round(g.totalKwh*1000) / 1000
}

// Primed reports whether at least one sample has been observed (or
// restored); an unprimed metering point has no data yet, which is not
// the same as zero.
func (g *Integrator) Primed() bool {
	return g.primed
}

// Snapshot returns the persistable state for hand-off to external
// storage.
func (g *Integrator) Snapshot() Snapshot {
	s := Snapshot{EnergyKwh: g.totalKwh}
	if g.primed {
		p := g.lastPower
		s.LastPower = &p
		s.LastSample = g.lastSample
	}
	return s
}
