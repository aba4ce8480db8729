package energy

import (
	"math"
	"testing"
	"time"
)

func pf(v float64) *float64 {
	return &v
}

func TestFirstObservationAddsNothing(t *testing.T) {
	g := NewIntegrator()
	g.Observe(pf(500), time.Now())
	if got := g.TotalKilowattHours(); got != 0 {
		t.Errorf("expected 0 kWh after first sample, got %v", got)
	}
	if !g.Primed() {
		t.Error("expected integrator to be primed after first sample")
	}
}

func TestNilPowerIsNoOp(t *testing.T) {
	g := NewIntegrator()
	t0 := time.Now()
	g.Observe(pf(100), t0)
	g.Observe(nil, t0.Add(time.Hour))
	g.Observe(pf(100), t0.Add(2*time.Hour))

	// the nil sample neither integrates nor advances lastSample, so the
	// second real sample covers the full 2h at 100W
	if got := g.TotalKilowattHours(); got != 0.2 {
		t.Errorf("expected 0.2 kWh, got %v", got)
	}
}

func TestTrapezoidalIntegration(t *testing.T) {
	g := NewIntegrator()
	t0 := time.Now()
	g.Observe(pf(100), t0)
	g.Observe(pf(100), t0.Add(time.Hour))
	if got := g.TotalKilowattHours(); got != 0.1 {
		t.Errorf("expected exactly 0.1 kWh for 100W over 1h, got %v", got)
	}

	// ramp: average of 100W and 300W over 30min = 0.1 kWh
	g.Observe(pf(300), t0.Add(90*time.Minute))
	if got := g.TotalKilowattHours(); got != 0.2 {
		t.Errorf("expected 0.2 kWh after ramp, got %v", got)
	}
}

func TestLongGapIsCapped(t *testing.T) {
	g := NewIntegrator()
	t0 := time.Now()
	g.Observe(pf(200), t0)
	g.Observe(pf(200), t0.Add(30*time.Hour))

	// 24h of the new sample's power, not 30h of the trapezoid
	if got := g.TotalKilowattHours(); got != 4.8 {
		t.Errorf("expected 4.8 kWh for capped 30h gap, got %v", got)
	}
}

func TestClockRegressionSkipsIntervalButAdoptsSample(t *testing.T) {
	g := NewIntegrator()
	t0 := time.Now()
	g.Observe(pf(100), t0)
	g.Observe(pf(400), t0.Add(-5*time.Minute))
	if got := g.TotalKilowattHours(); got != 0 {
		t.Errorf("expected no energy added on clock regression, got %v", got)
	}

	snap := g.Snapshot()
	if snap.LastPower == nil || *snap.LastPower != 400 {
		t.Errorf("expected lastPower updated to 400, got %v", snap.LastPower)
	}
	if !snap.LastSample.Equal(t0.Add(-5 * time.Minute)) {
		t.Errorf("expected lastSample updated to the regressed time, got %v", snap.LastSample)
	}

	// integration resumes from the adopted sample
	g.Observe(pf(400), t0.Add(55*time.Minute))
	if got := g.TotalKilowattHours(); got != 0.4 {
		t.Errorf("expected 0.4 kWh after resuming, got %v", got)
	}
}

func TestMonotonicForNonNegativePower(t *testing.T) {
	g := NewIntegrator()
	now := time.Now()
	powers := []float64{0, 13.7, 0, 250, 1800, 5, 5, 0}
	prev := 0.0
	for i, p := range powers {
		g.Observe(pf(p), now.Add(time.Duration(i)*17*time.Minute))
		if got := g.TotalKilowattHours(); got < prev {
			t.Fatalf("total decreased from %v to %v at sample %d", prev, got, i)
		} else {
			prev = got
		}
	}
}

func TestRestore(t *testing.T) {
	g := NewIntegrator()
	t0 := time.Now()
	g.Restore(12.345, pf(150), t0)
	if got := g.TotalKilowattHours(); got != 12.345 {
		t.Errorf("expected restored total 12.345, got %v", got)
	}

	// trapezoid of 150W and 250W over 1h on top of the restored total
	g.Observe(pf(250), t0.Add(time.Hour))
	if got := g.TotalKilowattHours(); got != 12.545 {
		t.Errorf("expected 12.545 kWh after restored integration, got %v", got)
	}
}

func TestRestoreWithoutLastSampleOnlySeedsTotal(t *testing.T) {
	g := NewIntegrator()
	g.Restore(3.5, nil, time.Time{})
	if g.Primed() {
		t.Error("expected integrator unprimed after total-only restore")
	}

	// the next sample primes without adding energy
	g.Observe(pf(1000), time.Now())
	if got := g.TotalKilowattHours(); got != 3.5 {
		t.Errorf("expected 3.5 kWh after priming sample, got %v", got)
	}
}

func TestDisplayRoundingDoesNotLoseAccumulation(t *testing.T) {
	g := NewIntegrator()
	t0 := time.Now()
	g.Observe(pf(1), t0)
	// 1W for one minute at a time; each slice is ~0.0000167 kWh, far
	// below display resolution
	for i := 1; i <= 60; i++ {
		g.Observe(pf(1), t0.Add(time.Duration(i)*time.Minute))
	}
	if got := g.TotalKilowattHours(); got != 0.001 {
		t.Errorf("expected 0.001 kWh after an hour at 1W, got %v", got)
	}
}

func TestSnapshotRoundtrip(t *testing.T) {
	g := NewIntegrator()
	t0 := time.Now()
	g.Observe(pf(100), t0)
	g.Observe(pf(100), t0.Add(time.Hour))
	snap := g.Snapshot()

	restored := NewIntegrator()
	restored.Restore(snap.EnergyKwh, snap.LastPower, snap.LastSample)
	restored.Observe(pf(100), t0.Add(2*time.Hour))
	g.Observe(pf(100), t0.Add(2*time.Hour))

	if a, b := g.TotalKilowattHours(), restored.TotalKilowattHours(); math.Abs(a-b) > 1e-12 {
		t.Errorf("restored integrator diverged: %v vs %v", a, b)
	}
}
