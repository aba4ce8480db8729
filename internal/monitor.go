// Package wattboxctl implements the tool-level API behind the CLI
// commands: the polling/energy-integration loop and config loading. The
// cmd package only parses flags and hands them off here.
package wattboxctl

import (
	"context"
	"fmt"
	"time"

	"github.com/openpdu/wattboxctl/internal/cache/sqlite"
	"github.com/openpdu/wattboxctl/pkg/energy"
	"github.com/openpdu/wattboxctl/pkg/wattbox"
	"github.com/rs/zerolog/log"
)

// DeviceMeteringPoint keys the whole-device integrator in the energy
// cache; per-outlet integrators use OutletMeteringPoint.
const DeviceMeteringPoint = "device"

func OutletMeteringPoint(number int) string {
	return fmt.Sprintf("outlet-%d", number)
}

// MonitorParams collects everything the monitor loop needs. Timeout and
// Interval are in seconds to match the CLI flags.
type MonitorParams struct {
	Host      string
	Username  string
	Password  string
	Insecure  bool
	Timeout   int
	Interval  int
	CachePath string
}

// Monitor polls the PDU at a fixed interval, feeds power samples into one
// energy integrator per metering point, and persists the integrator
// snapshots to the sqlite cache after every successful poll. Previously
// persisted snapshots are restored on startup so totals survive restarts.
// The loop runs until ctx is canceled; a failed poll is logged and adds
// nothing (stale totals are preferable to fabricated ones).
func Monitor(ctx context.Context, params *MonitorParams) error {
	client, err := wattbox.NewClient(wattbox.Config{
		Host:     params.Host,
		Username: params.Username,
		Password: params.Password,
		Insecure: params.Insecure,
		Timeout:  time.Duration(params.Timeout) * time.Second,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	integrators := make(map[string]*energy.Integrator)
	states, err := sqlite.GetEnergyStates(params.CachePath, params.Host)
	if err != nil {
		log.Warn().Err(err).Msg("could not load persisted energy state; starting fresh")
	}
	for _, state := range states {
		g := energy.NewIntegrator()
		lastSample := time.Time{}
		if state.LastSample != nil {
			lastSample = *state.LastSample
		}
		g.Restore(state.EnergyKwh, state.LastPower, lastSample)
		integrators[state.Point] = g
		log.Debug().Str("point", state.Point).Float64("kwh", state.EnergyKwh).Msg("restored energy state")
	}

	interval := time.Duration(params.Interval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	log.Info().Str("host", params.Host).Dur("interval", interval).Msg("starting PDU monitor")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		pollOnce(ctx, client, params, integrators)
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping PDU monitor")
			return nil
		case <-ticker.C:
		}
	}
}

func pollOnce(ctx context.Context, client *wattbox.Client, params *MonitorParams, integrators map[string]*energy.Integrator) {
	now := time.Now()
	status, err := client.FetchStatus(ctx)
	if err != nil {
		// No sample this round; integrators keep their previous state.
		log.Warn().Err(err).Str("host", params.Host).Msg("PDU poll failed")
		return
	}

	observe(integrators, DeviceMeteringPoint, status.Metrics.TotalWatts, now)
	for _, outlet := range status.Outlets {
		observe(integrators, OutletMeteringPoint(outlet.Number), outlet.Watts, now)
	}

	persisted := make([]sqlite.EnergyState, 0, len(integrators))
	for point, g := range integrators {
		if !g.Primed() {
			continue
		}
		snap := g.Snapshot()
		state := sqlite.EnergyState{
			Host:      params.Host,
			Point:     point,
			EnergyKwh: snap.EnergyKwh,
			LastPower: snap.LastPower,
		}
		if !snap.LastSample.IsZero() {
			ts := snap.LastSample
			state.LastSample = &ts
		}
		persisted = append(persisted, state)
	}
	if err := sqlite.SaveEnergyStates(params.CachePath, persisted...); err != nil {
		log.Warn().Err(err).Msg("failed to persist energy state")
	}

	if device, ok := integrators[DeviceMeteringPoint]; ok {
		log.Debug().
			Int("outlets", len(status.Outlets)).
			Float64("kwh", device.TotalKilowattHours()).
			Msg("PDU poll complete")
	}
}

// observe routes one sample to the integrator for a metering point,
// creating it on first sight. A nil watts value still creates the
// integrator so "no data yet" is representable, but observes nothing.
func observe(integrators map[string]*energy.Integrator, point string, watts *float64, now time.Time) {
	g, ok := integrators[point]
	if !ok {
		g = energy.NewIntegrator()
		integrators[point] = g
	}
	g.Observe(watts, now)
}
