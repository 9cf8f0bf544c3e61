/*
Copyright © 2026 the Drift authors.
This file is part of Drift.

Drift is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Drift is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Drift.  If not, see <http://www.gnu.org/licenses/>.
*/

package drift

import (
	"fmt"
	"math"
	"runtime"
	"sync"
)

// A RunConfig holds the execution parameters of one Execute call.
type RunConfig struct {
	// Runtime is the length of simulated time to run for [s]. Always
	// positive; the sign of Dt selects the direction. Zero runs until
	// the end of the field time domain.
	Runtime float64

	// Dt is the integration time step [s]. Negative values run the
	// simulation backward in time. Zero makes Execute return
	// immediately without moving any particle.
	Dt float64

	// Output, if non-nil, receives particle snapshots.
	Output *ParticleFile

	// OutputDt is the simulated time between output snapshots [s].
	// Zero means a snapshot after every time step.
	OutputDt float64

	// MsgChan, if non-nil, receives progress messages.
	MsgChan chan string
}

// Execute advances all particles of the set through the configured
// run, invoking the kernel once per particle per time step. Particles
// released after the earliest release wait until the simulation clock
// reaches their release time. The first kernel error aborts the run.
func (ps *ParticleSet) Execute(kernel Kernel, c RunConfig) error {
	if c.Dt == 0 {
		return nil
	}
	if c.Runtime < 0 {
		return fmt.Errorf("drift: negative runtime %g s; use a negative Dt to run backward", c.Runtime)
	}
	if len(ps.particles) == 0 {
		return fmt.Errorf("drift: particle set is empty")
	}

	dir := 1.
	if c.Dt < 0 {
		dir = -1
	}
	ps.resolveReleaseTimes(dir)

	start := ps.particles[0].timeNextloop
	for _, p := range ps.particles {
		if (p.timeNextloop-start)*dir < 0 {
			start = p.timeNextloop
		}
	}
	end := start + c.Runtime*dir
	if c.Runtime == 0 {
		g := ps.fs.Grid
		end = g.Time[len(g.Time)-1]
		if dir < 0 {
			end = g.Time[0]
		}
	}

	if c.Output != nil {
		if err := c.Output.WriteLatestLocations(ps, start); err != nil {
			return err
		}
	}
	nextOutput := start + c.OutputDt*dir

	nprocs := runtime.GOMAXPROCS(0)
	var wg sync.WaitGroup

	step := 0
	for clock := start; (end-clock)*dir > tTolerance; clock += c.Dt {
		dt := c.Dt
		if remain := (end - clock) * dir; remain < math.Abs(dt) {
			dt = remain * dir
		}
		if c.MsgChan != nil {
			c.MsgChan <- fmt.Sprintf("Time step %d (model time %s): %d active particles",
				step, ps.fs.Grid.AbsoluteTime(clock).Format("2006-01-02 15:04:05"), ps.ActiveCount())
		}

		errs := make([]error, nprocs)
		wg.Add(nprocs)
		for pp := 0; pp < nprocs; pp++ {
			go func(pp int) {
				defer wg.Done()
				for ii := pp; ii < len(ps.particles); ii += nprocs {
					p := ps.particles[ii]
					if !p.active || (p.timeNextloop-clock)*dir > tTolerance {
						continue
					}
					p.Dt = dt
					if err := kernel(p, ps.fs, p.timeNextloop); err != nil {
						errs[pp] = fmt.Errorf("drift: particle %d at time %g s: %w", p.ID, p.timeNextloop, err)
						return
					}
					p.Time = p.timeNextloop + dt
					p.timeNextloop = p.Time
				}
			}(pp)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return err
			}
		}

		step++
		now := clock + dt
		if c.Output != nil && (c.OutputDt == 0 || (now-nextOutput)*dir >= -tTolerance) {
			if err := c.Output.WriteLatestLocations(ps, now); err != nil {
				return err
			}
			for c.OutputDt > 0 && (nextOutput-now)*dir <= tTolerance {
				nextOutput += c.OutputDt * dir
			}
		}
	}
	if c.Output != nil {
		if err := c.Output.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// resolveReleaseTimes assigns the simulation start time to particles
// released without an explicit time: the start of the field time
// domain for forward runs, its end for backward runs.
func (ps *ParticleSet) resolveReleaseTimes(dir float64) {
	g := ps.fs.Grid
	def := g.Time[0]
	if dir < 0 {
		def = g.Time[len(g.Time)-1]
	}
	// If any particle has an explicit release time, unset ones align
	// with the earliest (forward) or latest (backward) of those
	// instead.
	first := math.NaN()
	for _, p := range ps.particles {
		if !math.IsNaN(p.timeNextloop) && (math.IsNaN(first) || (p.timeNextloop-first)*dir < 0) {
			first = p.timeNextloop
		}
	}
	if !math.IsNaN(first) {
		def = first
	}
	for _, p := range ps.particles {
		if math.IsNaN(p.timeNextloop) {
			p.Time = def
			p.timeNextloop = def
		}
	}
}
