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

package driftutil

import (
	"fmt"
	"math"

	"github.com/GaryBoone/GoStats/stats"

	"github.com/spatialmodel/drift"
)

// A Summary describes the displacement of the particles of a run
// relative to their positions when the summary was started.
type Summary struct {
	start map[int64][2]float64 // id → release lon, lat
}

// NewSummary captures the current particle positions as the reference
// for displacement statistics.
func NewSummary(ps *drift.ParticleSet) *Summary {
	s := &Summary{start: make(map[int64][2]float64)}
	for _, p := range ps.Particles() {
		s.start[p.ID] = [2]float64{p.Lon, p.Lat}
	}
	return s
}

// Report returns displacement statistics [degrees] over the particles
// still active, formatted one statistic per line.
func (s *Summary) Report(ps *drift.ParticleSet) string {
	var d []float64
	for _, p := range ps.Particles() {
		if !p.Active() {
			continue
		}
		st, ok := s.start[p.ID]
		if !ok {
			continue
		}
		d = append(d, math.Hypot(p.Lon-st[0], p.Lat-st[1]))
	}
	if len(d) == 0 {
		return "No active particles remain."
	}
	o := fmt.Sprintf("Displacement over %d particles [degrees]:\n", len(d))
	o += fmt.Sprintf("  mean: %.4g\n", stats.StatsMean(d))
	o += fmt.Sprintf("  min:  %.4g\n", stats.StatsMin(d))
	o += fmt.Sprintf("  max:  %.4g", stats.StatsMax(d))
	if len(d) > 1 {
		o += fmt.Sprintf("\n  stdev: %.4g", stats.StatsSampleStandardDeviation(d))
	}
	return o
}
