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
	"time"
)

// A Release declares where and when particles enter the simulation.
// Lon and Lat are required; the remaining arrays either match their
// length, hold a single value broadcast to all particles, or are nil
// for the defaults (depth 0, release at the simulation start time).
type Release struct {
	Lon, Lat, Depth []float64

	// Time holds release times [seconds since the field set's time
	// origin]. NaN entries (and a nil array) mean release at the
	// simulation start.
	Time []float64

	// Timestamps is an alternative to Time, as absolute times.
	// Setting both is an error.
	Timestamps []time.Time

	// Schema declares the user-defined variables of the released
	// particles. May be nil.
	Schema *Schema
}

// A ParticleSet holds the particles of one simulation and the field
// set they move through.
type ParticleSet struct {
	fs        *FieldSet
	particles []*Particle
	alloc     *idAllocator
}

// NewParticleSet creates a particle set, releasing particles as the
// given release declares. Release times are resolved against the
// field set when Execute runs: particles without an explicit time
// start at the simulation start time.
func NewParticleSet(fs *FieldSet, rel Release) (*ParticleSet, error) {
	ps := &ParticleSet{fs: fs, alloc: &idAllocator{}}
	if err := ps.Release(rel); err != nil {
		return nil, err
	}
	return ps, nil
}

// Release adds the declared particles to the set. It may be called
// between Execute calls to add particles mid-run.
func (ps *ParticleSet) Release(rel Release) error {
	n := len(rel.Lon)
	if n == 0 {
		return fmt.Errorf("drift: release declares no particles")
	}
	if len(rel.Lat) != n {
		return fmt.Errorf("drift: release has %d longitudes but %d latitudes", n, len(rel.Lat))
	}
	depth, err := broadcast(rel.Depth, n, "depth")
	if err != nil {
		return err
	}
	if rel.Time != nil && rel.Timestamps != nil {
		return fmt.Errorf("drift: release sets both Time and Timestamps")
	}
	times := rel.Time
	if rel.Timestamps != nil {
		times = make([]float64, len(rel.Timestamps))
		for i, ts := range rel.Timestamps {
			times[i] = ps.fs.Grid.RelativeTime(ts)
		}
	}
	times, err = broadcast(times, n, "time")
	if err != nil {
		return err
	}
	ids := ps.alloc.alloc(n)
	for i := 0; i < n; i++ {
		p := &Particle{
			ID:     ids[i],
			Lon:    rel.Lon[i],
			Lat:    rel.Lat[i],
			active: true,
			schema: rel.Schema,
		}
		if depth != nil {
			p.Depth = depth[i]
		}
		if times != nil {
			p.Time = times[i]
		} else {
			p.Time = math.NaN()
		}
		p.timeNextloop = p.Time
		if rel.Schema != nil {
			p.extra = make([]float64, len(rel.Schema.vars))
			for j, v := range rel.Schema.vars {
				p.extra[j] = v.Initial
			}
		}
		ps.particles = append(ps.particles, p)
	}
	return nil
}

// broadcast expands a length-1 array to n entries. nil stays nil.
func broadcast(a []float64, n int, what string) ([]float64, error) {
	switch len(a) {
	case 0:
		if a == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("drift: release %s array is empty", what)
	case 1:
		if n == 1 {
			return a, nil
		}
		o := make([]float64, n)
		for i := range o {
			o[i] = a[0]
		}
		return o, nil
	case n:
		return a, nil
	}
	return nil, fmt.Errorf("drift: release %s array has %d entries; want 1 or %d", what, len(a), n)
}

// Particles returns all particles of the set, including deleted ones.
func (ps *ParticleSet) Particles() []*Particle { return ps.particles }

// ActiveCount returns the number of particles still taking part in
// the simulation.
func (ps *ParticleSet) ActiveCount() int {
	n := 0
	for _, p := range ps.particles {
		if p.active {
			n++
		}
	}
	return n
}

// FieldSet returns the field set the particles move through.
func (ps *ParticleSet) FieldSet() *FieldSet { return ps.fs }

// FromParticleFile creates a particle set resuming from the output of
// an earlier run. Each trajectory restarts from its final recorded
// state (its latest observation for forward simulation, earliest for
// backward), keeping its original ID; newly released particles get
// IDs beyond any present in the file.
func FromParticleFile(fs *FieldSet, path string, schema *Schema, backward bool) (*ParticleSet, error) {
	states, err := readFinalStates(path, schema, backward)
	if err != nil {
		return nil, err
	}
	ps := &ParticleSet{fs: fs, alloc: &idAllocator{}}
	var maxID int64 = -1
	for _, st := range states {
		p := &Particle{
			ID:     st.id,
			Lon:    st.lon,
			Lat:    st.lat,
			Depth:  st.depth,
			Time:   st.time,
			active: true,
			schema: schema,
		}
		p.timeNextloop = p.Time
		if schema != nil {
			p.extra = st.extra
		}
		ps.particles = append(ps.particles, p)
		if st.id > maxID {
			maxID = st.id
		}
	}
	ps.alloc.setFloor(maxID + 1)
	return ps, nil
}
