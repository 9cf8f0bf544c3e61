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
	"sync"
)

// A Variable declares one user-defined per-particle state variable
// beyond the built-in position and time.
type Variable struct {
	// Name identifies the variable. It must not collide with the
	// built-in names (trajectory, time, lon, lat, depth).
	Name string

	// Initial is the value particles start with.
	Initial float64
}

// A Schema is the set of user-defined variables carried by every
// particle of a set.
type Schema struct {
	vars  []Variable
	index map[string]int
}

// reserved are the built-in output column names user variables may not
// shadow.
var reserved = map[string]bool{
	"trajectory": true, "time": true, "lon": true, "lat": true, "depth": true,
}

// NewSchema creates a schema from the given variable declarations.
func NewSchema(vars ...Variable) (*Schema, error) {
	s := &Schema{vars: vars, index: make(map[string]int, len(vars))}
	for i, v := range vars {
		if v.Name == "" {
			return nil, fmt.Errorf("drift: variable %d has no name", i)
		}
		if reserved[v.Name] {
			return nil, fmt.Errorf("drift: variable name %s is reserved", v.Name)
		}
		if _, ok := s.index[v.Name]; ok {
			return nil, fmt.Errorf("drift: duplicate variable name %s", v.Name)
		}
		s.index[v.Name] = i
	}
	return s, nil
}

// Variables returns the declared variables in declaration order.
func (s *Schema) Variables() []Variable {
	if s == nil {
		return nil
	}
	return s.vars
}

// A Particle is one tracked point moving through the fields. Kernels
// read and write its state; position and time updates take effect for
// subsequent samples immediately.
type Particle struct {
	// ID identifies the particle across the whole run, including
	// restarts. IDs are never reused.
	ID int64

	// Lon, Lat and Depth are the current position.
	Lon, Lat, Depth float64

	// Time is the particle's current time [seconds since the field
	// set's time origin].
	Time float64

	// Dt is the integration time step [s] the particle is advanced
	// with. Negative for backward simulation.
	Dt float64

	// timeNextloop is the time the particle's next kernel invocation
	// starts from. Particles released later than the set's earliest
	// release wait until the clock reaches it.
	timeNextloop float64

	active bool

	extra  []float64
	schema *Schema
}

// Active reports whether the particle still takes part in the
// simulation.
func (p *Particle) Active() bool { return p.active }

// Delete removes the particle from the simulation. Its state remains
// readable; it is skipped by all subsequent kernel invocations and
// output snapshots.
func (p *Particle) Delete() { p.active = false }

// Get returns the value of the named user-defined variable.
func (p *Particle) Get(name string) (float64, error) {
	if p.schema == nil {
		return 0, fmt.Errorf("drift: particle has no variable named %s", name)
	}
	i, ok := p.schema.index[name]
	if !ok {
		return 0, fmt.Errorf("drift: particle has no variable named %s", name)
	}
	return p.extra[i], nil
}

// Set assigns the named user-defined variable.
func (p *Particle) Set(name string, v float64) error {
	if p.schema == nil {
		return fmt.Errorf("drift: particle has no variable named %s", name)
	}
	i, ok := p.schema.index[name]
	if !ok {
		return fmt.Errorf("drift: particle has no variable named %s", name)
	}
	p.extra[i] = v
	return nil
}

// An idAllocator hands out globally unique particle IDs. Restarted
// runs seed it past the IDs already present in the output file.
type idAllocator struct {
	mx   sync.Mutex
	next int64
}

func (a *idAllocator) alloc(n int) []int64 {
	a.mx.Lock()
	defer a.mx.Unlock()
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = a.next
		a.next++
	}
	return ids
}

// setFloor raises the next ID to be at least floor.
func (a *idAllocator) setFloor(floor int64) {
	a.mx.Lock()
	defer a.mx.Unlock()
	if floor > a.next {
		a.next = floor
	}
}
