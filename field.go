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

	"github.com/ctessum/sparse"
)

// DefaultDeferredWindow is the number of time slices a deferred field
// keeps in memory at once.
const DefaultDeferredWindow = 3

// A Field is one scalar component of gridded time series data (for
// example the zonal velocity U). Data is either materialized fully in
// memory or loaded per time slice on demand from a Source, keeping a
// small sliding window of slices resident.
type Field struct {
	// Name identifies the field within its FieldSet.
	Name string

	// Grid holds the coordinate arrays the data is defined on.
	Grid *Grid

	// data holds one array of shape [depth][lat][lon] per time
	// sample when the field is materialized.
	data []*sparse.DenseArray

	// cache replaces data when the field is deferred.
	cache *sliceCache
}

// NewField creates a materialized field from in-memory time slices,
// one array of shape [depth][lat][lon] per time sample of the grid.
func NewField(name string, grid *Grid, data []*sparse.DenseArray) (*Field, error) {
	if len(data) != len(grid.Time) {
		return nil, fmt.Errorf("drift: field %s: %d time slices for %d time samples",
			name, len(data), len(grid.Time))
	}
	slices := make([]*sparse.DenseArray, len(data))
	for i, s := range data {
		if err := checkSliceShape(s, len(grid.Depth), len(grid.Lat), len(grid.Lon)); err != nil {
			return nil, fmt.Errorf("drift: field %s, time index %d: %v", name, i, err)
		}
		slices[i] = promoteSlice(s)
	}
	return &Field{Name: name, Grid: grid, data: slices}, nil
}

// newDeferredField creates a field that loads time slices on demand
// from src, keeping at most window slices resident. window values
// below 2 are raised to 2; samples bracketing an interpolation time
// must be resident together.
func newDeferredField(name string, grid *Grid, src Source, window int) *Field {
	if window < 2 {
		window = DefaultDeferredWindow
	}
	return &Field{Name: name, Grid: grid, cache: newSliceCache(name, src, window)}
}

// Deferred reports whether the field loads time slices on demand.
func (f *Field) Deferred() bool { return f.cache != nil }

// slice returns the spatial array at the given time index, loading it
// from the source if the field is deferred.
func (f *Field) slice(i int) (*sparse.DenseArray, error) {
	if f.cache != nil {
		return f.cache.get(i)
	}
	if i < 0 || i >= len(f.data) {
		return nil, fmt.Errorf("drift: field %s: time index %d out of range [0,%d)",
			f.Name, i, len(f.data))
	}
	return f.data[i], nil
}

// Sample interpolates the field at the given location and time
// [seconds since the grid's time origin]. Interpolation is linear in
// time and in each spatial coordinate; sampling outside the spatial
// domain returns an OutOfBoundsError and sampling outside the time
// domain of a non-periodic field returns a TimeExtrapolationError.
func (f *Field) Sample(lon, lat, depth, t float64) (float64, error) {
	b, err := f.Grid.bracketTime(t, f.Name)
	if err != nil {
		return 0, err
	}
	v0, err := f.sampleSpace(b.i0, lon, lat, depth)
	if err != nil {
		return 0, err
	}
	if b.i0 == b.i1 || b.frac == 0 {
		return v0, nil
	}
	v1, err := f.sampleSpace(b.i1, lon, lat, depth)
	if err != nil {
		return 0, err
	}
	return v0 + b.frac*(v1-v0), nil
}

// sampleSpace interpolates one time slice at the given location.
func (f *Field) sampleSpace(ti int, lon, lat, depth float64) (float64, error) {
	g := f.Grid
	i, xf, ok := locate(g.Lon, lon)
	if !ok {
		return 0, &OutOfBoundsError{Field: f.Name, Lon: lon, Lat: lat, Depth: depth}
	}
	j, yf, ok := locate(g.Lat, lat)
	if !ok {
		return 0, &OutOfBoundsError{Field: f.Name, Lon: lon, Lat: lat, Depth: depth}
	}
	k, zf, ok := locate(g.Depth, depth)
	if !ok {
		return 0, &OutOfBoundsError{Field: f.Name, Lon: lon, Lat: lat, Depth: depth}
	}
	s, err := f.slice(ti)
	if err != nil {
		return 0, err
	}
	i1, j1, k1 := i, j, k
	if i1 < len(g.Lon)-1 {
		i1++
	}
	if j1 < len(g.Lat)-1 {
		j1++
	}
	if k1 < len(g.Depth)-1 {
		k1++
	}
	bilinear := func(kk int) float64 {
		v00 := s.Get(kk, j, i)
		v01 := s.Get(kk, j, i1)
		v10 := s.Get(kk, j1, i)
		v11 := s.Get(kk, j1, i1)
		v0 := v00 + xf*(v01-v00)
		v1 := v10 + xf*(v11-v10)
		return v0 + yf*(v1-v0)
	}
	v := bilinear(k)
	if k1 != k && zf != 0 {
		v += zf * (bilinear(k1) - v)
	}
	return v, nil
}

// A sliceCache loads time slices of one variable on demand and evicts
// the slice farthest from the most recent request when the resident
// window is full.
type sliceCache struct {
	variable string
	src      Source
	window   int

	mx     sync.Mutex
	slices map[int]*sparse.DenseArray
}

func newSliceCache(variable string, src Source, window int) *sliceCache {
	return &sliceCache{
		variable: variable,
		src:      src,
		window:   window,
		slices:   make(map[int]*sparse.DenseArray),
	}
}

func (c *sliceCache) get(i int) (*sparse.DenseArray, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if s, ok := c.slices[i]; ok {
		return s, nil
	}
	s, err := c.src.ReadSlice(c.variable, i)
	if err != nil {
		return nil, err
	}
	for len(c.slices) >= c.window {
		// Evict the resident index farthest from the requested one,
		// so both brackets of the current interpolation interval
		// stay loaded as the simulation sweeps through time.
		far, dist := -1, -1
		for j := range c.slices {
			d := j - i
			if d < 0 {
				d = -d
			}
			if d > dist {
				far, dist = j, d
			}
		}
		delete(c.slices, far)
	}
	c.slices[i] = s
	return s, nil
}
