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
	"time"

	"github.com/ctessum/sparse"
)

// A Source supplies gridded time series data to fields. It exposes the
// coordinate arrays of the underlying dataset and a time-indexed array
// reader; how the data is stored on disk (or whether it is on disk at
// all) is opaque to the engine.
//
// ReadSlice must be safe for concurrent use and idempotent: reading the
// same slice twice returns equal data.
type Source interface {
	// Coords returns the longitude, latitude and depth coordinate
	// arrays of the dataset. Depth may be nil for 2-D data.
	Coords() (lon, lat, depth []float64)

	// Times returns the time samples [seconds since origin] and the
	// absolute time origin of the dataset.
	Times() (times []float64, origin time.Time)

	// ReadSlice reads the full spatial array of the named variable at
	// the given time index, with shape [depth][lat][lon].
	ReadSlice(variable string, timeIndex int) (*sparse.DenseArray, error)
}

// An ArraySource is a fully in-memory Source built from raw coordinate
// and data arrays. It backs the raw-array FieldSet construction path.
type ArraySource struct {
	lon, lat, depth []float64
	times           []float64
	origin          time.Time
	data            map[string][]*sparse.DenseArray // variable name → one array per time sample
}

// NewArraySource creates a Source from raw arrays. data maps each
// variable name to one spatial array per time sample; each array must
// have shape [depth][lat][lon] ([lat][lon] is accepted for 2-D data).
func NewArraySource(lon, lat, depth, times []float64, origin time.Time, data map[string][]*sparse.DenseArray) (*ArraySource, error) {
	if len(depth) == 0 {
		depth = []float64{0}
	}
	for name, slices := range data {
		if len(slices) != len(times) {
			return nil, fmt.Errorf("drift: variable %s has %d time slices but the time array has %d samples",
				name, len(slices), len(times))
		}
		for i, s := range slices {
			if err := checkSliceShape(s, len(depth), len(lat), len(lon)); err != nil {
				return nil, fmt.Errorf("drift: variable %s, time index %d: %v", name, i, err)
			}
		}
	}
	return &ArraySource{lon: lon, lat: lat, depth: depth, times: times,
		origin: origin, data: data}, nil
}

func checkSliceShape(s *sparse.DenseArray, nz, ny, nx int) error {
	switch len(s.Shape) {
	case 2:
		if nz != 1 || s.Shape[0] != ny || s.Shape[1] != nx {
			return fmt.Errorf("shape %v does not match grid (%d, %d, %d)", s.Shape, nz, ny, nx)
		}
	case 3:
		if s.Shape[0] != nz || s.Shape[1] != ny || s.Shape[2] != nx {
			return fmt.Errorf("shape %v does not match grid (%d, %d, %d)", s.Shape, nz, ny, nx)
		}
	default:
		return fmt.Errorf("array must be 2- or 3-dimensional, not %d-dimensional", len(s.Shape))
	}
	return nil
}

// promoteSlice returns a 3-dimensional [1][lat][lon] copy of a
// 2-dimensional [lat][lon] array; other arrays pass through unchanged.
func promoteSlice(s *sparse.DenseArray) *sparse.DenseArray {
	if len(s.Shape) != 2 {
		return s
	}
	o := sparse.ZerosDense(1, s.Shape[0], s.Shape[1])
	copy(o.Elements, s.Elements)
	return o
}

// Coords implements the Source interface.
func (a *ArraySource) Coords() (lon, lat, depth []float64) { return a.lon, a.lat, a.depth }

// Times implements the Source interface.
func (a *ArraySource) Times() ([]float64, time.Time) { return a.times, a.origin }

// ReadSlice implements the Source interface.
func (a *ArraySource) ReadSlice(variable string, timeIndex int) (*sparse.DenseArray, error) {
	slices, ok := a.data[variable]
	if !ok {
		return nil, fmt.Errorf("drift: variable %s is not present in the data source", variable)
	}
	if timeIndex < 0 || timeIndex >= len(slices) {
		return nil, fmt.Errorf("drift: time index %d out of range [0,%d) for variable %s",
			timeIndex, len(slices), variable)
	}
	return promoteSlice(slices[timeIndex]), nil
}

func iotaInts(n int) []int {
	o := make([]int, n)
	for i := range o {
		o[i] = i
	}
	return o
}
