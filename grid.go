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
	"sort"
	"time"

	"github.com/ctessum/geom"
)

// Mesh specifies the coordinate convention of a grid.
type Mesh int

const (
	// MeshSpherical means that horizontal coordinates are degrees
	// longitude and latitude on a sphere. Velocities sampled from fields
	// on a spherical mesh are in m/s and are converted to degrees/s
	// during vector lookups.
	MeshSpherical Mesh = iota

	// MeshFlat means that horizontal coordinates and velocities share
	// the same length unit, so no conversion is applied.
	MeshFlat
)

func (m Mesh) String() string {
	switch m {
	case MeshSpherical:
		return "spherical"
	case MeshFlat:
		return "flat"
	default:
		return fmt.Sprintf("unknown mesh (%d)", int(m))
	}
}

// metersPerDegree is the length of one degree of latitude
// (one minute of latitude = one nautical mile).
const metersPerDegree = 1852. * 60.

// A Grid is the coordinate system underlying one or more fields:
// longitude, latitude and depth arrays plus a strictly monotonic time
// array. Multiple fields may share one Grid.
type Grid struct {
	Lon   []float64 // longitude cell centers [degrees or meters]
	Lat   []float64 // latitude cell centers [degrees or meters]
	Depth []float64 // depth levels [m]; length 1 for 2-D fields
	Time  []float64 // time samples [seconds since TimeOrigin], strictly increasing

	// TimeOrigin anchors Time to absolute timestamps. It may be the
	// zero time for purely relative time axes.
	TimeOrigin time.Time

	Mesh Mesh

	// TimePeriod, if positive, is the period [s] with which the time
	// axis repeats. Query times are reduced modulo the period before
	// bracketing.
	TimePeriod float64
}

// NewGrid creates a grid from the given coordinate arrays, checking the
// invariants that sampling relies on. The depth array may be nil for
// 2-D fields.
func NewGrid(lon, lat, depth, times []float64, origin time.Time, mesh Mesh) (*Grid, error) {
	if len(lon) == 0 || len(lat) == 0 {
		return nil, fmt.Errorf("drift: grid: empty lon or lat coordinate array")
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("drift: grid: time array must have at least one sample")
	}
	if len(depth) == 0 {
		depth = []float64{0}
	}
	for name, c := range map[string][]float64{"lon": lon, "lat": lat, "depth": depth, "time": times} {
		if !sort.Float64sAreSorted(c) {
			return nil, fmt.Errorf("drift: grid: %s coordinate array is not monotonically increasing", name)
		}
	}
	for i := 1; i < len(times); i++ {
		if times[i] == times[i-1] {
			return nil, fmt.Errorf("drift: grid: duplicate time sample %g", times[i])
		}
	}
	return &Grid{Lon: lon, Lat: lat, Depth: depth, Time: times,
		TimeOrigin: origin, Mesh: mesh}, nil
}

// Bounds returns the horizontal extent of the grid.
func (g *Grid) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: g.Lon[0], Y: g.Lat[0]},
		Max: geom.Point{X: g.Lon[len(g.Lon)-1], Y: g.Lat[len(g.Lat)-1]},
	}
}

// InDomain reports whether the given horizontal location lies within
// the grid extent. It can be used to pre-filter release locations when
// a run should tolerate out-of-domain seeds.
func (g *Grid) InDomain(p geom.Point) bool {
	b := g.Bounds()
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// AbsoluteTime converts a model time [seconds since TimeOrigin] to an
// absolute timestamp.
func (g *Grid) AbsoluteTime(t float64) time.Time {
	return g.TimeOrigin.Add(time.Duration(t * float64(time.Second)))
}

// RelativeTime converts an absolute timestamp to model time.
func (g *Grid) RelativeTime(t time.Time) float64 {
	return t.Sub(g.TimeOrigin).Seconds()
}

// StartTime and EndTime are the first and last time samples of the grid.
func (g *Grid) StartTime() float64 { return g.Time[0] }
func (g *Grid) EndTime() float64   { return g.Time[len(g.Time)-1] }

// timeBracket holds the result of locating a query time within the
// grid time axis.
type timeBracket struct {
	i0, i1 int     // indices of the bracketing samples
	frac   float64 // interpolation weight of sample i1
}

// tTolerance absorbs floating point noise when comparing model times.
const tTolerance = 1e-6

// bracketTime locates the two time samples surrounding query time t,
// applying the periodic wrap first when TimePeriod is set. A time
// outside the (possibly wrapped) domain yields a TimeExtrapolationError
// carrying the given field name.
func (g *Grid) bracketTime(t float64, field string) (timeBracket, error) {
	n := len(g.Time)
	t0, t1 := g.Time[0], g.Time[n-1]
	if g.TimePeriod > 0 {
		t = t0 + math.Mod(t-t0, g.TimePeriod)
		if t < t0 {
			t += g.TimePeriod
		}
		if t > t1 {
			// Between the last sample and the first sample of the next
			// cycle: interpolate across the wrap gap.
			gap := t0 + g.TimePeriod - t1
			return timeBracket{i0: n - 1, i1: 0, frac: (t - t1) / gap}, nil
		}
	}
	if t < t0-tTolerance || t > t1+tTolerance {
		return timeBracket{}, &TimeExtrapolationError{Field: field, Time: t}
	}
	if n == 1 || t >= t1 {
		return timeBracket{i0: n - 1, i1: n - 1, frac: 0}, nil
	}
	i := sort.SearchFloat64s(g.Time, t)
	if i > 0 && g.Time[i] != t {
		i--
	}
	if i == n-1 {
		return timeBracket{i0: i, i1: i, frac: 0}, nil
	}
	frac := (t - g.Time[i]) / (g.Time[i+1] - g.Time[i])
	return timeBracket{i0: i, i1: i + 1, frac: frac}, nil
}

// locate finds the cell containing x within the coordinate array c,
// returning the lower index and the linear interpolation weight of the
// upper index. Coordinates may be irregularly spaced.
func locate(c []float64, x float64) (int, float64, bool) {
	n := len(c)
	if n == 1 {
		return 0, 0, true // single level
	}
	if x < c[0] || x > c[n-1] {
		return 0, 0, false
	}
	i := sort.SearchFloat64s(c, x)
	if i > 0 && (i == n || c[i] != x) {
		i--
	}
	if i >= n-1 {
		return n - 2, 1, true
	}
	return i, (x - c[i]) / (c[i+1] - c[i]), true
}

// subsetCoords returns the elements of c at the given indices, which
// must be increasing. A nil index slice selects every element.
func subsetCoords(c []float64, idx []int) ([]float64, error) {
	if idx == nil {
		return c, nil
	}
	o := make([]float64, len(idx))
	for i, j := range idx {
		if j < 0 || j >= len(c) {
			return nil, fmt.Errorf("drift: coordinate subset index %d out of range [0,%d)", j, len(c))
		}
		if i > 0 && idx[i-1] >= j {
			return nil, fmt.Errorf("drift: coordinate subset indices must be increasing")
		}
		o[i] = c[j]
	}
	return o, nil
}
