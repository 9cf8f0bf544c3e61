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
	"math"
	"testing"

	"github.com/ctessum/sparse"
)

// uniformFieldSet creates a field set with spatially and temporally
// constant velocities u and v [m/s] covering lon and lat 0 to 40
// degrees and model times 0 to 1e6 s.
func uniformFieldSet(t *testing.T, u, v float64, mesh Mesh) *FieldSet {
	t.Helper()
	coords := []float64{0, 10, 20, 30, 40}
	times := []float64{0, 5e5, 1e6}
	uniform := func(val float64) []*sparse.DenseArray {
		o := make([]*sparse.DenseArray, len(times))
		for k := range o {
			s := sparse.ZerosDense(len(coords), len(coords))
			for i := range s.Elements {
				s.Elements[i] = val
			}
			o[k] = s
		}
		return o
	}
	fs, err := NewFieldSet(uniform(u), uniform(v), coords, coords, nil, times, testOrigin,
		&FieldSetOptions{Mesh: mesh})
	if err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestAdvectionSpherical(t *testing.T) {
	// 1 m/s zonal flow: on a spherical mesh the longitudinal speed in
	// degrees depends on the latitude.
	fs := uniformFieldSet(t, 1, 0, MeshSpherical)
	for _, lat := range []float64{0, 20, 35} {
		p := &Particle{Lon: 10, Lat: lat, Dt: 3600, active: true}
		if err := AdvectionRK4(p, fs, 0); err != nil {
			t.Fatal(err)
		}
		want := 10 + 3600/(1852.*60.*math.Cos(lat*math.Pi/180))
		if different(p.Lon, want, 1e-9) {
			t.Errorf("lat %g: lon was %g, but should be %g", lat, p.Lon, want)
		}
		if different(p.Lat, lat, 1e-9) {
			t.Errorf("lat %g: latitude changed to %g during zonal flow", lat, p.Lat)
		}
	}
}

func TestAdvectionFlat(t *testing.T) {
	// On a flat mesh velocities apply to the coordinates directly.
	fs := uniformFieldSet(t, 2e-3, 1e-3, MeshFlat)
	p := &Particle{Lon: 10, Lat: 10, Dt: 1000, active: true}
	if err := AdvectionRK4(p, fs, 0); err != nil {
		t.Fatal(err)
	}
	if different(p.Lon, 12, 1e-9) || different(p.Lat, 11, 1e-9) {
		t.Errorf("position was (%g, %g), but should be (12, 11)", p.Lon, p.Lat)
	}
}

func TestAdvectionMethodsAgreeOnUniformFlow(t *testing.T) {
	// A uniform field has no spatial gradients, so Euler and RK4 give
	// identical results on a flat mesh.
	fs := uniformFieldSet(t, 1e-3, -2e-3, MeshFlat)
	rk := &Particle{Lon: 20, Lat: 20, Dt: 600, active: true}
	ee := &Particle{Lon: 20, Lat: 20, Dt: 600, active: true}
	if err := AdvectionRK4(rk, fs, 0); err != nil {
		t.Fatal(err)
	}
	if err := AdvectionEE(ee, fs, 0); err != nil {
		t.Fatal(err)
	}
	if different(rk.Lon, ee.Lon, 1e-12) || different(rk.Lat, ee.Lat, 1e-12) {
		t.Errorf("RK4 (%g, %g) and Euler (%g, %g) disagree on uniform flow",
			rk.Lon, rk.Lat, ee.Lon, ee.Lat)
	}
}

func TestAdvectionOutOfBounds(t *testing.T) {
	fs := uniformFieldSet(t, 1, 0, MeshSpherical)
	p := &Particle{Lon: -5, Lat: 10, Dt: 60, active: true}
	err := AdvectionRK4(p, fs, 0)
	if err == nil {
		t.Fatal("advecting an out-of-domain particle should fail")
	}
	if _, ok := err.(*OutOfBoundsError); !ok {
		t.Errorf("error was %T, but should be *OutOfBoundsError", err)
	}
}
