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
	"sync"
	"testing"
	"time"

	"github.com/ctessum/sparse"
)

// gradientSlices creates one [lat][lon] array per time sample where
// the value at (j, i) is base + i + 10*j + 100*k for time index k.
func gradientSlices(nx, ny, nt int, base float64) []*sparse.DenseArray {
	o := make([]*sparse.DenseArray, nt)
	for k := 0; k < nt; k++ {
		s := sparse.ZerosDense(ny, nx)
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				s.Set(base+float64(i)+10*float64(j)+100*float64(k), j, i)
			}
		}
		o[k] = s
	}
	return o
}

func testGradientSource(nx, ny, nt int) *ArraySource {
	lon := make([]float64, nx)
	lat := make([]float64, ny)
	times := make([]float64, nt)
	for i := range lon {
		lon[i] = float64(i)
	}
	for j := range lat {
		lat[j] = float64(j)
	}
	for k := range times {
		times[k] = float64(k) * 1000
	}
	src, err := NewArraySource(lon, lat, nil, times, testOrigin, map[string][]*sparse.DenseArray{
		"U": gradientSlices(nx, ny, nt, 0),
		"V": gradientSlices(nx, ny, nt, 1000),
	})
	if err != nil {
		panic(err)
	}
	return src
}

func TestFieldSample(t *testing.T) {
	src := testGradientSource(4, 3, 3)
	fs, err := FieldSetFromSource(src, []string{"U", "V"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	f, err := fs.Field("U")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		lon, lat, tm float64
		want         float64
	}{
		{0, 0, 0, 0},
		{1, 0, 0, 1},
		{0.5, 0, 0, 0.5},       // lon interpolation
		{0, 1.5, 0, 15},        // lat interpolation
		{2.5, 1.5, 0, 17.5},    // bilinear
		{1, 1, 500, 61},        // time interpolation
		{3, 2, 2000, 223},      // upper domain corner
		{0.25, 0.75, 1500, 157.75}, // all three
	}
	for _, tt := range tests {
		got, err := f.Sample(tt.lon, tt.lat, 0, tt.tm)
		if err != nil {
			t.Errorf("Sample(%g, %g, 0, %g): %v", tt.lon, tt.lat, tt.tm, err)
			continue
		}
		if different(got, tt.want, 1e-9) {
			t.Errorf("Sample(%g, %g, 0, %g) was %g, but should be %g", tt.lon, tt.lat, tt.tm, got, tt.want)
		}
	}

	if _, err := f.Sample(-1, 0, 0, 0); err == nil {
		t.Error("sampling outside the spatial domain should fail")
	} else if _, ok := err.(*OutOfBoundsError); !ok {
		t.Errorf("out-of-domain error was %T, but should be *OutOfBoundsError", err)
	}
	if _, err := f.Sample(0, 0, 0, 1e7); err == nil {
		t.Error("sampling outside the time domain should fail")
	} else if _, ok := err.(*TimeExtrapolationError); !ok {
		t.Errorf("time extrapolation error was %T, but should be *TimeExtrapolationError", err)
	}
}

func TestDeferredMatchesMaterialized(t *testing.T) {
	src := testGradientSource(5, 4, 6)
	mat, err := FieldSetFromSource(src, []string{"U", "V"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	def, err := FieldSetFromSource(src, []string{"U", "V"}, &FieldSetOptions{Deferred: true})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"U", "V"} {
		for _, tm := range []float64{0, 700, 1500, 2400, 5000} {
			for _, lon := range []float64{0, 1.3, 3.9} {
				for _, lat := range []float64{0.1, 2.5} {
					a, err := mat.Sample(name, lon, lat, 0, tm)
					if err != nil {
						t.Fatal(err)
					}
					b, err := def.Sample(name, lon, lat, 0, tm)
					if err != nil {
						t.Fatal(err)
					}
					if different(a, b, 1e-4) {
						t.Errorf("%s at (%g, %g, %g): deferred %g differs from materialized %g",
							name, lon, lat, tm, b, a)
					}
				}
			}
		}
	}
}

// countingSource wraps a Source, counting reads per time index.
type countingSource struct {
	Source
	mx    sync.Mutex
	reads map[int]int
}

func (c *countingSource) ReadSlice(variable string, timeIndex int) (*sparse.DenseArray, error) {
	c.mx.Lock()
	c.reads[timeIndex]++
	c.mx.Unlock()
	return c.Source.ReadSlice(variable, timeIndex)
}

func TestDeferredWindow(t *testing.T) {
	cs := &countingSource{Source: testGradientSource(3, 3, 8), reads: make(map[int]int)}
	fs, err := FieldSetFromSource(cs, []string{"U", "V"}, &FieldSetOptions{Deferred: true, DeferredWindow: 3})
	if err != nil {
		t.Fatal(err)
	}
	f, err := fs.Field("U")
	if err != nil {
		t.Fatal(err)
	}
	if !f.Deferred() {
		t.Fatal("field should be deferred")
	}

	// A forward sweep touches each slice once: the window keeps the
	// bracketing pair resident while the simulation moves through an
	// interval.
	for tm := 0.; tm <= 7000; tm += 250 {
		if _, err := f.Sample(1, 1, 0, tm); err != nil {
			t.Fatal(err)
		}
	}
	for i, n := range cs.reads {
		if n != 1 {
			t.Errorf("time index %d was read %d times during a forward sweep, but should be read once", i, n)
		}
	}
	if len(cs.reads) != 8 {
		t.Errorf("%d time indices were read, but should be 8", len(cs.reads))
	}
}

func TestPeriodicSampling(t *testing.T) {
	src := testGradientSource(3, 3, 3)
	fs, err := FieldSetFromSource(src, []string{"U", "V"}, &FieldSetOptions{TimePeriod: 3000})
	if err != nil {
		t.Fatal(err)
	}
	// Samples one or more whole periods apart must be equal.
	for _, tm := range []float64{0, 400, 1500, 2000} {
		base, err := fs.Sample("U", 1, 1, 0, tm)
		if err != nil {
			t.Fatal(err)
		}
		for _, cycles := range []float64{1, 3, -1} {
			got, err := fs.Sample("U", 1, 1, 0, tm+cycles*3000)
			if err != nil {
				t.Errorf("t=%g: %v", tm+cycles*3000, err)
				continue
			}
			if different(got, base, 1e-9) {
				t.Errorf("t=%g: sample was %g, but should equal the base period value %g",
					tm+cycles*3000, got, base)
			}
		}
	}
	// The wrap gap interpolates between the last and first slices.
	got, err := fs.Sample("U", 1, 1, 0, 2500)
	if err != nil {
		t.Fatal(err)
	}
	last, _ := fs.Sample("U", 1, 1, 0, 2000)
	first, _ := fs.Sample("U", 1, 1, 0, 0)
	if want := (last + first) / 2; different(got, want, 1e-9) {
		t.Errorf("wrap gap sample was %g, but should be %g", got, want)
	}
}

func TestFieldSetConstruction(t *testing.T) {
	if _, err := NewFieldSet(nil, nil, nil, nil, nil, nil, time.Time{}, nil); err == nil {
		t.Error("creating a field set from empty arrays should fail")
	}
	src := testGradientSource(3, 3, 2)
	if _, err := FieldSetFromSource(src, []string{"U"}, nil); err == nil {
		t.Error("a field set without a V component should fail")
	}
	fs, err := FieldSetFromSource(src, []string{"U", "V"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Field("W"); err == nil {
		t.Error("requesting a missing field should fail")
	}
	g, _ := NewGrid([]float64{0, 1, 2}, []float64{0, 1, 2}, nil, []float64{0, 1000}, testOrigin, MeshSpherical)
	extra, err := NewField("temp", g, gradientSlices(3, 3, 2, 0))
	if err != nil {
		t.Fatal(err)
	}
	if err := fs.AddField(extra); err != nil {
		t.Fatal(err)
	}
	if err := fs.AddField(extra); err == nil {
		t.Error("adding a duplicate field should fail")
	}
	// The added field was built from 2-D [lat][lon] arrays; sampling
	// must treat them as single-level 3-D data.
	v, err := fs.Sample("temp", 1, 1, 0, 500)
	if err != nil {
		t.Fatalf("sampling an added field: %v", err)
	}
	if different(v, 61, 1e-12) {
		t.Errorf("added field sample was %g, but should be 61", v)
	}
}
