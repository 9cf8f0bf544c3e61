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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// writeTestNCF writes a NetCDF file with velocity variables uname and
// vname on the given coordinates. times are written with the given
// units attribute.
func writeTestNCF(t *testing.T, path, uname, vname, timeUnits string, lon, lat, times []float64, u, v []*sparse.DenseArray) {
	t.Helper()
	h := cdf.NewHeader([]string{"time", "latitude", "longitude"},
		[]int{len(times), len(lat), len(lon)})
	h.AddVariable("longitude", []string{"longitude"}, []float64{0})
	h.AddVariable("latitude", []string{"latitude"}, []float64{0})
	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "units", timeUnits)
	h.AddVariable(uname, []string{"time", "latitude", "longitude"}, []float32{0})
	h.AddVariable(vname, []string{"time", "latitude", "longitude"}, []float32{0})
	h.Define()
	for _, err := range h.Check() {
		t.Fatal(err)
	}
	ff, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer ff.Close()
	f, err := cdf.Create(ff, h)
	if err != nil {
		t.Fatal(err)
	}
	write64 := func(name string, data []float64) {
		w := f.Writer(name, []int{0}, []int{len(data)})
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	write64("longitude", lon)
	write64("latitude", lat)
	write64("time", times)
	for name, slices := range map[string][]*sparse.DenseArray{uname: u, vname: v} {
		data := make([]float32, 0, len(times)*len(lat)*len(lon))
		for _, s := range slices {
			for _, e := range s.Elements {
				data = append(data, float32(e))
			}
		}
		w := f.Writer(name, []int{0, 0, 0}, []int{len(times), len(lat), len(lon)})
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
}

func TestOpenDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vel.nc")
	lon := []float64{0, 1, 2, 3}
	lat := []float64{10, 11, 12}
	hours := []float64{0, 6, 12}
	u := gradientSlices(4, 3, 3, 0)
	v := gradientSlices(4, 3, 3, 1000)
	writeTestNCF(t, path, "uo", "vo", "hours since 2002-01-02 00:00:00", lon, lat, hours, u, v)

	ds, err := OpenDataset(path, map[string]string{"U": "uo", "V": "vo"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	dlon, dlat, ddep := ds.Coords()
	if len(dlon) != 4 || len(dlat) != 3 || len(ddep) != 1 {
		t.Fatalf("coordinate lengths were (%d, %d, %d), but should be (4, 3, 1)", len(dlon), len(dlat), len(ddep))
	}
	times, origin := ds.Times()
	wantOrigin := time.Date(2002, 1, 2, 0, 0, 0, 0, time.UTC)
	if !origin.Equal(wantOrigin) {
		t.Errorf("time origin was %v, but should be %v", origin, wantOrigin)
	}
	for i, h := range hours {
		if different(times[i], h*3600, 1e-9) {
			t.Errorf("time %d was %g s, but should be %g s", i, times[i], h*3600)
		}
	}
	s, err := ds.ReadSlice("U", 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := u[1].Get(2, 3); different(s.Get(0, 2, 3), want, 1e-4) {
		t.Errorf("slice value was %g, but should be %g", s.Get(0, 2, 3), want)
	}
}

func TestFieldSetFromNetCDFMatchesRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vel.nc")
	lon := []float64{0, 1, 2, 3, 4}
	lat := []float64{-2, -1, 0, 1}
	secs := []float64{0, 1000, 2000}
	u := gradientSlices(5, 4, 3, 0)
	v := gradientSlices(5, 4, 3, 500)
	writeTestNCF(t, path, "U", "V", "seconds since 2002-01-01 00:00:00", lon, lat, secs, u, v)

	fromFile, err := FieldSetFromNetCDF(path, map[string]string{"U": "U", "V": "V"}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := NewFieldSet(u, v, lon, lat, nil, secs, testOrigin, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"U", "V"} {
		for _, tm := range []float64{0, 500, 1900} {
			for _, x := range []float64{0, 1.7, 4} {
				a, err := fromFile.Sample(name, x, 0.3, 0, tm)
				if err != nil {
					t.Fatal(err)
				}
				b, err := raw.Sample(name, x, 0.3, 0, tm)
				if err != nil {
					t.Fatal(err)
				}
				if different(a, b, 1e-4) {
					t.Errorf("%s at (%g, 0.3, %g): file-backed %g differs from raw %g", name, x, tm, a, b)
				}
			}
		}
	}
}

func TestOpenDatasetMultiFile(t *testing.T) {
	dir := t.TempDir()
	lon := []float64{0, 1, 2}
	lat := []float64{0, 1, 2}
	origin := time.Date(2002, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		u := gradientSlices(3, 3, 1, float64(i)*100)
		v := gradientSlices(3, 3, 1, float64(i)*100+50)
		writeTestNCF(t, filepath.Join(dir, fmt.Sprintf("vel%d.nc", i)), "U", "V",
			"seconds since 2002-01-01 00:00:00", lon, lat, []float64{0}, u, v)
	}
	stamps := []time.Time{origin, origin.Add(time.Hour), origin.Add(2 * time.Hour)}
	ds, err := OpenDataset(filepath.Join(dir, "vel*.nc"),
		map[string]string{"U": "U", "V": "V"}, &DatasetOptions{Timestamps: stamps})
	if err != nil {
		t.Fatal(err)
	}
	times, dsOrigin := ds.Times()
	if !dsOrigin.Equal(origin) {
		t.Errorf("origin was %v, but should be %v", dsOrigin, origin)
	}
	want := []float64{0, 3600, 7200}
	if len(times) != 3 {
		t.Fatalf("%d time samples, but should be 3", len(times))
	}
	for i := range want {
		if different(times[i], want[i], 1e-9) {
			t.Errorf("time %d was %g, but should be %g", i, times[i], want[i])
		}
	}
	// Each file contributes its own data at its global index.
	for i := 0; i < 3; i++ {
		s, err := ds.ReadSlice("U", i)
		if err != nil {
			t.Fatal(err)
		}
		if want := float64(i) * 100; different(s.Get(0, 0, 0), want, 1e-4) {
			t.Errorf("slice %d corner value was %g, but should be %g", i, s.Get(0, 0, 0), want)
		}
	}
}

func TestOpenDatasetSubset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vel.nc")
	lon := []float64{0, 1, 2, 3}
	lat := []float64{0, 1, 2}
	writeTestNCF(t, path, "U", "V", "seconds since 2002-01-01 00:00:00",
		lon, lat, []float64{0}, gradientSlices(4, 3, 1, 0), gradientSlices(4, 3, 1, 0))
	ds, err := OpenDataset(path, map[string]string{"U": "U", "V": "V"},
		&DatasetOptions{LonIndices: []int{1, 3}, LatIndices: []int{0, 2}})
	if err != nil {
		t.Fatal(err)
	}
	dlon, dlat, _ := ds.Coords()
	if len(dlon) != 2 || dlon[0] != 1 || dlon[1] != 3 {
		t.Errorf("subset lon was %v, but should be [1 3]", dlon)
	}
	if len(dlat) != 2 || dlat[0] != 0 || dlat[1] != 2 {
		t.Errorf("subset lat was %v, but should be [0 2]", dlat)
	}
	s, err := ds.ReadSlice("U", 0)
	if err != nil {
		t.Fatal(err)
	}
	// Value at subset (1, 1) is full-grid (lat 2, lon 3) = 3 + 20.
	if different(s.Get(0, 1, 1), 23, 1e-4) {
		t.Errorf("subset value was %g, but should be 23", s.Get(0, 1, 1))
	}
}

func TestParseTimeUnits(t *testing.T) {
	tests := []struct {
		units   string
		scale   float64
		origin  time.Time
		wantErr bool
	}{
		{"seconds since 2002-01-01 00:00:00", 1, time.Date(2002, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"hours since 1950-01-01", 3600, time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"days since 2000-06-15 12:00:00", 86400, time.Date(2000, 6, 15, 12, 0, 0, 0, time.UTC), false},
		{"fortnights since 2000-01-01", 0, time.Time{}, true},
		{"seconds", 0, time.Time{}, true},
	}
	for _, tt := range tests {
		origin, scale, err := parseTimeUnits(tt.units)
		if tt.wantErr != (err != nil) {
			t.Errorf("%q: error was %v, but wantErr is %v", tt.units, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if different(scale, tt.scale, 1e-9) {
			t.Errorf("%q: scale was %g, but should be %g", tt.units, scale, tt.scale)
		}
		if !origin.Equal(tt.origin) {
			t.Errorf("%q: origin was %v, but should be %v", tt.units, origin, tt.origin)
		}
	}
}
