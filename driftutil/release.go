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
	"os"
	"strings"
	"time"

	"github.com/ctessum/geom"
	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/floats"

	"github.com/spatialmodel/drift"
)

// releaseRow is one line of a release CSV file.
type releaseRow struct {
	Lon   float64 `csv:"lon"`
	Lat   float64 `csv:"lat"`
	Depth float64 `csv:"depth,omitempty"`
	Time  string  `csv:"time,omitempty"`
}

// ReadReleaseFile reads particle release locations from a CSV file
// with columns lon, lat and optionally depth and time. Times are
// RFC 3339 timestamps or numbers of seconds after the given origin.
func ReadReleaseFile(path string, origin time.Time) (drift.Release, error) {
	var rel drift.Release
	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return rel, fmt.Errorf("drift: opening release file: %v", err)
	}
	defer f.Close()
	var rows []releaseRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return rel, fmt.Errorf("drift: reading release file %s: %v", path, err)
	}
	if len(rows) == 0 {
		return rel, fmt.Errorf("drift: release file %s holds no particles", path)
	}
	haveTime := false
	for _, r := range rows {
		rel.Lon = append(rel.Lon, r.Lon)
		rel.Lat = append(rel.Lat, r.Lat)
		rel.Depth = append(rel.Depth, r.Depth)
		if strings.TrimSpace(r.Time) != "" {
			haveTime = true
		}
	}
	if haveTime {
		for i, r := range rows {
			t, err := parseReleaseTime(r.Time, origin)
			if err != nil {
				return rel, fmt.Errorf("drift: release file %s line %d: %v", path, i+2, err)
			}
			rel.Time = append(rel.Time, t)
		}
	}
	return rel, nil
}

func parseReleaseTime(s string, origin time.Time) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC().Sub(origin).Seconds(), nil
	}
	var v float64
	if _, err := fmt.Sscanf(s, "%g", &v); err != nil {
		return 0, fmt.Errorf("cannot parse release time %q", s)
	}
	return v, nil
}

// LineRelease declares n particles evenly spaced between two points.
func LineRelease(start, end geom.Point, n int) drift.Release {
	if n == 1 {
		return drift.Release{Lon: []float64{start.X}, Lat: []float64{start.Y}}
	}
	return drift.Release{
		Lon: floats.Span(make([]float64, n), start.X, end.X),
		Lat: floats.Span(make([]float64, n), start.Y, end.Y),
	}
}

// FilterDomain removes particles released outside the spatial domain
// of the field set, returning the filtered release and the number of
// particles removed.
func FilterDomain(rel drift.Release, fs *drift.FieldSet) (drift.Release, int) {
	var o drift.Release
	o.Schema = rel.Schema
	dropped := 0
	for i := range rel.Lon {
		if !fs.Grid.InDomain(geom.Point{X: rel.Lon[i], Y: rel.Lat[i]}) {
			dropped++
			continue
		}
		o.Lon = append(o.Lon, rel.Lon[i])
		o.Lat = append(o.Lat, rel.Lat[i])
		if rel.Depth != nil {
			o.Depth = append(o.Depth, rel.Depth[i])
		}
		if rel.Time != nil {
			o.Time = append(o.Time, rel.Time[i])
		}
		if rel.Timestamps != nil {
			o.Timestamps = append(o.Timestamps, rel.Timestamps[i])
		}
	}
	return o, dropped
}
