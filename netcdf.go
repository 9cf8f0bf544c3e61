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
	"sort"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// A Dataset reads gridded time series data from one or more NetCDF
// files, presenting them as a single Source ordered by time. Each file
// contributes its time samples; files may hold any number of samples
// each.
type Dataset struct {
	files  []*ncFile
	lon    []float64
	lat    []float64
	depth  []float64
	times  []float64 // seconds since origin, globally sorted
	origin time.Time

	// names maps engine coordinate roles ("lon", "lat", "depth",
	// "time") and field variables to the names used in the files.
	names map[string]string

	// lonIdx and latIdx restrict reads to coordinate index subsets;
	// nil means the full extent.
	lonIdx, latIdx []int
}

// ncFile is one NetCDF file of a Dataset, with the global time indices
// it covers.
type ncFile struct {
	path   string
	nTimes int
	first  int // global index of this file's first time sample
}

// DatasetOptions modify how NetCDF files are interpreted when opening
// a Dataset.
type DatasetOptions struct {
	// Dimensions maps engine coordinate roles ("lon", "lat", "depth",
	// "time") to the coordinate variable names used in the files.
	// Roles left unset are matched against common conventional names.
	Dimensions map[string]string

	// Timestamps, if non-nil, overrides the time coordinate read from
	// the files. It must hold one time per file, in file order, and
	// each file must then hold exactly one time sample.
	Timestamps []time.Time

	// LonIndices and LatIndices, if non-nil, restrict the dataset to
	// the given coordinate indices. Indices must be strictly
	// increasing.
	LonIndices, LatIndices []int
}

// conventional coordinate variable names, tried in order when the
// caller does not name them explicitly.
var coordAliases = map[string][]string{
	"lon":   {"lon", "longitude", "x", "nav_lon"},
	"lat":   {"lat", "latitude", "y", "nav_lat"},
	"depth": {"depth", "z", "lev", "level"},
	"time":  {"time", "time_counter", "t"},
}

// OpenDataset opens the NetCDF files matching the given glob pattern
// (or the single named file) as one time-ordered Source. variables
// maps engine field names (e.g. "U", "V") to the variable names used
// in the files.
func OpenDataset(pattern string, variables map[string]string, opts *DatasetOptions) (*Dataset, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("drift: bad file pattern %s: %v", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("drift: no files match %s", pattern)
	}
	sort.Strings(paths)
	if opts == nil {
		opts = &DatasetOptions{}
	}

	d := &Dataset{names: make(map[string]string)}
	for role := range coordAliases {
		if n, ok := opts.Dimensions[role]; ok {
			d.names[role] = n
		}
	}
	for field, v := range variables {
		d.names[field] = v
	}

	type filetimes struct {
		path  string
		times []float64 // seconds since d.origin
	}
	var fts []filetimes
	for i, path := range paths {
		f, ff, err := openNCF(path)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			if err := d.readCoords(f, opts); err != nil {
				ff.Close()
				return nil, fmt.Errorf("drift: %s: %v", path, err)
			}
		}
		var times []float64
		if opts.Timestamps != nil {
			if len(opts.Timestamps) != len(paths) {
				ff.Close()
				return nil, fmt.Errorf("drift: %d timestamps given for %d files", len(opts.Timestamps), len(paths))
			}
			if i == 0 {
				d.origin = opts.Timestamps[0].UTC()
			}
			times = []float64{opts.Timestamps[i].UTC().Sub(d.origin).Seconds()}
		} else {
			origin, ts, err := readTimes(f, d.names["time"])
			if err != nil {
				ff.Close()
				return nil, fmt.Errorf("drift: %s: %v", path, err)
			}
			if i == 0 {
				d.origin = origin
			} else {
				shift := origin.Sub(d.origin).Seconds()
				for j := range ts {
					ts[j] += shift
				}
			}
			times = ts
		}
		ff.Close()
		fts = append(fts, filetimes{path: path, times: times})
	}

	sort.SliceStable(fts, func(i, j int) bool { return fts[i].times[0] < fts[j].times[0] })
	for _, ft := range fts {
		d.files = append(d.files, &ncFile{path: ft.path, nTimes: len(ft.times), first: len(d.times)})
		d.times = append(d.times, ft.times...)
	}
	if !sort.Float64sAreSorted(d.times) {
		return nil, fmt.Errorf("drift: time samples across files %s are not monotonically increasing", pattern)
	}
	if opts.LonIndices != nil || opts.LatIndices != nil {
		if d.lon, err = subsetCoords(d.lon, opts.LonIndices); err != nil {
			return nil, fmt.Errorf("drift: lon subset: %v", err)
		}
		if d.lat, err = subsetCoords(d.lat, opts.LatIndices); err != nil {
			return nil, fmt.Errorf("drift: lat subset: %v", err)
		}
	}
	d.lonIdx, d.latIdx = opts.LonIndices, opts.LatIndices
	return d, nil
}

// readCoords reads the coordinate arrays from the first file, resolving
// unnamed roles against the conventional aliases.
func (d *Dataset) readCoords(f *cdf.File, opts *DatasetOptions) error {
	for _, role := range []string{"lon", "lat", "depth", "time"} {
		if _, ok := d.names[role]; ok {
			continue
		}
		name, err := matchAlias(f, role)
		if err != nil {
			if role == "depth" { // optional
				continue
			}
			return err
		}
		d.names[role] = name
	}
	var err error
	if d.lon, err = readCoord(f, d.names["lon"]); err != nil {
		return err
	}
	if d.lat, err = readCoord(f, d.names["lat"]); err != nil {
		return err
	}
	if name, ok := d.names["depth"]; ok {
		if d.depth, err = readCoord(f, name); err != nil {
			return err
		}
	}
	if len(d.depth) == 0 {
		d.depth = []float64{0}
	}
	return nil
}

func matchAlias(f *cdf.File, role string) (string, error) {
	vars := f.Header.Variables()
	for _, alias := range coordAliases[role] {
		for _, v := range vars {
			if strings.EqualFold(v, alias) {
				return v, nil
			}
		}
	}
	return "", fmt.Errorf("no %s coordinate variable found (tried %v)", role, coordAliases[role])
}

// Coords implements the Source interface.
func (d *Dataset) Coords() (lon, lat, depth []float64) { return d.lon, d.lat, d.depth }

// Times implements the Source interface.
func (d *Dataset) Times() ([]float64, time.Time) { return d.times, d.origin }

// ReadSlice implements the Source interface, locating the file holding
// the requested global time index and reading the variable's spatial
// array from it.
func (d *Dataset) ReadSlice(variable string, timeIndex int) (*sparse.DenseArray, error) {
	if timeIndex < 0 || timeIndex >= len(d.times) {
		return nil, fmt.Errorf("drift: time index %d out of range [0,%d)", timeIndex, len(d.times))
	}
	name, ok := d.names[variable]
	if !ok {
		name = variable
	}
	i := sort.Search(len(d.files), func(i int) bool {
		return d.files[i].first+d.files[i].nTimes > timeIndex
	})
	file := d.files[i]
	f, ff, err := openNCF(file.path)
	if err != nil {
		return nil, err
	}
	defer ff.Close()
	data, err := readVarSlice(f, name, timeIndex-file.first)
	if err != nil {
		return nil, fmt.Errorf("drift: %s: %v", file.path, err)
	}
	if len(data.Shape) == 2 {
		o := sparse.ZerosDense(1, data.Shape[0], data.Shape[1])
		copy(o.Elements, data.Elements)
		data = o
	}
	if d.lonIdx == nil && d.latIdx == nil {
		return data, nil
	}
	latIdx := d.latIdx
	if latIdx == nil {
		latIdx = iotaInts(data.Shape[1])
	}
	lonIdx := d.lonIdx
	if lonIdx == nil {
		lonIdx = iotaInts(data.Shape[2])
	}
	o := sparse.ZerosDense(data.Shape[0], len(latIdx), len(lonIdx))
	for k := 0; k < data.Shape[0]; k++ {
		for j, jj := range latIdx {
			for i, ii := range lonIdx {
				o.Set(data.Get(k, jj, ii), k, j, i)
			}
		}
	}
	return o, nil
}

func openNCF(path string) (*cdf.File, *os.File, error) {
	ff, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("drift: opening NetCDF file: %v", err)
	}
	f, err := cdf.Open(ff)
	if err != nil {
		ff.Close()
		return nil, nil, fmt.Errorf("drift: parsing NetCDF file %s: %v", path, err)
	}
	return f, ff, nil
}

// readCoord reads a 1-D coordinate variable. 2-D lon/lat arrays from
// curvilinear files are accepted if they are constant along the
// irrelevant axis, taking the first row or column.
func readCoord(f *cdf.File, name string) ([]float64, error) {
	dims := f.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, fmt.Errorf("coordinate variable %s not in file", name)
	}
	buf, err := readAll(f, name)
	if err != nil {
		return nil, fmt.Errorf("reading coordinate %s: %v", name, err)
	}
	if len(dims) == 1 {
		return buf, nil
	}
	if len(dims) == 2 {
		// Row-constant arrays vary along the last axis; take row 0.
		// Column-constant arrays take column 0.
		ny, nx := dims[0], dims[1]
		if ny > 1 && buf[0] == buf[nx] { // same value down a column: varies along x
			return buf[:nx], nil
		}
		o := make([]float64, ny)
		for j := 0; j < ny; j++ {
			o[j] = buf[j*nx]
		}
		return o, nil
	}
	return nil, fmt.Errorf("coordinate variable %s has %d dimensions; want 1 or 2", name, len(dims))
}

// readTimes reads the time coordinate and parses its units attribute
// into an absolute origin, returning sample times in seconds since
// that origin.
func readTimes(f *cdf.File, name string) (time.Time, []float64, error) {
	raw, err := readCoord(f, name)
	if err != nil {
		return time.Time{}, nil, err
	}
	units, _ := f.Header.GetAttribute(name, "units").(string)
	origin, scale, err := parseTimeUnits(units)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("time variable %s: %v", name, err)
	}
	o := make([]float64, len(raw))
	for i, v := range raw {
		o[i] = v * scale
	}
	return origin, o, nil
}

// parseTimeUnits parses a CF-style time units string such as
// "seconds since 2002-01-01 00:00:00" into an origin and a
// multiplier converting samples to seconds.
func parseTimeUnits(units string) (time.Time, float64, error) {
	parts := strings.SplitN(units, " since ", 2)
	if len(parts) != 2 {
		return time.Time{}, 0, fmt.Errorf("cannot parse time units %q", units)
	}
	var scale float64
	switch strings.ToLower(strings.TrimSpace(parts[0])) {
	case "seconds", "second", "secs", "sec", "s":
		scale = 1
	case "minutes", "minute", "mins", "min":
		scale = 60
	case "hours", "hour", "hrs", "hr", "h":
		scale = 3600
	case "days", "day", "d":
		scale = 86400
	default:
		return time.Time{}, 0, fmt.Errorf("unknown time unit %q", parts[0])
	}
	stamp := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(parts[1]), "UTC"))
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, stamp); err == nil {
			return t.UTC(), scale, nil
		}
	}
	return time.Time{}, 0, fmt.Errorf("cannot parse time origin %q", stamp)
}

// readVarSlice reads one time slice of a variable, dropping the time
// dimension. Variables without a time dimension are read whole and
// index is ignored.
func readVarSlice(f *cdf.File, name string, index int) (*sparse.DenseArray, error) {
	dims := f.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, fmt.Errorf("variable %s not in file", name)
	}
	dimNames := f.Header.Dimensions(name)
	hasTime := false
	if len(dimNames) > 0 {
		for _, alias := range coordAliases["time"] {
			if strings.EqualFold(dimNames[0], alias) {
				hasTime = true
			}
		}
		if dims[0] == 0 { // record dimension
			hasTime = true
		}
	}
	if !hasTime {
		buf, err := readAll(f, name)
		if err != nil {
			return nil, fmt.Errorf("reading variable %s: %v", name, err)
		}
		data := sparse.ZerosDense(dims...)
		copy(data.Elements, buf)
		return data, nil
	}
	spatial := dims[1:]
	nread := 1
	for _, d := range spatial {
		nread *= d
	}
	start, end := make([]int, len(dims)), make([]int, len(dims))
	start[0], end[0] = index, index+1
	for i, d := range spatial {
		end[i+1] = d
	}
	r := f.Reader(name, start, end)
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading variable %s at index %d: %v", name, index, err)
	}
	data := sparse.ZerosDense(spatial...)
	fillElements(data.Elements, buf)
	return data, nil
}

// readAll reads a whole variable as float64, regardless of its on-disk
// type.
func readAll(f *cdf.File, name string) ([]float64, error) {
	r := f.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, err
	}
	n := 1
	for _, d := range f.Header.Lengths(name) {
		if d > 0 {
			n *= d
		}
	}
	o := make([]float64, n)
	fillElements(o, buf)
	return o, nil
}

func fillElements(dst []float64, buf interface{}) {
	switch b := buf.(type) {
	case []float32:
		for i, v := range b {
			if i < len(dst) {
				dst[i] = float64(v)
			}
		}
	case []float64:
		copy(dst, b)
	case []int32:
		for i, v := range b {
			if i < len(dst) {
				dst[i] = float64(v)
			}
		}
	case []int16:
		for i, v := range b {
			if i < len(dst) {
				dst[i] = float64(v)
			}
		}
	case []int8:
		for i, v := range b {
			if i < len(dst) {
				dst[i] = float64(v)
			}
		}
	}
}
