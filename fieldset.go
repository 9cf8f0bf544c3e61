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

	"github.com/ctessum/sparse"
)

// A FieldSet is the collection of fields a simulation samples from.
// It always holds the velocity components U and V and may hold any
// number of additional scalar fields; all fields share one grid.
type FieldSet struct {
	// Grid holds the shared coordinate arrays.
	Grid *Grid

	fields map[string]*Field
}

// FieldSetOptions modify FieldSet construction.
type FieldSetOptions struct {
	// Mesh selects the coordinate interpretation. The zero value is
	// MeshSpherical.
	Mesh Mesh

	// TimePeriod, if positive, makes the time axis repeat with the
	// given period [s].
	TimePeriod float64

	// Deferred loads time slices on demand instead of materializing
	// all data up front. Only meaningful for source-backed field sets.
	Deferred bool

	// DeferredWindow is the number of time slices kept resident per
	// deferred field. Zero means DefaultDeferredWindow.
	DeferredWindow int
}

// NewFieldSet creates a field set from raw in-memory arrays. u and v
// hold one array of shape [depth][lat][lon] (or [lat][lon] for 2-D
// data) per time sample.
func NewFieldSet(u, v []*sparse.DenseArray, lon, lat, depth, times []float64, origin time.Time, opts *FieldSetOptions) (*FieldSet, error) {
	src, err := NewArraySource(lon, lat, depth, times, origin,
		map[string][]*sparse.DenseArray{"U": u, "V": v})
	if err != nil {
		return nil, err
	}
	if opts != nil && opts.Deferred {
		return nil, fmt.Errorf("drift: deferred loading requires file-backed data")
	}
	return FieldSetFromSource(src, []string{"U", "V"}, opts)
}

// FieldSetFromNetCDF creates a field set from the NetCDF files
// matching pattern. variables maps engine field names to the variable
// names used in the files and must include "U" and "V".
func FieldSetFromNetCDF(pattern string, variables map[string]string, dopts *DatasetOptions, opts *FieldSetOptions) (*FieldSet, error) {
	if _, ok := variables["U"]; !ok {
		return nil, fmt.Errorf("drift: variable map must name a U component")
	}
	if _, ok := variables["V"]; !ok {
		return nil, fmt.Errorf("drift: variable map must name a V component")
	}
	ds, err := OpenDataset(pattern, variables, dopts)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	return FieldSetFromSource(ds, names, opts)
}

// FieldSetFromSource creates a field set reading the named fields from
// an arbitrary data source.
func FieldSetFromSource(src Source, fields []string, opts *FieldSetOptions) (*FieldSet, error) {
	if opts == nil {
		opts = &FieldSetOptions{}
	}
	lon, lat, depth := src.Coords()
	times, origin := src.Times()
	grid, err := NewGrid(lon, lat, depth, times, origin, opts.Mesh)
	if err != nil {
		return nil, err
	}
	if opts.TimePeriod > 0 {
		if opts.TimePeriod < times[len(times)-1]-times[0] {
			return nil, fmt.Errorf("drift: time period %g s is shorter than the data time span", opts.TimePeriod)
		}
		grid.TimePeriod = opts.TimePeriod
	}
	fs := &FieldSet{Grid: grid, fields: make(map[string]*Field)}
	for _, name := range fields {
		if opts.Deferred {
			window := opts.DeferredWindow
			if window == 0 {
				window = DefaultDeferredWindow
			}
			fs.fields[name] = newDeferredField(name, grid, src, window)
			continue
		}
		data := make([]*sparse.DenseArray, len(times))
		for i := range times {
			if data[i], err = src.ReadSlice(name, i); err != nil {
				return nil, fmt.Errorf("drift: loading field %s: %v", name, err)
			}
		}
		f, err := NewField(name, grid, data)
		if err != nil {
			return nil, err
		}
		fs.fields[name] = f
	}
	if _, ok := fs.fields["U"]; !ok {
		return nil, fmt.Errorf("drift: field set has no U component")
	}
	if _, ok := fs.fields["V"]; !ok {
		return nil, fmt.Errorf("drift: field set has no V component")
	}
	return fs, nil
}

// AddField adds a scalar field to the set. The field must share the
// set's grid coordinates.
func (fs *FieldSet) AddField(f *Field) error {
	if _, ok := fs.fields[f.Name]; ok {
		return fmt.Errorf("drift: field set already has a field named %s", f.Name)
	}
	if len(f.Grid.Lon) != len(fs.Grid.Lon) || len(f.Grid.Lat) != len(fs.Grid.Lat) ||
		len(f.Grid.Depth) != len(fs.Grid.Depth) || len(f.Grid.Time) != len(fs.Grid.Time) {
		return fmt.Errorf("drift: field %s grid does not match the field set grid", f.Name)
	}
	if f.Grid.Mesh != fs.Grid.Mesh {
		return fmt.Errorf("drift: field %s mesh does not match the field set mesh", f.Name)
	}
	fs.fields[f.Name] = f
	return nil
}

// Field returns the named field, or an error if the set has no field
// of that name.
func (fs *FieldSet) Field(name string) (*Field, error) {
	f, ok := fs.fields[name]
	if !ok {
		return nil, fmt.Errorf("drift: field set has no field named %s", name)
	}
	return f, nil
}

// Sample interpolates the named field at the given location and time.
func (fs *FieldSet) Sample(name string, lon, lat, depth, t float64) (float64, error) {
	f, err := fs.Field(name)
	if err != nil {
		return 0, err
	}
	return f.Sample(lon, lat, depth, t)
}

// UV samples both velocity components at the given location and time
// and converts them to coordinate velocities [degrees/s for spherical
// meshes, m/s for flat ones].
func (fs *FieldSet) UV(lon, lat, depth, t float64) (u, v float64, err error) {
	if u, err = fs.fields["U"].Sample(lon, lat, depth, t); err != nil {
		return 0, 0, err
	}
	if v, err = fs.fields["V"].Sample(lon, lat, depth, t); err != nil {
		return 0, 0, err
	}
	if fs.Grid.Mesh == MeshSpherical {
		u /= metersPerDegree * math.Cos(lat*math.Pi/180)
		v /= metersPerDegree
	}
	return u, v, nil
}
