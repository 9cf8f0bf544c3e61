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
	"os"
	"sort"
	"sync"
	"time"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/cdf"
)

// defaultFlushRows is the number of buffered observations that
// triggers a flush to disk.
const defaultFlushRows = 4096

// A ParticleFile stores particle trajectory observations in a NetCDF
// file, one record per observation with columns for the trajectory ID,
// time, position, the user-defined variables and any derived output
// expressions. Observations are buffered in memory and appended to the
// record dimension in batches.
type ParticleFile struct {
	path   string
	ff     *os.File
	f      *cdf.File
	schema *Schema
	origin time.Time

	derived []derivedVar

	mx       sync.Mutex
	recs     int
	traj     []int32
	cols     map[string][]float64
	lastTime map[int64]float64
	flushAt  int
}

// derivedVar is an output column computed from particle state on each
// write.
type derivedVar struct {
	name string
	expr *govaluate.EvaluableExpression
}

// ParticleFileOptions modify ParticleFile creation.
type ParticleFileOptions struct {
	// Derived maps extra output column names to expressions over the
	// built-in variables (lon, lat, depth, time) and the schema's
	// user-defined variables, for example
	// "sqrt(pow(lon-25, 2) + pow(lat+35, 2))".
	Derived map[string]string

	// FlushRows is the number of buffered observations that triggers
	// a write to disk. Zero means a reasonable default.
	FlushRows int
}

// expression functions available to derived output columns.
var exprFuncs = map[string]govaluate.ExpressionFunction{
	"abs":  func(args ...interface{}) (interface{}, error) { return math.Abs(args[0].(float64)), nil },
	"sqrt": func(args ...interface{}) (interface{}, error) { return math.Sqrt(args[0].(float64)), nil },
	"log":  func(args ...interface{}) (interface{}, error) { return math.Log(args[0].(float64)), nil },
	"exp":  func(args ...interface{}) (interface{}, error) { return math.Exp(args[0].(float64)), nil },
	"sin":  func(args ...interface{}) (interface{}, error) { return math.Sin(args[0].(float64)), nil },
	"cos":  func(args ...interface{}) (interface{}, error) { return math.Cos(args[0].(float64)), nil },
	"pow": func(args ...interface{}) (interface{}, error) {
		return math.Pow(args[0].(float64), args[1].(float64)), nil
	},
	"min": func(args ...interface{}) (interface{}, error) {
		return math.Min(args[0].(float64), args[1].(float64)), nil
	},
	"max": func(args ...interface{}) (interface{}, error) {
		return math.Max(args[0].(float64), args[1].(float64)), nil
	},
}

// NewParticleFile creates a NetCDF trajectory file at path. origin is
// the time origin observation times are relative to; it is recorded in
// the time variable's units attribute.
func NewParticleFile(path string, schema *Schema, origin time.Time, opts *ParticleFileOptions) (*ParticleFile, error) {
	if opts == nil {
		opts = &ParticleFileOptions{}
	}
	pf := &ParticleFile{
		path:     path,
		schema:   schema,
		origin:   origin.UTC(),
		cols:     make(map[string][]float64),
		lastTime: make(map[int64]float64),
		flushAt:  opts.FlushRows,
	}
	if pf.flushAt <= 0 {
		pf.flushAt = defaultFlushRows
	}
	for _, name := range sortKeys(opts.Derived) {
		if reserved[name] {
			return nil, fmt.Errorf("drift: derived output name %s is reserved", name)
		}
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(opts.Derived[name], exprFuncs)
		if err != nil {
			return nil, fmt.Errorf("drift: derived output %s: %v", name, err)
		}
		for _, v := range expr.Vars() {
			if !pf.knownVar(v) {
				return nil, fmt.Errorf("drift: derived output %s uses unknown variable %s", name, v)
			}
		}
		pf.derived = append(pf.derived, derivedVar{name: name, expr: expr})
	}

	h := cdf.NewHeader([]string{"obs"}, []int{0})
	h.AddVariable("trajectory", []string{"obs"}, []int32{0})
	h.AddVariable("time", []string{"obs"}, []float64{0})
	h.AddAttribute("time", "units", "seconds since "+pf.origin.Format("2006-01-02 15:04:05"))
	h.AddVariable("lon", []string{"obs"}, []float64{0})
	h.AddAttribute("lon", "units", "degrees_east")
	h.AddVariable("lat", []string{"obs"}, []float64{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddVariable("depth", []string{"obs"}, []float64{0})
	h.AddAttribute("depth", "units", "m")
	for _, v := range schema.Variables() {
		h.AddVariable(v.Name, []string{"obs"}, []float64{0})
	}
	for _, d := range pf.derived {
		h.AddVariable(d.name, []string{"obs"}, []float64{0})
	}
	h.Define()
	for _, err := range h.Check() {
		return nil, fmt.Errorf("drift: creating trajectory file: %v", err)
	}
	ff, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("drift: creating trajectory file: %v", err)
	}
	f, err := cdf.Create(ff, h)
	if err != nil {
		ff.Close()
		return nil, fmt.Errorf("drift: creating trajectory file %s: %v", path, err)
	}
	pf.ff, pf.f = ff, f
	return pf, nil
}

func (pf *ParticleFile) knownVar(name string) bool {
	switch name {
	case "lon", "lat", "depth", "time":
		return true
	}
	if pf.schema != nil {
		_, ok := pf.schema.index[name]
		return ok
	}
	return false
}

// WriteLatestLocations buffers one observation for every active
// particle of the set at simulated time t. Particles whose state has
// not advanced since their last observation are skipped, as are
// particles not yet released at t.
func (pf *ParticleFile) WriteLatestLocations(ps *ParticleSet, t float64) error {
	pf.mx.Lock()
	defer pf.mx.Unlock()
	for _, p := range ps.particles {
		if !p.active || math.IsNaN(p.Time) {
			continue
		}
		if last, ok := pf.lastTime[p.ID]; ok && last == p.Time {
			continue
		}
		if err := pf.appendRow(p); err != nil {
			return err
		}
		pf.lastTime[p.ID] = p.Time
	}
	if len(pf.traj) >= pf.flushAt {
		return pf.flush()
	}
	return nil
}

func (pf *ParticleFile) appendRow(p *Particle) error {
	// The trajectory column is 32-bit.
	if p.ID > math.MaxInt32 {
		return fmt.Errorf("drift: particle ID %d is too large for the trajectory column", p.ID)
	}
	pf.traj = append(pf.traj, int32(p.ID))
	pf.cols["time"] = append(pf.cols["time"], p.Time)
	pf.cols["lon"] = append(pf.cols["lon"], p.Lon)
	pf.cols["lat"] = append(pf.cols["lat"], p.Lat)
	pf.cols["depth"] = append(pf.cols["depth"], p.Depth)
	if pf.schema != nil {
		for i, v := range pf.schema.vars {
			pf.cols[v.Name] = append(pf.cols[v.Name], p.extra[i])
		}
	}
	if len(pf.derived) > 0 {
		params := map[string]interface{}{
			"lon": p.Lon, "lat": p.Lat, "depth": p.Depth, "time": p.Time,
		}
		if pf.schema != nil {
			for i, v := range pf.schema.vars {
				params[v.Name] = p.extra[i]
			}
		}
		for _, d := range pf.derived {
			v, err := d.expr.Evaluate(params)
			if err != nil {
				return fmt.Errorf("drift: evaluating derived output %s: %v", d.name, err)
			}
			fv, ok := v.(float64)
			if !ok {
				return fmt.Errorf("drift: derived output %s is not numeric", d.name)
			}
			pf.cols[d.name] = append(pf.cols[d.name], fv)
		}
	}
	return nil
}

// Flush writes all buffered observations to disk.
func (pf *ParticleFile) Flush() error {
	pf.mx.Lock()
	defer pf.mx.Unlock()
	return pf.flush()
}

func (pf *ParticleFile) flush() error {
	n := len(pf.traj)
	if n == 0 {
		return nil
	}
	begin, end := []int{pf.recs}, []int{pf.recs + n}
	w := pf.f.Writer("trajectory", begin, end)
	if _, err := w.Write(pf.traj); err != nil {
		return fmt.Errorf("drift: writing trajectory IDs: %v", err)
	}
	for name, col := range pf.cols {
		w := pf.f.Writer(name, begin, end)
		if _, err := w.Write(col); err != nil {
			return fmt.Errorf("drift: writing trajectory column %s: %v", name, err)
		}
	}
	if err := cdf.UpdateNumRecs(pf.ff); err != nil {
		return fmt.Errorf("drift: finalizing trajectory file: %v", err)
	}
	pf.recs += n
	pf.traj = pf.traj[:0]
	for name := range pf.cols {
		pf.cols[name] = pf.cols[name][:0]
	}
	return nil
}

// Close flushes buffered observations and closes the file.
func (pf *ParticleFile) Close() error {
	if err := pf.Flush(); err != nil {
		pf.ff.Close()
		return err
	}
	return pf.ff.Close()
}

// Path returns the location of the file on disk.
func (pf *ParticleFile) Path() string { return pf.path }

// restartState is the final recorded state of one trajectory in a
// ParticleFile.
type restartState struct {
	id                    int64
	lon, lat, depth, time float64
	extra                 []float64
}

// readFinalStates reads a trajectory file and reduces it to one state
// per trajectory ID: the latest observation for forward restarts, the
// earliest for backward ones.
func readFinalStates(path string, schema *Schema, backward bool) ([]restartState, error) {
	f, ff, err := openNCF(path)
	if err != nil {
		return nil, err
	}
	defer ff.Close()
	fi, err := ff.Stat()
	if err != nil {
		return nil, fmt.Errorf("drift: reading trajectory file %s: %v", path, err)
	}
	n := int(f.Header.NumRecs(fi.Size()))
	if n == 0 {
		return nil, fmt.Errorf("drift: trajectory file %s holds no observations", path)
	}
	readCol := func(name string) ([]float64, error) {
		r := f.Reader(name, []int{0}, []int{n})
		buf := r.Zero(n)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("drift: reading trajectory column %s: %v", name, err)
		}
		o := make([]float64, n)
		fillElements(o, buf)
		return o, nil
	}
	cols := map[string][]float64{}
	names := []string{"trajectory", "time", "lon", "lat", "depth"}
	for _, v := range schema.Variables() {
		names = append(names, v.Name)
	}
	for _, name := range names {
		if cols[name], err = readCol(name); err != nil {
			return nil, err
		}
	}

	best := make(map[int64]int)
	for i := 0; i < n; i++ {
		id := int64(cols["trajectory"][i])
		j, ok := best[id]
		if !ok {
			best[id] = i
			continue
		}
		if (!backward && cols["time"][i] > cols["time"][j]) ||
			(backward && cols["time"][i] < cols["time"][j]) {
			best[id] = i
		}
	}
	ids := make([]int64, 0, len(best))
	for id := range best {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	states := make([]restartState, len(ids))
	for k, id := range ids {
		i := best[id]
		st := restartState{
			id:    id,
			time:  cols["time"][i],
			lon:   cols["lon"][i],
			lat:   cols["lat"][i],
			depth: cols["depth"][i],
		}
		for _, v := range schema.Variables() {
			st.extra = append(st.extra, cols[v.Name][i])
		}
		states[k] = st
	}
	return states, nil
}

// sortKeys returns the keys of m in sorted order.
func sortKeys(m map[string]string) []string {
	o := make([]string, 0, len(m))
	for k := range m {
		o = append(o, k)
	}
	sort.Strings(o)
	return o
}
