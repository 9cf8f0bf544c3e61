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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"

	"github.com/spatialmodel/drift"
)

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="drift_output.nc")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("drift: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one
// isn't specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}

// checkOutputVars removes end lines and expands environment variables
// in the derived output variable expressions.
func checkOutputVars(vars map[string]string) map[string]string {
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		vars[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return vars
}

// checkMesh parses a mesh configuration value.
func checkMesh(m string) (drift.Mesh, error) {
	switch strings.ToLower(os.ExpandEnv(m)) {
	case "", "spherical":
		return drift.MeshSpherical, nil
	case "flat":
		return drift.MeshFlat, nil
	}
	return 0, fmt.Errorf("the Mesh configuration variable needs to be set to either spherical or flat, but is currently set to `%s`", m)
}

// checkDuration parses a duration configuration value such as "5m" or
// "240h" into seconds. Bare numbers are taken as seconds.
func checkDuration(name, v string) (float64, error) {
	v = strings.TrimSpace(os.ExpandEnv(v))
	if v == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d.Seconds(), nil
	}
	s, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("the %s configuration variable `%s` is not a duration", name, v)
	}
	return s, nil
}

// checkKernel resolves a kernel configuration value to an integration
// kernel.
func checkKernel(k string) (drift.Kernel, error) {
	switch strings.ToLower(os.ExpandEnv(k)) {
	case "", "rk4":
		return drift.AdvectionRK4, nil
	case "euler", "ee":
		return drift.AdvectionEE, nil
	}
	return nil, fmt.Errorf("the Kernel configuration variable needs to be set to either rk4 or euler, but is currently set to `%s`", k)
}

// GetStringMapString returns a map[string]string from a viper
// configuration, accounting for the fact that it might be a json
// object if it was set from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case nil:
		return nil
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for GetStringMapString variable %s: %#v", varName, i))
	}
}

// fieldSetConfig unmarshals a viper configuration for the field data.
func fieldSetConfig(cfg *viper.Viper) (pattern string, variables map[string]string, dopts *drift.DatasetOptions, opts *drift.FieldSetOptions, err error) {
	pattern = os.ExpandEnv(cfg.GetString("FieldData"))
	if pattern == "" {
		return "", nil, nil, nil, fmt.Errorf("you need to specify the field data location in the FieldData configuration variable")
	}
	variables = checkOutputVars(GetStringMapString("Variables", cfg))
	if len(variables) == 0 {
		variables = map[string]string{"U": "U", "V": "V"}
	}
	dopts = &drift.DatasetOptions{
		Dimensions: GetStringMapString("Dimensions", cfg),
	}
	mesh, err := checkMesh(cfg.GetString("Mesh"))
	if err != nil {
		return "", nil, nil, nil, err
	}
	period, err := checkDuration("TimePeriodic", cfg.GetString("TimePeriodic"))
	if err != nil {
		return "", nil, nil, nil, err
	}
	opts = &drift.FieldSetOptions{
		Mesh:           mesh,
		TimePeriod:     period,
		Deferred:       cfg.GetBool("Deferred"),
		DeferredWindow: cfg.GetInt("DeferredWindow"),
	}
	return pattern, variables, dopts, opts, nil
}
