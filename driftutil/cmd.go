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

	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/spatialmodel/drift"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to Drift.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "FieldData",
			usage: `
              FieldData is the path to the NetCDF files holding the velocity
              fields, as a filename or a glob pattern matching a time-ordered
              series of files. The path can include environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Variables",
			usage: `
              Variables maps simulation field names to the variable names used
              in the field data files. It must include entries for U and V.`,
			defaultVal: map[string]string{"U": "U", "V": "V"},
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Dimensions",
			usage: `
              Dimensions maps the coordinate roles lon, lat, depth and time to
              the coordinate variable names used in the field data files.
              Roles left out are matched against common conventional names.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Mesh",
			usage: `
              Mesh selects how coordinates are interpreted: 'spherical' treats
              positions as degrees and velocities as m/s, 'flat' treats both
              as meters.`,
			defaultVal: "spherical",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "TimePeriodic",
			usage: `
              TimePeriodic makes the field time axis repeat with the given
              period, specified as a duration such as '8760h'. Empty means
              no repetition.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Deferred",
			usage: `
              Deferred loads field time slices from disk on demand instead of
              reading all field data into memory before the simulation starts.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "DeferredWindow",
			usage: `
              DeferredWindow is the number of time slices per field kept in
              memory when Deferred is true. Zero selects the default.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "ReleaseFile",
			usage: `
              ReleaseFile is the path to a CSV file with columns lon, lat and
              optionally depth and time declaring where and when particles are
              released. The path can include environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "FilterDomain",
			usage: `
              FilterDomain drops release locations outside the spatial domain
              of the field data instead of failing when they are first sampled.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Kernel",
			usage: `
              Kernel selects the integration method: 'rk4' for fourth order
              Runge-Kutta or 'euler' for explicit Euler.`,
			defaultVal: "rk4",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Runtime",
			usage: `
              Runtime is the length of simulated time to run for, as a
              duration such as '240h'.`,
			defaultVal: "24h",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Dt",
			usage: `
              Dt is the integration time step, as a duration such as '5m'.
              A leading '-' runs the simulation backward in time.`,
			defaultVal: "5m",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "OutputDt",
			usage: `
              OutputDt is the simulated time between trajectory snapshots, as
              a duration such as '6h'. Empty writes a snapshot every step.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the desired trajectory output file. It
              can include environment variables.`,
			defaultVal: "drift_output.nc",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies extra output columns computed from
              particle state, as expressions over lon, lat, depth and time.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can include
              environment variables. If LogFile is left blank, the logfile will be
              saved in the same location as the OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "from",
			usage: `
              from is the path to the trajectory file of an earlier run to
              resume from.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{restartCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("DRIFT")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	runCmd.AddCommand(restartCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("drift: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "drift",
	Short: "A Lagrangian particle tracking model.",
	Long: `Drift advects virtual particles through time-dependent gridded
velocity fields. Use the subcommands specified below to access the model
functionality.

Configuration can be changed by using a configuration file (and providing
the path to the file using the --config flag), by using command-line
arguments, or by setting environment variables in the format 'DRIFT_var'
where 'var' is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of Drift.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("Drift v%s\n", drift.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd is a command that runs a particle tracking simulation.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a particle tracking simulation.",
	Long: `run releases the particles declared in ReleaseFile and advects them
through the velocity fields in FieldData, writing trajectories to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := runSpec(Cfg)
		if err != nil {
			return err
		}
		return Run(cmd, spec)
	},
	DisableAutoGenTag: true,
}

// restartCmd is a command that resumes a simulation from the output of
// an earlier run.
var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Resume a simulation from an earlier run.",
	Long: `restart reads the trajectory file of an earlier run and continues
the simulation from the final recorded state of every particle, keeping
particle identities.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := runSpec(Cfg)
		if err != nil {
			return err
		}
		spec.RestartFrom = os.ExpandEnv(Cfg.GetString("from"))
		if spec.RestartFrom == "" {
			return fmt.Errorf("drift: restart requires the --from flag")
		}
		return Run(cmd, spec)
	},
	DisableAutoGenTag: true,
}

// runSpec assembles a RunSpec from a viper configuration.
func runSpec(cfg *viper.Viper) (RunSpec, error) {
	var spec RunSpec
	pattern, variables, dopts, fopts, err := fieldSetConfig(cfg)
	if err != nil {
		return spec, err
	}
	outputFile, err := checkOutputFile(cfg.GetString("OutputFile"))
	if err != nil {
		return spec, err
	}
	kernel, err := checkKernel(cfg.GetString("Kernel"))
	if err != nil {
		return spec, err
	}
	runtime, err := checkDuration("Runtime", cfg.GetString("Runtime"))
	if err != nil {
		return spec, err
	}
	dt, err := checkDuration("Dt", cfg.GetString("Dt"))
	if err != nil {
		return spec, err
	}
	outputDt, err := checkDuration("OutputDt", cfg.GetString("OutputDt"))
	if err != nil {
		return spec, err
	}
	spec = RunSpec{
		LogFile:         checkLogFile(os.ExpandEnv(cfg.GetString("LogFile")), outputFile),
		OutputFile:      outputFile,
		OutputVariables: checkOutputVars(GetStringMapString("OutputVariables", cfg)),
		FieldData:       pattern,
		Variables:       variables,
		DatasetOptions:  dopts,
		FieldOptions:    fopts,
		ReleaseFile:     cfg.GetString("ReleaseFile"),
		FilterDomain:    cfg.GetBool("FilterDomain"),
		Kernel:          kernel,
		Runtime:         runtime,
		Dt:              dt,
		OutputDt:        outputDt,
	}
	return spec, nil
}
