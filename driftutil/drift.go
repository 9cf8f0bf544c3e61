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
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spatialmodel/drift"
)

var logger *logrus.Logger

func init() {
	logger = logrus.StandardLogger()
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
		DisableSorting:  true,
	})
}

// RunSpec holds the resolved configuration of one simulation run.
type RunSpec struct {
	LogFile    string
	OutputFile string

	// OutputVariables maps derived output column names to expressions
	// over the particle state.
	OutputVariables map[string]string

	FieldData      string
	Variables      map[string]string
	DatasetOptions *drift.DatasetOptions
	FieldOptions   *drift.FieldSetOptions

	// ReleaseFile is the CSV file declaring particle releases. Ignored
	// when RestartFrom is set.
	ReleaseFile string

	// FilterDomain drops released particles outside the field domain
	// instead of failing on the first out-of-domain sample.
	FilterDomain bool

	// RestartFrom, if set, resumes the simulation from the final
	// states recorded in an earlier trajectory file.
	RestartFrom string

	Kernel drift.Kernel

	// Runtime, Dt and OutputDt are in seconds.
	Runtime, Dt, OutputDt float64
}

// Run runs a particle tracking simulation as the spec describes,
// writing trajectories to spec.OutputFile and progress messages to the
// command's output and spec.LogFile.
func Run(cmd *cobra.Command, spec RunSpec) error {
	startWall := time.Now()

	logfile, err := os.Create(spec.LogFile)
	if err != nil {
		return fmt.Errorf("drift: problem creating log file: %v", err)
	}
	logger.SetOutput(io.MultiWriter(cmd.OutOrStdout(), logfile))

	msgChan := make(chan string)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		for msg := range msgChan {
			logger.Info(msg)
		}
		wg.Done()
	}()
	defer func() {
		close(msgChan)
		wg.Wait()
		logfile.Close()
	}()

	logger.Info("Reading field data...")
	fs, err := drift.FieldSetFromNetCDF(spec.FieldData, spec.Variables, spec.DatasetOptions, spec.FieldOptions)
	if err != nil {
		return err
	}

	var ps *drift.ParticleSet
	if spec.RestartFrom != "" {
		logger.Infof("Resuming from %s...", spec.RestartFrom)
		ps, err = drift.FromParticleFile(fs, spec.RestartFrom, nil, spec.Dt < 0)
		if err != nil {
			return err
		}
	} else {
		logger.Info("Reading release locations...")
		rel, err := ReadReleaseFile(spec.ReleaseFile, fs.Grid.TimeOrigin)
		if err != nil {
			return err
		}
		if spec.FilterDomain {
			var dropped int
			rel, dropped = FilterDomain(rel, fs)
			if dropped > 0 {
				logger.Infof("Dropped %d release locations outside the field domain.", dropped)
			}
		}
		ps, err = drift.NewParticleSet(fs, rel)
		if err != nil {
			return err
		}
	}

	pf, err := drift.NewParticleFile(spec.OutputFile, nil, fs.Grid.TimeOrigin,
		&drift.ParticleFileOptions{Derived: spec.OutputVariables})
	if err != nil {
		return err
	}

	summary := NewSummary(ps)
	logger.Infof("Tracking %d particles...", len(ps.Particles()))
	err = ps.Execute(spec.Kernel, drift.RunConfig{
		Runtime:  spec.Runtime,
		Dt:       spec.Dt,
		Output:   pf,
		OutputDt: spec.OutputDt,
		MsgChan:  msgChan,
	})
	if cerr := pf.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	logger.Info(summary.Report(ps))
	logger.Infof("Elapsed time: %v", time.Since(startWall).Round(time.Millisecond))
	return nil
}
