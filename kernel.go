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

// A Kernel advances one particle by one time step starting at time t
// [seconds since the field set's time origin]. Kernels may read and
// write any particle state and may delete the particle; a non-nil
// error aborts the whole simulation.
type Kernel func(p *Particle, fs *FieldSet, t float64) error

// Compose chains kernels into one, running them in order on each
// step. If a kernel deletes the particle or returns an error, the
// remaining kernels are skipped for that step.
func Compose(kernels ...Kernel) Kernel {
	return func(p *Particle, fs *FieldSet, t float64) error {
		for _, k := range kernels {
			if !p.Active() {
				return nil
			}
			if err := k(p, fs, t); err != nil {
				return err
			}
		}
		return nil
	}
}
