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

import "fmt"

// TimeExtrapolationError is returned when a field is sampled at a time
// outside of its available time domain and no periodic wrap applies.
// It is fatal to the run that triggers it; the engine never retries.
type TimeExtrapolationError struct {
	Field string  // name of the field that was sampled
	Time  float64 // query time [seconds since the grid time origin]
}

func (e *TimeExtrapolationError) Error() string {
	return fmt.Sprintf("drift: sampling field %s at time %g: time is outside "+
		"of the available time domain and the time axis is not periodic", e.Field, e.Time)
}

// OutOfBoundsError is returned when a field is sampled at a location
// outside of its spatial domain.
type OutOfBoundsError struct {
	Field           string
	Lon, Lat, Depth float64
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("drift: sampling field %s at lon=%g, lat=%g, depth=%g: "+
		"location is outside of the field spatial domain", e.Field, e.Lon, e.Lat, e.Depth)
}
