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

// Package drift is a Lagrangian particle tracking model: it advects
// virtual particles through time-dependent gridded velocity fields,
// sampling the fields by linear interpolation in space and time.
// Fields are read from NetCDF files or supplied as in-memory arrays,
// and particle trajectories are recorded to NetCDF files that later
// runs can resume from.
package drift

// Version gives the version number.
const Version = "0.1.0"
