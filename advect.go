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

// AdvectionRK4 advances a particle through the velocity field with
// fourth order Runge-Kutta integration.
func AdvectionRK4(p *Particle, fs *FieldSet, t float64) error {
	dt := p.Dt
	u1, v1, err := fs.UV(p.Lon, p.Lat, p.Depth, t)
	if err != nil {
		return err
	}
	lon1, lat1 := p.Lon+u1*0.5*dt, p.Lat+v1*0.5*dt
	u2, v2, err := fs.UV(lon1, lat1, p.Depth, t+0.5*dt)
	if err != nil {
		return err
	}
	lon2, lat2 := p.Lon+u2*0.5*dt, p.Lat+v2*0.5*dt
	u3, v3, err := fs.UV(lon2, lat2, p.Depth, t+0.5*dt)
	if err != nil {
		return err
	}
	lon3, lat3 := p.Lon+u3*dt, p.Lat+v3*dt
	u4, v4, err := fs.UV(lon3, lat3, p.Depth, t+dt)
	if err != nil {
		return err
	}
	p.Lon += (u1 + 2*u2 + 2*u3 + u4) / 6 * dt
	p.Lat += (v1 + 2*v2 + 2*v3 + v4) / 6 * dt
	return nil
}

// AdvectionEE advances a particle through the velocity field with
// explicit Euler integration.
func AdvectionEE(p *Particle, fs *FieldSet, t float64) error {
	u, v, err := fs.UV(p.Lon, p.Lat, p.Depth, t)
	if err != nil {
		return err
	}
	p.Lon += u * p.Dt
	p.Lat += v * p.Dt
	return nil
}
