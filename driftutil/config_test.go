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
	"testing"

	"github.com/lnashier/viper"
)

func TestCheckDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"5m", 300, false},
		{"-5m", -300, false},
		{"240h", 864000, false},
		{"3600", 3600, false},
		{"", 0, false},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := checkDuration("Dt", tt.in)
		if tt.wantErr != (err != nil) {
			t.Errorf("%q: error was %v, but wantErr is %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: result was %g, but should be %g", tt.in, got, tt.want)
		}
	}
}

func TestCheckMesh(t *testing.T) {
	for _, in := range []string{"", "spherical", "Spherical"} {
		if _, err := checkMesh(in); err != nil {
			t.Errorf("%q: %v", in, err)
		}
	}
	if _, err := checkMesh("cubic"); err == nil {
		t.Error("an unknown mesh name should fail")
	}
}

func TestCheckKernel(t *testing.T) {
	for _, in := range []string{"", "rk4", "euler", "EE"} {
		if _, err := checkKernel(in); err != nil {
			t.Errorf("%q: %v", in, err)
		}
	}
	if _, err := checkKernel("leapfrog"); err == nil {
		t.Error("an unknown kernel name should fail")
	}
}

func TestGetStringMapString(t *testing.T) {
	cfg := viper.New()
	cfg.Set("json", `{"U": "uo", "V": "vo"}`)
	got := GetStringMapString("json", cfg)
	if got["U"] != "uo" || got["V"] != "vo" {
		t.Errorf("JSON-form map was %v, but should be map[U:uo V:vo]", got)
	}
	cfg.Set("native", map[string]interface{}{"U": "water_u"})
	got = GetStringMapString("native", cfg)
	if got["U"] != "water_u" {
		t.Errorf("native-form map was %v, but should be map[U:water_u]", got)
	}
	if got := GetStringMapString("missing", cfg); got != nil {
		t.Errorf("missing variable yielded %v, but should be nil", got)
	}
}
