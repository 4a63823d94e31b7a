/*
	Timelinize
	Copyright (c) 2013 Matthew Holt

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package media

import (
	"math"
	"testing"

	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

func TestDecimalToDMS(t *testing.T) {
	for i, tc := range []struct {
		input    float64
		expected [3]exifcommon.Rational
	}{
		{39.734604, [3]exifcommon.Rational{{Numerator: 39, Denominator: 1}, {Numerator: 44, Denominator: 1}, {Numerator: 457, Denominator: 100}}},
		{-104.98702, [3]exifcommon.Rational{{Numerator: 104, Denominator: 1}, {Numerator: 59, Denominator: 1}, {Numerator: 1327, Denominator: 100}}},
		{0, [3]exifcommon.Rational{{Numerator: 0, Denominator: 1}, {Numerator: 0, Denominator: 1}, {Numerator: 0, Denominator: 100}}},
		{12.5, [3]exifcommon.Rational{{Numerator: 12, Denominator: 1}, {Numerator: 30, Denominator: 1}, {Numerator: 0, Denominator: 100}}},
	} {
		actual := DecimalToDMS(tc.input)
		if actual != tc.expected {
			t.Errorf("Test %d: %f: expected %v but got %v", i, tc.input, tc.expected, actual)
		}
	}
}

func TestDMSRoundTrip(t *testing.T) {
	const bound = 1.0 / 360000

	for v := -180.0; v <= 180.0; v += 0.0137 {
		actual := DMSToDecimal(DecimalToDMS(v))
		if diff := math.Abs(math.Abs(v) - actual); diff > bound+1e-9 {
			t.Fatalf("%f: round trip gave %f (off by %g, more than %g)", v, actual, diff, bound)
		}
	}
}

func TestHemisphereRefs(t *testing.T) {
	for i, tc := range []struct {
		lat, lon       float64
		latRef, lonRef string
	}{
		{39.7, -104.9, "N", "W"},
		{-33.8, 151.2, "S", "E"},
		{0, 0, "N", "E"},
	} {
		if actual := latitudeRef(tc.lat); actual != tc.latRef {
			t.Errorf("Test %d: expected latitude ref %s but got %s", i, tc.latRef, actual)
		}
		if actual := longitudeRef(tc.lon); actual != tc.lonRef {
			t.Errorf("Test %d: expected longitude ref %s but got %s", i, tc.lonRef, actual)
		}
	}
}
