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

	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

// DecimalToDMS converts a coordinate in decimal degrees to the
// degrees/minutes/seconds rational triple used by EXIF GPS fields. The
// sign is dropped; it is conveyed by the N/S or E/W reference field.
// Each component is truncated, and seconds keep two decimal places.
func DecimalToDMS(decimal float64) [3]exifcommon.Rational {
	decimal = math.Abs(decimal)

	degrees := math.Trunc(decimal)
	minutes := math.Trunc((decimal - degrees) * 60)
	seconds := ((decimal-degrees)*60 - minutes) * 60

	return [3]exifcommon.Rational{
		{Numerator: uint32(degrees), Denominator: 1},
		{Numerator: uint32(minutes), Denominator: 1},
		{Numerator: uint32(seconds * dmsSecondsScale), Denominator: dmsSecondsScale},
	}
}

// DMSToDecimal is the inverse of DecimalToDMS. The result is always
// non-negative.
func DMSToDecimal(dms [3]exifcommon.Rational) float64 {
	var total float64
	for i, part := range dms {
		if part.Denominator == 0 {
			continue
		}
		total += float64(part.Numerator) / float64(part.Denominator) / math.Pow(60, float64(i))
	}
	return total
}

// latitudeRef and longitudeRef return the EXIF hemisphere reference for
// the sign of a coordinate.
func latitudeRef(lat float64) string {
	if lat < 0 {
		return "S"
	}
	return "N"
}

func longitudeRef(lon float64) string {
	if lon < 0 {
		return "W"
	}
	return "E"
}

const dmsSecondsScale = 100
