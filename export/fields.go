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

package export

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Layouts of the date strings in the manifest and in EXIF fields.
const (
	ManifestDateLayout = "2006-01-02 15:04:05 UTC"
	EXIFDateLayout     = "2006:01:02 15:04:05"
)

// ParseDate parses a manifest date like "2025-05-18 01:17:50 UTC".
// The result is in UTC with second precision.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(ManifestDateLayout, s)
	if err != nil {
		return time.Time{}, &FormatError{Field: fieldDate, Value: s, Err: err}
	}
	// time.Parse accepts fractional seconds the layout does not name
	if t.Nanosecond() != 0 {
		return time.Time{}, &FormatError{Field: fieldDate, Value: s, Err: errors.New("unexpected fractional seconds")}
	}
	return t.UTC(), nil
}

// FormatEXIFDate formats t the way EXIF date/time fields expect it.
// The wall-clock time of t is used as-is; EXIF has no zone.
func FormatEXIFDate(t time.Time) string {
	return t.Format(EXIFDateLayout)
}

// ParseEXIFDate is the inverse of FormatEXIFDate, interpreting the
// value as UTC.
func ParseEXIFDate(s string) (time.Time, error) {
	return time.ParseInLocation(EXIFDateLayout, strings.TrimRight(s, "\x00 "), time.UTC)
}

// Location is a point in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (l Location) String() string {
	return fmt.Sprintf("%f, %f", l.Latitude, l.Longitude)
}

// ParseLocation parses a manifest location like
// "Latitude, Longitude: 39.734604, -104.98702". It returns false if
// the string is empty, "N/A", or not in that exact form; a missing
// location is a normal condition, so there is no error.
func ParseLocation(s string) (Location, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == locationNotApplicable {
		return Location{}, false
	}

	coords, ok := strings.CutPrefix(s, locationPrefix)
	if !ok {
		return Location{}, false
	}
	parts := strings.Split(coords, ", ")
	if len(parts) != 2 {
		return Location{}, false
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Location{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Location{}, false
	}
	if !validCoordinate(lat, 90) || !validCoordinate(lon, 180) {
		return Location{}, false
	}

	return Location{Latitude: lat, Longitude: lon}, true
}

func validCoordinate(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && math.Abs(v) <= limit
}

// MediaType is the kind of media a manifest record refers to.
type MediaType int

// Media types as named by the manifest.
const (
	MediaUnknown MediaType = iota
	MediaImage
	MediaVideo
)

// ParseMediaType maps the manifest's "Media Type" value to a MediaType.
func ParseMediaType(s string) MediaType {
	switch strings.TrimSpace(s) {
	case "Image":
		return MediaImage
	case "Video":
		return MediaVideo
	}
	return MediaUnknown
}

func (mt MediaType) String() string {
	switch mt {
	case MediaImage:
		return "Image"
	case MediaVideo:
		return "Video"
	}
	return "Unknown"
}

// Extension returns the file extension (with dot) that files of this
// media type are saved with.
func (mt MediaType) Extension() string {
	switch mt {
	case MediaImage:
		return ".jpg"
	case MediaVideo:
		return ".mp4"
	}
	return ".bin"
}

// RedactURL strips the query string and fragment from a download URL;
// they usually carry signatures that should not end up in logs.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid URL>"
	}
	if u.RawQuery != "" {
		u.RawQuery = "…"
	}
	u.Fragment = ""
	return u.String()
}

const (
	locationPrefix        = "Latitude, Longitude: "
	locationNotApplicable = "N/A"
)

// JSON field names of a saved media entry.
const (
	fieldDate      = "Date"
	fieldMediaType = "Media Type"
	fieldLocation  = "Location"
	fieldURL       = "Media Download Url"
)
