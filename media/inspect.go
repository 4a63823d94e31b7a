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
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/abema/go-mp4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/timelinize/savedmedia/export"
)

// Inspection is the capture metadata found in a file.
type Inspection struct {
	Path      string
	MIME      string
	Brand     string // MP4 major brand
	Timestamp time.Time
	Location  *export.Location
}

func (in Inspection) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", in.Path, in.MIME)
	if in.Brand != "" {
		fmt.Fprintf(&sb, " (%s)", in.Brand)
	}
	if in.Timestamp.IsZero() {
		sb.WriteString(", no date")
	} else {
		fmt.Fprintf(&sb, ", taken %s", in.Timestamp.Format(time.RFC3339))
	}
	if in.Location == nil {
		sb.WriteString(", no location")
	} else {
		fmt.Fprintf(&sb, ", at %s", in.Location)
	}
	return sb.String()
}

// Inspect reads the capture date and location from the JPEG EXIF or
// MP4 container metadata of the file at path. Other formats are
// reported with just their content type.
func Inspect(path string) (Inspection, error) {
	in := Inspection{Path: path}

	file, err := os.Open(path)
	if err != nil {
		return in, err
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return in, fmt.Errorf("detecting content type: %w", err)
	}
	in.MIME = mtype.String()
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return in, err
	}

	switch {
	case mtype.Is("image/jpeg"):
		var data []byte
		if data, err = io.ReadAll(file); err == nil {
			inspectEXIF(data, &in)
		}
	case mtype.Is("video/mp4"), mtype.Is("video/quicktime"):
		err = inspectMP4(file, &in)
	}
	return in, err
}

// inspectEXIF reads the date and GPS position from JPEG EXIF. Dates
// are taken as UTC unless an OffsetTime field says otherwise.
func inspectEXIF(jpegData []byte, in *Inspection) {
	x, err := exif.Decode(bytes.NewReader(jpegData))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		// no readable EXIF, so nothing to report
		return
	}

	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		val, err := tag.StringVal()
		if err != nil {
			continue
		}
		val = strings.TrimRight(val, "\x00 ")
		ts, err := export.ParseEXIFDate(val)
		if err != nil {
			continue
		}
		if offset, ok := readEXIFOffset(jpegData); ok {
			if local, err := time.Parse(export.EXIFDateLayout+"-07:00", val+offset); err == nil {
				ts = local
			}
		}
		in.Timestamp = ts
		break
	}

	if lat, lon, err := x.LatLong(); err == nil {
		in.Location = &export.Location{Latitude: lat, Longitude: lon}
	}
}

// inspectMP4 walks the box structure for the file type, the movie
// header's creation time, and the ©xyz location box.
func inspectMP4(r io.ReadSeeker, in *Inspection) error {
	_, err := mp4.ReadBoxStructure(r, func(h *mp4.ReadHandle) (any, error) {
		if h.BoxInfo.IsSupportedType() && h.BoxInfo.Type.String() != "mdat" {
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, fmt.Errorf("reading payload from handle: %w", err)
			}

			switch b := box.(type) {
			case *mp4.Ftyp:
				in.Brand = string(b.MajorBrand[:])
			case *mp4.Mvhd:
				if creationTime := b.GetCreationTime(); creationTime != 0 && in.Timestamp.IsZero() {
					in.Timestamp = isoIEC14496Timestamp(creationTime)
				}
			}

			// traverse child nodes
			return h.Expand()
		} else if h.BoxInfo.Context.UnderUdta && h.BoxInfo.Type == [4]byte{'©', 'x', 'y', 'z'} {
			var buf bytes.Buffer
			if _, err := h.ReadData(&buf); err != nil {
				return nil, fmt.Errorf("reading ©xyz box data: %w", err)
			}
			if loc, err := ParseISO6709(buf.String()); err == nil {
				in.Location = &loc
			}
		}
		return nil, nil
	})
	return err
}

// ParseISO6709 finds a "+lat-lon" pair, as written in the ©xyz box or
// produced by ISO6709, in s.
func ParseISO6709(s string) (export.Location, error) {
	matches := iso6709Regex.FindStringSubmatch(s)
	const minMatches = 4
	if len(matches) < minMatches {
		return export.Location{}, fmt.Errorf("lat+lon not found in expected format in input string '%s'", s)
	}

	latStr, lonStr := matches[1], matches[3]

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return export.Location{}, fmt.Errorf("converting latitude from '%s': %w", latStr, err)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return export.Location{}, fmt.Errorf("converting longitude from '%s': %w", lonStr, err)
	}

	return export.Location{Latitude: lat, Longitude: lon}, nil
}

// isoIEC14496Timestamp converts the number of seconds since January 1, 1904 (as
// defined by ISO/IEC 14496-12 5th Edition [2015], page 23) to a normal time.Time
// value based on Unix epoch.
func isoIEC14496Timestamp(ts uint64) time.Time {
	if ts <= mp4EpochToUnixEpochSeconds {
		return time.Time{}
	}
	unixSec := ts - mp4EpochToUnixEpochSeconds
	return time.Unix(int64(unixSec), 0).UTC() //nolint:gosec
}

// The difference between January 1, 1904 (the epoch used by MP4 file metadata)
// and January 1, 1970 (the Unix epoch) in seconds.
const mp4EpochToUnixEpochSeconds uint64 = 2082844800

// Regex to extract lat-lon data from ISO 6709 strings like
// "+50.1234-101.1234+000.000/"; the altitude is optional.
var iso6709Regex = regexp.MustCompile(`((\+|-)\d+\.\d+)((\+|-)\d+\.\d+)`)
