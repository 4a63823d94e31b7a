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
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"strings"
	"time"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	"github.com/timelinize/savedmedia/export"
	"go.uber.org/zap"

	// decoders for other formats we may be handed, so NotJPEGError
	// can name what the file actually is
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNotJPEG is returned when EXIF cannot be written because the file
// is not a decodable JPEG image.
var ErrNotJPEG = errors.New("not a JPEG image")

// NotJPEGError is returned by EXIFWriter.Write for an image that is not
// a JPEG. It matches ErrNotJPEG with errors.Is.
type NotJPEGError struct {
	// Format the image decoded as ("png", "webp", ...), or empty if
	// it could not be decoded at all.
	Format string
	Err    error
}

func (e *NotJPEGError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("%v: image is %s", ErrNotJPEG, e.Format)
	}
	return fmt.Sprintf("%v: %v", ErrNotJPEG, e.Err)
}

func (e *NotJPEGError) Unwrap() error { return e.Err }

func (e *NotJPEGError) Is(target error) bool { return target == ErrNotJPEG }

// EXIFWriter writes capture date and GPS location into JPEG files.
type EXIFWriter struct {
	// Quality the image is re-encoded with; DefaultJPEGQuality if 0.
	Quality int

	// If set, dates are written in the local time at the photo's
	// location (with offset fields) instead of UTC.
	Zones *ZoneFinder

	Logger *zap.Logger
}

// Write sets DateTime, DateTimeOriginal and DateTimeDigitized to date
// and, if loc is not nil, the GPS latitude and longitude. EXIF already
// present in the file is kept where possible. The image is re-encoded
// and the file replaced atomically; on error the file is untouched.
func (w EXIFWriter) Write(path string, date time.Time, loc *export.Location) (err error) {
	// the EXIF library panics on some malformed input
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("writing EXIF: %v", r)
		}
	}()

	original, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	img, format, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return &NotJPEGError{Err: err}
	}
	if format != "jpeg" {
		return &NotJPEGError{Format: format}
	}

	rootIb, err := w.exifBuilder(original)
	if err != nil {
		return err
	}

	wallClock, offset := date.UTC(), ""
	if w.Zones != nil && loc != nil {
		if local, ok := w.Zones.LocalTime(date, *loc); ok {
			wallClock, offset = local, local.Format("-07:00")
		}
	}
	if err := setDateTags(rootIb, wallClock); err != nil {
		return err
	}
	if offset != "" {
		if err := setOffsetTags(rootIb, offset); err != nil {
			w.logger().Warn("could not write time zone offset", zap.String("path", path), zap.Error(err))
		}
	}
	if loc != nil {
		if err := setGPSTags(rootIb, *loc); err != nil {
			return err
		}
	}

	var reencoded bytes.Buffer
	if err := jpeg.Encode(&reencoded, img, &jpeg.Options{Quality: w.quality()}); err != nil {
		return fmt.Errorf("re-encoding image: %w", err)
	}

	intfc, err := jpegstructure.NewJpegMediaParser().ParseBytes(reencoded.Bytes())
	if err != nil {
		return fmt.Errorf("parsing re-encoded image: %w", err)
	}
	sl := intfc.(*jpegstructure.SegmentList)
	if err := sl.SetExif(rootIb); err != nil {
		return fmt.Errorf("embedding EXIF: %w", err)
	}

	tmpPath := path + ".exif.tmp"
	if err := writeSegments(sl, tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing image: %w", err)
	}

	return nil
}

// exifBuilder returns a builder seeded with the EXIF already in the
// image, or an empty one if there is none or it cannot be loaded.
func (w EXIFWriter) exifBuilder(jpegData []byte) (*exif.IfdBuilder, error) {
	intfc, err := jpegstructure.NewJpegMediaParser().ParseBytes(jpegData)
	if err == nil {
		if sl, ok := intfc.(*jpegstructure.SegmentList); ok {
			rootIb, err := sl.ConstructExifBuilder()
			if err == nil {
				return rootIb, nil
			}
			w.logger().Debug("no usable EXIF in image; starting from scratch", zap.Error(err))
		}
	}

	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("creating IFD mapping: %w", err)
	}
	ti := exif.NewTagIndex()
	return exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder), nil
}

func (w EXIFWriter) quality() int {
	if w.Quality > 0 {
		return w.Quality
	}
	return export.DefaultJPEGQuality
}

func (w EXIFWriter) logger() *zap.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return export.Log.Named("media.exif")
}

func setDateTags(rootIb *exif.IfdBuilder, date time.Time) error {
	value := export.FormatEXIFDate(date)

	if err := rootIb.SetStandardWithName("DateTime", value); err != nil {
		return fmt.Errorf("setting DateTime: %w", err)
	}

	exifIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
	if err != nil {
		return fmt.Errorf("getting Exif IFD: %w", err)
	}
	for _, name := range []string{"DateTimeOriginal", "DateTimeDigitized"} {
		if err := exifIb.SetStandardWithName(name, value); err != nil {
			return fmt.Errorf("setting %s: %w", name, err)
		}
	}

	return nil
}

func setOffsetTags(rootIb *exif.IfdBuilder, offset string) error {
	exifIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
	if err != nil {
		return fmt.Errorf("getting Exif IFD: %w", err)
	}
	for _, name := range []string{"OffsetTime", "OffsetTimeOriginal", "OffsetTimeDigitized"} {
		if err := exifIb.SetStandardWithName(name, offset); err != nil {
			return fmt.Errorf("setting %s: %w", name, err)
		}
	}
	return nil
}

func setGPSTags(rootIb *exif.IfdBuilder, loc export.Location) error {
	gpsIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/GPSInfo")
	if err != nil {
		return fmt.Errorf("getting GPS IFD: %w", err)
	}

	lat, lon := DecimalToDMS(loc.Latitude), DecimalToDMS(loc.Longitude)

	for _, field := range []struct {
		name  string
		value any
	}{
		{"GPSVersionID", []byte{2, 2, 0, 0}},
		{"GPSLatitudeRef", latitudeRef(loc.Latitude)},
		{"GPSLatitude", lat[:]},
		{"GPSLongitudeRef", longitudeRef(loc.Longitude)},
		{"GPSLongitude", lon[:]},
	} {
		if err := gpsIb.SetStandardWithName(field.name, field.value); err != nil {
			return fmt.Errorf("setting %s: %w", field.name, err)
		}
	}

	return nil
}

func writeSegments(sl *jpegstructure.SegmentList, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sl.Write(out); err != nil {
		out.Close()
		return fmt.Errorf("writing image: %w", err)
	}
	return out.Close()
}

// readEXIFOffset returns the OffsetTimeOriginal value (or OffsetTime if
// that is missing) from the EXIF in jpegData.
func readEXIFOffset(jpegData []byte) (offset string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			offset, ok = "", false
		}
	}()

	rawExif, err := exif.SearchAndExtractExif(jpegData)
	if err != nil {
		return "", false
	}
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return "", false
	}

	offsets := make(map[string]string)
	for _, entry := range entries {
		if entry.TagName != "OffsetTimeOriginal" && entry.TagName != "OffsetTime" {
			continue
		}
		if val, isString := entry.Value.(string); isString {
			offsets[entry.TagName] = strings.TrimRight(val, "\x00 ")
		}
	}
	for _, name := range []string{"OffsetTimeOriginal", "OffsetTime"} {
		if offsets[name] != "" {
			return offsets[name], true
		}
	}
	return "", false
}
