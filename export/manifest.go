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

// Package export reads a saved media export manifest and drives the
// download of every record it lists.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MediaRecord is one entry of the manifest. It is read-only once
// constructed.
type MediaRecord struct {
	Index       int // 1-based position in the manifest
	Date        time.Time
	Type        MediaType
	Location    *Location // nil if the record has no usable location
	DownloadURL string

	RawDate     string
	RawLocation string
}

// HasURL returns true if the record can be downloaded at all.
func (r MediaRecord) HasURL() bool {
	return strings.TrimSpace(r.DownloadURL) != ""
}

// Filename returns the name of the output file for the record, like
// "20250518_011750_3.jpg". The index makes names unique within a
// manifest even when records share a date.
func (r MediaRecord) Filename() string {
	return fmt.Sprintf("%s_%d%s", r.Date.Format(filenameDateLayout), r.Index, r.Type.Extension())
}

// OutputPath joins the record's filename onto dir.
func (r MediaRecord) OutputPath(dir string) string {
	return filepath.Join(dir, r.Filename())
}

const filenameDateLayout = "20060102_150405"

// savedMediaEntry is the JSON structure of one exported entry.
type savedMediaEntry struct {
	Date             string `json:"Date"`
	MediaType        string `json:"Media Type"`
	Location         string `json:"Location"`
	MediaDownloadURL string `json:"Media Download Url"`
}

// manifestFile is the top-level structure of the export JSON.
type manifestFile struct {
	SavedMedia []savedMediaEntry `json:"Saved Media"`
}

// LoadManifest reads and parses the manifest file at path.
func LoadManifest(path string) ([]MediaRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ManifestError{Path: path, Err: err}
	}
	defer f.Close()

	records, err := ReadManifest(f)
	if err != nil {
		var merr *ManifestError
		if errors.As(err, &merr) {
			merr.Path = path
		}
		return nil, err
	}
	return records, nil
}

// ReadManifest parses a manifest from r. Records are returned in
// manifest order. The date of every downloadable record is parsed up
// front, so a malformed date is reported as a *FormatError before any
// work is done; records without a URL are kept (they still take up an
// index) but their fields are not validated.
func ReadManifest(r io.Reader) ([]MediaRecord, error) {
	var mf manifestFile
	if err := json.NewDecoder(r).Decode(&mf); err != nil {
		return nil, &ManifestError{Err: fmt.Errorf("decoding JSON: %w", err)}
	}

	records := make([]MediaRecord, 0, len(mf.SavedMedia))
	for i, entry := range mf.SavedMedia {
		rec := MediaRecord{
			Index:       i + 1,
			Type:        ParseMediaType(entry.MediaType),
			DownloadURL: strings.TrimSpace(entry.MediaDownloadURL),
			RawDate:     entry.Date,
			RawLocation: entry.Location,
		}
		if rec.HasURL() {
			date, err := ParseDate(entry.Date)
			if err != nil {
				var ferr *FormatError
				if errors.As(err, &ferr) {
					ferr.Index = rec.Index
				}
				return nil, err
			}
			rec.Date = date
			if loc, ok := ParseLocation(entry.Location); ok {
				rec.Location = &loc
			}
		}
		records = append(records, rec)
	}

	return records, nil
}
