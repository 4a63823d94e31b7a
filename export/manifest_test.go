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
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testManifest = `{
  "Saved Media": [
    {
      "Date": "2025-05-18 01:17:50 UTC",
      "Media Type": "Image",
      "Location": "Latitude, Longitude: 39.734604, -104.98702",
      "Media Download Url": "https://example.com/a?sig=1"
    },
    {
      "Date": "2025-05-18 01:17:50 UTC",
      "Media Type": "Video",
      "Location": "N/A",
      "Media Download Url": "https://example.com/b?sig=2"
    },
    {
      "Date": "not a date",
      "Media Type": "Image",
      "Location": "",
      "Media Download Url": ""
    },
    {
      "Date": "2021-01-01 00:00:00 UTC",
      "Media Type": "Sticker",
      "Location": "Latitude, Longitude: 0.0, 0.0",
      "Media Download Url": "https://example.com/c"
    }
  ]
}`

func TestReadManifest(t *testing.T) {
	records, err := ReadManifest(strings.NewReader(testManifest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records but got %d", len(records))
	}

	for i, rec := range records {
		if rec.Index != i+1 {
			t.Errorf("record %d: expected index %d but got %d", i, i+1, rec.Index)
		}
	}

	first := records[0]
	if !first.Date.Equal(time.Date(2025, 5, 18, 1, 17, 50, 0, time.UTC)) {
		t.Errorf("unexpected date: %s", first.Date)
	}
	if first.Type != MediaImage {
		t.Errorf("expected Image but got %s", first.Type)
	}
	if first.Location == nil || *first.Location != (Location{39.734604, -104.98702}) {
		t.Errorf("unexpected location: %v", first.Location)
	}
	if first.Filename() != "20250518_011750_1.jpg" {
		t.Errorf("unexpected filename: %s", first.Filename())
	}

	if records[1].Location != nil {
		t.Errorf("N/A should not produce a location: %v", records[1].Location)
	}
	if records[1].Filename() != "20250518_011750_2.mp4" {
		t.Errorf("unexpected filename: %s", records[1].Filename())
	}

	// records without a URL are kept but not validated
	if records[2].HasURL() {
		t.Error("record 3 should have no URL")
	}
	if records[2].RawDate != "not a date" {
		t.Errorf("raw date should be kept: %q", records[2].RawDate)
	}

	if records[3].Type != MediaUnknown || records[3].Filename() != "20210101_000000_4.bin" {
		t.Errorf("unexpected record: %+v (%s)", records[3], records[3].Filename())
	}
	if records[3].Location == nil {
		t.Error("0, 0 is a valid location")
	}
}

func TestReadManifestBadDate(t *testing.T) {
	input := `{"Saved Media": [
		{"Date": "2025-05-18 01:17:50 UTC", "Media Type": "Image", "Location": "", "Media Download Url": "https://example.com/a"},
		{"Date": "18/05/2025", "Media Type": "Image", "Location": "", "Media Download Url": "https://example.com/b"}
	]}`

	_, err := ReadManifest(strings.NewReader(input))
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FormatError but got: %v", err)
	}
	if ferr.Index != 2 {
		t.Errorf("expected index 2 but got %d", ferr.Index)
	}
	if !strings.Contains(err.Error(), "18/05/2025") {
		t.Errorf("expected the bad value in the message: %v", err)
	}
}

func TestReadManifestStructure(t *testing.T) {
	for i, tc := range []struct {
		input    string
		expected int
		wantErr  bool
	}{
		{input: `{"Saved Media": []}`, expected: 0},
		{input: `{}`, expected: 0},
		{input: `{"Saved Media": [{"Date": "2025-05-18 01:17:50 UTC"}]}`, expected: 1},
		{input: `{"Saved Media": {}}`, wantErr: true},
		{input: `[`, wantErr: true},
		{input: ``, wantErr: true},
	} {
		records, err := ReadManifest(strings.NewReader(tc.input))
		if tc.wantErr {
			var merr *ManifestError
			if !errors.As(err, &merr) {
				t.Errorf("Test %d: expected ManifestError but got: %v", i, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Test %d: unexpected error: %v", i, err)
			continue
		}
		if len(records) != tc.expected {
			t.Errorf("Test %d: expected %d records but got %d", i, tc.expected, len(records))
		}
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "memories_history.json")
	if err := os.WriteFile(path, []byte(testManifest), 0o600); err != nil {
		t.Fatal(err)
	}
	records, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 4 {
		t.Errorf("expected 4 records but got %d", len(records))
	}

	missing := filepath.Join(dir, "missing.json")
	_, err = LoadManifest(missing)
	var merr *ManifestError
	if !errors.As(err, &merr) || merr.Path != missing {
		t.Errorf("expected ManifestError for %s but got: %v", missing, err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected the cause to be kept: %v", err)
	}

	invalid := filepath.Join(dir, "invalid.json")
	if err := os.WriteFile(invalid, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err = LoadManifest(invalid)
	if !errors.As(err, &merr) || merr.Path != invalid {
		t.Errorf("expected ManifestError for %s but got: %v", invalid, err)
	}
}

func TestFilenamesUnique(t *testing.T) {
	date := time.Date(2025, 5, 18, 1, 17, 50, 0, time.UTC)
	seen := make(map[string]int)
	for i := 1; i <= 200; i++ {
		// same date and type for every record; the index must disambiguate
		rec := MediaRecord{Index: i, Date: date, Type: MediaType(i % 3)}
		name := rec.Filename()
		if prev, ok := seen[name]; ok {
			t.Fatalf("records %d and %d both map to %s", prev, i, name)
		}
		seen[name] = i
	}

	rec := MediaRecord{Index: 7, Date: date, Type: MediaVideo}
	if actual := rec.OutputPath("out"); actual != filepath.Join("out", "20250518_011750_7.mp4") {
		t.Errorf("unexpected output path: %s", actual)
	}
}
