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
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	for i, tc := range []struct {
		input     string
		expected  time.Time
		shouldErr bool
	}{
		{input: "2025-05-18 01:17:50 UTC", expected: time.Date(2025, 5, 18, 1, 17, 50, 0, time.UTC)},
		{input: "1999-12-31 23:59:59 UTC", expected: time.Date(1999, 12, 31, 23, 59, 59, 0, time.UTC)},
		{input: "2025-05-18T01:17:50Z", shouldErr: true},
		{input: "2025-05-18 01:17:50", shouldErr: true},
		{input: "2025-05-18 01:17:50.123 UTC", shouldErr: true},
		{input: "2025-05-18 01:17:50,5 UTC", shouldErr: true},
		{input: "", shouldErr: true},
	} {
		actual, err := ParseDate(tc.input)
		if tc.shouldErr {
			var ferr *FormatError
			if !errors.As(err, &ferr) {
				t.Errorf("Test %d: expected FormatError but got: %v", i, err)
			} else if ferr.Field != "Date" || ferr.Value != tc.input {
				t.Errorf("Test %d: unexpected error details: %+v", i, ferr)
			}
			continue
		}
		if err != nil {
			t.Errorf("Test %d: unexpected error: %v", i, err)
			continue
		}
		if !actual.Equal(tc.expected) || actual.Location() != time.UTC {
			t.Errorf("Test %d: expected %s but got %s", i, tc.expected, actual)
		}
	}
}

func TestEXIFDateRoundTrip(t *testing.T) {
	date := time.Date(2025, 5, 18, 1, 17, 50, 0, time.UTC)
	formatted := FormatEXIFDate(date)
	if formatted != "2025:05:18 01:17:50" {
		t.Fatalf("expected 2025:05:18 01:17:50 but got %s", formatted)
	}
	for _, s := range []string{formatted, formatted + "\x00", formatted + " "} {
		parsed, err := ParseEXIFDate(s)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", s, err)
		}
		if !parsed.Equal(date) {
			t.Errorf("%q: expected %s but got %s", s, date, parsed)
		}
	}
}

func TestParseLocation(t *testing.T) {
	for i, tc := range []struct {
		input    string
		expected Location
		ok       bool
	}{
		{input: "Latitude, Longitude: 39.734604, -104.98702", expected: Location{39.734604, -104.98702}, ok: true},
		{input: "Latitude, Longitude: -33.8, 151.2", expected: Location{-33.8, 151.2}, ok: true},
		{input: "Latitude, Longitude: 0.0, 0.0", expected: Location{0, 0}, ok: true},
		{input: "  Latitude, Longitude: 1, 2  ", expected: Location{1, 2}, ok: true},
		{input: "N/A"},
		{input: ""},
		{input: "39.734604, -104.98702"},
		{input: "Latitude, Longitude: 39.734604"},
		{input: "Latitude, Longitude: 39.7, -104.9, 12"},
		{input: "Latitude, Longitude: abc, -104.9"},
		{input: "Latitude, Longitude: 91, 0"},
		{input: "Latitude, Longitude: 0, -180.5"},
		{input: "Latitude, Longitude: NaN, 0"},
	} {
		actual, ok := ParseLocation(tc.input)
		if ok != tc.ok {
			t.Errorf("Test %d: %q: expected ok=%t but got %t", i, tc.input, tc.ok, ok)
			continue
		}
		if actual != tc.expected {
			t.Errorf("Test %d: expected %v but got %v", i, tc.expected, actual)
		}
	}
}

func TestMediaType(t *testing.T) {
	for i, tc := range []struct {
		input    string
		expected MediaType
		ext      string
	}{
		{"Image", MediaImage, ".jpg"},
		{"Video", MediaVideo, ".mp4"},
		{"image", MediaUnknown, ".bin"},
		{"Story", MediaUnknown, ".bin"},
		{"", MediaUnknown, ".bin"},
	} {
		actual := ParseMediaType(tc.input)
		if actual != tc.expected {
			t.Errorf("Test %d: expected %s but got %s", i, tc.expected, actual)
		}
		if ext := actual.Extension(); ext != tc.ext {
			t.Errorf("Test %d: expected extension %s but got %s", i, tc.ext, ext)
		}
	}
}

func TestRedactURL(t *testing.T) {
	for i, tc := range []struct {
		input, expected string
	}{
		{"https://app.example.com/dmd/memories?uid=abc&sig=secret", "https://app.example.com/dmd/memories?…"},
		{"https://cdn.example.com/media.jpg", "https://cdn.example.com/media.jpg"},
		{"https://cdn.example.com/media.jpg#frag", "https://cdn.example.com/media.jpg"},
		{"://bad", "<invalid URL>"},
	} {
		actual := RedactURL(tc.input)
		if actual != tc.expected {
			t.Errorf("Test %d: expected %s but got %s", i, tc.expected, actual)
		}
		if strings.Contains(actual, "secret") {
			t.Errorf("Test %d: signature leaked: %s", i, actual)
		}
	}
}
