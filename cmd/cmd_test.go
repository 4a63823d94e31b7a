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

package smcmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/timelinize/savedmedia/export"
	"github.com/timelinize/savedmedia/internal/testhelpers"
)

func TestDownloadCommand(t *testing.T) {
	jpegData := testhelpers.JPEG(t, 16, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo":
			w.Write(jpegData)
		default:
			http.Error(w, "<html><body>link expired</body></html>", http.StatusForbidden)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	manifest := filepath.Join(dir, "memories_history.json")
	testhelpers.WriteFile(t, manifest, []byte(fmt.Sprintf(`{"Saved Media": [
		{"Date": "2025-05-18 01:17:50 UTC", "Media Type": "Image", "Location": "Latitude, Longitude: 39.734604, -104.98702", "Media Download Url": "%[1]s/photo"},
		{"Date": "2025-05-18 01:20:00 UTC", "Media Type": "Video", "Location": "N/A", "Media Download Url": "%[1]s/expired"}
	]}`, srv.URL)))
	cfgPath := filepath.Join(dir, "config.json")
	testhelpers.WriteFile(t, cfgPath, []byte(`{"jpeg_quality": 90}`))
	out := filepath.Join(dir, "out")

	err := newApp().Run(context.Background(), []string{
		"savedmedia",
		"--log-level", "error",
		"--config", cfgPath,
		"--output", out,
		"--ffmpeg", filepath.Join(dir, "no-ffmpeg"),
		manifest,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	photo := filepath.Join(out, "20250518_011750_1.jpg")
	info, err := os.Stat(photo)
	if err != nil {
		t.Fatalf("expected photo to be saved: %v", err)
	}
	if expected := time.Date(2025, 5, 18, 1, 17, 50, 0, time.UTC); !info.ModTime().Equal(expected) {
		t.Errorf("expected modification time %s but got %s", expected, info.ModTime().UTC())
	}
	if _, err := os.Stat(filepath.Join(out, "20250518_012000_2.mp4")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("failed download should not leave a file: %v", err)
	}
}

func TestDownloadCommandMissingManifest(t *testing.T) {
	dir := t.TempDir()
	err := newApp().Run(context.Background(), []string{
		"savedmedia",
		"--log-level", "error",
		"--output", filepath.Join(dir, "out"),
		filepath.Join(dir, "missing.json"),
	})
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("expected missing manifest error but got: %v", err)
	}
}

func TestDownloadCommandBadConfig(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "m.json")
	testhelpers.WriteFile(t, manifest, []byte(`{"Saved Media": []}`))

	err := newApp().Run(context.Background(), []string{
		"savedmedia",
		"--log-level", "error",
		"--jpeg-quality", "0",
		"--output", filepath.Join(dir, "out"),
		manifest,
	})
	if err == nil || !strings.Contains(err.Error(), "jpeg_quality") {
		t.Errorf("expected validation error but got: %v", err)
	}
}

func TestInspectTargets(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"20250518_011750_10.jpg", "20250518_011750_2.jpg", "20250518_011750_1.mp4"} {
		testhelpers.WriteFile(t, filepath.Join(dir, name), testhelpers.Filler(1))
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	single := filepath.Join(t.TempDir(), "single.bin")
	testhelpers.WriteFile(t, single, testhelpers.Filler(1))

	paths, err := inspectTargets([]string{single, dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	expected := "single.bin 20250518_011750_1.mp4 20250518_011750_2.jpg 20250518_011750_10.jpg"
	if actual := strings.Join(names, " "); actual != expected {
		t.Errorf("expected %s but got %s", expected, actual)
	}

	if _, err := inspectTargets([]string{filepath.Join(dir, "nope")}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestReporter(t *testing.T) {
	noColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = noColor }()

	var buf bytes.Buffer
	r := newReporter(&buf)

	rec := export.MediaRecord{Index: 7}
	r.item(export.ItemResult{Record: rec, Total: 12, Status: export.StatusDone, Path: "/out/20250518_011750_7.jpg", Size: 2048})
	r.item(export.ItemResult{Record: rec, Total: 12, Status: export.StatusDone, Path: "/out/x.mp4", Size: 1, Warnings: []string{"video: ffmpeg not found"}})
	r.item(export.ItemResult{Record: rec, Total: 12, Status: export.StatusFailed, Err: errors.New("HTTP 403")})
	r.summary(export.Summary{Total: 12, Done: 2, Failed: 1, Warnings: 1, Bytes: 2049}, 3*time.Second)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	expected := []string{
		"[ 7/12] 20250518_011750_7.jpg 2.0 kB",
		"[ 7/12] x.mp4 1 B (1 warning)",
		"[ 7/12] failed: HTTP 403",
		"2 of 12 saved (2.0 kB) in 3s: 1 failed, 0 salvaged as zip, 0 skipped, 0 already present, 1 warning",
	}
	if len(lines) != len(expected) {
		t.Fatalf("expected %d lines but got %d: %q", len(expected), len(lines), lines)
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("line %d: expected %q but got %q", i, expected[i], lines[i])
		}
	}
}
