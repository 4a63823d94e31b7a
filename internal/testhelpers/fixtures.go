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

// Package testhelpers builds media fixtures for tests.
package testhelpers

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"testing"
)

// JPEG returns an encoded w×h JPEG image with a gradient, so that it
// does not compress to nothing.
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(w, h), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encoding JPEG fixture: %v", err)
	}
	return buf.Bytes()
}

// PNG returns an encoded w×h PNG image.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, gradient(w, h)); err != nil {
		t.Fatalf("encoding PNG fixture: %v", err)
	}
	return buf.Bytes()
}

func gradient(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / max(w, 1)), G: uint8(y * 255 / max(h, 1)), B: 128, A: 255})
		}
	}
	return img
}

// MP4 returns the bytes of a minimal ISO BMFF file: an ftyp box
// followed by a free box padded to at least size bytes. It is enough
// for content sniffing, not for playback.
func MP4(size int) []byte {
	var buf bytes.Buffer
	ftyp := []byte("ftypisom\x00\x00\x02\x00isomiso2mp41")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ftyp)+4))
	buf.Write(ftyp)

	const headerLen = 8
	pad := max(size-buf.Len()-headerLen, 0)
	_ = binary.Write(&buf, binary.BigEndian, uint32(pad+headerLen))
	buf.WriteString("free")
	buf.Write(make([]byte, pad))
	return buf.Bytes()
}

// ZipEntry is a file to put in a zip fixture.
type ZipEntry struct {
	Name string
	Data []byte
}

// Zip returns a zip archive containing entries in order.
func Zip(t testing.TB, entries ...ZipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Store})
		if err != nil {
			t.Fatalf("adding %s to zip fixture: %v", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			t.Fatalf("writing %s to zip fixture: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip fixture: %v", err)
	}
	return buf.Bytes()
}

// Filler returns n bytes that do not match any known file signature.
func Filler(n int) []byte {
	return bytes.Repeat([]byte{'x'}, n)
}

// WriteFile writes data to path or fails the test.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
