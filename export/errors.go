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
)

// FormatError is returned when a manifest field does not have the
// expected shape. A malformed manifest is not recoverable per-item,
// so a FormatError ends the run.
type FormatError struct {
	Index int    // 1-based record position, or 0 if not tied to a record
	Field string // JSON field name
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("record %d: invalid %s %q: %v", e.Index, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ManifestError is returned when the manifest file is missing,
// unreadable, or not valid JSON.
type ManifestError struct {
	Path string
	Err  error
}

func (e *ManifestError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("reading manifest: %v", e.Err)
	}
	return fmt.Sprintf("reading manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// DownloadError describes a failure to retrieve the media for a single
// item: a network error, an unexpected HTTP status, or a response that
// is clearly not media (such as an HTML error page).
type DownloadError struct {
	URL        string
	StatusCode int // 0 if no response was received
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("downloading %s: HTTP %d: %v", RedactURL(e.URL), e.StatusCode, e.Err)
	}
	return fmt.Sprintf("downloading %s: %v", RedactURL(e.URL), e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ZipRecoveryError is returned when a bundle response could not be
// extracted or contained no usable media. If SalvagePath is set, the
// original archive bytes were preserved there.
type ZipRecoveryError struct {
	SalvagePath string
	Err         error
}

func (e *ZipRecoveryError) Error() string {
	if e.SalvagePath != "" {
		return fmt.Sprintf("recovering media from bundle (archive kept at %s): %v", e.SalvagePath, e.Err)
	}
	return fmt.Sprintf("recovering media from bundle: %v", e.Err)
}

func (e *ZipRecoveryError) Unwrap() error { return e.Err }

// Sentinel errors.
var (
	ErrHTMLResponse  = errors.New("response is an HTML page, not media; the URL is probably expired or invalid")
	ErrNoUsableMedia = errors.New("bundle contains no .mp4, .jpg or .jpeg file")
)

// ValidationWarning is an advisory note that downloaded content does
// not look like a known image or video format. The file is kept.
type ValidationWarning struct {
	Path string
	MIME string
}

func (w ValidationWarning) String() string {
	return fmt.Sprintf("%s: content does not look like an image or video (detected %s)", w.Path, w.MIME)
}

// MetadataWarning records a metadata step that failed or was skipped.
// The file content is preserved as-is.
type MetadataWarning struct {
	Step string // "exif", "video", or "timestamps"
	Err  error
}

func (w MetadataWarning) String() string {
	return fmt.Sprintf("%s: %v", w.Step, w.Err)
}
