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

// Package media restores capture metadata onto downloaded media files
// and reads it back.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/timelinize/savedmedia/export"
	"go.uber.org/zap"
)

// Writer applies a record's capture date and location to a file. It
// implements export.MetadataWriter.
type Writer struct {
	EXIF EXIFWriter

	// Remuxer rewrites video metadata. If nil, videos only get
	// their file timestamps set.
	Remuxer Remuxer

	Logger *zap.Logger
}

// Apply writes embedded metadata according to the kind of file at path
// (by extension), then sets the file's access and modification times to
// the capture date. The timestamps go last because rewriting the file
// content would otherwise leave the processing time as mtime.
func (w *Writer) Apply(ctx context.Context, path string, rec export.MediaRecord) []export.MetadataWarning {
	logger := w.logger().With(zap.String("path", path))
	var warnings []export.MetadataWarning

	warn := func(step string, err error) {
		warnings = append(warnings, export.MetadataWarning{Step: step, Err: err})
		var notJPEG *NotJPEGError
		if errors.As(err, &notJPEG) {
			logger.Info("skipping "+step+" metadata", zap.String("format", notJPEG.Format), zap.Error(err))
		} else if errors.Is(err, ErrNotJPEG) || errors.Is(err, ErrToolUnavailable) {
			logger.Info("skipping "+step+" metadata", zap.Error(err))
		} else {
			logger.Warn("could not write "+step+" metadata", zap.Error(err))
		}
	}

	switch kindOf(path) {
	case kindImage:
		if err := w.EXIF.Write(path, rec.Date, rec.Location); err != nil {
			warn(StepEXIF, err)
		} else {
			logger.Debug("wrote EXIF metadata", zap.Bool("gps", rec.Location != nil))
		}

	case kindVideo:
		if w.Remuxer == nil {
			warn(StepVideo, fmt.Errorf("%w: no remuxer configured", ErrToolUnavailable))
		} else if err := WriteVideoMetadata(ctx, w.Remuxer, path, rec.Date, rec.Location); err != nil {
			warn(StepVideo, err)
		} else {
			logger.Debug("wrote video metadata", zap.Bool("location", rec.Location != nil))
		}
	}

	if err := SetFileTimes(path, rec.Date); err != nil {
		warn(StepTimestamps, err)
	}

	return warnings
}

func (w *Writer) logger() *zap.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return export.Log.Named("media")
}

// SetFileTimes sets both the access and modification time of the file
// at path to t.
func SetFileTimes(path string, t time.Time) error {
	if err := os.Chtimes(path, t, t); err != nil {
		return fmt.Errorf("setting file times: %w", err)
	}
	return nil
}

// Names of the metadata steps, as reported in warnings.
const (
	StepEXIF       = "exif"
	StepVideo      = "video"
	StepTimestamps = "timestamps"
)

type fileKind int

const (
	kindOther fileKind = iota
	kindImage
	kindVideo
)

// kindOf decides how to treat a file by its extension, which the fetcher
// has already corrected to match bundled content.
func kindOf(path string) fileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return kindImage
	case ".mp4":
		return kindVideo
	}
	return kindOther
}
