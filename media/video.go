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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/timelinize/savedmedia/export"
	"go.uber.org/zap"
)

// ErrToolUnavailable is returned when the external muxing tool is not
// installed. It is not a failure of the item; metadata is just skipped.
var ErrToolUnavailable = errors.New("media muxing tool not available")

// Tag is a container metadata key-value pair.
type Tag struct {
	Key, Value string
}

// Remuxer can rewrite a media container with new metadata without
// re-encoding the streams.
type Remuxer interface {
	// Available returns an error wrapping ErrToolUnavailable if
	// remuxing cannot be done on this system.
	Available() error

	// Remux copies the streams of input into a new file at output,
	// keeping existing metadata and adding tags.
	Remux(ctx context.Context, input, output string, tags []Tag) error
}

// FFmpeg remuxes with the ffmpeg command line tool.
type FFmpeg struct {
	path    string
	lookErr error
	timeout time.Duration
	logger  *zap.Logger
}

// NewFFmpeg locates ffmpeg: exe is either a path or a command name to
// look up in PATH ("ffmpeg" if empty). Each remux is bounded by timeout,
// if positive. A missing executable is reported by Available, not here.
func NewFFmpeg(exe string, timeout time.Duration, logger *zap.Logger) *FFmpeg {
	if exe == "" {
		exe = "ffmpeg"
	}
	if logger == nil {
		logger = export.Log.Named("media.ffmpeg")
	}
	ff := &FFmpeg{timeout: timeout, logger: logger}
	ff.path, ff.lookErr = exec.LookPath(exe)
	return ff
}

// Available satisfies Remuxer.
func (ff *FFmpeg) Available() error {
	if ff.lookErr != nil {
		return fmt.Errorf("%w: ffmpeg not found: %v", ErrToolUnavailable, ff.lookErr)
	}
	return nil
}

// Remux satisfies Remuxer.
func (ff *FFmpeg) Remux(ctx context.Context, input, output string, tags []Tag) error {
	if err := ff.Available(); err != nil {
		return err
	}

	if ff.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ff.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, ff.path, remuxArgs(input, output, tags)...)
	var stderr tailBuffer
	cmd.Stderr = &stderr

	ff.logger.Debug("exec " + cmd.String())

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("ffmpeg exited with status %d: %s", exitErr.ExitCode(), stderr.String())
		}
		return fmt.Errorf("running ffmpeg: %w", err)
	}

	return nil
}

// remuxArgs returns the ffmpeg arguments for a lossless copy of input
// to output with metadata tags added.
func remuxArgs(input, output string, tags []Tag) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-c", "copy",
		"-map_metadata", "0",
	}
	for _, tag := range tags {
		args = append(args, "-metadata", tag.Key+"="+tag.Value)
	}
	return append(args, "-y", output)
}

// VideoTags returns the container metadata for a capture date and an
// optional location. The location is written under several keys since
// players disagree on which one they read.
func VideoTags(date time.Time, loc *export.Location) []Tag {
	tags := []Tag{{Key: "creation_time", Value: date.UTC().Format(creationTimeLayout)}}
	if loc != nil {
		iso := ISO6709(*loc)
		tags = append(tags,
			Tag{Key: "location", Value: iso},
			Tag{Key: "location-eng", Value: iso},
			Tag{Key: "com.apple.quicktime.location.ISO6709", Value: iso},
		)
	}
	return tags
}

// ISO6709 formats loc like "+39.734604-104.987020/".
func ISO6709(loc export.Location) string {
	return fmt.Sprintf("%+010.6f%+011.6f/", loc.Latitude, loc.Longitude)
}

// WriteVideoMetadata remuxes the video at path with the capture date and
// location. The original is only replaced if the remux succeeds; the
// temporary output is removed in every case.
func WriteVideoMetadata(ctx context.Context, r Remuxer, path string, date time.Time, loc *export.Location) error {
	if err := r.Available(); err != nil {
		return err
	}

	ext := filepath.Ext(path)
	tmpPath := strings.TrimSuffix(path, ext) + ".remux" + ext
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			export.Log.Named("media").Warn("could not remove temporary remux output",
				zap.String("path", tmpPath), zap.Error(err))
		}
	}()

	if err := r.Remux(ctx, path, tmpPath, VideoTags(date, loc)); err != nil {
		return err
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return fmt.Errorf("remux output missing: %w", err)
	}
	if info.Size() == 0 {
		return errors.New("remux output is empty")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing video: %w", err)
	}
	return nil
}

// tailBuffer keeps the last few KiB written to it; enough for an
// error message from ffmpeg without holding a runaway log in memory.
type tailBuffer struct {
	buf bytes.Buffer
}

func (tb *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	tb.buf.Write(p)
	if over := tb.buf.Len() - maxStderrTail; over > 0 {
		tb.buf.Next(over)
	}
	return n, nil
}

func (tb *tailBuffer) String() string {
	return strings.TrimSpace(tb.buf.String())
}

const (
	creationTimeLayout = "2006-01-02T15:04:05.000000Z"
	maxStderrTail      = 4096
)
