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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Fetcher materializes the media at a URL as a file.
type Fetcher interface {
	// Fetch downloads url to dest. The returned result's Path may
	// differ from dest in its extension if the media turned out to
	// be of another kind. On error, nothing is left at dest, though
	// a salvage file may have been kept (see FetchResult.SalvagePath).
	Fetch(ctx context.Context, url, dest string) (FetchResult, error)
}

// FetchResult describes a materialized download.
type FetchResult struct {
	Path        string // final location of the media; empty on failure
	SalvagePath string // set if raw bundle bytes were preserved for manual recovery
	Bundled     bool   // true if the response was a zip bundle
	MIME        string // sniffed content type of Path
	Size        int64  // size of Path in bytes
	Warnings    []ValidationWarning
}

// MetadataWriter restores capture date and location onto a file.
type MetadataWriter interface {
	// Apply writes rec's metadata to the file at path. It is best-effort:
	// problems are returned as warnings and never stop the item.
	Apply(ctx context.Context, path string, rec MediaRecord) []MetadataWarning
}

// Pipeline processes manifest records one at a time: fetch, then
// restore metadata.
type Pipeline struct {
	Fetcher   Fetcher
	Writer    MetadataWriter
	OutputDir string

	// If true, records whose output file already exists
	// are not downloaded again.
	SkipExisting bool

	// OnItem, if set, is called after each record is processed.
	OnItem func(ItemResult)

	Logger *zap.Logger
}

// ItemStatus is the outcome of processing one record.
type ItemStatus int

// Item outcomes.
const (
	StatusDone ItemStatus = iota
	StatusFailed
	StatusSalvaged
	StatusSkipped
	StatusExisting
)

func (s ItemStatus) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusSalvaged:
		return "salvaged"
	case StatusSkipped:
		return "skipped"
	case StatusExisting:
		return "existing"
	}
	return fmt.Sprintf("ItemStatus(%d)", int(s))
}

// ItemResult describes how one record was processed.
type ItemResult struct {
	Record      MediaRecord
	Total       int // number of records in the run
	Status      ItemStatus
	Path        string
	SalvagePath string
	Size        int64
	Err         error
	Warnings    []string
}

// Summary tallies the outcome of a run.
type Summary struct {
	Total    int
	Done     int
	Failed   int
	Salvaged int
	Skipped  int
	Existing int
	Warnings int
	Bytes    int64
}

func (s *Summary) add(res ItemResult) {
	switch res.Status {
	case StatusDone:
		s.Done++
	case StatusFailed:
		s.Failed++
	case StatusSalvaged:
		s.Salvaged++
	case StatusSkipped:
		s.Skipped++
	case StatusExisting:
		s.Existing++
	}
	s.Warnings += len(res.Warnings)
	s.Bytes += res.Size
}

// Run processes records in order. Per-item problems are recorded in the
// summary and never stop the run; only a failure to create the output
// directory or a cancelled context does.
func (p *Pipeline) Run(ctx context.Context, records []MediaRecord) (Summary, error) {
	summary := Summary{Total: len(records)}

	if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
		return summary, fmt.Errorf("creating output directory: %w", err)
	}

	logger := p.logger()
	logger.Info("processing manifest",
		zap.Int("records", len(records)),
		zap.String("output_dir", p.OutputDir))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			logger.Warn("run interrupted",
				zap.Int("processed", rec.Index-1),
				zap.Int("records", len(records)))
			return summary, err
		}

		res := p.processItem(ctx, rec)
		res.Total = len(records)
		summary.add(res)
		p.logItem(res)
		if p.OnItem != nil {
			p.OnItem(res)
		}
	}

	return summary, nil
}

func (p *Pipeline) processItem(ctx context.Context, rec MediaRecord) ItemResult {
	res := ItemResult{Record: rec}

	if !rec.HasURL() {
		res.Status = StatusSkipped
		res.Err = errors.New("no download URL")
		return res
	}

	dest := rec.OutputPath(p.OutputDir)

	if p.SkipExisting {
		if existing := existingOutput(dest); existing != "" {
			res.Status = StatusExisting
			res.Path = existing
			return res
		}
	}

	fetched, err := p.Fetcher.Fetch(ctx, rec.DownloadURL, dest)
	for _, w := range fetched.Warnings {
		res.Warnings = append(res.Warnings, w.String())
	}
	if err != nil {
		res.Err = err
		res.Status = StatusFailed
		if fetched.SalvagePath != "" {
			res.Status = StatusSalvaged
			res.SalvagePath = fetched.SalvagePath
		}
		return res
	}

	res.Path = fetched.Path
	res.Size = fetched.Size
	res.Status = StatusDone

	for _, w := range p.Writer.Apply(ctx, fetched.Path, rec) {
		res.Warnings = append(res.Warnings, w.String())
	}

	return res
}

func (p *Pipeline) logItem(res ItemResult) {
	logger := p.logger().Named(itemLoggerName).With(
		zap.Int("index", res.Record.Index),
		zap.Int("total", res.Total),
		zap.Stringer("media_type", res.Record.Type))
	if res.Path != "" {
		logger = logger.With(zap.String("path", res.Path))
	}
	if len(res.Warnings) > 0 {
		logger = logger.With(zap.Strings("warnings", res.Warnings))
	}

	switch res.Status {
	case StatusDone:
		logger.Info("saved media",
			zap.Time("date", res.Record.Date),
			zap.Int64("size", res.Size),
			zap.Bool("has_location", res.Record.Location != nil))
	case StatusExisting:
		logger.Info("output already exists; skipping")
	case StatusSkipped:
		logger.Warn("skipping record", zap.Error(res.Err))
	case StatusSalvaged:
		logger.Error("could not recover media from bundle; archive kept",
			zap.String("salvage_path", res.SalvagePath),
			zap.Error(res.Err))
	case StatusFailed:
		logger.Error("failed to save media", zap.Error(res.Err))
	}
}

// logger returns the pipeline's logger. Note that Log is resolved at
// call time so that a reconfigured Log is honored.
func (p *Pipeline) logger() *zap.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return Log
}

// existingOutput returns the path of a file that an earlier run produced
// for dest, which may have a different extension than dest if the media
// type was corrected, or "" if there is none. Salvage archives do not
// count since they are not resolved media.
func existingOutput(dest string) string {
	base := strings.TrimSuffix(dest, filepath.Ext(dest))
	for _, ext := range []string{filepath.Ext(dest), ".jpg", ".jpeg", ".mp4", ".bin"} {
		candidate := base + ext
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}
