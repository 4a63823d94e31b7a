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

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
	"github.com/timelinize/savedmedia/export"
	"go.uber.org/zap"
)

// bundleEntry is a file extracted from a bundle.
type bundleEntry struct {
	nameInArchive string
	path          string // location in the scratch directory
	size          int64
}

func (e bundleEntry) ext() string {
	return strings.ToLower(filepath.Ext(e.nameInArchive))
}

// unbundle extracts the zip archive at zipPath into a scratch directory
// next to dest and moves the best media file in it to dest, adjusting
// the extension if the media is of another kind than dest's extension
// suggests. It returns the final path.
//
// If the archive cannot be extracted or has no usable media, the archive
// itself is kept as a salvage file and a *export.ZipRecoveryError is
// returned. The scratch directory is always removed.
func (f *Fetcher) unbundle(ctx context.Context, zipPath, dest string) (string, error) {
	logger := f.logger().With(zap.String("dest", dest))

	scratch := filepath.Join(filepath.Dir(dest), scratchDirName)
	if err := os.RemoveAll(scratch); err != nil {
		return "", fmt.Errorf("clearing scratch directory: %w", err)
	}
	if err := os.MkdirAll(scratch, 0700); err != nil {
		return "", fmt.Errorf("creating scratch directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			logger.Warn("could not remove scratch directory", zap.String("path", scratch), zap.Error(err))
		}
	}()

	entries, err := f.extractZip(ctx, zipPath, scratch)
	if err != nil {
		return "", salvage(zipPath, dest+".zip", fmt.Errorf("extracting bundle: %w", err))
	}

	best, ok := selectCandidate(entries)
	if !ok {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.nameInArchive)
		}
		logger.Warn("bundle has no usable media", zap.Strings("entries", names))
		return "", salvage(zipPath, strings.TrimSuffix(dest, filepath.Ext(dest))+".zip", export.ErrNoUsableMedia)
	}

	finalPath := adjustExtension(dest, best.ext())
	if err := replaceFile(best.path, finalPath); err != nil {
		return "", salvage(zipPath, dest+".zip", fmt.Errorf("moving %s into place: %w", best.nameInArchive, err))
	}

	logger.Debug("extracted media from bundle",
		zap.String("entry", best.nameInArchive),
		zap.Int64("size", best.size),
		zap.Int("entries", len(entries)),
		zap.String("final_path", finalPath))

	return finalPath, nil
}

// extractZip writes all regular files of the zip archive at zipPath into
// dir, in archive order. Entries whose names would escape dir are skipped.
func (f *Fetcher) extractZip(ctx context.Context, zipPath, dir string) ([]bundleEntry, error) {
	file, err := os.Open(zipPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []bundleEntry
	err = archives.Zip{}.Extract(ctx, file, func(_ context.Context, info archives.FileInfo) error {
		if !info.Mode().IsRegular() {
			return nil
		}
		name := filepath.FromSlash(info.NameInArchive)
		if !filepath.IsLocal(name) {
			f.logger().Warn("skipping unsafe bundle entry", zap.String("name", info.NameInArchive))
			return nil
		}

		target := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
			return err
		}
		n, err := copyEntry(info, target)
		if err != nil {
			return fmt.Errorf("%s: %w", info.NameInArchive, err)
		}

		entries = append(entries, bundleEntry{
			nameInArchive: info.NameInArchive,
			path:          target,
			size:          n,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func copyEntry(info archives.FileInfo, target string) (int64, error) {
	src, err := info.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

// selectCandidate chooses the bundle entry that is most likely the
// media itself: the largest .mp4 if there is one, otherwise the largest
// .jpg or .jpeg. On equal sizes, the entry that comes first in the
// archive wins.
func selectCandidate(entries []bundleEntry) (bundleEntry, bool) {
	for _, class := range []mediaClass{classVideo, classImage} {
		var best bundleEntry
		var found bool
		for _, e := range entries {
			if classOf(e.ext()) != class {
				continue
			}
			if !found || e.size > best.size {
				best, found = e, true
			}
		}
		if found {
			return best, true
		}
	}
	return bundleEntry{}, false
}

// adjustExtension returns dest with its extension replaced by ext if
// the two extensions denote different kinds of media.
func adjustExtension(dest, ext string) string {
	destExt := filepath.Ext(dest)
	if classOf(strings.ToLower(destExt)) == classOf(ext) {
		return dest
	}
	return strings.TrimSuffix(dest, destExt) + ext
}

// salvage keeps the raw archive at salvagePath for manual recovery and
// returns the error that explains why.
func salvage(zipPath, salvagePath string, cause error) error {
	if err := replaceFile(zipPath, salvagePath); err != nil {
		return &export.ZipRecoveryError{Err: errors.Join(cause, fmt.Errorf("keeping archive: %w", err))}
	}
	return &export.ZipRecoveryError{SalvagePath: salvagePath, Err: cause}
}

type mediaClass int

const (
	classOther mediaClass = iota
	classImage
	classVideo
)

// classOf classifies a lower-case file extension.
func classOf(ext string) mediaClass {
	switch ext {
	case ".mp4":
		return classVideo
	case ".jpg", ".jpeg":
		return classImage
	}
	return classOther
}

// scratchDirName is the name of the directory, next to the output
// file, that bundles are extracted into.
const scratchDirName = ".savedmedia-extract"
