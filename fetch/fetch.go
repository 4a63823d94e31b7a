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

// Package fetch downloads media referenced by a manifest and unwraps
// responses that arrive as zip bundles.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/timelinize/savedmedia/export"
	"go.uber.org/zap"
)

// Fetcher downloads media over HTTP. It implements export.Fetcher.
// The zero value is usable and uses a client with DefaultTimeout.
type Fetcher struct {
	// Client is used for requests. Its Timeout bounds each
	// request, including reading the body.
	Client *http.Client

	Logger *zap.Logger
}

// New returns a Fetcher whose requests go through rt (which may be nil
// for http.DefaultTransport) and time out after timeout.
func New(rt http.RoundTripper, timeout time.Duration, logger *zap.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		Client: &http.Client{Transport: rt, Timeout: timeout},
		Logger: logger,
	}
}

// Fetch downloads url to dest. The body is first written to a temporary
// file next to dest; only once it is known to be media is it moved into
// place. HTML responses (an expired link, usually) are rejected, and zip
// bundles are unpacked so that the best media file inside ends up at
// dest, possibly with a different extension.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string) (export.FetchResult, error) {
	var res export.FetchResult
	logger := f.logger().With(zap.String("url", export.RedactURL(url)), zap.String("dest", dest))

	tmpPath := dest + tempSuffix
	defer func() {
		// no-op once the temp file has been moved elsewhere
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("could not remove temporary download", zap.String("path", tmpPath), zap.Error(err))
		}
	}()

	n, err := f.download(ctx, url, tmpPath)
	if err != nil {
		return res, err
	}
	logger.Debug("downloaded response body", zap.String("size", humanize.Bytes(uint64(n))))

	head, err := readHead(tmpPath, sniffLen)
	if err != nil {
		return res, fmt.Errorf("inspecting download: %w", err)
	}

	switch {
	case isHTML(head):
		return res, &export.DownloadError{URL: url, Err: export.ErrHTMLResponse}

	case isZip(head):
		res.Bundled = true
		finalPath, err := f.unbundle(ctx, tmpPath, dest)
		if err != nil {
			var zerr *export.ZipRecoveryError
			if errors.As(err, &zerr) {
				res.SalvagePath = zerr.SalvagePath
			}
			return res, err
		}
		res.Path = finalPath

	default:
		if err := replaceFile(tmpPath, dest); err != nil {
			return res, fmt.Errorf("moving download into place: %w", err)
		}
		res.Path = dest
	}

	info, err := os.Stat(res.Path)
	if err != nil {
		return res, err
	}
	res.Size = info.Size()

	mtype, err := mimetype.DetectFile(res.Path)
	if err != nil {
		logger.Warn("could not detect content type", zap.Error(err))
	} else {
		res.MIME = mtype.String()
		if !knownMediaType(mtype) {
			res.Warnings = append(res.Warnings, export.ValidationWarning{Path: res.Path, MIME: res.MIME})
		}
	}

	return res, nil
}

// download streams the body of url into a new file at path and returns
// the number of bytes written. On error, the file is removed.
func (f *Fetcher) download(ctx context.Context, url, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &export.DownloadError{URL: url, Err: err}
	}

	resp, err := f.client().Do(req)
	if err != nil {
		return 0, &export.DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &export.DownloadError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating temporary file: %w", err)
	}

	// hide ReaderFrom/WriterTo so the copy really goes through our buffer
	buf := make([]byte, chunkSize)
	n, err := io.CopyBuffer(struct{ io.Writer }{out}, struct{ io.Reader }{resp.Body}, buf)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return n, &export.DownloadError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	return n, nil
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return defaultClient
}

func (f *Fetcher) logger() *zap.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return export.Log.Named("fetch")
}

// readHead returns up to n bytes from the start of the file.
func readHead(path string, n int) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:read], nil
}

// isHTML returns true if head looks like the start of an HTML document.
func isHTML(head []byte) bool {
	head = bytes.TrimPrefix(head, []byte("\xef\xbb\xbf"))
	head = bytes.TrimLeft(head, " \t\r\n")
	if len(head) > len("<!doctype") {
		head = head[:len("<!doctype")]
	}
	lower := strings.ToLower(string(head))
	return strings.HasPrefix(lower, "<!doc") || strings.HasPrefix(lower, "<html")
}

// isZip returns true if head starts with a zip local file header.
func isZip(head []byte) bool {
	return bytes.HasPrefix(head, zipSignature)
}

// knownMediaType returns true for content we consider valid media.
func knownMediaType(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") || strings.HasPrefix(m.String(), "video/") {
			return true
		}
	}
	return false
}

// replaceFile moves src to dst, removing whatever was at dst first.
func replaceFile(src, dst string) error {
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.Rename(src, dst)
}

// DefaultTimeout bounds a single media request.
const DefaultTimeout = 30 * time.Second

const (
	chunkSize  = 8 * 1024
	sniffLen   = 512
	tempSuffix = ".tmp"
)

var zipSignature = []byte{0x50, 0x4B, 0x03, 0x04}

var defaultClient = &http.Client{Timeout: DefaultTimeout}
