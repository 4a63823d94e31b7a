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
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/timelinize/savedmedia/export"
)

// reporter prints one status line per record and a final summary for
// the person watching the terminal. Details go to the log.
type reporter struct {
	w io.Writer

	ok, warn, fail *color.Color
}

func newReporter(w io.Writer) *reporter {
	return &reporter{
		w:    w,
		ok:   color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		fail: color.New(color.FgHiRed, color.Bold),
	}
}

func (r *reporter) item(res export.ItemResult) {
	prefix := fmt.Sprintf("[%*d/%d]", digits(res.Total), res.Record.Index, res.Total)

	switch res.Status {
	case export.StatusDone:
		c := r.ok
		note := ""
		if len(res.Warnings) > 0 {
			c = r.warn
			note = fmt.Sprintf(" (%d warning%s)", len(res.Warnings), plural(len(res.Warnings)))
		}
		c.Fprintf(r.w, "%s %s %s%s\n", prefix, filepath.Base(res.Path), humanize.Bytes(uint64(max(res.Size, 0))), note)
	case export.StatusExisting:
		r.warn.Fprintf(r.w, "%s %s already exists\n", prefix, filepath.Base(res.Path))
	case export.StatusSkipped:
		r.warn.Fprintf(r.w, "%s skipped: %v\n", prefix, res.Err)
	case export.StatusSalvaged:
		r.fail.Fprintf(r.w, "%s %v\n", prefix, res.Err)
	case export.StatusFailed:
		r.fail.Fprintf(r.w, "%s failed: %v\n", prefix, res.Err)
	}
}

func (r *reporter) summary(s export.Summary, elapsed time.Duration) {
	c := r.ok
	if s.Failed > 0 || s.Salvaged > 0 {
		c = r.fail
	} else if s.Warnings > 0 || s.Skipped > 0 {
		c = r.warn
	}
	c.Fprintf(r.w, "%d of %d saved (%s) in %s: %d failed, %d salvaged as zip, %d skipped, %d already present, %d warning%s\n",
		s.Done, s.Total, humanize.Bytes(uint64(max(s.Bytes, 0))), elapsed.Round(time.Second),
		s.Failed, s.Salvaged, s.Skipped, s.Existing, s.Warnings, plural(s.Warnings))
}

func digits(n int) int {
	return len(fmt.Sprint(n))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
