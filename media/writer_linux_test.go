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
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/timelinize/savedmedia/internal/testhelpers"
	"go.uber.org/zap"
)

func TestWriterSetsAccessTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "20250518_011750_0.bin")
	testhelpers.WriteFile(t, path, testhelpers.Filler(10))
	date := time.Date(2010, 10, 10, 10, 10, 10, 0, time.UTC)

	w := &Writer{Logger: zap.NewNop()}
	if warnings := w.Apply(context.Background(), path, testRecord(date, nil)); len(warnings) > 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		t.Skip("no stat_t available")
	}
	atime := time.Unix(st.Atim.Sec, st.Atim.Nsec)
	if !atime.Equal(date) {
		t.Errorf("expected access time %s but got %s", date, atime.UTC())
	}
}
