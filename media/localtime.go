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
	"fmt"
	"time"

	"github.com/ringsaturn/tzf"
	"github.com/timelinize/savedmedia/export"

	// zone lookups must not depend on the host having tzdata installed
	_ "time/tzdata"
)

// ZoneFinder looks up the time zone at a location.
type ZoneFinder struct {
	finder tzf.F
}

// NewZoneFinder loads the time zone boundary data. It takes a moment
// and a fair amount of memory, so it should be done once per run.
func NewZoneFinder() (*ZoneFinder, error) {
	finder, err := tzf.NewDefaultFinder()
	if err != nil {
		return nil, fmt.Errorf("loading time zone data: %w", err)
	}
	return &ZoneFinder{finder: finder}, nil
}

// ZoneName returns the IANA name of the time zone at loc, or "" if
// it is unknown (in the middle of the ocean, for example).
func (z *ZoneFinder) ZoneName(loc export.Location) string {
	return z.finder.GetTimezoneName(loc.Longitude, loc.Latitude)
}

// LocalTime returns t in the time zone at loc. It returns false if the
// zone could not be determined.
func (z *ZoneFinder) LocalTime(t time.Time, loc export.Location) (time.Time, bool) {
	name := z.ZoneName(loc)
	if name == "" {
		return t, false
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return t, false
	}
	return t.In(tz), true
}
