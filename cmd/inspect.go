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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/maruel/natural"
	"github.com/mitchellh/go-homedir"
	"github.com/timelinize/savedmedia/export"
	"github.com/timelinize/savedmedia/media"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func cmdInspect() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "show the capture date and location embedded in files",
		ArgsUsage: "PATH...",
		Action: func(_ context.Context, c *cli.Command) error {
			if c.NArg() == 0 {
				return errors.New("no files or folders given")
			}
			paths, err := inspectTargets(c.Args().Slice())
			if err != nil {
				return err
			}
			for _, path := range paths {
				in, err := media.Inspect(path)
				if err != nil {
					export.Log.Named("inspect").Warn("could not read metadata",
						zap.String("path", path),
						zap.Error(err))
				}
				fmt.Fprintln(c.Root().Writer, in)
			}
			return nil
		},
	}
}

// inspectTargets expands the arguments into a list of files: folders
// contribute their regular files in natural order ("2_x" before "10_x").
func inspectTargets(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		arg, err := homedir.Expand(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var names []string
		for _, entry := range entries {
			if entry.Type().IsRegular() {
				names = append(names, entry.Name())
			}
		}
		sort.Slice(names, func(i, j int) bool {
			return natural.Less(names[i], names[j])
		})
		for _, name := range names {
			paths = append(paths, filepath.Join(arg, name))
		}
	}
	return paths, nil
}
