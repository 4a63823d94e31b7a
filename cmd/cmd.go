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

// Package smcmd facilitates the command line interface (CLI)
// and implements the main().
package smcmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/timelinize/savedmedia/export"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// Main runs the program with the process arguments and exits with a
// non-zero status on failure.
func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		export.Log.Error("savedmedia failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	var logCfg logFlags

	return &cli.Command{
		Name:      "savedmedia",
		Usage:     "download saved media from an export manifest and restore capture metadata",
		ArgsUsage: "[MANIFEST]",
		Version:   version,
		Flags:     append(logCfg.Flags(), downloadFlags()...),
		Before: func(ctx context.Context, _ *cli.Command) (context.Context, error) {
			if err := export.ConfigureLog(logCfg.Level, logCfg.JSON); err != nil {
				return ctx, fmt.Errorf("configuring log: %w", err)
			}
			export.Log = export.Log.With(zap.String("run_id", uuid.NewString()))
			return ctx, nil
		},
		Action: runDownload,
		Commands: []*cli.Command{
			cmdInspect(),
		},
	}
}

// logFlags holds the logging configuration.
type logFlags struct {
	Level string
	JSON  bool
}

func (c *logFlags) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &c.Level,
			Sources:     cli.EnvVars("SAVEDMEDIA_LOG_LEVEL"),
		},
		&cli.BoolFlag{
			Name:        "log-json",
			Usage:       "write logs as JSON",
			Destination: &c.JSON,
			Sources:     cli.EnvVars("SAVEDMEDIA_LOG_JSON"),
		},
	}
}

// set at build time with -ldflags
var version = "dev"
