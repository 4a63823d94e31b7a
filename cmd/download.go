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
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/timelinize/savedmedia/export"
	"github.com/timelinize/savedmedia/fetch"
	"github.com/timelinize/savedmedia/media"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// downloadFlags returns the flags of the default (download) action.
func downloadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "path to a JSON config file",
			Value:   export.DefaultConfigFilePath(),
			Sources: cli.EnvVars("SAVEDMEDIA_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "folder to save media to (default \"" + export.DefaultOutputDir + "\")",
			Sources: cli.EnvVars("SAVEDMEDIA_OUTPUT"),
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "time limit for each download",
			Value:   export.DefaultDownloadTimeout,
			Sources: cli.EnvVars("SAVEDMEDIA_TIMEOUT"),
		},
		&cli.DurationFlag{
			Name:    "remux-timeout",
			Usage:   "time limit for writing metadata into each video",
			Value:   export.DefaultRemuxTimeout,
			Sources: cli.EnvVars("SAVEDMEDIA_REMUX_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:    "ffmpeg",
			Usage:   "path to the ffmpeg executable (default: look up in PATH)",
			Sources: cli.EnvVars("SAVEDMEDIA_FFMPEG"),
		},
		&cli.IntFlag{
			Name:    "jpeg-quality",
			Usage:   "quality (1-100) of images re-encoded to add EXIF",
			Value:   export.DefaultJPEGQuality,
			Sources: cli.EnvVars("SAVEDMEDIA_JPEG_QUALITY"),
		},
		&cli.IntFlag{
			Name:    "rate-limit",
			Usage:   "maximum downloads per hour (0 for no limit)",
			Sources: cli.EnvVars("SAVEDMEDIA_RATE_LIMIT"),
		},
		&cli.IntFlag{
			Name:    "burst",
			Usage:   "downloads allowed in a burst when rate limited",
			Value:   1,
			Sources: cli.EnvVars("SAVEDMEDIA_BURST"),
		},
		&cli.BoolFlag{
			Name:    "local-time",
			Usage:   "write EXIF dates in the local time at the photo's location instead of UTC",
			Sources: cli.EnvVars("SAVEDMEDIA_LOCAL_TIME"),
		},
		&cli.BoolFlag{
			Name:    "skip-existing",
			Usage:   "do not download records whose output file already exists",
			Sources: cli.EnvVars("SAVEDMEDIA_SKIP_EXISTING"),
		},
	}
}

// loadConfig reads the config file named by the --config flag and
// applies flags that were set on top of it.
func loadConfig(c *cli.Command) (*export.Config, error) {
	cfgPath, err := homedir.Expand(c.String("config"))
	if err != nil {
		return nil, err
	}
	cfg, err := export.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	if c.IsSet("output") {
		cfg.OutputDir = c.String("output")
	}
	if c.IsSet("timeout") {
		cfg.DownloadTimeout = export.Duration(c.Duration("timeout"))
	}
	if c.IsSet("remux-timeout") {
		cfg.RemuxTimeout = export.Duration(c.Duration("remux-timeout"))
	}
	if c.IsSet("ffmpeg") {
		cfg.FFmpegPath = c.String("ffmpeg")
	}
	if c.IsSet("jpeg-quality") {
		cfg.JPEGQuality = int(c.Int("jpeg-quality"))
	}
	if c.IsSet("rate-limit") {
		cfg.RateLimit.RequestsPerHour = int(c.Int("rate-limit"))
	}
	if c.IsSet("burst") {
		cfg.RateLimit.BurstSize = int(c.Int("burst"))
	}
	if c.IsSet("local-time") {
		cfg.LocalTime = c.Bool("local-time")
	}
	if c.IsSet("skip-existing") {
		cfg.SkipExisting = c.Bool("skip-existing")
	}

	return cfg, cfg.Validate()
}

func runDownload(ctx context.Context, c *cli.Command) error {
	if c.NArg() > 1 {
		return fmt.Errorf("expected at most one manifest path, got %d arguments", c.NArg())
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	manifestPath := c.Args().First()
	if manifestPath == "" {
		if !interactive() {
			return errors.New("no manifest given; pass the path to memories_history.json")
		}
		if manifestPath, err = promptPath("Path to the export manifest", export.DefaultManifestPath); err != nil {
			return err
		}
		if !c.IsSet("output") {
			if cfg.OutputDir, err = promptPath("Folder to save media to", cfg.OutputDir); err != nil {
				return err
			}
		}
	}
	if manifestPath, err = homedir.Expand(manifestPath); err != nil {
		return err
	}
	if cfg.OutputDir, err = homedir.Expand(cfg.OutputDir); err != nil {
		return err
	}

	if _, err := os.Stat(manifestPath); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("manifest %s does not exist; it is usually in the memories_json folder of the export", manifestPath)
	}

	records, err := export.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	logger := export.Log.Named("download")
	logger.Info("loaded manifest",
		zap.String("path", manifestPath),
		zap.Int("records", len(records)))

	var rt http.RoundTripper
	if cfg.RateLimit.Enabled() {
		limited := export.NewRateLimitedTransport(nil, cfg.RateLimit)
		defer limited.Close()
		rt = limited
	}
	fetcher := fetch.New(rt, time.Duration(cfg.DownloadTimeout), export.Log.Named("fetch"))

	writer, err := newMetadataWriter(cfg)
	if err != nil {
		return err
	}

	report := newReporter(os.Stdout)
	pipeline := &export.Pipeline{
		Fetcher:      fetcher,
		Writer:       writer,
		OutputDir:    cfg.OutputDir,
		SkipExisting: cfg.SkipExisting,
		OnItem:       report.item,
		Logger:       export.Log.Named("pipeline"),
	}

	start := time.Now()
	summary, err := pipeline.Run(ctx, records)
	report.summary(summary, time.Since(start))
	return err
}

func newMetadataWriter(cfg *export.Config) (*media.Writer, error) {
	logger := export.Log.Named("media")

	w := &media.Writer{
		EXIF: media.EXIFWriter{
			Quality: cfg.JPEGQuality,
			Logger:  logger.Named("exif"),
		},
		Logger: logger,
	}

	ff := media.NewFFmpeg(cfg.FFmpegPath, time.Duration(cfg.RemuxTimeout), logger.Named("ffmpeg"))
	if err := ff.Available(); err != nil {
		logger.Warn("videos will only get file timestamps; install ffmpeg to embed date and location", zap.Error(err))
	}
	w.Remuxer = ff

	if cfg.LocalTime {
		zones, err := media.NewZoneFinder()
		if err != nil {
			return nil, err
		}
		w.EXIF.Zones = zones
	}

	return w, nil
}
