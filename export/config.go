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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Config describes how a run is carried out. Values from the config
// file are overridden by command line flags.
type Config struct {
	// The folder downloaded media are written to. Created if
	// it does not exist.
	OutputDir string `json:"output_dir,omitempty"`

	// Upper bound on a single media request, from connecting
	// to reading the last byte of the body.
	DownloadTimeout Duration `json:"download_timeout,omitempty"`

	// Upper bound on one ffmpeg remux.
	RemuxTimeout Duration `json:"remux_timeout,omitempty"`

	// Path to the ffmpeg executable. If empty, ffmpeg is looked
	// up in PATH.
	FFmpegPath string `json:"ffmpeg_path,omitempty"`

	// Quality (1-100) that images are re-encoded with when EXIF
	// metadata is written.
	JPEGQuality int `json:"jpeg_quality,omitempty"`

	// Optional limit on how fast media are requested.
	RateLimit RateLimit `json:"rate_limit,omitempty"`

	// Write EXIF dates in the local time of the photo's
	// location instead of UTC, when a location is known.
	LocalTime bool `json:"local_time,omitempty"`

	// Skip records whose output file already exists.
	SkipExisting bool `json:"skip_existing,omitempty"`
}

// LoadConfig reads the JSON config file at path. A missing file at the
// default location is not an error; the zero Config is returned.
func LoadConfig(path string) (*Config, error) {
	cfgBytes, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == DefaultConfigFilePath() {
			cfg := new(Config)
			cfg.fillDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := new(Config)
	if err := json.Unmarshal(cfgBytes, cfg); err != nil {
		return nil, fmt.Errorf("decoding config file %s: %w", path, err)
	}
	cfg.fillDefaults()
	Log.Named("config").Debug("loaded config file", zap.String("path", path))
	return cfg, nil
}

// Validate returns an error if a config value is out of range.
func (cfg *Config) Validate() error {
	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", cfg.JPEGQuality)
	}
	if cfg.DownloadTimeout < 0 || cfg.RemuxTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if cfg.RateLimit.RequestsPerHour < 0 || cfg.RateLimit.BurstSize < 0 {
		return errors.New("rate limit values must not be negative")
	}
	return nil
}

func (cfg *Config) fillDefaults() {
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.DownloadTimeout == 0 {
		cfg.DownloadTimeout = Duration(DefaultDownloadTimeout)
	}
	if cfg.RemuxTimeout == 0 {
		cfg.RemuxTimeout = Duration(DefaultRemuxTimeout)
	}
	if cfg.JPEGQuality == 0 {
		cfg.JPEGQuality = DefaultJPEGQuality
	}
}

// DefaultConfigFilePath returns the file path where
// configuration is read from by default.
func DefaultConfigFilePath() string {
	cfgDir, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(cfgDir, "savedmedia", "config.json")
	}
	cfgDir, err = os.UserHomeDir()
	if err == nil {
		return filepath.Join(cfgDir, ".savedmedia", "config.json")
	}
	return filepath.Join(".savedmedia", "config.json")
}

// Defaults.
const (
	DefaultOutputDir       = "downloads"
	DefaultManifestPath    = "memories_json/memories_history.json"
	DefaultDownloadTimeout = 30 * time.Second
	DefaultRemuxTimeout    = 10 * time.Minute
	DefaultJPEGQuality     = 95
)

// Duration is a time.Duration that is encoded in JSON as a
// string like "30s". Plain numbers are read as seconds.
type Duration time.Duration

// UnmarshalJSON satisfies json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty duration")
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		dur, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(dur)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\" or a number of seconds: %w", err)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// MarshalJSON satisfies json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
