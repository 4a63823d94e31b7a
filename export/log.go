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
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the main process log. All named logs should be derivatives of
// this logger. All log emissions should be sent through this logger or
// one of its derivatives.
var Log = newLogger(os.Stderr, false)

// logLevel is shared by every logger built with newLogger so that the
// level can be changed after Log has been handed out to packages.
var logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)

// ConfigureLog replaces Log with a logger at the given level, writing
// JSON instead of console output if jsonOutput is true. It should be
// called once, early, before any named loggers are derived.
func ConfigureLog(level string, jsonOutput bool) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	logLevel.SetLevel(lvl)
	Log = newLogger(os.Stderr, jsonOutput)
	return nil
}

// newLogger returns a logger that writes to w with a console encoder,
// or a JSON encoder if jsonOutput is true. Colored levels are only
// used when w is a terminal.
func newLogger(w io.Writer, jsonOutput bool) *zap.Logger {
	out := zapcore.Lock(zapcore.AddSync(w))

	var enc zapcore.Encoder
	if jsonOutput {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
			encoder.AppendString(ts.UTC().Format("2006/01/02 15:04:05.000"))
		}
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, out, logLevel)

	// avoid a firehose of logs
	const firstNMsgs, everyNthMsg = 10, 100
	core = zapcore.NewSamplerWithOptions(core, time.Second, firstNMsgs, everyNthMsg)

	return zap.New(&customCore{core})
}

// customCore wraps another zapcore.Core and prevents sampling based on logger name.
type customCore struct {
	zapcore.Core
}

func (c *customCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.LoggerName == itemLoggerName || strings.HasSuffix(ent.LoggerName, "."+itemLoggerName) {
		// one line per manifest record; dropping any of them would hide failures
		if c.Enabled(ent.Level) {
			return ce.AddCore(ent, c)
		}
		return ce
	}
	return c.Core.Check(ent, ce)
}

func (c *customCore) With(fields []zapcore.Field) zapcore.Core {
	return &customCore{c.Core.With(fields)}
}

const itemLoggerName = "item"
