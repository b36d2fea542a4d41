// Package logging configures the process-wide structured logger. Call sites
// across the server log the fixed action/result shape mandated for this
// system (e.g. "action: sorteo | result: success") via
// github.com/op/go-logging.
package logging

import (
	"io"
	"os"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("lotteryd")

// L returns the process-wide logger.
func L() *logging.Logger { return log }

// Configure installs a backend at the given level ("DEBUG", "INFO",
// "WARNING", "ERROR", "CRITICAL"), writing to w (stderr if nil). format
// selects between a colorized terminal layout and a plain one suited to
// non-tty log collectors.
func Configure(levelName, format string, w io.Writer) error {
	if w == nil {
		w = os.Stderr
	}
	level, err := logging.LogLevel(levelName)
	if err != nil {
		return err
	}

	layout := plainFormat
	if format == "color" {
		layout = colorFormat
	}

	backend := logging.NewLogBackend(w, "", 0)
	formatted := logging.NewBackendFormatter(backend, logging.MustStringFormatter(layout))
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
	return nil
}

const plainFormat = `%{time:2006-01-02 15:04:05,000} %{level:.5s} %{message}`
const colorFormat = `%{color}%{time:2006-01-02 15:04:05,000} %{level:.5s}%{color:reset} %{message}`
