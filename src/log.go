package mmdvm

/*------------------------------------------------------------------
 *
 * Purpose:   	Console and file logging.
 *
 * Description:	Replaces the firmware's LOGCONSOLE, which printed
 *		timestamped lines to stdout.  Optionally mirrors into
 *		daily-named log files.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: true,
	TimeFormat:      "2006-01-02 15:04:05.000",
})

// Logger returns the shared package logger.
func Logger() *charmlog.Logger {
	return logger
}

// OpenLogDir mirrors the log into dir with one file per day,
// named like mmdvm-2023-06-18.log.
func OpenLogDir(dir string) error {
	var name, err = strftime.Format("mmdvm-%Y-%m-%d.log", time.Now())
	if err != nil {
		return fmt.Errorf("log: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("log: %w", err)
	}

	logger.SetOutput(io.MultiWriter(os.Stderr, f))
	return nil
}
