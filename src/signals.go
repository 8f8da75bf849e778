package mmdvm

/*------------------------------------------------------------------
 *
 * Purpose:   	Turn termination signals into a cleared running flag.
 *
 * Description:	The main loop polls the flag once per iteration and
 *		shuts the I/O down at the next block boundary.  A signal
 *		arriving during a blocking SDR call interrupts it at the
 *		OS level; the block loop tolerates the resulting short
 *		read or write and goes straight to exit.
 *
 *---------------------------------------------------------------*/

import (
	"os"
	"os/signal"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// InstallSignalHandlers clears running on any of the usual
// termination signals.
func InstallSignalHandlers(running *atomic.Bool) {
	var sigs = make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGHUP, unix.SIGINT, unix.SIGQUIT, unix.SIGTERM, unix.SIGPIPE)

	go func() {
		for sig := range sigs {
			logger.Info("Caught signal, stopping", "signal", sig)
			running.Store(false)
		}
	}()
}
