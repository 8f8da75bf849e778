package mmdvm

/*------------------------------------------------------------------
 *
 * Purpose:   	Serial port for the host protocol, without a physical
 *		UART.
 *
 * Description:	The host-side software talks the modem protocol over
 *		what it believes is a serial port.  On Linux we allocate
 *		a pseudoterminal, configure the line raw at 460800 8N1,
 *		and keep a fixed symlink pointing at whichever pts the
 *		kernel handed out, so the host side has a stable path to
 *		open.  A real UART can be used instead by configuring
 *		SerialDevice.
 *
 *		Only port 1, the host port, exists here.  Writes to the
 *		other port numbers the firmware knows about are no-ops.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"github.com/creack/pty"
	"github.com/pkg/term"
	"golang.org/x/sys/unix"
)

const SERIAL_SYMLINK = "/tmp/MMDVM_PTS"

const SERIAL_BAUDRATE = 460800

type SerialPort struct {
	cfg *Config

	/* Pseudoterminal pair.  The slave is held open so the pty does
	 * not go away between host connections. */
	master *os.File
	slave  *os.File

	/* Real UART alternative. */
	uart *term.Term

	symlink string
}

func NewSerialPort(cfg *Config) *SerialPort {
	return &SerialPort{cfg: cfg}
}

/*-------------------------------------------------------------------
 *
 * Name:	BeginInt
 *
 * Purpose:	Open the numbered port.  Port 1 is the host port; the
 *		others are not implemented on Linux and are ignored.
 *
 * Description:	Failure leaves the host port unavailable but is not
 *		fatal to the modem, so this only logs.
 *
 *---------------------------------------------------------------*/

func (sp *SerialPort) BeginInt(n uint8, speed int) {
	if n != 1 {
		return
	}

	if sp.cfg.SerialDevice != "" {
		var t, err = term.Open(sp.cfg.SerialDevice, term.Speed(speed), term.RawMode)
		if err != nil {
			logger.Error("Could not open serial device", "device", sp.cfg.SerialDevice, "error", err)
			return
		}
		sp.uart = t
		logger.Info("Host port on serial device", "device", sp.cfg.SerialDevice)
		return
	}

	var master, slave, err = pty.Open()
	if err != nil {
		logger.Error("Could not allocate a pseudoterminal", "error", err)
		return
	}

	if err := configureRaw(master, SERIAL_BAUDRATE); err != nil {
		logger.Error("Could not configure pseudoterminal", "error", err)
		master.Close()
		slave.Close()
		return
	}

	sp.symlink = sp.cfg.SerialSymlink
	if sp.symlink == "" {
		sp.symlink = SERIAL_SYMLINK
	}

	// Replace a symlink left over from an earlier run.
	os.Remove(sp.symlink)
	if err := os.Symlink(slave.Name(), sp.symlink); err != nil {
		logger.Error("Could not create serial port symlink", "path", sp.symlink, "error", err)
		sp.symlink = ""
	}

	sp.master = master
	sp.slave = slave
	logger.Info("Host port on pseudoterminal", "pts", slave.Name(), "symlink", sp.symlink)
}

// configureRaw sets the line raw 8N1 at the given speed with VMIN=1,
// VTIME=0 so reads return as soon as one byte is there.
func configureRaw(f *os.File, speed uint32) error {
	var fd = int(f.Fd())
	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("tcgetattr: %w", err)
	}

	var baud = baudFlag(speed)
	tio.Cflag = baud | unix.CS8 | unix.CLOCAL | unix.CREAD
	tio.Iflag = 0
	tio.Oflag = 0
	tio.Lflag = 0
	tio.Cc[unix.VMIN] = 1
	tio.Cc[unix.VTIME] = 0
	tio.Ispeed = baud
	tio.Ospeed = baud

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, tio); err != nil {
		return fmt.Errorf("tcsetattr: %w", err)
	}
	return nil
}

func baudFlag(speed uint32) uint32 {
	switch speed {
	case 115200:
		return unix.B115200
	case 230400:
		return unix.B230400
	case 460800:
		return unix.B460800
	case 921600:
		return unix.B921600
	default:
		return unix.B460800
	}
}

/* AvailableForReadInt returns how many bytes are waiting on the port. */
func (sp *SerialPort) AvailableForReadInt(n uint8) int {
	if n != 1 {
		return 0
	}
	if sp.uart != nil {
		var avail, err = sp.uart.Available()
		if err != nil {
			return 0
		}
		return avail
	}
	if sp.master == nil {
		return 0
	}
	var avail, err = unix.IoctlGetInt(int(sp.master.Fd()), unix.FIONREAD)
	if err != nil {
		return 0
	}
	return avail
}

func (sp *SerialPort) AvailableForWriteInt(n uint8) int {
	// TODO: figure out whether a proper implementation is needed.
	return 100
}

/* ReadInt returns one byte from the port, 0xFF when nothing could be
 * read.  A syscall per byte is not efficient but it is what the
 * protocol parser above expects. */
func (sp *SerialPort) ReadInt(n uint8) uint8 {
	if n != 1 {
		return 0xFF
	}

	var b [1]byte
	if sp.uart != nil {
		if cnt, err := sp.uart.Read(b[:]); err != nil || cnt != 1 {
			return 0xFF
		}
		return b[0]
	}
	if sp.master == nil {
		return 0xFF
	}
	if cnt, err := sp.master.Read(b[:]); err != nil || cnt != 1 {
		return 0xFF
	}
	return b[0]
}

/* WriteInt writes best effort; the host not listening is not an error
 * the modem can do anything about. */
func (sp *SerialPort) WriteInt(n uint8, data []byte) {
	if n != 1 {
		return
	}
	if sp.uart != nil {
		sp.uart.Write(data)
		return
	}
	if sp.master != nil {
		sp.master.Write(data)
	}
}

func (sp *SerialPort) Close() {
	if sp.uart != nil {
		sp.uart.Close()
		sp.uart = nil
	}
	if sp.symlink != "" {
		os.Remove(sp.symlink)
		sp.symlink = ""
	}
	if sp.slave != nil {
		sp.slave.Close()
		sp.slave = nil
	}
	if sp.master != nil {
		sp.master.Close()
		sp.master = nil
	}
}
