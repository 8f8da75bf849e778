package mmdvm

/*------------------------------------------------------------------
 *
 * Purpose:   	File-backed simulation transport.
 *
 * Description:	Runs the whole TX path against no hardware at all: each
 *		iteration up-converts whatever the modem has queued, on
 *		top of a silent RX block, appends the I/Q result to a
 *		raw file, and sleeps one block's worth of wall clock to
 *		imitate real-time pacing.  The output is interleaved
 *		little-endian float32 I and Q at the SDR sample rate,
 *		readable by the usual inspection tools.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"
)

const FILE_TX_IQ_OUTPUT = "mmdvm_tx_iq_output.raw"

type fileTransport struct {
	f   *os.File
	raw []byte
}

func openFileTransport(path string) (*fileTransport, error) {
	var f, err = os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("file transport: %w", err)
	}
	return &fileTransport{f: f}, nil
}

func (t *fileTransport) writeBlock(buffer []complex64) error {
	var need = len(buffer) * 8
	if cap(t.raw) < need {
		t.raw = make([]byte, need)
	}
	var raw = t.raw[:need]
	for i, s := range buffer {
		binary.LittleEndian.PutUint32(raw[8*i:], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(raw[8*i+4:], math.Float32bits(imag(s)))
	}
	var _, err = t.f.Write(raw)
	return err
}

func (t *fileTransport) close() {
	t.f.Close()
}

func (io *IO) processFile() {
	for i := range io.buffer {
		io.buffer[i] = 0
	}
	io.processIqBlock(io.buffer)

	if err := io.file.writeBlock(io.buffer); err != nil {
		logger.Error("Could not write I/Q output file", "error", err)
		io.running.Store(false)
		return
	}

	/* Pace at the 24 kHz modem rate (file mode resamples 1:1). */
	time.Sleep(time.Duration(io.params.blockSize) * time.Second / 24000)
}
