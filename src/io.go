package mmdvm

/*------------------------------------------------------------------
 *
 * Purpose:   	Top level of the SDR I/O path.
 *
 * Description:	One iteration of the block loop reads an I/Q block
 *		from the transport, runs it through the FDUDC with the
 *		FM modem as the per-sample hook, and writes the same
 *		buffer back out as the transmit signal.  Transports are
 *		a SoapySDR device (with or without hardware timestamps)
 *		and a file-backed simulation used for testing.
 *
 *		Latency bookkeeping: the delay from producing a TX
 *		sample to observing it back on the RX side is the queued
 *		block budget converted to the 24 kHz modem rate plus the
 *		resampler's filter delay.  On timestamped transports the
 *		budget is enforced by scheduling each TX block at its RX
 *		timestamp plus latencyNs; on untimed ones by pre-filling
 *		the TX queue with zero blocks.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

/* Per-driver constants.  The SDR sample rate is 24000 * resampDen / resampNum. */

type driverParams struct {
	resampNum   int
	resampDen   int
	blockSize   int
	timestamped bool
	/* IF as a fraction of the SDR sample rate.  The SDR is tuned this
	 * far below the carrier so the wanted signal never sits on the
	 * hardware's DC spur. */
	ifNum, ifDen int
	/* SoapySDR device arguments; nil for the file transport. */
	soapyArgs map[string]string
	rxAntenna string
	txAntenna string
}

func driverTable(name string) (driverParams, error) {
	switch name {
	case "file":
		return driverParams{
			resampNum: 1, resampDen: 1,
			blockSize: 96,
			ifNum:     0, ifDen: 1,
		}, nil
	case "limesdr":
		return driverParams{
			resampNum: 2, resampDen: 25,
			blockSize:   1024,
			timestamped: true,
			ifNum:       1, ifDen: 24,
			soapyArgs: map[string]string{"driver": "lime"},
			rxAntenna: "LNAL",
			txAntenna: "BAND1",
		}, nil
	case "sxxcvr":
		return driverParams{
			resampNum: 4, resampDen: 25,
			blockSize: 512,
			ifNum:     1, ifDen: 24,
			soapyArgs: map[string]string{"driver": "sxxcvr"},
		}, nil
	default:
		return driverParams{}, fmt.Errorf("unknown driver %q", name)
	}
}

type IO struct {
	cfg     *Config
	running *atomic.Bool

	params     driverParams
	sampleRate float64

	/* Round-trip budget: in nanoseconds at the SDR rate, and in
	 * samples at the 24 kHz modem rate. */
	latencyNs        int64
	latencyFmSamples int

	fdudc   *FDUDC
	fm      *FMModem
	monitor *Monitor
	lines   *OutputLines

	rxRing   *RingBuffer[TSample]
	txRing   *RingBuffer[TSample]
	rssiRing *RingBuffer[uint16]

	/* Current I/Q block, reused every iteration. */
	buffer []complex64

	file *fileTransport
	sdr  *soapyTransport

	streamsOn bool
}

func NewIO(cfg *Config, running *atomic.Bool) *IO {
	return &IO{
		cfg:      cfg,
		running:  running,
		rxRing:   NewRingBuffer[TSample](RX_RINGBUFFER_SIZE),
		txRing:   NewRingBuffer[TSample](TX_RINGBUFFER_SIZE),
		rssiRing: NewRingBuffer[uint16](RX_RINGBUFFER_SIZE),
	}
}

/* The demodulators own the far ends of these. */

func (io *IO) RXRing() *RingBuffer[TSample]  { return io.rxRing }
func (io *IO) TXRing() *RingBuffer[TSample]  { return io.txRing }
func (io *IO) RSSIRing() *RingBuffer[uint16] { return io.rssiRing }

/*-------------------------------------------------------------------
 *
 * Name:	InitInt
 *
 * Purpose:	Allocate the whole streaming path and open the
 *		transport.  Any failure here is not recoverable within
 *		this run: it is logged and the running flag cleared.
 *
 *---------------------------------------------------------------*/

func (io *IO) InitInt() {
	if err := io.initInt(); err != nil {
		logger.Error("I/O initialisation failed", "error", err)
		io.running.Store(false)
	}
}

func (io *IO) initInt() error {
	var params, err = driverTable(io.cfg.Driver)
	if err != nil {
		return err
	}
	io.params = params
	io.sampleRate = 24000.0 * float64(params.resampDen) / float64(params.resampNum)

	io.fdudc, err = NewFDUDC(
		params.resampNum, params.resampDen,
		params.ifNum, params.ifDen,
		params.ifNum, params.ifDen,
		io.cfg.FilterLength, io.cfg.FilterCutoff)
	if err != nil {
		return err
	}

	var latencySamples = params.blockSize * io.cfg.LatencyBlocks
	io.latencyNs = int64(float64(latencySamples) / io.sampleRate * 1e9)
	io.latencyFmSamples = latencySamples*params.resampNum/params.resampDen + io.fdudc.Delay()

	if io.cfg.Monitor {
		io.monitor, err = NewMonitor(io.cfg.MonitorEndpoint)
		if err != nil {
			// The visualiser is advisory; run without it.
			logger.Error("Observation channel unavailable", "error", err)
			io.monitor = nil
		}
	}

	io.fm = NewFMModem(io.txRing, io.rxRing, io.rssiRing, io.latencyFmSamples, io.monitor)
	io.buffer = make([]complex64, params.blockSize)
	io.lines = OpenOutputLines(io.cfg)

	InstallSignalHandlers(io.running)
	io.setRealtime()

	if params.soapyArgs == nil {
		io.file, err = openFileTransport(FILE_TX_IQ_OUTPUT)
		if err != nil {
			return err
		}
	} else {
		io.sdr, err = openSoapy(soapyConfig{
			args:       params.soapyArgs,
			sampleRate: io.sampleRate,
			rxCentre:   io.cfg.RXFrequency - io.sampleRate*float64(params.ifNum)/float64(params.ifDen),
			txCentre:   io.cfg.TXFrequency - io.sampleRate*float64(params.ifNum)/float64(params.ifDen),
			rxGain:     io.cfg.RXGain,
			txGain:     io.cfg.TXGain,
			rxAntenna:  params.rxAntenna,
			txAntenna:  params.txAntenna,
		})
		if err != nil {
			return err
		}
	}

	logger.Info("I/O ready",
		"driver", io.cfg.Driver,
		"sampleRate", io.sampleRate,
		"blockSize", params.blockSize,
		"latencyNs", io.latencyNs,
		"latencyFmSamples", io.latencyFmSamples)
	return nil
}

// setRealtime asks for round-robin real-time scheduling so block
// deadlines are met.  Needs CAP_SYS_NICE; refusal is survivable.
func (io *IO) setRealtime() {
	var attr = unix.SchedAttr{
		Size:     unix.SizeofSchedAttr,
		Policy:   unix.SCHED_RR,
		Priority: 20,
	}
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		logger.Warn("Could not set real-time scheduling", "error", err)
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	ProcessInt
 *
 * Purpose:	One iteration of the block loop.  Called repeatedly
 *		from the main loop, alternating with the host protocol.
 *
 *---------------------------------------------------------------*/

func (io *IO) ProcessInt() {
	if io.file != nil {
		io.processFile()
		return
	}
	if io.sdr != nil {
		io.processSDR()
	}
}

// processIqBlock runs the DDC, modem and DUC over one block in place,
// then flushes the block's observation records.
func (io *IO) processIqBlock(buffer []complex64) {
	io.fdudc.Process(buffer, io.fm.ProcessSample)
	if io.monitor != nil {
		io.monitor.Send()
	}
}

func (io *IO) processSDR() {
	if !io.streamsOn {
		if err := io.sdr.activate(); err != nil {
			logger.Error("Could not activate SDR streams", "error", err)
			return
		}
		if !io.params.timestamped {
			// Establish the latency budget by queueing silence.
			// Timestamped transports schedule each block instead.
			for i := range io.buffer {
				io.buffer[i] = 0
			}
			for b := 0; b < io.cfg.LatencyBlocks; b++ {
				if _, err := io.sdr.write(io.buffer, 0, false); err != nil {
					logger.Error("Could not pre-fill TX queue", "error", err)
					return
				}
			}
		}
		io.streamsOn = true
	}

	var n, rxTimeNs, err = io.sdr.read(io.buffer)
	if err != nil || n <= 0 {
		logger.Error("SDR read failed", "read", n, "error", err)
		io.recoverStreams()
		return
	}

	io.processIqBlock(io.buffer[:n])

	var written int
	var werr error
	if io.params.timestamped {
		written, werr = io.sdr.write(io.buffer[:n], rxTimeNs+io.latencyNs, true)
	} else {
		written, werr = io.sdr.write(io.buffer[:n], 0, false)
	}
	if werr != nil || written <= 0 {
		logger.Error("SDR write failed", "written", written, "error", werr)
		io.recoverStreams()
	}
}

// recoverStreams tears both streams down; the next iteration brings
// them back up.  Sample continuity across the gap is lost.
func (io *IO) recoverStreams() {
	io.sdr.deactivate()
	io.streamsOn = false
	logger.Info("SDR streams deactivated, will reactivate")
}

func (io *IO) ExitInt() {
	if io.sdr != nil {
		if io.streamsOn {
			io.sdr.deactivate()
			io.streamsOn = false
		}
		io.sdr.close()
		io.sdr = nil
	}
	if io.file != nil {
		io.file.close()
		io.file = nil
	}
	if io.monitor != nil {
		io.monitor.Close()
		io.monitor = nil
	}
	if io.lines != nil {
		io.lines.Close()
		io.lines = nil
	}
}

/* Lines and identity, straight from the firmware's Linux build. */

func (io *IO) GetCOSInt() bool {
	return false
}

func (io *IO) SetLEDInt(on bool) {
	logger.Debug("LED", "on", on)
	if io.lines != nil {
		io.lines.SetLED(on)
	}
}

func (io *IO) SetPTTInt(on bool) {
	logger.Debug("PTT", "on", on)
	if io.lines != nil {
		io.lines.SetPTT(on)
	}
}

func (io *IO) SetCOSInt(on bool) {
	logger.Debug("COS", "on", on)
}

// GetCPU returns the protocol's identifier for the Linux build.
func (io *IO) GetCPU() uint8 {
	return 3
}

func (io *IO) GetUDID() [16]byte {
	return [16]byte{}
}

func (io *IO) DelayInt(ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
