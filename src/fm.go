package mmdvm

/*------------------------------------------------------------------
 *
 * Purpose:   	FM modulator and demodulator running inside the FDUDC
 *		hook, one baseband sample per call.
 *
 * Description:	The transmit half turns ring-buffered FM samples into a
 *		constant-envelope complex exponential with a 32-bit NCO
 *		phase accumulator.  The receive half is a single-sample
 *		phase discriminator: the argument of rx * conj(prev_rx),
 *		mapped back onto the 12-bit-centred sample scale.
 *
 *		Control flags stamped on transmitted samples pass through
 *		a delay line matching the SDR round-trip latency and are
 *		copied onto the corresponding received samples, so the
 *		control loop can find its own transmissions in the RX
 *		stream.
 *
 *---------------------------------------------------------------*/

import (
	"math"
	"math/cmplx"
)

/* Zero point of the unsigned 12-bit-range sample scale. */
const DC_OFFSET = 2048

/* Control bits carried alongside each sample.  Opaque to this core. */
const (
	MARK_SLOT1 = 0x08
	MARK_SLOT2 = 0x04
	MARK_NONE  = 0x00
)

// Phase increment per sample unit.  Tuned so DMR deviation comes out
// right at 50 % TX amplitude.
const FM_DEVIATION = 550000

const TX_AMPLITUDE = 0.7

// TSample is one FM sample with its control flags, the unit of exchange
// with the per-mode modulators and demodulators.
type TSample struct {
	Sample  uint16
	Control uint8
}

type FMModem struct {
	// TX NCO phase.  Wraps around, which is intended: the phase is
	// the accumulator read as a fraction of a full turn.
	phase  int32
	prevRX complex64

	txRing   *RingBuffer[TSample]
	rxRing   *RingBuffer[TSample]
	rssiRing *RingBuffer[uint16]
	delay    *DelayBuffer[TSample]

	monitor *Monitor
}

// NewFMModem wires the modem between the sample rings.  latencyFmSamples
// is the round-trip delay, in baseband samples, between producing a TX
// sample and seeing it back on the RX side.  monitor may be nil.
func NewFMModem(txRing, rxRing *RingBuffer[TSample], rssiRing *RingBuffer[uint16], latencyFmSamples int, monitor *Monitor) *FMModem {
	return &FMModem{
		txRing:   txRing,
		rxRing:   rxRing,
		rssiRing: rssiRing,
		delay:    NewDelayBuffer(latencyFmSamples, TSample{Sample: DC_OFFSET, Control: MARK_NONE}),
		monitor:  monitor,
	}
}

/*-------------------------------------------------------------------
 *
 * Name:	ProcessSample
 *
 * Purpose:	The FDUDC hook: demodulate one RX baseband sample into
 *		the RX ring and modulate one TX ring sample into a
 *		baseband I/Q sample.
 *
 * Inputs:	rxIQ	- downconverted RX sample.
 *
 * Returns:	The baseband TX sample, zero when the TX ring is empty.
 *
 *---------------------------------------------------------------*/

func (m *FMModem) ProcessSample(rxIQ complex64) complex64 {
	/* TX half. */

	var txIQ complex64
	var txFm TSample
	if m.txRing.Get(&txFm) {
		m.phase += (int32(txFm.Sample) - DC_OFFSET) * FM_DEVIATION
		var ph = float64(m.phase) * math.Pi / float64(1<<31)
		txIQ = complex64(cmplx.Rect(TX_AMPLITUDE, ph))
	} else {
		// Nothing to send: radiate nothing and keep the phase, so a
		// resumed transmission continues from the same carrier phase.
		// A neutral sample still enters the delay line to keep the
		// RX control flags valid.
		txFm = TSample{Sample: DC_OFFSET, Control: MARK_NONE}
	}
	var delayed = m.delay.Process(txFm)

	/* RX half. */

	var d = float32(cmplx.Phase(complex128(rxIQ) * cmplx.Conj(complex128(m.prevRX))))
	m.prevRX = rxIQ

	var scaled = d*(DC_OFFSET/float32(math.Pi)) + DC_OFFSET
	if scaled < 0 {
		scaled = 0
	} else if scaled > 65535 {
		scaled = 65535
	}

	var rxFm = TSample{
		Sample:  uint16(scaled),
		Control: delayed.Control,
	}

	// A full RX ring drops the sample; that is the consumer's problem.
	m.rxRing.Put(rxFm)
	m.rssiRing.Put(0) // RSSI is a placeholder for now.

	if m.monitor != nil {
		m.monitor.Append(MonitorFmMsg{
			RXSample:  rxFm.Sample,
			RXControl: rxFm.Control,
			RXRssi:    0,
			TXSample:  txFm.Sample,
			TXControl: txFm.Control,
			TXBufData: uint16(m.txRing.GetData()),
		})
	}

	return txIQ
}
