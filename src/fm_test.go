package mmdvm

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModem(latencyFmSamples int) (*FMModem, *RingBuffer[TSample], *RingBuffer[TSample]) {
	var txRing = NewRingBuffer[TSample](TX_RINGBUFFER_SIZE)
	var rxRing = NewRingBuffer[TSample](RX_RINGBUFFER_SIZE)
	var rssiRing = NewRingBuffer[uint16](RX_RINGBUFFER_SIZE)
	return NewFMModem(txRing, rxRing, rssiRing, latencyFmSamples, nil), txRing, rxRing
}

// With nothing queued, a whole block of hook calls radiates zero TX
// energy and the RX ring still fills with neutral control flags.
func TestFMModem_NeutralFill(t *testing.T) {
	var modem, _, rxRing = newTestModem(5)

	const blockSize = 96
	for i := 0; i < blockSize; i++ {
		var txIQ = modem.ProcessSample(complex(1, 0))
		assert.Equal(t, complex64(0), txIQ, "empty TX ring must radiate nothing")
	}

	assert.Equal(t, blockSize, rxRing.GetData())
	var s TSample
	for rxRing.Get(&s) {
		assert.Equal(t, uint8(MARK_NONE), s.Control)
	}
}

// Slot markers stamped on TX samples reappear on the RX ring exactly
// latencyFmSamples later, whatever the sample values do.
func TestFMModem_ControlAlignment(t *testing.T) {
	const latency = 5
	var modem, txRing, rxRing = newTestModem(latency)

	var controls = []uint8{}
	for i := 0; i < 12; i++ {
		var c = uint8(MARK_SLOT1)
		if i%2 == 1 {
			c = MARK_SLOT2
		}
		controls = append(controls, c)
		require.True(t, txRing.Put(TSample{Sample: uint16(DC_OFFSET + 100*i), Control: c}))
	}

	for i := 0; i < len(controls); i++ {
		modem.ProcessSample(complex(1, 0))
	}

	var rx []TSample
	var s TSample
	for rxRing.Get(&s) {
		rx = append(rx, s)
	}
	require.Len(t, rx, len(controls))

	for n, s := range rx {
		if n < latency {
			assert.Equal(t, uint8(MARK_NONE), s.Control, "index %d is before the pipeline primes", n)
		} else {
			assert.Equal(t, controls[n-latency], s.Control, "index %d", n)
		}
	}
	assert.Equal(t, uint8(MARK_SLOT1), rx[5].Control)
	assert.Equal(t, uint8(MARK_SLOT2), rx[6].Control)
}

// The discriminator maps a phase step of d radians onto
// d * DC_OFFSET/pi + DC_OFFSET.
func TestFMModem_Discriminator(t *testing.T) {
	var modem, _, rxRing = newTestModem(0)

	// Establish the previous phasor, then step the phase by pi/2.
	modem.ProcessSample(complex(1, 0))
	modem.ProcessSample(complex64(cmplx.Rect(1, math.Pi/2)))

	var s TSample
	require.True(t, rxRing.Get(&s))
	require.True(t, rxRing.Get(&s))
	assert.InDelta(t, DC_OFFSET+DC_OFFSET/2, int(s.Sample), 1)
}

// A centred TX sample leaves the NCO phase alone; offset samples move
// it by (sample - DC_OFFSET) * FM_DEVIATION per tick.
func TestFMModem_Modulator(t *testing.T) {
	var modem, txRing, _ = newTestModem(0)

	require.True(t, txRing.Put(TSample{Sample: DC_OFFSET, Control: MARK_NONE}))
	var txIQ = modem.ProcessSample(0)
	assert.InDelta(t, TX_AMPLITUDE, cmplx.Abs(complex128(txIQ)), 1e-6,
		"a queued sample transmits at full configured amplitude")
	assert.InDelta(t, 0, cmplx.Phase(complex128(txIQ)), 1e-6,
		"a centred sample must not advance the phase")

	require.True(t, txRing.Put(TSample{Sample: DC_OFFSET + 1000, Control: MARK_NONE}))
	txIQ = modem.ProcessSample(0)
	var expected = float64(int32(1000)*FM_DEVIATION) * math.Pi / float64(int64(1)<<31)
	assert.InDelta(t, expected, cmplx.Phase(complex128(txIQ)), 1e-5)
}

// An overflowing RX ring drops the new observation and keeps what was
// already queued.
func TestFMModem_RXOverflow(t *testing.T) {
	var modem, _, rxRing = newTestModem(0)

	for i := 0; i < RX_RINGBUFFER_SIZE+10; i++ {
		modem.ProcessSample(complex(1, 0))
	}

	assert.Equal(t, RX_RINGBUFFER_SIZE, rxRing.GetData())
}
