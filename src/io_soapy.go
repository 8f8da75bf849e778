package mmdvm

/*------------------------------------------------------------------
 *
 * Purpose:   	SoapySDR transport: CF32 streams on one RX and one TX
 *		channel of whatever device the driver arguments select.
 *
 * Description:	The binding works in complex64 per channel, so blocks
 *		stream straight between the device and the I/Q buffer
 *		with no conversion.  Devices with hardware timestamping
 *		report a nanosecond time per read; the block loop echoes
 *		it back, shifted by the latency budget, on the matching
 *		write.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"

	"github.com/pothosware/go-soapy-sdr/pkg/device"
)

/* SOAPY_SDR_HAS_TIME from SoapySDR's stream flags. */
const SOAPY_HAS_TIME = 1 << 2

type soapyConfig struct {
	args       map[string]string
	sampleRate float64
	rxCentre   float64
	txCentre   float64
	rxGain     float64
	txGain     float64
	rxAntenna  string
	txAntenna  string
}

type soapyTransport struct {
	dev *device.SDRDevice
	rx  *device.SDRStreamCF32
	tx  *device.SDRStreamCF32

	/* Single-channel buffer lists handed to Read/Write; the one
	 * element is repointed at the caller's block each call so the
	 * streaming path does not allocate. */
	rxChans [][]complex64
	txChans [][]complex64

	rxFlags []int
	txFlags []int

	timeoutUs uint
}

func openSoapy(sc soapyConfig) (*soapyTransport, error) {
	var dev, err = device.Make(sc.args)
	if err != nil {
		return nil, fmt.Errorf("soapy: open device %v: %w", sc.args, err)
	}

	var t = &soapyTransport{
		dev:       dev,
		rxChans:   make([][]complex64, 1),
		txChans:   make([][]complex64, 1),
		rxFlags:   make([]int, 1),
		txFlags:   make([]int, 1),
		timeoutUs: 1000000,
	}

	if err := t.configure(sc); err != nil {
		t.close()
		return nil, err
	}
	return t, nil
}

func (t *soapyTransport) configure(sc soapyConfig) error {
	if err := t.dev.SetSampleRate(device.DirectionRX, 0, sc.sampleRate); err != nil {
		return fmt.Errorf("soapy: RX sample rate: %w", err)
	}
	if err := t.dev.SetSampleRate(device.DirectionTX, 0, sc.sampleRate); err != nil {
		return fmt.Errorf("soapy: TX sample rate: %w", err)
	}

	if err := t.dev.SetFrequency(device.DirectionRX, 0, sc.rxCentre, nil); err != nil {
		return fmt.Errorf("soapy: RX frequency: %w", err)
	}
	if err := t.dev.SetFrequency(device.DirectionTX, 0, sc.txCentre, nil); err != nil {
		return fmt.Errorf("soapy: TX frequency: %w", err)
	}

	if sc.rxAntenna != "" {
		if err := t.dev.SetAntennas(device.DirectionRX, 0, sc.rxAntenna); err != nil {
			return fmt.Errorf("soapy: RX antenna %s: %w", sc.rxAntenna, err)
		}
	}
	if sc.txAntenna != "" {
		if err := t.dev.SetAntennas(device.DirectionTX, 0, sc.txAntenna); err != nil {
			return fmt.Errorf("soapy: TX antenna %s: %w", sc.txAntenna, err)
		}
	}

	if err := t.dev.SetGain(device.DirectionRX, 0, sc.rxGain); err != nil {
		return fmt.Errorf("soapy: RX gain: %w", err)
	}
	if err := t.dev.SetGain(device.DirectionTX, 0, sc.txGain); err != nil {
		return fmt.Errorf("soapy: TX gain: %w", err)
	}

	var err error
	t.rx, err = t.dev.SetupSDRStreamCF32(device.DirectionRX, []uint{0}, nil)
	if err != nil {
		return fmt.Errorf("soapy: RX stream: %w", err)
	}
	t.tx, err = t.dev.SetupSDRStreamCF32(device.DirectionTX, []uint{0}, nil)
	if err != nil {
		return fmt.Errorf("soapy: TX stream: %w", err)
	}
	return nil
}

func (t *soapyTransport) activate() error {
	if err := t.rx.Activate(0, 0, 0); err != nil {
		return fmt.Errorf("soapy: activate RX: %w", err)
	}
	if err := t.tx.Activate(0, 0, 0); err != nil {
		t.rx.Deactivate(0, 0)
		return fmt.Errorf("soapy: activate TX: %w", err)
	}
	return nil
}

func (t *soapyTransport) deactivate() {
	if t.rx != nil {
		t.rx.Deactivate(0, 0)
	}
	if t.tx != nil {
		t.tx.Deactivate(0, 0)
	}
}

// read fills buf completely, looping over short reads, and returns the
// hardware timestamp of the first chunk (0 on untimed devices).
func (t *soapyTransport) read(buf []complex64) (int, int64, error) {
	var total = 0
	var blockTimeNs int64
	for total < len(buf) {
		t.rxChans[0] = buf[total:]
		t.rxFlags[0] = 0
		var timeNs, n, err = t.rx.Read(t.rxChans, uint(len(buf)-total), t.rxFlags, t.timeoutUs)
		if err != nil {
			return total, blockTimeNs, err
		}
		if n == 0 {
			return total, blockTimeNs, fmt.Errorf("soapy: empty read")
		}
		if total == 0 {
			blockTimeNs = int64(timeNs)
		}
		total += int(n)
	}
	return total, blockTimeNs, nil
}

// write sends buf, tagging the first chunk with timeNs when hasTime.
func (t *soapyTransport) write(buf []complex64, timeNs int64, hasTime bool) (int, error) {
	var total = 0
	for total < len(buf) {
		t.txChans[0] = buf[total:]
		t.txFlags[0] = 0
		if hasTime && total == 0 {
			t.txFlags[0] = SOAPY_HAS_TIME
		}
		var n, err = t.tx.Write(t.txChans, uint(len(buf)-total), t.txFlags, uint(timeNs), t.timeoutUs)
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("soapy: empty write")
		}
		total += int(n)
	}
	return total, nil
}

func (t *soapyTransport) close() {
	if t.rx != nil {
		t.rx.Close()
		t.rx = nil
	}
	if t.tx != nil {
		t.tx.Close()
		t.tx = nil
	}
	if t.dev != nil {
		t.dev.Unmake()
		t.dev = nil
	}
}
