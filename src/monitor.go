package mmdvm

/*------------------------------------------------------------------
 *
 * Purpose:   	Observation side-channel for the external waveform
 *		visualiser.
 *
 * Description:	One record per baseband sample is collected while a
 *		block is processed, then the whole block goes out as a
 *		single zmq PUB message on a local ipc socket.  The
 *		visualiser subscribes to the "FM" topic, which is simply
 *		the two-byte id opening the first record.  Sends never
 *		block and drops are silent; the channel is advisory.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"

	zmq "github.com/pebbe/zmq4"
)

const MONITOR_ENDPOINT = "ipc:///tmp/MMDVM_Monitor"

/* Wire size of one record: id[2], u16, u8, u16, u16, u8, u16, packed. */
const monitorFmMsgSize = 12

// MonitorFmMsg is one per-sample observation record.
type MonitorFmMsg struct {
	RXSample  uint16 /* demodulated FM amplitude */
	RXControl uint8  /* delayed TX control bits */
	RXRssi    uint16 /* always 0 for now */
	TXSample  uint16 /* TX amplitude as produced by the modem */
	TXControl uint8  /* TX control bits before the delay line */
	TXBufData uint16 /* TX ring fill snapshot */
}

type Monitor struct {
	sock *zmq.Socket
	buf  []byte
}

func NewMonitor(endpoint string) (*Monitor, error) {
	var sock, err = zmq.NewSocket(zmq.PUB)
	if err != nil {
		return nil, fmt.Errorf("monitor: socket: %w", err)
	}
	if err := sock.Bind(endpoint); err != nil {
		sock.Close()
		return nil, fmt.Errorf("monitor: bind %s: %w", endpoint, err)
	}
	return &Monitor{sock: sock}, nil
}

// Append packs one record onto the pending message.  The backing array
// is reused from block to block, so this stops allocating once the
// first block has sized it.
func (m *Monitor) Append(msg MonitorFmMsg) {
	var rec [monitorFmMsgSize]byte
	rec[0] = 'F'
	rec[1] = 'M'
	binary.LittleEndian.PutUint16(rec[2:], msg.RXSample)
	rec[4] = msg.RXControl
	binary.LittleEndian.PutUint16(rec[5:], msg.RXRssi)
	binary.LittleEndian.PutUint16(rec[7:], msg.TXSample)
	rec[9] = msg.TXControl
	binary.LittleEndian.PutUint16(rec[10:], msg.TXBufData)
	m.buf = append(m.buf, rec[:]...)
}

// Send publishes the pending records as one message and resets the
// pending buffer.  Failure to send loses the block and nothing else.
func (m *Monitor) Send() {
	if len(m.buf) == 0 {
		return
	}
	if m.sock != nil {
		m.sock.SendBytes(m.buf, zmq.DONTWAIT)
	}
	m.buf = m.buf[:0]
}

func (m *Monitor) Close() {
	if m.sock != nil {
		m.sock.Close()
		m.sock = nil
	}
}
