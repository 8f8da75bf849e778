package mmdvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The monitor record is the exact packed little-endian layout the
// visualiser parses: id[2] u16 u8 u16 u16 u8 u16.
func TestMonitorFmMsg_Packing(t *testing.T) {
	var m = &Monitor{}

	m.Append(MonitorFmMsg{
		RXSample:  0x1234,
		RXControl: MARK_SLOT1,
		RXRssi:    0x0102,
		TXSample:  0xABCD,
		TXControl: MARK_SLOT2,
		TXBufData: 240,
	})

	require.Len(t, m.buf, monitorFmMsgSize)
	assert.Equal(t, []byte{
		'F', 'M',
		0x34, 0x12,
		MARK_SLOT1,
		0x02, 0x01,
		0xCD, 0xAB,
		MARK_SLOT2,
		240, 0x00,
	}, m.buf)
}

func TestMonitor_AppendBatches(t *testing.T) {
	var m = &Monitor{}

	for i := 0; i < 5; i++ {
		m.Append(MonitorFmMsg{})
	}
	assert.Len(t, m.buf, 5*monitorFmMsgSize)

	// Every record leads with the topic id so a subscriber filtering
	// on "FM" matches the whole message.
	assert.Equal(t, byte('F'), m.buf[0])
	assert.Equal(t, byte('M'), m.buf[1])

	m.Send() // socketless monitor just resets
	assert.Empty(t, m.buf)
}
