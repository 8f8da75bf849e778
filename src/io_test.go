package mmdvm

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverTable(t *testing.T) {
	tests := []struct {
		name        string
		resampNum   int
		resampDen   int
		blockSize   int
		timestamped bool
		sampleRate  float64
	}{
		{name: "file", resampNum: 1, resampDen: 1, blockSize: 96, sampleRate: 24000},
		{name: "limesdr", resampNum: 2, resampDen: 25, blockSize: 1024, timestamped: true, sampleRate: 300000},
		{name: "sxxcvr", resampNum: 4, resampDen: 25, blockSize: 512, sampleRate: 150000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var params, err = driverTable(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.resampNum, params.resampNum)
			assert.Equal(t, tt.resampDen, params.resampDen)
			assert.Equal(t, tt.blockSize, params.blockSize)
			assert.Equal(t, tt.timestamped, params.timestamped)
			assert.Equal(t, tt.sampleRate, 24000.0*float64(params.resampDen)/float64(params.resampNum))
		})
	}
}

func TestDriverTable_Unknown(t *testing.T) {
	var _, err = driverTable("soundcard")
	assert.Error(t, err)
}

func TestInitInt_UnknownDriver(t *testing.T) {
	var cfg = DefaultConfig()
	cfg.Driver = "nonesuch"

	var running atomic.Bool
	running.Store(true)

	var io = NewIO(cfg, &running)
	io.InitInt()

	assert.False(t, running.Load(), "a configuration error must clear the running flag")
}

func TestInitInt_FileDriverLatency(t *testing.T) {
	t.Chdir(t.TempDir())

	var cfg = DefaultConfig()
	cfg.LatencyBlocks = 2

	var running atomic.Bool
	running.Store(true)

	var io = NewIO(cfg, &running)
	io.InitInt()
	defer io.ExitInt()

	require.True(t, running.Load())

	// File mode resamples 1:1, so the budget is just the queued
	// samples plus the resampler delay (the filter length here).
	assert.Equal(t, 96*2+11, io.latencyFmSamples)
	assert.Equal(t, int64(2*96*1e9/24000), io.latencyNs)
}

func TestFileTransport_Format(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "iq.raw")
	var tr, err = openFileTransport(path)
	require.NoError(t, err)

	require.NoError(t, tr.writeBlock([]complex64{complex(1.0, -0.5), complex(0, 0.25)}))
	tr.close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, 16)

	assert.Equal(t, float32(1.0), math.Float32frombits(binary.LittleEndian.Uint32(data[0:])))
	assert.Equal(t, float32(-0.5), math.Float32frombits(binary.LittleEndian.Uint32(data[4:])))
	assert.Equal(t, float32(0), math.Float32frombits(binary.LittleEndian.Uint32(data[8:])))
	assert.Equal(t, float32(0.25), math.Float32frombits(binary.LittleEndian.Uint32(data[12:])))
}

// One file-mode iteration writes exactly one block of I/Q and feeds
// the RX ring one block of neutral samples.
func TestProcessInt_FileMode(t *testing.T) {
	t.Chdir(t.TempDir())

	var cfg = DefaultConfig()
	var running atomic.Bool
	running.Store(true)

	var io = NewIO(cfg, &running)
	io.InitInt()
	require.True(t, running.Load())

	io.ProcessInt()
	io.ExitInt()

	data, err := os.ReadFile(FILE_TX_IQ_OUTPUT)
	require.NoError(t, err)
	assert.Len(t, data, 96*8)

	assert.Equal(t, 96, io.RXRing().GetData())
	assert.Equal(t, 96, io.RSSIRing().GetData())
}

// Queued TX samples end up as energy in the simulation output once
// the interpolation filter has filled.
func TestProcessInt_FileModeRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())

	var cfg = DefaultConfig()
	var running atomic.Bool
	running.Store(true)

	var io = NewIO(cfg, &running)
	io.InitInt()
	require.True(t, running.Load())

	for i := 0; i < TX_RINGBUFFER_SIZE; i++ {
		require.True(t, io.TXRing().Put(TSample{Sample: DC_OFFSET + 500, Control: MARK_SLOT1}))
	}

	io.ProcessInt()
	io.ProcessInt()
	io.ExitInt()

	data, err := os.ReadFile(FILE_TX_IQ_OUTPUT)
	require.NoError(t, err)
	require.Len(t, data, 2*96*8)

	// The second block is past filter warm-up and must carry the
	// 0.7 amplitude carrier.
	var peak float64
	for off := 96 * 8; off+8 <= len(data); off += 8 {
		var re = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:])))
		var im = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off+4:])))
		var mag = math.Sqrt(re*re + im*im)
		if mag > peak {
			peak = mag
		}
	}
	assert.InDelta(t, TX_AMPLITUDE, peak, 0.05)
}

func TestIOMisc(t *testing.T) {
	var cfg = DefaultConfig()
	var running atomic.Bool
	running.Store(true)
	var io = NewIO(cfg, &running)

	assert.False(t, io.GetCOSInt())
	assert.Equal(t, uint8(3), io.GetCPU())
	assert.Equal(t, [16]byte{}, io.GetUDID())
}
