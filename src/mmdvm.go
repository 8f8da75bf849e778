// Package mmdvm is a Go port of the Linux SDR I/O core of the MMDVM
// digital-voice modem firmware (the SDR-capable fork).
//
// The firmware's per-mode demodulators exchange 24 kHz FM samples with
// this core through ring buffers; the core bridges that stream to a
// complex-baseband I/Q stream at the SDR's native sample rate.  On the
// receive side it performs digital down-conversion and phase-discriminator
// FM demodulation; on the transmit side FM modulation and digital
// up-conversion.  Both directions share one fractional-ratio polyphase
// resampler and run in a single pass over each I/Q block.
package mmdvm
