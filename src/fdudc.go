package mmdvm

/*------------------------------------------------------------------
 *
 * Purpose:   	Digital up and down conversion with fractional sample
 *		rate conversion.
 *
 * Description:	One streaming pass over each I/Q sample does all of:
 *
 *		* frequency shift by -rxIF
 *		* anti-alias low-pass and decimate by resampDen/resampNum
 *		* call the modem hook once per baseband sample
 *		* interpolate by resampNum/resampDen with the same
 *		  prototype filter
 *		* frequency shift by +txIF, written back in place
 *
 *		The prototype FIR is indexed as a polyphase commutator:
 *		branch p is taps {p, p+resampNum, p+2*resampNum, ...} and
 *		each baseband sample uses exactly one branch.  The sample
 *		rings are kept in duplicated-halves form (each write goes
 *		to i and i+branchlen) so the inner loops read one
 *		contiguous window with no modulo.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"math"
	"math/cmplx"
)

type FDUDC struct {
	// Numerator of the sample rate ratio: interpolation factor for
	// the DDC, decimation factor for the DUC.
	resampNum int
	// Denominator, the opposite way around.
	resampDen int
	rxIfDen   int
	txIfDen   int

	// Polyphase filter phase accumulator, 0 <= p < resampDen between samples.
	p int
	// Index to in and out, 0 <= i < branchlen.
	i    int
	ddcI int
	ducI int

	branchlen int
	taps      []float32
	// Sample rings, length 2*branchlen each.
	in  []complex64
	out []complex64
	// Complex exponential tables, one full IF cycle each.
	ddcSine []complex64
	ducSine []complex64

	// resampDen/resampNum, restores unity gain through the DUC.
	ducGain float32
}

/*-------------------------------------------------------------------
 *
 * Name:	NewFDUDC
 *
 * Purpose:	Build the resampler state: polyphase taps, IF tables
 *		and sample rings.  Nothing on the processing path
 *		allocates after this.
 *
 * Inputs:	resampNum, resampDen	- sample rate ratio, baseband rate =
 *					  input rate * resampNum / resampDen.
 *
 *		rxIfNum/rxIfDen		- RX intermediate frequency as a
 *					  fraction of the input sample rate.
 *					  The numerator may be negative.
 *
 *		txIfNum/txIfDen		- same for TX.
 *
 *		length			- approximate filter length in
 *					  baseband samples.  Longer means a
 *					  narrower transition band and more
 *					  CPU.  Delay is about half of this
 *					  per direction.
 *
 *		cutoff			- cutoff as a fraction of the baseband
 *					  Nyquist frequency, 0 < cutoff <= 1.
 *
 *---------------------------------------------------------------*/

func NewFDUDC(resampNum, resampDen, rxIfNum, rxIfDen, txIfNum, txIfDen, length int, cutoff float32) (*FDUDC, error) {
	if resampNum <= 0 || resampDen <= 0 {
		return nil, fmt.Errorf("fdudc: invalid resample ratio %d/%d", resampNum, resampDen)
	}
	if rxIfDen <= 0 || txIfDen <= 0 {
		return nil, fmt.Errorf("fdudc: invalid IF denominator")
	}
	if cutoff <= 0 || cutoff > 1 {
		return nil, fmt.Errorf("fdudc: cutoff %v out of range (0, 1]", cutoff)
	}

	var branchlen = int(math.Round(float64(resampDen) * float64(length) / float64(resampNum)))
	if branchlen <= 0 {
		return nil, fmt.Errorf("fdudc: filter length %d leaves an empty polyphase branch", length)
	}

	var f = &FDUDC{
		resampNum: resampNum,
		resampDen: resampDen,
		rxIfDen:   rxIfDen,
		txIfDen:   txIfDen,
		branchlen: branchlen,
		taps:      designTaps(branchlen, resampNum, resampDen, cutoff),
		in:        make([]complex64, 2*branchlen),
		out:       make([]complex64, 2*branchlen),
		ddcSine:   sineTable(-rxIfNum, rxIfDen),
		ducSine:   sineTable(txIfNum, txIfDen),
		ducGain:   float32(resampDen) / float32(resampNum),
	}
	return f, nil
}

// designTaps returns the Hann-windowed sinc prototype, normalised so
// that every polyphase branch sums to exactly unity DC gain.
func designTaps(branchlen, resampNum, resampDen int, cutoff float32) []float32 {
	var totallen = branchlen * resampNum
	var proto = make([]float64, totallen)

	var center = float64(totallen-1) / 2.0
	var wc = float64(cutoff) * math.Pi / float64(resampDen)
	for k := range proto {
		var t = float64(k) - center
		var s = 1.0
		if t != 0 {
			s = math.Sin(wc*t) / (wc * t)
		}
		var w = 0.5 - 0.5*math.Cos(2.0*math.Pi*float64(k+1)/float64(totallen+1))
		proto[k] = s * w
	}

	// Normalise per branch rather than over the whole prototype, so a
	// constant input comes back as the same constant on every phase.
	for p := 0; p < resampNum; p++ {
		var sum = 0.0
		for k := p; k < totallen; k += resampNum {
			sum += proto[k]
		}
		for k := p; k < totallen; k += resampNum {
			proto[k] /= sum
		}
	}

	var taps = make([]float32, totallen)
	for k := range taps {
		taps[k] = float32(proto[k])
	}
	return taps
}

func sineTable(ifNum, ifDen int) []complex64 {
	var table = make([]complex64, ifDen)
	for i := range table {
		table[i] = complex64(cmplx.Rect(1.0, 2.0*math.Pi*float64(ifNum)*float64(i)/float64(ifDen)))
	}
	return table
}

// Delay reports the round-trip filter delay in baseband samples,
// about half the prototype length for each of the DUC and DDC passes.
func (f *FDUDC) Delay() int {
	return f.branchlen * f.resampNum / f.resampDen
}

/*-------------------------------------------------------------------
 *
 * Name:	Process
 *
 * Purpose:	Run one I/Q block through the DDC and DUC, replacing
 *		the buffer contents with the upconverted TX signal.
 *
 * Inputs:	buffer		- I/Q samples at the SDR rate, any length.
 *				  Mutated in place.
 *
 *		processSample	- modem hook, called exactly once per
 *				  baseband sample with the downconverted
 *				  RX sample; its return value is the
 *				  baseband TX sample.  Must not allocate.
 *
 *---------------------------------------------------------------*/

func (f *FDUDC) Process(buffer []complex64, processSample func(complex64) complex64) {
	for n, s := range buffer {
		var in = s * f.ddcSine[f.ddcI]
		f.in[f.i] = in
		f.in[f.i+f.branchlen] = in
		f.ddcI++
		if f.ddcI >= f.rxIfDen {
			f.ddcI = 0
		}

		f.p += f.resampNum
		for f.p >= f.resampDen {
			f.p -= f.resampDen
			// 0 <= p < resampNum here: p selects the branch.

			var win = f.in[f.i+1 : f.i+1+f.branchlen]
			var acc complex64
			var t = f.p
			for k := 0; k < f.branchlen; k++ {
				acc += win[k] * complex(f.taps[t], 0)
				t += f.resampNum
			}

			var tx = processSample(acc)
			tx *= complex(f.ducGain, 0)

			var out = f.out[f.i+1 : f.i+1+f.branchlen]
			t = f.p
			for k := 0; k < f.branchlen; k++ {
				out[k] += tx * complex(f.taps[t], 0)
				t += f.resampNum
			}
		}

		buffer[n] = (f.out[f.i] + f.out[f.i+f.branchlen]) * f.ducSine[f.ducI]
		f.out[f.i] = 0
		f.out[f.i+f.branchlen] = 0
		f.ducI++
		if f.ducI >= f.txIfDen {
			f.ducI = 0
		}
		f.i++
		if f.i >= f.branchlen {
			f.i = 0
		}
	}
}
