// ABOUTME: Spectral analysis of audio frames
// ABOUTME: Hamming window + FFT, reduced to bass/mid/treble band energies
package dsp

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/glowsync/glowsync-go/internal/audio"
)

// SpectrumBins is the size of the reduced spectrum snapshot carried on the
// wire alongside the band levels.
const SpectrumBins = 18

// Band boundaries in FFT bins. With Fs=22050 and N=256 a bin is ~86Hz wide:
// bass covers up to ~500Hz, mid up to ~2kHz, treble up to ~8kHz. Bin 0 (DC)
// is excluded.
const (
	bassLow    = 1
	bassHigh   = 6
	midLow     = 6
	midHigh    = 23
	trebleLow  = 23
	trebleHigh = 93
)

// Levels holds normalized band energies for one analysis frame.
// Every field is clamped to [0, 1] after sensitivity scaling.
type Levels struct {
	Bass     float64
	Mid      float64
	Treble   float64
	Volume   float64
	Spectrum [SpectrumBins]float64
}

// Analyze transforms one frame into band levels. The frame must have exactly
// audio.FrameSize samples; that is the source's contract, not a runtime
// condition.
func Analyze(frame audio.Frame, sensitivity float64) Levels {
	buf := make([]float64, len(frame))
	copy(buf, frame)

	window.Apply(buf, window.Hamming)

	spectrum := fft.FFTReal(buf)

	half := len(frame) / 2
	mags := make([]float64, half)
	for i := 0; i < half; i++ {
		mags[i] = cmplx.Abs(spectrum[i])
	}

	var lv Levels
	lv.Bass = bandMean(mags, bassLow, bassHigh)
	lv.Mid = bandMean(mags, midLow, midHigh)
	lv.Treble = bandMean(mags, trebleLow, trebleHigh)
	lv.Volume = (lv.Bass + lv.Mid + lv.Treble) / 3.0

	lv.Bass = clamp01(lv.Bass * sensitivity)
	lv.Mid = clamp01(lv.Mid * sensitivity)
	lv.Treble = clamp01(lv.Treble * sensitivity)
	lv.Volume = clamp01(lv.Volume * sensitivity)

	for i := 0; i < SpectrumBins; i++ {
		idx := i * half / SpectrumBins
		lv.Spectrum[i] = clamp01(mags[idx] * sensitivity)
	}

	return lv
}

// bandMean averages magnitudes over the inclusive bin range [lo, hi].
func bandMean(mags []float64, lo, hi int) float64 {
	sum := 0.0
	for i := lo; i <= hi; i++ {
		sum += mags[i]
	}
	return sum / float64(hi-lo+1)
}

func clamp01(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0.0
	case v < 0.0:
		return 0.0
	case v > 1.0:
		return 1.0
	}
	return v
}
