package patchbay

import "math"

// NumBands is the number of frequency bands in an analysis snapshot,
// ordered low to high.
const NumBands = 32

// AudioFeatures is one tick's audio analysis snapshot. The engine treats
// it as opaque input data; audio nodes pick it apart.
type AudioFeatures struct {
	Level float64   // overall RMS level in [0, 1]
	Bands []float64 // per-band magnitude in [0, 1], NumBands entries
	Beat  bool      // true on the tick a beat lands
	BPM   float64   // current tempo estimate, 0 when unknown
}

// Band averages the bands in [lo, hi] (indexes clamped, inclusive).
func (a AudioFeatures) Band(lo, hi int) float64 {
	if len(a.Bands) == 0 {
		return 0
	}
	if lo < 0 {
		lo = 0
	}
	if hi >= len(a.Bands) {
		hi = len(a.Bands) - 1
	}
	if hi < lo {
		return 0
	}
	sum := 0.0
	for i := lo; i <= hi; i++ {
		sum += a.Bands[i]
	}
	return sum / float64(hi-lo+1)
}

// AudioSource supplies one analysis snapshot per tick. Implementations are
// sampled by the hosting loop, never by the engine itself, so a slow or
// absent capture backend cannot stall evaluation.
type AudioSource interface {
	Sample(now float64) AudioFeatures
}

// SilentSource reports silence. It is the default when no capture backend
// is wired up.
type SilentSource struct{}

// Sample returns an all-zero snapshot.
func (SilentSource) Sample(now float64) AudioFeatures {
	return AudioFeatures{Bands: make([]float64, NumBands)}
}

// PulseSource synthesizes a steady four-on-the-floor feed for demos and
// tests: an exponentially decaying level per beat with a fixed spectral
// shape scaled by it. Deterministic for a given time value apart from the
// beat flag, which fires once per crossing.
type PulseSource struct {
	BPM float64 // beats per minute; 0 means 120

	lastBeat int
}

// Sample synthesizes the snapshot for the given time.
func (p *PulseSource) Sample(now float64) AudioFeatures {
	bpm := p.BPM
	if bpm <= 0 {
		bpm = 120
	}
	beats := now * bpm / 60
	idx := int(math.Floor(beats))
	phase := beats - math.Floor(beats)
	level := math.Exp(-4 * phase)

	bands := make([]float64, NumBands)
	for i := range bands {
		// Low bands carry the pulse, highs shimmer against it.
		falloff := 1 - float64(i)/float64(NumBands)
		shimmer := 0.5 + 0.5*math.Sin(2*math.Pi*(now*0.25+float64(i)*0.13))
		bands[i] = level * falloff * (0.6 + 0.4*shimmer)
	}

	beat := idx != p.lastBeat
	p.lastBeat = idx
	return AudioFeatures{Level: level, Bands: bands, Beat: beat, BPM: bpm}
}
