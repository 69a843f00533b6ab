// Package signal generates deterministic synthetic encoder waveforms.
// It exists mainly for tests and examples: step edges with a known
// position and reproducible noise floors.
package signal

import (
	"fmt"
	"math"
	"math/rand"
)

// Generator creates deterministic waveforms from a shared seed.
type Generator struct {
	seed int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the deterministic random seed for noise generation.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a configured waveform generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{seed: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g
}

// Step generates a rising step waveform: low for pixels [0, edgePos),
// high from edgePos on.
func (g *Generator) Step(pixels int, edgePos int, low, high float64) ([]float64, error) {
	if pixels <= 0 {
		return nil, fmt.Errorf("signal: pixels must be > 0: %d", pixels)
	}
	if edgePos < 0 || edgePos > pixels {
		return nil, fmt.Errorf("signal: edge position %d outside [0, %d]", edgePos, pixels)
	}

	out := make([]float64, pixels)
	for i := range out {
		if i < edgePos {
			out[i] = low
		} else {
			out[i] = high
		}
	}

	return out, nil
}

// FallingStep generates a falling step waveform: high for pixels
// [0, edgePos), low from edgePos on.
func (g *Generator) FallingStep(pixels int, edgePos int, low, high float64) ([]float64, error) {
	out, err := g.Step(pixels, edgePos, high, low)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Noise generates deterministic uniform noise in
// [center-amplitude, center+amplitude].
func (g *Generator) Noise(pixels int, center, amplitude float64) ([]float64, error) {
	if pixels <= 0 {
		return nil, fmt.Errorf("signal: pixels must be > 0: %d", pixels)
	}
	if amplitude < 0 {
		return nil, fmt.Errorf("signal: amplitude must be >= 0: %f", amplitude)
	}

	out := make([]float64, pixels)
	rng := rand.New(rand.NewSource(g.seed))
	for i := range out {
		out[i] = center + (rng.Float64()*2-1)*amplitude
	}

	return out, nil
}

// Repeat stacks copies of row into an n-row matrix. Each row is an
// independent copy.
func Repeat(row []float64, n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		r := make([]float64, len(row))
		copy(r, row)
		out[i] = r
	}

	return out
}

// Shift returns row shifted right by k whole pixels, padding with the
// first sample. Negative k shifts left, padding with the last sample.
func Shift(row []float64, k int) []float64 {
	out := make([]float64, len(row))

	for i := range out {
		src := i - k
		switch {
		case src < 0:
			out[i] = row[0]
		case src >= len(row):
			out[i] = row[len(row)-1]
		default:
			out[i] = row[src]
		}
	}

	return out
}

// NaNRow returns a row of n NaN samples.
func NaNRow(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}
