package encoder

import (
	"errors"

	"github.com/cwbudde/algo-vecmath"
)

// Background state errors.
var (
	ErrNotCalibrated = errors.New("encoder: background calibration is not found")
	ErrNoDarkShots   = errors.New("encoder: none of the pulses correspond to dark shots")
	ErrNoData        = errors.New("encoder: no waveforms")
	ErrMaskMismatch  = errors.New("encoder: dark mask length does not match waveform count")
	ErrRaggedData    = errors.New("encoder: waveform rows differ in length")
)

// background holds a calibrated dark reference and the removal
// operator bound to it. A background value is immutable after
// construction; recalibration builds a new one.
type background struct {
	method BackgroundMethod
	ref    []float64

	// recip caches 1/ref so the divisive path is a block multiply.
	recip []float64
}

// newBackground averages the dark rows of data column-wise into a
// reference. A nil mask averages every row; a mask selecting zero
// rows is an error.
func newBackground(method BackgroundMethod, data [][]float64, isDark []bool) (*background, error) {
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, ErrNoData
	}

	pixels := len(data[0])
	for _, row := range data {
		if len(row) != pixels {
			return nil, ErrRaggedData
		}
	}

	if isDark != nil && len(isDark) != len(data) {
		return nil, ErrMaskMismatch
	}

	ref := make([]float64, pixels)

	var count int
	for i, row := range data {
		if isDark != nil && !isDark[i] {
			continue
		}

		for j, v := range row {
			ref[j] += v
		}
		count++
	}

	if count == 0 {
		return nil, ErrNoDarkShots
	}

	vecmath.ScaleBlockInPlace(ref, 1/float64(count))

	b := &background{method: method, ref: ref}

	if method == Divide {
		b.recip = make([]float64, pixels)
		for j, v := range ref {
			b.recip[j] = 1 / v
		}
	}

	return b, nil
}

// remove applies the configured operator to every row, returning a
// fresh matrix. The input is never mutated.
func (b *background) remove(data [][]float64) ([][]float64, error) {
	pixels := len(b.ref)

	out := make([][]float64, len(data))

	for i, row := range data {
		if len(row) != pixels {
			return nil, ErrRaggedData
		}

		dst := make([]float64, pixels)

		switch b.method {
		case Subtract:
			for j, v := range row {
				dst[j] = v - b.ref[j]
			}
		case Divide:
			// data/ref - 1, as a SIMD multiply by the cached
			// reciprocal.
			vecmath.MulBlock(dst, row, b.recip)
			for j := range dst {
				dst[j]--
			}
		}

		out[i] = dst
	}

	return out, nil
}

// reference returns a copy of the dark reference.
func (b *background) reference() []float64 {
	out := make([]float64, len(b.ref))
	copy(out, b.ref)

	return out
}
