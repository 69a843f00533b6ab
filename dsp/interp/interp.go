package interp

import "errors"

// Errors returned by upsampling functions.
var (
	ErrInvalidFactor = errors.New("interp: factor must be >= 1")
	ErrTooShort      = errors.New("interp: need at least 2 samples to upsample")
)

// Len returns the upsampled length for n input samples at the given
// factor: (n-1)*factor + 1.
func Len(n, factor int) int {
	return (n-1)*factor + 1
}

// Upsample interpolates x onto a grid with factor points per original
// sample. The output has length (len(x)-1)*factor + 1; output index i
// corresponds to original position i/factor. Factor 1 returns a copy.
func Upsample(x []float64, factor int) ([]float64, error) {
	if factor < 1 {
		return nil, ErrInvalidFactor
	}

	if factor == 1 {
		out := make([]float64, len(x))
		copy(out, x)
		return out, nil
	}

	if len(x) < 2 {
		return nil, ErrTooShort
	}

	out := make([]float64, Len(len(x), factor))
	UpsampleTo(out, x, factor)

	return out, nil
}

// UpsampleTo interpolates x into the pre-allocated dst, which must
// have length Len(len(x), factor). Inputs are not validated.
func UpsampleTo(dst, x []float64, factor int) {
	if factor == 1 {
		copy(dst, x)
		return
	}

	step := 1.0 / float64(factor)

	for i := 0; i < len(x)-1; i++ {
		x0 := x[i]
		slope := x[i+1] - x0
		base := i * factor

		for j := 0; j < factor; j++ {
			dst[base+j] = x0 + slope*(float64(j)*step)
		}
	}

	dst[len(dst)-1] = x[len(x)-1]
}
