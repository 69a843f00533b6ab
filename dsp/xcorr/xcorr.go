package xcorr

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by correlation functions.
var (
	ErrEmptyInput     = errors.New("xcorr: empty input")
	ErrLengthMismatch = errors.New("xcorr: signal length mismatch")
)

// Kernels shorter than this are correlated directly; longer ones go
// through the FFT path.
const directThreshold = 64

// Correlate computes the full cross-correlation of a and b.
// The result has length len(a) + len(b) - 1.
// Output index k corresponds to lag k - (len(b) - 1).
//
// For real signals this is equivalent to sliding b over a and
// computing the dot product at every offset.
func Correlate(a, b []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmptyInput
	}

	if len(b) <= directThreshold {
		return CorrelateDirect(a, b)
	}

	return CorrelateFFT(a, b)
}

// CorrelateDirect computes cross-correlation using direct time-domain
// computation. This is an O(N*M) algorithm suitable for short kernels.
func CorrelateDirect(a, b []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmptyInput
	}

	result := make([]float64, len(a)+len(b)-1)
	correlateDirectTo(result, a, reverse(b))

	return result, nil
}

// correlateDirectTo convolves a with the pre-reversed kernel bRev,
// accumulating into dst. dst must have length len(a)+len(bRev)-1 and
// is cleared first.
func correlateDirectTo(dst, a, bRev []float64) {
	for i := range dst {
		dst[i] = 0
	}

	n := len(a)
	m := len(bRev)

	// Vectorize the inner loop for kernels of at least 4 samples.
	const simdThreshold = 4
	if m >= simdThreshold {
		temp := make([]float64, m)
		for i := 0; i < n; i++ {
			// temp = bRev * a[i], then dst[i:i+m] += temp
			vecmath.ScaleBlock(temp, bRev, a[i])
			vecmath.AddBlockInPlace(dst[i:i+m], temp)
		}

		return
	}

	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			dst[i+j] += a[i] * bRev[j]
		}
	}
}

// CorrelateFFT computes cross-correlation using FFT. This is more
// efficient for longer kernels.
func CorrelateFFT(a, b []float64) ([]float64, error) {
	c, err := NewCorrelator(b, len(a))
	if err != nil {
		return nil, err
	}

	result := make([]float64, c.Len())
	if err := c.correlateFFT(result, a); err != nil {
		return nil, err
	}

	return result, nil
}

// FindPeak finds the index and value of the maximum in a correlation
// result. Ties resolve to the first occurrence (lowest index).
func FindPeak(corr []float64) (index int, value float64) {
	if len(corr) == 0 {
		return -1, 0
	}

	index = 0
	value = corr[0]

	for i, v := range corr {
		if v > value {
			index = i
			value = v
		}
	}

	return index, value
}

// LagFromIndex converts a correlation result index to a lag value.
// For a correlation of signals with lengths lenA and lenB, the lag at
// index i is i - (lenB - 1).
func LagFromIndex(index, lenB int) int {
	return index - (lenB - 1)
}

// IndexFromLag converts a lag value to a correlation result index.
func IndexFromLag(lag, lenB int) int {
	return lag + (lenB - 1)
}

// reverse returns a time-reversed copy of b.
func reverse(b []float64) []float64 {
	out := make([]float64, len(b))
	for i := range b {
		out[i] = b[len(b)-1-i]
	}

	return out
}

// nextPowerOf2 returns the next power of 2 >= n.
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}

	p := 1
	for p < n {
		p *= 2
	}

	return p
}

// errInvalidSignalLen reports a signal length that does not match the
// length the Correlator was built for.
func errInvalidSignalLen(got, want int) error {
	return fmt.Errorf("xcorr: signal length %d, correlator expects %d: %w", got, want, ErrLengthMismatch)
}
