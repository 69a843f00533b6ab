package xcorr

import (
	"fmt"

	algofft "github.com/cwbudde/algo-fft"
)

// Correlator correlates many equal-length signals against a fixed
// kernel. The kernel spectrum, FFT plan and scratch buffers are set up
// once and reused for every row.
//
// A Correlator is not safe for concurrent use; create one per
// goroutine.
type Correlator struct {
	kernelLen int
	signalLen int

	// Direct path (short kernels): time-reversed kernel.
	kernelRev []float64

	// FFT path: plan and precomputed conjugated kernel spectrum.
	plan       *algofft.Plan[complex128]
	fftSize    int
	kernelConj []complex128
	scratchIn  []complex128
	scratchSig []complex128
	scratchOut []complex128
}

// NewCorrelator creates a correlator for signals of length signalLen
// against the given kernel.
func NewCorrelator(kernel []float64, signalLen int) (*Correlator, error) {
	if len(kernel) == 0 || signalLen == 0 {
		return nil, ErrEmptyInput
	}

	c := &Correlator{
		kernelLen: len(kernel),
		signalLen: signalLen,
	}

	if len(kernel) <= directThreshold {
		c.kernelRev = reverse(kernel)
		return c, nil
	}

	c.fftSize = nextPowerOf2(signalLen + len(kernel) - 1)

	plan, err := algofft.NewPlan64(c.fftSize)
	if err != nil {
		return nil, fmt.Errorf("xcorr: failed to create FFT plan: %w", err)
	}
	c.plan = plan

	// Precompute conj(FFT(kernel)) once.
	kPadded := make([]complex128, c.fftSize)
	for i, v := range kernel {
		kPadded[i] = complex(v, 0)
	}

	kFreq := make([]complex128, c.fftSize)
	if err := plan.Forward(kFreq, kPadded); err != nil {
		return nil, fmt.Errorf("xcorr: forward FFT failed: %w", err)
	}

	c.kernelConj = make([]complex128, c.fftSize)
	for i, v := range kFreq {
		c.kernelConj[i] = complex(real(v), -imag(v))
	}

	c.scratchIn = make([]complex128, c.fftSize)
	c.scratchSig = make([]complex128, c.fftSize)
	c.scratchOut = make([]complex128, c.fftSize)

	return c, nil
}

// Len returns the correlation output length:
// signalLen + kernelLen - 1.
func (c *Correlator) Len() int {
	return c.signalLen + c.kernelLen - 1
}

// KernelLen returns the kernel length the correlator was built with.
func (c *Correlator) KernelLen() int {
	return c.kernelLen
}

// Correlate computes the full cross-correlation of signal with the
// kernel, writing into dst. dst must have length Len() and signal must
// have the length the correlator was built for.
func (c *Correlator) Correlate(dst, signal []float64) error {
	if len(signal) != c.signalLen {
		return errInvalidSignalLen(len(signal), c.signalLen)
	}
	if len(dst) != c.Len() {
		return errInvalidSignalLen(len(dst), c.Len())
	}

	if c.plan == nil {
		correlateDirectTo(dst, signal, c.kernelRev)
		return nil
	}

	return c.correlateFFT(dst, signal)
}

// correlateFFT runs the frequency-domain path:
// IFFT(FFT(signal) * conj(FFT(kernel))), rearranged from circular to
// linear correlation layout.
func (c *Correlator) correlateFFT(dst, signal []float64) error {
	for i := range c.scratchIn {
		c.scratchIn[i] = 0
	}
	for i, v := range signal {
		c.scratchIn[i] = complex(v, 0)
	}

	if err := c.plan.Forward(c.scratchSig, c.scratchIn); err != nil {
		return fmt.Errorf("xcorr: forward FFT failed: %w", err)
	}

	for i := range c.scratchSig {
		c.scratchSig[i] *= c.kernelConj[i]
	}

	if err := c.plan.Inverse(c.scratchOut, c.scratchSig); err != nil {
		return fmt.Errorf("xcorr: inverse FFT failed: %w", err)
	}

	// Positive lags sit at the start of the circular result, negative
	// lags wrap around to its end.
	n := c.signalLen
	m := c.kernelLen
	for i := 0; i < n; i++ {
		dst[m-1+i] = real(c.scratchOut[i])
	}
	for i := 0; i < m-1; i++ {
		dst[i] = real(c.scratchOut[c.fftSize-m+1+i])
	}

	return nil
}
