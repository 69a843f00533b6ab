// Package xcorr provides linear cross-correlation for signal matching
// and alignment.
//
// The package offers two strategies:
//
//   - Direct correlation: O(N*M) time-domain computation, best for short kernels (< 64 samples)
//   - FFT-based correlation: frequency-domain computation for longer kernels
//
// For one-shot use, the simple functions pick a strategy automatically:
//
//	corr, _ := xcorr.Correlate(signal, kernel)
//	idx, _ := xcorr.FindPeak(corr)
//	lag := xcorr.LagFromIndex(idx, len(kernel))
//
// For repeated correlation of many equal-length signals against the
// same kernel, create a reusable Correlator; it precomputes the kernel
// spectrum and reuses the FFT plan and scratch buffers:
//
//	c, _ := xcorr.NewCorrelator(kernel, signalLen)
//	dst := make([]float64, c.Len())
//	for _, row := range rows {
//	    _ = c.Correlate(dst, row)
//	}
package xcorr
