// Package timecal fits the linear pixel-to-femtosecond relation of a
// calibrated delay scan.
package timecal

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrFitInput indicates insufficient or mismatched calibration
// samples.
var ErrFitInput = errors.New("timecal: need two or more finite (scan position, edge position) pairs of equal count")

// Fit holds the linear calibration
//
//	edge_pix = Slope * t_fs + Intercept
//
// Slope is the pixels-per-femtosecond conversion coefficient.
type Fit struct {
	Slope     float64
	Intercept float64
}

// FSPerPix returns the inverse conversion, femtoseconds per pixel.
func (f Fit) FSPerPix() float64 {
	return 1 / f.Slope
}

// At returns the predicted edge position at scan position tFS.
func (f Fit) At(tFS float64) float64 {
	return f.Slope*tFS + f.Intercept
}

// Linear performs an ordinary least-squares degree-1 fit of edge
// positions (pixels) against scan positions (femtoseconds). Both
// slices must have equal length >= 2 and contain only finite values;
// NaN handling belongs to the caller's aggregation step.
func Linear(scanPosFS, edgePosPix []float64) (Fit, error) {
	if len(scanPosFS) != len(edgePosPix) || len(scanPosFS) < 2 {
		return Fit{}, ErrFitInput
	}

	for i := range scanPosFS {
		if !finite(scanPosFS[i]) || !finite(edgePosPix[i]) {
			return Fit{}, ErrFitInput
		}
	}

	intercept, slope := stat.LinearRegression(scanPosFS, edgePosPix, nil, false)

	return Fit{Slope: slope, Intercept: intercept}, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
