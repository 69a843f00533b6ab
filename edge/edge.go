package edge

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-encoder/dsp/interp"
	"github.com/cwbudde/algo-encoder/dsp/xcorr"
)

// Errors returned by edge detection.
var (
	ErrNoData            = errors.New("edge: no waveforms")
	ErrShortStep         = errors.New("edge: step length must be >= 4")
	ErrInvalidRefinement = errors.New("edge: refinement must be >= 1")
	ErrRaggedData        = errors.New("edge: waveform rows differ in length")
	ErrShortWaveform     = errors.New("edge: waveform shorter than step template")
)

// Polarity selects the transition direction the template matches.
type Polarity int

const (
	// Falling matches a high-to-low transition.
	Falling Polarity = iota

	// Rising matches a low-to-high transition.
	Rising
)

// String returns the polarity name.
func (p Polarity) String() string {
	switch p {
	case Falling:
		return "falling"
	case Rising:
		return "rising"
	default:
		return fmt.Sprintf("Polarity(%d)", int(p))
	}
}

// ParsePolarity converts a polarity name to a Polarity.
func ParsePolarity(s string) (Polarity, error) {
	switch s {
	case "falling":
		return Falling, nil
	case "rising":
		return Rising, nil
	default:
		return 0, fmt.Errorf("edge: unknown edge polarity %q", s)
	}
}

// Template builds a zero-mean step template of the given length.
// A falling template is +1 over its first half and -1 over its
// second; rising is the mirror.
func Template(length int, p Polarity) []float64 {
	t := make([]float64, length)

	half := length / 2
	for i := range t {
		if i < half {
			t[i] = 1
		} else {
			t[i] = -1
		}
	}

	if p == Rising {
		for i := range t {
			t[i] = -t[i]
		}
	}

	return t
}

// Result holds per-row edge detection output.
type Result struct {
	// EdgePos is the sub-pixel edge position per row, NaN when the
	// row carries no finite sample.
	EdgePos []float64

	// Amplitude is the correlation value at the detected position.
	Amplitude []float64

	// Lags is the shared correlation lag axis in original-pixel units.
	Lags []float64

	// Corr holds one correlation curve per row, aligned with Lags.
	Corr [][]float64
}

// Locator finds step edges in waveform matrices.
type Locator struct {
	// StepLength is the template length in original pixels, >= 4.
	StepLength int

	// Polarity selects the transition direction to search for.
	Polarity Polarity

	// Refinement is the interpolation upsampling factor, >= 1.
	// 1 disables sub-pixel refinement.
	Refinement int
}

// Find locates one edge per waveform row. All rows must share the
// same length, which must be at least the step length.
func (l Locator) Find(data [][]float64) (*Result, error) {
	if err := l.validate(data); err != nil {
		return nil, err
	}

	pixels := len(data[0])

	kernel, err := interp.Upsample(Template(l.StepLength, l.Polarity), l.Refinement)
	if err != nil {
		return nil, err
	}

	rowLen := interp.Len(pixels, l.Refinement)

	c, err := xcorr.NewCorrelator(kernel, rowLen)
	if err != nil {
		return nil, err
	}

	res := &Result{
		EdgePos:   make([]float64, len(data)),
		Amplitude: make([]float64, len(data)),
		Lags:      l.lagAxis(c.Len(), len(kernel)),
		Corr:      make([][]float64, len(data)),
	}

	rowUp := make([]float64, rowLen)

	for i, row := range data {
		corr := make([]float64, c.Len())
		res.Corr[i] = corr

		if !anyFinite(row) {
			res.EdgePos[i] = math.NaN()
			res.Amplitude[i] = math.NaN()
			fillNaN(corr)
			continue
		}

		interp.UpsampleTo(rowUp, row, l.Refinement)

		if err := c.Correlate(corr, rowUp); err != nil {
			return nil, err
		}

		idx, val := xcorr.FindPeak(corr)
		if !isFinite(val) {
			res.EdgePos[i] = math.NaN()
			res.Amplitude[i] = math.NaN()
			continue
		}

		res.EdgePos[i] = res.Lags[idx]
		res.Amplitude[i] = val
	}

	return res, nil
}

func (l Locator) validate(data [][]float64) error {
	if l.StepLength < 4 {
		return ErrShortStep
	}

	if l.Refinement < 1 {
		return ErrInvalidRefinement
	}

	if len(data) == 0 || len(data[0]) == 0 {
		return ErrNoData
	}

	pixels := len(data[0])
	if pixels < l.StepLength {
		return ErrShortWaveform
	}

	for _, row := range data {
		if len(row) != pixels {
			return ErrRaggedData
		}
	}

	return nil
}

// lagAxis maps correlation indices to original-pixel edge positions.
// Index k places the template start at upsampled row position
// k - (kernelLen-1); adding half the step length references the
// position to the template midpoint, where the transition sits.
func (l Locator) lagAxis(corrLen, kernelLen int) []float64 {
	lags := make([]float64, corrLen)

	r := float64(l.Refinement)
	half := float64(l.StepLength) / 2

	for k := range lags {
		lags[k] = float64(k-(kernelLen-1))/r + half
	}

	return lags
}

func anyFinite(row []float64) bool {
	for _, v := range row {
		if isFinite(v) {
			return true
		}
	}

	return false
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func fillNaN(x []float64) {
	for i := range x {
		x[i] = math.NaN()
	}
}
