package encoder

import (
	"context"
	"fmt"
	"math"

	"github.com/cwbudde/algo-encoder/scanio"
	"github.com/cwbudde/algo-encoder/timecal"
)

// TimeCalibrationMethod selects the per-step aggregation strategy for
// pixel-to-time calibration.
type TimeCalibrationMethod int

const (
	// AverageEdge detects an edge on every individual shot of a step
	// and averages the per-shot positions, ignoring undetermined
	// shots.
	AverageEdge TimeCalibrationMethod = iota

	// AverageWaveform averages all waveforms of a step first and
	// detects a single edge on the mean waveform.
	AverageWaveform
)

// String returns the method name.
func (m TimeCalibrationMethod) String() string {
	switch m {
	case AverageEdge:
		return "avg_edge"
	case AverageWaveform:
		return "avg_wf"
	default:
		return fmt.Sprintf("TimeCalibrationMethod(%d)", int(m))
	}
}

// ParseTimeCalibrationMethod converts a method name to a
// TimeCalibrationMethod.
func ParseTimeCalibrationMethod(s string) (TimeCalibrationMethod, error) {
	switch s {
	case "avg_edge":
		return AverageEdge, nil
	case "avg_wf":
		return AverageWaveform, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// TimeCalibration holds the per-step calibration samples and the
// fitted pixel-to-femtosecond relation.
type TimeCalibration struct {
	// ScanPosFS are the scan positions in femtoseconds, in
	// descriptor order.
	ScanPosFS []float64

	// EdgePosPix are the aggregated edge positions in pixels, paired
	// element-wise with ScanPosFS.
	EdgePosPix []float64

	// Fit is the linear relation edge_pix = Slope*t_fs + Intercept.
	Fit timecal.Fit
}

// CalibrateTime fits the pixel-to-femtosecond conversion from a delay
// scan and stores the resulting pixels-per-femtosecond coefficient on
// the engine. It requires a calibrated background reference unless
// per-file dark-shot discrimination is configured.
func (e *Encoder) CalibrateTime(ctx context.Context, scanPath string, method TimeCalibrationMethod, workers int) (*TimeCalibration, error) {
	if !e.cfg.hasDarkStrategy() && e.snapshot() == nil {
		return nil, ErrNotCalibrated
	}

	var (
		cal *TimeCalibration
		err error
	)

	switch method {
	case AverageWaveform:
		cal, err = e.calibrateAvgWaveform(ctx, scanPath, workers)
	case AverageEdge:
		cal, err = e.calibrateAvgEdge(ctx, scanPath, workers)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownMethod, method)
	}

	if err != nil {
		return nil, err
	}

	fit, err := timecal.Linear(cal.ScanPosFS, cal.EdgePosPix)
	if err != nil {
		return nil, err
	}
	cal.Fit = fit

	e.mu.Lock()
	e.pixPerFS = fit.Slope
	e.mu.Unlock()

	return cal, nil
}

// calibrateAvgWaveform produces one edge position per step from the
// mean of all waveforms in that step's recording.
func (e *Encoder) calibrateAvgWaveform(ctx context.Context, scanPath string, workers int) (*TimeCalibration, error) {
	scan, err := e.readScan(scanPath)
	if err != nil {
		return nil, err
	}

	cal := &TimeCalibration{
		ScanPosFS:  scan.Positions(),
		EdgePosPix: make([]float64, len(scan.Steps)),
	}

	err = e.forEachStep(ctx, scan, workers, func(i int, step scanio.Step) error {
		rec, err := e.cfg.reader.ReadRecording(step.Path, false)
		if err != nil {
			return fmt.Errorf("encoder: scan step %d (%s): %w", i, step.Path, err)
		}

		isDark, err := e.resolveDarkMask(rec)
		if err != nil {
			return err
		}

		bg, err := e.recordingBackground(rec.Waveforms, isDark)
		if err != nil {
			return err
		}

		mean, err := meanWaveform(rec.Waveforms)
		if err != nil {
			return err
		}

		res, err := e.process(bg, [][]float64{mean}, false)
		if err != nil {
			return err
		}

		cal.EdgePosPix[i] = res.EdgePos[0]

		return nil
	})
	if err != nil {
		return nil, err
	}

	return cal, nil
}

// calibrateAvgEdge produces one edge position per step by averaging
// the per-shot positions of a full scan processing run, skipping
// undetermined shots.
func (e *Encoder) calibrateAvgEdge(ctx context.Context, scanPath string, workers int) (*TimeCalibration, error) {
	steps, err := e.ProcessScan(ctx, scanPath, workers, false)
	if err != nil {
		return nil, err
	}

	cal := &TimeCalibration{
		ScanPosFS:  make([]float64, len(steps)),
		EdgePosPix: make([]float64, len(steps)),
	}

	for i, step := range steps {
		cal.ScanPosFS[i] = step.ScanPosFS
		cal.EdgePosPix[i] = nanMean(step.EdgePos)
	}

	return cal, nil
}

// meanWaveform averages waveform rows column-wise.
func meanWaveform(data [][]float64) ([]float64, error) {
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, ErrNoData
	}

	pixels := len(data[0])
	mean := make([]float64, pixels)

	for _, row := range data {
		if len(row) != pixels {
			return nil, ErrRaggedData
		}

		for j, v := range row {
			mean[j] += v
		}
	}

	scale := 1 / float64(len(data))
	for j := range mean {
		mean[j] *= scale
	}

	return mean, nil
}

// nanMean averages the finite values of x, NaN when there are none.
func nanMean(x []float64) float64 {
	var (
		sum   float64
		count int
	)

	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}

		sum += v
		count++
	}

	if count == 0 {
		return math.NaN()
	}

	return sum / float64(count)
}
