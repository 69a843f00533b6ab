// Package encoder converts optical spatial-encoder waveforms into
// sub-pixel edge positions and calibrates their pixel-to-time
// relation.
//
// An Encoder owns an immutable configuration and a background
// reference. Single matrices go through [Encoder.Process], recordings
// through [Encoder.ProcessRecording], and whole delay scans through
// [Encoder.ProcessScan] and [Encoder.CalibrateTime]:
//
//	enc, err := encoder.New("SARES20-CAMS142-M5.roi_signal_x_profile",
//	    encoder.WithStepLength(50),
//	    encoder.WithEdgePolarity(edge.Falling),
//	    encoder.WithReader(reader),
//	)
//	if err != nil { ... }
//	if err := enc.CalibrateBackground(darkWaveforms, nil); err != nil { ... }
//	res, err := enc.Process(waveforms, false)
package encoder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-encoder/edge"
	"github.com/cwbudde/algo-encoder/scanio"
)

// Engine state and input errors.
var (
	ErrNoReader        = errors.New("encoder: no recording reader configured")
	ErrMissingDarkMask = errors.New("encoder: recording carries no dark mask for the configured events channel")
	ErrUnknownMethod   = errors.New("encoder: unknown time calibration method")
)

// Encoder is the spatial-encoder processing engine.
//
// The configuration is immutable after New. The background reference
// and the stored pixels-per-femtosecond coefficient are the only
// mutable state, both guarded for concurrent scan processing.
type Encoder struct {
	cfg config

	mu       sync.RWMutex
	bg       *background
	pixPerFS float64
}

// New creates an Encoder for the given data channel. Invalid or
// conflicting options fail here, never at processing time.
func New(channel string, opts ...Option) (*Encoder, error) {
	cfg := defaultConfig(channel)

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Encoder{cfg: cfg, pixPerFS: math.NaN()}, nil
}

// Channel returns the configured spatial-encoder data channel.
func (e *Encoder) Channel() string { return e.cfg.channel }

// EventsChannel returns the configured events channel and dark-shot
// event column; the channel is empty when event-based discrimination
// is not configured.
func (e *Encoder) EventsChannel() (channel string, darkShotEvent int) {
	return e.cfg.eventsChannel, e.cfg.darkShotEvent
}

// ROI returns the configured image projection row slice.
func (e *Encoder) ROI() (lo, hi int, ok bool) {
	return e.cfg.roiLo, e.cfg.roiHi, e.cfg.roiSet
}

// EnergyAxis returns the plotting axis configured for display
// clients, nil when unset.
func (e *Encoder) EnergyAxis() []float64 { return e.cfg.energyAxis }

// PixPerFS returns the pixels-per-femtosecond coefficient stored by
// the last CalibrateTime call, NaN before any calibration.
func (e *Encoder) PixPerFS() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.pixPerFS
}

// Background returns a copy of the calibrated background reference,
// nil when no calibration has happened.
func (e *Encoder) Background() []float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.bg == nil {
		return nil
	}

	return e.bg.reference()
}

// CalibrateBackground computes the background reference as the
// column-wise mean of the dark rows of data. A nil mask averages all
// rows; a mask selecting zero rows fails with ErrNoDarkShots. Any
// prior reference is replaced wholesale.
func (e *Encoder) CalibrateBackground(data [][]float64, isDark []bool) error {
	bg, err := newBackground(e.cfg.method, data, isDark)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.bg = bg
	e.mu.Unlock()

	return nil
}

// snapshot returns the current background, which is immutable and
// safe to share across workers.
func (e *Encoder) snapshot() *background {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.bg
}

// ProcessResult holds per-shot edge positions, plus the correlation
// debug payload when requested.
type ProcessResult struct {
	// EdgePos is the sub-pixel edge position per shot, NaN when
	// undetermined.
	EdgePos []float64

	// Amplitude is the correlation peak value per shot.
	Amplitude []float64

	// Debug payload, nil unless requested: lag axis, per-shot
	// correlation curves, and background-corrected waveforms.
	Lags      []float64
	Corr      [][]float64
	Corrected [][]float64
}

// Process runs edge detection on a waveform matrix (rows = shots,
// columns = pixels). It requires a calibrated background reference
// and never mutates the input. With debug set, the result carries the
// correlation curves and corrected waveforms for inspection.
func (e *Encoder) Process(data [][]float64, debug bool) (*ProcessResult, error) {
	bg := e.snapshot()
	if bg == nil {
		return nil, ErrNotCalibrated
	}

	return e.process(bg, data, debug)
}

// ProcessRow runs edge detection on a single waveform, normalized to
// a one-row matrix.
func (e *Encoder) ProcessRow(row []float64, debug bool) (*ProcessResult, error) {
	return e.Process([][]float64{row}, debug)
}

// process runs background removal and edge detection against an
// explicit background snapshot.
func (e *Encoder) process(bg *background, data [][]float64, debug bool) (*ProcessResult, error) {
	if len(data) == 0 {
		return nil, ErrNoData
	}

	corrected, err := bg.remove(data)
	if err != nil {
		return nil, err
	}

	loc := edge.Locator{
		StepLength: e.cfg.stepLength,
		Polarity:   e.cfg.polarity,
		Refinement: e.cfg.refinement,
	}

	found, err := loc.Find(corrected)
	if err != nil {
		return nil, fmt.Errorf("encoder: edge detection: %w", err)
	}

	res := &ProcessResult{
		EdgePos:   found.EdgePos,
		Amplitude: found.Amplitude,
	}

	if debug {
		res.Lags = found.Lags
		res.Corr = found.Corr
		res.Corrected = corrected
	}

	return res, nil
}

// RecordingResult is the per-recording processing output.
type RecordingResult struct {
	ProcessResult

	// PulseIDs identifies each shot.
	PulseIDs []uint64

	// IsDark flags shots excluded from edge measurement, nil when no
	// discrimination strategy is configured.
	IsDark []bool

	// Images carries the raw camera frames, only when debug was
	// requested and the reader supplies them.
	Images [][][]float64
}

// ProcessRecording reads and processes one recording.
//
// With a dark-shot discrimination strategy configured, the background
// is calibrated from this recording's own dark shots; the engine's
// stored reference is left untouched, so concurrent scan workers
// never observe each other's per-file backgrounds. Without a
// strategy, a previously calibrated reference is required.
//
// Dark shots carry no edge: their positions are forced to NaN.
func (e *Encoder) ProcessRecording(path string, debug bool) (*RecordingResult, error) {
	if e.cfg.reader == nil {
		return nil, ErrNoReader
	}

	rec, err := e.cfg.reader.ReadRecording(path, debug)
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}

	isDark, err := e.resolveDarkMask(rec)
	if err != nil {
		return nil, err
	}

	bg, err := e.recordingBackground(rec.Waveforms, isDark)
	if err != nil {
		return nil, err
	}

	res, err := e.process(bg, rec.Waveforms, debug)
	if err != nil {
		return nil, err
	}

	if isDark != nil {
		for i, dark := range isDark {
			if dark {
				res.EdgePos[i] = math.NaN()
			}
		}
	}

	out := &RecordingResult{
		ProcessResult: *res,
		PulseIDs:      rec.PulseIDs,
		IsDark:        isDark,
	}

	if debug {
		out.Images = rec.Images
	}

	return out, nil
}

// resolveDarkMask derives the per-shot dark mask from the configured
// discrimination strategy.
func (e *Encoder) resolveDarkMask(rec scanio.Recording) ([]bool, error) {
	switch {
	case e.cfg.darkFilter != nil:
		mask := make([]bool, len(rec.PulseIDs))
		for i, id := range rec.PulseIDs {
			mask[i] = e.cfg.darkFilter(id)
		}

		return mask, nil

	case e.cfg.eventsChannel != "":
		// The reader decodes the events channel into the mask.
		if rec.IsDark == nil {
			return nil, ErrMissingDarkMask
		}

		return rec.IsDark, nil

	default:
		return nil, nil
	}
}

// recordingBackground picks the background for one recording: a
// per-file calibration from its dark shots when a strategy is
// configured, the stored reference otherwise.
func (e *Encoder) recordingBackground(waveforms [][]float64, isDark []bool) (*background, error) {
	if e.cfg.hasDarkStrategy() {
		return newBackground(e.cfg.method, waveforms, isDark)
	}

	bg := e.snapshot()
	if bg == nil {
		return nil, ErrNotCalibrated
	}

	return bg, nil
}

// StepResult is a per-recording result annotated with its scan
// position.
type StepResult struct {
	RecordingResult

	// ScanPosFS is the scan readback position in femtoseconds.
	ScanPosFS float64

	// Path is the recording file for this step.
	Path string
}

// ProcessScan processes every recording of a scan descriptor,
// fanning out across at most workers goroutines. The result order
// always matches the descriptor order regardless of scheduling; any
// single failure aborts the whole call with no partial results.
func (e *Encoder) ProcessScan(ctx context.Context, scanPath string, workers int, debug bool) ([]StepResult, error) {
	if !e.cfg.hasDarkStrategy() && e.snapshot() == nil {
		return nil, ErrNotCalibrated
	}

	scan, err := e.readScan(scanPath)
	if err != nil {
		return nil, err
	}

	results := make([]StepResult, len(scan.Steps))

	err = e.forEachStep(ctx, scan, workers, func(i int, step scanio.Step) error {
		rec, err := e.ProcessRecording(step.Path, debug)
		if err != nil {
			return fmt.Errorf("encoder: scan step %d (%s): %w", i, step.Path, err)
		}

		results[i] = StepResult{
			RecordingResult: *rec,
			ScanPosFS:       step.PosFS,
			Path:            step.Path,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// readScan validates reader presence and loads a scan descriptor.
func (e *Encoder) readScan(scanPath string) (scanio.Scan, error) {
	if e.cfg.reader == nil {
		return scanio.Scan{}, ErrNoReader
	}

	scan, err := scanio.ReadScan(scanPath)
	if err != nil {
		return scanio.Scan{}, fmt.Errorf("encoder: %w", err)
	}

	return scan, nil
}

// forEachStep runs fn for every scan step on at most workers
// goroutines. Results are index-addressed by the callers, so ordering
// is independent of completion order; the first error cancels the
// remaining work.
func (e *Encoder) forEachStep(ctx context.Context, scan scanio.Scan, workers int, fn func(i int, step scanio.Step) error) error {
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, step := range scan.Steps {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			return fn(i, step)
		})
	}

	return g.Wait()
}
