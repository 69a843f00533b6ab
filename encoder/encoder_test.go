package encoder

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-encoder/dsp/signal"
	"github.com/cwbudde/algo-encoder/edge"
	"github.com/cwbudde/algo-encoder/scanio"
)

const (
	testPixels     = 120
	testEdgePix    = 50
	testStepLength = 20
)

// scenarioRecording builds the reference scenario: light shots with a
// rising intensity step at testEdgePix on a flat baseline, dark shots
// of baseline noise. Pulse IDs divisible by 5 are dark.
func scenarioRecording(t *testing.T) scanio.Recording {
	t.Helper()

	gen := signal.NewGenerator(signal.WithSeed(1))

	light, err := gen.Step(testPixels, testEdgePix, 10, 30)
	if err != nil {
		t.Fatalf("generating light row: %v", err)
	}

	rec := scanio.Recording{}

	for id := uint64(1); id <= 10; id++ {
		if id%5 == 0 {
			dark, err := signal.NewGenerator(signal.WithSeed(int64(id))).Noise(testPixels, 10, 0.5)
			if err != nil {
				t.Fatalf("generating dark row: %v", err)
			}

			rec.Waveforms = append(rec.Waveforms, dark)
		} else {
			rec.Waveforms = append(rec.Waveforms, append([]float64(nil), light...))
		}

		rec.PulseIDs = append(rec.PulseIDs, id)
	}

	return rec
}

func isDarkPulse(id uint64) bool { return id%5 == 0 }

func TestProcessRowMatchesSingleRowMatrix(t *testing.T) {
	e, _ := New("ch", WithStepLength(testStepLength))

	dark, err := signal.NewGenerator(signal.WithSeed(3)).Noise(testPixels, 10, 0.5)
	if err != nil {
		t.Fatalf("generating dark row: %v", err)
	}

	if err := e.CalibrateBackground([][]float64{dark}, nil); err != nil {
		t.Fatalf("CalibrateBackground: %v", err)
	}

	row, err := signal.NewGenerator().Step(testPixels, testEdgePix, 10, 30)
	if err != nil {
		t.Fatalf("generating row: %v", err)
	}

	asRow, err := e.ProcessRow(row, true)
	if err != nil {
		t.Fatalf("ProcessRow: %v", err)
	}

	asMatrix, err := e.Process([][]float64{row}, true)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(asRow.EdgePos) != 1 || len(asMatrix.EdgePos) != 1 {
		t.Fatalf("result lengths: %d, %d", len(asRow.EdgePos), len(asMatrix.EdgePos))
	}

	if asRow.EdgePos[0] != asMatrix.EdgePos[0] {
		t.Errorf("edge positions differ: %v vs %v", asRow.EdgePos[0], asMatrix.EdgePos[0])
	}

	for i := range asRow.Corr[0] {
		if asRow.Corr[0][i] != asMatrix.Corr[0][i] {
			t.Fatalf("correlation curves differ at %d", i)
		}
	}
}

func TestProcessRecordingScenario(t *testing.T) {
	rec := scenarioRecording(t)
	reader := scanio.MemReader{"rec": rec}

	e, err := New("ch",
		WithStepLength(testStepLength),
		WithEdgePolarity(edge.Rising),
		WithDarkShotFilter(isDarkPulse),
		WithReader(reader),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := e.ProcessRecording("rec", false)
	if err != nil {
		t.Fatalf("ProcessRecording: %v", err)
	}

	if len(res.EdgePos) != 10 {
		t.Fatalf("got %d edge positions, want 10", len(res.EdgePos))
	}

	for i, id := range res.PulseIDs {
		if isDarkPulse(id) {
			if !math.IsNaN(res.EdgePos[i]) {
				t.Errorf("dark shot %d: edge = %v, want NaN", id, res.EdgePos[i])
			}

			if !res.IsDark[i] {
				t.Errorf("dark shot %d not flagged", id)
			}

			continue
		}

		if res.IsDark[i] {
			t.Errorf("light shot %d flagged dark", id)
		}

		if math.Abs(res.EdgePos[i]-testEdgePix) > 1 {
			t.Errorf("light shot %d: edge at %v, want about %d", id, res.EdgePos[i], testEdgePix)
		}
	}
}

func TestProcessRecordingOppositePolarityMissesEdge(t *testing.T) {
	rec := scenarioRecording(t)
	reader := scanio.MemReader{"rec": rec}

	e, err := New("ch",
		WithStepLength(testStepLength),
		WithEdgePolarity(edge.Falling),
		WithDarkShotFilter(isDarkPulse),
		WithReader(reader),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := e.ProcessRecording("rec", false)
	if err != nil {
		t.Fatalf("ProcessRecording: %v", err)
	}

	for i, id := range res.PulseIDs {
		if isDarkPulse(id) {
			continue
		}

		if math.Abs(res.EdgePos[i]-testEdgePix) < 5 {
			t.Errorf("light shot %d: opposite polarity still near the edge: %v", id, res.EdgePos[i])
		}
	}
}

func TestProcessRecordingEventsMask(t *testing.T) {
	rec := scenarioRecording(t)

	// The reader supplies the events-derived mask.
	rec.IsDark = make([]bool, len(rec.PulseIDs))
	for i, id := range rec.PulseIDs {
		rec.IsDark[i] = isDarkPulse(id)
	}

	reader := scanio.MemReader{"rec": rec}

	e, err := New("ch",
		WithStepLength(testStepLength),
		WithEdgePolarity(edge.Rising),
		WithEventsChannel("events", 21),
		WithReader(reader),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := e.ProcessRecording("rec", false)
	if err != nil {
		t.Fatalf("ProcessRecording: %v", err)
	}

	for i := range res.EdgePos {
		if res.IsDark[i] != isDarkPulse(res.PulseIDs[i]) {
			t.Errorf("mask mismatch at %d", i)
		}

		if res.IsDark[i] && !math.IsNaN(res.EdgePos[i]) {
			t.Errorf("dark shot %d: edge = %v, want NaN", i, res.EdgePos[i])
		}
	}
}

func TestProcessRecordingMissingEventsMask(t *testing.T) {
	rec := scenarioRecording(t) // no IsDark
	reader := scanio.MemReader{"rec": rec}

	e, err := New("ch",
		WithStepLength(testStepLength),
		WithEventsChannel("events", 21),
		WithReader(reader),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := e.ProcessRecording("rec", false); !errors.Is(err, ErrMissingDarkMask) {
		t.Errorf("got %v, want ErrMissingDarkMask", err)
	}
}

func TestProcessRecordingRequiresBackgroundWithoutStrategy(t *testing.T) {
	rec := scenarioRecording(t)
	reader := scanio.MemReader{"rec": rec}

	e, err := New("ch", WithStepLength(testStepLength), WithReader(reader))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := e.ProcessRecording("rec", false); !errors.Is(err, ErrNotCalibrated) {
		t.Errorf("got %v, want ErrNotCalibrated", err)
	}

	// A calibrated reference unblocks processing; without a strategy
	// there is no dark mask and no NaN forcing.
	dark, _ := signal.NewGenerator(signal.WithSeed(5)).Noise(testPixels, 10, 0.5)
	if err := e.CalibrateBackground([][]float64{dark}, nil); err != nil {
		t.Fatalf("CalibrateBackground: %v", err)
	}

	res, err := e.ProcessRecording("rec", false)
	if err != nil {
		t.Fatalf("ProcessRecording: %v", err)
	}

	if res.IsDark != nil {
		t.Errorf("IsDark = %v without a strategy, want nil", res.IsDark)
	}
}

func TestProcessRecordingNoReader(t *testing.T) {
	e, err := New("ch")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := e.ProcessRecording("rec", false); !errors.Is(err, ErrNoReader) {
		t.Errorf("got %v, want ErrNoReader", err)
	}
}

func TestProcessRecordingImagesOnlyInDebug(t *testing.T) {
	rec := scenarioRecording(t)
	rec.Images = make([][][]float64, len(rec.Waveforms))

	reader := scanio.MemReader{"rec": rec}

	e, err := New("ch",
		WithStepLength(testStepLength),
		WithEdgePolarity(edge.Rising),
		WithDarkShotFilter(isDarkPulse),
		WithReader(reader),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	plain, err := e.ProcessRecording("rec", false)
	if err != nil {
		t.Fatalf("ProcessRecording: %v", err)
	}

	if plain.Images != nil {
		t.Error("images attached without debug")
	}

	debug, err := e.ProcessRecording("rec", true)
	if err != nil {
		t.Fatalf("ProcessRecording debug: %v", err)
	}

	if debug.Images == nil {
		t.Error("images missing in debug output")
	}

	if debug.Lags == nil || debug.Corr == nil || debug.Corrected == nil {
		t.Error("debug payload incomplete")
	}
}
