package scanio

import "fmt"

// Recording holds the decoded contents of one per-pulse waveform
// file: one waveform row per pulse, pulse identifiers, and, when a
// dark-shot discrimination strategy applies, a per-pulse dark mask.
type Recording struct {
	// Waveforms holds one fixed-length intensity waveform per pulse.
	Waveforms [][]float64

	// PulseIDs identifies each pulse; zeroed IDs are expected to be
	// filtered out by the reader.
	PulseIDs []uint64

	// IsDark flags pulses without beam, nil when no discrimination
	// strategy is configured.
	IsDark []bool

	// Images holds the raw camera frames, present only when
	// requested.
	Images [][][]float64
}

// Reader yields recordings by path. Implementations decode a specific
// on-disk layout; the engine is agnostic to it.
type Reader interface {
	ReadRecording(path string, wantImages bool) (Recording, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(path string, wantImages bool) (Recording, error)

// ReadRecording calls f.
func (f ReaderFunc) ReadRecording(path string, wantImages bool) (Recording, error) {
	return f(path, wantImages)
}

// MemReader serves recordings from memory, keyed by path. It backs
// tests and examples.
type MemReader map[string]Recording

// ReadRecording returns the stored recording for path.
func (m MemReader) ReadRecording(path string, wantImages bool) (Recording, error) {
	rec, ok := m[path]
	if !ok {
		return Recording{}, fmt.Errorf("scanio: %q: %w", path, ErrUnknownFile)
	}

	if len(rec.Waveforms) == 0 {
		return Recording{}, fmt.Errorf("scanio: %q: %w", path, ErrNoRecordingData)
	}

	if !wantImages {
		rec.Images = nil
	}

	return rec, nil
}
