package scanio

import (
	"encoding/json"
	"fmt"
	"os"
)

// jsonRecording is a plain-JSON recording layout used by tools and
// examples in place of the facility HDF5 files.
type jsonRecording struct {
	Waveforms [][]float64   `json:"waveforms"`
	PulseIDs  []uint64      `json:"pulse_ids"`
	IsDark    []bool        `json:"is_dark,omitempty"`
	Images    [][][]float64 `json:"images,omitempty"`
}

// JSONReader decodes recordings stored as JSON files.
type JSONReader struct{}

// ReadRecording reads one JSON recording file.
func (JSONReader) ReadRecording(path string, wantImages bool) (Recording, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Recording{}, fmt.Errorf("scanio: reading recording: %w", err)
	}

	var jr jsonRecording
	if err := json.Unmarshal(raw, &jr); err != nil {
		return Recording{}, fmt.Errorf("scanio: parsing recording %q: %w", path, err)
	}

	if len(jr.Waveforms) == 0 {
		return Recording{}, fmt.Errorf("scanio: %q: %w", path, ErrNoRecordingData)
	}

	rec := Recording{
		Waveforms: jr.Waveforms,
		PulseIDs:  jr.PulseIDs,
		IsDark:    jr.IsDark,
	}

	if wantImages {
		rec.Images = jr.Images
	}

	return rec, nil
}
