// Package scanio defines the on-disk interfaces the encoder engine
// consumes: scan descriptors that pair calibration positions with
// recording files, and the Reader contract for per-pulse recordings.
//
// Recording decoding itself (HDF5 camera files at the facilities this
// module targets) is an external collaborator; the engine only ever
// talks to the Reader interface.
package scanio

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Errors returned by scan descriptor parsing.
var (
	ErrEmptyScan       = errors.New("scanio: scan contains no steps")
	ErrScanMismatch    = errors.New("scanio: scan readback and file counts differ")
	ErrUnknownFile     = errors.New("scanio: unknown recording file")
	ErrNoRecordingData = errors.New("scanio: recording has no waveforms")
)

// Step is one scan position with its associated recording file.
type Step struct {
	// PosFS is the scan readback position in femtoseconds.
	PosFS float64

	// Path locates the recording for this step.
	Path string
}

// Scan is an ordered scan descriptor. Step order defines the
// calibration sample order and is preserved through batch processing.
type Scan struct {
	Steps []Step
}

// Positions returns the scan positions in step order.
func (s Scan) Positions() []float64 {
	out := make([]float64, len(s.Steps))
	for i, st := range s.Steps {
		out[i] = st.PosFS
	}

	return out
}

// scanFile is the JSON layout written by the scan tool: readback
// positions in seconds, and one file list per step with the waveform
// recording first.
type scanFile struct {
	ScanReadbacks json.RawMessage `json:"scan_readbacks"`
	ScanFiles     [][]string      `json:"scan_files"`
}

// ReadScan parses a JSON scan descriptor. Readback positions are
// converted from seconds to femtoseconds; nested readback lists are
// flattened one level.
func ReadScan(path string) (Scan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Scan{}, fmt.Errorf("scanio: reading scan descriptor: %w", err)
	}

	return ParseScan(raw)
}

// ParseScan parses scan descriptor JSON.
func ParseScan(raw []byte) (Scan, error) {
	var sf scanFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return Scan{}, fmt.Errorf("scanio: parsing scan descriptor: %w", err)
	}

	positions, err := flattenReadbacks(sf.ScanReadbacks)
	if err != nil {
		return Scan{}, err
	}

	if len(positions) == 0 {
		return Scan{}, ErrEmptyScan
	}

	if len(positions) != len(sf.ScanFiles) {
		return Scan{}, ErrScanMismatch
	}

	scan := Scan{Steps: make([]Step, len(positions))}

	for i, pos := range positions {
		if len(sf.ScanFiles[i]) == 0 {
			return Scan{}, fmt.Errorf("scanio: step %d has no files: %w", i, ErrScanMismatch)
		}

		scan.Steps[i] = Step{
			PosFS: pos * 1e15, // seconds -> femtoseconds
			// The waveform recording is the first file of each step.
			Path: sf.ScanFiles[i][0],
		}
	}

	return scan, nil
}

// flattenReadbacks accepts either a flat list of positions or a list
// of single-element lists, as both occur in the wild.
func flattenReadbacks(raw json.RawMessage) ([]float64, error) {
	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}

	var nested [][]float64
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("scanio: parsing scan readbacks: %w", err)
	}

	out := make([]float64, 0, len(nested))
	for _, group := range nested {
		out = append(out, group...)
	}

	return out, nil
}
