package scanio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestParseScanFlatReadbacks(t *testing.T) {
	raw := []byte(`{
		"scan_readbacks": [-1e-13, 0, 1e-13],
		"scan_files": [["a.h5"], ["b.h5"], ["c.h5"]]
	}`)

	scan, err := ParseScan(raw)
	if err != nil {
		t.Fatalf("ParseScan: %v", err)
	}

	wantPos := []float64{-100, 0, 100}
	wantPath := []string{"a.h5", "b.h5", "c.h5"}

	if len(scan.Steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(scan.Steps))
	}

	for i, step := range scan.Steps {
		if math.Abs(step.PosFS-wantPos[i]) > 1e-9 {
			t.Errorf("step %d at %v fs, want %v", i, step.PosFS, wantPos[i])
		}

		if step.Path != wantPath[i] {
			t.Errorf("step %d path %q, want %q", i, step.Path, wantPath[i])
		}
	}
}

func TestParseScanNestedReadbacks(t *testing.T) {
	raw := []byte(`{
		"scan_readbacks": [[-2e-13], [1.5e-13]],
		"scan_files": [["a.h5", "a.cam.h5"], ["b.h5"]]
	}`)

	scan, err := ParseScan(raw)
	if err != nil {
		t.Fatalf("ParseScan: %v", err)
	}

	if len(scan.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(scan.Steps))
	}

	if math.Abs(scan.Steps[0].PosFS+200) > 1e-9 || math.Abs(scan.Steps[1].PosFS-150) > 1e-9 {
		t.Errorf("positions = %v, %v", scan.Steps[0].PosFS, scan.Steps[1].PosFS)
	}

	// The waveform recording is the first file of each step.
	if scan.Steps[0].Path != "a.h5" {
		t.Errorf("step 0 path %q, want a.h5", scan.Steps[0].Path)
	}
}

func TestParseScanErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty scan", `{"scan_readbacks": [], "scan_files": []}`, ErrEmptyScan},
		{"count mismatch", `{"scan_readbacks": [0, 1e-13], "scan_files": [["a.h5"]]}`, ErrScanMismatch},
		{"step without files", `{"scan_readbacks": [0], "scan_files": [[]]}`, ErrScanMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseScan([]byte(tt.raw)); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := ParseScan([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}

	if _, err := ParseScan([]byte(`{"scan_readbacks": "x", "scan_files": []}`)); err == nil {
		t.Error("expected error for malformed readbacks")
	}
}

func TestReadScanRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.json")

	raw := []byte(`{"scan_readbacks": [[0], [1e-15]], "scan_files": [["a.h5"], ["b.h5"]]}`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("writing scan: %v", err)
	}

	scan, err := ReadScan(path)
	if err != nil {
		t.Fatalf("ReadScan: %v", err)
	}

	got := scan.Positions()
	if len(got) != 2 || got[0] != 0 || math.Abs(got[1]-1) > 1e-9 {
		t.Errorf("Positions() = %v", got)
	}
}

func TestReadScanMissingFile(t *testing.T) {
	if _, err := ReadScan(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing descriptor")
	}
}

func TestMemReader(t *testing.T) {
	rec := Recording{
		Waveforms: [][]float64{{1, 2, 3}},
		PulseIDs:  []uint64{7},
		Images:    [][][]float64{{{1}}},
	}

	reader := MemReader{"rec": rec}

	plain, err := reader.ReadRecording("rec", false)
	if err != nil {
		t.Fatalf("ReadRecording: %v", err)
	}

	if plain.Images != nil {
		t.Error("images returned without being requested")
	}

	withImages, err := reader.ReadRecording("rec", true)
	if err != nil {
		t.Fatalf("ReadRecording: %v", err)
	}

	if withImages.Images == nil {
		t.Error("images missing when requested")
	}

	if _, err := reader.ReadRecording("absent", false); !errors.Is(err, ErrUnknownFile) {
		t.Errorf("got %v, want ErrUnknownFile", err)
	}

	if _, err := (MemReader{"empty": {}}).ReadRecording("empty", false); !errors.Is(err, ErrNoRecordingData) {
		t.Errorf("got %v, want ErrNoRecordingData", err)
	}
}

func TestReaderFunc(t *testing.T) {
	var gotPath string

	reader := ReaderFunc(func(path string, wantImages bool) (Recording, error) {
		gotPath = path
		return Recording{Waveforms: [][]float64{{1}}}, nil
	})

	if _, err := reader.ReadRecording("somewhere", false); err != nil {
		t.Fatalf("ReadRecording: %v", err)
	}

	if gotPath != "somewhere" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestJSONReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.json")

	raw := []byte(`{
		"waveforms": [[1, 2], [3, 4]],
		"pulse_ids": [5, 10],
		"is_dark": [false, true],
		"images": [[[1]], [[2]]]
	}`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("writing recording: %v", err)
	}

	rec, err := JSONReader{}.ReadRecording(path, false)
	if err != nil {
		t.Fatalf("ReadRecording: %v", err)
	}

	if len(rec.Waveforms) != 2 || rec.Waveforms[1][1] != 4 {
		t.Errorf("waveforms = %v", rec.Waveforms)
	}

	if len(rec.PulseIDs) != 2 || rec.PulseIDs[1] != 10 {
		t.Errorf("pulse ids = %v", rec.PulseIDs)
	}

	if !rec.IsDark[1] || rec.IsDark[0] {
		t.Errorf("dark mask = %v", rec.IsDark)
	}

	if rec.Images != nil {
		t.Error("images returned without being requested")
	}

	withImages, err := JSONReader{}.ReadRecording(path, true)
	if err != nil {
		t.Fatalf("ReadRecording: %v", err)
	}

	if len(withImages.Images) != 2 {
		t.Errorf("images = %v", withImages.Images)
	}
}

func TestJSONReaderErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := (JSONReader{}).ReadRecording(filepath.Join(dir, "absent.json"), false); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{`), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	if _, err := (JSONReader{}).ReadRecording(bad, false); err == nil {
		t.Error("expected error for malformed JSON")
	}

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte(`{"waveforms": []}`), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	if _, err := (JSONReader{}).ReadRecording(empty, false); !errors.Is(err, ErrNoRecordingData) {
		t.Errorf("got %v, want ErrNoRecordingData", err)
	}
}
