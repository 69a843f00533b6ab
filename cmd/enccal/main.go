// Command enccal runs a pixel-to-femtosecond calibration over a delay
// scan and prints the per-step samples and the fitted conversion.
//
// Recordings are expected in the JSON layout understood by
// scanio.JSONReader.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pterm/pterm"

	"github.com/cwbudde/algo-encoder/edge"
	"github.com/cwbudde/algo-encoder/encoder"
	"github.com/cwbudde/algo-encoder/scanio"
)

func main() {
	scanPath := flag.String("scan", "", "JSON scan descriptor to calibrate from")
	channel := flag.String("channel", "encoder", "spatial encoder data channel")
	method := flag.String("method", "avg_edge", "aggregation method: avg_edge or avg_wf")
	workers := flag.Int("workers", 1, "parallel workers for scan processing")
	stepLength := flag.Int("step-length", 50, "step template length in pixels")
	polarity := flag.String("polarity", "falling", "edge polarity: falling or rising")
	bgMethod := flag.String("background", "div", "background removal: div or sub")
	refinement := flag.Int("refinement", 1, "sub-pixel refinement factor")
	darkMod := flag.Uint64("dark-modulo", 0, "treat pulse IDs divisible by this as dark shots (0 disables)")
	flag.Parse()

	if *scanPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: enccal -scan <scan.json> [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(*scanPath, *channel, *method, *workers, *stepLength, *polarity, *bgMethod, *refinement, *darkMod); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run(scanPath, channel, methodName string, workers, stepLength int, polarityName, bgName string, refinement int, darkMod uint64) error {
	pol, err := edge.ParsePolarity(polarityName)
	if err != nil {
		return err
	}

	bg, err := encoder.ParseBackgroundMethod(bgName)
	if err != nil {
		return err
	}

	method, err := encoder.ParseTimeCalibrationMethod(methodName)
	if err != nil {
		return err
	}

	opts := []encoder.Option{
		encoder.WithStepLength(stepLength),
		encoder.WithEdgePolarity(pol),
		encoder.WithBackgroundMethod(bg),
		encoder.WithRefinement(refinement),
		encoder.WithReader(scanio.JSONReader{}),
	}

	if darkMod > 0 {
		opts = append(opts, encoder.WithDarkShotFilter(func(pulseID uint64) bool {
			return pulseID%darkMod == 0
		}))
	}

	enc, err := encoder.New(channel, opts...)
	if err != nil {
		return err
	}

	pterm.Info.Printfln("calibrating %s (%s, %d workers)", scanPath, method, workers)

	cal, err := enc.CalibrateTime(context.Background(), scanPath, method, workers)
	if err != nil {
		return err
	}

	rows := pterm.TableData{{"step", "scan pos (fs)", "edge pos (pix)"}}
	for i := range cal.ScanPosFS {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%.3f", cal.ScanPosFS[i]),
			fmt.Sprintf("%.3f", cal.EdgePosPix[i]),
		})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}

	pterm.Success.Printfln("fit: edge_pix = %.6f * t_fs + %.3f", cal.Fit.Slope, cal.Fit.Intercept)
	pterm.Success.Printfln("conversion: %.6f pix/fs (%.6f fs/pix)", cal.Fit.Slope, cal.Fit.FSPerPix())

	return nil
}
