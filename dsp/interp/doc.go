// Package interp provides linear grid upsampling for sub-sample
// signal alignment.
//
// [Upsample] refines a waveform onto a grid with factor points per
// original sample using straight-line interpolation between neighbor
// samples. It deliberately performs no anti-alias filtering: the
// consumers in this module (cross-correlation peak refinement) depend
// on the upsampled signal passing exactly through the original
// samples.
package interp
