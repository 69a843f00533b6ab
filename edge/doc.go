// Package edge locates step-shaped transitions in waveforms with
// sub-pixel precision.
//
// Detection correlates every waveform row against a zero-mean step
// template: the correlation is maximal exactly where the data's own
// transition aligns with the template's midpoint. Sub-pixel precision
// comes from linearly upsampling both the rows and the template
// before correlating; the discrete algorithm is unchanged, only the
// grid is finer.
//
//	loc := edge.Locator{StepLength: 50, Polarity: edge.Falling, Refinement: 4}
//	res, err := loc.Find(waveforms)
//	// res.EdgePos[i] is the sub-pixel edge position of row i
//
// Positions are reported in original-pixel units regardless of the
// refinement factor.
package edge
