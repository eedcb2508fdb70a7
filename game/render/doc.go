// Package render turns piece outlines into things a client can draw: SVG
// path data for the clip and stroke layers, alpha masks and per-tile PNG
// cut-outs of the artwork, and eased scatter transition frames.
//
// Every function here is pure. The same outline from the puzzle package is
// used for the clip, the stroke and the guide overlay so the three always
// line up pixel for pixel.
package render
