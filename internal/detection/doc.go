// Package detection finds changed and structured regions in survey frames.
//
// The motion pipeline compares a reference frame with a comparison frame:
//
//  1. Difference: |ref - cmp| per pixel, resampling cmp to ref's size first
//  2. Change mask: threshold (strictly greater than the level) followed by a
//     morphological closing that merges fragments of one object
//  3. Regions: external connected components of the mask, each reduced to
//     its bounding box
//
// Single-frame analysis runs normalize, blur and Canny from the imaging
// package and extracts the external regions of the resulting edge map.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes are (x, y, width, height) with positive sizes
//
// # Backends
//
// The stages are reachable through the Backend interface. The "native"
// backend is pure Go. Building with -tags gocv registers an "opencv" backend
// that delegates to OpenCV through gocv.
//
// # Filtering
//
// Region extraction never filters by size. Minimum-size policies belong to
// the consumers of the boxes (see the report package).
package detection
