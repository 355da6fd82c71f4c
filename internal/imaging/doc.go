// Package imaging provides the grayscale image primitives used by the sky
// survey pipelines.
//
// Every function here consumes and produces 8-bit grayscale rasters
// (*image.Gray) anchored at the origin. Inputs are never modified in place;
// each operation allocates a fresh output so that pipeline stages can be
// composed without shared mutable state.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner:
//   - X increases rightward
//   - Y increases downward
//   - Rectangles are inclusive at Min and exclusive at Max
//
// # Operations
//
//   - ToGray / CloneGray: conversion of decoded images to origin-anchored gray
//   - NormalizeBrightness: min-max stretch to the full [0,255] range
//   - GaussianBlur: separable Gaussian smoothing (OpenCV sigma rule)
//   - Canny / SobelMagnitude: gradient based edge maps
//   - ResizeGray: deterministic resampling with a named filter
//   - CropRegion: padded, optionally scaled cut-outs encoded as PNG
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and can be called concurrently on different images.
//
// # Error Handling
//
// Functions return errors for nil or zero-area inputs, unknown resample
// filters and file I/O or encoding failures.
package imaging
