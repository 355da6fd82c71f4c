// Package pipeline runs the two end-to-end workflows: single-frame
// analysis and two-frame motion detection.
//
// A Service fetches frames from a source.Provider, runs the detection
// package, writes the results through the report package and, when a
// catalog is attached, records each run. Output files are overwritten on
// every run:
//
//	single:  frame_annotated.png, frame_montage.png
//	motion:  detected_diff.png, objects.csv, detected_objects.png,
//	         motion_montage.png
package pipeline
