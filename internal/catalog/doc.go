// Package catalog keeps a SQLite record of detection runs and the boxes
// each run found, so results can be listed and compared after the output
// files have been moved or overwritten.
//
// The database uses the pure Go modernc.org/sqlite driver; no cgo toolchain
// is required.
package catalog
