// Package report writes detection results: the object CSV, annotated
// frames and the stage montage of single-frame analysis.
//
// # CSV Format
//
// The object file has the header x,y,width,height followed by one row per
// bounding box, in the order the boxes were found. Coordinates are integer
// pixels with the origin at the top-left corner.
//
// # Filtering
//
// Display and persistence are filtered independently by a Policy. With the
// default policy every box is written to the CSV while only boxes larger
// than 5x5 are drawn.
package report
