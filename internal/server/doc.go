// Package server implements the MCP (Model Context Protocol) server for the
// sky survey tools.
//
// This package provides a JSON-RPC 2.0 server that exposes image acquisition
// and change detection through the MCP protocol, so that an AI assistant can
// fetch survey frames, run the pipelines and inspect what they found.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// Lines that are not valid JSON are answered with a -32700 parse error.
//
// # Available Tools
//
// Acquisition:
//   - sky_fetch_sdss: SDSS cut-out at a sky position
//   - sky_fetch_apod: NASA Astronomy Picture of the Day
//
// Pipelines:
//   - sky_analyze_frame: normalize, blur, Canny, external regions
//   - sky_detect_motion: difference, threshold, closing, external regions
//
// Results:
//   - sky_read_objects: parse an object CSV
//   - sky_list_runs: recorded runs and their detections
//
// Inspection:
//   - sky_crop_region: zoomed cut-out of a detection
//   - sky_image_info: dimensions and brightness statistics
//
// Frames for the pipeline tools are given either as a file path or as a
// right ascension / declination pair fetched from SDSS.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// Tools whose dependency (provider, pipeline or catalog) was not supplied
// in Options fail with a "not configured" error.
//
// # Usage
//
//	srv := server.New(server.Options{Pipeline: svc, Catalog: store})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
