package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"github.com/ironsheep/astro-tools-mcp/internal/catalog"
	"github.com/ironsheep/astro-tools-mcp/internal/detection"
	"github.com/ironsheep/astro-tools-mcp/internal/imaging"
	"github.com/ironsheep/astro-tools-mcp/internal/report"
	"github.com/ironsheep/astro-tools-mcp/internal/source"
)

// errNotConfigured is returned by tools whose dependency was not wired.
var errNotConfigured = errors.New("tool is not configured on this server")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "sky_fetch_sdss", "sky_detect_motion").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Acquisition
	case "sky_fetch_sdss":
		return s.handleFetchSDSS(ctx, args)
	case "sky_fetch_apod":
		return s.handleFetchAPOD(ctx, args)

	// Pipelines
	case "sky_analyze_frame":
		return s.handleAnalyzeFrame(ctx, args)
	case "sky_detect_motion":
		return s.handleDetectMotion(ctx, args)

	// Results
	case "sky_read_objects":
		return s.handleReadObjects(args)
	case "sky_list_runs":
		return s.handleListRuns(ctx, args)

	// Inspection
	case "sky_crop_region":
		return s.handleCropRegion(args)
	case "sky_image_info":
		return s.handleImageInfo(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// skyKey fills unset geometry from the server defaults.
func (s *Server) skyKey(ra, dec float64) source.Key {
	k := s.sky
	k.RA, k.Dec = ra, dec
	k.Path, k.Date = "", ""
	return k
}

// frameArgs addresses a frame by path or by sky position.
type frameArgs struct {
	Path string   `json:"path"`
	RA   *float64 `json:"ra"`
	Dec  *float64 `json:"dec"`
}

func (s *Server) frameKey(a frameArgs, role string) (source.Key, error) {
	if a.Path != "" {
		return source.FileKey(a.Path), nil
	}
	if a.RA == nil || a.Dec == nil {
		return source.Key{}, fmt.Errorf("%s frame needs a path or both ra and dec", role)
	}
	return s.skyKey(*a.RA, *a.Dec), nil
}

// === Acquisition Handlers ===

type fetchSDSSArgs struct {
	RA     *float64 `json:"ra"`
	Dec    *float64 `json:"dec"`
	Scale  float64  `json:"scale"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
}

type fetchResult struct {
	Key    string `json:"key"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Path   string `json:"path,omitempty"`
}

func (s *Server) handleFetchSDSS(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.sdss == nil {
		return nil, fmt.Errorf("sky_fetch_sdss: %w", errNotConfigured)
	}
	var a fetchSDSSArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.RA == nil || a.Dec == nil {
		return nil, errors.New("ra and dec are required")
	}
	key := s.skyKey(*a.RA, *a.Dec)
	if a.Scale != 0 {
		key.Scale = a.Scale
	}
	if a.Width != 0 {
		key.Width = a.Width
	}
	if a.Height != 0 {
		key.Height = a.Height
	}

	img, err := s.sdss.Fetch(ctx, key)
	if err != nil {
		return nil, err
	}
	res := fetchResult{Key: key.String(), Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	if s.sdss.RawDir != "" {
		res.Path = filepath.Join(s.sdss.RawDir, source.RawName(key))
	}
	return res, nil
}

type fetchAPODArgs struct {
	Date         string `json:"date"`
	MetadataOnly bool   `json:"metadata_only"`
}

type apodResult struct {
	Entry  *source.APODEntry `json:"entry"`
	Width  int               `json:"width,omitempty"`
	Height int               `json:"height,omitempty"`
	Path   string            `json:"path,omitempty"`
}

func (s *Server) handleFetchAPOD(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.apod == nil {
		return nil, fmt.Errorf("sky_fetch_apod: %w", errNotConfigured)
	}
	var a fetchAPODArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	if a.MetadataOnly {
		entry, err := s.apod.Metadata(ctx, a.Date)
		if err != nil {
			return nil, err
		}
		return apodResult{Entry: entry}, nil
	}

	img, entry, err := s.apod.FetchEntry(ctx, a.Date)
	if errors.Is(err, source.ErrNotImage) {
		// videos are still useful metadata
		return apodResult{Entry: entry}, nil
	}
	if err != nil {
		return nil, err
	}
	res := apodResult{Entry: entry, Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	if s.apod.RawDir != "" {
		res.Path = filepath.Join(s.apod.RawDir, source.APODName(a.Date))
	}
	return res, nil
}

// === Pipeline Handlers ===

func (s *Server) handleAnalyzeFrame(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.pipeline == nil {
		return nil, fmt.Errorf("sky_analyze_frame: %w", errNotConfigured)
	}
	var a frameArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	key, err := s.frameKey(a, "input")
	if err != nil {
		return nil, err
	}
	return s.pipeline.ProcessSingle(ctx, key)
}

type detectMotionArgs struct {
	Path1 string   `json:"path1"`
	RA1   *float64 `json:"ra1"`
	Dec1  *float64 `json:"dec1"`
	Path2 string   `json:"path2"`
	RA2   *float64 `json:"ra2"`
	Dec2  *float64 `json:"dec2"`
}

type motionSummary struct {
	RunID         int64                   `json:"run_id,omitempty"`
	Reference     string                  `json:"reference"`
	Comparison    string                  `json:"comparison"`
	Width         int                     `json:"width"`
	Height        int                     `json:"height"`
	Backend       string                  `json:"backend"`
	Stats         detection.DiffStats     `json:"stats"`
	Shift         *detection.Shift        `json:"shift,omitempty"`
	Objects       []detection.BoundingBox `json:"objects"`
	Displayed     int                     `json:"displayed"`
	DiffPath      string                  `json:"diff_path"`
	ObjectsPath   string                  `json:"objects_path"`
	AnnotatedPath string                  `json:"annotated_path"`
}

func (s *Server) handleDetectMotion(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.pipeline == nil {
		return nil, fmt.Errorf("sky_detect_motion: %w", errNotConfigured)
	}
	var a detectMotionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ref, err := s.frameKey(frameArgs{Path: a.Path1, RA: a.RA1, Dec: a.Dec1}, "reference")
	if err != nil {
		return nil, err
	}
	cmp, err := s.frameKey(frameArgs{Path: a.Path2, RA: a.RA2, Dec: a.Dec2}, "comparison")
	if err != nil {
		return nil, err
	}

	run, err := s.pipeline.ProcessMotion(ctx, ref, cmp)
	if err != nil {
		return nil, err
	}
	return motionSummary{
		RunID:         run.RunID,
		Reference:     run.Reference,
		Comparison:    run.Comparison,
		Width:         run.Result.Width,
		Height:        run.Result.Height,
		Backend:       run.Result.Backend,
		Stats:         run.Result.Stats,
		Shift:         run.Result.Shift,
		Objects:       run.Recorded,
		Displayed:     len(run.Displayed),
		DiffPath:      run.DiffPath,
		ObjectsPath:   run.ObjectsPath,
		AnnotatedPath: run.AnnotatedPath,
	}, nil
}

// === Result Handlers ===

type readObjectsArgs struct {
	Path    string `json:"path"`
	MinSize int    `json:"min_size"`
}

type objectsResult struct {
	Path    string                  `json:"path"`
	Count   int                     `json:"count"`
	Objects []detection.BoundingBox `json:"objects"`
}

func (s *Server) handleReadObjects(args json.RawMessage) (interface{}, error) {
	var a readObjectsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.MinSize < 0 {
		return nil, fmt.Errorf("min_size must be non-negative, got %d", a.MinSize)
	}
	boxes, err := report.LoadObjects(a.Path)
	if err != nil {
		return nil, err
	}
	boxes = detection.FilterMinSize(boxes, a.MinSize)
	return objectsResult{Path: a.Path, Count: len(boxes), Objects: boxes}, nil
}

type listRunsArgs struct {
	Limit int   `json:"limit"`
	RunID int64 `json:"run_id"`
}

type detectionsResult struct {
	Run        catalog.Run         `json:"run"`
	Detections []catalog.Detection `json:"detections"`
}

func (s *Server) handleListRuns(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("sky_list_runs: %w", errNotConfigured)
	}
	var a listRunsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.RunID != 0 {
		run, err := s.catalog.GetRun(ctx, a.RunID)
		if err != nil {
			return nil, err
		}
		dets, err := s.catalog.Detections(ctx, a.RunID)
		if err != nil {
			return nil, err
		}
		return detectionsResult{Run: run, Detections: dets}, nil
	}
	if a.Limit == 0 {
		a.Limit = 20
	}
	return s.catalog.ListRuns(ctx, a.Limit)
}

// === Inspection Handlers ===

type cropRegionArgs struct {
	Path    string  `json:"path"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Padding int     `json:"padding"`
	Scale   float64 `json:"scale"`
}

func (s *Server) handleCropRegion(args json.RawMessage) (interface{}, error) {
	var a cropRegionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	r := image.Rect(a.X, a.Y, a.X+a.Width, a.Y+a.Height)
	return imaging.CropRegion(img, r, a.Padding, a.Scale)
}

type imageInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}
