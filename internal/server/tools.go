package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// frameProperties describes a frame given either as a file path or as a
// sky position; suffix distinguishes the frames of a pair.
func frameProperties(suffix, role string) map[string]interface{} {
	return map[string]interface{}{
		"path" + suffix: map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to the " + role + " image file",
		},
		"ra" + suffix: map[string]interface{}{
			"type":        "number",
			"description": "Right ascension of the " + role + " frame in degrees (used when no path is given)",
		},
		"dec" + suffix: map[string]interface{}{
			"type":        "number",
			"description": "Declination of the " + role + " frame in degrees (used when no path is given)",
		},
	}
}

func merge(maps ...map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Acquisition
		{
			Name:        "sky_fetch_sdss",
			Description: "Download a JPEG cut-out from the SDSS SkyServer centred on a sky position and save it under the raw data directory.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"ra": map[string]interface{}{
						"type":        "number",
						"description": "Right ascension in degrees [0,360]",
					},
					"dec": map[string]interface{}{
						"type":        "number",
						"description": "Declination in degrees [-90,90]",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Arcseconds per pixel. Default from configuration (0.2)",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Cut-out width in pixels. Default 512",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Cut-out height in pixels. Default 512",
					},
				},
				"required": []string{"ra", "dec"},
			},
		},
		{
			Name:        "sky_fetch_apod",
			Description: "Fetch NASA's Astronomy Picture of the Day. Returns the metadata and, for image entries, the saved file path.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"date": map[string]interface{}{
						"type":        "string",
						"description": "Date as YYYY-MM-DD. Default today",
					},
					"metadata_only": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the metadata without downloading the image",
						"default":     false,
					},
				},
			},
		},

		// Pipelines
		{
			Name:        "sky_analyze_frame",
			Description: "Run single-frame analysis (brightness normalization, Gaussian blur, Canny edges, external regions) and write an annotated frame and a stage montage.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": frameProperties("", "input"),
			},
		},
		{
			Name:        "sky_detect_motion",
			Description: "Detect regions that changed between two frames (difference, threshold, 3x3 closing, external regions). Writes detected_diff.png, objects.csv and detected_objects.png.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": merge(
					frameProperties("1", "reference"),
					frameProperties("2", "comparison"),
				),
			},
		},

		// Results
		{
			Name:        "sky_read_objects",
			Description: "Read an object CSV (x,y,width,height) written by motion detection.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the CSV file",
					},
					"min_size": map[string]interface{}{
						"type":        "integer",
						"description": "Only return boxes whose width and height exceed this value. Default 0",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "sky_list_runs",
			Description: "List recorded pipeline runs, newest first, or the detections of one run.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of runs. Default 20",
						"default":     20,
					},
					"run_id": map[string]interface{}{
						"type":        "integer",
						"description": "Return the detections of this run instead of the run list",
					},
				},
			},
		},

		// Inspection
		{
			Name:        "sky_crop_region",
			Description: "Crop a region (typically a detected box) from an image and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (0-based)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (0-based)",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Region width in pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Region height in pixels",
					},
					"padding": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels of context added on every side. Default 0",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 4.0 to enlarge a faint object). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"path", "x", "y", "width", "height"},
			},
		},
		{
			Name:        "sky_image_info",
			Description: "Get dimensions, format and grayscale statistics (min, max, mean, standard deviation) of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
