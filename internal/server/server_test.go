package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"strings"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	s := New(Options{})
	if s.cache == nil {
		t.Error("cache not created")
	}
	if s.version != "dev" {
		t.Errorf("default version: got %q", s.version)
	}
	if s.sdss != nil || s.pipeline != nil || s.catalog != nil {
		t.Error("optional dependencies should stay unset")
	}
}

func TestHandleRequest_Methods(t *testing.T) {
	s := New(Options{Version: "1.2.3"})
	tests := []struct {
		method   string
		id       interface{}
		wantNil  bool
		wantCode int
	}{
		{"initialize", 1, false, 0},
		{"ping", "ping-1", false, 0},
		{"tools/list", 2, false, 0},
		{"notifications/initialized", nil, true, 0},
		{"resources/list", 3, false, -32601},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: tt.id, Method: tt.method})
			if tt.wantNil {
				if resp != nil {
					t.Errorf("expected no response, got %+v", resp)
				}
				return
			}
			if resp == nil {
				t.Fatal("no response")
			}
			if resp.ID != tt.id {
				t.Errorf("ID: got %v, want %v", resp.ID, tt.id)
			}
			switch {
			case tt.wantCode == 0 && resp.Error != nil:
				t.Errorf("unexpected error: %+v", resp.Error)
			case tt.wantCode != 0 && (resp.Error == nil || resp.Error.Code != tt.wantCode):
				t.Errorf("error: got %+v, want code %d", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestHandleInitialize_ServerInfo(t *testing.T) {
	resp := New(Options{Version: "1.2.3"}).handleInitialize(&MCPRequest{JSONRPC: "2.0", ID: "init-1"})
	result := resp.Result.(map[string]interface{})
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion: got %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]interface{})
	if info["name"] != ServerName || info["version"] != "1.2.3" {
		t.Errorf("serverInfo: %v", info)
	}
}

// session runs lines through Serve and returns the responses keyed by ID.
func session(t *testing.T, s *Server, lines ...string) map[string]MCPResponse {
	t.Helper()
	var out bytes.Buffer
	if err := s.Serve(context.Background(), strings.NewReader(strings.Join(lines, "\n")), &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	responses := map[string]MCPResponse{}
	dec := json.NewDecoder(&out)
	for dec.More() {
		var r MCPResponse
		if err := dec.Decode(&r); err != nil {
			t.Fatalf("invalid response stream: %v", err)
		}
		responses[fmt.Sprint(r.ID)] = r
	}
	return responses
}

// toolText decodes the JSON text content of a tools/call response.
func toolText(t *testing.T, r MCPResponse, out interface{}) {
	t.Helper()
	if r.Error != nil {
		t.Fatalf("tool error: %+v", r.Error)
	}
	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	data, _ := json.Marshal(r.Result)
	if err := json.Unmarshal(data, &result); err != nil || len(result.Content) != 1 {
		t.Fatalf("unexpected result: %s", data)
	}
	if err := json.Unmarshal([]byte(result.Content[0].Text), out); err != nil {
		t.Fatalf("tool text is not JSON: %v", err)
	}
}

func toolCall(id int, name string, args map[string]interface{}) string {
	line, _ := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params":  map[string]interface{}{"name": name, "arguments": args},
	})
	return string(line)
}

func TestServe_SkySession(t *testing.T) {
	s, dir := newTestServer(t)
	ref := createTestImageFile(t, dir, "ref.png", 100, 100)
	cmp := createTestImageFile(t, dir, "cmp.png", 100, 100, image.Rect(20, 20, 30, 30), image.Rect(70, 70, 80, 80))

	responses := session(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		toolCall(2, "sky_fetch_sdss", map[string]interface{}{"ra": 150.5, "dec": 2.25}),
		toolCall(3, "sky_detect_motion", map[string]interface{}{"path1": ref, "path2": cmp}),
		toolCall(4, "sky_list_runs", map[string]interface{}{"limit": 5}),
		toolCall(5, "sky_observe_comet", nil),
	)
	if len(responses) != 5 {
		t.Fatalf("got %d responses, want 5", len(responses))
	}

	var fetched fetchResult
	toolText(t, responses["2"], &fetched)
	if fetched.Key != "sky:150.5,2.25" || fetched.Width != 32 {
		t.Errorf("fetch: %+v", fetched)
	}

	var motion motionSummary
	toolText(t, responses["3"], &motion)
	if len(motion.Objects) != 2 || motion.Displayed != 2 {
		t.Fatalf("motion objects: %+v", motion.Objects)
	}
	if motion.Objects[0].X != 20 || motion.Objects[1].X != 70 {
		t.Errorf("objects out of raster order: %v", motion.Objects)
	}

	var runs []struct {
		ID   int64  `json:"id"`
		Mode string `json:"mode"`
	}
	toolText(t, responses["4"], &runs)
	if len(runs) != 1 || runs[0].ID != motion.RunID || runs[0].Mode != "motion" {
		t.Errorf("runs: %+v", runs)
	}

	if e := responses["5"].Error; e == nil || e.Code != -32000 {
		t.Errorf("unknown tool: got %+v", e)
	}
}

func TestServe_ParseErrorKeepsServing(t *testing.T) {
	responses := session(t, New(Options{}),
		`not json`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)
	if r, ok := responses["<nil>"]; !ok || r.Error == nil || r.Error.Code != -32700 {
		t.Errorf("expected a parse error with null id, got %+v", responses)
	}
	if r := responses["2"]; r.Error != nil {
		t.Errorf("ping after parse error failed: %+v", r.Error)
	}
}

func TestServe_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out bytes.Buffer
	in := `{"jsonrpc":"2.0","id":1,"method":"ping"}`
	if err := New(Options{}).Serve(ctx, strings.NewReader(in), &out); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("cancelled server answered: %q", out.String())
	}
}
