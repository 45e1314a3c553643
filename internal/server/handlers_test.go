package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ironsheep/image-extract-mcp/internal/imaging"
	"github.com/ironsheep/image-extract-mcp/internal/scan"
)

// createTestPNG encodes a small gradient image
func createTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 20), uint8(y * 20), 128, 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

func dataURIPage(t *testing.T) []byte {
	t.Helper()
	b64 := base64.StdEncoding.EncodeToString(createTestPNG(t, 8, 8))
	return []byte(`<html><body><img src="data:image/png;base64,` + b64 + `"></body></html>`)
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unmarshals the text content of a successful tool response.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("failed to decode tool result %q: %v", text, err)
	}
}

type testGallery struct {
	SessionID string `json:"session_id"`
	Version   int64  `json:"version"`
	State     string `json:"state"`
	Status    string `json:"status"`
	Count     int    `json:"count"`
	Images    []struct {
		Label     string `json:"label"`
		Details   string `json:"details"`
		Strategy  string `json:"strategy"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Thumbnail *struct {
			ImageBase64 string `json:"image_base64"`
			MimeType    string `json:"mime_type"`
		} `json:"thumbnail"`
	} `json:"images"`
}

func TestHandleToolsCall_BodyHasImages(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want bool
	}{
		{
			"declared image type",
			map[string]interface{}{"body_base64": base64.StdEncoding.EncodeToString([]byte("x")), "content_type": "image/png"},
			true,
		},
		{
			"raw png body",
			map[string]interface{}{"body_base64": base64.StdEncoding.EncodeToString(createTestPNG(t, 2, 2))},
			true,
		},
		{
			"html with data uri",
			map[string]interface{}{"body_base64": base64.StdEncoding.EncodeToString(dataURIPage(t)), "content_type": "text/html"},
			true,
		},
		{
			"plain json",
			map[string]interface{}{"body_base64": base64.StdEncoding.EncodeToString([]byte(`{"a":1}`)), "content_type": "application/json"},
			false,
		},
		{
			"corrupt gzip",
			map[string]interface{}{"body_base64": base64.StdEncoding.EncodeToString([]byte("not gzip")), "content_encoding": "gzip"},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got bodyHasImagesResult
			decodeResult(t, callTool(t, s, "body_has_images", tt.args), &got)
			if got.HasImages != tt.want {
				t.Errorf("has_images: got %v, want %v", got.HasImages, tt.want)
			}
		})
	}
}

func TestHandleToolsCall_BodyExtractImages(t *testing.T) {
	s := newTestServer(t)

	resp := callTool(t, s, "body_extract_images", map[string]interface{}{
		"body_base64":  base64.StdEncoding.EncodeToString(dataURIPage(t)),
		"content_type": "text/html",
		"thumbnails":   true,
	})

	var got testGallery
	decodeResult(t, resp, &got)

	if got.Status != "Found 1 image(s)." {
		t.Errorf("status: got %q", got.Status)
	}
	if got.Count != 1 || len(got.Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(got.Images))
	}
	img := got.Images[0]
	if img.Label != "Data URI #1 (8x8)" {
		t.Errorf("label: got %q", img.Label)
	}
	if !strings.HasPrefix(img.Details, "Data URI #1 | image/png | 8x8 | ") {
		t.Errorf("details: got %q", img.Details)
	}
	if img.Strategy != "data-uri" {
		t.Errorf("strategy: got %q", img.Strategy)
	}
	if img.Thumbnail == nil || img.Thumbnail.MimeType != "image/png" || img.Thumbnail.ImageBase64 == "" {
		t.Errorf("thumbnail missing: %+v", img.Thumbnail)
	}
}

func TestHandleToolsCall_BodyExtractImages_FromPath(t *testing.T) {
	s := newTestServer(t)

	path := filepath.Join(t.TempDir(), "body.bin")
	if err := os.WriteFile(path, createTestPNG(t, 5, 4), 0o644); err != nil {
		t.Fatalf("failed to write body: %v", err)
	}

	var got testGallery
	decodeResult(t, callTool(t, s, "body_extract_images", map[string]interface{}{
		"path":         path,
		"content_type": "application/octet-stream",
	}), &got)

	if len(got.Images) != 1 || got.Images[0].Label != "Body image (5x4)" {
		t.Fatalf("unexpected images: %+v", got.Images)
	}
	if got.Images[0].Thumbnail != nil {
		t.Error("thumbnail should be omitted unless requested")
	}
}

func TestHandleToolsCall_BodyExtractImages_Diagnostics(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		body       []byte
		encoding   string
		wantPrefix string
	}{
		{"corrupt gzip", []byte("definitely not gzip"), "gzip", "Unable to render images: "},
		{"no images", []byte("<html>nothing here</html>"), "", "No supported image found in response body."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got testGallery
			decodeResult(t, callTool(t, s, "body_extract_images", map[string]interface{}{
				"body_base64":      base64.StdEncoding.EncodeToString(tt.body),
				"content_type":     "text/html",
				"content_encoding": tt.encoding,
			}), &got)

			if !strings.HasPrefix(got.Status, tt.wantPrefix) {
				t.Errorf("status: got %q, want prefix %q", got.Status, tt.wantPrefix)
			}
			if len(got.Images) != 0 {
				t.Errorf("expected no images, got %d", len(got.Images))
			}
		})
	}
}

func TestHandleToolsCall_ArgumentErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"no body", "body_extract_images", map[string]interface{}{}},
		{"both sources", "body_extract_images", map[string]interface{}{"body_base64": "eA==", "path": "/tmp/x"}},
		{"invalid base64", "body_has_images", map[string]interface{}{"body_base64": "!!!"}},
		{"missing file", "body_extract_images", map[string]interface{}{"path": "/nonexistent/body.bin"}},
		{"unknown session", "session_submit", map[string]interface{}{"session_id": "nope", "clear": true}},
		{"result without id", "session_result", map[string]interface{}{}},
		{"close unknown session", "session_close", map[string]interface{}{"session_id": "nope"}},
		{"unknown tool", "image_load", map[string]interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatal("expected error response")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)

	resp := s.handleToolsCall(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`{"name": 42}`),
	})

	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("expected invalid params error, got %+v", resp.Error)
	}
}

// waitForResult polls session_result until the given version is idle.
func waitForResult(t *testing.T, s *Server, id string, version int64) testGallery {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var got testGallery
	for time.Now().Before(deadline) {
		decodeResult(t, callTool(t, s, "session_result", map[string]interface{}{"session_id": id}), &got)
		if got.Version == version && got.State == "idle" {
			return got
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for version %d, last result %+v", version, got)
	return got
}

func TestHandleToolsCall_SessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	var submitted sessionSubmitResult
	decodeResult(t, callTool(t, s, "session_submit", map[string]interface{}{
		"body_base64":  base64.StdEncoding.EncodeToString(dataURIPage(t)),
		"content_type": "text/html",
	}), &submitted)

	if submitted.SessionID == "" {
		t.Fatal("session_submit returned no session id")
	}
	if submitted.Version != 1 {
		t.Errorf("version: got %d, want 1", submitted.Version)
	}

	got := waitForResult(t, s, submitted.SessionID, 1)
	if got.Status != "Found 1 image(s)." || len(got.Images) != 1 {
		t.Errorf("unexpected result: %+v", got)
	}
	if got.SessionID != submitted.SessionID {
		t.Errorf("session_id: got %q, want %q", got.SessionID, submitted.SessionID)
	}

	// Resubmit to the same session.
	var second sessionSubmitResult
	decodeResult(t, callTool(t, s, "session_submit", map[string]interface{}{
		"session_id":       submitted.SessionID,
		"body_base64":      base64.StdEncoding.EncodeToString([]byte("garbage")),
		"content_encoding": "gzip",
	}), &second)
	if second.SessionID != submitted.SessionID || second.Version != 2 {
		t.Errorf("second submit: got %+v", second)
	}
	got = waitForResult(t, s, submitted.SessionID, 2)
	if !strings.HasPrefix(got.Status, "Unable to render images: ") {
		t.Errorf("status: got %q", got.Status)
	}

	// Clear.
	var cleared sessionSubmitResult
	decodeResult(t, callTool(t, s, "session_submit", map[string]interface{}{
		"session_id": submitted.SessionID,
		"clear":      true,
	}), &cleared)
	got = waitForResult(t, s, submitted.SessionID, 3)
	if got.Status != "No response to render." || len(got.Images) != 0 {
		t.Errorf("cleared result: %+v", got)
	}

	// Close.
	var closed sessionCloseResult
	decodeResult(t, callTool(t, s, "session_close", map[string]interface{}{"session_id": submitted.SessionID}), &closed)
	if !closed.Closed {
		t.Error("session_close should report closed")
	}

	resp := callTool(t, s, "session_result", map[string]interface{}{"session_id": submitted.SessionID})
	if resp.Error == nil {
		t.Error("closed session should be unknown")
	}
}

func TestHandleToolsCall_SessionsAreIndependent(t *testing.T) {
	s := newTestServer(t)

	var a, b sessionSubmitResult
	decodeResult(t, callTool(t, s, "session_submit", map[string]interface{}{"clear": true}), &a)
	decodeResult(t, callTool(t, s, "session_submit", map[string]interface{}{"clear": true}), &b)

	if a.SessionID == b.SessionID {
		t.Fatal("new sessions should get distinct ids")
	}
	if a.Version != 1 || b.Version != 1 {
		t.Errorf("each session starts its own versions: got %d and %d", a.Version, b.Version)
	}
}

func TestHandleToolsCall_SessionResultStateMatchesStatus(t *testing.T) {
	s := newTestServer(t)
	release := make(chan struct{})
	s.pipeline = func(ctx context.Context, req *scan.Request) ([]imaging.Entry, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return nil, nil
	}

	body := base64.StdEncoding.EncodeToString([]byte("plain body"))
	var submitted sessionSubmitResult
	decodeResult(t, callTool(t, s, "session_submit", map[string]interface{}{"body_base64": body}), &submitted)

	var got testGallery
	decodeResult(t, callTool(t, s, "session_result", map[string]interface{}{"session_id": submitted.SessionID}), &got)
	if got.State != "scanning" || got.Status != scan.StatusRendering {
		t.Errorf("while scanning: got state %q status %q", got.State, got.Status)
	}

	close(release)
	got = waitForResult(t, s, submitted.SessionID, 1)
	if got.Status != scan.StatusNoImages {
		t.Errorf("status: got %q, want %q", got.Status, scan.StatusNoImages)
	}

	args, _ := json.Marshal(map[string]interface{}{
		"session_id":  submitted.SessionID,
		"body_base64": body,
	})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := s.executeTool("session_submit", args); err != nil {
				t.Errorf("session_submit: %v", err)
				return
			}
			time.Sleep(100 * time.Microsecond)
		}
	}()

	for i := 0; i < 200; i++ {
		decodeResult(t, callTool(t, s, "session_result", map[string]interface{}{"session_id": submitted.SessionID}), &got)
		if (got.State == "scanning") != (got.Status == scan.StatusRendering) {
			t.Fatalf("state %q disagrees with status %q at version %d", got.State, got.Status, got.Version)
		}
	}
	wg.Wait()
}
