package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/ironsheep/image-extract-mcp/internal/imaging"
	"github.com/ironsheep/image-extract-mcp/internal/scan"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "body_extract_images").
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
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Debug("tool failed", "tool", params.Name, "error", err)
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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	case "body_has_images":
		return s.handleBodyHasImages(args)
	case "body_extract_images":
		return s.handleBodyExtractImages(args)

	case "session_submit":
		return s.handleSessionSubmit(args)
	case "session_result":
		return s.handleSessionResult(args)
	case "session_close":
		return s.handleSessionClose(args)

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
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Body Arguments ===

// bodyArgs is the body source shared by body_* and session_submit.
type bodyArgs struct {
	BodyBase64      string `json:"body_base64"`
	Path            string `json:"path"`
	ContentType     string `json:"content_type"`
	ContentEncoding string `json:"content_encoding"`
}

// request loads the body from whichever source was given.
func (a *bodyArgs) request() (*scan.Request, error) {
	var body []byte
	switch {
	case a.BodyBase64 != "" && a.Path != "":
		return nil, errors.New("body_base64 and path are mutually exclusive")
	case a.Path != "":
		data, err := os.ReadFile(a.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
		body = data
	case a.BodyBase64 != "":
		data, err := base64.StdEncoding.DecodeString(a.BodyBase64)
		if err != nil {
			return nil, fmt.Errorf("invalid body_base64: %w", err)
		}
		body = data
	default:
		return nil, errors.New("one of body_base64 or path is required")
	}

	return &scan.Request{
		Body:            body,
		ContentType:     a.ContentType,
		ContentEncoding: a.ContentEncoding,
	}, nil
}

// imageResult is one gallery entry as returned by tools.
type imageResult struct {
	imaging.Entry
	Thumbnail *imaging.ThumbnailResult `json:"thumbnail,omitempty"`
}

// galleryResult is the visible state of a scan.
type galleryResult struct {
	SessionID string        `json:"session_id,omitempty"`
	Version   int64         `json:"version,omitempty"`
	State     scan.State    `json:"state"`
	Status    string        `json:"status"`
	Count     int           `json:"count"`
	Images    []imageResult `json:"images"`
}

func (s *Server) newGalleryResult(u scan.Update, thumbnails bool) (*galleryResult, error) {
	images := make([]imageResult, len(u.Entries))
	for i, e := range u.Entries {
		images[i].Entry = e
		if thumbnails {
			thumb, err := imaging.Thumbnail(e.Image, s.cfg.ThumbnailSize)
			if err != nil {
				return nil, fmt.Errorf("thumbnail for %s: %w", e.Source, err)
			}
			images[i].Thumbnail = thumb
		}
	}
	return &galleryResult{
		Version: u.Version,
		State:   u.State,
		Status:  u.Status,
		Count:   len(images),
		Images:  images,
	}, nil
}

// === Body Handlers ===

type bodyHasImagesResult struct {
	HasImages bool `json:"has_images"`
}

func (s *Server) handleBodyHasImages(args json.RawMessage) (interface{}, error) {
	var a bodyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	req, err := a.request()
	if err != nil {
		return nil, err
	}
	return &bodyHasImagesResult{
		HasImages: s.extractor.Eligible(req.Body, req.ContentType, req.ContentEncoding),
	}, nil
}

type bodyExtractImagesArgs struct {
	bodyArgs
	Thumbnails bool `json:"thumbnails"`
}

// handleBodyExtractImages runs the pipeline synchronously. Pipeline failures
// are reported in the status line, as a viewer would show them.
func (s *Server) handleBodyExtractImages(args json.RawMessage) (interface{}, error) {
	var a bodyExtractImagesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	req, err := a.request()
	if err != nil {
		return nil, err
	}

	entries, err := s.pipeline(context.Background(), req)
	if err != nil {
		s.logger.Warn("extraction failed", "error", err)
	}
	return s.newGalleryResult(scan.Summarize(entries, err), a.Thumbnails)
}

// === Session Handlers ===

type sessionSubmitArgs struct {
	bodyArgs
	SessionID string `json:"session_id"`
	Clear     bool   `json:"clear"`
}

type sessionSubmitResult struct {
	SessionID string `json:"session_id"`
	Version   int64  `json:"version"`
}

func (s *Server) handleSessionSubmit(args json.RawMessage) (interface{}, error) {
	var a sessionSubmitArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var req *scan.Request
	if !a.Clear {
		r, err := a.request()
		if err != nil {
			return nil, err
		}
		req = r
	}

	id, v, err := s.viewer(a.SessionID)
	if err != nil {
		return nil, err
	}
	return &sessionSubmitResult{SessionID: id, Version: v.session.Submit(req)}, nil
}

type sessionArgs struct {
	SessionID  string `json:"session_id"`
	Thumbnails bool   `json:"thumbnails"`
}

func (s *Server) handleSessionResult(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.SessionID == "" {
		return nil, errors.New("session_id is required")
	}

	_, v, err := s.viewer(a.SessionID)
	if err != nil {
		return nil, err
	}

	// State and status come from one snapshot so they always agree.
	u := v.gallery.Snapshot()
	if u.Version == 0 {
		u.Status = scan.StatusEmpty
	}
	result, err := s.newGalleryResult(u, a.Thumbnails)
	if err != nil {
		return nil, err
	}
	result.SessionID = a.SessionID
	return result, nil
}

type sessionCloseResult struct {
	SessionID string `json:"session_id"`
	Closed    bool   `json:"closed"`
}

func (s *Server) handleSessionClose(args json.RawMessage) (interface{}, error) {
	var a sessionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	s.mu.Lock()
	v, ok := s.sessions[a.SessionID]
	delete(s.sessions, a.SessionID)
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("unknown session: %q", a.SessionID)
	}
	v.session.Close()
	s.logger.Debug("session closed", "session", a.SessionID)
	return &sessionCloseResult{SessionID: a.SessionID, Closed: true}, nil
}

// viewer returns the session with the given id. An empty id opens a new
// session.
func (s *Server) viewer(id string) (string, *viewer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		v, ok := s.sessions[id]
		if !ok {
			return "", nil, fmt.Errorf("unknown session: %q", id)
		}
		return id, v, nil
	}

	id = uuid.NewString()
	gallery := &scan.Gallery{}
	v := &viewer{
		session: scan.NewSession(gallery, scan.Options{
			Pipeline: s.pipeline,
			Logger:   s.logger.With("session", id),
		}),
		gallery: gallery,
	}
	s.sessions[id] = v
	s.logger.Debug("session opened", "session", id)
	return id, v, nil
}
