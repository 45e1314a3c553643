package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// bodyProperties are the schema properties shared by every tool that takes
// a response body.
func bodyProperties() map[string]interface{} {
	return map[string]interface{}{
		"body_base64": map[string]interface{}{
			"type":        "string",
			"description": "Raw response body bytes, base64-encoded. Exactly one of body_base64 or path is required.",
		},
		"path": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path to a file holding the raw response body",
		},
		"content_type": map[string]interface{}{
			"type":        "string",
			"description": "Declared Content-Type header value, if any",
		},
		"content_encoding": map[string]interface{}{
			"type":        "string",
			"description": "Declared Content-Encoding header value (gzip, deflate, zstd), if any",
		},
	}
}

func sessionIDProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	extractProps := bodyProperties()
	extractProps["thumbnails"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Include a base64 PNG thumbnail of each image",
		"default":     false,
	}

	submitProps := bodyProperties()
	submitProps["session_id"] = sessionIDProperty("Session to submit to. Omit to open a new session.")
	submitProps["clear"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Clear the session view instead of scanning a body",
		"default":     false,
	}

	resultProps := map[string]interface{}{
		"session_id": sessionIDProperty("Session returned by session_submit"),
		"thumbnails": map[string]interface{}{
			"type":        "boolean",
			"description": "Include a base64 PNG thumbnail of each image",
			"default":     false,
		},
	}

	return []Tool{
		{
			Name:        "body_has_images",
			Description: "Cheap check whether an HTTP response body deserves an image view: declared image type, an image signature at the start of the decompressed body, or an embedded data URI or base64 image marker.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": bodyProperties(),
			},
		},
		{
			Name:        "body_extract_images",
			Description: "Decompress an HTTP response body and extract every embedded raster image (whole body, data URIs, bare base64). Returns labels, provenance and dimensions in discovery order.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": extractProps,
			},
		},
		{
			Name:        "session_submit",
			Description: "Submit a response body to a viewer session. The scan runs in the background and supersedes any scan still running in that session. Returns the session id and scan version.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": submitProps,
			},
		},
		{
			Name:        "session_result",
			Description: "Get the visible state of a viewer session: version, state (idle or scanning), status line and images of the latest scan.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": resultProps,
				"required":   []string{"session_id"},
			},
		},
		{
			Name:        "session_close",
			Description: "Close a viewer session and cancel its running scan.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionIDProperty("Session to close"),
				},
				"required": []string{"session_id"},
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
