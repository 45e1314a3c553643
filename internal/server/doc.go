// Package server implements the MCP (Model Context Protocol) server for image extraction.
//
// This package provides a JSON-RPC 2.0 server that exposes the decompress,
// extract and decode pipeline through the MCP protocol, so that a client
// inspecting HTTP traffic can ask which images a response body carries.
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
// # Available Tools
//
// Body Operations:
//   - body_has_images: Cheap eligibility check for an image view
//   - body_extract_images: Synchronous extraction with optional thumbnails
//
// Viewer Sessions:
//   - session_submit: Queue a body for background scanning
//   - session_result: Read the latest published state
//   - session_close: Cancel and discard a session
//
// Bodies are passed either base64-encoded (body_base64) or by file path,
// together with the declared Content-Type and Content-Encoding.
//
// # Sessions
//
// Each session wraps a scan.Session and keeps the last update it published.
// Submitting to a busy session supersedes the running scan; its result is
// never shown. Session ids are random UUIDs. All sessions are closed when
// Serve returns.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A body that fails to decompress is not a tool error: the status line
// reads "Unable to render images: ..." and the image list is empty.
//
// # Usage
//
//	srv := server.New(cfg, logger, version)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
