// Package mcp provides an MCP (Model Context Protocol) server adapter for Margin.
// It enables AI assistants to annotate text and browse version history.
package mcp

import "errors"

// ErrMissingAnnotator is returned when the annotator service is not provided.
var ErrMissingAnnotator = errors.New("mcp: annotator service is required")
