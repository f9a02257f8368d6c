package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AnnotateInput is the input schema for the annotate tool.
type AnnotateInput struct {
	Text string `json:"text" jsonschema:"the text to annotate with semantic spans"`
}

// AnnotateOutput is the output schema for the annotate tool.
type AnnotateOutput struct {
	DisplayText string       `json:"display_text"`
	Signature   string       `json:"signature"`
	Spans       []SpanOutput `json:"spans"`
	Count       int          `json:"count"`
}

// SpanOutput represents a single labeled span.
type SpanOutput struct {
	ID         string  `json:"id"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Quote      string  `json:"quote"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Stale      bool    `json:"stale,omitempty"`
}

// ListVersionsInput is the input schema for the list_versions tool.
type ListVersionsInput struct{}

// ListVersionsOutput is the output schema for the list_versions tool.
type ListVersionsOutput struct {
	Versions []VersionOutput `json:"versions"`
	Count    int             `json:"count"`
}

// VersionOutput represents a single saved version.
type VersionOutput struct {
	VersionID string `json:"version_id"`
	Label     string `json:"label"`
	Signature string `json:"signature"`
	Timestamp string `json:"timestamp"`
	SpanCount int    `json:"span_count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "annotate",
		Description: "Annotate text with semantic spans (subject, style, lighting, mood, camera, setting)",
	}, s.handleAnnotate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_versions",
		Description: "List saved prompt versions in creation order",
	}, s.handleListVersions)
}

// handleAnnotate handles the annotate tool invocation.
func (s *Server) handleAnnotate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnnotateInput,
) (*mcp.CallToolResult, AnnotateOutput, error) {
	result, snap, err := s.ports.Annotator.Annotate(ctx, input.Text)
	if err != nil {
		return nil, AnnotateOutput{}, err
	}

	output := AnnotateOutput{
		DisplayText: result.DisplayText,
		Spans:       make([]SpanOutput, len(result.Spans)),
		Count:       len(result.Spans),
	}
	if snap != nil {
		output.Signature = snap.Signature
	}

	for i := range result.Spans {
		output.Spans[i] = SpanOutput{
			ID:         result.Spans[i].ID,
			Start:      result.Spans[i].Start,
			End:        result.Spans[i].End,
			Quote:      result.Spans[i].Quote,
			Category:   result.Spans[i].Category,
			Confidence: result.Spans[i].Confidence,
			Stale:      result.Spans[i].Stale,
		}
	}

	return nil, output, nil
}

// handleListVersions handles the list_versions tool invocation.
func (s *Server) handleListVersions(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListVersionsInput,
) (*mcp.CallToolResult, ListVersionsOutput, error) {
	output := ListVersionsOutput{Versions: []VersionOutput{}}
	if s.ports.Versions == nil {
		return nil, output, nil
	}

	versions := s.ports.Versions.List()
	output.Versions = make([]VersionOutput, len(versions))
	output.Count = len(versions)

	for i := range versions {
		out := VersionOutput{
			VersionID: versions[i].VersionID,
			Label:     versions[i].Label,
			Signature: versions[i].Signature,
			Timestamp: versions[i].Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		}
		if versions[i].Highlights != nil {
			out.SpanCount = len(versions[i].Highlights.Spans)
		}
		output.Versions[i] = out
	}

	return nil, output, nil
}
