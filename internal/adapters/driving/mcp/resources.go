package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Margin resources.
	uriScheme = "margin://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the version history.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "versions",
		Name:        "versions",
		Description: "Saved prompt versions in creation order",
		MIMEType:    "application/json",
	}, s.handleVersionsResource)

	// Template for a single version's prompt text.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "versions/{versionId}",
		Name:        "version-prompt",
		Description: "Prompt text of a specific saved version",
		MIMEType:    "text/plain",
	}, s.handleVersionPromptResource)
}

// handleVersionsResource returns the full version history.
func (s *Server) handleVersionsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Versions == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "[]",
			}},
		}, nil
	}

	versions := s.ports.Versions.List()

	// Build simplified version list.
	type versionInfo struct {
		ID        string `json:"id"`
		Label     string `json:"label"`
		Signature string `json:"signature"`
		Timestamp string `json:"timestamp"`
	}

	infos := make([]versionInfo, len(versions))
	for i := range versions {
		infos[i] = versionInfo{
			ID:        versions[i].VersionID,
			Label:     versions[i].Label,
			Signature: versions[i].Signature,
			Timestamp: versions[i].Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling versions: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleVersionPromptResource returns the prompt text of a specific version.
func (s *Server) handleVersionPromptResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Versions == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	versionID := extractVersionID(req.Params.URI)
	if versionID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	ver := findVersion(s.ports.Versions.List(), versionID)
	if ver == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     ver.Prompt,
		}},
	}, nil
}

// extractVersionID extracts the version ID from a URI like margin://versions/{versionId}.
func extractVersionID(uri string) string {
	const prefix = uriScheme + "versions/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}

func findVersion(versions []domain.Version, id string) *domain.Version {
	for i := range versions {
		if versions[i].VersionID == id {
			return &versions[i]
		}
	}
	return nil
}
