package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
)

func TestServer_handleAnnotate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns labeled spans", func(t *testing.T) {
		text := "cinematic shot of a violinist"
		annotator := &mockAnnotator{
			result: domain.ParseResult{
				DisplayText: text,
				Spans: []domain.Span{
					{ID: "span-1", Start: 0, End: 9, Quote: "cinematic", Category: "style", Confidence: 0.9},
					{ID: "span-2", Start: 20, End: 29, Quote: "violinist", Category: "subject", Confidence: 0.95},
				},
			},
			snap: &domain.HighlightSnapshot{Signature: domain.Signature(text)},
		}

		ports := &Ports{Annotator: annotator}
		server, err := NewServer(ports)
		require.NoError(t, err)

		input := AnnotateInput{Text: text}
		_, output, err := server.handleAnnotate(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
		assert.Equal(t, text, output.DisplayText)
		assert.Equal(t, domain.Signature(text), output.Signature)
		assert.Equal(t, "span-1", output.Spans[0].ID)
		assert.Equal(t, "style", output.Spans[0].Category)
		assert.Equal(t, "violinist", output.Spans[1].Quote)
	})

	t.Run("omits signature without snapshot", func(t *testing.T) {
		annotator := &mockAnnotator{
			result: domain.ParseResult{DisplayText: "plain text"},
		}
		ports := &Ports{Annotator: annotator}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleAnnotate(ctx, nil, AnnotateInput{Text: "plain text"})

		require.NoError(t, err)
		assert.Empty(t, output.Signature)
		assert.Equal(t, 0, output.Count)
	})

	t.Run("returns error on labeler failure", func(t *testing.T) {
		annotator := &mockAnnotator{
			err: errors.New("labeler unreachable"),
		}
		ports := &Ports{Annotator: annotator}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, _, err = server.handleAnnotate(ctx, nil, AnnotateInput{Text: "anything"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "labeler unreachable")
	})
}

func TestServer_handleListVersions(t *testing.T) {
	ctx := context.Background()

	t.Run("returns versions with span counts", func(t *testing.T) {
		ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		versions := &mockVersionManager{
			versions: []domain.Version{
				{
					VersionID: "ver-1",
					Label:     "draft",
					Signature: "abc",
					Timestamp: ts,
					Highlights: &domain.HighlightSnapshot{
						Spans: []domain.Span{{ID: "s1"}, {ID: "s2"}},
					},
				},
				{VersionID: "ver-2", Label: "final", Signature: "def", Timestamp: ts},
			},
		}

		ports := &Ports{Annotator: &mockAnnotator{}, Versions: versions}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleListVersions(ctx, nil, ListVersionsInput{})

		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
		assert.Equal(t, "ver-1", output.Versions[0].VersionID)
		assert.Equal(t, 2, output.Versions[0].SpanCount)
		assert.Equal(t, 0, output.Versions[1].SpanCount)
		assert.Equal(t, "2025-06-01T12:00:00Z", output.Versions[0].Timestamp)
	})

	t.Run("nil version manager yields empty history", func(t *testing.T) {
		ports := &Ports{Annotator: &mockAnnotator{}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, output, err := server.handleListVersions(ctx, nil, ListVersionsInput{})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.Empty(t, output.Versions)
	})
}
