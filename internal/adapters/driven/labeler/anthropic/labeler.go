// Package anthropic provides a labeling backend using the Anthropic API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/margin-cli/internal/core/domain"
	"github.com/custodia-labs/margin-cli/internal/core/ports/driven"
	"github.com/custodia-labs/margin-cli/internal/logger"
)

// Ensure Labeler implements the interface.
var _ driven.Labeler = (*Labeler)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-haiku-latest"
	DefaultTimeout = 60 * time.Second

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic labeler.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the model to use (default: claude-3-5-haiku-latest).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration

	// RateLimit overrides the default request rate limiting.
	RateLimit *RateLimitConfig
}

// Labeler produces semantic spans via the Anthropic messages API.
type Labeler struct {
	client  *http.Client
	limiter *RateLimiter
	baseURL string
	apiKey  string
	model   string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// wireSpan is the span schema the model is asked to emit. Offsets arrive as
// floats so malformed values (fractions, NaN) can be rejected rather than
// silently truncated.
type wireSpan struct {
	ID         string   `json:"id"`
	Start      *float64 `json:"start"`
	End        *float64 `json:"end"`
	Quote      string   `json:"quote"`
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
}

// NewLabeler creates a new Anthropic labeler.
func NewLabeler(cfg Config) (*Labeler, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	limiter := NewRateLimiter()
	if cfg.RateLimit != nil {
		limiter = NewRateLimiterWithConfig(*cfg.RateLimit)
	}

	return &Labeler{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: limiter,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Label annotates the request text with semantic spans.
func (l *Labeler) Label(ctx context.Context, req driven.LabelRequest) (*driven.LabelResult, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	system := systemPrompt(req)
	user := fmt.Sprintf("Text to annotate:\n%s", req.Text)

	raw, err := l.sendMessages(ctx, system, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLabelerUnavailable, err)
	}

	spans, err := parseSpans(raw, req)
	if err != nil {
		return nil, fmt.Errorf("parsing labeler output: %w", err)
	}

	return &driven.LabelResult{
		Spans: spans,
		Meta: map[string]any{
			"provider":        domain.ProviderAnthropic,
			"model":           l.model,
			"templateVersion": req.TemplateVersion,
		},
		Signature: domain.Signature(req.Text),
	}, nil
}

// sendMessages performs one messages-API round trip and returns the
// concatenated text blocks.
func (l *Labeler) sendMessages(ctx context.Context, system, user string) (string, error) {
	reqBody := messagesRequest{
		Model:     l.model,
		Messages:  []messagesMessage{{Role: "user", Content: user}},
		MaxTokens: 2048,
		System:    system,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		l.baseURL+"/v1/messages",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", l.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		l.limiter.RecordRateLimitError(retryAfterSeconds(resp))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if msgResp.Error != nil {
		return "", fmt.Errorf("anthropic error: %s", msgResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic error (status %d): %s", resp.StatusCode, string(body))
	}
	if len(msgResp.Content) == 0 {
		return "", fmt.Errorf("anthropic: no response content returned")
	}

	var result strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	return result.String(), nil
}

// Labeling templates are pinned by version so cached results stay comparable
// across releases.
const (
	spanPromptV1 = `You annotate text with semantic spans.
Return ONLY a JSON array of spans, no prose. Each span:
{"start": <byte offset>, "end": <byte offset>, "quote": "<exact substring>", "category": "<one of: subject, style, lighting, mood>", "confidence": <0..1>}
Offsets are byte offsets into the UTF-8 text, half-open [start, end).
Return at most %d spans with confidence >= %.2f.`

	spanPromptV2 = `You annotate text with semantic spans for an image/video prompt editor.
Return ONLY a JSON array of spans, no prose. Each span:
{"start": <byte offset>, "end": <byte offset>, "quote": "<exact substring>", "category": "<one of: subject, style, lighting, mood, camera, setting>", "confidence": <0..1>}
Offsets are byte offsets into the UTF-8 text, half-open [start, end).
Return at most %d spans with confidence >= %.2f.
Never split words. Never overlap spans unless one fully contains the other.`
)

// systemPrompt renders the labeling instructions for the requested template
// version, appending pinned spans the model must preserve verbatim.
func systemPrompt(req driven.LabelRequest) string {
	maxSpans := req.MaxSpans
	if maxSpans <= 0 {
		maxSpans = domain.DefaultMaxSpans
	}
	template := spanPromptV2
	if req.TemplateVersion == "v1" {
		template = spanPromptV1
	}
	var b strings.Builder
	fmt.Fprintf(&b, template, maxSpans, req.MinConfidence)

	if len(req.Policy.PinnedSpans) > 0 {
		b.WriteString("\nThese spans are locked by the user; re-emit each verbatim with its category wherever its quote occurs, and do not relabel them:")
		for _, pin := range req.Policy.PinnedSpans {
			fmt.Fprintf(&b, "\n- %q (%s)", pin.Quote, pin.Category)
		}
	}
	return b.String()
}

// parseSpans decodes the model output leniently: the JSON array is located
// inside whatever surrounding prose the model produced, and individually
// malformed spans are dropped rather than failing the call.
func parseSpans(raw string, req driven.LabelRequest) ([]domain.Span, error) {
	from := strings.Index(raw, "[")
	to := strings.LastIndex(raw, "]")
	if from < 0 || to <= from {
		return nil, fmt.Errorf("%w: no JSON array in labeler output", domain.ErrInvalidInput)
	}

	var wire []wireSpan
	if err := json.Unmarshal([]byte(raw[from:to+1]), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	spans := make([]domain.Span, 0, len(wire))
	for _, w := range wire {
		if w.Start == nil || w.End == nil {
			logger.Debug("anthropic: dropping span with missing offsets")
			continue
		}
		start, end := *w.Start, *w.End
		if math.IsNaN(start) || math.IsNaN(end) ||
			start != math.Trunc(start) || end != math.Trunc(end) {
			logger.Debug("anthropic: dropping span with non-integral offsets")
			continue
		}
		spans = append(spans, domain.Span{
			ID:         w.ID,
			Start:      int(start),
			End:        int(end),
			Quote:      w.Quote,
			Category:   w.Category,
			Confidence: w.Confidence,
			Source:     domain.ProviderAnthropic,
		})
		if req.MaxSpans > 0 && len(spans) == req.MaxSpans {
			break
		}
	}
	return spans, nil
}

// retryAfterSeconds extracts the Retry-After header, 0 when absent.
func retryAfterSeconds(resp *http.Response) int {
	var secs int
	fmt.Sscanf(resp.Header.Get("Retry-After"), "%d", &secs)
	return secs
}

// ProviderName returns the backend identifier.
func (l *Labeler) ProviderName() string {
	return domain.ProviderAnthropic
}

// Ping validates the service is reachable by making a minimal request.
func (l *Labeler) Ping(ctx context.Context) error {
	_, err := l.sendMessages(ctx, "", "ping")
	return err
}

// Close releases resources.
func (l *Labeler) Close() error {
	l.client.CloseIdleConnections()
	return nil
}
