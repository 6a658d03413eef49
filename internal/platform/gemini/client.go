package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/vhlong/readpulse-api/internal/generation"
	"github.com/vhlong/readpulse-api/internal/orchestrator"
)

const (
	// DefaultBaseURL is the public Gemini API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultModel is the model used when configuration does not override it.
	DefaultModel = "gemini-2.0-flash"

	apiVersion = "v1beta"

	// defaultTimeout bounds one HTTP exchange end to end.
	defaultTimeout = 30 * time.Second

	// maxErrorBody bounds how much of an error response is read for
	// classification.
	maxErrorBody = 64 << 10
)

// HealthReporter is the slice of the credential registry the client needs:
// per-call pacing only. Outcome reporting stays with the orchestration
// facade so the client never owns health policy.
type HealthReporter interface {
	SinceLastUse(id int) time.Duration
}

// ClientConfig holds the client tunables.
type ClientConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// MinSpacing is the per-credential cooldown the client enforces before
	// dispatching; it mirrors the registry's MinSpacing.
	MinSpacing time.Duration
}

// DefaultClientConfig returns the production tunables.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:    DefaultBaseURL,
		Model:      DefaultModel,
		Timeout:    defaultTimeout,
		MinSpacing: time.Second,
	}
}

// Client talks to the generateContent endpoint. It is safe for concurrent
// use, though in practice the request scheduler serializes access.
type Client struct {
	httpClient *http.Client
	cfg        ClientConfig
	reporter   HealthReporter
	logger     *slog.Logger
}

// NewClient creates a client. reporter may be nil, in which case no
// per-credential pacing is applied.
func NewClient(cfg ClientConfig, reporter HealthReporter, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		reporter:   reporter,
		logger:     logger.With(slog.String("component", "gemini_client")),
	}
}

// Request envelope for the generateContent endpoint.
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	TopP            float64 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Call performs one generateContent exchange with the given credential and
// returns the candidate text with markdown artifacts stripped. Every failure
// is returned as a *generation.RequestError carrying the classified kind.
func (c *Client) Call(ctx context.Context, cred orchestrator.Credential, prompt string, cfg generation.Config) (string, error) {
	if err := c.pace(ctx, cred.ID); err != nil {
		return "", err
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
			TopK:            cfg.TopK,
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
	})
	if err != nil {
		return "", &generation.RequestError{
			Kind:    generation.FailureOther,
			Message: fmt.Sprintf("marshal request: %v", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(cred.Secret), bytes.NewReader(body))
	if err != nil {
		return "", &generation.RequestError{
			Kind:    generation.FailureOther,
			Message: fmt.Sprintf("build request: %v", err),
		}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.logger.Warn("network failure",
			slog.Int("key_id", cred.ID),
			slog.String("error", err.Error()))
		return "", &generation.RequestError{
			Kind:    generation.FailureNetwork,
			Message: fmt.Sprintf("http exchange: %v", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", c.classifyHTTPError(cred.ID, resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &generation.RequestError{
			Kind:    generation.FailureNetwork,
			Message: fmt.Sprintf("read response: %v", err),
		}
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &generation.RequestError{
			Kind:       generation.FailureBadFormat,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("decode response: %v", err),
		}
	}
	text := extractText(parsed)
	if text == "" {
		return "", &generation.RequestError{
			Kind:       generation.FailureBadFormat,
			StatusCode: resp.StatusCode,
			Message:    "response has no candidate text",
		}
	}

	c.logger.Debug("generate call succeeded",
		slog.Int("key_id", cred.ID),
		slog.Duration("latency", time.Since(start)),
		slog.Int("response_bytes", len(raw)))

	return StripMarkdown(text), nil
}

// pace waits out the remainder of the per-credential cooldown.
func (c *Client) pace(ctx context.Context, id int) error {
	if c.reporter == nil || c.cfg.MinSpacing <= 0 {
		return nil
	}
	wait := c.cfg.MinSpacing - c.reporter.SinceLastUse(id)
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func (c *Client) endpoint(secret string) string {
	base := strings.TrimSuffix(c.cfg.BaseURL, "/")
	return base + "/" + apiVersion + "/models/" + url.PathEscape(c.cfg.Model) +
		":generateContent?key=" + url.QueryEscape(secret)
}

// classifyHTTPError maps a non-2xx response onto the failure taxonomy. The
// status code decides; for 429 and ambiguous 4xx bodies the provider's error
// message is also checked for quota wording, since some quota rejections
// arrive as 400 with a RESOURCE_EXHAUSTED payload.
func (c *Client) classifyHTTPError(keyID int, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := gjson.GetBytes(raw, "error.message").String()
	status := gjson.GetBytes(raw, "error.status").String()
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}
	if message == "" {
		message = resp.Status
	}

	kind := generation.FailureOther
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		kind = generation.FailureQuota
	case resp.StatusCode == http.StatusServiceUnavailable:
		kind = generation.FailureUnavailable
	case resp.StatusCode == http.StatusInternalServerError:
		kind = generation.FailureServer
	case quotaWording(status) || quotaWording(message):
		kind = generation.FailureQuota
	}

	c.logger.Warn("generate call failed",
		slog.Int("key_id", keyID),
		slog.Int("status", resp.StatusCode),
		slog.String("failure_kind", kind.String()))

	return &generation.RequestError{
		Kind:       kind,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

// quotaWording reports whether the provider text signals quota exhaustion.
func quotaWording(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "quota") ||
		strings.Contains(s, "resource_exhausted") ||
		strings.Contains(s, "rate limit")
}

func extractText(resp generateResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
