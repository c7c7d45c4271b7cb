// internal/oracle/client.go
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
	"github.com/xkilldash9x/webpilot-cli/internal/config"
)

// Client talks to the Gemini generateContent API with retry, backoff and
// transient-vs-fatal error classification. It implements
// schemas.OracleClient.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	cfg        config.OracleConfig

	// sleep is swapped out in tests so retry timing is observable without
	// real delays.
	sleep func(context.Context, time.Duration) error
}

var _ schemas.OracleClient = (*Client)(nil)

// -- Gemini API Request/Response Structures (internal to this file) --

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiSystemInstruction struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"response_mime_type,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequestPayload struct {
	Contents          []geminiContent          `json:"contents"`
	SystemInstruction *geminiSystemInstruction `json:"system_instruction,omitempty"`
	GenerationConfig  geminiGenerationConfig   `json:"generationConfig,omitempty"`
}

type geminiResponsePayload struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// errClass buckets a failed attempt for retry purposes.
type errClass int

const (
	classGeneric errClass = iota
	classTransient
	classFatal
)

// NewClient initializes the oracle client.
func NewClient(cfg config.OracleConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle API key is required (set GEMINI_API_KEY)")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model)
	}

	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}

	return &Client{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		cfg:      cfg,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rpm/60.0), 1),
		logger:  logger.Named("oracle"),
		sleep:   sleepCtx,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Generate sends the bounded context window to the oracle and returns the
// raw response text. The retry budget depends on how each failure
// classifies: transient failures back off linearly with the attempt number,
// quota exhaustion gets a short bounded budget before propagating as fatal,
// and anything else gets a brief fixed retry.
func (c *Client) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	body, err := json.Marshal(c.buildPayload(req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var (
		transientAttempts int
		fatalAttempts     int
		genericAttempts   int
		lastErr           error
	)

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter wait aborted: %w", err)
		}

		text, class, err := c.doRequest(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err

		switch class {
		case classFatal:
			fatalAttempts++
			if fatalAttempts >= c.cfg.FatalMaxAttempts {
				return "", &FatalError{Attempts: fatalAttempts, Err: lastErr}
			}
			c.logger.Warn("Oracle quota exhausted, retrying briefly.",
				zap.Int("attempt", fatalAttempts), zap.Error(err))
			if serr := c.sleep(ctx, time.Duration(fatalAttempts)*c.cfg.FatalDelay); serr != nil {
				return "", &FatalError{Attempts: fatalAttempts, Err: lastErr}
			}
		case classTransient:
			transientAttempts++
			if transientAttempts >= c.cfg.TransientMaxAttempts {
				return "", &TransientError{Attempts: transientAttempts, Err: lastErr}
			}
			delay := time.Duration(transientAttempts) * c.cfg.TransientBaseDelay
			c.logger.Warn("Oracle unavailable, backing off.",
				zap.Int("attempt", transientAttempts), zap.Duration("delay", delay), zap.Error(err))
			if serr := c.sleep(ctx, delay); serr != nil {
				return "", &TransientError{Attempts: transientAttempts, Err: lastErr}
			}
		default:
			genericAttempts++
			if genericAttempts >= c.cfg.GenericMaxAttempts {
				return "", fmt.Errorf("oracle request failed after %d attempts: %w", genericAttempts, lastErr)
			}
			c.logger.Warn("Oracle request failed, retrying.",
				zap.Int("attempt", genericAttempts), zap.Error(err))
			if serr := c.sleep(ctx, c.cfg.GenericDelay); serr != nil {
				return "", fmt.Errorf("oracle request failed: %w", lastErr)
			}
		}
	}
}

// doRequest performs one HTTP round trip and classifies any failure.
func (c *Client) doRequest(ctx context.Context, body []byte) (string, errClass, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", classGeneric, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Network level failures are treated as transient.
		return "", classTransient, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classTransient, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, respBody),
			fmt.Errorf("oracle API error: status %d, body: %s", resp.StatusCode, truncate(string(respBody), 300))
	}

	var payload geminiResponsePayload
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return "", classGeneric, fmt.Errorf("failed to decode response payload: %w", err)
	}
	if len(payload.Candidates) == 0 {
		return "", classGeneric, fmt.Errorf("oracle returned no candidates")
	}

	candidate := payload.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		return "", classGeneric, fmt.Errorf("oracle returned empty content parts (reason: %s)", candidate.FinishReason)
	}

	c.logger.Info("Oracle generation complete.",
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_tokens", payload.UsageMetadata.PromptTokenCount),
		zap.Int("completion_tokens", payload.UsageMetadata.CandidatesTokenCount),
	)

	return candidate.Content.Parts[0].Text, classGeneric, nil
}

// classifyStatus maps an HTTP failure onto a retry class. A 429 that names
// quota exhaustion is the one permanently hopeless case for a session; every
// other 429/5xx is a reason to back off and try again.
func classifyStatus(status int, body []byte) errClass {
	lower := strings.ToLower(string(body))
	switch status {
	case http.StatusTooManyRequests:
		if strings.Contains(lower, "quota") || strings.Contains(lower, "resource_exhausted") {
			return classFatal
		}
		return classTransient
	case http.StatusServiceUnavailable, http.StatusInternalServerError:
		return classTransient
	default:
		return classGeneric
	}
}

func (c *Client) buildPayload(req schemas.GenerationRequest) geminiRequestPayload {
	contents := make([]geminiContent, 0, len(req.Turns))
	for _, turn := range req.Turns {
		parts := []geminiPart{{Text: turn.Text}}
		if turn.ImageB64 != "" {
			parts = append(parts, geminiPart{
				InlineData: &geminiInlineData{
					MimeType: "image/png",
					Data:     turn.ImageB64,
				},
			})
		}
		contents = append(contents, geminiContent{Role: "user", Parts: parts})
	}

	genCfg := geminiGenerationConfig{
		Temperature:     float64(req.Temperature),
		MaxOutputTokens: c.cfg.MaxTokens,
	}
	if req.ForceJSON {
		genCfg.ResponseMimeType = "application/json"
	}

	payload := geminiRequestPayload{
		Contents:         contents,
		GenerationConfig: genCfg,
	}
	if req.SystemPrompt != "" {
		payload.SystemInstruction = &geminiSystemInstruction{
			Parts: []geminiPart{{Text: req.SystemPrompt}},
		}
	}
	return payload
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
