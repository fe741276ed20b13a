package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"NewsSummarizer/internal/config"
	"NewsSummarizer/internal/domain"
	"NewsSummarizer/internal/ports"
)

const defaultTimeout = 45 * time.Second

// Client talks to a hosted sequence-to-sequence model through an
// inference API compatible with Hugging Face's text2text/summarization task.
type Client struct {
	endpoint   string
	apiKey     string
	maxRetries uint64
	baseDelay  time.Duration
	http       *http.Client
}

var _ ports.TextGenerator = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.MLConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint:   cfg.InferenceURL,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		baseDelay:  500 * time.Millisecond,
		http:       &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Inputs     string           `json:"inputs"`
	Parameters generateParams   `json:"parameters"`
	Options    inferenceOptions `json:"options"`
}

type generateParams struct {
	MaxLength     int     `json:"max_length"`
	MinLength     int     `json:"min_length"`
	NumBeams      int     `json:"num_beams"`
	LengthPenalty float64 `json:"length_penalty"`
	EarlyStopping bool    `json:"early_stopping"`
	DoSample      bool    `json:"do_sample"`
	Truncation    string  `json:"truncation"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
	UseCache     bool `json:"use_cache"`
}

type summaryItem struct {
	SummaryText   string `json:"summary_text"`
	GeneratedText string `json:"generated_text"`
	Summary       string `json:"summary"`
}

func (s summaryItem) text() string {
	switch {
	case s.SummaryText != "":
		return s.SummaryText
	case s.GeneratedText != "":
		return s.GeneratedText
	default:
		return s.Summary
	}
}

// Generate runs the model on text with the given decoding parameters.
// Transport errors, 5xx and 429 responses are retried with exponential
// backoff; any other failure is returned immediately.
func (c *Client) Generate(ctx context.Context, text string, params domain.GenerationParams) (string, error) {
	if c.http == nil || c.endpoint == "" {
		return "", fmt.Errorf("ml client misconfigured")
	}

	payload := generateRequest{
		Inputs: text,
		Parameters: generateParams{
			MaxLength:     params.MaxLength,
			MinLength:     params.MinLength,
			NumBeams:      params.NumBeams,
			LengthPenalty: params.LengthPenalty,
			EarlyStopping: params.EarlyStopping,
			DoSample:      params.DoSample,
			Truncation:    "only_first",
		},
		Options: inferenceOptions{WaitForModel: true, UseCache: true},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.baseDelay
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx)

	var summary string
	err = backoff.Retry(func() error {
		out, err := c.post(ctx, body)
		if err != nil {
			return err
		}
		summary = out
		return nil
	}, retry)
	if err != nil {
		return "", err
	}

	return summary, nil
}

func (c *Client) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(fmt.Errorf("do request: %w", err))
		}
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(raw)))
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			return "", statusErr
		}
		return "", backoff.Permanent(statusErr)
	}

	summary, err := decodeSummary(raw)
	if err != nil {
		return "", backoff.Permanent(err)
	}
	return summary, nil
}

// decodeSummary accepts the task-pipeline list form [{"summary_text": ...}]
// as well as a bare {"summary": ...} object.
func decodeSummary(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", errors.New("decode response: empty body")
	}

	if trimmed[0] == '[' {
		var items []summaryItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if len(items) == 0 {
			return "", errors.New("decode response: no generations")
		}
		return strings.TrimSpace(items[0].text()), nil
	}

	var item summaryItem
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return strings.TrimSpace(item.text()), nil
}
