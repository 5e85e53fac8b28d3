package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/logger"
)

// Client is a Transcriber backed by a whisper-compatible HTTP service.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	retries    int
	httpClient *http.Client
}

// ClientOption customizes the client.
type ClientOption func(*Client)

// WithModel sets the model hint sent with each request.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRetries sets the number of retry attempts for transient failures.
func WithRetries(retries int) ClientOption {
	return func(c *Client) {
		c.retries = retries
	}
}

// NewClient creates a transcription client for the given service.
func NewClient(baseURL, apiKey string, options ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   "whisper-1",
		retries: 3,
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// transcribeResponse mirrors the service's JSON answer.
type transcribeResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
	Error      string  `json:"error"`
}

// Transcribe uploads the audio as multipart form data and parses the JSON
// response, retrying transient failures with exponential backoff.
func (c *Client) Transcribe(ctx context.Context, req *Request) (*Result, error) {
	log := logger.WithComponent("transcription-client").WithField("file", req.Filename)

	if len(req.Audio) == 0 {
		return nil, fmt.Errorf("empty audio payload")
	}

	log.Debug().Int("audio_bytes", len(req.Audio)).Str("model", c.model).Msg("Sending transcription request")

	var result *Result
	operation := func() error {
		httpReq, err := c.buildRequest(ctx, req)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		// 4xx answers are not retryable; the request itself is wrong.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("transcription request rejected: %d: %s", resp.StatusCode, body))
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("transcription service error: %d: %s", resp.StatusCode, body)
		}

		var decoded transcribeResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if decoded.Error != "" {
			return backoff.Permanent(fmt.Errorf("transcription failed: %s", decoded.Error))
		}

		result = &Result{
			Text:       decoded.Text,
			Confidence: decoded.Confidence,
			Language:   decoded.Language,
		}
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.retries)),
		ctx,
	)
	if err := backoff.Retry(operation, bo); err != nil {
		log.Error().Err(err).Msg("Transcription request failed")
		return nil, err
	}

	log.Debug().Int("text_length", len(result.Text)).Float64("confidence", result.Confidence).Msg("Transcription received")
	return result, nil
}

// buildRequest assembles the multipart upload. A fresh request is built per
// attempt because the body reader is consumed on send.
func (c *Client) buildRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", req.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("failed to write audio payload: %w", err)
	}

	_ = writer.WriteField("model", c.model)
	if req.Language != "" {
		_ = writer.WriteField("language", req.Language)
	}
	if req.Prompt != "" {
		_ = writer.WriteField("prompt", req.Prompt)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return httpReq, nil
}
