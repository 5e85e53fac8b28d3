package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/logger"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/recording"
)

// BackendClient submits heavy-duty jobs to the external processing backend.
// The backend answers accepted/rejected synchronously; completion is
// observed only through the status store.
type BackendClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewBackendClient creates a client for the external backend.
func NewBackendClient(baseURL, apiKey string, timeout time.Duration) *BackendClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BackendClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type submitRequest struct {
	RecordingID  string `json:"recording_id"`
	FileRef      string `json:"file_ref"`
	PriorityHint string `json:"priority_hint"`
}

type submitResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason"`
}

// Submit forwards a job to the backend with its priority hint.
func (c *BackendClient) Submit(ctx context.Context, recordingID, fileRef, priorityHint string) (*recording.SubmitResult, error) {
	log := logger.WithComponent("backend-client").WithField("recording_id", recordingID)

	payload, err := json.Marshal(submitRequest{
		RecordingID:  recordingID,
		FileRef:      fileRef,
		PriorityHint: priorityHint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submit request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/jobs", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	log.Info().Str("file_ref", fileRef).Str("priority_hint", priorityHint).Msg("Submitting job to external backend")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend submit failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &recording.SubmitResult{
			Accepted: false,
			Reason:   fmt.Sprintf("backend rejected submission: %d: %s", resp.StatusCode, body),
		}, nil
	}

	var decoded submitResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode backend response: %w", err)
	}

	log.Info().Bool("accepted", decoded.Accepted).Msg("Backend answered submission")
	return &recording.SubmitResult{
		Accepted: decoded.Accepted,
		Reason:   decoded.Reason,
	}, nil
}
