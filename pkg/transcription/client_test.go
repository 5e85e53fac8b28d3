package transcription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestClientTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("failed to parse multipart form: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model field = %q", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language field = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "hello world", "confidence": 0.92, "language": "en"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	result, err := client.Transcribe(context.Background(), &Request{
		Audio:    []byte("fake audio"),
		Filename: "chunk_000.mp3",
		MimeType: "audio/mpeg",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}
	if result.Text != "hello world" {
		t.Errorf("text = %q, want %q", result.Text, "hello world")
	}
	if result.Confidence != 0.92 {
		t.Errorf("confidence = %v, want 0.92", result.Confidence)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"text": "recovered", "confidence": 0.8}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", WithRetries(5))
	result, err := client.Transcribe(context.Background(), &Request{
		Audio:    []byte("fake audio"),
		Filename: "chunk.mp3",
	})
	if err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}
	if result.Text != "recovered" {
		t.Errorf("text = %q, want %q", result.Text, "recovered")
	}
	if calls.Load() != 3 {
		t.Errorf("server called %d times, want 3", calls.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", WithRetries(5))
	_, err := client.Transcribe(context.Background(), &Request{
		Audio:    []byte("fake audio"),
		Filename: "chunk.mp3",
	})
	if err == nil {
		t.Fatal("Transcribe() expected error for 4xx response")
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1 (no retry on 4xx)", calls.Load())
	}
}

func TestClientRejectsEmptyAudio(t *testing.T) {
	client := NewClient("http://unused", "")
	if _, err := client.Transcribe(context.Background(), &Request{Filename: "x.mp3"}); err == nil {
		t.Fatal("Transcribe() expected error for empty audio")
	}
}

func TestBackendClientSubmit(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		body         string
		wantAccepted bool
	}{
		{
			name:         "accepted",
			statusCode:   http.StatusOK,
			body:         `{"accepted": true}`,
			wantAccepted: true,
		},
		{
			name:         "rejected by response body",
			statusCode:   http.StatusOK,
			body:         `{"accepted": false, "reason": "queue full"}`,
			wantAccepted: false,
		},
		{
			name:         "rejected by status code",
			statusCode:   http.StatusServiceUnavailable,
			body:         `overloaded`,
			wantAccepted: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/jobs" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewBackendClient(server.URL, "key", 0)
			result, err := client.Submit(context.Background(), "rec-1", "recordings/rec-1.mp3", "high")
			if err != nil {
				t.Fatalf("Submit() error: %v", err)
			}
			if result.Accepted != tt.wantAccepted {
				t.Errorf("accepted = %v, want %v", result.Accepted, tt.wantAccepted)
			}
		})
	}
}
