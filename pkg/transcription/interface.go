// Package transcription defines the opaque transcription capability the
// pipeline dispatches audio to, plus HTTP clients for the hosted services.
package transcription

import "context"

// Request carries one audio payload to the transcription service.
type Request struct {
	Audio    []byte
	Filename string
	MimeType string

	// Hints forwarded to the service; both optional.
	Language string
	Prompt   string
}

// Result is the service's answer for one payload. Confidence is in [0, 1].
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language,omitempty"`
}

// Transcriber converts audio bytes to text. Latency and failure are treated
// as black-box properties of the service behind it.
type Transcriber interface {
	Transcribe(ctx context.Context, req *Request) (*Result, error)
}

// Summarizer condenses a finished transcript. Optional capability; the
// dispatcher leaves the summary empty when none is configured.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (string, error)
}
