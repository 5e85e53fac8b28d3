// Package server exposes the processing pipeline over HTTP: job submission,
// streaming submission and status lookup.
package server

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/audio"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/config"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/logger"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/pipeline"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/recording"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/strategy"
)

// jobDispatcher is the slice of the pipeline the server drives.
type jobDispatcher interface {
	Dispatch(ctx context.Context, job *pipeline.Job) (*pipeline.Outcome, error)
	DispatchStreaming(ctx context.Context, job *pipeline.Job) (*pipeline.Outcome, error)
}

// Server accepts processing requests and reports recording status. Jobs run
// in the background; callers observe completion through the status endpoint.
type Server struct {
	app        *fiber.App
	dispatcher jobDispatcher
	selector   *strategy.Selector
	store      recording.StatusStore
	cfg        *config.Config
}

// ProcessRequest is the submission payload for a recording.
type ProcessRequest struct {
	RecordingID     string  `json:"recording_id"`
	FileSizeMB      float64 `json:"file_size_mb"`
	DurationMinutes float64 `json:"duration_minutes"`
	FileType        string  `json:"file_type"`
	EnableStreaming bool    `json:"enable_streaming"`
	Language        string  `json:"language"`
}

// StreamingRequest is the submission payload for overlapping-chunk
// processing.
type StreamingRequest struct {
	RecordingID    string `json:"recording_id"`
	ChunkSeconds   int    `json:"chunk_duration_seconds"`
	OverlapSeconds int    `json:"overlap_seconds"`
	FileType       string `json:"file_type"`
	Language       string `json:"language"`
}

// ProcessResponse acknowledges an accepted job.
type ProcessResponse struct {
	RecordingID      string `json:"recording_id"`
	Strategy         string `json:"strategy"`
	EstimatedSeconds int    `json:"estimated_seconds"`
}

// New creates a server over the given pipeline components.
func New(dispatcher *pipeline.Dispatcher, selector *strategy.Selector, store recording.StatusStore, cfg *config.Config) *Server {
	return newServer(dispatcher, selector, store, cfg)
}

func newServer(dispatcher jobDispatcher, selector *strategy.Selector, store recording.StatusStore, cfg *config.Config) *Server {
	s := &Server{
		dispatcher: dispatcher,
		selector:   selector,
		store:      store,
		cfg:        cfg,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "soundscribe",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(recover.New())

	api := s.app.Group("/api")
	api.Post("/process-recording", s.handleProcessRecording)
	api.Post("/process-streaming", s.handleProcessStreaming)
	api.Get("/recording/:id/status", s.handleStatus)

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	return s
}

// Listen starts serving on the configured address and blocks.
func (s *Server) Listen() error {
	logger.WithComponent("server").Info().Str("listen", s.cfg.Server.Listen).Msg("HTTP server starting")
	return s.app.Listen(s.cfg.Server.Listen)
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleProcessRecording(c *fiber.Ctx) error {
	var req ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.RecordingID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "recording_id is required")
	}
	if req.FileSizeMB < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "file_size_mb must be non-negative")
	}
	if req.FileType != "" && !audio.IsSupported("f"+normalizeExt(req.FileType)) {
		return fiber.NewError(fiber.StatusBadRequest, "unsupported file_type: "+req.FileType)
	}

	sel := s.selector.Select(int64(req.FileSizeMB * 1024 * 1024))
	job := s.buildJob(req.RecordingID, req.FileType, req.Language, sel)
	if req.EnableStreaming {
		job.ChunkSeconds = s.cfg.Audio.ChunkSeconds
		job.OverlapSeconds = s.cfg.Audio.OverlapSeconds
	}

	if err := s.acceptJob(c, job); err != nil {
		return err
	}

	go s.runJob(job, req.EnableStreaming)

	return c.Status(fiber.StatusAccepted).JSON(ProcessResponse{
		RecordingID:      job.RecordingID,
		Strategy:         string(sel.Name),
		EstimatedSeconds: sel.EstimatedSeconds,
	})
}

func (s *Server) handleProcessStreaming(c *fiber.Ctx) error {
	var req StreamingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.RecordingID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "recording_id is required")
	}

	chunkSeconds := req.ChunkSeconds
	if chunkSeconds <= 0 {
		chunkSeconds = s.cfg.Audio.ChunkSeconds
	}
	overlapSeconds := req.OverlapSeconds
	if overlapSeconds < 0 {
		overlapSeconds = s.cfg.Audio.OverlapSeconds
	}
	if overlapSeconds >= chunkSeconds {
		return fiber.NewError(fiber.StatusBadRequest, "overlap must be smaller than chunk duration")
	}

	// Streaming runs the chunked path regardless of size; the selector only
	// supplies the processing time estimate.
	sel := s.selector.Select(0)
	job := s.buildJob(req.RecordingID, req.FileType, req.Language, sel)
	job.ChunkSeconds = chunkSeconds
	job.OverlapSeconds = overlapSeconds

	if err := s.acceptJob(c, job); err != nil {
		return err
	}

	go s.runJob(job, true)

	return c.Status(fiber.StatusAccepted).JSON(ProcessResponse{
		RecordingID:      job.RecordingID,
		Strategy:         string(sel.Name),
		EstimatedSeconds: sel.EstimatedSeconds,
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	recordingID := c.Params("id")

	state, err := s.store.GetStatus(c.Context(), recordingID)
	if err != nil {
		var notFound *recording.ErrNotFound
		if errors.As(err, &notFound) {
			return fiber.NewError(fiber.StatusNotFound, "recording not found")
		}
		return err
	}
	return c.JSON(state)
}

// buildJob derives the blob reference from the recording ID and file type.
func (s *Server) buildJob(recordingID, fileType, language string, sel strategy.ProcessingStrategy) *pipeline.Job {
	filename := recordingID + normalizeExt(fileType)
	return &pipeline.Job{
		RecordingID:  recordingID,
		Bucket:       s.cfg.Server.Bucket,
		Path:         filename,
		Filename:     filename,
		Strategy:     sel,
		ChunkMinutes: s.cfg.Audio.ChunkMinutes,
		Language:     language,
	}
}

// acceptJob records the uploading state before the background run so a
// status lookup immediately after the 202 never misses the recording.
func (s *Server) acceptJob(c *fiber.Ctx, job *pipeline.Job) error {
	if err := s.store.UpdateStatus(c.Context(), job.RecordingID, recording.StatusUploading, nil); err != nil {
		logger.WithComponent("server").Error().Err(err).Str("recording_id", job.RecordingID).Msg("Failed to record accepted job")
		return fiber.NewError(fiber.StatusInternalServerError, "failed to persist recording state")
	}
	return nil
}

func (s *Server) runJob(job *pipeline.Job, streaming bool) {
	log := logger.WithComponent("server").WithField("recording_id", job.RecordingID)

	var err error
	if streaming {
		_, err = s.dispatcher.DispatchStreaming(context.Background(), job)
	} else {
		_, err = s.dispatcher.Dispatch(context.Background(), job)
	}
	if err != nil {
		// Terminal failure state is already persisted by the dispatcher.
		log.Error().Err(err).Msg("Background job failed")
	}
}

func normalizeExt(fileType string) string {
	if fileType == "" {
		return ".mp3"
	}
	if !strings.HasPrefix(fileType, ".") {
		return "." + strings.ToLower(fileType)
	}
	return strings.ToLower(fileType)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
