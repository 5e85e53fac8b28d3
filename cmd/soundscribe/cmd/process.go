package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/audio"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/config"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/logger"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/pipeline"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/transcription"
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Process local recordings through the pipeline",
	Long: `Inspect and compress local audio/video recordings, and transcribe them
when a transcription service is configured.

Supported formats:
- Audio: MP3, WAV, M4A, FLAC
- Video: MP4, MOV, AVI, WEBM (audio track extracted)

Examples:
  # Compress a single recording
  soundscribe process call.mp3

  # Process a batch with bounded concurrency
  soundscribe process recordings/*.mp3 --workers 3

  # Transcribe with overlapping chunks
  soundscribe process interview.wav --transcribe --chunk-seconds 30 --overlap-seconds 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringP("output", "o", "", "output file path (default: input_file.txt)")
	processCmd.Flags().Bool("transcribe", false, "transcribe after compression")
	processCmd.Flags().String("language", "", "language hint forwarded to the transcription service")

	processCmd.Flags().Int("chunk-seconds", 0, "streaming chunk duration in seconds (0 disables chunking)")
	processCmd.Flags().Int("overlap-seconds", 5, "overlap between consecutive chunks in seconds")
	processCmd.Flags().Int("workers", pipeline.DefaultConcurrency, "number of concurrent workers")

	processCmd.Flags().Bool("progress", true, "show progress while processing")
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("process")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	transcribe, _ := cmd.Flags().GetBool("transcribe")
	if transcribe && cfg.Transcription.BaseURL == "" {
		return fmt.Errorf("transcription requires transcription.base_url (set SOUNDSCRIBE_TRANSCRIPTION_BASE_URL or the config file)")
	}

	files, err := readInputs(args)
	if err != nil {
		return err
	}

	log.Info().Int("file_count", len(files)).Msg("Starting batch processing")

	inspector := audio.NewInspector(cfg.Audio.TempDir)
	compressor := audio.NewCompressor(inspector, cfg.Audio.TempDir)
	runner := pipeline.NewBatchRunner(inspector, compressor)

	workers, _ := cmd.Flags().GetInt("workers")
	showProgress, _ := cmd.Flags().GetBool("progress")

	var onProgress func(completed, total int)
	if showProgress {
		onProgress = func(completed, total int) {
			fmt.Printf("\rProcessed %d/%d files", completed, total)
			if completed == total {
				fmt.Println()
			}
		}
	}

	ctx := context.Background()
	results := runner.Run(ctx, files, nil, workers, onProgress)

	successCount := 0
	failureCount := 0
	for i, result := range results {
		fileLog := log.WithField("file", result.Name)
		if result.Err != nil {
			fileLog.Error().Err(result.Err).Msg("Failed to process file")
			failureCount++
			continue
		}

		reportResult(args[i], &result)

		if transcribe {
			if err := transcribeResult(ctx, cmd, cfg, inspector, args[i], &result); err != nil {
				fileLog.Error().Err(err).Msg("Transcription failed")
				failureCount++
				continue
			}
		}
		successCount++
	}

	log.Info().
		Int("successful", successCount).
		Int("failed", failureCount).
		Int("total", len(files)).
		Msg("Batch processing completed")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d files failed", failureCount, len(files))
	}
	return nil
}

func readInputs(paths []string) ([]pipeline.BatchFile, error) {
	files := make([]pipeline.BatchFile, 0, len(paths))
	for _, path := range paths {
		if !audio.IsSupported(path) {
			return nil, fmt.Errorf("unsupported file type: %s", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, pipeline.BatchFile{
			Name: filepath.Base(path),
			Data: data,
		})
	}
	return files, nil
}

func reportResult(path string, result *pipeline.PerFileResult) {
	fmt.Printf("%s\n", filepath.Base(path))
	fmt.Printf("  Duration: %v\n", result.Profile.Duration.Round(time.Second))
	fmt.Printf("  Codec: %s @ %.0f kbps, %d Hz\n", result.Profile.Codec, result.Profile.BitrateKbps, result.Profile.SampleRate)
	if result.Compression.WasCompressed {
		fmt.Printf("  Compressed: %d -> %d bytes (%.1f%%)\n",
			result.Compression.OriginalSize,
			result.Compression.CompressedSize,
			result.Compression.CompressionRatio*100)
	} else if result.Compression.EncodeErr != "" {
		fmt.Printf("  Compression degraded, using original audio\n")
	} else {
		fmt.Printf("  Already optimized, compression skipped\n")
	}
}

func transcribeResult(ctx context.Context, cmd *cobra.Command, cfg *config.Config, inspector audio.Inspector, path string, result *pipeline.PerFileResult) error {
	client := transcription.NewClient(
		cfg.Transcription.BaseURL,
		cfg.Transcription.APIKey,
		transcription.WithModel(cfg.Transcription.Model),
		transcription.WithTimeout(cfg.Transcription.Timeout),
		transcription.WithRetries(cfg.Transcription.Retries),
	)

	language, _ := cmd.Flags().GetString("language")
	chunkSeconds, _ := cmd.Flags().GetInt("chunk-seconds")
	overlapSeconds, _ := cmd.Flags().GetInt("overlap-seconds")
	workers, _ := cmd.Flags().GetInt("workers")

	sizeMB := float64(len(result.Compression.Output)) / (1024 * 1024)
	started := time.Now()

	var text string
	var err error
	if chunkSeconds > 0 {
		text, err = transcribeChunked(ctx, cfg, inspector, client, result, language, chunkSeconds, overlapSeconds, workers)
	} else {
		var resp *transcription.Result
		resp, err = client.Transcribe(ctx, &transcription.Request{
			Audio:    result.Compression.Output,
			Filename: result.Name,
			MimeType: "audio/mpeg",
			Language: language,
		})
		if err == nil {
			text = resp.Text
		}
	}
	if err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
	}
	if err := os.WriteFile(outputPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}

	fmt.Printf("  Transcribed %.1f MB in %v\n", sizeMB, time.Since(started).Round(time.Second))
	fmt.Printf("  Output: %s\n", outputPath)
	return nil
}

func transcribeChunked(ctx context.Context, cfg *config.Config, inspector audio.Inspector, client *transcription.Client, result *pipeline.PerFileResult, language string, chunkSeconds, overlapSeconds, workers int) (string, error) {
	chunker := audio.NewChunker(inspector, cfg.Audio.TempDir)
	chunks, err := chunker.SplitStreaming(ctx, result.Compression.Output, result.Name, chunkSeconds, overlapSeconds)
	if err != nil {
		return "", err
	}

	if workers <= 0 {
		workers = pipeline.DefaultConcurrency
	}

	results := make([]pipeline.ChunkResult, len(chunks))
	semaphore := make(chan struct{}, workers)
	done := make(chan int, len(chunks))

	for i := range chunks {
		go func(index int) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			chunk := &chunks[index]
			cr := pipeline.ChunkResult{Index: chunk.Index, Start: chunk.Start, Duration: chunk.Duration}
			resp, err := client.Transcribe(ctx, &transcription.Request{
				Audio:    chunk.Payload,
				Filename: fmt.Sprintf("%s_chunk_%03d.mp3", strings.TrimSuffix(result.Name, filepath.Ext(result.Name)), chunk.Index),
				MimeType: "audio/mpeg",
				Language: language,
			})
			chunk.Payload = nil
			if err != nil {
				cr.Err = err
			} else {
				cr.Text = resp.Text
				cr.Confidence = resp.Confidence
			}
			results[index] = cr
			done <- index
		}(i)
	}
	for range chunks {
		<-done
	}

	failed := 0
	for _, cr := range results {
		if cr.Err != nil {
			failed++
		}
	}
	if failed == len(chunks) {
		return "", fmt.Errorf("all %d chunks failed transcription", len(chunks))
	}

	return pipeline.Reconcile(results, overlapSeconds), nil
}
