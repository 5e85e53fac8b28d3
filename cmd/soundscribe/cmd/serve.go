package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/audio"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/config"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/logger"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/pipeline"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/recording"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/server"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/strategy"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/transcription"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recording processing HTTP server",
	Long: `Start the HTTP server that accepts recording processing requests.

Submitted recordings are processed in the background; clients poll
GET /api/recording/:id/status for progress and results. Transcription and
backend credentials are read from the environment (a .env file is loaded
when present) or the configuration file.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "listen address (default :8080)")
	serveCmd.Flags().String("status-db", "", "path to the recording status database")
	serveCmd.Flags().String("blob-dir", "", "root directory of local blob storage")

	_ = viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("server.status_db", serveCmd.Flags().Lookup("status-db"))
	_ = viper.BindPFlag("server.blob_dir", serveCmd.Flags().Lookup("blob-dir"))
}

func runServe(cmd *cobra.Command, args []string) error {
	// Credentials commonly live in a .env during local development.
	if err := godotenv.Load(); err == nil {
		logger.Debug().Msg("Loaded environment from .env")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyServeOverrides(cfg)

	if cfg.Transcription.BaseURL == "" {
		return fmt.Errorf("transcription.base_url is required (set SOUNDSCRIBE_TRANSCRIPTION_BASE_URL or the config file)")
	}

	store, err := recording.NewBoltStore(cfg.Server.StatusDB)
	if err != nil {
		return fmt.Errorf("failed to open status database: %w", err)
	}
	defer func() { _ = store.Close() }()

	dispatcher := buildDispatcher(cfg, store)
	srv := server.New(dispatcher, strategy.NewSelectorWithThresholds(cfg.Strategy.MediumThresholdMB, cfg.Strategy.LargeThresholdMB), store, cfg)

	// Shut down cleanly on SIGINT/SIGTERM so in-flight requests drain.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-stop
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
		if err := srv.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	return srv.Listen()
}

func applyServeOverrides(cfg *config.Config) {
	if v := viper.GetString("server.listen"); v != "" {
		cfg.Server.Listen = v
	}
	if v := viper.GetString("server.status_db"); v != "" {
		cfg.Server.StatusDB = v
	}
	if v := viper.GetString("server.blob_dir"); v != "" {
		cfg.Server.BlobDir = v
	}
}

func buildDispatcher(cfg *config.Config, store recording.StatusStore) *pipeline.Dispatcher {
	inspector := audio.NewInspector(cfg.Audio.TempDir)
	compressor := audio.NewCompressor(inspector, cfg.Audio.TempDir)
	chunker := audio.NewChunker(inspector, cfg.Audio.TempDir)

	transcriber := transcription.NewClient(
		cfg.Transcription.BaseURL,
		cfg.Transcription.APIKey,
		transcription.WithModel(cfg.Transcription.Model),
		transcription.WithTimeout(cfg.Transcription.Timeout),
		transcription.WithRetries(cfg.Transcription.Retries),
	)
	backend := transcription.NewBackendClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout)
	blobs := recording.NewLocalBlobStore(cfg.Server.BlobDir)

	return pipeline.NewDispatcher(
		inspector,
		compressor,
		chunker,
		transcriber,
		store,
		blobs,
		backend,
		pipeline.WithMaxConcurrency(cfg.Audio.MaxConcurrency),
		pipeline.WithPollTimeout(cfg.Backend.PollTimeout),
	)
}
