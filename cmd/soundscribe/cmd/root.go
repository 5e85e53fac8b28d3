package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/config"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/logger"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "soundscribe",
	Short: "Adaptive audio processing for call recordings",
	Long: `soundscribe processes uploaded call recordings into transcripts. Each
recording is inspected, compressed to a transcription-optimal profile,
chunked when long, and routed to a processing strategy matched to its size:
small files transcribe directly, medium files run as parallel chunks, and
large files are delegated to a heavy-duty external backend.

Features:
- Audio inspection and transcription-optimal compression
- Batch and overlapping (streaming) chunking
- Size-based strategy selection with processing time estimates
- Parallel chunk transcription with overlap reconciliation
- Durable recording status with progress reporting`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.soundscribe.yaml)")
	rootCmd.PersistentFlags().String("temp-dir", "", "temporary directory for audio processing")

	// Logging flags
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("log-output", "stdout", "log output (stdout, stderr, file path)")
	rootCmd.PersistentFlags().Bool("log-no-color", false, "disable colored log output")
	rootCmd.PersistentFlags().Bool("log-caller", false, "include caller information in logs")

	// Bind flags to viper
	_ = viper.BindPFlag("audio.temp_dir", rootCmd.PersistentFlags().Lookup("temp-dir"))

	// Bind logging flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("logging.output", rootCmd.PersistentFlags().Lookup("log-output"))
	_ = viper.BindPFlag("logging.no_color", rootCmd.PersistentFlags().Lookup("log-no-color"))
	_ = viper.BindPFlag("logging.caller", rootCmd.PersistentFlags().Lookup("log-caller"))

	// Environment variable bindings
	viper.SetEnvPrefix("SOUNDSCRIBE")
	viper.AutomaticEnv()
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".soundscribe")
	}

	configFileUsed := ""
	if err := viper.ReadInConfig(); err == nil {
		configFileUsed = viper.ConfigFileUsed()
	}

	initLogger()

	if configFileUsed != "" {
		logger.Info().Str("config_file", configFileUsed).Msg("Loaded configuration file")
	}
}

// initLogger initializes the logger based on configuration
func initLogger() {
	cfg := config.DefaultConfig()

	cfg.Logging.Level = viper.GetString("logging.level")
	cfg.Logging.Format = viper.GetString("logging.format")
	cfg.Logging.Output = viper.GetString("logging.output")
	cfg.Logging.Caller = viper.GetBool("logging.caller")
	cfg.Logging.NoColor = viper.GetBool("logging.no_color")

	if err := logger.Initialize(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig builds the full application configuration for a command run.
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader(cfgFile)
	return loader.Load()
}
