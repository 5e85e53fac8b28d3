package main

import (
	"os"

	"github.com/eci-global/ECI-SoundScribe-sub007/cmd/soundscribe/cmd"
	"github.com/eci-global/ECI-SoundScribe-sub007/pkg/logger"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("Application execution failed")
		os.Exit(1)
	}
}
