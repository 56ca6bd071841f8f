package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// Version is set by the main package via ldflags.
	Version = "dev"
)

// NewRootCmd creates the root sekia-discord command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "sekia-discord",
		Short:   "sekia Discord bot — interactions endpoint and gateway listener",
		Version: Version,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newListenCmd())
	rootCmd.AddCommand(newCommandsCmd())
	rootCmd.AddCommand(newSecretsCmd())

	return rootCmd
}

func newLogger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
	}
	return zerolog.New(
		zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339},
	).Level(level).With().Timestamp().Logger(), nil
}
