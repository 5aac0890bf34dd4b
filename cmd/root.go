package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ateesdalejr/podlistener/pkg/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "podlistener",
	Short: "Podcast mention mining server",
	Long: `Podlistener - a podcast feed monitoring and mention mining server

Podlistener subscribes to podcast RSS feeds, downloads new episodes,
transcribes them, scans the transcripts for configured keywords, and
enriches every hit with LLM-derived sentiment and context.

Features:
  • RSS feed polling with per-feed episode import limits
  • Streaming audio download with byte and wall-clock caps
  • Whisper-compatible transcription (local or external provider)
  • Keyword detection (substring, exact word, regex)
  • LLM enrichment with sentiment, topics, and signal flags`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates a new root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

// loadConfig loads the configuration when a command needs it. Commands call
// this lazily so version and help never require a readable config.
func loadConfig() (*config.Config, error) {
	if err := config.Init(); err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}
