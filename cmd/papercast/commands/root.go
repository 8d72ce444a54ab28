package commands

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "papercast",
	Short: "Generate radio-style programs from research papers",
	Long: `papercast - turn research papers into listenable radio programs.

A program is produced in stages: an outline grounded in the source
documents, metadata extraction (author, title, guest voice), a
section-by-section two-host dialogue script, speech synthesis, and
ffmpeg assembly with optional background music.

Credentials are read from the environment, with a .env file in the
working directory loaded first if present:
  OPENAI_API_KEY       generation and speech synthesis (required)
  GEMINI_API_KEY       optional, switches the JSON repair model to Gemini
  AWS_ACCESS_KEY_ID    only for s3:// file stores
  AWS_SECRET_ACCESS_KEY

Examples:
  # One-shot recording from a request file
  papercast record -f request.yaml -o dist

  # Queue an episode and process it with the watcher
  papercast jobs submit -f request.yaml --title "Attention Is All You Need"
  papercast watch --root ./library

  # Remove assistants and files left behind by crashed runs
  papercast clean`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initEnv() {
	// Missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
