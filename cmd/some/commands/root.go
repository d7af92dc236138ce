package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/some/internal/env"
	"github.com/ekisa-team/some/internal/envvar"
	_ "github.com/ekisa-team/some/internal/inference"
	"github.com/ekisa-team/some/internal/logger"
	_ "github.com/ekisa-team/some/internal/modules"
)

var (
	// Global flags
	verbose bool
	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "some",
	Short: "Singing-voice to MIDI note extraction",
	Long: `some - run trained note extraction checkpoints over audio.

A model is a checkpoint plus the training configuration that produced it.
The configuration names the architecture (model_cls) and the training task
(task_cls); the task decides how audio is prepared and how the network output
is read back as notes.

Checkpoints may be local paths, hf://owner/repo/file[@revision] or
s3://bucket/key. Remote checkpoints are cached under the cache directory
(SOME_CACHE_PATH, default: the OS cache directory).

Examples:
  # Extract notes from two files
  some infer -c config.yaml -m model.ckpt vocals1.wav vocals2.wav

  # Only the note pitches of the first file
  some infer -c config.yaml -m model.ckpt -q '.[0].results[0].note_midi' vocals.wav

  # Inspect and export a training checkpoint
  some inspect last.ckpt
  some export last.ckpt model.ckpt

  # Serve over gRPC and reload when the files change
  some serve -c config.yaml -m model.ckpt --watch`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		opts := []logger.Option{logger.WithConsole(cmd.ErrOrStderr())}
		if logFile != "" {
			opts = append(opts, logger.WithLogToFile(true), logger.WithLogFile(logFile))
		}
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		opts = append(opts, logger.WithLevel(level))
		slog.SetDefault(logger.New(env.FromEnv(), opts...))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", os.Getenv(envvar.SomeLogFile), "also write logs to this rotating file")
}
