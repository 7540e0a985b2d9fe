package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/arbor/internal/archive"
	"github.com/MikeSquared-Agency/arbor/internal/config"
	"github.com/MikeSquared-Agency/arbor/internal/forest"
)

var (
	cfg         = config.Load()
	archivePath string
	sessionDir  string
	version     = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Rebuild, search and export conversation trees from a chat export",
	Long: `arbor reads a conversations.json export, rebuilds every conversation into a
time-ordered message tree, and lets you search the trees or print one branch
as a transcript.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(cfg.LogLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&archivePath, "archive", cfg.ArchivePath, "path to conversations.json")
	rootCmd.PersistentFlags().StringVar(&sessionDir, "sessions", cfg.SessionDir, "directory of JSONL session transcripts to add")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(importCmd)
}

// loadForest loads the archive, plus any session transcripts, and builds
// every tree. Load and build problems are logged; the forest holds whatever
// could be built.
func loadForest(path, sessions string) *forest.Forest {
	a, err := archive.LoadFile(path, slog.Default())
	if err != nil {
		slog.Error("failed to load archive", "path", path, "error", err)
	}
	if sessions != "" {
		extra, err := archive.LoadSessions(sessions, slog.Default())
		if err != nil {
			slog.Error("failed to load sessions", "dir", sessions, "error", err)
		}
		a = append(a, extra...)
	}
	f := forest.New(a, slog.Default())
	if err := f.BuildAllTrees(); err != nil {
		slog.Warn("some conversations could not be built", "error", err)
	}
	return f
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
