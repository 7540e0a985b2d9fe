package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/arbor/internal/api"
	"github.com/MikeSquared-Agency/arbor/internal/forest"
	"github.com/MikeSquared-Agency/arbor/internal/store"
	"github.com/MikeSquared-Agency/arbor/internal/tree"
)

var (
	transcriptPath string
	transcriptOut  string
)

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Find messages containing text",
	Long: `Search every conversation for messages containing the given text
(case-sensitive) and print each hit with its branch path and title.

Examples:
  arbor search "docker compose"
  arbor --archive export/conversations.json search retry`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := loadForest(archivePath, sessionDir)
		printHits(cmd.OutOrStdout(), f.SearchForString(args[0]))
		return nil
	},
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript <title>",
	Short: "Print one branch of a conversation as a transcript",
	Long: `Print a conversation as User:/Assistant: text. At each branch point the next
--path index picks the branch (1-based); without one the newest branch is used.

Examples:
  arbor transcript "Reverse a list"
  arbor transcript "Reverse a list" --path 2,1 --out convo_with_path.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := api.ParsePath(transcriptPath)
		if err != nil {
			return err
		}
		f := loadForest(archivePath, sessionDir)
		return writeTranscript(cmd.OutOrStdout(), f, args[0], path, transcriptOut)
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Build all trees and write them to Postgres",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
		ctx := cmd.Context()
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		f := loadForest(archivePath, sessionDir)
		if err := persistTrees(ctx, db, f.Trees()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d conversations\n", f.Len())
		return nil
	},
}

func init() {
	transcriptCmd.Flags().StringVar(&transcriptPath, "path", "", "comma separated branch choices, e.g. 2,1")
	transcriptCmd.Flags().StringVar(&transcriptOut, "out", "", "write the transcript to this file instead of stdout")
}

func printHits(w io.Writer, hits []*tree.Node) {
	for _, n := range hits {
		path, title := n.Locate()
		fmt.Fprintln(w, n.Content())
		fmt.Fprintf(w, "%v\t%s\n\n", path, title)
	}
	if len(hits) == 0 {
		fmt.Fprintln(w, "No matches.")
	}
}

func writeTranscript(stdout io.Writer, f *forest.Forest, title string, path []int, out string) error {
	text, err := f.LinearizeTitle(title, path)
	if err != nil {
		return err
	}
	if out == "" {
		_, err := io.WriteString(stdout, text)
		return err
	}
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	slog.Info("transcript written", "title", title, "path", path, "file", out)
	return nil
}

func persistTrees(ctx context.Context, db *store.Store, roots []*tree.Node) error {
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	for _, root := range roots {
		id, err := db.WriteTree(ctx, root)
		if err != nil {
			return fmt.Errorf("persist %q: %w", root.Title(), err)
		}
		slog.Debug("tree persisted", "title", root.Title(), "id", id)
	}
	slog.Info("trees persisted", "count", len(roots))
	return nil
}
