package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"treevault/pkg/ignore"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Add file contents to the index",
	Long:  `Ingest files (directories are walked recursively, honoring .tvignore) and stage them for the next commit.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireApp(); err != nil {
			return err
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		start := time.Now()

		matcher, err := ignore.NewMatcher(TV.WorkDir)
		if err != nil {
			return fmt.Errorf("failed to load ignore rules: %w", err)
		}
		ing := TV.Repo.Ingester()

		addedCount := 0
		var totalSize int64
		for _, arg := range args {
			target, err := filepath.Abs(arg)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(TV.WorkDir, target)
			if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				return fmt.Errorf("%s is outside the repository", arg)
			}

			err = matcher.Walk(TV.WorkDir, target, func(abs, rel string) error {
				node, mode, err := ing.IngestFile(ctx, abs)
				if err != nil {
					return fmt.Errorf("failed to ingest %s: %w", rel, err)
				}
				TV.Index.Add(rel, node.ID(), node.TotalSize, mode)
				addedCount++
				totalSize += node.TotalSize
				return nil
			})
			if err != nil {
				return err
			}
		}

		if addedCount == 0 {
			fmt.Fprintln(out, "⚠️  No files added.")
			return nil
		}
		if err := TV.Index.Save(); err != nil {
			return fmt.Errorf("failed to save index: %w", err)
		}
		fmt.Fprintf(out, "✅ Added %d files (%d bytes) in %s\n", addedCount, totalSize, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
