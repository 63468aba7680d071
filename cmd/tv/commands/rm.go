package commands

import (
	"fmt"

	"treevault/pkg/index"

	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <path>...",
	Short: "Remove files from the staging area (index)",
	Long:  `Unstage files or whole directories. Files on disk are left alone, but they will no longer be part of the next commit.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireApp(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		count := 0
		for _, p := range args {
			n := TV.Index.Remove(index.CleanPath(p))
			if n == 0 {
				fmt.Fprintf(out, "⚠️  Not staged: %s\n", p)
				continue
			}
			fmt.Fprintf(out, "Unstaged: %s (%d)\n", p, n)
			count += n
		}

		if count > 0 {
			if err := TV.Index.Save(); err != nil {
				return fmt.Errorf("failed to save index: %w", err)
			}
			fmt.Fprintf(out, "✅ Removed %d files from index.\n", count)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
