package commands

import (
	"errors"
	"fmt"

	"treevault/pkg/core"
	"treevault/pkg/exporter"
	"treevault/pkg/gitobj"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [rev] [path]",
	Short: "Show object information",
	Long: `Without a path, print the commit <rev> points to and its root tree.
With a path, print the object there: id, mode, size, binary flag, line count and MIME type for files, the entry table for directories.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireApp(); err != nil {
			return err
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		rev, p := argAt(args, 0), argAt(args, 1)

		root, ok, err := gitobj.FindTree(ctx, TV.Repo, "", rev)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unknown revision: %s", revOrHead(rev))
		}

		if p == "" {
			id, _, err := TV.Repo.ResolveRef(ctx, revOrHead(rev))
			if err != nil {
				return err
			}
			// rev 也可能直接是一棵树的哈希
			c, err := TV.Repo.ReadCommit(ctx, id)
			var mismatch core.ErrTypeMismatch
			switch {
			case err == nil:
				exporter.PrintCommit(c, out)
				fmt.Fprintln(out)
			case !errors.As(err, &mismatch):
				return err
			}
			return exporter.PrintObject(ctx, root, out)
		}

		obj, ok, err := root.Lookup(ctx, p)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("path '%s' does not exist in '%s'", p, revOrHead(rev))
		}
		return exporter.PrintObject(ctx, obj, out)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
