package commands

import (
	"fmt"
	"io"
	"path"

	"treevault/pkg/gitobj"

	"github.com/spf13/cobra"
)

var (
	lsRecursive bool
	lsLimit     int
)

var lsTreeCmd = &cobra.Command{
	Use:   "ls-tree [rev] [path]",
	Short: "List the contents of a tree",
	Long: `List the entries of the tree at <path> in <rev> (default HEAD and the root tree).
With -r the listing is a depth-first pre-order walk of the whole subtree, bounded by --limit.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireApp(); err != nil {
			return err
		}
		ctx := cmd.Context()
		rev, p := argAt(args, 0), argAt(args, 1)

		tree, ok, err := gitobj.FindTree(ctx, TV.Repo, p, rev)
		if err != nil {
			return err
		}
		if !ok {
			// 路径指向文件时只打印它自己
			blob, found, err := gitobj.FindBlob(ctx, TV.Repo, p, rev)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("not a valid object name: %s:%s", revOrHead(rev), p)
			}
			printEntry(cmd.OutOrStdout(), blob, blob.Path())
			return nil
		}

		var objs []gitobj.Object
		if lsRecursive {
			objs, err = tree.RecursiveContents(ctx, lsLimit)
		} else {
			objs, err = tree.Entries(ctx)
		}
		if err != nil {
			return err
		}
		for _, o := range objs {
			printEntry(cmd.OutOrStdout(), o, path.Join(tree.Path(), o.Path()))
		}
		return nil
	},
}

func printEntry(w io.Writer, o gitobj.Object, fullPath string) {
	fmt.Fprintf(w, "%s %s %s\t%s\n", o.Mode(), o.Kind(), o.ID(), fullPath)
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func revOrHead(rev string) string {
	if rev == "" {
		return "HEAD"
	}
	return rev
}

func init() {
	rootCmd.AddCommand(lsTreeCmd)
	lsTreeCmd.Flags().BoolVarP(&lsRecursive, "recursive", "r", false, "recurse into sub-trees")
	lsTreeCmd.Flags().IntVar(&lsLimit, "limit", 0, "with -r, stop after this many entries (0 = no limit)")
}
