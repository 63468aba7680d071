package commands

import (
	"fmt"
	"path"

	"treevault/pkg/core"
	"treevault/pkg/gitobj"

	"github.com/spf13/cobra"
)

var (
	findType string
	findRev  string
	findAll  bool
)

var findCmd = &cobra.Command{
	Use:   "find <pattern>",
	Short: "Find the first entry whose name or path matches a glob",
	Long: `Walk the tree of --rev depth-first and print the first entry whose name or full path matches <pattern>
(path.Match syntax). The walk stops at the first match; --all prints every match instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireApp(); err != nil {
			return err
		}
		ctx := cmd.Context()
		pattern := args[0]
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("bad pattern %q: %w", pattern, err)
		}

		var kind core.Kind
		switch findType {
		case "":
		case "blob", "f":
			kind = core.KindBlob
		case "tree", "d":
			kind = core.KindTree
		default:
			return fmt.Errorf("unknown --type %q (blob|tree)", findType)
		}

		root, ok, err := gitobj.FindTree(ctx, TV.Repo, "", findRev)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unknown revision: %s", revOrHead(findRev))
		}

		match := func(e core.Entry) bool {
			if kind != 0 && e.Kind() != kind {
				return false
			}
			okName, _ := path.Match(pattern, e.Name)
			okPath, _ := path.Match(pattern, e.Path)
			return okName || okPath
		}

		if findAll {
			n := 0
			for e, err := range root.Walk(ctx) {
				if err != nil {
					return err
				}
				if match(e) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\t%s\n", e.Mode, e.Kind(), e.ID, e.Path)
					n++
				}
			}
			if n == 0 {
				return fmt.Errorf("no entry matches %q", pattern)
			}
			return nil
		}

		obj, ok, err := root.Find(ctx, kind, match)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no entry matches %q", pattern)
		}
		printEntry(cmd.OutOrStdout(), obj, obj.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().StringVarP(&findType, "type", "t", "", "only match blob (f) or tree (d) entries")
	findCmd.Flags().StringVar(&findRev, "rev", "", "revision to search (default HEAD)")
	findCmd.Flags().BoolVar(&findAll, "all", false, "print every match instead of stopping at the first")
}
