package commands

import (
	"errors"
	"fmt"
	"os"

	"treevault/pkg/gitobj"
	"treevault/pkg/refs"
	"treevault/pkg/treebuilder"
	"treevault/pkg/types"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	mktreeBase    string
	mktreeMessage string
)

var mktreeCmd = &cobra.Command{
	Use:   "mktree <file.yaml>",
	Short: "Build a tree from a YAML description",
	Long: `Build a tree from a nested YAML mapping: strings become files, mappings become directories, null deletes an entry.
With --base the mapping is layered on top of the root tree of that revision.
With -m the new tree is committed on top of HEAD.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireApp(); err != nil {
			return err
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		m, err := treebuilder.ParseYAML(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		var base *gitobj.Tree
		if mktreeBase != "" {
			var ok bool
			base, ok, err = gitobj.FindTree(ctx, TV.Repo, "", mktreeBase)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("unknown revision: %s", mktreeBase)
			}
		}

		tree, err := gitobj.NewTreeFromMap(ctx, TV.Repo, m, base)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, tree.ID())

		if mktreeMessage == "" {
			return nil
		}

		parent, version, err := TV.Refs.GetHead(ctx)
		var parents []types.Hash
		switch {
		case err == nil:
			parents = []types.Hash{parent}
		case !errors.Is(err, refs.ErrNoHead):
			return err
		}
		c, err := TV.Repo.CommitTree(ctx, tree.ID(), parents, viper.GetString("user.name"), mktreeMessage)
		if err != nil {
			return err
		}
		if err := TV.Refs.UpdateHead(ctx, c.ID(), version); err != nil {
			return fmt.Errorf("failed to update HEAD: %w", err)
		}
		fmt.Fprintf(out, "✅ [%s] %s\n", c.ID().Short(), mktreeMessage)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mktreeCmd)
	mktreeCmd.Flags().StringVar(&mktreeBase, "base", "", "revision whose root tree is the base layer")
	mktreeCmd.Flags().StringVarP(&mktreeMessage, "message", "m", "", "commit the tree with this message and move HEAD")
}
