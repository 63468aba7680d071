package commands

import (
	"errors"
	"fmt"
	"time"

	"treevault/pkg/refs"
	"treevault/pkg/types"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var commitMsg string

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Record changes to the repository",
	Long: `Create a new commit containing the current contents of the index and the given log message describing the changes.
The index is kept after the commit: it always describes the full tree of the next commit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireApp(); err != nil {
			return err
		}
		if commitMsg == "" {
			return fmt.Errorf("commit message cannot be empty (use -m)")
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if TV.Index.IsEmpty() {
			fmt.Fprintln(out, "nothing to commit, index is empty")
			return nil
		}
		start := time.Now()

		// Phase 1: 构建 Merkle Tree
		rootTreeHash, err := TV.Repo.WriteIndex(ctx, TV.Index)
		if err != nil {
			return fmt.Errorf("failed to build tree: %w", err)
		}

		// Phase 2: Parent Commit (HEAD)
		parentHash, headVersion, err := TV.Refs.GetHead(ctx)
		var parents []types.Hash
		switch {
		case err == nil:
			parents = []types.Hash{parentHash}
		case errors.Is(err, refs.ErrNoHead):
			fmt.Fprintln(out, "🌱 Initial Commit")
		default:
			return fmt.Errorf("failed to resolve HEAD: %w", err)
		}

		author := viper.GetString("user.name")
		if author == "" {
			author = "TreeVault User"
		}

		// Phase 3: 写入 Commit 并建立索引
		commitObj, err := TV.Repo.CommitTree(ctx, rootTreeHash, parents, author, commitMsg)
		if err != nil {
			return err
		}

		// Phase 4: 移动 HEAD (CAS)
		if err := TV.Refs.UpdateHead(ctx, commitObj.ID(), headVersion); err != nil {
			return fmt.Errorf("failed to update HEAD: %w", err)
		}

		fmt.Fprintf(out, "✅ [%s] %s\n", commitObj.ID().Short(), commitMsg)
		fmt.Fprintf(out, "   Tree: %s | Time: %s | Author: %s\n", rootTreeHash.Short(), time.Since(start).Round(time.Millisecond), author)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commitCmd)
	commitCmd.Flags().StringVarP(&commitMsg, "message", "m", "", "commit message")
}
