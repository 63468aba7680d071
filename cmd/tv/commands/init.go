package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a TreeVault repository",
	Long:  `Create an empty TreeVault repository in the current directory.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}

		repoPath := filepath.Join(wd, ".tv")
		objectsPath := filepath.Join(repoPath, "objects")

		if _, err := os.Stat(repoPath); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "⚠️  TreeVault repository already exists in %s\n", repoPath)
			return nil
		}

		// .tv/objects 存放对象，meta.db 和 index 在第一次使用时创建
		if err := os.MkdirAll(objectsPath, 0755); err != nil {
			return fmt.Errorf("failed to create repo directory: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✅ Initialized empty TreeVault repository in %s\n", repoPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
