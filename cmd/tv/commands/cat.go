package commands

import (
	"fmt"

	"treevault/pkg/exporter"
	"treevault/pkg/gitobj"

	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat <rev> <path>",
	Short: "Print the contents of a file",
	Long:  `Write the contents of the file at <path> in <rev> to stdout. Binary files can be redirected: tv cat HEAD model.bin > model.bin`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireApp(); err != nil {
			return err
		}
		ctx := cmd.Context()

		blob, ok, err := gitobj.FindBlob(ctx, TV.Repo, args[1], args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("path '%s' does not exist in '%s'", args[1], args[0])
		}
		return exporter.NewExporter(TV.Repo).ExportBlob(ctx, blob, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
