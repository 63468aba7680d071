package commands

import (
	"treevault/pkg/server"
	"treevault/pkg/service"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only HTTP browse API",
	Long: `Start an HTTP server with:
  GET /refs                          list refs
  GET /refs/{rev}/tree/{path}        tree listing or file contents (?recursive=1&limit=N)
  GET /metrics                       Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireApp(); err != nil {
			return err
		}
		srv := server.New(
			service.NewBrowser(TV.Repo),
			service.NewRefLister(TV.Refs),
			TV.Registry,
			TV.Logger,
		)
		return server.Run(cmd.Context(), viper.GetString("server.addr"), srv, TV.Logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	cobra.CheckErr(viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr")))
}
