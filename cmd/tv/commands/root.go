package commands

import (
	"fmt"

	"treevault/pkg/app"
	"treevault/pkg/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	// 全局应用实例，供子命令使用
	TV *app.App
	// ownsApp 为 true 时由 root 负责关闭 TV (测试里会直接注入 TV)
	ownsApp bool
)

var skipApp = map[string]bool{"init": true, "help": true, "completion": true, "version": true}

var rootCmd = &cobra.Command{
	Use:           "tv",
	Short:         "TreeVault: browse and build trees in a content-addressed object store",
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE 会在所有子命令执行前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(cfgFile); err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		// init 负责创建环境，help 之类的命令不需要 App
		if skipApp[cmd.Name()] || TV != nil {
			return nil
		}

		var err error
		TV, err = app.NewApp(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to initialize treevault: %w\n(Did you run 'tv init'?)", err)
		}
		ownsApp = true
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if !ownsApp || TV == nil {
			return nil
		}
		err := TV.Close()
		TV, ownsApp = nil, false
		return err
	},
}

// Root 返回根命令 (main 和测试用)
func Root() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tv/config.yaml)")

	// storage.path 既可以写在 yaml 里，也可以用 --storage-path 覆盖
	rootCmd.PersistentFlags().String("storage-path", "", "Directory to store objects")
	cobra.CheckErr(viper.BindPFlag("storage.path", rootCmd.PersistentFlags().Lookup("storage-path")))
	rootCmd.PersistentFlags().String("log-level", "", "debug | info | warn | error")
	cobra.CheckErr(viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level")))
}

// requireApp 防御检查
func requireApp() error {
	if TV == nil {
		return fmt.Errorf("app not initialized")
	}
	return nil
}
