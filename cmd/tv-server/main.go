package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"treevault/pkg/app"
	"treevault/pkg/config"
	"treevault/pkg/server"
	"treevault/pkg/service"

	"github.com/spf13/viper"
)

func main() {
	// 1. Load Config
	cfgFile := flag.String("config", "", "config file (default is $HOME/.tv/config.yaml)")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	flag.Parse()

	if err := config.Load(*cfgFile); err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}
	if *addr != "" {
		viper.Set("server.addr", *addr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Init Core Application
	application, err := app.NewApp(ctx)
	if err != nil {
		log.Fatalf("❌ Failed to initialize app: %v", err)
	}
	defer application.Close()

	// 3. Serve until SIGINT / SIGTERM
	srv := server.New(
		service.NewBrowser(application.Repo),
		service.NewRefLister(application.Refs),
		application.Registry,
		application.Logger,
	)
	if err := server.Run(ctx, viper.GetString("server.addr"), srv, application.Logger); err != nil {
		application.Logger.Error("server stopped", "error", err)
		application.Close()
		stop()
		os.Exit(1)
	}
}
