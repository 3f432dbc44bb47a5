package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"codenames/pkg/channels"
	"codenames/pkg/config"
	"codenames/pkg/gateway"
	"codenames/pkg/monitor"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP/WebSocket API and the configured channels",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor.PrintBanner()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	config.WatchSystemConfig(ctx, a.live, systemPath, func(sys *config.SystemConfig) {
		monitor.SetLevel(sys.LogLevel)
	})
	go func() {
		for range config.WatchConfig(ctx, configPath) {
			slog.Warn("Application config changed; restart to apply", "file", configPath)
		}
	}()

	gw, err := gateway.NewGatewayBuilder().
		WithMonitor(monitor.NewCLIMonitor()).
		WithGames(a.games).
		WithHistory(a.store).
		WithChannel(channels.LoadFromConfig(a.cfg, a.live.Load())...).
		Build()
	if err != nil {
		return err
	}

	<-ctx.Done()
	slog.Info("Received shutdown signal. Stopping services...")
	gw.StopAll()
	slog.Info("Bye!")
	return nil
}
