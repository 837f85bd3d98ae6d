package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/justchokingaround/vidsource/internal/config"
	"github.com/justchokingaround/vidsource/internal/resolver"
	"github.com/justchokingaround/vidsource/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve source resolution and subtitles over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("address"); addr != "" {
			cfg.Server.Address = addr
		}

		svc, err := buildServices(cfg, logger)
		if err != nil {
			return err
		}

		// Only the log level and the resolution cache react to edits; other
		// settings need a restart
		if vcfg.ConfigFileUsed() != "" {
			vcfg.OnConfigChange(func(e fsnotify.Event) {
				logger.Info("config file changed", "name", e.Name)
				var next config.Config
				if err := vcfg.Unmarshal(&next); err != nil {
					logger.Error("failed to reload config", "error", err)
					return
				}
				if logLevel == "" {
					config.SetLogLevel(next.Logging.Level)
				}
				if cached, ok := svc.resolver.(*resolver.Cached); ok {
					cached.Purge()
				}
			})
			vcfg.WatchConfig()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		subs := svc.subtitles
		if !cfg.Server.AllowPrivateCaptions {
			subs = subs.PublicCaptionsOnly()
		}

		srv := server.New(server.Deps{
			Resolver:  svc.resolver,
			Registry:  svc.registry,
			Subtitles: subs,
		}, cfg.Server, logger)
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("address", "", "listen address (overrides server.address)")
}
