// Package cmd wires the server together. Construction is explicit: every
// component receives its dependencies here and nothing reaches for globals.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hisui-dev/watchparty/server/chat"
	"github.com/hisui-dev/watchparty/server/config"
	"github.com/hisui-dev/watchparty/server/directory"
	"github.com/hisui-dev/watchparty/server/logging"
	"github.com/hisui-dev/watchparty/server/registry"
	"github.com/hisui-dev/watchparty/server/room"
	"github.com/hisui-dev/watchparty/server/sync"
	"github.com/hisui-dev/watchparty/server/ws"
)

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "watchpartyd",
		Short: "Coordination server for synchronized group viewing sessions",
		Long: "watchpartyd keeps every member of a viewing room on the same " +
			"playback position. It tracks authenticated connections, manages " +
			"room membership and host election, relays chat and typing " +
			"presence, and broadcasts the host's playback state.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&cfgFile, "config", "c", "", "path to config file")
	cmd.Flags().String("addr", "", "websocket listen address")
	cobra.CheckErr(v.BindPFlag("listen_addr", cmd.Flags().Lookup("addr")))

	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg.LogFormat)

	reg := registry.New(logger)
	content := directory.NewContentClient(cfg.ContentDirectoryURL, cfg.ShowCacheTTL, logger)
	users := directory.NewUserClient(cfg.UserDirectoryURL, logger)

	rooms := room.NewService(room.NewStore(), reg, content, logger)
	engine := sync.NewEngine(rooms, reg, logger)
	chatService := chat.NewService(rooms, logger)

	handler := ws.NewHandler(reg, rooms, engine, chatService, users, logger)
	server := ws.NewServer(cfg.ListenAddr, cfg.AllowedOrigins, handler, logger)

	return server.Run(ctx)
}

func newLogger(format string) logging.Logger {
	if format == "text" {
		return logging.NewText(os.Stdout, slog.LevelDebug)
	}
	return logging.NewJSON(os.Stdout)
}
