package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guild-loot/internal/api"
	"guild-loot/internal/bot"
	"guild-loot/internal/command"
	"guild-loot/internal/render"
	"guild-loot/internal/service"
	"guild-loot/internal/websocket"
	"guild-loot/pkg/config"
	"guild-loot/pkg/db"
	"guild-loot/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand runs the bot, the HTTP API and the live board.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Discord bot, HTTP API and live board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}
}

// NewServerCommand is the standalone root used by cmd/server. It takes the
// same --config flag as lootctl and serves directly.
func NewServerCommand() *cobra.Command {
	opts := &RootOptions{Format: "text"}
	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Guild loot priority bot server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default ./config/config.yaml)")
	return cmd
}

func serve(parent context.Context, opts *RootOptions) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.ProductionMode); err != nil {
		return err
	}
	defer logger.Sync()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	board, err := websocket.CreateHub(cfg.Messaging, cfg.WebSocket)
	if err != nil {
		return fmt.Errorf("failed to create board hub: %w", err)
	}
	board.Start(ctx)
	defer board.Close()

	svc := service.NewLootService(conn,
		service.WithBroadcaster(board),
		service.WithAdminPolicy(cfg.Bot.IsAdmin),
	)
	dispatcher := command.NewDispatcher(svc, render.New(cfg.Bot.GuildName), cfg.Bot.IsAdmin)

	if cfg.Bot.Token != "" {
		b, err := bot.New(cfg.Bot, dispatcher)
		if err != nil {
			return err
		}
		if err := b.Start(); err != nil {
			return err
		}
		defer b.Close()
	} else {
		logger.L.Warn("No bot token configured, serving HTTP only")
	}

	if cfg.Log.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.RouterDeps{
		Reader:     svc,
		Dispatcher: dispatcher,
		Board:      board,
		Ping:       func(ctx context.Context) error { return db.Ping(ctx, conn) },
		JWTSecret:  cfg.JWT.Secret,
		WebSocket:  cfg.WebSocket,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		logger.L.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
