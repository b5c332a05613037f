package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/kiosk"
	"github.com/aretw0/kiosk/internal/config"
	"github.com/aretw0/kiosk/internal/presentation/tui"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kiosk HTTP server",
	Long:  `Starts the session engine and exposes the kiosk JSON API, SSE streams and metrics over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			cfg.Port = port
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err := newLogger(cmd, cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return err
		}
		if cfg.LogFormat != "json" {
			tui.PrintBanner(cmd.ErrOrStderr(), kiosk.Version)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}

		// Request contexts are cancelled on shutdown so SSE streams let go.
		baseCtx, cancelBase := context.WithCancel(context.Background())
		defer cancelBase()
		srv := &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           a.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return baseCtx },
		}
		srv.RegisterOnShutdown(cancelBase)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("Starting kiosk server", "addr", srv.Addr, "version", kiosk.Version)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("Shutting down server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			return nil
		})

		serveErr := g.Wait()

		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Error("Shutdown cleanup failed", "err", err)
		}
		if serveErr != nil {
			return serveErr
		}
		logger.Info("Kiosk server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on; overrides KIOSK_PORT")
}
