package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lojasmm/wamsg/internal/api"
	"github.com/lojasmm/wamsg/internal/broker"
	"github.com/lojasmm/wamsg/internal/config"
	"github.com/lojasmm/wamsg/internal/dispatch"
	"github.com/lojasmm/wamsg/internal/logging"
	"github.com/lojasmm/wamsg/internal/session"
	"github.com/lojasmm/wamsg/internal/store"
	"github.com/lojasmm/wamsg/internal/thumbnail"
	"github.com/lojasmm/wamsg/internal/whatsapp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and relay webhook",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(cfg.LogEnv, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := store.NewBoltStore(filepath.Join(cfg.DataDir, "wamsg.db"))
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer db.Close()

	gen := thumbnail.NewImageGenerator(cfg.ThumbnailWidth, thumbnail.WithAllowedHosts(cfg.ThumbnailAllowedHosts...))
	thumbs := thumbnail.NewCached(gen, db, logger)
	builder := whatsapp.NewBuilder(
		whatsapp.WithThumbnails(thumbs),
		whatsapp.WithThumbnailTimeout(cfg.ThumbnailTimeout),
		whatsapp.WithStrict(cfg.BuilderStrict),
		whatsapp.WithLogger(logger),
	)

	var sender whatsapp.Sender
	switch cfg.Transport {
	case config.TransportKafka:
		ks := broker.NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer ks.Close()
		sender = ks
	default:
		sender = whatsapp.NewClient(cfg.RelayURL, cfg.RelayToken)
	}

	sessionMgr := session.NewManager()
	dispatcher := dispatch.NewDispatcher(builder, sender, db, sessionMgr, dispatch.Options{
		DefaultExpiration: cfg.DefaultExpiration,
		Logger:            logger,
	})
	webhookHandler := whatsapp.NewWebhookHandler(cfg.WebhookToken, dispatcher.HandleSelection, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(api.NewHandler(dispatcher, logger), webhookHandler),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("port", cfg.Port), zap.String("transport", sender.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	// Periodic cleanup of idle per-chat locks
	g.Go(func() error {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n := sessionMgr.Cleanup(time.Hour); n > 0 {
					logger.Debug("released idle chat locks", zap.Int("count", n))
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
