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

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/askg-chat/backend/internal/config"
	"github.com/zhouzirui/askg-chat/backend/internal/handler"
	"github.com/zhouzirui/askg-chat/backend/internal/logging"
	"github.com/zhouzirui/askg-chat/backend/internal/metrics"
	"github.com/zhouzirui/askg-chat/backend/internal/service/chat"
	"github.com/zhouzirui/askg-chat/backend/internal/service/relay"
	"github.com/zhouzirui/askg-chat/backend/internal/service/search"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if envErr != nil {
		log.Debug().Err(envErr).Msg("no .env file loaded, using system environment only")
	}

	collector := metrics.New()
	sessions := chat.NewService()

	searchClient := search.NewClient(search.Config{
		URL:     cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout,
	}, collector)
	log.Info().Str("url", cfg.Backend.URL).Dur("timeout", cfg.Backend.Timeout).Msg("search backend configured")

	relaySvc := relay.New(searchClient, sessions, collector, relay.Config{
		DefaultLimit: cfg.Relay.DefaultLimit,
		Serial:       cfg.Relay.SerialChat,
	})

	router := handler.NewRouter(relaySvc, sessions, collector, cfg.Server.StaticDir)

	if err := startServer(ctx, cfg.Server, router); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}

	relaySvc.Wait()
	log.Info().Msg("shutdown complete")
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	log.Info().Str("addr", addr).Msg("askg chat relay listening")
	return runServer(ctx, srv, ln)
}

func runServer(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
