package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/tablebook/cmd/mainconfig"
	appconfig "github.com/wolfman30/tablebook/internal/config"
)

const limiterIdle = 10 * time.Minute

func main() {
	// A missing .env is fine; the environment wins.
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := mainconfig.NewLogger(cfg)
	logger.Info("starting tablebook server",
		"env", cfg.Env,
		"port", cfg.Port,
		"restaurant_api", cfg.RestaurantAPIURL,
		"timezone", cfg.RestaurantTimezone,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// No WriteTimeout: it would also cut long-lived live sessions.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(limiterIdle)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := a.limiter.Evict(limiterIdle); n > 0 {
					logger.Debug("evicted idle rate limit buckets", "count", n)
				}
			}
		}
	}()

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...", "live_sessions", a.live.ActiveSessions())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
