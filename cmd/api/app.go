package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/tablebook/cmd/mainconfig"
	"github.com/wolfman30/tablebook/internal/api/router"
	"github.com/wolfman30/tablebook/internal/availability"
	"github.com/wolfman30/tablebook/internal/booking"
	appconfig "github.com/wolfman30/tablebook/internal/config"
	"github.com/wolfman30/tablebook/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/tablebook/internal/http/middleware"
	"github.com/wolfman30/tablebook/internal/livebooking"
	"github.com/wolfman30/tablebook/internal/menu"
	"github.com/wolfman30/tablebook/internal/observability/metrics"
	"github.com/wolfman30/tablebook/internal/restaurantapi"
	"github.com/wolfman30/tablebook/internal/web"
	"github.com/wolfman30/tablebook/pkg/logging"
)

// app is the assembled HTTP service.
type app struct {
	handler http.Handler
	limiter *httpmiddleware.RateLimiter
	live    *livebooking.Handler
	redis   *redis.Client
}

func (a *app) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*app, error) {
	bookingMetrics := metrics.NewBookingMetrics(reg)
	api, redisClient := mainconfig.NewRestaurantAPI(ctx, cfg, bookingMetrics, logger)

	slots := availability.NewReconciler(api, logger,
		availability.WithLocation(cfg.Location()),
		availability.WithLead(cfg.SameDayLead),
		availability.WithRecorder(bookingMetrics),
	)
	m, err := menu.Load()
	if err != nil {
		return nil, fmt.Errorf("load menu: %w", err)
	}

	newController := func() *booking.Controller {
		return booking.NewController(
			booking.Config{
				DefaultCountry:  cfg.DefaultCountry,
				ValidationDelay: cfg.ValidationDebounce,
				EmailCheckDelay: cfg.EmailCheckDebounce,
				WindowDays:      cfg.BookingWindowDays,
			},
			booking.Dependencies{
				Sink:    api,
				Slots:   slots,
				Menu:    m,
				Metrics: bookingMetrics,
				Logger:  logger,
			},
		)
	}

	hashKey, blockKey, err := mainconfig.CookieKeys(cfg)
	if err != nil {
		return nil, err
	}
	webServer, err := web.NewServer(web.Dependencies{
		Profile:       api,
		Slots:         slots,
		Menu:          m,
		NewController: newController,
		Confirmations: web.NewConfirmationStore(hashKey, blockKey),
		WindowDays:    cfg.BookingWindowDays,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	live := livebooking.NewHandler(newController, cfg.CORSAllowedOrigins, logger)

	var cache handlers.CacheInvalidator
	if cached, ok := api.(*restaurantapi.CachedAPI); ok {
		cache = cached
	}
	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	handler := router.New(&router.Config{
		Logger:             logger,
		Web:                webServer.Routes(),
		LiveBooking:        live,
		MetricsHandler:     promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		AdminStats:         handlers.NewAdminStatsHandler(gatherer, live, cache, logger),
		OperatorJWTSecret:  cfg.OperatorJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
	})

	return &app{handler: handler, limiter: limiter, live: live, redis: redisClient}, nil
}
