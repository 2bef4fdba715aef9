package mainconfig

import (
	"context"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/tablebook/internal/config"
	"github.com/wolfman30/tablebook/internal/restaurantapi"
	"github.com/wolfman30/tablebook/pkg/logging"
)

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg *appconfig.Config) *logging.Logger {
	return logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
}

// NewRestaurantAPI centralizes the upstream client wiring so both binaries share
// the same timeout, tracing and optional redis cache. The returned client is nil
// when REDIS_ADDR is unset or unreachable.
func NewRestaurantAPI(ctx context.Context, cfg *appconfig.Config, observer restaurantapi.LatencyObserver, logger *logging.Logger) (restaurantapi.API, *redis.Client) {
	var opts []restaurantapi.Option
	if observer != nil {
		opts = append(opts, restaurantapi.WithObserver(observer))
	}
	api := restaurantapi.API(restaurantapi.NewClient(cfg.RestaurantAPIURL, cfg.RestaurantAPITimeout, logger, opts...))

	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return api, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable; restaurant cache disabled", "addr", addr, "error", err)
		_ = client.Close()
		return api, nil
	}
	logger.Info("restaurant cache enabled", "addr", addr, "ttl", cfg.CacheTTL.String())
	return restaurantapi.NewCachedAPI(api, client, cfg.CacheTTL, logger), client
}

// CookieKeys decodes COOKIE_HASH_KEY and COOKIE_BLOCK_KEY. Outside production,
// missing keys are generated, which invalidates cookies on every restart.
func CookieKeys(cfg *appconfig.Config) (hashKey, blockKey []byte, err error) {
	hashKey, err = decodeKey("COOKIE_HASH_KEY", cfg.CookieHashKey, 32, 64)
	if err != nil {
		return nil, nil, err
	}
	blockKey, err = decodeKey("COOKIE_BLOCK_KEY", cfg.CookieBlockKey, 16, 24, 32)
	if err != nil {
		return nil, nil, err
	}
	if hashKey == nil {
		if cfg.IsProduction() {
			return nil, nil, fmt.Errorf("mainconfig: COOKIE_HASH_KEY is required in production")
		}
		hashKey = securecookie.GenerateRandomKey(32)
	}
	if blockKey == nil && !cfg.IsProduction() {
		blockKey = securecookie.GenerateRandomKey(32)
	}
	return hashKey, blockKey, nil
}

func decodeKey(name, value string, sizes ...int) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("mainconfig: decode %s: %w", name, err)
	}
	if !slices.Contains(sizes, len(key)) {
		return nil, fmt.Errorf("mainconfig: %s must decode to one of %v bytes, got %d", name, sizes, len(key))
	}
	return key, nil
}
