// Command pager-server serves one paging cache over a remote item source.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/itempager/pkg/config"
	"github.com/Sternrassler/itempager/pkg/fetch"
	"github.com/Sternrassler/itempager/pkg/logging"
	"github.com/Sternrassler/itempager/pkg/pager"
	"github.com/Sternrassler/itempager/pkg/pagination"
	"github.com/Sternrassler/itempager/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", os.Getenv("PAGER_CONFIG"), "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.LoggingSetup())
	logger := logging.NewLogger(logging.ComponentServer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpFetcher, err := fetch.NewHTTPFetcher(cfg.HTTPConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create source fetcher")
	}
	var fetcher fetch.Fetcher = httpFetcher

	// Optional shared store
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: cfg.Redis.URL,
			DB:   cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("redis", cfg.Redis.URL).Msg("Failed to connect to Redis")
		}
		fetcher = fetch.NewCachingFetcher(httpFetcher, store.NewRedisStore(redisClient, cfg.StoreConfig()))
		logger.Info().Str("redis", cfg.Redis.URL).Msg("Connected to Redis")
	}

	countCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	itemCount, err := httpFetcher.ItemCount(countCtx)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Str("source", cfg.Source.URL).Msg("Failed to read collection size")
	}

	cache, err := pager.New(cfg.Pager, nil, pagination.Uniform(itemCount, cfg.Source.PageSize), fetcher)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create paging cache")
	}
	defer cache.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newServer(cache, redisClient).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	logger.Info().
		Str("addr", srv.Addr).
		Str("source", cfg.Source.URL).
		Int("items", itemCount).
		Int("page_size", cfg.Source.PageSize).
		Msg("Starting pager server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("Server stopped")
}
