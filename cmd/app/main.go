package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airdrop_backend/internal/api"
	"airdrop_backend/internal/chain"
	"airdrop_backend/internal/geo"
	"airdrop_backend/internal/middleware"
	"airdrop_backend/internal/rating"
	"airdrop_backend/internal/repository"
	"airdrop_backend/internal/service"
	"airdrop_backend/internal/social"
	"airdrop_backend/internal/store/dataapi"
	"airdrop_backend/internal/verifier"
	"airdrop_backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel, "airdrop-backend")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newUserStore(ctx, cfg.Store)
	if err != nil {
		zapLogger.Fatal("Failed to initialize user store", zap.Error(err))
	}
	defer closeStore()

	socialClient := social.NewClient(cfg.Social)

	var profiles service.SocialPlatform = socialClient
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			zapLogger.Warn("Redis unreachable, profile cache will fall through", zap.Error(err))
		}
		profiles = social.NewProfileCache(socialClient, rdb, cfg.Redis.ProfileTTL)
	}

	aggregator, err := newAggregator(ctx, cfg.Chain)
	if err != nil {
		zapLogger.Fatal("Failed to initialize chain clients", zap.Error(err))
	}

	engine, err := rating.NewEngine(cfg.Rating)
	if err != nil {
		zapLogger.Fatal("Invalid rating weights", zap.Error(err))
	}

	var locator service.Locator = geo.Noop{}
	if cfg.Geo.Enabled {
		locator = geo.NewIPAPI(cfg.Geo.BaseURL)
	}

	userService := service.NewUserService(service.Dependencies{
		Store:    store,
		Social:   profiles,
		Verifier: verifier.New(socialClient, cfg.Social.Timeout),
		Chain:    aggregator,
		Locator:  locator,
		Rating:   engine,
	})

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger())

	config := cors.DefaultConfig()
	if len(cfg.Server.AllowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = cfg.Server.AllowedOrigins
	}
	config.AllowMethods = []string{
		http.MethodGet,
		http.MethodPost,
	}
	config.AllowHeaders = []string{"Content-Type", "Authorization", middleware.RequestIDHeader}
	config.MaxAge = 12 * time.Hour

	router.Use(cors.New(config))

	api.NewUserRoutes(router, userService, cfg.Campaign)
	api.NewMessageRoutes(router, userService.Hub())

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		zapLogger.Info("Starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server shutdown failed", zap.Error(err))
	}
}

func newUserStore(ctx context.Context, cfg StoreConfig) (service.UserStore, func(), error) {
	switch cfg.Driver {
	case driverDataAPI:
		return dataapi.New(cfg.DataAPI), func() {}, nil
	default:
		repo, err := repository.New(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	}
}

func newAggregator(ctx context.Context, cfg ChainConfig) (*chain.Aggregator, error) {
	endpoints := make([]chain.TokenEndpoint, 0, len(cfg.EVMRPCEndpoints))
	for _, url := range cfg.EVMRPCEndpoints {
		client, err := chain.DialEVM(ctx, url, cfg.TokenDecimals)
		if err != nil {
			logger.Logger().Warn("Skipping evm endpoint", zap.String("endpoint", url), zap.Error(err))
			continue
		}
		endpoints = append(endpoints, client)
	}
	if len(endpoints) == 0 {
		return nil, chain.ErrAllEndpointsExhausted
	}

	sol := chain.NewSolanaClient(cfg.SolanaRPC)
	eth := chain.NewEtherscanHistory(cfg.EtherscanBaseURL, cfg.EtherscanAPIKey, cfg.EtherscanChainID)

	return chain.NewAggregator(sol, sol, eth, endpoints, cfg.Timeout), nil
}
