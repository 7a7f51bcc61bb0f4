package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/cenkalti/backoff/v5"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/adapters/events"
	"github.com/layer-3/walletauth/adapters/nonce"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/adapters/tokenizer"
	"github.com/layer-3/walletauth/config"
	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/service"
	transport "github.com/layer-3/walletauth/transport/http"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("walletauth stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	signKey, err := cfg.SigningKey()
	if err != nil {
		return err
	}
	if cfg.SigningKeyPEM == "" {
		logger.Warn("no signing key configured, using an ephemeral key")
	}

	wmLogger := watermill.NewSlogLogger(logger)

	var (
		st        ports.Store
		publisher message.Publisher
	)

	if cfg.RedisURL != "" {
		redisClient, err := connectRedis(ctx, cfg.RedisURL, logger)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			wmLogger,
		)
		if err != nil {
			return err
		}
		st = store.NewRedisStore(redisClient)
	} else {
		logger.Warn("no redis configured, using in-memory store")
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		st = store.NewMemoryStore()
	}
	defer publisher.Close()

	authService := service.NewAuthService(
		service.NewChallengeGenerator(nonce.NewRandomSource(), cfg.Banner, nil),
		service.NewSignatureVerifier(cfg.ChallengeTTL, nil, logger),
		tokenizer.NewJWTTokenizer(signKey, cfg.Issuer),
		st,
		events.NewWatermillPublisher(publisher, cfg.EventsTopic),
		logger,
		service.Config{
			ChallengeTTL: cfg.ChallengeTTL,
			AccessTTL:    cfg.AccessTTL,
			RefreshTTL:   cfg.RefreshTTL,
		},
	)

	if !cfg.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           transport.SetupRouter(authService, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("walletauth listening", "addr", cfg.ListenAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// connectRedis parses url and waits for the server to answer PING, retrying
// with exponential backoff.
func connectRedis(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	_, err = backoff.Retry(ctx,
		func() (string, error) {
			return client.Ping(ctx).Result()
		},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(30*time.Second),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("redis not ready", "error", err, "retry_in", next)
		}),
	)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}
