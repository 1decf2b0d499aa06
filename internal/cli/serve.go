package cli

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"braidsbar/queue-service/internal/config"
	"braidsbar/queue-service/internal/events"
	"braidsbar/queue-service/internal/httpapi"
	"braidsbar/queue-service/internal/hub"
	"braidsbar/queue-service/internal/notify"
	"braidsbar/queue-service/internal/queue"
	"braidsbar/queue-service/internal/schedule"
	"braidsbar/queue-service/internal/store"
	"braidsbar/queue-service/internal/store/memory"
	"braidsbar/queue-service/internal/store/postgres"
	"braidsbar/queue-service/internal/telemetry"
	"braidsbar/queue-service/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and realtime stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	return cmd
}

func runServe(ctx context.Context, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		errLogger := newLogger(os.Stderr, "error", "json")
		errLogger.Error().Err(err).Msg("config error")
		return err
	}
	logger := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	catalogue, err := config.LoadCatalogue(cfg.CataloguePath)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.CataloguePath).Msg("catalogue error")
		return err
	}
	week, err := catalogue.Week()
	if err != nil {
		return err
	}
	scheduler := schedule.NewScheduler(schedule.NewCalendar(cfg.Location, week))

	shutdownTracing := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: serviceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	}, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown error")
		}
	}()

	st, closeStore, err := openStore(ctx, cfg, migrate, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	streamHub := hub.New(logger)
	notifier := notify.New(notify.NewProvider(notify.ProviderConfig{
		Kind:         cfg.SMSProvider,
		WebhookURL:   cfg.SMSWebhookURL,
		WebhookToken: cfg.SMSWebhookToken,
		SenderID:     cfg.SMSSenderID,
	}, logger), cfg.Location, logger)

	publishers := events.Multi{streamHub, notifier, events.NewLogPublisher(logger)}
	if cfg.RedisURL != "" {
		client, err := events.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("redis connect error")
			return err
		}
		defer client.Close()
		publishers = append(publishers, events.NewRedisPublisher(client, cfg.RedisChannel))
		logger.Info().Msg("publishing ticket events to redis")
	}
	if cfg.AMQPURL != "" {
		broker, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error().Err(err).Msg("amqp connect error")
			return err
		}
		defer broker.Close()
		publishers = append(publishers, broker)
		logger.Info().Msg("publishing ticket events to amqp")
	}

	svc := queue.NewService(st, scheduler, schedule.SystemClock{}, queue.Options{
		Publisher:   publishers,
		Logger:      logger,
		NoShowGrace: cfg.NoShowGrace,
	})

	seeded, err := svc.SeedCatalogue(ctx, catalogue.Styles, catalogue.Inventory)
	if err != nil {
		logger.Error().Err(err).Msg("catalogue seed error")
		return err
	}
	if seeded > 0 {
		logger.Info().Int("records", seeded).Msg("catalogue seeded")
	}

	go notifier.Run(ctx)
	go runNoShowSweeper(ctx, svc, cfg.NoShowInterval, logger)

	handler := httpapi.NewHandler(svc, httpapi.Options{Stream: streamHub.Handler("/api/stream")})
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:    cfg.RateLimitPerMinute,
		IPBurst:        cfg.RateLimitBurst,
		PhonePerMinute: cfg.PhoneRateLimitPerMinute,
		PhoneBurst:     cfg.PhoneRateLimitBurst,
	})
	mux := handler.Routes()
	mux.Handle("/metrics", expvar.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(httpapi.LoggingMiddleware(logger, limiter.Middleware(mux)), serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("queue-service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	logger.Info().Msg("queue-service stopped")
	return nil
}

// openStore picks postgres when DB_DSN is set and the in-memory store
// otherwise.
func openStore(ctx context.Context, cfg config.Config, migrate bool, logger zerolog.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("DB_DSN not set, tickets are kept in memory")
		return memory.NewStore(), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error().Err(err).Msg("db connect error")
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error().Err(err).Msg("db ping error")
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}
	if migrate {
		if err := migrations.Apply(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info().Msg("migrations applied")
	}
	return postgres.NewStore(pool), pool.Close, nil
}

func runNoShowSweeper(ctx context.Context, svc *queue.Service, interval time.Duration, logger zerolog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			count, err := svc.SweepNoShows(sweepCtx)
			cancel()
			if err != nil {
				logger.Error().Err(err).Msg("no-show sweep error")
				continue
			}
			if count > 0 {
				logger.Info().Int("tickets", count).Msg("no-show sweep processed tickets")
			}
		}
	}
}
