// Package main is the entry point for the API server.
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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gravy-ai/restaurant-assistant/internal/account"
	"github.com/gravy-ai/restaurant-assistant/internal/assistant"
	"github.com/gravy-ai/restaurant-assistant/internal/checkout"
	"github.com/gravy-ai/restaurant-assistant/internal/config"
	"github.com/gravy-ai/restaurant-assistant/internal/handler"
	"github.com/gravy-ai/restaurant-assistant/internal/intent"
	"github.com/gravy-ai/restaurant-assistant/internal/llm"
	"github.com/gravy-ai/restaurant-assistant/internal/middleware"
	"github.com/gravy-ai/restaurant-assistant/internal/model"
	natsclient "github.com/gravy-ai/restaurant-assistant/internal/nats"
	"github.com/gravy-ai/restaurant-assistant/internal/pricing"
	"github.com/gravy-ai/restaurant-assistant/internal/session"
	"github.com/gravy-ai/restaurant-assistant/internal/store"
	"github.com/gravy-ai/restaurant-assistant/internal/workflow"
	"github.com/gravy-ai/restaurant-assistant/pkg/logger"
	"github.com/gravy-ai/restaurant-assistant/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewForEnv(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.Info("starting API server", zap.String("env", cfg.Env))

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "restaurant-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.WithoutCancel(ctx), tp)
		}
	}

	clock := model.Clock(nil)

	gateway, err := newGateway(ctx, cfg, log)
	if err != nil {
		return err
	}
	gateway = store.Instrument(gateway, log)

	sessions, locks, err := newSessionStore(ctx, cfg, clock, log)
	if err != nil {
		return err
	}

	// Text generation is optional; without it every turn falls back to
	// general chat with the apology reply.
	var generator *llm.Generator
	if key := cfg.LLMKey(); key != "" {
		client, err := llm.NewClient(ctx, llm.Provider(cfg.LLMProvider), key)
		if err != nil {
			log.Warn("failed to create LLM client, generation disabled", zap.String("provider", cfg.LLMProvider), zap.Error(err))
		} else {
			generator = llm.NewGenerator(client, cfg.LLMModel, cfg.LLMTimeout, log)
			log.Info("LLM client ready", zap.String("provider", client.Name()))
		}
	} else {
		log.Warn("no LLM API key configured, generation disabled", zap.String("provider", cfg.LLMProvider))
	}

	var (
		natsClient *natsclient.Client
		bus        *natsclient.Bus
	)
	if cfg.NATSEnabled {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer natsClient.Close()

		streams := natsclient.NewStreamManager(natsClient)
		if err := streams.EnsureStream(ctx); err != nil {
			return fmt.Errorf("ensure stream: %w", err)
		}
		bus = natsclient.NewBus(streams, log)
	}

	var payments checkout.Provider
	if cfg.StripeSecretKey != "" {
		p, err := checkout.NewStripeProvider(cfg.StripeSecretKey, cfg.BaseURL, cfg.StripeCurrency, nil)
		if err != nil {
			return fmt.Errorf("checkout: %w", err)
		}
		payments = p
	} else {
		log.Warn("no checkout key configured, payment links disabled")
	}

	workflows := workflow.NewService(workflow.Deps{
		Store:     gateway,
		Pricing:   pricing.NewEngine(gateway, clock, log),
		Checkout:  payments,
		Clock:     clock,
		Publisher: bus,
		Settings: workflow.Settings{
			RestaurantName:    cfg.RestaurantName,
			Address:           cfg.RestaurantAddress,
			Hours:             cfg.RestaurantHours,
			Phone:             cfg.RestaurantPhone,
			MapsURL:           cfg.RestaurantMapsURL,
			TablePrice:        cfg.TablePrice,
			TableCapacity:     cfg.TableCapacity,
			DefaultOrderTotal: cfg.DefaultOrderTotal,
		},
		Logger: log,
	})

	deps := assistant.Deps{
		Sessions:   sessions,
		Locks:      locks,
		Workflows:  workflows,
		Classifier: intent.NewClassifier(nil, log),
		Clock:      clock,
		Logger:     log,
	}
	if generator != nil {
		deps.Classifier = intent.NewClassifier(generator, log)
		deps.Generator = generator
	}
	if bus != nil {
		deps.Recorder = bus
	}
	chat := assistant.New(deps)
	notifier := assistant.NewNotifier(sessions, locks, bus, clock, log)
	poller := assistant.NewPoller(gateway, notifier, log)
	accounts := account.NewService(gateway, account.Config{
		Secret: cfg.JWTSecret,
		TTL:    cfg.JWTExpiration,
	}, clock, log)

	h := handler.Handlers{
		Health:        handler.NewHealthHandler(cfg.RestaurantName, natsClient),
		Chat:          handler.NewChatHandler(chat, log),
		Booking:       handler.NewBookingHandler(chat, workflows, log),
		Order:         handler.NewOrderHandler(chat, log),
		Menu:          handler.NewMenuHandler(workflows, log),
		Notifications: handler.NewNotificationHandler(notifier),
		Account:       handler.NewAccountHandler(accounts, log),
	}
	if cfg.StripeWebhookSecret != "" {
		h.Webhook = handler.NewWebhookHandler(workflows, cfg.StripeWebhookSecret, log)
	}
	if bus != nil {
		h.Transcript = handler.NewTranscriptHandler(bus, log)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.OptionalAuth(accounts))
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

	r.Handle("/metrics", promhttp.Handler())
	handler.Mount(r, h)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return poller.Run(gctx, cfg.CancellationPollSpec)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newGateway(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Gateway, error) {
	switch cfg.StoreBackend {
	case "memory":
		log.Warn("using in-memory data store, data is lost on restart")
		return store.NewMemoryGateway(), nil
	case "sheets":
		g, err := store.NewSheetsGateway(ctx, cfg.GoogleSheetID, cfg.GoogleServiceJSON)
		if err != nil {
			return nil, fmt.Errorf("sheets gateway: %w", err)
		}
		return g, nil
	case "webhook", "":
		if cfg.SheetWebhookURL == "" {
			return nil, errors.New("SHEET_WEBHOOK_URL is required for the webhook store")
		}
		return store.NewWebhookGateway(cfg.SheetWebhookURL, cfg.StoreTimeout, log), nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

func newSessionStore(ctx context.Context, cfg *config.Config, clock model.Clock, log *logger.Logger) (session.Store, *session.Locker, error) {
	switch cfg.SessionBackend {
	case "redis":
		client, err := session.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		log.Info("using redis session store", zap.String("addr", cfg.RedisAddr))
		locks := session.NewSharedLocker(session.NewRedisLock(client, cfg.SessionLockTTL))
		return session.NewRedisStore(client, cfg.SessionTTL, clock), locks, nil
	case "memory", "":
		return session.NewMemoryStore(cfg.SessionTTL, cfg.SessionMaxEntries, clock), session.NewLocker(), nil
	default:
		return nil, nil, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.SessionBackend)
	}
}
