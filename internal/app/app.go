package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/furniture-store/internal/domain/auth"
	"github.com/xenking/furniture-store/internal/domain/coupon"
	"github.com/xenking/furniture-store/internal/domain/customer"
	"github.com/xenking/furniture-store/internal/domain/order"
	"github.com/xenking/furniture-store/internal/domain/product"
	"github.com/xenking/furniture-store/internal/events"
	"github.com/xenking/furniture-store/internal/handler"
	"github.com/xenking/furniture-store/pkg/health"
	"github.com/xenking/furniture-store/pkg/httpmiddleware"
)

const serviceName = "storefront-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Driver),
	)
	ctx = zctx.Base(ctx, lg)

	store, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer func() {
		if err := store.Close(context.WithoutCancel(ctx)); err != nil {
			lg.Warn("Close storage", zap.Error(err))
		}
	}()

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("storage", 5*time.Second, health.PingCheck(cfg.Storage.Driver, store))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Order events go to Kafka when brokers are configured.
	var publisher order.Publisher = order.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub := events.NewPublisher(events.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic, lg.Named("events")))
		defer func() {
			if err := kafkaPub.Close(); err != nil {
				lg.Warn("Close kafka writer", zap.Error(err))
			}
		}()
		publisher = kafkaPub
		brokers := cfg.Kafka.Brokers
		healthSvc.AddReadinessCheck("kafka", 5*time.Second, func(ctx context.Context) error {
			return events.Ping(ctx, brokers)
		}, health.WithThresholds(5, 1))
		lg.Info("Publishing order events",
			zap.Strings("brokers", brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	healthSvc.Start(ctx, 10*time.Second)

	// Domain services.
	catalog := product.NewCatalog(store.Products)
	evaluator := coupon.NewEvaluator(store.Coupons)
	orderService := order.NewService(
		catalog.Resolver(),
		store.Customers,
		evaluator,
		store.Orders,
		order.WithPublisher(publisher),
		order.WithTracerProvider(m.TracerProvider()),
		order.WithMeterProvider(m.MeterProvider()),
	)

	h := handler.NewHandler(handler.HandlerConfig{
		ImageBaseURL: cfg.ImageBaseURL,
		APIKeyPepper: []byte(cfg.Auth.APIKeyPepper),
	}, handler.Deps{
		Catalog:   catalog,
		Orders:    orderService,
		Coupons:   coupon.NewService(store.Coupons),
		Evaluator: evaluator,
		Customers: customer.NewService(store.Customers, catalog.Resolver()),
		Tokens:    auth.NewTokens([]byte(cfg.Auth.JWTSecret)),
		APIKeys:   store.APIKeys,
	})

	// Mux: health endpoints + echo API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", handler.NewEcho(h))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.HeaderAPIKey},
				ExposeHeaders:    []string{httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Instrument(serviceName, m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}
	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
