package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/novavault/recovery-middleware/pkg/app/http"
	"github.com/novavault/recovery-middleware/pkg/attestation"
	"github.com/novavault/recovery-middleware/pkg/bridge"
	"github.com/novavault/recovery-middleware/pkg/config"
	"github.com/novavault/recovery-middleware/pkg/custody"
	"github.com/novavault/recovery-middleware/pkg/identity"
	"github.com/novavault/recovery-middleware/pkg/pgutil"
	"github.com/novavault/recovery-middleware/pkg/recovery/service"
	"github.com/novavault/recovery-middleware/pkg/recoverystore"
	"github.com/novavault/recovery-middleware/pkg/swap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting recovery server",
		zap.String("config", *configPath),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Database.Driver),
		zap.String("destination_chain", cfg.Bridge.DestinationChain))

	store, closeStore, err := buildStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build recovery store", zap.Error(err))
	}
	defer closeStore()

	custodyClient := custody.NewCircleClient(&cfg.Custody, logger)
	attestationClient := attestation.NewClient(&cfg.Attestation, logger)
	engine := bridge.NewEngine(custodyClient, attestationClient, &cfg.Bridge, logger)

	registry, err := identity.NewHTTPRegistry(&cfg.Identity, logger)
	if err != nil {
		logger.Fatal("Failed to build identity registry client", zap.Error(err))
	}
	swapper := swap.NewHTTPSwapper(&cfg.Swap, logger)

	svc := service.NewService(
		store,
		registry,
		custodyClient,
		engine,
		swapper,
		cfg.Bridge.DestinationChain,
		logger,
	)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	service.RegisterRoutes(router, svc, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Monitoring.Enabled {
		go serveMetrics(ctx, cfg.Monitoring.MetricsPort, logger)
	}

	if err := apphttp.ServeAndWait(ctx, router, logger, &cfg.Server); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func buildStore(cfg *config.Config, logger *zap.Logger) (recoverystore.Store, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := pgutil.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return recoverystore.NewPGStore(db), func() { _ = db.Close() }, nil
	default:
		logger.Warn("Using in-memory recovery store, requests will not survive restarts")
		return recoverystore.NewMemoryStore(), func() {}, nil
	}
}

func serveMetrics(ctx context.Context, port int, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	logger.Info("Metrics server listening", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Metrics server error", zap.Error(err))
	}
}
