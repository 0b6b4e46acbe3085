package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thommy96/BaRiStA/internal/api"
	mw "github.com/Thommy96/BaRiStA/internal/api/middleware"
	"github.com/Thommy96/BaRiStA/internal/buildconfig"
	"github.com/Thommy96/BaRiStA/internal/bus"
	"github.com/Thommy96/BaRiStA/internal/config"
	"github.com/Thommy96/BaRiStA/internal/geo"
	"github.com/Thommy96/BaRiStA/internal/metrics"
	"github.com/Thommy96/BaRiStA/internal/ontology"
	"github.com/Thommy96/BaRiStA/internal/service"
	"github.com/Thommy96/BaRiStA/internal/store"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}

	logger := newLogger(config.LogLevel())
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	onto, err := ontology.Load(config.OntologyPath())
	if err != nil {
		logger.Fatal("failed to load ontology", zap.String("path", config.OntologyPath()), zap.Error(err))
	}
	table := config.KBTable()
	if table == "" {
		table = onto.DomainName()
	}

	kb, err := store.NewKnowledgeStore(ctx)
	if err != nil {
		logger.Fatal("failed to open knowledge store", zap.Error(err))
	}
	defer kb.Close()

	src, closeSrc, err := store.OpenSource(ctx, config.KBSource())
	if err != nil {
		logger.Fatal("failed to open knowledge base source", zap.Error(err))
	}
	if err := kb.LoadFrom(ctx, src, table); err != nil {
		logger.Fatal("failed to load knowledge base", zap.String("table", table), zap.Error(err))
	}
	closeSrc()
	logger.Info("knowledge base loaded",
		zap.String("domain", onto.DomainName()),
		zap.String("table", table),
		zap.Bool("postgres", store.IsPostgresURL(config.KBSource())))

	m := metrics.New()

	geocoder := geo.NewNominatimClient(config.GeocoderURL(), config.GeocoderUserAgent(), config.GeocoderRPS(), logger)
	knowledgeSvc := service.NewKnowledgeService(onto, kb, table, geocoder, logger)
	knowledgeSvc.SetMetrics(m)
	knowledgeSvc.SetGeocodeTimeout(config.GeocodeTimeout())

	tracker := service.NewBeliefTracker(onto, knowledgeSvc, logger)
	tracker.SetMetrics(m)

	dialogueSvc := service.NewDialogueService(store.NewDialogueStore(), tracker, logger)
	dialogueSvc.SetMetrics(m)

	expirer := service.NewExpirerService(dialogueSvc, config.DialogueIdleTTL(), logger)
	expirer.Start()

	var apiKeyHash string
	if key := config.APIKey(); key != "" {
		apiKeyHash = mw.HashAPIKey(key)
	} else {
		logger.Warn("API_KEY not set, /v1 is unauthenticated")
	}

	app := api.NewApp(api.Services{
		Dialogues: dialogueSvc,
		Knowledge: knowledgeSvc,
		Metrics:   m,
		KB:        kb,
	}, api.Options{
		APIKeyHash:     apiKeyHash,
		RateLimitRPS:   config.RateLimitRPS(),
		RateLimitBurst: config.RateLimitBurst(),
		CORSOrigins:    config.CORSOrigins(),
	}, logger)

	var (
		nc     *nats.Conn
		bridge *bus.Bridge
	)
	if url := config.NATSURL(); url != "" {
		nc, err = nats.Connect(url, nats.Name("adviser"))
		if err != nil {
			logger.Fatal("failed to connect to NATS", zap.String("url", url), zap.Error(err))
		}
		bridge = bus.NewBridge(nc, dialogueSvc, config.NATSSubjectPrefix(), logger)
		if err := bridge.Start(); err != nil {
			logger.Fatal("failed to start turn bridge", zap.Error(err))
		}
	}

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("version", buildconfig.String()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	if bridge != nil {
		bridge.Stop()
		if err := nc.Drain(); err != nil {
			logger.Warn("NATS drain failed", zap.Error(err))
		}
	}
	expirer.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
