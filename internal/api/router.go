package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Thommy96/BaRiStA/internal/api/handlers"
	mw "github.com/Thommy96/BaRiStA/internal/api/middleware"
	"github.com/Thommy96/BaRiStA/internal/buildconfig"
	"github.com/Thommy96/BaRiStA/internal/metrics"
	"github.com/Thommy96/BaRiStA/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Pinger reports whether the knowledge base is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the HTTP surface. Zero values disable the feature.
type Options struct {
	APIKeyHash     string
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
}

// Services are the collaborators the router exposes.
type Services struct {
	Dialogues *service.DialogueService
	Knowledge *service.KnowledgeService
	Metrics   *metrics.Metrics
	KB        Pinger
}

// App holds the router and request statistics.
type App struct {
	Router       *chi.Mux
	dialogues    *service.DialogueService
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(svcs Services, opts Options, logger *zap.Logger) *App {
	dialogueHandler := handlers.NewDialogueHandler(svcs.Dialogues)
	entityHandler := handlers.NewEntityHandler(svcs.Knowledge)
	ontologyHandler := handlers.NewOntologyHandler(svcs.Knowledge.Ontology())

	r := chi.NewRouter()
	app := &App{
		Router:    r,
		dialogues: svcs.Dialogues,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount, svcs.Metrics)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	if opts.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type", mw.RequestIDHeader},
			ExposedHeaders: []string{mw.RequestIDHeader},
		}).Handler)
	}

	r.Get("/health", healthHandler(svcs.KB))
	r.Get("/stats", app.statsHandler())
	r.Method(http.MethodGet, "/metrics", svcs.Metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if opts.APIKeyHash != "" {
			r.Use(mw.APIKeyAuth(opts.APIKeyHash))
		}

		r.Get("/ontology", ontologyHandler.Get)

		r.Route("/dialogues", func(r chi.Router) {
			r.Post("/", dialogueHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", dialogueHandler.Get)
				r.Delete("/", dialogueHandler.Delete)
				r.Post("/turns", dialogueHandler.Turn)
			})
		})

		r.Route("/entities", func(r chi.Router) {
			r.Get("/", entityHandler.Find)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", entityHandler.Get)
				r.Get("/opening", entityHandler.Opening)
				r.Get("/manner", entityHandler.Manner)
				r.Get("/route", entityHandler.Route)
				r.Post("/rating", entityHandler.Rate)
				r.Post("/reviews", entityHandler.Review)
			})
		})
	})

	return app
}

func healthHandler(kb Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if kb != nil {
			if err := kb.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": buildconfig.Version(),
			"commit":  buildconfig.Commit(),
		})
	}
}

func (app *App) statsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)
		active, _ := app.dialogues.Count(r.Context())

		response := map[string]any{
			"uptime_seconds":   uptime.Seconds(),
			"uptime_human":     uptime.Round(time.Second).String(),
			"request_count":    app.requestCount.Load(),
			"error_count":      app.errorCount.Load(),
			"active_dialogues": active,
			"goroutines":       runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}
