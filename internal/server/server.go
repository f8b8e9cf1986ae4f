package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Parallel-SEKAI/kanade/internal/api/middleware"
	apihttp "github.com/Parallel-SEKAI/kanade/internal/http"
	"github.com/Parallel-SEKAI/kanade/internal/infrastructure/config"
	"github.com/Parallel-SEKAI/kanade/internal/infrastructure/monitoring"
	"github.com/Parallel-SEKAI/kanade/internal/logging"
	"github.com/Parallel-SEKAI/kanade/internal/script/bridge"
	"github.com/Parallel-SEKAI/kanade/internal/script/engine"
	"github.com/Parallel-SEKAI/kanade/internal/script/manager"
	"github.com/Parallel-SEKAI/kanade/internal/settings"
	"github.com/Parallel-SEKAI/kanade/internal/source"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg      config.Config
	log      *logging.Logger
	manager  *manager.Manager
	registry *source.Registry
	metrics  *monitoring.Metrics
	http     *http.Server
}

// New builds a fully wired server from configuration.
func New(cfg config.Config, log *logging.Logger, store *settings.Store) (*Server, error) {
	mgr, err := manager.New(manager.Config{
		Dir: cfg.Scripts.Dir,
		Engine: engine.Config{
			CallTimeout:      cfg.Scripts.CallTimeout,
			MaxCallStackSize: engine.DefaultConfig().MaxCallStackSize,
			QueueSize:        engine.DefaultConfig().QueueSize,
		},
		Client: bridge.ClientConfig{
			Timeout:   cfg.HTTP.Timeout,
			RetryMax:  cfg.HTTP.RetryMax,
			RateLimit: cfg.HTTP.RateLimit,
			UserAgent: cfg.HTTP.UserAgent,
			MaxBodyMB: cfg.HTTP.MaxBodyMB,
		},
		Settings: store,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("create script manager: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		log:      log.Named("server"),
		manager:  mgr,
		registry: source.NewRegistry(),
		metrics:  monitoring.NewMetrics(),
	}

	if manifests, err := mgr.Scan(); err != nil {
		s.log.Warn("initial scan failed", zap.Error(err))
	} else {
		s.log.Info("scripts discovered", zap.Int("count", len(manifests)))
	}
	s.rebuildRegistry()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
	router.Use(monitoring.Middleware(s.metrics))

	handlers := apihttp.NewHandlers(mgr, s.registry, store, s.metrics, log, s.rebuildRegistry)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	router.GET("/sources", handlers.ListSources)
	router.POST("/sources/scan", handlers.ScanSources)
	router.POST("/sources/import", handlers.ImportSource)
	router.DELETE("/sources/:id", handlers.DeleteSource)
	router.GET("/sources/:id/config", handlers.GetSourceConfig)
	router.PUT("/sources/:id/config", handlers.SetSourceConfig)
	router.GET("/sources/:id/search", handlers.SearchSource)
	router.GET("/sources/:id/home", handlers.HomeSource)
	router.GET("/sources/:id/tracks/:trackId/url", handlers.TrackURL)
	router.GET("/sources/:id/tracks/:trackId/lyrics", handlers.TrackLyrics)

	router.GET("/search", handlers.SearchAll)

	s.http = &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s, nil
}

// rebuildRegistry replaces the registry's source set with one lazy source
// per scanned manifest. Engines are constructed by the manager on first
// use, not here.
func (s *Server) rebuildRegistry() {
	manifests := s.manager.Manifests()
	sources := make([]source.Source, 0, len(manifests))
	for _, m := range manifests {
		sources = append(sources, &managedSource{
			id:      m.ID,
			name:    m.Name,
			manager: s.manager,
			metrics: s.metrics,
			log:     s.log,
		})
	}
	s.registry.Replace(sources)
	s.metrics.SourcesInstalled.Set(float64(len(sources)))
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.log.Info("listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes all engines.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.manager.Close()
	return err
}
