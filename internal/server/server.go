package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"opldock/internal/artwork"
	"opldock/internal/config"
	"opldock/internal/format"
	"opldock/internal/gameid"
	"opldock/internal/importer"
	"opldock/internal/isofs"
	"opldock/internal/library"
	"opldock/internal/logging"
	"opldock/internal/manifest"
)

// Server wires the services behind the HTTP API and owns the listener.
type Server struct {
	cfg    *config.Config
	logger *slog.Logger

	store     *manifest.Store
	resolver  *gameid.Resolver
	pipeline  *importer.Pipeline
	rawg      *artwork.Client
	cache     *artwork.SearchCache
	limiter   *artwork.RateLimiter
	saver     *artwork.Saver
	formatter *format.Service
	library   *library.Service

	httpSrv *http.Server
}

// New assembles a server from configuration. The RAWG client stays nil when
// no API key is configured; art search then reports that instead of failing
// at startup.
func New(cfg *config.Config, logger *slog.Logger) *Server {
	store := manifest.NewStore()
	resolver := gameid.NewResolver(store, isofs.NewReader())

	var rawg *artwork.Client
	if cfg.RAWG.APIKey != "" {
		client, err := artwork.NewClient(artwork.ClientConfig{
			APIKey:  cfg.RAWG.APIKey,
			BaseURL: cfg.RAWG.BaseURL,
			HTTPClient: &http.Client{
				Timeout: time.Duration(cfg.RAWG.TimeoutSeconds) * time.Second,
			},
		})
		if err == nil {
			rawg = client
		} else {
			logger.Warn("art search disabled",
				logging.Error(err),
				logging.String(logging.FieldComponent, "server"),
				logging.String(logging.FieldImpact, "art search endpoints unavailable"))
		}
	}

	return &Server{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "server"),
		store:     store,
		resolver:  resolver,
		pipeline:  importer.New(cfg.Paths.StagingDir, store, resolver, logger),
		rawg:      rawg,
		cache:     artwork.NewSearchCache(time.Duration(cfg.Art.CacheTTLSeconds)*time.Second, cfg.Art.CacheMaxSize, nil),
		limiter:   artwork.NewRateLimiter(cfg.Art.RateLimitPerMinute, time.Duration(cfg.Art.MinIntervalSeconds*float64(time.Second)), nil),
		saver:     artwork.NewSaver(nil, logger),
		formatter: format.NewService(logger),
		library:   library.NewService(store, logger),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/", s.index)
	router.GET("/api/health", s.health)
	router.GET("/api/devices", s.listDevices)
	router.POST("/api/validate-target", s.validateTarget)
	router.POST("/api/format-target", s.formatTarget)
	router.POST("/api/import", s.importISOs)
	router.POST("/api/resolve-id", s.resolveID)
	router.POST("/api/manifest/upsert", s.upsertManifest)
	router.POST("/api/art/search", s.searchArt)
	router.POST("/api/art/save-auto", s.saveArtAuto)
	router.POST("/api/art/manual", s.uploadArtManual)
	router.POST("/api/scan-games", s.scanGames)
	router.POST("/api/delete-game", s.deleteGame)
	return router
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Server.Bind,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http server listening", logging.String("bind", s.cfg.Server.Bind))
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("elapsed", time.Since(start)))
	}
}
