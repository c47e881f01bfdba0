package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/webshell/webshell/internal/api/http"
	"github.com/webshell/webshell/internal/api/middleware"
	"github.com/webshell/webshell/internal/api/ws"
	"github.com/webshell/webshell/internal/bridge"
	"github.com/webshell/webshell/internal/host"
	"github.com/webshell/webshell/internal/infrastructure/config"
	"github.com/webshell/webshell/internal/infrastructure/logging"
	"github.com/webshell/webshell/internal/infrastructure/monitoring"
	"github.com/webshell/webshell/internal/navigation"
	"github.com/webshell/webshell/internal/push"
	"github.com/webshell/webshell/internal/session"
	"github.com/webshell/webshell/internal/shell"
	"github.com/webshell/webshell/internal/store"
)

// Server wraps the control server and its dependencies.
type Server struct {
	router *gin.Engine
	http   *http.Server
	shell  *shell.Shell
	mirror *session.Mirror
	logger *logging.Logger
	config *config.Config
}

// NewServer builds a fully wired shell from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing shell",
		zap.String("app_url", cfg.App.URL),
		zap.String("platform", cfg.App.Platform),
		zap.String("version", cfg.App.Version),
	)

	metrics := monitoring.NewMetrics()

	secureStore, err := store.NewSecureStore(cfg.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open secure store: %w", err)
	}
	userStore, err := store.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}

	mirror := session.NewMirror(secureStore)
	if err := mirror.Resync(); err != nil {
		// A lost token means a re-login, not a failed launch.
		logger.Warn("Failed to resync session token", zap.Error(err))
	}

	opener := host.NewOpener(logger.Logger)
	sharer := host.NewSharer(logger.Logger, opener)
	registrar := push.New(cfg.Push.Endpoint, cfg.App.Platform, userStore, logger.Logger)

	trusted := navigation.NewTrustedDomains(cfg.App.Domains, cfg.App.TrustedDomains)
	engine := navigation.NewEngine(trusted, opener, logger.Logger).WithMetrics(metrics)
	tracker := navigation.NewTracker()

	// The shell is the dispatcher's navigator; bind it after creation.
	var sh *shell.Shell
	navigator := bridge.NavigatorFunc(func(url string) { sh.Navigate(url) })
	dispatcher := bridge.NewDispatcher(mirror, userStore, opener, sharer, registrar, navigator, logger.Logger).
		WithMetrics(metrics)
	sh = shell.New(cfg, engine, dispatcher, tracker, mirror, logger.Logger).
		WithMetrics(metrics)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(sh, mirror, cfg.App.Platform, cfg.App.Version)
	wsHandler := ws.NewHandler(sh, logger.Logger).WithMetrics(metrics)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/state", handlers.State)
	router.GET("/session", handlers.Session)
	router.GET("/surface", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("Shell initialized successfully")

	return &Server{
		router: router,
		shell:  sh,
		mirror: mirror,
		logger: logger,
		config: cfg,
	}, nil
}

// Run starts the control server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting control server", zap.String("addr", addr))

	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("control server failed: %w", err)
	}
	return nil
}

// Close drains connections and shuts the server down.
func (s *Server) Close() error {
	s.logger.Info("Shutting down shell...")

	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to drain control server", zap.Error(err))
			return fmt.Errorf("failed to drain control server: %w", err)
		}
	}

	s.logger.Sync()
	return nil
}

// Shell exposes the wired shell, mainly for embedding and tests.
func (s *Server) Shell() *shell.Shell {
	return s.shell
}
