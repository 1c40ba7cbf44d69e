// Package server is the admin panel web server. It renders the admin screens
// and talks to the store API on behalf of each admin browser.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/storeadmin-dev/storeadmin/internal/analytics"
	"github.com/storeadmin-dev/storeadmin/internal/auth"
	"github.com/storeadmin-dev/storeadmin/internal/config"
	"github.com/storeadmin-dev/storeadmin/internal/database"
	"github.com/storeadmin-dev/storeadmin/internal/gate"
	"github.com/storeadmin-dev/storeadmin/internal/login"
	"github.com/storeadmin-dev/storeadmin/internal/orders"
	"github.com/storeadmin-dev/storeadmin/internal/products"
	"github.com/storeadmin-dev/storeadmin/internal/session"
	"github.com/storeadmin-dev/storeadmin/internal/storeapi"
	"github.com/storeadmin-dev/storeadmin/internal/sysinfo"
	"github.com/storeadmin-dev/storeadmin/internal/tasks"
	"github.com/storeadmin-dev/storeadmin/internal/vault"
)

const (
	// sweepInterval is how often idle browser sessions are dropped from memory
	sweepInterval = 5 * time.Minute
	// memoryIdle is how long a browser session stays in memory unused. It is
	// reloaded from the vault, with a fresh identity check, on its next request.
	memoryIdle = 30 * time.Minute
)

//go:embed templates/*.html
var templatesFS embed.FS

// Server represents the HTTP server
type Server struct {
	router      *gin.Engine
	db          *gorm.DB
	config      *config.Config
	logger      zerolog.Logger
	tokens      *auth.Tokens
	registry    *session.Registry
	enqueuer    tasks.Enqueuer
	asynqClient *asynq.Client

	loginService     *login.Service
	productsService  *products.Service
	analyticsService *analytics.Service

	version string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	db, err := database.Open(cfg.Database.URL, zlog)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokens(cfg.Session.Secret, 0)
	if err != nil {
		return nil, err
	}

	cookieVault := vault.New(db, cfg.Session.Secret, zlog)
	registry := session.NewRegistry(cookieVault, func() (*storeapi.Client, error) {
		return storeapi.New(cfg.StoreAPI.URL, cfg.StoreAPI.Timeout)
	}, cfg.Session.CheckTimeout, zlog)

	// Initialize Asynq client for enqueueing tasks
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})

	server, err := newServer(cfg, zlog, version, db, registry, tokens, asynqClient)
	if err != nil {
		return nil, err
	}
	server.asynqClient = asynqClient

	return server, nil
}

func newServer(cfg *config.Config, zlog zerolog.Logger, version string, db *gorm.DB, registry *session.Registry, tokens *auth.Tokens, enqueuer tasks.Enqueuer) (*Server, error) {
	validate := validator.New()

	server := &Server{
		db:               db,
		config:           cfg,
		logger:           zlog,
		tokens:           tokens,
		registry:         registry,
		enqueuer:         enqueuer,
		loginService:     login.NewService(validate, zlog),
		productsService:  products.NewService(validate, zlog),
		analyticsService: analytics.NewService(db, zlog),
		version:          version,
	}

	if err := server.setupRouter(); err != nil {
		return nil, err
	}

	return server, nil
}

var templateFuncs = template.FuncMap{
	"money":      analytics.FormatMoney,
	"shortID":    orders.ShortID,
	"badge":      orders.BadgeClass,
	"stockBadge": products.StockBadge,
	"upper":      strings.ToUpper,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Local().Format("Jan 2, 2006 15:04")
	},
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() error {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}
	s.router.SetHTMLTemplate(tmpl)

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS for the SPA JSON surface
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.HTTP.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no session required)
	s.router.GET("/health", s.healthCheck)

	requireIdentity := gate.Require(sessionReader, s.config.Session.GateWait, s.logger)

	// Public screens
	public := s.router.Group("/", s.browserSessionMiddleware())
	{
		public.GET("/", s.loginPage)
		public.POST("/", s.submitCredentials)
		public.POST("/logout", s.logout)

		public.GET("/api/session", s.getSession)
		public.POST("/api/session/login", s.apiLogin)
		public.POST("/api/session/logout", s.apiLogout)
	}

	// Protected screens
	protected := s.router.Group("/", s.browserSessionMiddleware(), requireIdentity)
	{
		protected.GET("/dashboard", s.dashboardPage)

		protected.GET("/products", s.productsPage)
		protected.GET("/products/new", s.newProductPage)
		protected.POST("/products", s.createProduct)
		protected.GET("/products/:id", s.productPage)
		protected.GET("/products/:id/edit", s.editProductPage)
		protected.POST("/products/:id", s.updateProduct)
		protected.POST("/products/:id/delete", s.deleteProduct)

		protected.GET("/orders", s.ordersPage)
		protected.GET("/customers", s.customersPage)

		protected.GET("/analytics", s.analyticsPage)
		protected.POST("/analytics/capture", s.captureMetrics)
	}

	// Protected JSON
	api := s.router.Group("/api", s.browserSessionMiddleware(), requireIdentity)
	{
		api.GET("/products", s.listProducts)
		api.DELETE("/products/:id", s.apiDeleteProduct)
		api.GET("/orders", s.listOrders)
		api.GET("/customers", s.listCustomers)
		api.GET("/metrics", s.getMetrics)
	}

	return nil
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		event := s.logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "storeadmin",
		"version":   s.version,
		"sessions":  s.registry.Len(),
		"system":    sysinfo.GetMetrics(),
	})
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// sweepSessions drops idle browser sessions from memory until ctx is done
func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.registry.Sweep(memoryIdle); removed > 0 {
				s.logger.Debug().Int("removed", removed).Int("remaining", s.registry.Len()).Msg("Swept idle browser sessions")
			}
		}
	}
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	addr := s.config.HTTP.Addr

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go s.sweepSessions(sweepCtx)

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		s.Close()
		return err
	case <-sigChan:
	}
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.Close()
	s.logger.Info().Msg("Server shutdown complete")

	return nil
}

// Close releases the registry, the Asynq client and the database
func (s *Server) Close() {
	s.registry.Close()

	if s.asynqClient != nil {
		if err := s.asynqClient.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing Asynq client")
		}
	}

	// Close database connection to flush WAL writes
	if err := database.Close(s.db); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database")
	}
}
