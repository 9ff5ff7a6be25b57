package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storesync/internal/api/handlers"
	"storesync/internal/api/middleware"
	"storesync/internal/config"
	"storesync/internal/database"
	"storesync/internal/logger"
	"storesync/internal/queue"
	"storesync/internal/services/connectors"
	"storesync/internal/services/shopify"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	db     *database.Database
	router *gin.Engine
	server *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, db *database.Database, jobQueue queue.Enqueuer) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger, "/healthz", "/metrics"))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg.CORSOrigins...))

	// Services
	sessions := shopify.NewSessions(logger, shopify.OptionsFromConfig(cfg))
	registrar := shopify.NewRegistrar(cfg.CallbackURL(), shopify.WebhookTopics, logger)
	connectorService := connectors.NewService(db.DB, logger, sessions, registrar)
	jobs := handlers.NewJobQueue(db.DB, jobQueue, cfg, logger)

	// Initialize handlers
	customerHandler := handlers.NewCustomerHandler(db.DB, logger)
	connectorHandler := handlers.NewConnectorHandler(db.DB, connectorService, jobs, logger)
	logHandler := handlers.NewLogHandler(db.DB, jobs, logger)
	shopifyHandler := handlers.NewShopifyHandler(db.DB, logger, cfg, sessions, connectorService, jobs)

	router.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Routes
	v1 := router.Group("/api/v1")
	{
		// Customers
		customers := v1.Group("/customers")
		{
			customers.GET("", customerHandler.List)
			customers.GET("/:id", customerHandler.Get)
		}

		// Connectors
		connectors := v1.Group("/connectors")
		{
			connectors.GET("", connectorHandler.List)
			connectors.GET("/:id", connectorHandler.Get)
			connectors.POST("", connectorHandler.Create)
			connectors.PUT("/:id", connectorHandler.Update)
			connectors.DELETE("/:id", connectorHandler.Delete)
			connectors.POST("/:id/sync", connectorHandler.Sync)
			connectors.POST("/:id/webhooks", connectorHandler.RegisterWebhooks)
		}

		// Integration logs
		logs := v1.Group("/logs")
		{
			logs.GET("", logHandler.List)
			logs.GET("/:id", logHandler.Get)
			logs.POST("/:id/retry", logHandler.Retry)
		}

		// Shopify Integration
		shopify := v1.Group("/shopify")
		{
			shopify.POST("/install", shopifyHandler.Install)
			shopify.GET("/callback", shopifyHandler.Callback)
			shopify.POST("/webhook", shopifyHandler.Webhook)
		}
	}

	return &Server{
		config: cfg,
		logger: logger,
		db:     db,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on %s", addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}
