// Package http provides the HTTP adapter over the application services.
// Handlers translate requests into service calls; all workflow decisions stay
// in the application layer.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/procureops/requisition-engine/internal/application/service"
	"github.com/procureops/requisition-engine/internal/infrastructure/attachment"
	"github.com/procureops/requisition-engine/internal/infrastructure/export"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxUploadBytes: 25 * 1024 * 1024,
	}
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(
	config ServerConfig,
	requisitions service.RequisitionService,
	ledger service.StepLedger,
	audit service.AuditService,
	rules service.RuleService,
	attachments service.AttachmentService,
	store *attachment.Store,
	exporter *export.Exporter,
	logger Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		handlers: NewHandlers(requisitions, ledger, audit, rules, attachments, store, exporter, config.MaxUploadBytes, logger),
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	{
		api.POST("/requisitions", h.CreateRequisition)
		api.GET("/requisitions", h.ListRequisitions)
		api.GET("/requisitions/:id", h.GetRequisition)
		api.POST("/requisitions/:id/submit", h.SubmitRequisition)
		api.POST("/requisitions/:id/cancel", h.CancelRequisition)
		api.POST("/requisitions/:id/paid", h.MarkRequisitionPaid)
		api.POST("/requisitions/:id/reject-all", h.RejectAllSteps)

		api.GET("/requisitions/:id/steps", h.ListSteps)
		api.POST("/requisitions/:id/steps/:stepID/approve", h.ApproveStep)
		api.POST("/requisitions/:id/steps/:stepID/reject", h.RejectStep)

		api.GET("/requisitions/:id/audit", h.GetAuditTrail)
		api.GET("/audit", h.ListAuditTrail)

		api.POST("/rules", h.CreateRule)
		api.GET("/rules", h.ListRules)
		api.GET("/rules/:id", h.GetRule)
		api.PUT("/rules/:id", h.UpdateRule)
		api.POST("/rules/:id/deactivate", h.DeactivateRule)

		api.POST("/requisitions/:id/attachments", h.UploadAttachment)
		api.GET("/requisitions/:id/attachments", h.ListAttachments)
		api.GET("/attachments/:id", h.DownloadAttachment)
		api.DELETE("/attachments/:id", h.DeleteAttachment)

		api.GET("/export/requisitions", h.ExportRequisitions)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
