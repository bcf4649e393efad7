// Package api exposes the journal panels and their actions over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"closing-journal/internal/journal"
	"closing-journal/internal/view"
)

// Constants
const (
	DefaultTimeout      = 30 * time.Second
	ServiceName         = "closing-journal"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
	shutdownTimeout     = 5 * time.Second
)

// Options configures an APIHandler.
type Options struct {
	Version   string
	StaticDir string
	Location  *time.Location
	Now       func() time.Time
}

// APIHandler serves the journal over HTTP using gin.
type APIHandler struct {
	journal  *journal.Service
	renderer *view.Renderer
	actions  *view.Actions
	logger   zerolog.Logger
	opts     Options
}

// NewAPIHandler creates a handler. Deletes over HTTP are explicit requests
// and need no further confirmation.
func NewAPIHandler(svc *journal.Service, reports view.ReportSource, maxItems int, logger zerolog.Logger, opts Options) *APIHandler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &APIHandler{
		journal:  svc,
		renderer: view.NewRenderer(svc, reports, maxItems, nil),
		actions:  view.NewActions(svc, reports, func(string) bool { return true }),
		logger:   logger,
		opts:     opts,
	}
}

// SetupRoutes configures all API routes.
func (h *APIHandler) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestIDMiddleware(h.logger))
	router.Use(loggerMiddleware())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/health", h.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/candidates", h.ListCandidates)
		api.POST("/candidates", h.AddCandidate)
		api.DELETE("/candidates/:id", h.DeleteCandidate)
		api.GET("/candidates/:id/summary", h.CandidateSummary)
		api.POST("/candidates/:id/promote", h.PromoteCandidate)

		api.GET("/trades", h.ListTrades)
		api.POST("/trades", h.AddTrade)
		api.DELETE("/trades/:id", h.DeleteTrade)
		api.GET("/trades/:id/summary", h.TradeSummary)

		api.GET("/stats", h.Stats)

		api.GET("/auto", h.Auto)
		api.POST("/auto/:code/save", h.SaveAuto)
		api.GET("/auto/:code/summary", h.AutoSummary)

		api.GET("/patterns", h.Patterns)
		api.GET("/settings", h.Settings)

		api.GET("/export", h.Export)
		api.POST("/import", h.Import)
		api.POST("/clear", h.Clear)
	}

	if h.opts.StaticDir != "" {
		router.NoRoute(gin.WrapH(http.FileServer(http.Dir(h.opts.StaticDir))))
	}

	return router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (h *APIHandler) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		h.logger.Info().Msg("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}
