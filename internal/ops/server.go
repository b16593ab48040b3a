package ops

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ivanoskov/sg_finance_bot/internal/logger"
	"github.com/ivanoskov/sg_finance_bot/internal/worker"
)

// MetricsSource reports worker pool counters.
type MetricsSource interface {
	Metrics() worker.Metrics
}

// Server exposes liveness and worker metrics over HTTP.
type Server struct {
	srv     *http.Server
	metrics MetricsSource
	started time.Time
}

func NewServer(addr string, metrics MetricsSource) *Server {
	s := &Server{metrics: metrics, started: time.Now()}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger)

	router.GET("/healthz", s.health)
	router.GET("/metrics", s.workerMetrics)
	return router
}

func requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	logger.Get().Debug("ops request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("took", time.Since(start)))
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) workerMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Metrics())
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logger.Get().Info("Starting ops server", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
