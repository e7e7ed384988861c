// Package http exposes the engine's operational surface: scoring and batch
// endpoints, feedback ingestion, stats, health, and Prometheus exposition.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cartwise/matchengine/internal/config"
	"github.com/cartwise/matchengine/internal/domain/matching"
	"github.com/cartwise/matchengine/internal/engine"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/logging"
	"github.com/cartwise/matchengine/internal/infrastructure/monitoring/prometheus"
	"github.com/cartwise/matchengine/pkg/errors"
)

// Pinger is the health probe of the shared cache tier; nil when the engine
// runs without one.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the engine into a gin router with graceful shutdown.
type Server struct {
	engine  *engine.Engine
	pinger  Pinger
	logger  logging.Logger
	httpSrv *http.Server
	router  *gin.Engine
}

// NewServer builds the router and the underlying http.Server.
func NewServer(cfg config.ServerConfig, eng *engine.Engine, pinger Pinger, collector prometheus.MetricsCollector, log logging.Logger) *Server {
	gin.SetMode(ginMode(cfg.Mode))
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		engine: eng,
		pinger: pinger,
		logger: log.Named("http"),
		router: router,
		httpSrv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(collector.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/score", s.handleScore)
		v1.POST("/match", s.handleMatchBatch)
		v1.POST("/feedback", s.handleFeedback)
		v1.GET("/weights", s.handleWeights)
		v1.GET("/stats", s.handleStats)
		v1.DELETE("/cache", s.handleClearCache)
	}
	return s
}

func ginMode(mode string) string {
	switch mode {
	case "debug":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}

// Handler returns the router, for tests driving the server in-process.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", logging.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

type scoreRequest struct {
	Query    string `json:"query" binding:"required"`
	Product  string `json:"product" binding:"required"`
	Detailed bool   `json:"detailed"`
}

func (s *Server) handleScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid score request"))
		return
	}

	if req.Detailed {
		m := s.engine.ScoreDetailed(c.Request.Context(), req.Query, req.Product)
		c.JSON(http.StatusOK, gin.H{"query": req.Query, "product": req.Product, "metrics": m})
		return
	}
	score := s.engine.ScorePair(c.Request.Context(), req.Query, req.Product)
	c.JSON(http.StatusOK, gin.H{"query": req.Query, "product": req.Product, "score": score})
}

type matchRequest struct {
	Queries  []string `json:"queries" binding:"required"`
	Products []string `json:"products" binding:"required"`
}

type pairScore struct {
	Query   string  `json:"query"`
	Product string  `json:"product"`
	Score   float64 `json:"score"`
}

func (s *Server) handleMatchBatch(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid match request"))
		return
	}

	result, err := s.engine.MatchBatch(c.Request.Context(), req.Queries, req.Products)
	if err != nil {
		abortError(c, err)
		return
	}

	scores := make([]pairScore, 0, len(result.Scores))
	for pair, score := range result.Scores {
		scores = append(scores, pairScore{Query: pair.Query, Product: pair.Product, Score: score})
	}
	c.JSON(http.StatusOK, gin.H{
		"scores":         scores,
		"total_pairs":    result.TotalPairs,
		"cache_hit_rate": result.CacheHitRate,
		"elapsed_ms":     result.Elapsed.Milliseconds(),
	})
}

type feedbackRequest struct {
	Query       string  `json:"query" binding:"required"`
	ProductName string  `json:"product_name" binding:"required"`
	Score       float64 `json:"score"`
	Label       string  `json:"label" binding:"required"`
}

func (s *Server) handleFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid feedback request"))
		return
	}

	ev := matching.NewFeedbackEvent(req.Query, req.ProductName, req.Score, matching.FeedbackLabel(req.Label))
	if err := s.engine.RecordFeedback(c.Request.Context(), ev); err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": ev.ID})
}

func (s *Server) handleWeights(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Weights())
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Stats())
}

func (s *Server) handleClearCache(c *gin.Context) {
	if err := s.engine.ClearCaches(c.Request.Context()); err != nil {
		abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{"status": "ok", "time": time.Now().UTC()}
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			// Degraded, not down: scoring works without the shared tier.
			status["status"] = "degraded"
			status["shared_cache"] = err.Error()
			c.JSON(http.StatusOK, status)
			return
		}
		status["shared_cache"] = "ok"
	}
	c.JSON(http.StatusOK, status)
}

func abortError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeBadRequest, errors.ErrCodeValidation, errors.ErrCodeFeedbackMalformed:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeServiceUnavailable, errors.ErrCodeTimeout:
		status = http.StatusServiceUnavailable
	}
	c.AbortWithStatusJSON(status, gin.H{"code": string(code), "error": err.Error()})
}
