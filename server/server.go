// Package server exposes a tactic Registry over HTTP: one POST endpoint that
// returns ranked candidates for a proof state, plus health, model listing and
// Prometheus metrics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oraraka-deko/leantac/tactic"
)

const requestIDHeader = "X-Request-ID"

// Suggester is the part of *tactic.Registry the handlers use.
type Suggester interface {
	Generate(ctx context.Context, name, state, prefix string) ([]tactic.Candidate, error)
	Models() []string
}

// GenerateRequest is the body of POST /generate. Input must be present but may
// be empty.
type GenerateRequest struct {
	Name   string  `json:"name" binding:"required"`
	Input  *string `json:"input" binding:"required"`
	Prefix *string `json:"prefix"`
}

// Generation is one ranked tactic.
type Generation struct {
	Output string  `json:"output"`
	Score  float64 `json:"score"`
}

type GenerateResponse struct {
	Outputs []Generation `json:"outputs"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// Server wires a Suggester into gin handlers.
type Server struct {
	models         Suggester
	log            *slog.Logger
	requestTimeout time.Duration
}

// New creates a Server. A zero requestTimeout leaves request deadlines to the
// model profiles.
func New(models Suggester, logger *slog.Logger, requestTimeout time.Duration) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{models: models, log: logger, requestTimeout: requestTimeout}
}

// NewRegistry builds the registry a config describes.
func NewRegistry(ctx context.Context, cfg Config, logger *slog.Logger) (*tactic.Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	clientCfg := cfg.ClientConfig()
	clientCfg.Logger = logger
	client := tactic.New(clientCfg)

	reg := tactic.NewRegistry().
		WithCache(cfg.SuggestionCache()).
		WithRetry(cfg.TacticRetry()).
		WithConcurrency(cfg.Concurrency).
		WithLogger(logger)
	if err := reg.RegisterProfiles(ctx, client, cfg.Profiles()); err != nil {
		return nil, err
	}
	return reg, nil
}

// Router returns the gin engine with all routes installed.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestID(), s.accessLog())

	router.GET("/health", s.health)
	router.GET("/models", s.listModels)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/generate", s.generate)
	router.POST("/encode", s.encode)
	return router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr, "models", s.models.Models())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": s.models.Models()})
}

func (s *Server) encode(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, errorResponse{
		Error:     "hosted models do not provide encodings",
		Code:      "not_implemented",
		RequestID: c.GetString("request_id"),
	})
}

func (s *Server) generate(c *gin.Context) {
	reqID := c.GetString("request_id")

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		generateRequests.WithLabelValues("", "bad_request").Inc()
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error(), Code: "bad_request", RequestID: reqID})
		return
	}
	prefix := ""
	if req.Prefix != nil {
		prefix = *req.Prefix
	}

	ctx := c.Request.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	start := time.Now()
	cands, err := s.models.Generate(ctx, req.Name, *req.Input, prefix)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		status, code := classify(err)
		label := metricModel(code, req.Name)
		generateRequests.WithLabelValues(label, code).Inc()
		generateLatency.WithLabelValues(label).Observe(elapsed)
		logFn := s.log.Warn
		if status >= http.StatusInternalServerError {
			logFn = s.log.Error
		}
		logFn("generate failed", "request_id", reqID, "model", req.Name, "status", status, "error", err)
		c.JSON(status, errorResponse{Error: err.Error(), Code: code, RequestID: reqID})
		return
	}

	generateRequests.WithLabelValues(req.Name, "ok").Inc()
	generateLatency.WithLabelValues(req.Name).Observe(elapsed)
	generateCandidates.WithLabelValues(req.Name).Observe(float64(len(cands)))
	topConfidence.WithLabelValues(req.Name).Observe(cands[0].Confidence)

	resp := GenerateResponse{Outputs: make([]Generation, 0, len(cands))}
	for _, cand := range cands {
		resp.Outputs = append(resp.Outputs, Generation{Output: cand.Tactic, Score: cand.Confidence})
	}
	c.JSON(http.StatusOK, resp)
}

// metricModel keeps unknown names out of the label set.
func metricModel(code, name string) string {
	if code == "unknown_model" {
		return ""
	}
	return name
}

// classify maps a generation error onto an HTTP status and a stable code.
func classify(err error) (int, string) {
	var te *tactic.TransportError
	switch {
	case errors.Is(err, tactic.ErrUnknownModel):
		return http.StatusNotFound, "unknown_model"
	case errors.Is(err, tactic.ErrModelRefused):
		return http.StatusUnprocessableEntity, "refused"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, tactic.ErrUnsupportedModel):
		return http.StatusInternalServerError, "unsupported_model"
	case errors.Is(err, tactic.ErrTokenBudgetExhausted),
		errors.Is(err, tactic.ErrNoStructuredOutput),
		errors.Is(err, tactic.ErrEmptyCompletion),
		errors.Is(err, tactic.ErrPrefixViolation),
		errors.As(err, &te):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
