// Package httpapi serves the agent over HTTP: an HTML question form and a
// small JSON API.
package httpapi

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medrag/internal/domain"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

//go:embed templates/*.html
var pageTemplates embed.FS

// Asker runs one question through the agent.
type Asker interface {
	Run(ctx context.Context, question string) (*domain.AgentResult, error)
}

type Server struct {
	engine         *gin.Engine
	asker          Asker
	logger         *zap.Logger
	requestTimeout time.Duration
}

type Option func(*Server)

// WithRequestTimeout bounds how long one question may run. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.requestTimeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func NewServer(asker Asker, opts ...Option) *Server {
	s := &Server{
		asker:  asker,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), requestLogger(s.logger))
	engine.SetHTMLTemplate(template.Must(template.ParseFS(pageTemplates, "templates/*.html")))

	engine.GET("/", s.handleIndex)
	engine.POST("/", s.handleForm)
	engine.POST("/v1/ask", s.handleAsk)
	engine.GET("/healthz", s.handleHealth)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	s.engine = engine
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is canceled, then drains
// in-flight requests for at most shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

type pageData struct {
	Question string
	Response string
	Failed   bool
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", pageData{})
}

// handleForm always renders the page; failures show up as "Error: ..." text.
func (s *Server) handleForm(c *gin.Context) {
	question := strings.TrimSpace(c.PostForm("question"))
	if question == "" {
		c.HTML(http.StatusBadRequest, "index.html", pageData{Response: "Error: question is required", Failed: true})
		return
	}

	answer, _, err := s.ask(c, question)
	if err != nil {
		c.HTML(http.StatusOK, "index.html", pageData{Question: question, Response: "Error: " + err.Error(), Failed: true})
		return
	}
	c.HTML(http.StatusOK, "index.html", pageData{Question: question, Response: answer})
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

type askResponse struct {
	Answer string `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
	RunID  string `json:"run_id,omitempty"`
}

func (s *Server) handleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, askResponse{Error: "question is required"})
		return
	}

	answer, runID, err := s.ask(c, req.Question)
	if err != nil {
		c.JSON(statusFor(err), askResponse{Error: err.Error(), RunID: runID})
		return
	}
	c.JSON(http.StatusOK, askResponse{Answer: answer, RunID: runID})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (s *Server) ask(c *gin.Context, question string) (answer, runID string, err error) {
	ctx := c.Request.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	result, err := s.asker.Run(ctx, question)
	if result != nil {
		runID = result.RunID
	}
	if err != nil {
		s.logger.Warn("question failed",
			zap.String("request_id", c.GetString(HeaderRequestID)),
			zap.String("run_id", runID),
			zap.Error(err))
		return "", runID, err
	}
	return result.Output, runID, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, domain.ErrOracleTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrOracleUnavailable), errors.Is(err, domain.ErrToolExecution):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrIterationLimit):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
