package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"ayashare/internal/config"
	"ayashare/internal/logging"
	"ayashare/internal/pipeline"
)

// defaultMaxUploadBytes bounds a single narration upload.
const defaultMaxUploadBytes = 512 << 20

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// History reads recorded runs.
type History interface {
	Get(ctx context.Context, runID string) (pipeline.Result, error)
	List(ctx context.Context, limit int) ([]pipeline.Result, error)
}

// Options configures the HTTP API.
type Options struct {
	Bind      string
	UploadDir string
	WorkDir   string
	LogDir    string
	// Template supplies the endpoint and asset paths for every run.
	Template       pipeline.Request
	MaxUploadBytes int64
}

// OptionsFromConfig derives server options from configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Bind:      cfg.Paths.APIBind,
		UploadDir: cfg.Paths.UploadDir,
		WorkDir:   cfg.Paths.WorkDir,
		LogDir:    cfg.Paths.LogDir,
		Template:  pipeline.RequestFromConfig(cfg, "", ""),
	}
}

// Server exposes pipeline runs and run history over HTTP.
type Server struct {
	opts    Options
	runner  Runner
	history History
	logger  *slog.Logger
	engine  *gin.Engine

	// runs execute one at a time.
	runMu sync.Mutex

	listener net.Listener
	server   *http.Server
}

// New builds the HTTP API. history may be nil, in which case the history
// endpoints report an empty list.
func New(opts Options, runner Runner, history History, logger *slog.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		opts:    opts,
		runner:  runner,
		history: history,
		logger:  logging.NewComponentLogger(logger, "api-server"),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(s.logger))
	engine.MaxMultipartMemory = 32 << 20
	engine.GET("/healthz", s.handleHealth)
	api := engine.Group("/api")
	{
		api.POST("/runs", s.handleCreateRun)
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
		api.GET("/runs/:id/video", s.handleGetVideo)
		api.GET("/logs", s.handleLogs)
	}
	s.engine = engine

	s.server = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No write timeout: POST /api/runs answers after the whole pipeline.
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens on the configured bind address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.opts.Bind)
	if bind == "" {
		return errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
