package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	shiftAuth "github.com/MrEthical07/shiftAuth"
)

// Deps holds what the API needs.
type Deps struct {
	Engine *shiftAuth.Engine
	Logger *slog.Logger
	// Metrics, when set, is mounted at MetricsPath without authentication.
	Metrics     http.Handler
	MetricsPath string
	Version     string
}

// Server builds the HTTP handler tree around an Engine.
type Server struct {
	engine      *shiftAuth.Engine
	logger      *slog.Logger
	metrics     http.Handler
	metricsPath string
	version     string
}

// New validates deps and returns a Server.
func New(deps Deps) (*Server, error) {
	if deps.Engine == nil {
		return nil, errors.New("engine is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	path := deps.MetricsPath
	if path == "" {
		path = "/metrics"
	}

	return &Server{
		engine:      deps.Engine,
		logger:      logger.With("component", "http"),
		metrics:     deps.Metrics,
		metricsPath: path,
		version:     deps.Version,
	}, nil
}

// Handler returns the routed handler with request ID, logging, recovery and
// body size middleware applied.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}
