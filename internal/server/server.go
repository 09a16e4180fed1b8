// Package server exposes token analyses over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/NovaAnalyst/internal/gpt"
	"github.com/Alias1177/NovaAnalyst/models"
)

// Service is the analysis backend the handlers call
type Service interface {
	AnalyzeToken(ctx context.Context, query string) (*models.AnalysisReport, error)
	MarketOverview(ctx context.Context) (*models.MarketOverview, error)
	Trending(ctx context.Context) ([]models.TrendingCoin, error)
	Health(ctx context.Context) models.APIHealth
}

// Insighter produces a written analysis of a report, as text or as a JSON object
type Insighter interface {
	AnalyzeReport(ctx context.Context, rep *models.AnalysisReport, kind gpt.AnalysisType, additionalContext string) (*gpt.Analysis, error)
	AnalyzeReportJSON(ctx context.Context, rep *models.AnalysisReport, kind gpt.AnalysisType) (map[string]interface{}, error)
}

// Server wraps the HTTP server and its handlers
type Server struct {
	httpServer *http.Server
	service    Service
	insights   Insighter
	logger     zerolog.Logger
}

// Options configures the server
type Options struct {
	Addr           string
	Service        Service
	Insights       Insighter    // optional
	Metrics        http.Handler // optional, mounted on /metrics
	RequestTimeout time.Duration
}

// NewServer creates a server with all routes registered
func NewServer(opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	s := &Server{
		service:  opts.Service,
		insights: opts.Insights,
		logger:   log.With().Str("component", "http_server").Logger(),
	}

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.routes(opts.Metrics, opts.RequestTimeout),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: opts.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) routes(metrics http.Handler, timeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/v1/analysis", s.handleAnalysis)
	mux.HandleFunc("/v1/insight", s.handleInsight)
	mux.HandleFunc("/v1/market", s.handleMarket)
	mux.HandleFunc("/v1/health", s.handleHealth)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	return s.withRequestLog(http.TimeoutHandler(mux, timeout, `{"error":"request timed out"}`))
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error().Err(err).Msg("HTTP server error")
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rep, ok := s.analyze(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type insightResponse struct {
	Report   *models.AnalysisReport `json:"report"`
	Analysis *gpt.Analysis          `json:"analysis,omitempty"`
	// Structured is set for format=json when the model answered
	Structured map[string]interface{} `json:"structured,omitempty"`
	Summary    string                 `json:"summary"`
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rep, ok := s.analyze(w, r)
	if !ok {
		return
	}

	kind := gpt.ParseAnalysisType(r.URL.Query().Get("type"))
	resp := insightResponse{Report: rep, Summary: gpt.QuickSummary(rep)}

	if s.insights != nil && r.URL.Query().Get("format") == "json" {
		structured, err := s.insights.AnalyzeReportJSON(r.Context(), rep, kind)
		if err == nil {
			resp.Structured = structured
			writeJSON(w, http.StatusOK, resp)
			return
		}
		s.logger.Warn().Err(err).Str("query", rep.Query).Msg("JSON insight failed, answering with text")
	}

	if s.insights == nil {
		resp.Analysis = gpt.FallbackAnalysis(rep)
	} else {
		analysis, err := s.insights.AnalyzeReport(r.Context(), rep, kind, r.URL.Query().Get("context"))
		if err != nil {
			s.logger.Warn().Err(err).Str("query", rep.Query).Msg("AI insight failed")
		}
		resp.Analysis = analysis
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) (*models.AnalysisReport, bool) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return nil, false
	}

	rep, err := s.service.AnalyzeToken(r.Context(), query)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, models.ErrNoData) {
			status = http.StatusNotFound
		}
		s.logger.Warn().Err(err).Str("query", query).Int("status", status).Msg("Analysis failed")
		writeError(w, status, err.Error())
		return nil, false
	}
	return rep, true
}

type marketResponse struct {
	Overview *models.MarketOverview `json:"overview,omitempty"`
	Trending []models.TrendingCoin  `json:"trending,omitempty"`
	Errors   []string               `json:"errors,omitempty"`
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	var resp marketResponse

	overview, err := s.service.MarketOverview(r.Context())
	if err != nil {
		resp.Errors = append(resp.Errors, err.Error())
	}
	resp.Overview = overview

	trending, err := s.service.Trending(r.Context())
	if err != nil {
		resp.Errors = append(resp.Errors, err.Error())
	}
	resp.Trending = trending

	status := http.StatusOK
	if overview == nil && trending == nil {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.service.Health(r.Context())

	status := http.StatusOK
	if health.CoinGecko.Status != models.StatusOnline || health.DexScreener.Status != models.StatusOnline {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(started)).
			Msg("Request served")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
