// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/orderflow/workorder-engine/internal/common"
	"github.com/orderflow/workorder-engine/internal/engine"
	"github.com/orderflow/workorder-engine/internal/model"
)

// Server is the thin HTTP admin surface over the mutation engine: submit a
// work order, reload the recipe catalog, inspect health and recent logs.
// Request validation and the upstream ingress protocol are deliberately out
// of scope — this exists only so the engine is reachable without a custom
// harness.
type Server struct {
	router      chi.Router
	eng         *engine.Engine
	catalogPath string
	runDeadline time.Duration
}

// Config controls the server's defaults.
type Config struct {
	CatalogPath string
	RunDeadline time.Duration
}

func (c Config) Merge(override Config) Config {
	result := c
	if override.CatalogPath != "" {
		result.CatalogPath = override.CatalogPath
	}
	if override.RunDeadline > 0 {
		result.RunDeadline = override.RunDeadline
	}
	return result
}

func (c *Config) applyDefaults() {
	if c.RunDeadline <= 0 {
		c.RunDeadline = 30 * time.Second
	}
}

// NewServer builds a server over an already-constructed engine.
func NewServer(eng *engine.Engine, cfg Config) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine required")
	}
	cfg.applyDefaults()
	srv := &Server{
		router:      chi.NewRouter(),
		eng:         eng,
		catalogPath: cfg.CatalogPath,
		runDeadline: cfg.RunDeadline,
	}
	srv.routes()
	common.Logger().Info("api: server ready")
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/v1/work-orders", s.handleSubmit)
	s.router.Post("/v1/catalog/reload", s.handleReload)
	s.router.Get("/v1/logs", s.handleLogs)
}

type submitRequest struct {
	TaskID     string                 `json:"task_id"`
	Text       string                 `json:"text"`
	SeedParams map[string]interface{} `json:"seed_params"`
}

type submitResponse struct {
	Status   model.OutcomeStatus `json:"status"`
	Message  string              `json:"message,omitempty"`
	Artifact *model.DmlArtifact  `json:"artifact,omitempty"`
	Trace    []model.TraceEntry  `json:"trace"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.TaskID == "" || req.Text == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("task_id and text are required"))
		return
	}

	result := s.eng.Run(r.Context(), req.TaskID, req.Text, req.SeedParams, s.runDeadline)
	resp := submitResponse{
		Status:   result.Outcome.Status,
		Message:  result.Outcome.Message,
		Artifact: result.Artifact,
		Trace:    result.Outcome.Trace,
	}
	writeJSON(w, http.StatusOK, resp)
}

type reloadRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	var req reloadRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	path := req.Path
	if path == "" {
		path = s.catalogPath
	}
	if path == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("no catalog path configured"))
		return
	}
	status, err := s.eng.ReloadCatalog(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, common.LogEntries())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
