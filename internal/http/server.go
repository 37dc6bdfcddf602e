package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/metrics"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/models"
	"github.com/EricMurray-e-m-dev/RankMonkey/internal/scheduler"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AlertService is the alert lifecycle surface exposed over HTTP.
type AlertService interface {
	Open() []models.Alert
	All() []models.Alert
	Get(id string) (models.Alert, bool)
	Acknowledge(id string) bool
	Resolve(id string) bool
}

// Dependencies are the read models and actions the API serves. Nil fields
// make the matching endpoints answer 503.
type Dependencies struct {
	Dashboard    func() models.Dashboard
	Alerts       AlertService
	Ranking      func(keyword string) (models.RankingRecord, bool)
	LatestAudit  func() (*models.AuditResult, bool)
	LatestReport func() (*models.WeeklyReport, bool)
	Competitors  func() []models.CompetitorSummary
	TaskStatus   func() []scheduler.TaskStatus
	RunCycle     func(ctx context.Context) error
}

type Server struct {
	deps       Dependencies
	router     *mux.Router
	httpServer *http.Server // Store server instance for graceful shutdown
}

func NewServer(deps Dependencies) *Server {
	s := &Server{
		deps:   deps,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.instrument)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.handleListAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id}", s.handleGetAlert).Methods(http.MethodGet)
	api.HandleFunc("/alerts/{id}/acknowledge", s.handleAcknowledge).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{id}/resolve", s.handleResolve).Methods(http.MethodPost)
	api.HandleFunc("/rankings/{keyword}", s.handleRanking).Methods(http.MethodGet)
	api.HandleFunc("/audits/latest", s.handleLatestAudit).Methods(http.MethodGet)
	api.HandleFunc("/reports/latest", s.handleLatestReport).Methods(http.MethodGet)
	api.HandleFunc("/competitors", s.handleCompetitors).Methods(http.MethodGet)
	api.HandleFunc("/monitoring/status", s.handleTaskStatus).Methods(http.MethodGet)
	api.HandleFunc("/monitoring/run", s.handleRunCycle).Methods(http.MethodPost)

	s.router.Handle("/metrics", promhttp.Handler())
}

// Handler returns the routed handler wrapped with CORS.
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // monitoring/run waits for a full cycle
		IdleTimeout:  30 * time.Second,
	}

	log.Printf("HTTP Server listening on: %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	log.Printf("Stopping HTTP server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	log.Printf("HTTP server stopped successfully")
	return nil
}

func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tmpl
			}
		}
		metrics.ObserveRequest(r.Method, endpoint, strconv.Itoa(rec.status), time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func unavailable(w http.ResponseWriter) {
	writeError(w, http.StatusServiceUnavailable, "not available")
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Dashboard == nil {
		unavailable(w)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Dashboard())
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	if s.deps.Alerts == nil {
		unavailable(w)
		return
	}

	switch status := r.URL.Query().Get("status"); status {
	case "", "open":
		writeJSON(w, http.StatusOK, s.deps.Alerts.Open())
	case "all":
		writeJSON(w, http.StatusOK, s.deps.Alerts.All())
	default:
		writeError(w, http.StatusBadRequest, "status must be open or all")
	}
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	if s.deps.Alerts == nil {
		unavailable(w)
		return
	}

	alert, ok := s.deps.Alerts.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "acknowledge", func(id string) bool { return s.deps.Alerts.Acknowledge(id) })
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, "resolve", func(id string) bool { return s.deps.Alerts.Resolve(id) })
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, action string, apply func(string) bool) {
	if s.deps.Alerts == nil {
		unavailable(w)
		return
	}

	id := mux.Vars(r)["id"]
	log.Printf("Alert %s request on: %s", action, id)

	if !apply(id) {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}

	alert, _ := s.deps.Alerts.Get(id)
	writeJSON(w, http.StatusOK, alert)
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ranking == nil {
		unavailable(w)
		return
	}

	record, ok := s.deps.Ranking(mux.Vars(r)["keyword"])
	if !ok {
		writeError(w, http.StatusNotFound, "keyword not tracked")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleLatestAudit(w http.ResponseWriter, _ *http.Request) {
	if s.deps.LatestAudit == nil {
		unavailable(w)
		return
	}

	result, ok := s.deps.LatestAudit()
	if !ok {
		writeError(w, http.StatusNotFound, "no audit has run yet")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLatestReport(w http.ResponseWriter, _ *http.Request) {
	if s.deps.LatestReport == nil {
		unavailable(w)
		return
	}

	report, ok := s.deps.LatestReport()
	if !ok {
		writeError(w, http.StatusNotFound, "no report has been generated yet")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCompetitors(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Competitors == nil {
		unavailable(w)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Competitors())
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, _ *http.Request) {
	if s.deps.TaskStatus == nil {
		unavailable(w)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.TaskStatus())
}

func (s *Server) handleRunCycle(w http.ResponseWriter, r *http.Request) {
	if s.deps.RunCycle == nil {
		unavailable(w)
		return
	}

	log.Printf("Manual monitoring cycle requested")
	if err := s.deps.RunCycle(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}
