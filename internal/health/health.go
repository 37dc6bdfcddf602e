package health

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/EricMurray-e-m-dev/RankMonkey/internal/system"
)

// Probe reports whether a dependency is reachable.
type Probe func(ctx context.Context) error

type component struct {
	probe    Probe
	required bool
}

// Response is the /health payload.
type Response struct {
	Status        string             `json:"status"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	Components    map[string]string  `json:"components"`
	Errors        map[string]string  `json:"errors,omitempty"`
	System        map[string]float64 `json:"system,omitempty"`
}

type HealthServer struct {
	mu         sync.RWMutex
	components map[string]component
	started    time.Time
	collect    func() (*system.Metrics, error)
	server     *http.Server
}

func NewHealthServer() *HealthServer {
	return &HealthServer{
		components: make(map[string]component),
		started:    time.Now(),
		collect:    system.Collect,
	}
}

// AddProbe registers a dependency check. A failing required probe makes the
// service unhealthy; a failing optional one only degrades it.
func (h *HealthServer) AddProbe(name string, required bool, probe Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = component{probe: probe, required: required}
}

// SetSystemCollector overrides the host stats source (tests).
func (h *HealthServer) SetSystemCollector(fn func() (*system.Metrics, error)) {
	h.collect = fn
}

func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.healthCheckHandler)
	return mux
}

func (h *HealthServer) Start(addr string) error {
	h.server = &http.Server{
		Addr:              addr,
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (h *HealthServer) Shutdown(ctx context.Context) error {
	if h.server != nil {
		return h.server.Shutdown(ctx)
	}
	return nil
}

// Check runs every probe and builds the health payload.
func (h *HealthServer) Check(ctx context.Context) Response {
	h.mu.RLock()
	names := make([]string, 0, len(h.components))
	for name := range h.components {
		names = append(names, name)
	}
	components := make(map[string]component, len(h.components))
	for k, v := range h.components {
		components[k] = v
	}
	h.mu.RUnlock()
	sort.Strings(names)

	resp := Response{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Components:    make(map[string]string, len(names)),
	}

	for _, name := range names {
		c := components[name]
		if err := c.probe(ctx); err != nil {
			resp.Components[name] = "disconnected"
			if resp.Errors == nil {
				resp.Errors = make(map[string]string)
			}
			resp.Errors[name] = err.Error()

			if c.required {
				resp.Status = "unhealthy"
			} else if resp.Status == "healthy" {
				resp.Status = "degraded"
			}
			continue
		}
		resp.Components[name] = "connected"
	}

	if h.collect != nil {
		if stats, err := h.collect(); err == nil && stats != nil {
			resp.System = stats.ToMap()
		}
	}

	return resp
}

func (h *HealthServer) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if resp.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[Health] Failed to encode response: %v", err)
	}
}
