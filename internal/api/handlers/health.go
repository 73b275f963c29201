package handlers

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"product-strategy-gateway/internal/api/response"
)

const (
	statusHealthy   = "healthy"
	statusWarning   = "warning"
	statusUnhealthy = "unhealthy"
)

// CheckFunc probes one dependency; a nil error means healthy
type CheckFunc func(ctx context.Context) error

// HealthHandler reports the health of the server and its dependencies
type HealthHandler struct {
	version   string
	startTime time.Time

	mu     sync.RWMutex
	checks map[string]registeredCheck
}

type registeredCheck struct {
	fn       CheckFunc
	critical bool
}

// HealthStatus represents the health check response structure
type HealthStatus struct {
	Status    string           `json:"status"`
	Server    string           `json:"server"`
	Version   string           `json:"version"`
	Uptime    string           `json:"uptime"`
	Timestamp string           `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	System    SystemInfo       `json:"system"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo represents system information
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemoryMB     uint64 `json:"memory_mb"`
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
		checks:    make(map[string]registeredCheck),
	}
}

// AddCheck registers a dependency probe. A failing critical check makes the server
// unhealthy; a failing non-critical check only downgrades it to a warning.
func (h *HealthHandler) AddCheck(name string, fn CheckFunc, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = registeredCheck{fn: fn, critical: critical}
}

// Handle processes health check requests
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := HealthStatus{
		Server:    "product-strategy-gateway",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    h.runChecks(ctx),
		System:    systemInfo(),
	}
	status.Status = overallStatus(status.Checks)

	statusCode := http.StatusOK
	if status.Status == statusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	response.WriteStatus(w, statusCode, status)
}

func (h *HealthHandler) runChecks(ctx context.Context) map[string]Check {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	results := make(map[string]Check, len(names))
	for _, name := range names {
		h.mu.RLock()
		check := h.checks[name]
		h.mu.RUnlock()

		start := time.Now()
		err := check.fn(ctx)
		result := Check{Status: statusHealthy, Latency: time.Since(start).Round(time.Millisecond).String()}
		if err != nil {
			result.Status = statusWarning
			if check.critical {
				result.Status = statusUnhealthy
			}
			result.Message = err.Error()
		}
		results[name] = result
	}
	return results
}

func overallStatus(checks map[string]Check) string {
	status := statusHealthy
	for _, check := range checks {
		switch check.Status {
		case statusUnhealthy:
			return statusUnhealthy
		case statusWarning:
			status = statusWarning
		}
	}
	return status
}

func systemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		MemoryMB:     m.Alloc / 1024 / 1024,
	}
}
