package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc checks one optional dependency
type CheckFunc func(ctx context.Context) error

// HealthChecker reports liveness and readiness. The database is required;
// redis and any added checks only degrade readiness.
type HealthChecker struct {
	db    *sql.DB
	redis *redis.Client

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewHealthChecker creates a new health checker. Either dependency may be nil.
func NewHealthChecker(db *sql.DB, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{
		db:     db,
		redis:  redisClient,
		checks: make(map[string]CheckFunc),
	}
}

// AddCheck registers an optional dependency check such as the object store
func (h *HealthChecker) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string  `json:"status"`
	Message   string  `json:"message,omitempty"`
	LatencyMs float64 `json:"latency_ms"`
}

// Liveness always returns 200 while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealthJSON(w, http.StatusOK, map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now().UTC(),
	})
}

// Readiness returns 503 when a required dependency is down
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealthJSON(w, code, status)
}

// Check pings every dependency
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now().UTC(),
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.db != nil {
		dep := runCheck(ctx, h.PingDatabase)
		status.Dependencies["database"] = dep
		if dep.Status != StatusHealthy {
			status.Status = StatusUnhealthy
		}
	}

	optional := make(map[string]CheckFunc)
	if h.redis != nil {
		optional["redis"] = func(ctx context.Context) error { return h.redis.Ping(ctx).Err() }
	}
	h.mu.RLock()
	for name, check := range h.checks {
		optional[name] = check
	}
	h.mu.RUnlock()

	names := make([]string, 0, len(optional))
	for name := range optional {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		dep := runCheck(ctx, optional[name])
		status.Dependencies[name] = dep
		if dep.Status != StatusHealthy && status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	return status
}

// PingDatabase verifies the database answers a trivial query
func (h *HealthChecker) PingDatabase(ctx context.Context) error {
	if h.db == nil {
		return sql.ErrConnDone
	}
	var one int
	return h.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

func runCheck(ctx context.Context, check CheckFunc) DependencyStatus {
	start := time.Now()
	err := check(ctx)
	dep := DependencyStatus{
		Status:    StatusHealthy,
		LatencyMs: float64(time.Since(start).Microseconds()) / 1000,
	}
	if err != nil {
		dep.Status = StatusUnhealthy
		dep.Message = err.Error()
	}
	return dep
}

func writeHealthJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
