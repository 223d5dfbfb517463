package api

import (
	"context"
	"net/http"
	"time"

	"github.com/verityux/verity/pkg/httputil"
	"github.com/verityux/verity/pkg/observability"
)

const healthTimeout = 5 * time.Second

// DatabaseStatus reports database connectivity
type DatabaseStatus struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Healthy  bool           `json:"healthy"`
	Service  string         `json:"service"`
	Version  string         `json:"version"`
	Database DatabaseStatus `json:"database"`
}

// health handles GET /health. It always answers 200; healthy is false when
// the database cannot be reached.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := DatabaseStatus{Connected: true}
	if s.deps.DBPing == nil {
		status = DatabaseStatus{Error: "Database not configured"}
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.deps.DBPing(ctx); err != nil {
			observability.FromContext(r.Context()).WithError(err).Error("Database health check failed")
			status = DatabaseStatus{Error: "Database connection failed: " + err.Error()}
		}
	}

	httputil.WriteSuccess(w, HealthResponse{
		Healthy:  status.Connected,
		Service:  s.cfg.ServiceName,
		Version:  s.cfg.Version,
		Database: status,
	})
}
