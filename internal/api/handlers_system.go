// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"assistbridge/internal/health"
)

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := s.deps.Health.Health(r.Context())
	// Liveness stays 200 even when degraded; orchestrators must not restart
	// the process because a dependency is down.
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	resp := s.deps.Health.Ready(r.Context())
	code := http.StatusOK
	if resp.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
