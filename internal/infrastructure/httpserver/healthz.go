package httpserver

import (
	"encoding/json"
	"net/http"
)

// healthResponse mirrors the degraded/healthy status vocabulary the teacher's
// KNX bridge publishes over MQTT (HealthStatus in messages.go), reused here
// as the /healthz response body.
type healthResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// handleHealthz reports 200 while every registered HealthChecker reports
// connected, 503 with a JSON reason otherwise, naming one failing
// dependency (map iteration order decides which, when several fail).
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	for name, checker := range s.checks {
		if !checker.IsConnected() {
			writeHealthJSON(w, http.StatusServiceUnavailable, healthResponse{
				Status: "degraded",
				Reason: name + " disconnected",
			})
			return
		}
	}
	writeHealthJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
}

func writeHealthJSON(w http.ResponseWriter, statusCode int, body healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
