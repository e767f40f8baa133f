package api

import (
	"encoding/json"
	"net/http"

	"github.com/waypost/waypost/internal/server"
	"github.com/waypost/waypost/pkg/nodeview"
)

// HealthHandler reports the state of the node resolution subsystem.
// Endpoint: GET /api/v1/health
//
// A healthy system answers 200; a reachable database without the node
// view answers 503 with the same body shape so probes can tell the two
// apart from an outright connection failure.
func HealthHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logArgs := []any{
			"path", r.URL.Path,
			"method", r.Method,
		}

		switch r.Method {
		case "GET":
			health, err := srv.Manager.Health(r.Context())
			if err != nil {
				srv.Logger.Error("error checking health",
					append(logArgs, "error", err)...)
				http.Error(w, "Error checking health", http.StatusServiceUnavailable)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			if health.Status != nodeview.HealthOK {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
			if err := json.NewEncoder(w).Encode(health); err != nil {
				srv.Logger.Error("error encoding response",
					append(logArgs, "error", err)...)
				return
			}

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
}
