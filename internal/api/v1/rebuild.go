package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/waypost/waypost/internal/server"
	"github.com/waypost/waypost/pkg/nodeview"
)

// RebuildViewHandler forces a rebuild of the unified node view from the
// current registry.
// Endpoint: POST /api/v1/admin/rebuild-view
func RebuildViewHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logArgs := []any{
			"path", r.URL.Path,
			"method", r.Method,
		}

		switch r.Method {
		case "POST":
			result, err := srv.Manager.Rebuild(r.Context())
			if err != nil {
				if errors.Is(err, nodeview.ErrSchemaMismatch) {
					srv.Logger.Warn("rebuild rejected, registry does not match schema",
						append(logArgs, "error", err)...)
					http.Error(w, "Registry does not match database schema",
						http.StatusConflict)
					return
				}
				srv.Logger.Error("error rebuilding node view",
					append(logArgs, "error", err)...)
				http.Error(w, "Error rebuilding node view", http.StatusServiceUnavailable)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(result); err != nil {
				srv.Logger.Error("error encoding response",
					append(logArgs, "error", err)...)
				http.Error(w, "Error encoding response", http.StatusInternalServerError)
				return
			}

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
}
