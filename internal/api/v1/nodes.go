package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/waypost/waypost/internal/server"
	"github.com/waypost/waypost/pkg/nodeid"
	"github.com/waypost/waypost/pkg/nodeview"
)

// NodeGetResponse is the response for GET /api/v1/nodes/{id}.
type NodeGetResponse struct {
	GlobalID string `json:"global_id"`
	nodeview.Node
}

// NodesBatchRequest is the request for POST /api/v1/nodes/batch. IDs may
// be bare UUIDs or encoded global IDs; empty strings count as nil IDs.
type NodesBatchRequest struct {
	IDs      []string `json:"ids"`
	AllowNil bool     `json:"allow_nil"`
}

// NodesBatchResponse is the response for POST /api/v1/nodes/batch.
type NodesBatchResponse struct {
	Nodes []NodeGetResponse `json:"nodes"`
	Count int               `json:"count"`
}

// NodeHandler handles requests for a single node.
// Endpoint: GET /api/v1/nodes/{id}
func NodeHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logArgs := []any{
			"path", r.URL.Path,
			"method", r.Method,
		}

		switch r.Method {
		case "GET":
			raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/nodes/"), "/")
			if raw == "" || strings.Contains(raw, "/") {
				http.Error(w, "Node ID required", http.StatusBadRequest)
				return
			}

			id, typeName, err := parseNodeRef(raw)
			if err != nil {
				http.Error(w, "Invalid node ID", http.StatusBadRequest)
				return
			}

			node, found, err := srv.Resolver.Resolve(r.Context(), id)
			if err != nil {
				srv.Logger.Error("error resolving node",
					append(logArgs, "error", err)...)
				http.Error(w, "Error resolving node", http.StatusServiceUnavailable)
				return
			}
			if !found {
				http.Error(w, "Node not found", http.StatusNotFound)
				return
			}
			// A global ID names a type; a node of a different type is the
			// same as no node at all.
			if typeName != "" && typeName != node.TypeName {
				http.Error(w, "Node not found", http.StatusNotFound)
				return
			}

			resp := NodeGetResponse{
				GlobalID: node.GlobalID().Encode(),
				Node:     *node,
			}

			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(resp); err != nil {
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

// NodesBatchHandler handles batch node resolution.
// Endpoint: POST /api/v1/nodes/batch
func NodesBatchHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logArgs := []any{
			"path", r.URL.Path,
			"method", r.Method,
		}

		switch r.Method {
		case "POST":
			var req NodesBatchRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}

			if max := srv.Config.Resolver.BatchMaxIDs; len(req.IDs) > max {
				http.Error(w,
					fmt.Sprintf("Too many IDs: %d exceeds the limit of %d", len(req.IDs), max),
					http.StatusBadRequest)
				return
			}

			ids := make([]nodeid.ID, 0, len(req.IDs))
			for i, raw := range req.IDs {
				if raw == "" {
					ids = append(ids, nodeid.ID{})
					continue
				}
				id, _, err := parseNodeRef(raw)
				if err != nil {
					http.Error(w,
						fmt.Sprintf("Invalid node ID at position %d", i),
						http.StatusBadRequest)
					return
				}
				ids = append(ids, id)
			}

			nodes, err := srv.Resolver.ResolveBatch(r.Context(), ids, req.AllowNil)
			if err != nil {
				if errors.Is(err, nodeview.ErrNilID) {
					http.Error(w, "Nil node ID in batch", http.StatusBadRequest)
					return
				}
				srv.Logger.Error("error resolving node batch",
					append(logArgs, "error", err)...)
				http.Error(w, "Error resolving nodes", http.StatusServiceUnavailable)
				return
			}

			resp := NodesBatchResponse{
				Nodes: make([]NodeGetResponse, 0, len(nodes)),
				Count: len(nodes),
			}
			for _, node := range nodes {
				resp.Nodes = append(resp.Nodes, NodeGetResponse{
					GlobalID: node.GlobalID().Encode(),
					Node:     node,
				})
			}

			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(resp); err != nil {
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
