package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"tunelink/internal/provider"
	"tunelink/internal/resolver"
)

// handleHome serves the player page from the configured static dir.
func (rs *RelayServer) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(rs.config.Server.StaticDir, "index.html"))
}

// handleTracks resolves a playlist URL into its track list.
func (rs *RelayServer) handleTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	if req.URL == "" {
		rs.respondWithError(w, r, http.StatusBadRequest, "Missing link", nil)
		return
	}

	parser, err := rs.providers.Lookup(req.URL)
	if err != nil {
		rs.respondWithError(w, r, http.StatusBadRequest, "Service not supported", nil)
		return
	}

	tracks := provider.Normalize(parser.Parse(r.Context(), req.URL))
	if len(tracks) == 0 {
		rs.respondWithError(w, r, http.StatusBadRequest, "Unable to read playlist.", nil)
		return
	}

	rs.respondJSON(w, map[string]interface{}{"tracks": tracks})
}

// handleResolve maps a search query to a playable audio stream.
func (rs *RelayServer) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rs.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	if req.Query == "" {
		rs.respondWithError(w, r, http.StatusBadRequest, "Missing query", nil)
		return
	}

	resolved, err := rs.resolver.Resolve(r.Context(), req.Query)
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrNotFound):
			rs.respondWithError(w, r, http.StatusNotFound, "Not found", err)
		default:
			rs.respondWithError(w, r, http.StatusInternalServerError, "Extraction error", err)
		}
		return
	}

	rs.respondJSON(w, resolved)
}

// handleCacheStats reports the resolution cache size.
func (rs *RelayServer) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	rs.respondJSON(w, map[string]int{"entries": rs.cache.Size()})
}

// handleHealthCheck responds with a simple health status.
func (rs *RelayServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	rs.respondJSON(w, map[string]string{"status": "ok"})
}
