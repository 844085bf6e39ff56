package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/outstaffer/content-finder/internal/intelligence"
	"github.com/outstaffer/content-finder/internal/models"
)

const defaultSessionListLimit = 10

type createSessionRequest struct {
	SegmentName string `json:"segment_name"`
	Mission     string `json:"mission"`
}

type updateQueriesRequest struct {
	Queries json.RawMessage `json:"queries"`
	Query   json.RawMessage `json:"query"`
}

type updateSourcesRequest struct {
	Sources       json.RawMessage `json:"sources"`
	SourceUpdates json.RawMessage `json:"source_updates"`
}

var success = map[string]bool{"success": true}

// createSession handles POST /api/intelligence/sessions
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	session, err := s.intelligence.Create(r.Context(), req.SegmentName, req.Mission)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": session.SessionID,
		"session":    session,
	})
}

// listSessions handles GET /api/intelligence/sessions?segment=<name>&limit=<n>
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	limit := defaultSessionListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	sessions, err := s.intelligence.List(r.Context(), r.URL.Query().Get("segment"), limit)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions, "count": len(sessions)})
}

// getSession handles GET /api/intelligence/sessions/{id}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.intelligence.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, session)
}

// updateQueries handles PUT /api/intelligence/sessions/{id}/queries
func (s *Server) updateQueries(w http.ResponseWriter, r *http.Request) {
	var req updateQueriesRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	raw := req.Queries
	if len(raw) == 0 {
		raw = req.Query
	}
	var updates []intelligence.QueryUpdate
	if !rawList(raw) || json.Unmarshal(orEmptyList(raw), &updates) != nil {
		respondWithError(w, http.StatusBadRequest, `Invalid payload: "queries" must be a list`)
		return
	}

	if err := s.intelligence.UpdateQueries(r.Context(), mux.Vars(r)["id"], updates); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, success)
}

// searchSession handles POST /api/intelligence/sessions/{id}/search
func (s *Server) searchSession(w http.ResponseWriter, r *http.Request) {
	if err := s.intelligence.Search(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, success)
}

// updateSources handles PUT /api/intelligence/sessions/{id}/sources
func (s *Server) updateSources(w http.ResponseWriter, r *http.Request) {
	var req updateSourcesRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	raw := req.Sources
	if len(raw) == 0 {
		raw = req.SourceUpdates
	}
	var updates []intelligence.SourceUpdate
	if !rawList(raw) || json.Unmarshal(orEmptyList(raw), &updates) != nil {
		respondWithError(w, http.StatusBadRequest, `Invalid payload: "sources" must be a list`)
		return
	}

	if err := s.intelligence.UpdateSources(r.Context(), mux.Vars(r)["id"], updates); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, success)
}

// analyzeSession handles POST /api/intelligence/sessions/{id}/analyze
func (s *Server) analyzeSession(w http.ResponseWriter, r *http.Request) {
	themes, err := s.intelligence.Analyze(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if themes == nil {
		themes = []models.ContentTheme{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true, "themes": themes})
}

func orEmptyList(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage("[]")
	}
	return raw
}
