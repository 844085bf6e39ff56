package api

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/config"
	"github.com/outstaffer/content-finder/internal/models"
)

type segmentRequest struct {
	SegmentName string `json:"segment_name"`
}

type preScoreRequest struct {
	SegmentName string              `json:"segment_name"`
	RawPosts    []models.RedditPost `json:"raw_posts"`
}

type enrichRequest struct {
	SegmentName    string              `json:"segment_name"`
	PromisingPosts []models.RedditPost `json:"promising_posts"`
}

type generateQueriesRequest struct {
	SegmentName   string              `json:"segment_name"`
	FilteredPosts []models.RedditPost `json:"filtered_posts"`
	Trends        []models.TrendEntry `json:"trends"`
}

type discoveryRequest struct {
	SegmentName    string              `json:"segment_name"`
	Subreddits     []string            `json:"subreddits"`
	TrendsKeywords []string            `json:"trends_keywords"`
	GoogleTrends   config.GoogleTrends `json:"google_trends"`
}

// runDiscovery handles POST /api/intelligence/voc-discovery
func (s *Server) runDiscovery(w http.ResponseWriter, r *http.Request) {
	var req discoveryRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	overrides := config.SegmentConfig{
		Subreddits:     req.Subreddits,
		TrendsKeywords: req.TrendsKeywords,
		GoogleTrends:   req.GoogleTrends,
	}
	report, err := s.voc.RunDiscovery(r.Context(), req.SegmentName, overrides)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// fetchReddit handles POST /api/intelligence/voc-discovery/fetch-reddit
func (s *Server) fetchReddit(w http.ResponseWriter, r *http.Request) {
	var req segmentRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	result, err := s.voc.FetchReddit(r.Context(), req.SegmentName)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// preScorePosts handles POST /api/intelligence/voc-discovery/pre-score-posts
func (s *Server) preScorePosts(w http.ResponseWriter, r *http.Request) {
	var req preScoreRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	result, err := s.voc.PreScore(r.Context(), req.SegmentName, req.RawPosts)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// enrichPosts handles POST /api/intelligence/voc-discovery/enrich-posts
func (s *Server) enrichPosts(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	result, err := s.voc.Enrich(r.Context(), req.SegmentName, req.PromisingPosts)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// analyzePosts handles the retired POST /api/intelligence/voc-discovery/analyze-posts
func (s *Server) analyzePosts(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusGone, map[string]string{
		"error":      "This endpoint is deprecated. Use /pre-score-posts then /enrich-posts instead.",
		"suggestion": "Call /pre-score-posts first, then /enrich-posts with the promising_posts",
	})
}

// fetchTrends handles POST /api/intelligence/voc-discovery/fetch-trends
func (s *Server) fetchTrends(w http.ResponseWriter, r *http.Request) {
	var req segmentRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	result, err := s.voc.FetchTrends(r.Context(), req.SegmentName)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// generateQueries handles POST /api/intelligence/voc-discovery/generate-queries
func (s *Server) generateQueries(w http.ResponseWriter, r *http.Request) {
	var req generateQueriesRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	result, err := s.voc.GenerateQueries(r.Context(), req.SegmentName, req.FilteredPosts, req.Trends)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// monthlyRunMetrics handles GET /api/intelligence/monthly-run
func (s *Server) monthlyRunMetrics(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Monthly run is not configured")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.runner.GetMetrics()))
}

// triggerMonthlyRun handles POST /api/intelligence/monthly-run
func (s *Server) triggerMonthlyRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Monthly run is not configured")
		return
	}

	go func() {
		if err := s.runner.RunMonthly(context.Background()); err != nil {
			logrus.Errorf("Manual monthly run trigger failed: %v", err)
		}
	}()

	respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Monthly run triggered successfully"})
}
