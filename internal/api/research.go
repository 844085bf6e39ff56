package api

import (
	"encoding/json"
	"net/http"

	"github.com/outstaffer/content-finder/internal/models"
	"github.com/outstaffer/content-finder/internal/research"
)

var defaultScrapeFormats = []string{"markdown", "html"}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type scrapeRequest struct {
	URLs    interface{} `json:"urls"`
	Formats []string    `json:"formats"`
}

type analyzeRequest struct {
	Content string `json:"content"`
	Prompt  string `json:"prompt"`
}

type synthesizeRequest struct {
	Query    string                    `json:"query"`
	Contents []models.SynthesisContent `json:"contents"`
}

type pipelineRequest struct {
	Query   string `json:"query"`
	MaxURLs int    `json:"max_urls"`
}

// search handles POST /api/search
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	req := searchRequest{Limit: research.DefaultSearchLimit}
	if err := decodeBody(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	resp, err := s.research.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// scrape handles POST /api/scrape
func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	urls, err := stringList(req.URLs)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	formats := req.Formats
	if len(formats) == 0 {
		formats = defaultScrapeFormats
	}

	resp, err := s.research.Scrape(r.Context(), urls, formats)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// stringList checks the shape of the urls field: absent or empty is "required", anything but a list is rejected
func stringList(v interface{}) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return nil, models.BadRequest("URLs are required")
	case string:
		if list == "" {
			return nil, models.BadRequest("URLs are required")
		}
		return nil, models.BadRequest("URLs must be a list")
	case []interface{}:
		if len(list) == 0 {
			return nil, models.BadRequest("URLs are required")
		}
		urls := make([]string, 0, len(list))
		for _, item := range list {
			url, ok := item.(string)
			if !ok {
				return nil, models.BadRequest("URLs must be a list")
			}
			urls = append(urls, url)
		}
		return urls, nil
	default:
		return nil, models.BadRequest("URLs must be a list")
	}
}

// analyze handles POST /api/analyze
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	analysis, err := s.research.Analyze(r.Context(), req.Content, req.Prompt)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, analysis)
}

// synthesize handles POST /api/synthesize
func (s *Server) synthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest
	if err := decodeBody(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	analysis, err := s.research.Synthesize(r.Context(), req.Query, req.Contents)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, analysis)
}

// pipeline handles POST /api/pipeline
func (s *Server) pipeline(w http.ResponseWriter, r *http.Request) {
	req := pipelineRequest{MaxURLs: research.DefaultPipelineURLs}
	if err := decodeBody(r, &req); err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	result, err := s.research.RunPipeline(r.Context(), req.Query, req.MaxURLs)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// rawList reports whether a raw field is a JSON array. Absent fields count as a list of nothing.
func rawList(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	var items []json.RawMessage
	return json.Unmarshal(raw, &items) == nil
}
