package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/config"
)

// intelligenceConfig handles GET /api/intelligence/config
func (s *Server) intelligenceConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.segments.LoadIntelligence()
	if err != nil {
		logrus.WithField("operation", "intelligence_config").Errorf("Failed to load configuration: %v", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load configuration: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, cfg)
}

// segmentConfig handles GET /api/segment-config/{name}
func (s *Server) segmentConfig(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	log := logrus.WithFields(logrus.Fields{"operation": "segment_config", "segment_name": name})
	log.Info("Segment config requested")

	cfg, err := s.segments.Load(name)
	if err != nil {
		if errors.Is(err, config.ErrSegmentNotFound) {
			log.Warn("Segment configuration missing")
			respondWithError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Errorf("Failed to load segment configuration: %v", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load configuration for '%s': %v", name, err))
		return
	}

	subreddits := cfg.Subreddits
	if subreddits == nil {
		subreddits = []string{}
	}
	keywords := cfg.TrendsQueryKeywords()
	if keywords == nil {
		keywords = []string{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"segment":         name,
		"subreddits":      subreddits,
		"trends_keywords": keywords,
	})
}
