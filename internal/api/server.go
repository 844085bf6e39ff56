package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/outstaffer/content-finder/internal/config"
	"github.com/outstaffer/content-finder/internal/intelligence"
	"github.com/outstaffer/content-finder/internal/metrics"
	"github.com/outstaffer/content-finder/internal/research"
	"github.com/outstaffer/content-finder/internal/voc"
)

// MonthlyRunner triggers and reports on the monthly VOC run
type MonthlyRunner interface {
	RunMonthly(ctx context.Context) error
	GetMetrics() string
}

// Dependencies are the services exposed by the HTTP API
type Dependencies struct {
	Research     research.ServiceInterface
	Intelligence intelligence.ServiceInterface
	VOC          voc.ServiceInterface
	Segments     *config.SegmentLoader
	Runner       MonthlyRunner
	CORSOrigins  []string
}

// Server serves the content finder HTTP API
type Server struct {
	research     research.ServiceInterface
	intelligence intelligence.ServiceInterface
	voc          voc.ServiceInterface
	segments     *config.SegmentLoader
	runner       MonthlyRunner
	corsOrigins  []string
}

// NewServer creates an API server
func NewServer(deps Dependencies) *Server {
	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		research:     deps.Research,
		intelligence: deps.Intelligence,
		voc:          deps.VOC,
		segments:     deps.Segments,
		runner:       deps.Runner,
		corsOrigins:  origins,
	}
}

var endpoints = []string{
	"/api/search",
	"/api/scrape",
	"/api/analyze",
	"/api/synthesize",
	"/api/pipeline",
	"/api/intelligence/sessions",
	"/api/intelligence/voc-discovery",
	"/api/intelligence/config",
	"/api/segment-config/{name}",
	"/api/intelligence/monthly-run",
}

// Router builds the HTTP handler with every route registered
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()
	router.Use(metrics.Middleware)
	router.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	router.HandleFunc("/", s.healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/health", s.healthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/search", s.search).Methods(http.MethodPost)
	api.HandleFunc("/scrape", s.scrape).Methods(http.MethodPost)
	api.HandleFunc("/analyze", s.analyze).Methods(http.MethodPost)
	api.HandleFunc("/synthesize", s.synthesize).Methods(http.MethodPost)
	api.HandleFunc("/pipeline", s.pipeline).Methods(http.MethodPost)

	sessions := api.PathPrefix("/intelligence/sessions").Subrouter()
	sessions.HandleFunc("", s.createSession).Methods(http.MethodPost)
	sessions.HandleFunc("", s.listSessions).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}", s.getSession).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}/queries", s.updateQueries).Methods(http.MethodPut)
	sessions.HandleFunc("/{id}/search", s.searchSession).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/sources", s.updateSources).Methods(http.MethodPut)
	sessions.HandleFunc("/{id}/analyze", s.analyzeSession).Methods(http.MethodPost)

	discovery := api.PathPrefix("/intelligence/voc-discovery").Subrouter()
	discovery.HandleFunc("", s.runDiscovery).Methods(http.MethodPost)
	discovery.HandleFunc("/fetch-reddit", s.fetchReddit).Methods(http.MethodPost)
	discovery.HandleFunc("/pre-score-posts", s.preScorePosts).Methods(http.MethodPost)
	discovery.HandleFunc("/enrich-posts", s.enrichPosts).Methods(http.MethodPost)
	discovery.HandleFunc("/analyze-posts", s.analyzePosts).Methods(http.MethodPost)
	discovery.HandleFunc("/fetch-trends", s.fetchTrends).Methods(http.MethodPost)
	discovery.HandleFunc("/generate-queries", s.generateQueries).Methods(http.MethodPost)

	api.HandleFunc("/intelligence/config", s.intelligenceConfig).Methods(http.MethodGet)
	api.HandleFunc("/segment-config/{name:.+}", s.segmentConfig).Methods(http.MethodGet)
	api.HandleFunc("/intelligence/monthly-run", s.monthlyRunMetrics).Methods(http.MethodGet)
	api.HandleFunc("/intelligence/monthly-run", s.triggerMonthlyRun).Methods(http.MethodPost)

	return corsMiddleware(s.corsOrigins, router)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "content-finder-backend",
		"endpoints": endpoints,
	})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusNotFound, "Endpoint not found")
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
