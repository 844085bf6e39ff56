package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/outstaffer/content-finder/internal/models"
	"github.com/outstaffer/content-finder/internal/providers"
	"github.com/outstaffer/content-finder/internal/validate"
)

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}

// statusFor maps a service error to its HTTP status
func statusFor(err error) int {
	var reqErr *models.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.Kind {
		case models.KindInvalid:
			return http.StatusBadRequest
		case models.KindNotFound:
			return http.StatusNotFound
		case models.KindUnavailable:
			return http.StatusServiceUnavailable
		}
	}

	var llmErr *providers.LLMError
	var shapeErr *validate.Error
	if errors.As(err, &llmErr) || errors.As(err, &shapeErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	entry := logrus.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path, "status": status})
	if status >= http.StatusInternalServerError {
		entry.Errorf("Request failed: %v", err)
	} else {
		entry.Infof("Request rejected: %v", err)
	}
	respondWithError(w, status, err.Error())
}

// decodeBody decodes a JSON request body into v. An empty body leaves v unchanged.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return models.BadRequest("Invalid JSON payload")
}
