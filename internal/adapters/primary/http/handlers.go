package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/siteforge/siteforge/internal/domain/entities"
)

// ErrorResponse is the JSON body for failed requests
type ErrorResponse struct {
	Error   string    `json:"error"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// CreateSiteRequest is the body for POST /api/sites
type CreateSiteRequest struct {
	Name   string `json:"name,omitempty"`
	Prompt string `json:"prompt"`
}

// ServeSiteRequest is the body for POST /api/sites/{id}/serve
type ServeSiteRequest struct {
	Port int `json:"port,omitempty"`
}

// BuildResponse wraps a build result with the refreshed site record
type BuildResponse struct {
	Result *entities.BuildResult `json:"result"`
	Site   *entities.Site        `json:"site,omitempty"`
}

// handleHealth reports server liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"connections": s.connMgr.Count(),
		"time":        time.Now(),
	})
}

// handleCreateSite creates a new site from a prompt
func (s *Server) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	var req CreateSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}
	if req.Prompt == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "prompt is required")
		return
	}

	site, err := s.sites.CreateSite(r.Context(), req.Name, req.Prompt)
	if err != nil {
		s.mapError(w, err, site)
		return
	}
	s.writeJSON(w, http.StatusCreated, site)
}

// handleListSites returns all sites
func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.sites.ListSites())
}

// handleGetSite returns one site by id
func (s *Server) handleGetSite(w http.ResponseWriter, r *http.Request) {
	site, err := s.sites.GetSite(mux.Vars(r)["id"])
	if err != nil {
		s.mapError(w, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, site)
}

// handleDeleteSite deletes a site, stopping it first when serving
func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	if err := s.sites.DeleteSite(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.mapError(w, err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBuildSite runs the external build tool for a site
func (s *Server) handleBuildSite(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	result, err := s.builder.Build(r.Context(), id)
	if err != nil {
		s.mapError(w, err, nil)
		return
	}

	site, _ := s.sites.GetSite(id)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, BuildResponse{Result: result, Site: site})
}

// handleServeSite starts the preview process for a site
func (s *Server) handleServeSite(w http.ResponseWriter, r *http.Request) {
	var req ServeSiteRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON")
			return
		}
	}

	site, err := s.preview.Serve(r.Context(), mux.Vars(r)["id"], req.Port)
	if err != nil {
		s.mapError(w, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, site)
}

// handleStopSite stops a serving site
func (s *Server) handleStopSite(w http.ResponseWriter, r *http.Request) {
	site, err := s.preview.Stop(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.mapError(w, err, nil)
		return
	}
	s.writeJSON(w, http.StatusOK, site)
}

// mapError translates domain errors into HTTP status codes. An
// AlreadyServing failure reports the existing port in the message body.
func (s *Server) mapError(w http.ResponseWriter, err error, site *entities.Site) {
	var alreadyServing *entities.AlreadyServingError
	var buildErr *entities.BuildError
	var serveErr *entities.ServeError

	switch {
	case errors.Is(err, entities.ErrSiteNotFound):
		s.writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &alreadyServing):
		s.writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":  "already_serving",
			"siteId": alreadyServing.SiteID,
			"port":   alreadyServing.Port,
			"time":   time.Now(),
		})
	case errors.Is(err, entities.ErrNameConflict):
		s.writeError(w, http.StatusConflict, "name_conflict", err.Error())
	case errors.Is(err, entities.ErrNotServing):
		s.writeError(w, http.StatusConflict, "not_serving", err.Error())
	case errors.Is(err, entities.ErrInvalidTransition):
		s.writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, entities.ErrPortOutOfRange):
		s.writeError(w, http.StatusBadRequest, "port_out_of_range", err.Error())
	case errors.As(err, &buildErr):
		s.writeError(w, http.StatusBadGateway, "build_failed", err.Error())
	case errors.As(err, &serveErr):
		s.writeError(w, http.StatusBadGateway, "serve_failed", err.Error())
	default:
		if site != nil && site.Status == entities.StatusError {
			// Creation resolved to Error; surface the site with the cause
			s.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error": "create_failed",
				"site":  site,
				"cause": err.Error(),
				"time":  time.Now(),
			})
			return
		}
		s.logger.Error("unhandled error: %v", err)
		s.writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

// writeJSON writes a JSON response with the given status
func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encoding response: %v", err)
	}
}

// writeError writes a structured error response
func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
		Time:    time.Now(),
	})
}
