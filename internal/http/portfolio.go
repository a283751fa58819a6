package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/portfolio-service/internal/catalog"
	"github.com/kjstillabower/portfolio-service/internal/client"
	"github.com/kjstillabower/portfolio-service/internal/contact"
	"github.com/kjstillabower/portfolio-service/internal/models"
	"github.com/kjstillabower/portfolio-service/internal/observability"
)

const maxContactBodyBytes = 100 << 10

// GetProjects handles GET /api/projects.
func (h *Handler) GetProjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Projects())
}

// GetProject handles GET /api/projects/{id}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Project(mux.Vars(r)["id"])
	if errors.Is(err, catalog.ErrProjectNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetSkills handles GET /api/skills.
func (h *Handler) GetSkills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Skills())
}

// GetGitHubLatest handles GET /api/github/latest.
func (h *Handler) GetGitHubLatest(w http.ResponseWriter, r *http.Request) {
	if h.repos == nil {
		writeError(w, http.StatusServiceUnavailable, "GitHub integration disabled")
		return
	}
	repos, err := h.repos.LatestRepos(r.Context())
	if err != nil {
		logger := observability.LoggerFrom(r.Context())
		var ue *client.UpstreamError
		switch {
		case errors.Is(err, client.ErrCircuitOpen):
			logger.Debug("github breaker open")
			writeError(w, http.StatusServiceUnavailable, "GitHub API unavailable")
		case errors.As(err, &ue):
			logger.Warn("github request failed", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":  "GitHub API error",
				"status": ue.StatusCode,
			})
		default:
			logger.Warn("github request failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

// PostContact handles POST /api/contact.
func (h *Handler) PostContact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxContactBodyBytes)
	var msg models.ContactMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		observability.ContactSubmissionsTotal.WithLabelValues("malformed").Inc()
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if errs := contact.Validate(msg); errs != nil {
		observability.ContactSubmissionsTotal.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"ok":     false,
			"errors": errs,
		})
		return
	}

	observability.ContactSubmissionsTotal.WithLabelValues("accepted").Inc()
	observability.LoggerFrom(r.Context()).Info("contact message received",
		zap.String("name", msg.Name),
		zap.String("email", msg.Email),
		zap.String("message", msg.Message))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
