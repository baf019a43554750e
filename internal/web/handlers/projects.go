package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/monroehq/photo-pairer/internal/companycam"
	"github.com/monroehq/photo-pairer/internal/pairing"
)

// ProjectHandler handles project browsing endpoints.
type ProjectHandler struct {
	cam     *companycam.Client
	pairCfg pairing.Config
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(cam *companycam.Client, pairCfg pairing.Config) *ProjectHandler {
	return &ProjectHandler{cam: cam, pairCfg: pairCfg}
}

// List returns a page of CompanyCam projects.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	perPage := queryInt(r, "per_page", 50)
	page := queryInt(r, "page", 1)

	projects, err := h.cam.GetProjects(r.Context(), perPage, page)
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to list projects")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"page":     page,
		"per_page": perPage,
	})
}

// batchSummary describes one capture session of a project.
type batchSummary struct {
	Size             int      `json:"size"`
	StartTime        string   `json:"start_time"`
	EndTime          string   `json:"end_time"`
	RepresentativeID string   `json:"representative_id"`
	PhotoIDs         []string `json:"photo_ids"`
}

// Batches groups a project's photos into capture sessions and returns their
// summaries. Useful for previewing what batch-mode matching would see.
func (h *ProjectHandler) Batches(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if projectID == "" {
		respondError(w, http.StatusBadRequest, "missing project ID")
		return
	}

	camPhotos, err := h.cam.GetAllProjectPhotos(r.Context(), projectID)
	if err != nil {
		if companycam.IsNotFoundError(err) {
			respondError(w, http.StatusNotFound, "project not found")
			return
		}
		respondError(w, http.StatusBadGateway, "failed to fetch photos")
		return
	}

	photos := make([]pairing.Photo, len(camPhotos))
	for i, cp := range camPhotos {
		photos[i] = pairing.Photo{
			ID:         cp.ID,
			ProjectID:  cp.ProjectID,
			CapturedAt: cp.CapturedAt,
			URL:        cp.OriginalURL(),
		}
	}

	batches := pairing.GroupIntoBatches(photos, h.pairCfg)

	summaries := make([]batchSummary, len(batches))
	for i, batch := range batches {
		ids := make([]string, len(batch.Photos))
		for j, photo := range batch.Photos {
			ids[j] = photo.ID
		}
		summaries[i] = batchSummary{
			Size:             len(batch.Photos),
			StartTime:        time.Unix(batch.StartTime(), 0).UTC().Format(time.RFC3339),
			EndTime:          time.Unix(batch.EndTime(), 0).UTC().Format(time.RFC3339),
			RepresentativeID: batch.Representative().ID,
			PhotoIDs:         ids,
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"project_id":  projectID,
		"photo_count": len(camPhotos),
		"batches":     summaries,
	})
}

// queryInt parses an integer query parameter with a default.
func queryInt(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}
