package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jingxuan-bi/report-service/internal/database"
	"github.com/jingxuan-bi/report-service/internal/sqltemplate"
)

// SystemHandler serves the health and template administration
// endpoints.
type SystemHandler struct {
	db        *database.Manager
	templates *sqltemplate.Manager
	startedAt time.Time
}

// NewSystemHandler creates a system handler.
func NewSystemHandler(db *database.Manager, templates *sqltemplate.Manager) *SystemHandler {
	return &SystemHandler{db: db, templates: templates, startedAt: time.Now()}
}

// Health reports service liveness.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"time":      time.Now().UTC(),
		"uptime":    time.Since(h.startedAt).String(),
		"templates": h.templates.HealthCheck(),
	})
}

// HealthDB probes every registered data source. Returns 503 when none
// is reachable.
func (h *SystemHandler) HealthDB(w http.ResponseWriter, r *http.Request) {
	results := h.db.TestAll(r.Context())
	healthy := false
	byName := make(map[string]bool, len(results))
	for kind, ok := range results {
		byName[string(kind)] = ok
		healthy = healthy || ok
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, envelope{
		Success: healthy,
		Data: map[string]interface{}{
			"connectors": byName,
		},
	})
}

// Templates lists the loaded template metadata.
func (h *SystemHandler) Templates(w http.ResponseWriter, r *http.Request) {
	templates := h.templates.List()
	list := make([]map[string]interface{}, 0, len(templates))
	for _, tpl := range templates {
		list = append(list, map[string]interface{}{
			"name":          tpl.Name,
			"description":   tpl.Description,
			"parameters":    tpl.Parameters,
			"hasPagination": tpl.HasPagination,
		})
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"templates": list,
		"count":     len(list),
	})
}

// ReloadTemplates reloads every template from disk, or a single one
// when the name parameter is present.
func (h *SystemHandler) ReloadTemplates(w http.ResponseWriter, r *http.Request) {
	if name := chi.URLParam(r, "name"); name != "" {
		if err := h.templates.Reload(name); err != nil {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondSuccess(w, http.StatusOK, map[string]interface{}{"reloaded": name})
		return
	}

	count, err := h.templates.ReloadAll()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"reloaded": count})
}
