package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/jingxuan-bi/report-service/internal/config"
	"github.com/jingxuan-bi/report-service/internal/database"
	"github.com/jingxuan-bi/report-service/internal/models"
	"github.com/jingxuan-bi/report-service/internal/sqltemplate"
)

// ReportHandler serves the interactive report query endpoints.
type ReportHandler struct {
	cfg       *config.Config
	templates *sqltemplate.Manager
	db        *database.Manager
}

// NewReportHandler creates a report handler.
func NewReportHandler(cfg *config.Config, templates *sqltemplate.Manager, db *database.Manager) *ReportHandler {
	return &ReportHandler{cfg: cfg, templates: templates, db: db}
}

// queryRequest accepts both the flat body and the legacy shape that
// wraps everything under a params object.
type queryRequest struct {
	models.QueryParams
	Params *models.QueryParams `json:"params"`
}

func (h *ReportHandler) parseParams(r *http.Request) (*models.QueryParams, error) {
	var req queryRequest
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	params := &req.QueryParams
	if req.Params != nil {
		params = req.Params
	}
	if params.Page == 0 {
		params.Page = 1
	}
	if params.PageSize == 0 {
		params.PageSize = h.cfg.Query.DefaultPageSize
	}
	return params, nil
}

// Query runs the paginated report query plus its row count and returns
// both in one response.
func (h *ReportHandler) Query(w http.ResponseWriter, r *http.Request) {
	reportType := chi.URLParam(r, "reportType")
	if !sqltemplate.IsKnownReport(reportType) {
		respondError(w, http.StatusNotFound, "unknown report type: "+reportType)
		return
	}
	params, err := h.parseParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	processed, err := h.templates.Process(reportType, params)
	if err != nil {
		respondProcessError(w, err)
		return
	}

	log.Info().Str("report_type", reportType).
		Interface("params", params.Sanitized()).Msg("Report query")

	result, err := h.db.Query(r.Context(), processed.SQL, processed.Params)
	if err != nil {
		respondQueryError(w, err)
		return
	}

	data := map[string]interface{}{
		"items":    result.Data,
		"columns":  result.Columns,
		"page":     params.Page,
		"pageSize": params.PageSize,
	}
	if result.Warning != "" {
		data["warning"] = result.Warning
	}
	if total, ok := h.countRows(r, reportType, params); ok {
		data["total"] = total
	}
	respondQueryResult(w, http.StatusOK, data, result.QueryTime)
}

// Count returns only the row count for a report query.
func (h *ReportHandler) Count(w http.ResponseWriter, r *http.Request) {
	reportType := chi.URLParam(r, "reportType")
	if !sqltemplate.IsKnownReport(reportType) {
		respondError(w, http.StatusNotFound, "unknown report type: "+reportType)
		return
	}
	params, err := h.parseParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	processed, err := h.templates.ProcessCount(reportType, params)
	if err != nil {
		respondProcessError(w, err)
		return
	}
	result, err := h.db.Query(r.Context(), processed.SQL, processed.Params)
	if err != nil {
		respondQueryError(w, err)
		return
	}

	data := map[string]interface{}{"total": firstCount(result.Data)}
	if result.Warning != "" {
		data["warning"] = result.Warning
	}
	respondSuccess(w, http.StatusOK, data)
}

// OrderDetail looks up orders by order number. The date range is still
// required so the statement stays bounded.
func (h *ReportHandler) OrderDetail(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if params.OrderNumber == "" {
		respondError(w, http.StatusBadRequest, "orderNumber is required")
		return
	}

	processed, err := h.templates.Process("order-query", params)
	if err != nil {
		respondProcessError(w, err)
		return
	}
	result, err := h.db.Query(r.Context(), processed.SQL, processed.Params)
	if err != nil {
		respondQueryError(w, err)
		return
	}

	data := map[string]interface{}{
		"items":   result.Data,
		"columns": result.Columns,
	}
	if result.Warning != "" {
		data["warning"] = result.Warning
	}
	respondQueryResult(w, http.StatusOK, data, result.QueryTime)
}

// OrderFilterOptions returns the label sets the dashboard populates
// its filter dropdowns from.
func (h *ReportHandler) OrderFilterOptions(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"statuses":       labelOptions(models.OrderStatusLabels, models.ValidOrderStatuses),
		"orderTypes":     models.OrderTypeLabels,
		"sourceChannels": models.SourceChannelLabels,
		"deliveryTypes":  models.DeliveryTypeLabels,
	})
}

// countRows is best effort: a count that cannot be produced drops the
// total from the response rather than failing the query.
func (h *ReportHandler) countRows(r *http.Request, reportType string, params *models.QueryParams) (int64, bool) {
	processed, err := h.templates.ProcessCount(reportType, params)
	if err != nil {
		log.Warn().Err(err).Str("report_type", reportType).Msg("Row count unavailable")
		return 0, false
	}
	result, err := h.db.Query(r.Context(), processed.SQL, processed.Params)
	if err != nil {
		log.Warn().Err(err).Str("report_type", reportType).Msg("Row count query failed")
		return 0, false
	}
	return firstCount(result.Data), true
}

func labelOptions(labels map[int]string, order []int) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(order))
	for _, code := range order {
		out = append(out, map[string]interface{}{"value": code, "label": labels[code]})
	}
	return out
}

func firstCount(rows []map[string]interface{}) int64 {
	if len(rows) == 0 {
		return 0
	}
	for _, v := range rows[0] {
		switch n := v.(type) {
		case int64:
			return n
		case float64:
			return int64(n)
		case int:
			return int64(n)
		}
	}
	return 0
}

func respondProcessError(w http.ResponseWriter, err error) {
	var verr *sqltemplate.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, sqltemplate.ErrTemplateNotFound):
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrNoHealthyConnector) {
		respondError(w, http.StatusServiceUnavailable, "no data source available")
		return
	}
	respondError(w, http.StatusInternalServerError, "query failed: "+err.Error())
}
