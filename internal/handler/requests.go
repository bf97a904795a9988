package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"stl311/internal/repository"
)

// RequestsHandler exposes read access to the synced service requests.
type RequestsHandler struct {
	Store repository.SyncRepository
}

func (h *RequestsHandler) Register(r *gin.Engine) {
	group := r.Group("/api/requests")
	group.GET("", h.listRequests)
	group.GET("/:id", h.getRequest)
	group.GET("/:id/updates", h.listUpdates)
}

// @Summary List service requests
// @Tags requests
// @Param status query string false "canonical status"
// @Param ward query int false "ward number"
// @Param neighborhood query string false "neighborhood"
// @Param source query string false "row source (api|citizen)"
// @Param since query string false "opened on/after (RFC3339 or YYYY-MM-DD)"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/requests [get]
func (h *RequestsHandler) listRequests(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	params := repository.ListServiceRequestsParams{
		Limit:  intQuery(c, "limit", 100),
		Offset: intQuery(c, "offset", 0),
		Ward:   intQueryPtr(c, "ward"),
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		lower := strings.ToLower(status)
		params.Status = &lower
	}
	if hood := strings.TrimSpace(c.Query("neighborhood")); hood != "" {
		params.Neighborhood = &hood
	}
	if source := strings.TrimSpace(c.Query("source")); source != "" {
		lower := strings.ToLower(source)
		params.Source = &lower
	}
	params.Since = timeQuery(c, "since")

	items, err := h.Store.ListServiceRequests(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Store.CountServiceRequests(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{
		"total":  total,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

// @Summary Get one service request
// @Tags requests
// @Param id path int true "external request id"
// @Success 200 {object} apiResponse
// @Router /api/requests/{id} [get]
func (h *RequestsHandler) getRequest(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid request id", nil)
		return
	}
	item, err := h.Store.GetServiceRequestByRequestID(c.Request.Context(), requestID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "request not found", nil)
		return
	}
	Ok(c, item, nil)
}

// @Summary List status updates for a request
// @Tags requests
// @Param id path int true "external request id"
// @Success 200 {object} apiResponse
// @Router /api/requests/{id}/updates [get]
func (h *RequestsHandler) listUpdates(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	requestID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid request id", nil)
		return
	}
	updates, err := h.Store.ListStatusUpdates(c.Request.Context(), requestID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, updates, nil)
}
