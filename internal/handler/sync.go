package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stl311/internal/repository"
	"stl311/internal/scheduler"
	"stl311/internal/service"
)

type SyncHandler struct {
	Scheduler *scheduler.Scheduler
	Store     repository.SyncRepository
	Logger    *zap.Logger
}

func (h *SyncHandler) Register(r *gin.Engine) {
	sync := r.Group("/api/sync")
	sync.POST("/trigger", h.trigger)
	sync.GET("/runs", h.listRuns)
	sync.GET("/runs/:id", h.getRun)
	sync.GET("/state", h.listState)

	sched := r.Group("/api/scheduler")
	sched.POST("/start", h.startScheduler)
	sched.POST("/stop", h.stopScheduler)
	sched.GET("/status", h.schedulerStatus)
}

// @Summary Trigger a sync run
// @Tags sync
// @Param window query string false "window kind (yesterday|last_days|range)"
// @Param days query int false "day count for last_days"
// @Param start query string false "range start (YYYY-MM-DD)"
// @Param end query string false "range end (YYYY-MM-DD)"
// @Success 200 {object} apiResponse
// @Router /api/sync/trigger [post]
func (h *SyncHandler) trigger(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	window, err := windowFromQuery(c)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	run, err := h.Scheduler.TriggerNow(c.Request.Context(), window)
	if errors.Is(err, scheduler.ErrAlreadyRunning) {
		Error(c, http.StatusConflict, err.Error(), nil)
		return
	}
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("triggered sync failed", zap.Error(err))
		}
		meta := map[string]any{}
		if run != nil {
			meta["run_id"] = run.ID
		}
		Error(c, http.StatusBadGateway, err.Error(), meta)
		return
	}
	Ok(c, run, nil)
}

// @Summary List sync runs
// @Tags sync
// @Param state query string false "filter by state"
// @Param since query string false "runs started on/after (RFC3339 or YYYY-MM-DD)"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/sync/runs [get]
func (h *SyncHandler) listRuns(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	params := repository.ListSyncRunsParams{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
	}
	if state := strings.TrimSpace(c.Query("state")); state != "" {
		upper := strings.ToUpper(state)
		params.State = &upper
	}
	if since := timeQuery(c, "since"); since != nil {
		params.Since = since
	}
	runs, err := h.Store.ListSyncRuns(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Store.CountSyncRuns(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, runs, map[string]any{
		"total":  total,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

// @Summary Get one sync run
// @Tags sync
// @Param id path string true "run id"
// @Success 200 {object} apiResponse
// @Router /api/sync/runs/{id} [get]
func (h *SyncHandler) getRun(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	run, err := h.Store.GetSyncRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if run == nil {
		Error(c, http.StatusNotFound, "run not found", nil)
		return
	}
	Ok(c, run, nil)
}

// @Summary List sync states
// @Tags sync
// @Success 200 {object} apiResponse
// @Router /api/sync/state [get]
func (h *SyncHandler) listState(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	states, err := h.Store.ListSyncStates(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, states, nil)
}

// @Summary Start the scheduler
// @Tags scheduler
// @Success 200 {object} apiResponse
// @Router /api/scheduler/start [post]
func (h *SyncHandler) startScheduler(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	if err := h.Scheduler.Start(); err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, h.Scheduler.Status(), nil)
}

// @Summary Stop the scheduler
// @Tags scheduler
// @Success 200 {object} apiResponse
// @Router /api/scheduler/stop [post]
func (h *SyncHandler) stopScheduler(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	h.Scheduler.Stop()
	Ok(c, h.Scheduler.Status(), nil)
}

// @Summary Scheduler status
// @Tags scheduler
// @Success 200 {object} apiResponse
// @Router /api/scheduler/status [get]
func (h *SyncHandler) schedulerStatus(c *gin.Context) {
	if h.Scheduler == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	Ok(c, h.Scheduler.Status(), nil)
}

func windowFromQuery(c *gin.Context) (service.Window, error) {
	now := time.Now().UTC()
	kind := strings.ToLower(strings.TrimSpace(c.DefaultQuery("window", service.WindowYesterday)))
	switch kind {
	case service.WindowYesterday:
		return service.Yesterday(now), nil
	case service.WindowLastDays, "last-days":
		return service.LastDays(now, intQuery(c, "days", 7)), nil
	case service.WindowRange:
		start, err := parseDateParam(c.Query("start"))
		if err != nil {
			return service.Window{}, err
		}
		end, err := parseDateParam(c.Query("end"))
		if err != nil {
			return service.Window{}, err
		}
		return service.Range(start, end)
	default:
		return service.Window{}, errors.New("unsupported window: " + kind)
	}
}

func parseDateParam(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func timeQuery(c *gin.Context, key string) *time.Time {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil
	}
	if t, err := parseDateParam(value); err == nil {
		return &t
	}
	return nil
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func intQueryPtr(c *gin.Context, key string) *int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return &i
		}
	}
	return nil
}
