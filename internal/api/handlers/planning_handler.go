package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/ddmrp-planner/internal/domain"
	"github.com/andresuchdata/ddmrp-planner/internal/report"
	"github.com/andresuchdata/ddmrp-planner/internal/service"
)

type PlanningHandler struct {
	service *service.PlanningService
}

func NewPlanningHandler(service *service.PlanningService) *PlanningHandler {
	return &PlanningHandler{service: service}
}

func (h *PlanningHandler) parseFilter(c *gin.Context) (domain.ItemFilter, error) {
	filter := domain.ItemFilter{
		Page:     1,
		PageSize: 50,
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}

	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil && size > 0 {
		filter.PageSize = size
	}

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, ok := domain.ParseHealthStatus(raw)
		if !ok {
			return filter, fmt.Errorf("unknown status %q", raw)
		}
		filter.Status = status
	}

	if raw := strings.TrimSpace(c.Query("zone")); raw != "" {
		zone, ok := domain.ParseZone(raw)
		if !ok {
			return filter, fmt.Errorf("unknown zone %q", raw)
		}
		filter.Zone = zone
	}

	filter.ABC = strings.ToUpper(strings.TrimSpace(c.Query("abc")))
	filter.Category = strings.TrimSpace(c.Query("category"))
	filter.Search = strings.TrimSpace(c.Query("search"))

	if sortField := strings.TrimSpace(c.Query("sort_field")); sortField != "" {
		filter.SortField = strings.ToLower(sortField)
	}

	sortDir := strings.ToLower(strings.TrimSpace(c.Query("sort_direction")))
	if sortDir != "desc" {
		sortDir = "asc"
	}
	filter.SortDirection = sortDir

	return filter, nil
}

// respondError maps domain errors onto HTTP status codes.
func respondError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSnapshotUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrStaleRequest):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	}
	c.JSON(status, gin.H{"error": message, "details": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
}

func (h *PlanningHandler) Health(c *gin.Context) {
	snap, err := h.service.Snapshot()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "warming", "refresh": h.service.RefreshStatus()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"seq":          snap.Seq,
		"as_of":        snap.AsOf,
		"generated_at": snap.GeneratedAt,
		"stale":        snap.Stale,
		"items":        len(snap.Plans),
	})
}

func (h *PlanningHandler) GetItems(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	page, err := h.service.ListItems(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "failed to fetch items", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *PlanningHandler) GetItem(c *gin.Context) {
	plan, err := h.service.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, "failed to fetch item", err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *PlanningHandler) GetBuffer(c *gin.Context) {
	ltf := 0.0
	if raw := strings.TrimSpace(c.Query("ltf")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			badRequest(c, fmt.Errorf("ltf must be a non-negative number"))
			return
		}
		ltf = v
	}
	whatIf, err := h.service.SimulateBuffer(c.Request.Context(), c.Param("id"), ltf)
	if err != nil {
		respondError(c, "failed to simulate buffer", err)
		return
	}
	c.JSON(http.StatusOK, whatIf)
}

func (h *PlanningHandler) GetProjection(c *gin.Context) {
	horizon, _ := strconv.Atoi(c.DefaultQuery("horizon", "0"))

	// Absent means the valid warehouses; present but empty selects none.
	var warehouses []string
	raw, present := c.GetQueryArray("warehouses")
	if present {
		warehouses = []string{}
	}
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				warehouses = append(warehouses, part)
			}
		}
	}

	session := strings.TrimSpace(c.Query("session"))
	if session == "" {
		session = c.GetHeader("X-Session-ID")
	}

	p, err := h.service.GetProjection(c.Request.Context(), session, c.Param("id"), horizon, warehouses)
	if err != nil {
		respondError(c, "failed to project stock", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *PlanningHandler) GetAlerts(c *gin.Context) {
	horizon, _ := strconv.Atoi(c.DefaultQuery("horizon", "0"))
	alerts, err := h.service.GetAlerts(c.Request.Context(), horizon)
	if err != nil {
		respondError(c, "failed to scan alerts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "total": len(alerts)})
}

func (h *PlanningHandler) GetSummary(c *gin.Context) {
	summary, err := h.service.GetSummary(c.Request.Context())
	if err != nil {
		respondError(c, "failed to fetch summary", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *PlanningHandler) GetDeviation(c *gin.Context) {
	kind, ok := domain.ParseDeviationKind(c.Param("kind"))
	if !ok {
		badRequest(c, fmt.Errorf("unknown deviation kind %q", c.Param("kind")))
		return
	}
	month := strings.TrimSpace(c.Query("month"))
	if month != "" && !validMonth(month) {
		badRequest(c, fmt.Errorf("month must be YYYY-MM"))
		return
	}
	rep, err := h.service.GetDeviation(c.Request.Context(), kind, month, c.DefaultQuery("group_by", "item"))
	if err != nil {
		respondError(c, "failed to analyze deviation", err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// TriggerRefresh queues a refresh, or runs it inline with ?wait=true.
func (h *PlanningHandler) TriggerRefresh(c *gin.Context) {
	if wait, _ := strconv.ParseBool(c.DefaultQuery("wait", "false")); wait {
		metrics, err := h.service.RefreshNow(c.Request.Context())
		if err != nil {
			respondError(c, "refresh failed", err)
			return
		}
		c.JSON(http.StatusOK, metrics)
		return
	}
	c.JSON(http.StatusAccepted, h.service.RequestRefresh())
}

func (h *PlanningHandler) GetRefreshStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.RefreshStatus())
}

func (h *PlanningHandler) GetRefreshRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.service.RefreshRuns(c.Request.Context(), limit)
	if err != nil {
		respondError(c, "failed to list refresh runs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// Export streams plans, alerts or a deviation report as CSV or XLSX.
func (h *PlanningHandler) Export(c *gin.Context) {
	format, err := report.ParseFormat(c.DefaultQuery("format", "csv"))
	if err != nil {
		badRequest(c, err)
		return
	}
	opts := report.DefaultOptions()
	if strings.EqualFold(c.Query("locale"), "es") {
		opts.Locale = report.LocaleES
	}

	ctx := c.Request.Context()
	var table report.Table
	switch c.Param("table") {
	case "plans":
		snap, err := h.service.Snapshot()
		if err != nil {
			respondError(c, "failed to export plans", err)
			return
		}
		table = report.PlansTable(snap.Ordered())
	case "alerts":
		horizon, _ := strconv.Atoi(c.DefaultQuery("horizon", "0"))
		alerts, err := h.service.GetAlerts(ctx, horizon)
		if err != nil {
			respondError(c, "failed to export alerts", err)
			return
		}
		table = report.AlertsTable(alerts)
	case "production", "sales", "consumption":
		kind, _ := domain.ParseDeviationKind(c.Param("table"))
		rep, err := h.service.GetDeviation(ctx, kind, c.Query("month"), c.DefaultQuery("group_by", "item"))
		if err != nil {
			respondError(c, "failed to export deviation", err)
			return
		}
		table = report.DeviationTable(*rep)
	default:
		badRequest(c, fmt.Errorf("unknown export %q", c.Param("table")))
		return
	}

	contentType := "text/csv"
	if format == report.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", table.Name, format))
	if err := report.Write(c.Writer, format, table, opts); err != nil {
		log.Error().Err(err).Msg("export failed")
		c.Status(http.StatusInternalServerError)
	}
}

func validMonth(m string) bool {
	if len(m) != 7 || m[4] != '-' {
		return false
	}
	month, err := strconv.Atoi(m[5:])
	if err != nil || month < 1 || month > 12 {
		return false
	}
	_, err = strconv.Atoi(m[:4])
	return err == nil
}
