package handler

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"payslipx/internal/domain"
	"payslipx/internal/export"
	"payslipx/internal/middleware"
	"payslipx/internal/usage"
)

const (
	defaultUsageWindow = 30 * 24 * time.Hour
	defaultPageLimit   = 50
	maxPageLimit       = 500
)

// UsageHandler handles usage ledger endpoints.
type UsageHandler struct {
	ledger *usage.Service
	now    func() time.Time
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(ledger *usage.Service) *UsageHandler {
	return &UsageHandler{ledger: ledger, now: time.Now}
}

// SetClock replaces the time source used for default windows.
func (h *UsageHandler) SetClock(now func() time.Time) {
	h.now = now
}

// List handles GET /api/v1/usage
// Devices see only their own records; admins may filter with device_id.
// @Summary List usage records
// @Tags usage
// @Produce json
// @Param from query string false "Window start (RFC 3339 or YYYY-MM-DD), default 30 days ago"
// @Param to query string false "Window end (RFC 3339 or YYYY-MM-DD), default now"
// @Param device_id query string false "Device filter (admin only)"
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} APIResponse{data=[]domain.UsageRecord,meta=PagMeta} "Usage records"
// @Failure 400 {object} APIResponse "Invalid time window"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Security BearerAuth
// @Router /usage [get]
func (h *UsageHandler) List(c *gin.Context) {
	from, to, ok := h.window(c)
	if !ok {
		return
	}
	offset, limit := parsePagination(c)

	recs, err := h.ledger.Range(c.Request.Context(), from, to)
	if err != nil {
		HandleError(c, err)
		return
	}

	deviceID := c.Query("device_id")
	if middleware.GetRole(c) != string(domain.RoleAdmin) {
		deviceID, _ = middleware.GetDeviceID(c)
	}
	if deviceID != "" {
		filtered := make([]domain.UsageRecord, 0, len(recs))
		for i := range recs {
			if recs[i].DeviceID == deviceID {
				filtered = append(filtered, recs[i])
			}
		}
		recs = filtered
	}

	total := len(recs)
	start := min(offset, total)
	end := min(start+limit, total)
	RespondPaginated(c, recs[start:end], PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Summary handles GET /api/v1/usage/summary
// @Summary Summarize usage
// @Description Totals, cost percentiles and per-device aggregates with anomaly flags.
// @Tags usage
// @Produce json
// @Param from query string false "Window start (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Window end (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {object} APIResponse{data=domain.UsageSummary} "Usage summary"
// @Failure 400 {object} APIResponse "Invalid time window"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 403 {object} APIResponse "Admin role required"
// @Security BearerAuth
// @Router /usage/summary [get]
func (h *UsageHandler) Summary(c *gin.Context) {
	from, to, ok := h.window(c)
	if !ok {
		return
	}

	sum, err := h.ledger.Summary(c.Request.Context(), from, to)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, sum)
}

// CheckAnomalies handles POST /api/v1/usage/alerts
// @Summary Check for anomalous devices
// @Description Summarize the window and send an alert email when any device is flagged.
// @Tags usage
// @Produce json
// @Param from query string false "Window start (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Window end (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {object} APIResponse{data=domain.UsageSummary} "Usage summary"
// @Failure 400 {object} APIResponse "Invalid time window"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 403 {object} APIResponse "Admin role required"
// @Security BearerAuth
// @Router /usage/alerts [post]
func (h *UsageHandler) CheckAnomalies(c *gin.Context) {
	from, to, ok := h.window(c)
	if !ok {
		return
	}

	sum, err := h.ledger.CheckAndAlert(c.Request.Context(), from, to)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, sum)
}

// Export handles GET /api/v1/usage/export?format=csv|xlsx
// @Summary Export usage records
// @Tags usage
// @Produce text/csv,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "Export format" Enums(csv, xlsx) default(csv)
// @Param from query string false "Window start (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Window end (RFC 3339 or YYYY-MM-DD)"
// @Success 200 {file} file "Usage export"
// @Failure 400 {object} APIResponse "Invalid format or time window"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 403 {object} APIResponse "Admin role required"
// @Security BearerAuth
// @Router /usage/export [get]
func (h *UsageHandler) Export(c *gin.Context) {
	from, to, ok := h.window(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
		return
	}

	ctx := c.Request.Context()
	recs, err := h.ledger.Range(ctx, from, to)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := export.BuildFilename("payslipx_usage", from, to, format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if format == "csv" {
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		if err := export.WriteCSV(c.Writer, recs); err != nil {
			requestID, _ := c.Get("request_id")
			log.Printf("[%s] usage csv export: %v", requestID, err)
		}
		return
	}

	sum, err := h.ledger.Summary(ctx, from, to)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := export.WriteXLSX(c.Writer, recs, sum); err != nil {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] usage xlsx export: %v", requestID, err)
	}
}

// window parses from and to as RFC 3339 timestamps or YYYY-MM-DD dates. The
// default window is the last 30 days.
func (h *UsageHandler) window(c *gin.Context) (from, to time.Time, ok bool) {
	to = h.now().UTC()
	if s := c.Query("to"); s != "" {
		t, err := parseTime(s)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_TIME", "to must be RFC 3339 or YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		to = t
	}
	from = to.Add(-defaultUsageWindow)
	if s := c.Query("from"); s != "" {
		t, err := parseTime(s)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_TIME", "from must be RFC 3339 or YYYY-MM-DD")
			return time.Time{}, time.Time{}, false
		}
		from = t
	}
	if !to.After(from) {
		RespondError(c, http.StatusBadRequest, "INVALID_TIME", "to must be after from")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	return offset, limit
}
