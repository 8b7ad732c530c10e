package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"payslipx/internal/cache"
	"payslipx/internal/ratelimit"
)

// UpdateRateLimitInput is the DTO for toggling the rate limit override.
type UpdateRateLimitInput struct {
	Override *bool `json:"override" binding:"required"`
}

// AdminHandler handles operator endpoints.
type AdminHandler struct {
	limiter *ratelimit.Limiter
	cache   *cache.Cache
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(limiter *ratelimit.Limiter, c *cache.Cache) *AdminHandler {
	return &AdminHandler{limiter: limiter, cache: c}
}

// GetRateLimit handles GET /api/v1/admin/ratelimit
// @Summary Get rate limit status
// @Tags admin
// @Produce json
// @Success 200 {object} APIResponse{data=ratelimit.Status} "Limiter status"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 403 {object} APIResponse "Admin role required"
// @Security BearerAuth
// @Router /admin/ratelimit [get]
func (h *AdminHandler) GetRateLimit(c *gin.Context) {
	RespondOK(c, h.limiter.Status())
}

// UpdateRateLimit handles PUT /api/v1/admin/ratelimit
// @Summary Toggle the rate limit override
// @Description When the override is on every limit is bypassed.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body UpdateRateLimitInput true "Override flag"
// @Success 200 {object} APIResponse{data=ratelimit.Status} "Updated limiter status"
// @Failure 400 {object} APIResponse "Invalid request"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 403 {object} APIResponse "Admin role required"
// @Security BearerAuth
// @Router /admin/ratelimit [put]
func (h *AdminHandler) UpdateRateLimit(c *gin.Context) {
	var input UpdateRateLimitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	h.limiter.SetOverride(*input.Override)
	RespondOK(c, h.limiter.Status())
}

// CacheStats handles GET /api/v1/admin/cache
// @Summary Get response cache statistics
// @Tags admin
// @Produce json
// @Success 200 {object} APIResponse{data=cache.Stats} "Cache statistics"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 403 {object} APIResponse "Admin role required"
// @Security BearerAuth
// @Router /admin/cache [get]
func (h *AdminHandler) CacheStats(c *gin.Context) {
	RespondOK(c, h.cache.Stats())
}

// PurgeCache handles DELETE /api/v1/admin/cache
// @Summary Purge the response cache
// @Tags admin
// @Produce json
// @Success 200 {object} APIResponse{data=cache.Stats} "Cache statistics after purge"
// @Failure 401 {object} APIResponse "Unauthorized"
// @Failure 403 {object} APIResponse "Admin role required"
// @Security BearerAuth
// @Router /admin/cache [delete]
func (h *AdminHandler) PurgeCache(c *gin.Context) {
	h.cache.Purge()
	RespondOK(c, h.cache.Stats())
}
