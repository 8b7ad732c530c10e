package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"payslipx/internal/auth"
)

// AuthHandler handles device token endpoints.
type AuthHandler struct {
	tokens *auth.TokenService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{tokens: tokens}
}

// DeviceToken handles POST /api/v1/auth/device-token
// @Summary Issue a device token
// @Description Exchange an anonymous device id and app key for a bearer token. The admin key grants the admin role.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body auth.DeviceTokenInput true "Device id and key"
// @Success 201 {object} APIResponse{data=auth.Token} "Token issued"
// @Failure 400 {object} APIResponse "Invalid request"
// @Failure 401 {object} APIResponse "Invalid key"
// @Router /auth/device-token [post]
func (h *AuthHandler) DeviceToken(c *gin.Context) {
	var input auth.DeviceTokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	token, err := h.tokens.Issue(input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, token)
}
