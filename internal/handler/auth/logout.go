package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Logout invalidates a refresh token.
// @Summary      Logout
// @Description  Log out, invalidating the refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  ErrorResponse
// @Router       /api/v1/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	refreshToken := c.GetHeader("X-Refresh-Token")
	if refreshToken == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.ShouldBindJSON(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}

	if refreshToken != "" {
		ctx := c.Request.Context()
		if err := h.authService.Logout(ctx, refreshToken); err != nil {
			// Logout is best-effort; an already-deleted token is fine.
			log.Warn().Err(err).Msg("failed to delete refresh token on logout")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "logged out",
	})
}
