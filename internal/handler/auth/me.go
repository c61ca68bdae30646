package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"oracle/internal/pkg/ctxutil"
	"oracle/internal/service"
)

// GetMe returns the authenticated account.
// @Summary      Current account
// @Description  Get the authenticated account's details
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/auth/me [get]
func (h *Handler) GetMe(c *gin.Context) {
	ctx := c.Request.Context()

	accountID, ok := ctxutil.GetUserID(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    40101,
			Message: "Unauthorized",
		})
		return
	}

	account, err := h.authService.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Code:    40401,
				Message: "Account not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "ok",
		"data":    toAccountInfo(account),
	})
}
