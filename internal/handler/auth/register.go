package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"oracle/internal/service"
)

// RegisterRequest is the registration body.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// RegisterResponseData is the registration response payload.
type RegisterResponseData struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Register creates a new account.
// @Summary      Register
// @Description  Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      RegisterRequest  true  "registration request"
// @Success      201      {object}  map[string]interface{}
// @Failure      400      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /api/v1/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	ctx := c.Request.Context()

	resp, err := h.authService.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		code := http.StatusInternalServerError
		errorCode := 50001

		switch {
		case errors.Is(err, service.ErrAccountExists):
			code = http.StatusConflict
			errorCode = 40901
		case errors.Is(err, service.ErrEmailTaken):
			code = http.StatusConflict
			errorCode = 40902
		}

		c.JSON(code, ErrorResponse{
			Code:    errorCode,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "registered",
		"data": RegisterResponseData{
			UserID:   resp.UserID,
			Username: resp.Username,
		},
	})
}
