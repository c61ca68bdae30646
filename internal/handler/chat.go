package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"oracle/internal/model"
	"oracle/internal/pkg/ctxutil"
	"oracle/internal/service"
)

// ChatHandler serves the chat endpoint.
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates the chat handler.
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat runs one prompt through the generation pipeline.
// @Summary      Chat
// @Description  Send a prompt and receive the refined reply
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      model.ChatRequest  true  "chat request"
// @Success      200      {object}  model.ChatResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      402      {object}  model.QuotaExceededResponse
// @Failure      404      {object}  model.ErrorResponse
// @Failure      502      {object}  model.ErrorResponse
// @Router       /api/v1/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	ctx := c.Request.Context()
	accountID, ok := ctxutil.GetUserID(ctx)
	if !ok {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{
			Code:    40101,
			Message: "Unauthorized",
		})
		return
	}

	result, err := h.chatService.Chat(ctx, accountID, req.Prompt)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyPrompt):
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Code:    40002,
				Message: "Prompt cannot be empty",
			})
		case errors.Is(err, service.ErrQuotaExceeded):
			c.JSON(http.StatusPaymentRequired, model.QuotaExceededResponse{
				Message:              "You have used your free queries for this month. Subscribe to continue.",
				LimitReached:         true,
				RemainingFreeQueries: 0,
			})
		case errors.Is(err, service.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, model.ErrorResponse{
				Code:    40401,
				Message: "Account not found",
			})
		case errors.Is(err, service.ErrGenerationFailed):
			c.JSON(http.StatusBadGateway, model.ErrorResponse{
				Code:    50201,
				Message: "Generation backend failed",
			})
		default:
			c.JSON(http.StatusInternalServerError, model.ErrorResponse{
				Code:    50001,
				Message: "Internal server error",
			})
		}
		return
	}

	resp := model.ChatResponse{Response: result.Reply}
	if !result.Subscribed {
		remaining := result.RemainingFreeQueries
		resp.RemainingFreeQueries = &remaining
	}

	c.JSON(http.StatusOK, resp)
}
