package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/manageq/internal/services"
)

type sendChatRequest struct {
	Message string `json:"message" binding:"required,max=1000"`
}

func (h *handlerImpl) HandleGetChat(c *gin.Context) {
	userID, _ := getStringFromContext(c, userIDCtxKey)

	messages, err := h.chat.GetMessages(c, userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to get chat messages")
		abort(c, newServerError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *handlerImpl) HandleSendChat(c *gin.Context) {
	userID, _ := getStringFromContext(c, userIDCtxKey)

	var req sendChatRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newValidationError(err))
		return
	}

	result, err := h.chat.SendMessage(c, services.SendMessageParams{
		UserID:  userID,
		Message: req.Message,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to send chat message")
		switch {
		case errors.Is(err, services.ErrInvalidChatMessage):
			abort(c, newValidationError(err))
		default:
			abort(c, newServerError(err))
		}
		return
	}
	h.metrics.ObserveChatReply(result.Policy)

	c.JSON(http.StatusOK, gin.H{
		"userMessage": result.UserMessage,
		"aiMessage":   result.AIMessage,
	})
}
