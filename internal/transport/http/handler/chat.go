package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fitora-backend/internal/app"
	"fitora-backend/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type SendMessageRequest struct {
	Message   string `json:"message"`
	SessionID *uint  `json:"session_id"`
	ForceNew  bool   `json:"force_new"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.ProcessMessage(c.Request.Context(), app.ProcessMessageInput{
		UserID:    userID,
		Message:   req.Message,
		SessionID: req.SessionID,
		ForceNew:  req.ForceNew,
	})
	if err != nil {
		writeError(c, err, "send message failed")
		return
	}
	response.OK(c, result)
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	sessions, err := h.chatService.ListSessions(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err, "list sessions failed")
		return
	}
	response.OK(c, sessions)
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.chatService.GetSessionDetail(c.Request.Context(), userID, sessionID)
	if err != nil {
		writeError(c, err, "get session failed")
		return
	}
	response.OK(c, detail)
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.chatService.DeleteSession(c.Request.Context(), userID, sessionID); err != nil {
		writeError(c, err, "delete session failed")
		return
	}
	response.OK(c, gin.H{"deleted_session_id": sessionID})
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	sessionID, ok := parseID(c, "session_id", c.Query("session_id"))
	if !ok {
		return
	}

	history, err := h.chatService.GetHistory(c.Request.Context(), userID, sessionID, queryInt(c, "limit", 0))
	if err != nil {
		writeError(c, err, "get history failed")
		return
	}
	response.OK(c, history)
}
