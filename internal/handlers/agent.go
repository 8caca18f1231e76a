package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/services"
)

type AgentHandler struct {
	log           *logger.Logger
	agent         services.AgentService
	conversations services.ConversationService
}

func NewAgentHandler(log *logger.Logger, agentService services.AgentService, conversationService services.ConversationService) *AgentHandler {
	return &AgentHandler{
		log:           log.With("handler", "AgentHandler"),
		agent:         agentService,
		conversations: conversationService,
	}
}

type agentPromptRequest struct {
	Prompt         string     `json:"prompt" binding:"required"`
	ConversationID *uuid.UUID `json:"conversation_id"`
	ChartCount     int        `json:"chart_count"`
}

func (h *AgentHandler) SendPrompt(c *gin.Context) {
	dashboardID, ok := parseIDParam(c, "dashboardId")
	if !ok {
		return
	}
	var req agentPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	result, err := h.agent.SendPrompt(c.Request.Context(), dashboardID, req.ConversationID, req.Prompt, req.ChartCount)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (h *AgentHandler) ListConversations(c *gin.Context) {
	dashboardID, ok := parseIDParam(c, "dashboardId")
	if !ok {
		return
	}
	conversations, err := h.conversations.ListByDashboard(c.Request.Context(), dashboardID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, conversations)
}

func (h *AgentHandler) GetConversation(c *gin.Context) {
	conversationID, ok := parseIDParam(c, "conversationId")
	if !ok {
		return
	}
	messages, err := h.conversations.ListMessages(c.Request.Context(), conversationID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, messages)
}
