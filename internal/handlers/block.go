package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/requestdata"
	"github.com/epesi-labs/epesi-backend/internal/services"
	"github.com/epesi-labs/epesi-backend/internal/types"
)

type BlockHandler struct {
	log           *logger.Logger
	blocks        services.BlockService
	agent         services.AgentService
	conversations services.ConversationService
}

func NewBlockHandler(
	log *logger.Logger,
	blockService services.BlockService,
	agentService services.AgentService,
	conversationService services.ConversationService,
) *BlockHandler {
	return &BlockHandler{
		log:           log.With("handler", "BlockHandler"),
		blocks:        blockService,
		agent:         agentService,
		conversations: conversationService,
	}
}

type createBlockRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Type        string              `json:"type" binding:"required"`
	Size        int                 `json:"size"`
	Content     *types.BlockContent `json:"content"`
	Position    *int                `json:"position"`
}

func (h *BlockHandler) Create(c *gin.Context) {
	dashboardID, ok := parseIDParam(c, "dashboardId")
	if !ok {
		return
	}
	var req createBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	var createdBy uuid.UUID
	if rd := requestdata.GetRequestData(c.Request.Context()); rd != nil {
		createdBy = rd.UserID
	}

	block, err := h.blocks.Create(c.Request.Context(), services.CreateBlockInput{
		DashboardID: dashboardID,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Size:        req.Size,
		Content:     req.Content,
		Position:    req.Position,
		CreatedBy:   createdBy,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, block)
}

func (h *BlockHandler) List(c *gin.Context) {
	dashboardID, ok := parseIDParam(c, "dashboardId")
	if !ok {
		return
	}
	blocks, err := h.blocks.ListByDashboard(c.Request.Context(), dashboardID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, blocks)
}

func (h *BlockHandler) Get(c *gin.Context) {
	blockID, ok := parseIDParam(c, "blockId")
	if !ok {
		return
	}
	block, err := h.blocks.Get(c.Request.Context(), blockID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, block)
}

type updateBlockRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Size        *int    `json:"size"`
	Text        *string `json:"text"`
}

func (h *BlockHandler) Update(c *gin.Context) {
	blockID, ok := parseIDParam(c, "blockId")
	if !ok {
		return
	}
	var req updateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	block, err := h.blocks.Update(c.Request.Context(), blockID, services.UpdateBlockInput{
		Title:       req.Title,
		Description: req.Description,
		Size:        req.Size,
		Text:        req.Text,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, block)
}

func (h *BlockHandler) Delete(c *gin.Context) {
	blockID, ok := parseIDParam(c, "blockId")
	if !ok {
		return
	}
	if err := h.blocks.Delete(c.Request.Context(), blockID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

type moveBlockRequest struct {
	Position int `json:"position"`
}

func (h *BlockHandler) Move(c *gin.Context) {
	blockID, ok := parseIDParam(c, "blockId")
	if !ok {
		return
	}
	var req moveBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.blocks.Move(c.Request.Context(), blockID, req.Position); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"moved": true})
}

type reorderRequest struct {
	BlockIDs []uuid.UUID `json:"block_ids" binding:"required"`
}

func (h *BlockHandler) Reorder(c *gin.Context) {
	dashboardID, ok := parseIDParam(c, "dashboardId")
	if !ok {
		return
	}
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.blocks.Reorder(c.Request.Context(), dashboardID, req.BlockIDs); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"reordered": true})
}

type regenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (h *BlockHandler) Regenerate(c *gin.Context) {
	blockID, ok := parseIDParam(c, "blockId")
	if !ok {
		return
	}
	var req regenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	block, turn, err := h.agent.RegenerateBlock(c.Request.Context(), blockID, req.Prompt)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"block": block, "turn": turn})
}

type convertRequest struct {
	ChartType string `json:"chart_type" binding:"required"`
}

func (h *BlockHandler) Convert(c *gin.Context) {
	blockID, ok := parseIDParam(c, "blockId")
	if !ok {
		return
	}
	var req convertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	block, err := h.agent.ConvertBlockChart(c.Request.Context(), blockID, req.ChartType)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, block)
}

func (h *BlockHandler) History(c *gin.Context) {
	blockID, ok := parseIDParam(c, "blockId")
	if !ok {
		return
	}
	turns, err := h.conversations.ListBlockTurns(c.Request.Context(), blockID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, turns)
}

func (h *BlockHandler) DeleteHistoryEntry(c *gin.Context) {
	turnID, ok := parseIDParam(c, "turnId")
	if !ok {
		return
	}
	if err := h.conversations.DeleteBlockTurn(c.Request.Context(), turnID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}
