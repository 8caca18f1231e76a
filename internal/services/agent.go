package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/repos"
	"github.com/epesi-labs/epesi-backend/internal/requestdata"
	"github.com/epesi-labs/epesi-backend/internal/types"
)

// AgentResult is the outcome of one successful Epesi Agent turn.
type AgentResult struct {
	Conversation     *types.Conversation `json:"conversation"`
	UserMessage      *types.Message      `json:"user_message"`
	AssistantMessage *types.Message      `json:"assistant_message"`
	Blocks           []*types.Block      `json:"blocks"`
}

// AgentService runs the end-to-end generation turn:
//
//	context built -> generation -> reconcile -> insights -> block persisted
//	-> history recorded
//
// Nothing is persisted until generation and reconciliation succeed, so a
// failed turn leaves no block, turn, or message behind.
type AgentService interface {
	// SendPrompt handles one Epesi Agent message against a dashboard. New
	// blocks are prepended (position 0).
	SendPrompt(ctx context.Context, dashboardID uuid.UUID, conversationID *uuid.UUID, prompt string, chartCount int) (*AgentResult, error)

	// RegenerateBlock runs a follow-up prompt against one block, using its
	// chat history as conversational memory.
	RegenerateBlock(ctx context.Context, blockID uuid.UUID, prompt string) (*types.Block, *types.ChatTurn, error)

	// ConvertBlockChart switches the chart type of a block reusing the
	// existing series verbatim. No backend call is made.
	ConvertBlockChart(ctx context.Context, blockID uuid.UUID, targetType string) (*types.Block, error)
}

type agentService struct {
	log           *logger.Logger
	dashboards    repos.DashboardRepo
	projects      repos.ProjectRepo
	dataSources   repos.DataSourceRepo
	blocks        repos.BlockRepo
	generation    GenerationService
	positions     PositionService
	conversations ConversationService
}

func NewAgentService(
	baseLog *logger.Logger,
	dashboardRepo repos.DashboardRepo,
	projectRepo repos.ProjectRepo,
	dataSourceRepo repos.DataSourceRepo,
	blockRepo repos.BlockRepo,
	generationService GenerationService,
	positionService PositionService,
	conversationService ConversationService,
) AgentService {
	return &agentService{
		log:           baseLog.With("service", "AgentService"),
		dashboards:    dashboardRepo,
		projects:      projectRepo,
		dataSources:   dataSourceRepo,
		blocks:        blockRepo,
		generation:    generationService,
		positions:     positionService,
		conversations: conversationService,
	}
}

func (s *agentService) SendPrompt(ctx context.Context, dashboardID uuid.UUID, conversationID *uuid.UUID, prompt string, chartCount int) (*AgentResult, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("not authenticated")
	}
	if chartCount <= 0 {
		chartCount = 1
	}

	dashboard, err := s.dashboards.GetByID(ctx, nil, dashboardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDashboardNotFound(dashboardID)
		}
		return nil, err
	}
	project, err := s.projects.GetByID(ctx, nil, dashboard.ProjectID)
	if err != nil {
		return nil, err
	}
	sources, err := s.dataSources.ListByOrganization(ctx, nil, project.OrganizationID)
	if err != nil {
		return nil, err
	}

	relations := make([]RelationInfo, 0, len(sources))
	for _, source := range sources {
		info, err := RelationInfoFromDataSource(source)
		if err != nil {
			s.log.Warn("Skipping undecodable data source", "data_source_id", source.ID, "error", err)
			continue
		}
		relations = append(relations, info)
	}

	// An existing conversation is resolved up front so its history feeds
	// the prompt; a new one is only created after generation succeeds, so
	// a failed turn persists nothing.
	var priorTurns []PromptTurn
	if conversationID != nil && *conversationID != uuid.Nil {
		if _, err := s.conversations.GetOrCreate(ctx, dashboardID, conversationID, "", rd.UserID); err != nil {
			return nil, err
		}
		priorTurns, err = s.conversations.RecentConversationTurns(ctx, *conversationID, maxPriorTurns)
		if err != nil {
			return nil, err
		}
	}

	existingTitles, err := s.blocks.ListTitlesByDashboard(ctx, nil, dashboardID)
	if err != nil {
		return nil, err
	}

	pkg := BuildChartContext(relations, priorTurns, existingTitles, prompt, chartCount)
	raws, err := s.generation.GenerateCharts(ctx, pkg, chartCount)
	if err != nil {
		return nil, err
	}

	payloads := make([]types.ChartPayload, 0, len(raws))
	for _, raw := range raws {
		payload := Reconcile(raw.Payload, "")
		if types.ValidChartType(raw.ChartType) {
			payload.ChartType = raw.ChartType
		}
		payload.Title = raw.Question
		payload.Insights = SynthesizeInsights(payload.Series, raw.Question)
		payloads = append(payloads, payload)
	}

	// Generation succeeded; persist the full turn.
	conversation, err := s.conversations.GetOrCreate(ctx, dashboardID, conversationID, prompt, rd.UserID)
	if err != nil {
		return nil, err
	}
	userMessage, err := s.conversations.AppendMessage(ctx, conversation.ID, types.MessageRoleUser, prompt, nil)
	if err != nil {
		return nil, err
	}

	var sourceRef *uuid.UUID
	if len(sources) == 1 {
		sourceRef = &sources[0].ID
	}

	now := time.Now().UTC()
	createdBlocks := make([]*types.Block, len(payloads))
	// Insert in reverse so the first generated chart ends up at position 0.
	for i := len(payloads) - 1; i >= 0; i-- {
		payload := payloads[i]
		block := &types.Block{
			DashboardID: dashboardID,
			Title:       payload.Title,
			Type:        types.BlockTypeAI,
			Size:        6,
			CreatedBy:   rd.UserID,
		}
		content := &types.BlockContent{
			ChartData:    &payload,
			DataSourceID: sourceRef,
			LastPrompt:   prompt,
			GeneratedAt:  &now,
		}
		if err := block.EncodeContent(content); err != nil {
			return nil, err
		}
		prepend := 0
		created, err := s.positions.Insert(ctx, block, &prepend)
		if err != nil {
			return nil, err
		}
		if _, err := s.conversations.AppendBlockTurn(ctx, created.ID, prompt, &payload); err != nil {
			return nil, err
		}
		createdBlocks[i] = created
	}

	replyText := fmt.Sprintf("Added %d chart(s) to the dashboard.", len(payloads))
	if len(payloads) < chartCount {
		replyText = fmt.Sprintf("Added %d of %d requested chart(s) to the dashboard.", len(payloads), chartCount)
	}
	assistantMessage, err := s.conversations.AppendMessage(ctx, conversation.ID, types.MessageRoleAssistant, replyText, payloads)
	if err != nil {
		return nil, err
	}

	return &AgentResult{
		Conversation:     conversation,
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
		Blocks:           createdBlocks,
	}, nil
}

func (s *agentService) RegenerateBlock(ctx context.Context, blockID uuid.UUID, prompt string) (*types.Block, *types.ChatTurn, error) {
	block, err := s.blocks.GetByID(ctx, nil, blockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, NewBlockNotFound(blockID)
		}
		return nil, nil, err
	}
	content, err := block.DecodeContent()
	if err != nil {
		return nil, nil, err
	}

	var relations []RelationInfo
	if content.DataSourceID != nil {
		source, err := s.dataSources.GetByID(ctx, nil, *content.DataSourceID)
		if err == nil {
			if info, infoErr := RelationInfoFromDataSource(source); infoErr == nil {
				relations = append(relations, info)
			}
		}
	}

	priorTurns, err := s.conversations.RecentBlockTurns(ctx, blockID, maxPriorTurns)
	if err != nil {
		return nil, nil, err
	}

	pkg := BuildChartContext(relations, priorTurns, nil, prompt, 1)
	raws, err := s.generation.GenerateCharts(ctx, pkg, 1)
	if err != nil {
		return nil, nil, err
	}
	raw := raws[0]

	payload := Reconcile(raw.Payload, "")
	if types.ValidChartType(raw.ChartType) {
		payload.ChartType = raw.ChartType
	}
	payload.Title = raw.Question
	payload.Insights = SynthesizeInsights(payload.Series, raw.Question)

	now := time.Now().UTC()
	content.ChartData = &payload
	content.LastPrompt = prompt
	content.GeneratedAt = &now
	if err := block.EncodeContent(content); err != nil {
		return nil, nil, err
	}
	block.Title = payload.Title
	block.UpdatedAt = now
	updated, err := s.blocks.Update(ctx, nil, block)
	if err != nil {
		return nil, nil, err
	}

	turn, err := s.conversations.AppendBlockTurn(ctx, blockID, prompt, &payload)
	if err != nil {
		return nil, nil, err
	}
	return updated, turn, nil
}

func (s *agentService) ConvertBlockChart(ctx context.Context, blockID uuid.UUID, targetType string) (*types.Block, error) {
	if !types.ValidChartType(targetType) {
		return nil, fmt.Errorf("invalid chart type %q", targetType)
	}

	block, err := s.blocks.GetByID(ctx, nil, blockID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewBlockNotFound(blockID)
		}
		return nil, err
	}
	content, err := block.DecodeContent()
	if err != nil {
		return nil, err
	}
	if content.ChartData == nil {
		return nil, fmt.Errorf("block has no chart to convert")
	}

	// Series is reused verbatim; only the chart type changes.
	payload := Reconcile(content.ChartData, targetType)

	now := time.Now().UTC()
	content.ChartData = &payload
	content.GeneratedAt = &now
	if err := block.EncodeContent(content); err != nil {
		return nil, err
	}
	block.UpdatedAt = now
	return s.blocks.Update(ctx, nil, block)
}
