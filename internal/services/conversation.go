package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epesi-labs/epesi-backend/internal/cache"
	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/repos"
	"github.com/epesi-labs/epesi-backend/internal/types"
)

const conversationTitleLimit = 50

// ConversationService coordinates Epesi Agent conversations and per-block
// chat history. Messages and turns are append-only; the only mutation on a
// conversation after creation is its updated_at bump.
type ConversationService interface {
	GetOrCreate(ctx context.Context, dashboardID uuid.UUID, conversationID *uuid.UUID, firstPrompt string, createdBy uuid.UUID) (*types.Conversation, error)
	ListByDashboard(ctx context.Context, dashboardID uuid.UUID) ([]*types.Conversation, error)
	AppendMessage(ctx context.Context, conversationID uuid.UUID, role, content string, charts []types.ChartPayload) (*types.Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*types.Message, error)

	// RecentConversationTurns returns up to limit prior turns,
	// most-recent-first, reconstructed from the message history.
	RecentConversationTurns(ctx context.Context, conversationID uuid.UUID, limit int) ([]PromptTurn, error)

	AppendBlockTurn(ctx context.Context, blockID uuid.UUID, question string, chart *types.ChartPayload) (*types.ChatTurn, error)
	ListBlockTurns(ctx context.Context, blockID uuid.UUID) ([]*types.ChatTurn, error)
	RecentBlockTurns(ctx context.Context, blockID uuid.UUID, limit int) ([]PromptTurn, error)
	DeleteBlockTurn(ctx context.Context, turnID uuid.UUID) error
}

type conversationService struct {
	db            *gorm.DB
	log           *logger.Logger
	conversations repos.ConversationRepo
	messages      repos.MessageRepo
	turns         repos.ChatTurnRepo
	contextCache  *cache.ContextCache
}

func NewConversationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	conversationRepo repos.ConversationRepo,
	messageRepo repos.MessageRepo,
	turnRepo repos.ChatTurnRepo,
	contextCache *cache.ContextCache,
) ConversationService {
	return &conversationService{
		db:            db,
		log:           baseLog.With("service", "ConversationService"),
		conversations: conversationRepo,
		messages:      messageRepo,
		turns:         turnRepo,
		contextCache:  contextCache,
	}
}

// DeriveConversationTitle truncates the first prompt to 50 characters with a
// trailing ellipsis, or stores it verbatim when it fits. Rune-safe.
func DeriveConversationTitle(firstPrompt string) string {
	trimmed := strings.TrimSpace(firstPrompt)
	if trimmed == "" {
		return "New conversation"
	}
	runes := []rune(trimmed)
	if len(runes) <= conversationTitleLimit {
		return trimmed
	}
	return string(runes[:conversationTitleLimit]) + "..."
}

func (s *conversationService) GetOrCreate(ctx context.Context, dashboardID uuid.UUID, conversationID *uuid.UUID, firstPrompt string, createdBy uuid.UUID) (*types.Conversation, error) {
	if conversationID != nil && *conversationID != uuid.Nil {
		conversation, err := s.conversations.GetByID(ctx, nil, *conversationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewConversationNotFound(*conversationID)
			}
			return nil, err
		}
		return conversation, nil
	}

	now := time.Now().UTC()
	conversation := &types.Conversation{
		DashboardID: dashboardID,
		Title:       DeriveConversationTitle(firstPrompt),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return s.conversations.Create(ctx, nil, conversation)
}

func (s *conversationService) ListByDashboard(ctx context.Context, dashboardID uuid.UUID) ([]*types.Conversation, error) {
	return s.conversations.ListByDashboard(ctx, nil, dashboardID)
}

func (s *conversationService) AppendMessage(ctx context.Context, conversationID uuid.UUID, role, content string, charts []types.ChartPayload) (*types.Message, error) {
	now := time.Now().UTC()
	message := &types.Message{
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}
	if len(charts) > 0 {
		if err := message.EncodeMetadata(&types.MessageMetadata{Charts: charts}); err != nil {
			return nil, err
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.messages.Create(ctx, tx, message); err != nil {
			return err
		}
		return s.conversations.Touch(ctx, tx, conversationID, now)
	})
	if err != nil {
		return nil, err
	}

	s.contextCache.Invalidate(ctx, "conversation", conversationID.String())
	return message, nil
}

func (s *conversationService) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*types.Message, error) {
	if _, err := s.conversations.GetByID(ctx, nil, conversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewConversationNotFound(conversationID)
		}
		return nil, err
	}
	return s.messages.ListByConversation(ctx, nil, conversationID)
}

func (s *conversationService) RecentConversationTurns(ctx context.Context, conversationID uuid.UUID, limit int) ([]PromptTurn, error) {
	if limit <= 0 {
		limit = maxPriorTurns
	}

	var cached []PromptTurn
	if s.contextCache.GetTurns(ctx, "conversation", conversationID.String(), &cached) {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	// A turn is a user question followed by an assistant reply; fetch
	// enough messages to cover limit turns.
	messages, err := s.messages.RecentByConversation(ctx, nil, conversationID, limit*2)
	if err != nil {
		return nil, err
	}

	turns := make([]PromptTurn, 0, limit)
	// messages are newest-first; walk pairs assistant-then-user.
	for i := 0; i < len(messages) && len(turns) < limit; i++ {
		if messages[i].Role != types.MessageRoleAssistant {
			continue
		}
		turn := PromptTurn{}
		meta, err := messages[i].DecodeMetadata()
		if err == nil && len(meta.Charts) > 0 {
			chart := meta.Charts[len(meta.Charts)-1]
			turn.ChartTitle = chart.Title
			turn.ChartType = chart.ChartType
			turn.Series = chart.Series
		}
		if i+1 < len(messages) && messages[i+1].Role == types.MessageRoleUser {
			turn.Question = messages[i+1].Content
		}
		if turn.Question == "" && turn.ChartTitle == "" {
			continue
		}
		turns = append(turns, turn)
	}

	s.contextCache.SetTurns(ctx, "conversation", conversationID.String(), turns)
	return turns, nil
}

func (s *conversationService) AppendBlockTurn(ctx context.Context, blockID uuid.UUID, question string, chart *types.ChartPayload) (*types.ChatTurn, error) {
	turn := &types.ChatTurn{
		BlockID:     blockID,
		Question:    question,
		GeneratedAt: time.Now().UTC(),
	}
	if chart != nil {
		if err := turn.EncodeChart(chart); err != nil {
			return nil, err
		}
	}
	created, err := s.turns.Create(ctx, nil, turn)
	if err != nil {
		return nil, err
	}
	s.contextCache.Invalidate(ctx, "block", blockID.String())
	return created, nil
}

func (s *conversationService) ListBlockTurns(ctx context.Context, blockID uuid.UUID) ([]*types.ChatTurn, error) {
	return s.turns.ListByBlock(ctx, nil, blockID)
}

func (s *conversationService) RecentBlockTurns(ctx context.Context, blockID uuid.UUID, limit int) ([]PromptTurn, error) {
	if limit <= 0 {
		limit = maxPriorTurns
	}

	var cached []PromptTurn
	if s.contextCache.GetTurns(ctx, "block", blockID.String(), &cached) {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	stored, err := s.turns.RecentByBlock(ctx, nil, blockID, limit)
	if err != nil {
		return nil, err
	}
	turns := make([]PromptTurn, 0, len(stored))
	for _, item := range stored {
		turn := PromptTurn{Question: item.Question}
		chart, err := item.DecodeChart()
		if err == nil && chart != nil {
			turn.ChartTitle = chart.Title
			turn.ChartType = chart.ChartType
			turn.Series = chart.Series
		}
		turns = append(turns, turn)
	}

	s.contextCache.SetTurns(ctx, "block", blockID.String(), turns)
	return turns, nil
}

func (s *conversationService) DeleteBlockTurn(ctx context.Context, turnID uuid.UUID) error {
	turn, err := s.turns.GetByID(ctx, nil, turnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "chat turn", ID: turnID}
		}
		return err
	}
	if err := s.turns.Delete(ctx, nil, turnID); err != nil {
		return err
	}
	s.contextCache.Invalidate(ctx, "block", turn.BlockID.String())
	return nil
}
