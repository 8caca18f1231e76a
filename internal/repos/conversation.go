package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/types"
)

type ConversationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, conversation *types.Conversation) (*types.Conversation, error)
	GetByID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*types.Conversation, error)
	ListByDashboard(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID) ([]*types.Conversation, error)
	Touch(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, at time.Time) error
	Delete(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) error
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return &conversationRepo{db: db, log: baseLog.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) Create(ctx context.Context, tx *gorm.DB, conversation *types.Conversation) (*types.Conversation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if conversation.ID == uuid.Nil {
		conversation.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(conversation).Error; err != nil {
		return nil, err
	}
	return conversation, nil
}

func (r *conversationRepo) GetByID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*types.Conversation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var conversation types.Conversation
	if err := transaction.WithContext(ctx).
		Where("id = ?", conversationID).
		First(&conversation).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *conversationRepo) ListByDashboard(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID) ([]*types.Conversation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Conversation
	if err := transaction.WithContext(ctx).
		Where("dashboard_id = ?", dashboardID).
		Order("updated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Touch bumps updated_at so the conversation always reflects its latest
// message.
func (r *conversationRepo) Touch(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Conversation{}).
		Where("id = ?", conversationID).
		UpdateColumn("updated_at", at).Error
}

func (r *conversationRepo) Delete(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", conversationID).
		Delete(&types.Conversation{}).Error
}
