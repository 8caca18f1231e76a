package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/types"
)

type ChatTurnRepo interface {
	Create(ctx context.Context, tx *gorm.DB, turn *types.ChatTurn) (*types.ChatTurn, error)
	GetByID(ctx context.Context, tx *gorm.DB, turnID uuid.UUID) (*types.ChatTurn, error)
	ListByBlock(ctx context.Context, tx *gorm.DB, blockID uuid.UUID) ([]*types.ChatTurn, error)
	RecentByBlock(ctx context.Context, tx *gorm.DB, blockID uuid.UUID, limit int) ([]*types.ChatTurn, error)
	Delete(ctx context.Context, tx *gorm.DB, turnID uuid.UUID) error
	DeleteByBlock(ctx context.Context, tx *gorm.DB, blockID uuid.UUID) error
}

type chatTurnRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatTurnRepo(db *gorm.DB, baseLog *logger.Logger) ChatTurnRepo {
	return &chatTurnRepo{db: db, log: baseLog.With("repo", "ChatTurnRepo")}
}

func (r *chatTurnRepo) Create(ctx context.Context, tx *gorm.DB, turn *types.ChatTurn) (*types.ChatTurn, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if turn.ID == uuid.Nil {
		turn.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(turn).Error; err != nil {
		return nil, err
	}
	return turn, nil
}

func (r *chatTurnRepo) GetByID(ctx context.Context, tx *gorm.DB, turnID uuid.UUID) (*types.ChatTurn, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var turn types.ChatTurn
	if err := transaction.WithContext(ctx).
		Where("id = ?", turnID).
		First(&turn).Error; err != nil {
		return nil, err
	}
	return &turn, nil
}

// ListByBlock returns turns newest first, which is also the context-window
// order fed back to generation.
func (r *chatTurnRepo) ListByBlock(ctx context.Context, tx *gorm.DB, blockID uuid.UUID) ([]*types.ChatTurn, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ChatTurn
	if err := transaction.WithContext(ctx).
		Where("block_id = ?", blockID).
		Order("generated_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chatTurnRepo) RecentByBlock(ctx context.Context, tx *gorm.DB, blockID uuid.UUID, limit int) ([]*types.ChatTurn, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ChatTurn
	if err := transaction.WithContext(ctx).
		Where("block_id = ?", blockID).
		Order("generated_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *chatTurnRepo) Delete(ctx context.Context, tx *gorm.DB, turnID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", turnID).
		Delete(&types.ChatTurn{}).Error
}

func (r *chatTurnRepo) DeleteByBlock(ctx context.Context, tx *gorm.DB, blockID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("block_id = ?", blockID).
		Delete(&types.ChatTurn{}).Error
}
