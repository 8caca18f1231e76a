package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/types"
)

// BlockRepo is the only code path that touches the position column, and the
// shift helpers are only ever called inside a position-engine transaction.
type BlockRepo interface {
	Create(ctx context.Context, tx *gorm.DB, block *types.Block) (*types.Block, error)
	GetByID(ctx context.Context, tx *gorm.DB, blockID uuid.UUID) (*types.Block, error)
	ListByDashboard(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID) ([]*types.Block, error)
	ListTitlesByDashboard(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID) ([]string, error)
	CountByDashboard(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID) (int64, error)
	Update(ctx context.Context, tx *gorm.DB, block *types.Block) (*types.Block, error)
	Delete(ctx context.Context, tx *gorm.DB, blockID uuid.UUID) error

	ShiftPositions(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID, fromPos int, delta int) error
	ShiftPositionRange(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID, lowPos, highPos, delta int, excludeID uuid.UUID) error
	SetPosition(ctx context.Context, tx *gorm.DB, blockID uuid.UUID, position int) error
}

type blockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBlockRepo(db *gorm.DB, baseLog *logger.Logger) BlockRepo {
	return &blockRepo{db: db, log: baseLog.With("repo", "BlockRepo")}
}

func (r *blockRepo) Create(ctx context.Context, tx *gorm.DB, block *types.Block) (*types.Block, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if block.ID == uuid.Nil {
		block.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(block).Error; err != nil {
		return nil, err
	}
	return block, nil
}

func (r *blockRepo) GetByID(ctx context.Context, tx *gorm.DB, blockID uuid.UUID) (*types.Block, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var block types.Block
	if err := transaction.WithContext(ctx).
		Where("id = ?", blockID).
		First(&block).Error; err != nil {
		return nil, err
	}
	return &block, nil
}

func (r *blockRepo) ListByDashboard(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID) ([]*types.Block, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Block
	if err := transaction.WithContext(ctx).
		Where("dashboard_id = ?", dashboardID).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *blockRepo) ListTitlesByDashboard(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var titles []string
	if err := transaction.WithContext(ctx).
		Model(&types.Block{}).
		Where("dashboard_id = ? AND title <> ''", dashboardID).
		Order("position ASC").
		Pluck("title", &titles).Error; err != nil {
		return nil, err
	}
	return titles, nil
}

func (r *blockRepo) CountByDashboard(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Block{}).
		Where("dashboard_id = ?", dashboardID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *blockRepo) Update(ctx context.Context, tx *gorm.DB, block *types.Block) (*types.Block, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Save(block).Error; err != nil {
		return nil, err
	}
	return block, nil
}

func (r *blockRepo) Delete(ctx context.Context, tx *gorm.DB, blockID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", blockID).
		Delete(&types.Block{}).Error
}

// ShiftPositions moves every block with position >= fromPos by delta.
func (r *blockRepo) ShiftPositions(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID, fromPos int, delta int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Block{}).
		Where("dashboard_id = ? AND position >= ?", dashboardID, fromPos).
		UpdateColumn("position", gorm.Expr("position + ?", delta)).Error
}

// ShiftPositionRange moves blocks with lowPos <= position <= highPos by
// delta, skipping excludeID (the block being moved).
func (r *blockRepo) ShiftPositionRange(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID, lowPos, highPos, delta int, excludeID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Block{}).
		Where("dashboard_id = ? AND position >= ? AND position <= ? AND id <> ?", dashboardID, lowPos, highPos, excludeID).
		UpdateColumn("position", gorm.Expr("position + ?", delta)).Error
}

func (r *blockRepo) SetPosition(ctx context.Context, tx *gorm.DB, blockID uuid.UUID, position int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Block{}).
		Where("id = ?", blockID).
		UpdateColumn("position", position).Error
}
