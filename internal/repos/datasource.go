package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/types"
)

type DataSourceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, source *types.DataSource) (*types.DataSource, error)
	GetByID(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) (*types.DataSource, error)
	ListByOrganization(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.DataSource, error)
	Delete(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) error
}

type dataSourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDataSourceRepo(db *gorm.DB, baseLog *logger.Logger) DataSourceRepo {
	return &dataSourceRepo{db: db, log: baseLog.With("repo", "DataSourceRepo")}
}

func (r *dataSourceRepo) Create(ctx context.Context, tx *gorm.DB, source *types.DataSource) (*types.DataSource, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if source.ID == uuid.Nil {
		source.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(source).Error; err != nil {
		return nil, err
	}
	return source, nil
}

func (r *dataSourceRepo) GetByID(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) (*types.DataSource, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var source types.DataSource
	if err := transaction.WithContext(ctx).
		Where("id = ?", sourceID).
		First(&source).Error; err != nil {
		return nil, err
	}
	return &source, nil
}

func (r *dataSourceRepo) ListByOrganization(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*types.DataSource, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.DataSource
	if err := transaction.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *dataSourceRepo) Delete(ctx context.Context, tx *gorm.DB, sourceID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", sourceID).
		Delete(&types.DataSource{}).Error
}
