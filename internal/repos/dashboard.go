package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/types"
)

type DashboardRepo interface {
	Create(ctx context.Context, tx *gorm.DB, dashboard *types.Dashboard) (*types.Dashboard, error)
	GetByID(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID) (*types.Dashboard, error)
	ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Dashboard, error)
	Delete(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID) error
}

type dashboardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDashboardRepo(db *gorm.DB, baseLog *logger.Logger) DashboardRepo {
	return &dashboardRepo{db: db, log: baseLog.With("repo", "DashboardRepo")}
}

func (r *dashboardRepo) Create(ctx context.Context, tx *gorm.DB, dashboard *types.Dashboard) (*types.Dashboard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if dashboard.ID == uuid.Nil {
		dashboard.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(dashboard).Error; err != nil {
		return nil, err
	}
	return dashboard, nil
}

func (r *dashboardRepo) GetByID(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID) (*types.Dashboard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var dashboard types.Dashboard
	if err := transaction.WithContext(ctx).
		Where("id = ?", dashboardID).
		First(&dashboard).Error; err != nil {
		return nil, err
	}
	return &dashboard, nil
}

func (r *dashboardRepo) ListByProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Dashboard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Dashboard
	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *dashboardRepo) Delete(ctx context.Context, tx *gorm.DB, dashboardID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", dashboardID).
		Delete(&types.Dashboard{}).Error
}
