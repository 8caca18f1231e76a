package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/types"
)

type OrganizationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, org *types.Organization) (*types.Organization, error)
	GetByID(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) (*types.Organization, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.Organization, error)
}

type organizationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return &organizationRepo{db: db, log: baseLog.With("repo", "OrganizationRepo")}
}

func (r *organizationRepo) Create(ctx context.Context, tx *gorm.DB, org *types.Organization) (*types.Organization, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	if err := transaction.WithContext(ctx).Create(org).Error; err != nil {
		return nil, err
	}
	return org, nil
}

func (r *organizationRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) (*types.Organization, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var org types.Organization
	if err := transaction.WithContext(ctx).
		Where("id = ?", orgID).
		First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) ([]*types.Organization, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Organization
	if err := transaction.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
