package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/repos"
	"github.com/epesi-labs/epesi-backend/internal/requestdata"
	"github.com/epesi-labs/epesi-backend/internal/types"
)

// DataSourceService ingests uploaded tabular data. The upload collaborator
// hands it already-decoded text or parsed JSON; normalization happens here
// and the stored relation is immutable afterwards.
type DataSourceService interface {
	Ingest(ctx context.Context, orgID uuid.UUID, name string, raw any) (*types.DataSource, error)
	Get(ctx context.Context, sourceID uuid.UUID) (*types.DataSource, error)
	ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*types.DataSource, error)
	Delete(ctx context.Context, sourceID uuid.UUID) error
}

type dataSourceService struct {
	log           *logger.Logger
	organizations repos.OrganizationRepo
	sources       repos.DataSourceRepo
}

func NewDataSourceService(baseLog *logger.Logger, orgRepo repos.OrganizationRepo, sourceRepo repos.DataSourceRepo) DataSourceService {
	return &dataSourceService{
		log:           baseLog.With("service", "DataSourceService"),
		organizations: orgRepo,
		sources:       sourceRepo,
	}
}

func (s *dataSourceService) Ingest(ctx context.Context, orgID uuid.UUID, name string, raw any) (*types.DataSource, error) {
	if _, err := s.organizations.GetByID(ctx, nil, orgID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "organization", ID: orgID}
		}
		return nil, err
	}

	relation, fields, err := NormalizeTabular(raw)
	if err != nil {
		return nil, err
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	rowsJSON, err := json.Marshal(relation)
	if err != nil {
		return nil, err
	}

	var createdBy uuid.UUID
	if rd := requestdata.GetRequestData(ctx); rd != nil {
		createdBy = rd.UserID
	}

	source := &types.DataSource{
		OrganizationID: orgID,
		Name:           name,
		Fields:         datatypes.JSON(fieldsJSON),
		Rows:           datatypes.JSON(rowsJSON),
		RowCount:       len(relation),
		CreatedBy:      createdBy,
		CreatedAt:      time.Now().UTC(),
	}
	return s.sources.Create(ctx, nil, source)
}

func (s *dataSourceService) Get(ctx context.Context, sourceID uuid.UUID) (*types.DataSource, error) {
	source, err := s.sources.GetByID(ctx, nil, sourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDataSourceNotFound(sourceID)
		}
		return nil, err
	}
	return source, nil
}

func (s *dataSourceService) ListByOrganization(ctx context.Context, orgID uuid.UUID) ([]*types.DataSource, error) {
	return s.sources.ListByOrganization(ctx, nil, orgID)
}

func (s *dataSourceService) Delete(ctx context.Context, sourceID uuid.UUID) error {
	if _, err := s.Get(ctx, sourceID); err != nil {
		return err
	}
	return s.sources.Delete(ctx, nil, sourceID)
}
