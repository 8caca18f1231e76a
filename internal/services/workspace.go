package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/repos"
	"github.com/epesi-labs/epesi-backend/internal/requestdata"
	"github.com/epesi-labs/epesi-backend/internal/types"
)

// WorkspaceService is thin CRUD over the organization/project/dashboard
// hierarchy. No business logic lives here; the interesting behavior is all in
// the generation and position services.
type WorkspaceService interface {
	CreateOrganization(ctx context.Context, name string) (*types.Organization, error)
	ListOrganizations(ctx context.Context) ([]*types.Organization, error)
	CreateProject(ctx context.Context, orgID uuid.UUID, name, description string) (*types.Project, error)
	ListProjects(ctx context.Context, orgID uuid.UUID) ([]*types.Project, error)
	CreateDashboard(ctx context.Context, projectID uuid.UUID, name, description string) (*types.Dashboard, error)
	GetDashboard(ctx context.Context, dashboardID uuid.UUID) (*types.Dashboard, error)
	ListDashboards(ctx context.Context, projectID uuid.UUID) ([]*types.Dashboard, error)
}

type workspaceService struct {
	log           *logger.Logger
	organizations repos.OrganizationRepo
	projects      repos.ProjectRepo
	dashboards    repos.DashboardRepo
}

func NewWorkspaceService(baseLog *logger.Logger, orgRepo repos.OrganizationRepo, projectRepo repos.ProjectRepo, dashboardRepo repos.DashboardRepo) WorkspaceService {
	return &workspaceService{
		log:           baseLog.With("service", "WorkspaceService"),
		organizations: orgRepo,
		projects:      projectRepo,
		dashboards:    dashboardRepo,
	}
}

func requireUser(ctx context.Context) (uuid.UUID, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("not authenticated")
	}
	return rd.UserID, nil
}

func (s *workspaceService) CreateOrganization(ctx context.Context, name string) (*types.Organization, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("organization name is required")
	}
	now := time.Now().UTC()
	return s.organizations.Create(ctx, nil, &types.Organization{
		Name:      name,
		OwnerID:   userID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (s *workspaceService) ListOrganizations(ctx context.Context) ([]*types.Organization, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.organizations.ListByOwner(ctx, nil, userID)
}

func (s *workspaceService) CreateProject(ctx context.Context, orgID uuid.UUID, name, description string) (*types.Project, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.organizations.GetByID(ctx, nil, orgID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "organization", ID: orgID}
		}
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	now := time.Now().UTC()
	return s.projects.Create(ctx, nil, &types.Project{
		OrganizationID: orgID,
		Name:           name,
		Description:    description,
		CreatedBy:      userID,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (s *workspaceService) ListProjects(ctx context.Context, orgID uuid.UUID) ([]*types.Project, error) {
	return s.projects.ListByOrganization(ctx, nil, orgID)
}

func (s *workspaceService) CreateDashboard(ctx context.Context, projectID uuid.UUID, name, description string) (*types.Dashboard, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.GetByID(ctx, nil, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "project", ID: projectID}
		}
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("dashboard name is required")
	}
	now := time.Now().UTC()
	return s.dashboards.Create(ctx, nil, &types.Dashboard{
		ProjectID:   projectID,
		Name:        name,
		Description: description,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (s *workspaceService) GetDashboard(ctx context.Context, dashboardID uuid.UUID) (*types.Dashboard, error) {
	dashboard, err := s.dashboards.GetByID(ctx, nil, dashboardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewDashboardNotFound(dashboardID)
		}
		return nil, err
	}
	return dashboard, nil
}

func (s *workspaceService) ListDashboards(ctx context.Context, projectID uuid.UUID) ([]*types.Dashboard, error) {
	return s.dashboards.ListByProject(ctx, nil, projectID)
}
