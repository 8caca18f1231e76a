package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/services"
)

type WorkspaceHandler struct {
	log       *logger.Logger
	workspace services.WorkspaceService
}

func NewWorkspaceHandler(log *logger.Logger, workspace services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{
		log:       log.With("handler", "WorkspaceHandler"),
		workspace: workspace,
	}
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

type createOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *WorkspaceHandler) CreateOrganization(c *gin.Context) {
	var req createOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	org, err := h.workspace.CreateOrganization(c.Request.Context(), req.Name)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, org)
}

func (h *WorkspaceHandler) ListOrganizations(c *gin.Context) {
	orgs, err := h.workspace.ListOrganizations(c.Request.Context())
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, orgs)
}

type createProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *WorkspaceHandler) CreateProject(c *gin.Context) {
	orgID, ok := parseIDParam(c, "orgId")
	if !ok {
		return
	}
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	project, err := h.workspace.CreateProject(c.Request.Context(), orgID, req.Name, req.Description)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, project)
}

func (h *WorkspaceHandler) ListProjects(c *gin.Context) {
	orgID, ok := parseIDParam(c, "orgId")
	if !ok {
		return
	}
	projects, err := h.workspace.ListProjects(c.Request.Context(), orgID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, projects)
}

type createDashboardRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *WorkspaceHandler) CreateDashboard(c *gin.Context) {
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}
	var req createDashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dashboard, err := h.workspace.CreateDashboard(c.Request.Context(), projectID, req.Name, req.Description)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, dashboard)
}

func (h *WorkspaceHandler) GetDashboard(c *gin.Context) {
	dashboardID, ok := parseIDParam(c, "dashboardId")
	if !ok {
		return
	}
	dashboard, err := h.workspace.GetDashboard(c.Request.Context(), dashboardID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, dashboard)
}

func (h *WorkspaceHandler) ListDashboards(c *gin.Context) {
	projectID, ok := parseIDParam(c, "projectId")
	if !ok {
		return
	}
	dashboards, err := h.workspace.ListDashboards(c.Request.Context(), projectID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, dashboards)
}
