package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/epesi-labs/epesi-backend/internal/handlers"
	"github.com/epesi-labs/epesi-backend/internal/middleware"
	"github.com/epesi-labs/epesi-backend/internal/utils"
)

type RouterConfig struct {
	AuthHandler       *handlers.AuthHandler
	AuthMiddleware    *middleware.AuthMiddleware
	WorkspaceHandler  *handlers.WorkspaceHandler
	DataSourceHandler *handlers.DataSourceHandler
	BlockHandler      *handlers.BlockHandler
	AgentHandler      *handlers.AgentHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("epesi-backend"))

	// Cors
	origins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173", nil), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)

	// Organizations
	protected.POST("/organizations", cfg.WorkspaceHandler.CreateOrganization)
	protected.GET("/organizations", cfg.WorkspaceHandler.ListOrganizations)

	// Projects
	protected.POST("/organizations/:orgId/projects", cfg.WorkspaceHandler.CreateProject)
	protected.GET("/organizations/:orgId/projects", cfg.WorkspaceHandler.ListProjects)

	// Data sources
	protected.POST("/organizations/:orgId/datasources", cfg.DataSourceHandler.Upload)
	protected.GET("/organizations/:orgId/datasources", cfg.DataSourceHandler.List)
	protected.GET("/datasources/:sourceId", cfg.DataSourceHandler.Get)
	protected.DELETE("/datasources/:sourceId", cfg.DataSourceHandler.Delete)

	// Dashboards
	protected.POST("/projects/:projectId/dashboards", cfg.WorkspaceHandler.CreateDashboard)
	protected.GET("/projects/:projectId/dashboards", cfg.WorkspaceHandler.ListDashboards)
	protected.GET("/dashboards/:dashboardId", cfg.WorkspaceHandler.GetDashboard)

	// Blocks
	protected.POST("/dashboards/:dashboardId/blocks", cfg.BlockHandler.Create)
	protected.GET("/dashboards/:dashboardId/blocks", cfg.BlockHandler.List)
	protected.PUT("/dashboards/:dashboardId/blocks/reorder", cfg.BlockHandler.Reorder)
	protected.GET("/blocks/:blockId", cfg.BlockHandler.Get)
	protected.PATCH("/blocks/:blockId", cfg.BlockHandler.Update)
	protected.DELETE("/blocks/:blockId", cfg.BlockHandler.Delete)
	protected.PUT("/blocks/:blockId/position", cfg.BlockHandler.Move)
	protected.POST("/blocks/:blockId/regenerate", cfg.BlockHandler.Regenerate)
	protected.POST("/blocks/:blockId/convert", cfg.BlockHandler.Convert)
	protected.GET("/blocks/:blockId/history", cfg.BlockHandler.History)
	protected.DELETE("/blocks/:blockId/history/:turnId", cfg.BlockHandler.DeleteHistoryEntry)

	// Epesi Agent
	protected.POST("/dashboards/:dashboardId/agent", cfg.AgentHandler.SendPrompt)
	protected.GET("/dashboards/:dashboardId/conversations", cfg.AgentHandler.ListConversations)
	protected.GET("/conversations/:conversationId/messages", cfg.AgentHandler.GetConversation)

	return router
}
