package main

import (
	"context"
	"fmt"
	"os"

	"github.com/epesi-labs/epesi-backend/internal/cache"
	"github.com/epesi-labs/epesi-backend/internal/db"
	"github.com/epesi-labs/epesi-backend/internal/handlers"
	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/middleware"
	"github.com/epesi-labs/epesi-backend/internal/observability"
	"github.com/epesi-labs/epesi-backend/internal/repos"
	"github.com/epesi-labs/epesi-backend/internal/server"
	"github.com/epesi-labs/epesi-backend/internal/services"
	"github.com/epesi-labs/epesi-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "epesi-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if shutdownOtel != nil {
		defer shutdownOtel(context.Background())
	}

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	orgRepo := repos.NewOrganizationRepo(thePG, log)
	projectRepo := repos.NewProjectRepo(thePG, log)
	dashboardRepo := repos.NewDashboardRepo(thePG, log)
	dataSourceRepo := repos.NewDataSourceRepo(thePG, log)
	blockRepo := repos.NewBlockRepo(thePG, log)
	conversationRepo := repos.NewConversationRepo(thePG, log)
	messageRepo := repos.NewMessageRepo(thePG, log)
	turnRepo := repos.NewChatTurnRepo(thePG, log)

	// Cache
	contextCache := cache.NewContextCache(log)

	// Services
	log.Info("Setting up Services from main...")
	aiClient, err := services.NewAIClient(log)
	if err != nil {
		log.Error("Could not init AIClient", "error", err)
		os.Exit(1)
	}
	authService := services.NewAuthService(log, userRepo, jwtSecretKey, accessTokenTTL)
	workspaceService := services.NewWorkspaceService(log, orgRepo, projectRepo, dashboardRepo)
	dataSourceService := services.NewDataSourceService(log, orgRepo, dataSourceRepo)
	positionService := services.NewPositionService(thePG, log, blockRepo)
	conversationService := services.NewConversationService(thePG, log, conversationRepo, messageRepo, turnRepo, contextCache)
	generationService := services.NewGenerationService(log, aiClient)
	blockService := services.NewBlockService(log, blockRepo, dashboardRepo, turnRepo, positionService)
	agentService := services.NewAgentService(log, dashboardRepo, projectRepo, dataSourceRepo, blockRepo, generationService, positionService, conversationService)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(log, authService)
	workspaceHandler := handlers.NewWorkspaceHandler(log, workspaceService)
	dataSourceHandler := handlers.NewDataSourceHandler(log, dataSourceService)
	blockHandler := handlers.NewBlockHandler(log, blockService, agentService, conversationService)
	agentHandler := handlers.NewAgentHandler(log, agentService, conversationService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:       authHandler,
		AuthMiddleware:    authMiddleware,
		WorkspaceHandler:  workspaceHandler,
		DataSourceHandler: dataSourceHandler,
		BlockHandler:      blockHandler,
		AgentHandler:      agentHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
