package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/epesi-labs/epesi-backend/internal/cache"
	"github.com/epesi-labs/epesi-backend/internal/logger"
	"github.com/epesi-labs/epesi-backend/internal/repos"
	"github.com/epesi-labs/epesi-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// newTestDB opens an isolated in-memory sqlite database migrated with the
// full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&types.User{},
		&types.Organization{},
		&types.Project{},
		&types.Dashboard{},
		&types.DataSource{},
		&types.Block{},
		&types.Conversation{},
		&types.Message{},
		&types.ChatTurn{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// seedDashboard creates an organization, project, and dashboard chain and
// returns the dashboard.
func seedDashboard(t *testing.T, db *gorm.DB) *types.Dashboard {
	t.Helper()
	now := time.Now().UTC()
	org := &types.Organization{ID: uuid.New(), Name: "org", OwnerID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	if err := db.Create(org).Error; err != nil {
		t.Fatalf("seed org: %v", err)
	}
	project := &types.Project{ID: uuid.New(), OrganizationID: org.ID, Name: "project", CreatedAt: now, UpdatedAt: now}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("seed project: %v", err)
	}
	dashboard := &types.Dashboard{ID: uuid.New(), ProjectID: project.ID, Name: "dashboard", CreatedAt: now, UpdatedAt: now}
	if err := db.Create(dashboard).Error; err != nil {
		t.Fatalf("seed dashboard: %v", err)
	}
	return dashboard
}

func newTestPositions(t *testing.T, db *gorm.DB) (PositionService, repos.BlockRepo) {
	t.Helper()
	log := testLogger(t)
	blockRepo := repos.NewBlockRepo(db, log)
	return NewPositionService(db, log, blockRepo), blockRepo
}

func newTestConversations(t *testing.T, db *gorm.DB) ConversationService {
	t.Helper()
	log := testLogger(t)
	return NewConversationService(
		db,
		log,
		repos.NewConversationRepo(db, log),
		repos.NewMessageRepo(db, log),
		repos.NewChatTurnRepo(db, log),
		cache.NewContextCache(log),
	)
}

// mustPositions asserts the dashboard's blocks occupy exactly 0..N-1 in the
// given id order.
func mustPositions(t *testing.T, blockRepo repos.BlockRepo, dashboardID uuid.UUID, wantIDs []uuid.UUID) {
	t.Helper()
	blocks, err := blockRepo.ListByDashboard(context.Background(), nil, dashboardID)
	if err != nil {
		t.Fatalf("list blocks: %v", err)
	}
	if len(blocks) != len(wantIDs) {
		t.Fatalf("expected %d blocks, got %d", len(wantIDs), len(blocks))
	}
	for i, block := range blocks {
		if block.Position != i {
			t.Fatalf("positions must be dense: index %d has position %d", i, block.Position)
		}
		if block.ID != wantIDs[i] {
			t.Fatalf("unexpected order at %d: got %s want %s", i, block.ID, wantIDs[i])
		}
	}
}
